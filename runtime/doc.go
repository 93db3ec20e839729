// Package runtime implements the Tern runtime substrate.
//
// This package contains:
//   - Reference-counted cell model and weak references
//   - The worker pool and futures with await/cancel/timeout/all/race
//   - Channels, mutexes, semaphores, wait groups, atomic cells
//   - The handle registry compiled code addresses objects through
//   - Registry sweeping and CBOR value snapshots
//
// Cancellation of futures is cooperative: Cancel sets an advisory flag
// that job bodies must poll; nothing is ever forcibly interrupted.
package runtime
