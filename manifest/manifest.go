// Package manifest handles tern.toml runtime profiles.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Default runtime profile values, applied wherever tern.toml is silent.
const (
	DefaultWorkers         = 4
	DefaultSweepIntervalMS = 30_000
	DefaultSnapshotDepth   = 64
)

// Manifest represents a tern.toml runtime profile.
type Manifest struct {
	Project Project `toml:"project"`
	Runtime Runtime `toml:"runtime"`

	// Dir is the directory containing the tern.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Runtime configures the concurrency core.
type Runtime struct {
	Workers         int   `toml:"workers"`
	SweepIntervalMS int64 `toml:"sweep-interval-ms"`
	SnapshotDepth   int   `toml:"snapshot-depth"`
}

// SweepInterval returns the registry sweep interval as a duration.
func (r Runtime) SweepInterval() time.Duration {
	return time.Duration(r.SweepIntervalMS) * time.Millisecond
}

// Default returns a manifest carrying only the default profile.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

// Load parses a tern.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "tern.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid profile in %s: %w", path, err)
	}
	return &m, nil
}

// LoadOrDefault behaves like Load, except a missing tern.toml yields the
// default profile rather than an error.
func LoadOrDefault(dir string) (*Manifest, error) {
	m, err := Load(dir)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return m, err
}

// FindAndLoad walks up from startDir to find a tern.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "tern.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) applyDefaults() {
	if m.Runtime.Workers == 0 {
		m.Runtime.Workers = DefaultWorkers
	}
	if m.Runtime.SweepIntervalMS == 0 {
		m.Runtime.SweepIntervalMS = DefaultSweepIntervalMS
	}
	if m.Runtime.SnapshotDepth == 0 {
		m.Runtime.SnapshotDepth = DefaultSnapshotDepth
	}
}

func (m *Manifest) validate() error {
	if m.Runtime.Workers < 0 {
		return fmt.Errorf("runtime.workers must not be negative (got %d)", m.Runtime.Workers)
	}
	if m.Runtime.SweepIntervalMS < 0 {
		return fmt.Errorf("runtime.sweep-interval-ms must not be negative (got %d)", m.Runtime.SweepIntervalMS)
	}
	if m.Runtime.SnapshotDepth < 0 {
		return fmt.Errorf("runtime.snapshot-depth must not be negative (got %d)", m.Runtime.SnapshotDepth)
	}
	return nil
}
