// Tern runtime CLI - exercises the runtime core outside a compiled program
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ternlang/tern/manifest"
	"github.com/ternlang/tern/runtime"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	workers := flag.Int("workers", 0, "Worker count (overrides tern.toml)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ternrt [options] [dir]\n\n")
		fmt.Fprintf(os.Stderr, "Loads the tern.toml runtime profile from dir (default .) and runs a\n")
		fmt.Fprintf(os.Stderr, "self-check of the concurrency core: futures, combinators, channels,\n")
		fmt.Fprintf(os.Stderr, "and atomics under contention.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	dir := "."
	if flag.NArg() > 0 {
		dir = flag.Arg(0)
	}

	m, err := manifest.LoadOrDefault(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading profile: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		m.Runtime.Workers = *workers
	}
	if *verbose {
		fmt.Printf("Profile: %d workers, sweep every %s\n",
			m.Runtime.Workers, m.Runtime.SweepInterval())
	}

	if err := runtime.InitPool(m.Runtime.Workers); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting pool: %v\n", err)
		os.Exit(1)
	}
	defer runtime.ShutdownPool()

	reg := runtime.NewRegistry()
	sweeper := runtime.NewSweeper(reg, m.Runtime.SweepInterval())
	sweeper.Start()
	defer sweeper.Stop()

	start := time.Now()
	if err := selfCheck(reg, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Self-check FAILED: %v\n", err)
		os.Exit(1)
	}

	stats := sweeper.SweepNow()
	fmt.Printf("Self-check passed in %s (swept %d registry entries)\n",
		time.Since(start).Round(time.Millisecond), stats.Total)

	if *verbose {
		counts := reg.Stats()
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-12s %d\n", k, counts[k])
		}
	}
}

// selfCheck runs one pass over the public runtime surface. Every object it
// creates goes through the registry, the way compiled code would use it.
func selfCheck(reg *runtime.Registry, verbose bool) error {
	// Futures and combinators
	futs := make([]*runtime.Future, 5)
	for i := range futs {
		n := int64(i)
		fut, err := runtime.Spawn(func(*runtime.Future) (*runtime.Cell, error) {
			return runtime.NewInt(n * n), nil
		})
		if err != nil {
			return fmt.Errorf("spawn: %w", err)
		}
		reg.RegisterFuture(fut)
		futs[i] = fut
	}
	results, err := runtime.All(futs)
	if err != nil {
		return fmt.Errorf("all: %w", err)
	}
	for i, c := range results {
		if got := c.Int(); got != int64(i*i) {
			return fmt.Errorf("all: result[%d] = %d, want %d", i, got, i*i)
		}
		c.Release()
	}
	if verbose {
		fmt.Println("  futures: ok")
	}

	// Channel round trip
	ch := runtime.NewChannel(2)
	reg.RegisterChannel(ch)
	prodFut, err := runtime.Spawn(func(*runtime.Future) (*runtime.Cell, error) {
		for i := int64(0); i < 100; i++ {
			if err := ch.Send(runtime.NewInt(i)); err != nil {
				return nil, err
			}
		}
		ch.Close()
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("spawn producer: %w", err)
	}
	var sum int64
	for {
		c, ok := ch.Recv()
		if !ok {
			break
		}
		sum += c.Int()
		c.Release()
	}
	if sum != 4950 {
		return fmt.Errorf("channel: sum = %d, want 4950", sum)
	}
	if _, err := prodFut.Await(); err != nil {
		return fmt.Errorf("channel producer: %w", err)
	}
	if verbose {
		fmt.Println("  channels: ok")
	}

	// Atomics under contention
	counter := runtime.NewAtomicCell(0)
	reg.RegisterAtomic(counter)
	incFuts := make([]*runtime.Future, 4)
	for i := range incFuts {
		fut, err := runtime.Spawn(func(*runtime.Future) (*runtime.Cell, error) {
			for j := 0; j < 1000; j++ {
				counter.Inc()
			}
			return nil, nil
		})
		if err != nil {
			return fmt.Errorf("spawn incrementer: %w", err)
		}
		incFuts[i] = fut
	}
	if _, err := runtime.All(incFuts); err != nil {
		return fmt.Errorf("all incrementers: %w", err)
	}
	if got := counter.Load(); got != 4000 {
		return fmt.Errorf("atomic: counter = %d, want 4000", got)
	}
	if verbose {
		fmt.Println("  atomics: ok")
	}

	return nil
}
