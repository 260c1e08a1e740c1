// Package parallel splits index loops across goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// Sequential returns a config that never spawns goroutines.
func Sequential() Config {
	return Config{}
}

// chunks returns the chunk size for n items, or 0 to run sequentially.
func (cfg Config) chunks(n int) int {
	if !cfg.Enabled || cfg.NumWorkers < 2 || n < 2*max(cfg.MinChunkSize, 1) {
		return 0
	}
	return max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	chunkSize := cfg.chunks(n)
	if chunkSize == 0 {
		for i := range n {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ForErr is For with a fallible body. Each chunk stops at its first error;
// the error with the lowest index is returned, so the result does not depend
// on scheduling.
func ForErr(n int, f func(i int) error, cfg Config) error {
	chunkSize := cfg.chunks(n)
	if chunkSize == 0 {
		for i := range n {
			if err := f(i); err != nil {
				return err
			}
		}
		return nil
	}

	nchunks := (n + chunkSize - 1) / chunkSize
	errs := make([]error, nchunks)
	var wg sync.WaitGroup
	for c := range nchunks {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			for i := c * chunkSize; i < min((c+1)*chunkSize, n); i++ {
				if err := f(i); err != nil {
					errs[c] = err
					return
				}
			}
		}(c)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
