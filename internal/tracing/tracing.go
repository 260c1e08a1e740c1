// Package tracing integrates magnetic field lines and records their
// crossings of constant-φ planes (Poincaré sections).
//
// Field lines follow dx/ds = B/|B| in arc length s with a fixed-step
// fourth-order Runge–Kutta scheme. Start points are traced concurrently,
// each worker owning its own field instance.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/coilopt/coilopt/internal/field"
	"github.com/coilopt/coilopt/internal/geo"
)

// ErrInvalidInput reports bad start points or configuration.
var ErrInvalidInput = errors.New("invalid field-line input")

// StopReason says why a field line ended.
type StopReason string

const (
	StopLength    StopReason = "length"     // reached Config.Length
	StopMaxSteps  StopReason = "max_steps"  // reached Config.MaxSteps
	StopZeroField StopReason = "zero_field" // |B| vanished or was not finite
	StopBoundary  StopReason = "boundary"   // left the [RMin, RMax] × [−ZMax, ZMax] box
)

// Factory returns a fresh field instance. Fields are not safe for concurrent
// use, so every worker builds its own.
type Factory func() (field.Field, error)

// Config controls the integration.
type Config struct {
	Length   float64   // Arc length to trace (required)
	Step     float64   // RK4 step in arc length (default: Length/10000)
	MaxSteps int       // Step limit (default: 1,000,000)
	Phis     []float64 // Planes to record, radians in [0, 2π)
	RMin     float64   // Optional lower bound on R
	RMax     float64   // Optional upper bound on R (0: unbounded)
	ZMax     float64   // Optional bound on |Z| (0: unbounded)
	Keep     int       // Keep every Keep-th trajectory point (0: none)
	Workers  int       // Concurrent start points (default: 1)

	Logger *slog.Logger // default: slog.Default()
}

// Hit is one crossing of a φ plane.
type Hit struct {
	Plane int     // index into Config.Phis
	S     float64 // arc length at the crossing
	Point geo.Vec3
}

// Fieldline is the outcome of tracing one start point.
type Fieldline struct {
	Start      geo.Vec3
	Hits       []Hit
	Trajectory []geo.Vec3
	Length     float64
	Steps      int
	Stop       StopReason
}

// R returns the cylindrical radius of p.
func R(p geo.Vec3) float64 { return math.Hypot(p[0], p[1]) }

// ComputeFieldlines traces one field line from each (R0s[i], 0, Z0s[i]) in
// cylindrical coordinates at φ = 0. Results are indexed like the start
// points. The first error cancels the remaining work.
func ComputeFieldlines(ctx context.Context, factory Factory, R0s, Z0s []float64, cfg Config) ([]Fieldline, error) {
	if len(R0s) != len(Z0s) {
		return nil, fmt.Errorf("%w: %d radii for %d heights", ErrInvalidInput, len(R0s), len(Z0s))
	}
	if cfg.Length <= 0 {
		return nil, fmt.Errorf("%w: length must be positive, got %g", ErrInvalidInput, cfg.Length)
	}
	if cfg.Step == 0 {
		cfg.Step = cfg.Length / 10000
	}
	if cfg.Step < 0 {
		return nil, fmt.Errorf("%w: step must be positive, got %g", ErrInvalidInput, cfg.Step)
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = 1_000_000
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	workers := min(max(cfg.Workers, 1), max(len(R0s), 1))

	lines := make([]Fieldline, len(R0s))
	jobs := make(chan int)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range R0s {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for range workers {
		g.Go(func() error {
			f, err := factory()
			if err != nil {
				return fmt.Errorf("tracing: build field: %w", err)
			}
			for i := range jobs {
				line, err := trace(ctx, f, geo.Vec3{R0s[i], 0, Z0s[i]}, &cfg)
				if err != nil {
					return fmt.Errorf("tracing: line %d: %w", i, err)
				}
				lines[i] = line
				cfg.Logger.Debug("field line traced",
					slog.Int("line", i),
					slog.Int("steps", line.Steps),
					slog.Int("hits", len(line.Hits)),
					slog.String("stop", string(line.Stop)))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lines, nil
}

// direction returns B/|B| at p, or ok=false where the field vanishes.
func direction(f field.Field, p geo.Vec3) (geo.Vec3, bool, error) {
	f.SetPoints([]geo.Vec3{p})
	b, err := f.B()
	if err != nil {
		return geo.Vec3{}, false, err
	}
	n := b[0].Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return geo.Vec3{}, false, nil
	}
	return b[0].Scale(1 / n), true, nil
}

// rk4 advances p by one step of length h.
func rk4(f field.Field, p geo.Vec3, h float64) (geo.Vec3, bool, error) {
	k1, ok, err := direction(f, p)
	if err != nil || !ok {
		return p, ok, err
	}
	k2, ok, err := direction(f, p.Add(k1.Scale(h/2)))
	if err != nil || !ok {
		return p, ok, err
	}
	k3, ok, err := direction(f, p.Add(k2.Scale(h/2)))
	if err != nil || !ok {
		return p, ok, err
	}
	k4, ok, err := direction(f, p.Add(k3.Scale(h)))
	if err != nil || !ok {
		return p, ok, err
	}
	sum := k1.Add(k2.Scale(2)).Add(k3.Scale(2)).Add(k4)
	return p.Add(sum.Scale(h / 6)), true, nil
}

// wrap maps an angle difference into (−π, π].
func wrap(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

func trace(ctx context.Context, f field.Field, start geo.Vec3, cfg *Config) (Fieldline, error) {
	line := Fieldline{Start: start}
	if cfg.Keep > 0 {
		line.Trajectory = append(line.Trajectory, start)
	}
	p := start
	phi := math.Atan2(p[1], p[0]) // unwrapped toroidal angle
	for {
		switch {
		case line.Length >= cfg.Length:
			line.Stop = StopLength
			return line, nil
		case line.Steps >= cfg.MaxSteps:
			line.Stop = StopMaxSteps
			return line, nil
		case outside(p, cfg):
			line.Stop = StopBoundary
			return line, nil
		}
		if line.Steps%256 == 0 {
			if err := ctx.Err(); err != nil {
				return line, err
			}
		}

		h := min(cfg.Step, cfg.Length-line.Length)
		next, ok, err := rk4(f, p, h)
		if err != nil {
			return line, err
		}
		if !ok {
			line.Stop = StopZeroField
			return line, nil
		}
		nextPhi := phi + wrap(math.Atan2(next[1], next[0])-math.Atan2(p[1], p[0]))
		for k, plane := range cfg.Phis {
			for _, target := range crossings(phi, nextPhi, plane) {
				t := (target - phi) / (nextPhi - phi)
				line.Hits = append(line.Hits, Hit{
					Plane: k,
					S:     line.Length + t*h,
					Point: p.Add(next.Sub(p).Scale(t)),
				})
			}
		}

		p, phi = next, nextPhi
		line.Length += h
		line.Steps++
		if cfg.Keep > 0 && line.Steps%cfg.Keep == 0 {
			line.Trajectory = append(line.Trajectory, p)
		}
	}
}

// crossings returns the unwrapped angles plane + 2πk passed when moving
// from a to b, in order of traversal. b is included and a is not.
func crossings(a, b, plane float64) []float64 {
	var out []float64
	switch {
	case b > a:
		for k := math.Floor((a-plane)/(2*math.Pi)) + 1; plane+2*math.Pi*k <= b; k++ {
			out = append(out, plane+2*math.Pi*k)
		}
	case b < a:
		for k := math.Ceil((a-plane)/(2*math.Pi)) - 1; plane+2*math.Pi*k >= b; k-- {
			out = append(out, plane+2*math.Pi*k)
		}
	}
	return out
}

func outside(p geo.Vec3, cfg *Config) bool {
	r := R(p)
	if r < cfg.RMin {
		return true
	}
	if cfg.RMax > 0 && r > cfg.RMax {
		return true
	}
	return cfg.ZMax > 0 && math.Abs(p[2]) > cfg.ZMax
}
