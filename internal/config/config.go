// Package config loads and validates run configuration files.
//
// A run file is YAML. Every field is optional: values missing from the file
// keep their Default() value.
//
//	coils:
//	  ncoils: 4
//	  order: 6
//	surface:
//	  nphi: 32
//	optimizer:
//	  method: lbfgs
//	  maxiter: 400
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coilopt/coilopt/internal/geo"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is a complete stage-two run description.
type Config struct {
	Coils     CoilsConfig     `yaml:"coils"`
	Surface   SurfaceConfig   `yaml:"surface"`
	Currents  CurrentsConfig  `yaml:"currents"`
	Penalties PenaltiesConfig `yaml:"penalties"`
	Filaments FilamentsConfig `yaml:"filaments"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Output    OutputConfig    `yaml:"output"`
}

// CoilsConfig describes the initial circular base coils.
type CoilsConfig struct {
	NCoils     int     `yaml:"ncoils"`     // unique coil shapes per half period
	R0         float64 `yaml:"R0"`         // major radius of the coil centres
	R1         float64 `yaml:"R1"`         // coil radius
	Order      int     `yaml:"order"`      // Fourier order per Cartesian component
	Quadpoints int     `yaml:"quadpoints"` // quadrature points per curve
}

// SurfaceConfig describes the target torus.
type SurfaceConfig struct {
	MajorRadius float64 `yaml:"major_radius"`
	MinorRadius float64 `yaml:"minor_radius"`
	NFP         int     `yaml:"nfp"`
	Stellsym    bool    `yaml:"stellsym"`
	Nphi        int     `yaml:"nphi"`
	Ntheta      int     `yaml:"ntheta"`
	Range       string  `yaml:"range"`
}

// CurrentsConfig sets the coil currents.
type CurrentsConfig struct {
	Value float64 `yaml:"value"` // initial current per base coil [A]
	// FixFirst fixes the first base current so the problem has no trivial
	// zero-current minimum. Ignored when Total is set.
	FixFirst bool `yaml:"fix_first"`
	// Total, when non-zero, fixes the sum of base currents: the last base
	// current becomes Total minus the others.
	Total float64 `yaml:"total"`
}

// PenaltiesConfig weights the geometric penalty terms. A zero weight drops
// the term.
type PenaltiesConfig struct {
	LengthWeight float64 `yaml:"length_weight"`
	// LengthTarget bounds the total coil length from above. Zero penalizes
	// each base curve's deviation from its initial length instead.
	LengthTarget float64 `yaml:"length_target"`

	DistanceWeight float64 `yaml:"distance_weight"`
	DistanceMin    float64 `yaml:"distance_min"`

	CurvatureWeight    float64 `yaml:"curvature_weight"`
	CurvatureThreshold float64 `yaml:"curvature_threshold"`
	CurvatureP         float64 `yaml:"curvature_p"`

	MSCWeight    float64 `yaml:"msc_weight"`
	MSCThreshold float64 `yaml:"msc_threshold"`
}

// FilamentsConfig replaces every base coil by a grid of filaments.
type FilamentsConfig struct {
	Enabled       bool    `yaml:"enabled"`
	NN            int     `yaml:"nn"`
	NB            int     `yaml:"nb"`
	GapN          float64 `yaml:"gap_n"`
	GapB          float64 `yaml:"gap_b"`
	RotationOrder int     `yaml:"rotation_order"` // negative disables rotation
}

// OptimizerConfig selects and tunes the minimizer.
type OptimizerConfig struct {
	Method     string  `yaml:"method"` // lbfgs, adam or sgd
	MaxIter    int     `yaml:"maxiter"`
	MaxCor     int     `yaml:"maxcor"`
	Tol        float64 `yaml:"tol"`
	LR         float64 `yaml:"lr"`
	Momentum   float64 `yaml:"momentum"`
	Scale      float64 `yaml:"scale"` // objective scale seen by the minimizer
	TaylorTest bool    `yaml:"taylor_test"`
}

// OutputConfig sets where results go.
type OutputConfig struct {
	Snapshot   string `yaml:"snapshot"`
	Store      string `yaml:"store"` // memory or sqlite
	SQLitePath string `yaml:"sqlite_path"`
}

// Default returns the two-coil, nfp = 2 configuration.
func Default() Config {
	return Config{
		Coils: CoilsConfig{
			NCoils:     2,
			R0:         1.0,
			R1:         0.5,
			Order:      5,
			Quadpoints: 75,
		},
		Surface: SurfaceConfig{
			MajorRadius: 1.0,
			MinorRadius: 0.2,
			NFP:         2,
			Stellsym:    true,
			Nphi:        16,
			Ntheta:      32,
			Range:       string(geo.RangeHalfPeriod),
		},
		Currents: CurrentsConfig{
			Value:    6.5e5,
			FixFirst: true,
		},
		Penalties: PenaltiesConfig{
			DistanceMin:        0.1,
			CurvatureThreshold: 5,
			CurvatureP:         2,
			MSCThreshold:       5,
		},
		Filaments: FilamentsConfig{
			NN:            2,
			NB:            2,
			GapN:          0.02,
			GapB:          0.04,
			RotationOrder: 1,
		},
		Optimizer: OptimizerConfig{
			Method:  "lbfgs",
			MaxIter: 400,
			MaxCor:  300,
			Tol:     1e-9,
			LR:      1e-3,
			Scale:   1e-4,
		},
		Output: OutputConfig{
			Store: "memory",
		},
	}
}

// Load reads a YAML run file on top of Default and validates the result.
func Load(path string) (Config, error) {
	//nolint:gosec // G304: config path comes from the user
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate reports invalid fields, joined into one error.
func (c Config) Validate() error {
	check := func(ok bool, format string, args ...any) error {
		if ok {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	checks := []error{
		check(c.Coils.NCoils >= 1, "coils.ncoils must be >= 1, got %d", c.Coils.NCoils),
		check(c.Coils.R0 > 0 && c.Coils.R1 > 0, "coils.R0 and coils.R1 must be positive"),
		check(c.Coils.Order >= 1, "coils.order must be >= 1, got %d", c.Coils.Order),
		check(c.Coils.Quadpoints >= 2*c.Coils.Order+1,
			"coils.quadpoints must be >= 2*order+1 = %d, got %d", 2*c.Coils.Order+1, c.Coils.Quadpoints),
		check(c.Surface.MajorRadius > c.Surface.MinorRadius && c.Surface.MinorRadius > 0,
			"surface radii must satisfy major > minor > 0"),
		check(c.Surface.NFP >= 1, "surface.nfp must be >= 1, got %d", c.Surface.NFP),
		check(c.Surface.Nphi >= 1 && c.Surface.Ntheta >= 1, "surface.nphi and surface.ntheta must be >= 1"),
		check(c.Penalties.LengthWeight >= 0 && c.Penalties.DistanceWeight >= 0 &&
			c.Penalties.CurvatureWeight >= 0 && c.Penalties.MSCWeight >= 0, "penalty weights must be >= 0"),
		check(c.Penalties.CurvatureP >= 1, "penalties.curvature_p must be >= 1, got %g", c.Penalties.CurvatureP),
		check(!c.Filaments.Enabled || (c.Filaments.NN >= 1 && c.Filaments.NB >= 1),
			"filaments.nn and filaments.nb must be >= 1"),
		check(c.Optimizer.MaxIter >= 1, "optimizer.maxiter must be >= 1, got %d", c.Optimizer.MaxIter),
		check(c.Optimizer.Scale > 0, "optimizer.scale must be positive, got %g", c.Optimizer.Scale),
	}
	if err := errors.Join(checks...); err != nil {
		return err
	}
	if _, err := geo.ParseRange(c.Surface.Range); err != nil {
		return fmt.Errorf("%w: surface.range: %v", ErrInvalidConfig, err)
	}
	switch c.Optimizer.Method {
	case "lbfgs", "adam", "sgd":
	default:
		return fmt.Errorf("%w: optimizer.method must be lbfgs, adam or sgd, got %q", ErrInvalidConfig, c.Optimizer.Method)
	}
	switch c.Output.Store {
	case "", "memory":
	case "sqlite":
		if c.Output.SQLitePath == "" {
			return fmt.Errorf("%w: output.sqlite_path is required for the sqlite store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: output.store must be memory or sqlite, got %q", ErrInvalidConfig, c.Output.Store)
	}
	return nil
}
