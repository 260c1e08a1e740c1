// Package commands provides the coilopt CLI commands.
package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coilopt/coilopt/internal/config"
	"github.com/coilopt/coilopt/internal/serialization"
	"github.com/coilopt/coilopt/internal/stage2"
	"github.com/coilopt/coilopt/internal/storage"
)

// globals are the persistent flags shared by every command.
type globals struct {
	configPath string
	logLevel   string
	logger     *slog.Logger

	// Overrides applied on top of the config file when set.
	store  string
	sqlite string
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "coilopt",
		Short: "Stellarator coil shape and current optimization",
		Long: `coilopt optimizes the shapes and currents of stellarator coils so that
their magnetic field is tangent to a target surface.

Problems are described by a YAML run file (see --config). Results are
written as .coil snapshots and run history is recorded in a store.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLevel(g.logLevel)
			if err != nil {
				return err
			}
			g.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(g.logger)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML run file (default: built-in two-coil problem)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&g.store, "store", "", "Run history store: memory or sqlite")
	root.PersistentFlags().StringVar(&g.sqlite, "sqlite", "", "SQLite database path for --store sqlite")

	root.AddCommand(
		newOptimizeCmd(g),
		newTaylorCmd(g),
		newFieldlinesCmd(g),
		newHistoryCmd(g),
		newVersionCmd(version),
	)
	return root
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "coilopt %s (snapshot format v%d)\n", version, serialization.FormatVersion)
		},
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid --log-level %q: %w", s, err)
	}
	return level, nil
}

// loadConfig reads --config, or the defaults, and applies the global
// overrides.
func (g *globals) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.Load(g.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if g.store != "" {
		cfg.Output.Store = g.store
	}
	if g.sqlite != "" {
		cfg.Output.SQLitePath = g.sqlite
	}
	return cfg, cfg.Validate()
}

// readInit reads a starting snapshot, or returns nil for an empty path.
func readInit(path string) (*serialization.Snapshot, error) {
	if path == "" {
		return nil, nil
	}
	snap, err := serialization.ReadSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("read initial snapshot: %w", err)
	}
	return snap, nil
}

// build assembles the problem and restores snap into it when given.
func build(cfg config.Config, snap *serialization.Snapshot) (*stage2.Setup, error) {
	s, err := stage2.Build(cfg)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		if err := snap.Apply(s.Objective); err != nil {
			return nil, fmt.Errorf("apply snapshot: %w", err)
		}
	}
	return s, nil
}

// openStore opens and initializes the configured store. The returned
// function closes it.
func openStore(cmd *cobra.Command, cfg config.Config) (storage.Store, func(), error) {
	store, err := storage.NewStore(cfg.Output.Store, cfg.Output.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Init(cmd.Context()); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, nil, fmt.Errorf("init store: %w", err)
	}
	return store, func() { _ = storage.CloseIfSupported(store) }, nil
}
