package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/coilopt/coilopt/internal/config"
	"github.com/coilopt/coilopt/internal/optim"
	"github.com/coilopt/coilopt/internal/serialization"
	"github.com/coilopt/coilopt/internal/stage2"
	"github.com/coilopt/coilopt/internal/storage"
)

type optimizeOptions struct {
	method  string
	maxIter int
	output  string
	init    string
	name    string
	taylor  bool
}

func newOptimizeCmd(g *globals) *cobra.Command {
	opts := &optimizeOptions{}
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Run a stage-two coil optimization",
		Long: `Build the problem from the run file, minimize the objective and write the
final coil dofs as a .coil snapshot. Every major iteration is recorded in
the run history store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("method") {
				cfg.Optimizer.Method = opts.method
			}
			if cmd.Flags().Changed("maxiter") {
				cfg.Optimizer.MaxIter = opts.maxIter
			}
			if cmd.Flags().Changed("output") {
				cfg.Output.Snapshot = opts.output
			}
			if opts.taylor {
				cfg.Optimizer.TaylorTest = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runOptimize(cmd, g.logger, cfg, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.method, "method", "m", "lbfgs", "Minimizer: lbfgs, adam or sgd")
	cmd.Flags().IntVar(&opts.maxIter, "maxiter", 400, "Maximum number of iterations")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Snapshot file for the result")
	cmd.Flags().StringVar(&opts.init, "init", "", "Start from this snapshot")
	cmd.Flags().StringVar(&opts.name, "name", "", "Run name recorded in the history")
	cmd.Flags().BoolVar(&opts.taylor, "taylor", false, "Run a Taylor test before optimizing")
	return cmd
}

func runOptimize(cmd *cobra.Command, logger *slog.Logger, cfg config.Config, opts *optimizeOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	snap, err := readInit(opts.init)
	if err != nil {
		return err
	}
	setup, err := build(cfg, snap)
	if err != nil {
		return err
	}
	problem := optim.NewProblem(setup.Objective, cfg.Optimizer.Scale)

	before, err := setup.Report()
	if err != nil {
		return fmt.Errorf("initial evaluation: %w", err)
	}
	logReport(logger, "initial state", before)

	if cfg.Optimizer.TaylorTest {
		res, err := taylorAlongRandom(problem, 1)
		if err != nil {
			return err
		}
		logger.Info("taylor test", slog.Bool("second_order", res.SecondOrder(3, 1e-11)))
		fmt.Fprint(cmd.OutOrStdout(), res.String())
	}

	store, closeStore, err := openStore(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	run, err := store.CreateRun(ctx, storage.Run{
		Name:   opts.name,
		Method: cfg.Optimizer.Method,
		Dim:    problem.Dim(),
		Scale:  problem.Scale(),
		Params: runParams(cfg),
	})
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	logger.Info("run started", slog.String("run", run.ID), slog.Int("dofs", problem.Dim()))

	recorder := storage.NewRecorder(ctx, store, run.ID, problem.Scale())
	minimizer := newMinimizer(cfg.Optimizer, logger, recorder)
	res, runErr := minimizer.Minimize(ctx, problem, problem.X0())

	result := storage.RunResult{Status: storage.RunFinished}
	if res != nil {
		result.FinalJ = res.J
		result.Iterations = res.Iterations
		result.Message = res.Status.String()
	}
	if runErr != nil {
		result.Status = storage.RunFailed
		result.Message = runErr.Error()
	}
	// Record the outcome even when the run was interrupted.
	if err := store.FinishRun(context.WithoutCancel(ctx), run.ID, result); err != nil {
		return errors.Join(runErr, fmt.Errorf("finish run: %w", err))
	}
	if res == nil {
		return runErr
	}

	after, err := setup.Report()
	if err != nil {
		return errors.Join(runErr, fmt.Errorf("final evaluation: %w", err))
	}
	logReport(logger, "final state", after)

	if cfg.Output.Snapshot != "" {
		out := serialization.Capture(setup.Objective)
		out.Objective = &res.J
		out.RunID = run.ID
		out.Metadata = map[string]string{
			"method": cfg.Optimizer.Method,
			"status": res.Status.String(),
		}
		if err := serialization.WriteSnapshot(cfg.Output.Snapshot, out); err != nil {
			return errors.Join(runErr, err)
		}
		logger.Info("snapshot written", slog.String("path", cfg.Output.Snapshot))
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "run       %s\n", run.ID)
	fmt.Fprintf(w, "status    %s after %s iterations, %s evaluations in %s\n",
		res.Status, humanize.Comma(int64(res.Iterations)), humanize.Comma(int64(res.Evaluations)), res.Runtime.Round(time.Millisecond))
	fmt.Fprintf(w, "J         %.6e -> %.6e\n", before.J, after.J)
	fmt.Fprintf(w, "<|B·n|>   %.3e -> %.3e (max %.3e)\n", before.MeanBn, after.MeanBn, after.MaxBn)
	for i, a := range after.CurrentsA {
		fmt.Fprintf(w, "coil %-4d %s, length %.4f\n", i, humanize.SIWithDigits(a, 4, "A"), after.Lengths[i])
	}
	return runErr
}

// newMinimizer selects the minimizer named by cfg.Method.
func newMinimizer(cfg config.OptimizerConfig, logger *slog.Logger, observer optim.Observer) optim.Minimizer {
	switch cfg.Method {
	case "adam":
		return optim.NewDescent(optim.NewAdam(optim.AdamConfig{LR: cfg.LR}), optim.DescentConfig{
			MaxIterations: cfg.MaxIter,
			Logger:        logger,
			Observer:      observer,
		})
	case "sgd":
		return optim.NewDescent(optim.NewSGD(optim.SGDConfig{LR: cfg.LR, Momentum: cfg.Momentum}), optim.DescentConfig{
			MaxIterations: cfg.MaxIter,
			Logger:        logger,
			Observer:      observer,
		})
	default:
		return optim.NewLBFGS(optim.LBFGSConfig{
			MaxIterations:     cfg.MaxIter,
			Store:             cfg.MaxCor,
			FunctionTolerance: cfg.Tol,
			Logger:            logger,
			Observer:          observer,
		})
	}
}

// taylorAlongRandom runs a Taylor test at the current dofs along a
// reproducible uniform random direction.
func taylorAlongRandom(p *optim.Problem, seed int64) (*optim.TaylorResult, error) {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // G404: reproducible direction
	x := p.X0()
	h := make([]float64, len(x))
	for i := range h {
		h[i] = rng.Float64()
	}
	return optim.TaylorTest(p, x, h, nil)
}

func runParams(cfg config.Config) map[string]string {
	return map[string]string{
		"ncoils":    strconv.Itoa(cfg.Coils.NCoils),
		"order":     strconv.Itoa(cfg.Coils.Order),
		"nfp":       strconv.Itoa(cfg.Surface.NFP),
		"stellsym":  strconv.FormatBool(cfg.Surface.Stellsym),
		"current":   strconv.FormatFloat(cfg.Currents.Value, 'g', -1, 64),
		"filaments": strconv.FormatBool(cfg.Filaments.Enabled),
		"maxiter":   strconv.Itoa(cfg.Optimizer.MaxIter),
	}
}

func logReport(logger *slog.Logger, msg string, r stage2.Report) {
	logger.Info(msg,
		slog.Float64("J", r.J),
		slog.Float64("Jf", r.Flux),
		slog.Float64("mean_Bn", r.MeanBn),
		slog.Float64("max_Bn", r.MaxBn),
		slog.Float64("min_dist", r.MinDist),
		slog.Int("coils", r.NumCoils),
		slog.Int("dofs", r.NumDofs))
}
