package main

import (
	"context"
	"dropoff-route-service/internal/adapters/instancefile"
	"dropoff-route-service/internal/adapters/repositories"
	"dropoff-route-service/internal/config"
	"dropoff-route-service/internal/platform/metrics"
	"dropoff-route-service/internal/platform/obs"
	"dropoff-route-service/internal/services"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type flags struct {
	configPath string
	all        bool
	cfg        config.Config
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found (using environment variables)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(ctx).Execute(); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(ctx context.Context) *cobra.Command {
	f := &flags{cfg: config.Default()}

	cmd := &cobra.Command{
		Use:          "solver [instance names or .in files]",
		Short:        "Solve dropoff routing instances and record the best bounds",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return run(ctx, cfg, f.all, args)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", config.Get("CONFIG_FILE", ""), "YAML config file")
	fl.BoolVar(&f.all, "all", false, "solve every instance in the input directory")
	fl.StringVar(&f.cfg.Solver, "solver", f.cfg.Solver, "solver: exact, brute-force or warm-start")
	fl.IntVar(&f.cfg.Seeds, "seeds", f.cfg.Seeds, "random warm-start cycles per instance")
	fl.Float64Var(&f.cfg.TimeLimitSeconds, "time-limit", f.cfg.TimeLimitSeconds, "seconds of exact search per instance, -1 for unbounded")
	fl.IntVar(&f.cfg.MaxNodes, "max-nodes", f.cfg.MaxNodes, "branch-and-bound node limit, 0 for unbounded")
	fl.Int64Var(&f.cfg.RandomSeed, "random-seed", f.cfg.RandomSeed, "seed of the warm-start random walks")
	fl.BoolVarP(&f.cfg.Verbose, "verbose", "v", f.cfg.Verbose, "log solver progress")
	fl.IntVarP(&f.cfg.Parallel, "parallel", "p", f.cfg.Parallel, "instances solved concurrently")
	fl.BoolVar(&f.cfg.ReusePrevious, "reuse-previous", f.cfg.ReusePrevious, "seed the search with the existing .out file")
	fl.BoolVar(&f.cfg.ForceWrite, "force-write", f.cfg.ForceWrite, "write the .out file even without improvement")
	fl.BoolVar(&f.cfg.NoSkip, "no-skip", f.cfg.NoSkip, "solve instances whose bound is already optimal")
	fl.StringVar(&f.cfg.InputDir, "input-dir", f.cfg.InputDir, "directory of .in files")
	fl.StringVar(&f.cfg.OutputDir, "output-dir", f.cfg.OutputDir, "directory of .out files")
	fl.StringVar(&f.cfg.StoreDriver, "store", f.cfg.StoreDriver, "bound store: bolt, sqlite, postgres, redis or memory")
	fl.StringVar(&f.cfg.StoreDSN, "store-dsn", f.cfg.StoreDSN, "bound store path or URL")
	fl.StringVar(&f.cfg.MetricsFile, "metrics-file", f.cfg.MetricsFile, "write Prometheus textfile metrics here")

	return cmd
}

// loadConfig layers explicitly set flags over the file and environment.
func loadConfig(cmd *cobra.Command, f *flags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}

	fl := cmd.Flags()
	set := func(name string, apply func()) {
		if fl.Changed(name) {
			apply()
		}
	}
	set("solver", func() { cfg.Solver = f.cfg.Solver })
	set("seeds", func() { cfg.Seeds = f.cfg.Seeds })
	set("time-limit", func() { cfg.TimeLimitSeconds = f.cfg.TimeLimitSeconds })
	set("max-nodes", func() { cfg.MaxNodes = f.cfg.MaxNodes })
	set("random-seed", func() { cfg.RandomSeed = f.cfg.RandomSeed })
	set("verbose", func() { cfg.Verbose = f.cfg.Verbose })
	set("parallel", func() { cfg.Parallel = f.cfg.Parallel })
	set("reuse-previous", func() { cfg.ReusePrevious = f.cfg.ReusePrevious })
	set("force-write", func() { cfg.ForceWrite = f.cfg.ForceWrite })
	set("no-skip", func() { cfg.NoSkip = f.cfg.NoSkip })
	set("input-dir", func() { cfg.InputDir = f.cfg.InputDir })
	set("output-dir", func() { cfg.OutputDir = f.cfg.OutputDir })
	set("store", func() { cfg.StoreDriver = f.cfg.StoreDriver })
	set("store-dsn", func() { cfg.StoreDSN = f.cfg.StoreDSN })
	set("metrics-file", func() { cfg.MetricsFile = f.cfg.MetricsFile })

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config, all bool, args []string) error {
	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	} else if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	names, inputDir, err := resolveInstances(ctx, cfg.InputDir, all, args)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no instances to solve: pass names or --all")
	}

	kind, err := services.ParseSolverKind(cfg.Solver)
	if err != nil {
		return err
	}
	solver, err := services.NewSolver(kind)
	if err != nil {
		return err
	}

	store, err := repositories.OpenBoundStore(ctx, cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	repo := instancefile.NewDirectory(inputDir, cfg.OutputDir)

	runID := uuid.NewString()
	ctx = obs.WithRunID(ctx, runID)
	logger := obs.Logger(ctx)
	logger.WithFields(log.Fields{
		"instances": len(names),
		"solver":    kind,
		"store":     cfg.StoreDriver,
		"parallel":  cfg.Parallel,
	}).Info("run started")

	base := services.SolveInstanceRequest{
		Solver: solver,
		Solve: services.SolveOptions{
			Seeds:     cfg.Seeds,
			TimeLimit: cfg.TimeLimit(),
			MaxNodes:  cfg.MaxNodes,
			Rand:      rand.New(rand.NewSource(cfg.RandomSeed)),
			Verbose:   cfg.Verbose,
			Logger:    logger,
		},
		ReusePrevious: cfg.ReusePrevious,
		SkipOptimal:   !cfg.NoSkip,
		ForceWrite:    cfg.ForceWrite,
	}

	reports, batchErr := services.SolveBatch(ctx, names, cfg.Parallel, base, repo, store)

	metrics.RegisterDefault()
	failed := summarize(logger, reports)

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.WithError(err).Error("metrics export failed")
		}
	}

	if batchErr != nil {
		return batchErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d instances failed", failed, len(names))
	}
	return nil
}

// resolveInstances turns arguments into instance names. File arguments set
// the input directory to their own directory.
func resolveInstances(ctx context.Context, inputDir string, all bool, args []string) ([]string, string, error) {
	if all {
		names, err := instancefile.NewDirectory(inputDir, "").ListInstances(ctx)
		if err != nil {
			return nil, "", err
		}
		return names, inputDir, nil
	}

	names := make([]string, 0, len(args))
	dir := ""
	for _, arg := range args {
		if d := filepath.Dir(arg); d != "." || filepath.Ext(arg) == instancefile.InputExt {
			if dir != "" && dir != d {
				return nil, "", fmt.Errorf("instance files must share one directory: %s and %s", dir, d)
			}
			dir = d
		}
		names = append(names, instancefile.NameOf(arg))
	}
	if dir == "" {
		dir = inputDir
	}
	return names, dir, nil
}

func summarize(logger *log.Entry, reports []*services.InstanceReport) (failed int) {
	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i] == nil || reports[j] == nil {
			return reports[j] == nil && reports[i] != nil
		}
		return reports[i].Instance < reports[j].Instance
	})

	improved, optimal, skipped := 0, 0, 0
	for _, rep := range reports {
		if rep == nil {
			continue
		}
		switch {
		case rep.Err != nil:
			failed++
			metrics.ObserveSolve(rep.Instance, "error", rep.Duration, 0, false)
			logger.WithField("instance", rep.Instance).WithError(rep.Err).Error("instance failed")
		case rep.Skipped:
			skipped++
			metrics.ObserveSolve(rep.Instance, "skipped", rep.Duration, 0, false)
		default:
			if rep.Improved {
				improved++
			}
			if rep.Solution.Optimal() {
				optimal++
			}
			metrics.ObserveSolve(rep.Instance, rep.Solution.Status.String(), rep.Duration, rep.Damage, rep.Improved)
		}
	}

	logger.WithFields(log.Fields{
		"instances": len(reports),
		"improved":  improved,
		"optimal":   optimal,
		"skipped":   skipped,
		"failed":    failed,
	}).Info("run finished")
	return failed
}
