package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hoylen/asyncmutex/rwlock"
	"github.com/hoylen/asyncmutex/scheduler"
)

type runOptions struct {
	configPath  string
	metricsAddr string
	logLevel    string
	cooperative bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "lockbench",
		Short:        "Drive a read/write lock with a described workload",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newRunCmd())
	return rootCmd
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workload file against one lock",
		Long: "Run every task group of a YAML workload against a single read/write lock and " +
			"report how long each group took. Lock metrics and status can be served over HTTP while it runs.",
		Example: "lockbench run --config workload.yaml --metrics-addr :9090",
		Args:    cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			if opts.configPath == "" {
				return errors.New("--config is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorkload(cmd.Context(), opts)
		},
	}
	addRunFlags(runCmd.Flags(), opts)
	return runCmd
}

func addRunFlags(fs *pflag.FlagSet, opts *runOptions) {
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to the .yaml workload")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "address for /metrics and /debug/lock, disabled if empty")
	fs.StringVarP(&opts.logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
	fs.BoolVar(&opts.cooperative, "cooperative", false, "run tasks on a cooperative scheduler instead of goroutines")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func runWorkload(ctx context.Context, opts *runOptions) error {
	logger, err := newLogger(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	config, err := loadConfig(opts.configPath)
	if err != nil {
		logger.Error("failed to load config", zap.Error(err), zap.String("path", opts.configPath))
		return err
	}

	r := &runner{
		clock:  clockwork.NewRealClock(),
		logger: logger,
	}
	lockOpts := []rwlock.OptionFunc{
		rwlock.WithLogger(logger.Named("lock")),
		rwlock.WithMetrics(rwlock.PrometheusMetrics("lockbench")),
	}
	if opts.cooperative {
		r.sched = scheduler.New(scheduler.WithLogger(logger.Named("scheduler")))
		lockOpts = append(lockOpts, rwlock.WithSuspender(r.sched))
	}
	r.lock = rwlock.New(lockOpts...)

	if opts.metricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.metricsAddr,
			Handler:           newRouter(r.lock, logger.Named("http")),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		shutdown := serve(srv, logger)
		defer shutdown()
	}

	logger.Info("starting workload",
		zap.String("config", opts.configPath),
		zap.Int("groups", len(config.Groups)),
		zap.Bool("cooperative", opts.cooperative),
	)
	if _, _, err := r.run(ctx, config); err != nil {
		logger.Error("workload failed", zap.Error(err))
		return err
	}
	return nil
}
