package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/llxisdsh/fairlock/internal/soak"
)

type runOptions struct {
	cfg      soak.Config
	timeout  time.Duration
	logLevel string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "fairlock-soak",
		Short:        "Soak test for the fair reader-writer lock",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run goroutines through random read/write cycles on one lock",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSoak(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.cfg.Goroutines, "goroutines", runtime.GOMAXPROCS(0)*4, "number of concurrent goroutines")
	f.IntVar(&opts.cfg.Cycles, "cycles", 10000, "acquire/release cycles per goroutine")
	f.Float64Var(&opts.cfg.WriteRatio, "write-ratio", 0.2, "probability that a cycle takes the write lock")
	f.DurationVar(&opts.cfg.Hold, "hold", 0, "time each cycle holds the lock")
	f.IntVar(&opts.cfg.Keys, "keys", 0, "spread cycles over a lock group with this many keys (0: single lock)")
	f.Uint64Var(&opts.cfg.Seed, "seed", uint64(time.Now().UnixNano()), "random seed")
	f.DurationVar(&opts.timeout, "timeout", 0, "abort the run after this long (0: no limit)")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func runSoak(ctx context.Context, opts runOptions) error {
	log, err := newLogger(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	res, err := soak.Run(ctx, opts.cfg, log.With(zap.Uint64("seed", opts.cfg.Seed)))
	if err != nil {
		return fmt.Errorf("soak run: %w", err)
	}
	fmt.Printf("reads=%d writes=%d peak_readers=%d elapsed=%s\n",
		res.Reads, res.Writes, res.PeakReaders, res.Elapsed)
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
