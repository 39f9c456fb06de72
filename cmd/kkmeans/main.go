// Command kkmeans clusters a dataset of labeled feature vectors with kernel
// k-means and writes "<key> <cluster>" assignments.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/internal/job"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "kkmeans: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kkmeans",
		Short: "Cluster labeled feature vectors with kernel k-means",
		Long: `kkmeans reads lines of the form "<key> <v1> <v2> ... <vD>", assigns every
item to one of N clusters using kernel k-means with the kernel
1 - |a-b|^2 / (|a-b|^2 + c), and writes "<key> <cluster>" lines.

Labels start from a stable hash of each key and are improved epoch by epoch
until no label changes.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "%v", err)
	})

	f := cmd.Flags()
	f.StringP("input", "i", "", "input dataset path (default stdin)")
	f.IntP("clusters", "n", 0, "number of clusters")
	f.StringP("output", "o", "", "output path for the file sink (default stdout)")
	f.Float64P("kernel-param", "c", 0, "kernel smoothing parameter c >= 0")
	f.String("config", "", "path to a YAML config file")
	f.Int("max-epochs", 0, "stop after this many epochs (0 runs until stable)")
	f.Int("workers", 0, "goroutines for the pairwise similarity pass")
	f.Bool("strict-dims", false, "reject datasets whose vectors differ in length")
	f.StringSlice("sink", nil, "result sinks: file, redis, postgres, kafka (repeatable)")
	f.Bool("metrics", false, "serve Prometheus metrics and /healthz, /readyz while clustering")
	f.Bool("trace", false, "log the span tree of the run")
	f.String("log-level", "", "log level: debug, info, warn, error")
	f.String("log-format", "", "log format: text or json")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.NewRegistry())
	tracker := health.NewTracker()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, m, map[string]http.Handler{
			"/healthz": tracker.LiveHandler(),
			"/readyz":  tracker.ReadyHandler(),
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", "error", err)
			}
		}()
	}

	sinks, err := sink.Open(cfg, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			slog.Error("closing sinks failed", "error", err)
		}
	}()

	for name, probe := range sinks.Probes() {
		tracker.Register(name, probe)
	}

	_, err = job.New(cfg, sinks, m).WithTracker(tracker).Run(ctx)
	return err
}

// loadConfig layers defaults, the config file, KKM_* variables, and finally
// explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	f := cmd.Flags()
	path, _ := f.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if f.Changed("input") {
		cfg.Input.Path, _ = f.GetString("input")
	}
	if f.Changed("clusters") {
		cfg.Clustering.Clusters, _ = f.GetInt("clusters")
	}
	if f.Changed("output") {
		cfg.Output.Path, _ = f.GetString("output")
	}
	if f.Changed("kernel-param") {
		cfg.Clustering.KernelParam, _ = f.GetFloat64("kernel-param")
	}
	if f.Changed("max-epochs") {
		cfg.Clustering.MaxEpochs, _ = f.GetInt("max-epochs")
	}
	if f.Changed("workers") {
		cfg.Clustering.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("strict-dims") {
		cfg.Input.StrictDimensions, _ = f.GetBool("strict-dims")
	}
	if f.Changed("sink") {
		cfg.Output.Sinks, _ = f.GetStringSlice("sink")
	}
	if f.Changed("metrics") {
		cfg.Metrics.Enabled, _ = f.GetBool("metrics")
	}
	if f.Changed("trace") {
		cfg.Tracing.Enabled, _ = f.GetBool("trace")
	}
	if f.Changed("log-level") {
		cfg.Logging.Level, _ = f.GetString("log-level")
	}
	if f.Changed("log-format") {
		cfg.Logging.Format, _ = f.GetString("log-format")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
