package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ozanturksever/segsync"
	"github.com/ozanturksever/segsync/klaviyo"
	"github.com/ozanturksever/segsync/snapshot"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the segment synchronization",
	Long: `Fetch the segment membership, emit lifecycle events for every joined or
departed member, and commit the updated snapshot.

By default a single cycle is run. With --interval the cycle repeats until
interrupted.

Example:
  segsync run --config segsync.json
  segsync run --interval 5m --metrics-addr :9090`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Duration("interval", 0, "Re-sync at this interval (0 = run once)")
	runCmd.Flags().String("metrics-addr", "", "Prometheus metrics HTTP address (empty = disabled)")

	viper.BindPFlag("interval", runCmd.Flags().Lookup("interval"))
	viper.BindPFlag("metrics_addr", runCmd.Flags().Lookup("metrics-addr"))
	viper.BindEnv("interval", "SEGSYNC_INTERVAL")
	viper.BindEnv("metrics_addr", "SEGSYNC_METRICS_ADDR")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := segsync.LoadConfigFromFile(cfgFile)
	if err != nil {
		// The only fatal error class: bad configuration exits non-zero.
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger()

	clientCfg := cfg.ClientConfig()
	clientCfg.Logger = logger.With("component", "klaviyo")
	client, err := klaviyo.NewClient(clientCfg)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	metrics := segsync.NewMetrics()
	store := snapshot.NewStore(cfg.CacheFile,
		snapshot.WithLogger(logger.With("component", "snapshot")))

	emitter := segsync.MultiEmitter{client}
	if cfg.NATS.IsConfigured() {
		nc, err := connectNATS(cfg)
		if err != nil {
			logger.Error("nats connect failed, event mirror disabled", "error", err)
		} else {
			defer nc.Drain()
			emitter = append(emitter, segsync.NewEventMirror(nc, segsync.EventMirrorConfig{
				SubjectPrefix: cfg.NATS.SubjectPrefix,
				SegmentID:     cfg.SegmentID,
				SegmentName:   cfg.SegmentName,
				Logger:        logger.With("component", "mirror"),
			}))
		}
	}

	reconciler := segsync.NewReconciler(store, emitter, segsync.ReconcilerConfig{
		Logger:  logger.With("component", "reconciler"),
		Metrics: metrics,
	})
	runner := segsync.NewRunner(client, reconciler, segsync.RunnerConfig{
		Logger:  logger.With("component", "runner"),
		Metrics: metrics,
	})

	if addr := viper.GetString("metrics_addr"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics listener stopped", "error", err)
			}
		}()
		logger.Info("serving metrics", "addr", addr)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	interval := viper.GetDuration("interval")
	if interval <= 0 {
		// Fetch and emit failures are logged inside the runner; they do not
		// change the exit code.
		runner.Run(ctx)
		return nil
	}

	logger.Info("starting periodic sync", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		runner.Run(ctx)
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

// connectNATS opens the mirror connection.
func connectNATS(cfg *segsync.FileConfig) (*nats.Conn, error) {
	opts := []nats.Option{nats.Name("segsync")}
	if cfg.NATS.Credentials != "" {
		opts = append(opts, nats.UserCredentials(cfg.NATS.Credentials))
	}
	return nats.Connect(strings.Join(cfg.NATS.Servers, ","), opts...)
}
