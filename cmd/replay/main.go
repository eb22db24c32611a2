package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/config"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/event"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/metrics"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/processing"
)

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:          "replay",
		Short:        "Rebuild the dashboard state from the mirrored event topic",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logging.BootstrapLogger(cfg.Log.Level)
			return run(cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a config file (default ./config.yaml)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logging.Log.Infof("Starting replay of topic '%s' in group '%s'...", cfg.Kafka.Topic, cfg.Kafka.GroupID)

	consumer, err := event.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)
	if err != nil {
		return err
	}
	defer consumer.Close()

	m := metrics.NewReplayMetrics(prometheus.DefaultRegisterer, "election", "replay")
	processor := processing.NewReplayProcessor(consumer, m)

	mainCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := processor.Run(mainCtx); err != nil {
			logging.Log.Errorf("Error during processor execution: %v", err)
		}
	}()

	// main blocks here, waiting for a shutdown signal
	select {
	case <-signalChan:
		logging.Log.Info("Shutdown signal received, stopping the replay...")
	case <-done:
	}
	cancel()
	<-done

	state, n := processor.State()
	logging.Log.Infof("Replay terminated after %d events: rice=%d scale=%d yes=%d no=%d",
		n, state.Votes.PartyA, state.Votes.PartyB, state.Referendum.Yes, state.Referendum.No)
	return nil
}
