package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/config"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/display"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
)

var (
	configPath string
	cfg        *config.Config
)

func main() {
	root := &cobra.Command{
		Use:          "dashboard",
		Short:        "Live client for the Bangladesh Election 2026 dashboard",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logging.BootstrapLogger(c.Log.Level)
			cfg = c
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default ./config.yaml)")
	root.AddCommand(newWatchCmd(), newVoteCmd(), newReferendumCmd(), newCandidatesCmd(), newInsightsCmd())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalChan
		logging.Log.Info("Shutting dashboard down...")
		cancel()
	}()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newRenderer() *display.Renderer {
	return display.NewRenderer(os.Stdout, isTerminal())
}
