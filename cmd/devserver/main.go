package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/config"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/devserver"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/simulation"
)

func main() {
	var (
		configPath string
		addr       string
		seedPath   string
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:          "devserver",
		Short:        "Mock election backend with REST endpoints and live pushes",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logging.BootstrapLogger(cfg.Log.Level)
			return run(cfg, addr, seedPath, interval)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a config file (default ./config.yaml)")
	cmd.Flags().StringVar(&addr, "addr", ":5002", "listen address")
	cmd.Flags().StringVar(&seedPath, "seed", "", "YAML fixture with candidates, insights and voters")
	cmd.Flags().DurationVar(&interval, "simulate", 2*time.Second, "interval between simulated votes, 0 disables")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, addr, seedPath string, interval time.Duration) error {
	seed, err := devserver.LoadSeed(seedPath)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv := devserver.New(seed, cfg.Election.Target)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Router()}

	mainCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	go srv.Run(mainCtx)

	if interval > 0 {
		sim := simulation.New(srv.Election(), srv.Hub(), interval)
		go func() {
			if err := sim.Run(mainCtx); err != nil {
				logging.Log.Errorf("Error while running simulator: %v", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logging.Log.Infof("Dev server listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// main now hangs here, waiting for a shutdown signal
	select {
	case <-signalChan:
		logging.Log.Info("Shutdown signal received, stopping the dev server...")
	case err := <-serveErr:
		return err
	}

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logging.Log.Info("Dev server terminated")
	return nil
}
