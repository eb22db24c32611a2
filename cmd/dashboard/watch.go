package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/app"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/store"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/web"
)

func newWatchCmd() *cobra.Command {
	var serve bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live tallies and the countdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), serve)
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "also serve the dashboard JSON and metrics on http.addr")
	return cmd
}

func runWatch(ctx context.Context, serve bool) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.Log.Errorf("failed to shut down cleanly: %v", err)
		}
	}()

	if serve {
		srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: web.NewRouter(a, a.Registry)}
		go func() {
			logging.Log.Infof("Serving dashboard state on %s", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Log.Errorf("HTTP server failed: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	changed := make(chan struct{}, 1)
	unsubscribe := a.Store.Subscribe(func(store.State, store.Event) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	a.Start()

	r := newRenderer()
	redraw := isTerminal()
	draw := func() {
		if redraw {
			fmt.Fprint(os.Stdout, "\033[H\033[2J")
		}
		r.Dashboard(a.Dashboard())
	}
	draw()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	gaveUp := a.Realtime.Done()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-gaveUp:
			if err := a.Realtime.Err(); err != nil {
				logging.Log.Warnf("Live updates stopped: %v", err)
			}
			gaveUp = nil
		case <-changed:
			draw()
		case <-ticker.C:
			draw()
		}
	}
}
