package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/orderbridge/pkg/client"
	"github.com/Sternrassler/orderbridge/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Sync changed orders periodically and serve /health, /ready and /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			c, rdb, cleanup, err := a.newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			syncCtx, stopSync := context.WithCancel(ctx)
			defer stopSync()
			if a.cfg.SyncInterval > 0 {
				go newSyncer(c, a.cfg.SyncInterval, a.log.With().Str("component", "sync").Logger()).run(syncCtx)
			} else {
				a.log.Info().Msg("Order sync disabled")
			}

			srv := &http.Server{
				Addr:              a.cfg.ListenAddr,
				Handler:           newServeMux(c, rdb),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", srv.Addr).Msg("Starting server")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server failed: %w", err)
			case <-ctx.Done():
				a.log.Info().Msg("Received signal, shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&a.cfg.ListenAddr, "listen", a.cfg.ListenAddr, "listen address")
	cmd.Flags().DurationVar(&a.cfg.SyncInterval, "sync-interval", a.cfg.SyncInterval, "changed-orders sync interval (0 disables)")

	return cmd
}

func newServeMux(c *client.Client, rdb *redis.Client) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler(c))
	mux.HandleFunc("/ready", readyHandler(rdb))
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// healthStatus is the /health response body.
type healthStatus struct {
	Status              string     `json:"status"`
	LastNetworkActivity *time.Time `json:"lastNetworkActivity,omitempty"`
}

func healthHandler(c *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{Status: "ok"}
		if last := c.LastNetworkActivity(); !last.IsZero() {
			status.LastNetworkActivity = &last
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}

// readyHandler reports 503 while the configured Redis is unreachable. Without
// Redis the server is always ready.
func readyHandler(rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rdb != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
