package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the lookup and resolve API",
		Long: `Starts a JSON API over the resolution store on the specified port.

Endpoints:
  GET  /api/records          all stored resolutions
  GET  /api/lookup?title=T   stored resolution for T
  POST /api/resolve          {"title": T} or {"titles": [...]}
  GET  /healthcheck`,
		Example: `  # Start server on default port 8888
  lccn serve

  # Start server on custom port with a SQLite store
  lccn serve --port 3000 --store-backend sqlite --store resolved.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			res, closeRejects, err := a.newResolver(store, true)
			if err != nil {
				return err
			}
			defer closeRejects()

			handler := handlers.New(store, res)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Resolver API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}
