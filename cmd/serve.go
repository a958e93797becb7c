package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/celltutor/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		api := server.New(server.Options{
			Builder:  a.builder,
			Runtime:  a.runtime,
			Registry: a.registry,
			Agents:   a.registry,
			Build:    cfg.Build,
			Window:   cfg.Runtime.Window,
			Logger:   slog.Default().With("component", "server"),
		})

		srv := &http.Server{
			Addr:        addr,
			Handler:     api.Handler(),
			ReadTimeout: 30 * time.Second,
			// Builds call the LLM several times; leave room beyond one
			// provider timeout.
			WriteTimeout: 4 * cfg.LLM.Timeout,
			IdleTimeout:  120 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			slog.Info("server listening", "addr", srv.Addr, "llm_provider", a.provider)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}
		case <-ctx.Done():
		}
		stop()

		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		api.Shutdown(shutdownCtx)
		slog.Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
}
