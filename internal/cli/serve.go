package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/xiaot623/gogo/memproxy/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP proxy and the retention sweeper",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close resources: %v\n", err)
		}
	}()

	cfg := a.cfg
	a.logger.Info("starting memproxy",
		"version", Version,
		"port", cfg.HTTPPort,
		"database_driver", cfg.DatabaseDriver,
		"inference_base_url", cfg.InferenceBaseURL,
		"consistency", cfg.Consistency,
		"context_window", cfg.ContextWindowSize,
		"retention", cfg.RetentionAge,
	)

	server := httptransport.NewServer(a.svc, a.sweeper, a.metrics, cfg.RoutePrefix, a.logger)

	if err := a.sweeper.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		a.logger.Info("http server listening", "addr", addr)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down memproxy")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(server.Shutdown(shutdownCtx), a.sweeper.Stop(shutdownCtx))
	})

	return g.Wait()
}
