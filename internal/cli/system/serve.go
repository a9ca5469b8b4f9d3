package system

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/habitlink/internal/api"
	"github.com/julianstephens/habitlink/internal/cli"
	"github.com/julianstephens/habitlink/internal/keyring"
	"github.com/julianstephens/habitlink/internal/logger"
)

type ServeCmd struct {
	Addr        string   `help:"Listen address." default:"127.0.0.1:7465" env:"HABITLINK_ADDR"`
	Origins     []string `help:"Allowed CORS origins." env:"HABITLINK_ALLOWED_ORIGINS"`
	Token       string   `help:"Bearer token for /api routes. Defaults to the token stored in the OS keyring." env:"HABITLINK_API_TOKEN"`
	SyncOnStart bool     `help:"Reconcile today before accepting requests." default:"true" negatable:""`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	engine, settings, err := ctx.Engine()
	if err != nil {
		return err
	}
	dir, err := ctx.SnapshotDir(settings)
	if err != nil {
		return err
	}

	token := c.Token
	if token == "" {
		stored, err := keyring.GetAPIToken()
		switch {
		case err == nil:
			token = stored
		case errors.Is(err, keyring.ErrNotFound), errors.Is(err, keyring.ErrKeyringUnavailable):
			logger.Warn("No API token configured, /api routes are unauthenticated")
		default:
			return err
		}
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if c.SyncOnStart {
		res, err := engine.RunToday(sigCtx)
		if err != nil {
			logger.Warn("Initial reconciliation failed", "error", err)
		} else {
			logger.Info("Initial reconciliation finished", "status", res.Status, "records", len(res.Records))
		}
	}

	handler := &api.Handler{
		Engine:          engine,
		SnapshotDir:     dir,
		MaxBackfillDays: settings.BackfillMaxDays,
		Token:           token,
		AllowedOrigins:  c.Origins,
	}

	server := &http.Server{
		Addr:         c.Addr,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("Serving on http://%s\n", c.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-sigCtx.Done():
	}

	fmt.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	fmt.Println("Server stopped")
	return nil
}
