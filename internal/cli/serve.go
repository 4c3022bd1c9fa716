package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"dormguide/internal/httpapi"
	"dormguide/internal/index"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	if err := a.manager.EnsureReady(); err != nil {
		a.logger.Warn("Index not ready at startup", "error", err)
	}

	if cfg.Watch.Enabled {
		w, err := index.NewWatcher(cfg.Corpus.DocsDir, cfg.Corpus.Extensions,
			time.Duration(cfg.Watch.DebounceMS)*time.Millisecond, a.manager)
		if err == nil {
			if err = w.Start(); err != nil {
				w.Stop()
			}
		}
		if err != nil {
			a.logger.Warn("Corpus watcher disabled", "error", err)
		} else {
			defer w.Stop()
		}
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	gin.SetMode(gin.ReleaseMode)
	srv := httpapi.NewServer(httpapi.NewHandler(a.guide), addr)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
