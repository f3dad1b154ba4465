// Command summaryd is the reference streaming summarization backend.
package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"smart-summary/internal/app"
	"smart-summary/internal/httputil"
)

//go:embed example_text.md
var exampleText string

const shutdownTimeout = 10 * time.Second

func main() {
	deps, err := app.BuildServer()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, deps); err != nil {
		deps.Log.Error("summaryd stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, deps app.ServerDeps) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		deps.Log.Info("summaryd listening", "addr", srv.Addr, "llm_provider", deps.Config.LLMProvider, "store_provider", deps.Config.StoreProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		deps.Log.Info("summaryd shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newRouter(deps app.ServerDeps) http.Handler {
	r := httputil.NewRouter(deps.Log, deps.Config.RequestTimeout)

	r.Get("/", rootHandler())
	r.Get("/health", healthHandler())
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	r.Get("/example", exampleHandler(exampleText))
	r.Post("/summarize", summarizeHandler(deps))
	r.Post("/summarize/stream", streamHandler(deps))
	r.Post("/summarize/upload", uploadHandler(deps))
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	return r
}
