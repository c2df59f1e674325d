package main

import (
	"context"
	"errors"
	"expvar"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prepcore/internal/adapters/api"
	"prepcore/internal/core"
)

type slogLogger struct {
	inner *slog.Logger
}

func (l slogLogger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l slogLogger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l slogLogger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l slogLogger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	addr := os.Getenv("PREPCORE_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	engine := core.NewDefaultRulesEngine()
	store, err := core.OpenPersistentStore(engine)
	if err != nil {
		logger.Error("open persistent store", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, err := core.OpenBlobStore(ctx)
	if err != nil {
		logger.Error("open blob store", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	metrics, err := core.NewPrometheusMetricsRecorder(registry)
	if err != nil {
		logger.Error("register metrics", "error", err)
		os.Exit(1)
	}

	svc := core.NewService(store,
		core.WithLogger(slogLogger{inner: logger}),
		core.WithMetricsRecorder(metrics),
		core.WithTracer(core.NewTraceLog(os.Stdout)),
	)

	exporter := api.NewWorker(svc, blobs, nil)
	exporter.Start()

	handler := api.NewHandler(svc)
	handler.Blobs = blobs
	handler.Exports = exporter

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", handler)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	if err := exporter.Stop(shutdownCtx); err != nil {
		logger.Error("stop exporter", "error", err)
	}
}
