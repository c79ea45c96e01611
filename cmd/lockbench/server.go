package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hoylen/asyncmutex/rwlock"
)

func newRouter(lock *rwlock.Lock, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/debug/lock", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(lock.Status()); err != nil {
			logger.Error("failed to write lock status", zap.Error(err))
		}
	})
	return r
}

// serve runs srv in the background. The returned function shuts it down
// gracefully and waits until it has stopped.
func serve(srv *http.Server, logger *zap.Logger) (shutdown func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("serving diagnostics", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		} else {
			logger.Info("server stopped")
		}
		<-done
	}
}
