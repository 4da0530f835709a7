// Package server exposes the HTTP surface: the LINE webhook callback, the
// signed ephemeral image endpoint, health, and metrics.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chia-ai0924/line-gpt-chatbot/pkg/bus"
	"github.com/chia-ai0924/line-gpt-chatbot/pkg/line"
	"github.com/chia-ai0924/line-gpt-chatbot/pkg/mediastore"
)

type Handlers struct {
	line  *line.Client
	bus   *bus.MessageBus
	store *mediastore.Store
}

func NewHandlers(lineClient *line.Client, mb *bus.MessageBus, store *mediastore.Store) *Handlers {
	return &Handlers{line: lineClient, bus: mb, store: store}
}

// NewMux returns the HTTP handler with all routes.
func NewMux(h *Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /callback", h.HandleCallback)
	mux.HandleFunc("GET /image/{id}", h.HandleImage)
	mux.HandleFunc("GET /healthz", h.HandleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// HandleCallback verifies the webhook signature, publishes the supported
// events onto the bus, and acknowledges immediately. Processing happens in
// the pipeline workers; LINE only needs the 200.
func (h *Handlers) HandleCallback(w http.ResponseWriter, r *http.Request) {
	events, err := h.line.ParseWebhook(r)
	if err != nil {
		if errors.Is(err, line.ErrBadSignature) {
			slog.Warn("webhook signature rejected", slog.String("remote", r.RemoteAddr))
			http.Error(w, "bad signature", http.StatusBadRequest)
			return
		}
		slog.Error("webhook parse failed", slog.Any("err", err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	for _, ev := range events {
		if err := h.bus.PublishEvent(r.Context(), ev); err != nil {
			slog.Error("publish event failed", slog.Any("err", err))
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

// HandleImage serves a stored object when the auth token matches. The error
// bodies are deliberately uniform: a denied request learns nothing beyond
// its own status code, and an expired object is indistinguishable from one
// that never existed.
func (h *Handlers) HandleImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	presented := r.URL.Query().Get("auth")

	payload, err := h.store.Get(id, presented)
	switch {
	case errors.Is(err, mediastore.ErrAccessDenied):
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	case errors.Is(err, mediastore.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
		return
	case err != nil:
		slog.Error("image read failed", slog.String("id", id), slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(payload)
}

func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

// Start runs the HTTP server and shuts down gracefully on context
// cancellation.
func Start(ctx context.Context, addr string, h *Handlers) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewMux(h),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	slog.Info("http server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
