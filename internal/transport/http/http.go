// Package http implements the HTTP/WebSocket transport for ovida.
//
// This transport exposes the REST API for synthesis, runs and rooms, the
// room WebSocket relay, the signed audio object route and the Swagger UI.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/nadzzz/ovida/internal/audio"
	"github.com/nadzzz/ovida/internal/dispatch"
	"github.com/nadzzz/ovida/internal/message"
	"github.com/nadzzz/ovida/internal/objectstore"
	"github.com/nadzzz/ovida/internal/room"
	"github.com/nadzzz/ovida/internal/run"
	"github.com/nadzzz/ovida/internal/story"
	"github.com/nadzzz/ovida/internal/transport"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Options configures the HTTP transport.
type Options struct {
	Port           int
	RateLimitRPM   int
	RateLimitBurst int

	// Hub serves room WebSockets.
	Hub *room.Hub

	// Signer and Objects serve /v1/audio/ for stores that keep audio in this
	// daemon's reach. Objects is nil when the store hands out its own URLs.
	Signer  *objectstore.Signer
	Objects objectstore.Downloader
}

// Transport implements transport.Transport over HTTP and WebSocket.
type Transport struct {
	opts    Options
	limiter *RateLimiter
	server  *http.Server
}

// New creates a new HTTP transport.
func New(opts Options) *Transport {
	return &Transport{
		opts:    opts,
		limiter: NewRateLimiter(opts.RateLimitRPM, opts.RateLimitBurst),
	}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler builds the route table for svc.
func (t *Transport) Handler(svc transport.Service) http.Handler {
	h := &handlers{svc: svc, hub: t.opts.Hub, signer: t.opts.Signer, objects: t.opts.Objects}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/synthesize", t.limiter.limit(h.synthesize))
	mux.HandleFunc("GET /v1/stories", h.listStories)

	mux.HandleFunc("POST /v1/runs", h.createRun)
	mux.HandleFunc("GET /v1/runs/{id}", h.getRun)
	mux.HandleFunc("POST /v1/runs/{id}/next", t.limiter.limit(h.nextBeat))
	mux.HandleFunc("GET /v1/runs/{id}/replay", h.replay)
	mux.HandleFunc("GET /v1/replays/{id}/verify", h.verifyReplay)

	mux.HandleFunc("POST /v1/rooms", h.createRoom)
	mux.HandleFunc("POST /v1/rooms/{id}/beats", t.limiter.limit(h.startLiveBeat))
	mux.HandleFunc("POST /v1/rooms/{id}/finalize", t.limiter.limit(h.finalizeLiveBeat))
	mux.HandleFunc("GET /v1/rooms/{id}/ws", h.roomSocket)

	mux.HandleFunc("GET "+objectstore.AudioPathPrefix+"{key...}", h.audioObject)

	// Swagger UI for the registered OpenAPI document.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// Listen starts the HTTP server and serves requests from svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.opts.Port),
		Handler:           t.Handler(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.opts.Port, "rate_limited", t.limiter.Enabled())

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response failed", "error", err)
	}
}

func errorBody(msg, code string) message.ErrorResponse {
	return message.ErrorResponse{Message: msg, Code: code}
}

// writeError maps err onto a status and the {message, code} error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"

	var pe *audio.ProviderError
	switch {
	case errors.Is(err, run.ErrNotFound), errors.Is(err, story.ErrNotFound),
		errors.Is(err, room.ErrNotFound), errors.Is(err, objectstore.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, dispatch.ErrInvalidRequest):
		status, code = http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, run.ErrBadReplay):
		status, code = http.StatusBadRequest, "INVALID_REPLAY"
	case errors.Is(err, dispatch.ErrUnexpectedStream):
		status, code = http.StatusInternalServerError, "UNEXPECTED_STREAM"
	case errors.As(err, &pe):
		status, code = http.StatusBadGateway, "PROVIDER_ERROR"
	}

	if status >= 500 {
		slog.Error("request errored", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody(err.Error(), code))
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json: "+err.Error(), "INVALID_BODY"))
		return false
	}
	return true
}
