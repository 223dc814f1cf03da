package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/nhle/todoshare/internal/registry"
)

const shutdownTimeout = 5 * time.Second

// Server exposes a registry.Remote over HTTP and a websocket change feed.
type Server struct {
	backend  registry.Remote
	router   *mux.Router
	validate *validator.Validate
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// New builds the router for backend.
func New(backend registry.Remote, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)

	s := &Server{
		backend:  backend,
		router:   mux.NewRouter(),
		validate: v,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.With("component", "server"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.logRequests)

	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.health)

	api := r.PathPrefix("/api").Subrouter()
	api.Methods(http.MethodGet).Path("/lists").HandlerFunc(s.listLists)
	api.Methods(http.MethodPost).Path("/lists").HandlerFunc(s.createList)
	api.Methods(http.MethodGet).Path("/lists/{id}").HandlerFunc(s.getList)
	api.Methods(http.MethodPatch).Path("/lists/{id}").HandlerFunc(s.updateList)
	api.Methods(http.MethodGet).Path("/lists/{id}/tasks").HandlerFunc(s.listTasks)
	api.Methods(http.MethodPost).Path("/lists/{id}/tasks").HandlerFunc(s.createTask)
	api.Methods(http.MethodPatch).Path("/tasks/{id}").HandlerFunc(s.updateTask)
	api.Methods(http.MethodGet).Path("/realtime").HandlerFunc(s.feed)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.logger.Info("handled", "method", r.Method, "url", r.URL, "duration", m.Duration, "status", m.Code)
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
