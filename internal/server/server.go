// Package server exposes the extraction pipeline over HTTP.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/submission-intake/internal/pipeline"
	"github.com/sells-group/submission-intake/internal/store"
)

// Extractor is the pipeline surface the handlers call.
type Extractor interface {
	Run(ctx context.Context, email pipeline.RawDocument, attachments []pipeline.RawDocument) (*pipeline.Output, error)
}

// Server holds the HTTP handler dependencies. Runs may be nil when audit
// persistence is disabled; the runs endpoints then return 404.
type Server struct {
	extractor      Extractor
	runs           store.Store
	maxUploadBytes int64
}

// New creates a Server.
func New(extractor Extractor, runs store.Store, maxUploadBytes int64) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &Server{
		extractor:      extractor,
		runs:           runs,
		maxUploadBytes: maxUploadBytes,
	}
}

// Router builds the chi router with CORS and standard middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/api/upload", s.handleUpload)
	if s.runs != nil {
		r.Get("/api/runs", s.handleListRuns)
		r.Get("/api/runs/{id}", s.handleGetRun)
	}
	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
