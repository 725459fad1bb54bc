// Package server exposes the upload pipeline and the document queries over
// HTTP.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"video-qa-go/internal/chatbees"
	"video-qa-go/internal/logger"
	"video-qa-go/internal/pipeline"
	"video-qa-go/internal/storage"
	"video-qa-go/internal/types"
)

// multipart parts above this size spill to disk while parsing
const formMemory = 32 << 20

// Runner runs one upload through the pipeline.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (types.PipelineResult, error)
}

// Stager places request bodies in the upload directory.
type Stager interface {
	Stage(originalName string, r io.Reader) (types.UploadedMedia, error)
	Discard(m types.UploadedMedia)
	Root() string
}

type Options struct {
	AccountID      string
	Collection     string
	PublicPrefix   string
	MaxUploadBytes int64
	// Gatherer backs /metrics; prometheus.DefaultGatherer when nil.
	Gatherer prometheus.Gatherer
}

type Server struct {
	pipeline Runner
	store    Stager
	querier  chatbees.Querier
	log      *logger.Logger
	opts     Options
	mux      *http.ServeMux
}

func New(p Runner, store Stager, q chatbees.Querier, log *logger.Logger, opts Options) *Server {
	if opts.PublicPrefix == "" {
		opts.PublicPrefix = "/uploads"
	}
	opts.PublicPrefix = strings.TrimRight(opts.PublicPrefix, "/")
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{pipeline: p, store: store, querier: q, log: log, opts: opts, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))

	s.mux.HandleFunc("POST /api/upload", s.handleUpload)
	s.mux.HandleFunc("POST /api/ask", s.handleAsk)
	s.mux.HandleFunc("POST /api/outline", s.handleOutline)
	s.mux.HandleFunc("POST /api/summary", s.handleSummary)
	s.mux.HandleFunc("GET /api/account", s.handleAccount)

	files := http.StripPrefix(s.opts.PublicPrefix+"/", http.FileServer(noListing{http.Dir(s.store.Root())}))
	s.mux.Handle("GET "+s.opts.PublicPrefix+"/", files)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := logger.RequestID(r)
	r.Header.Set(logger.RequestIDHeader, reqID)
	w.Header().Set(logger.RequestIDHeader, reqID)

	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(sw, r)

	if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
		return
	}
	s.log.WithRequest(r).
		WithField("status", sw.status).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("request served")
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

var errNotFound = os.ErrNotExist

// noListing hides directory indexes of the upload directory and the staging
// files of uploads still in progress.
type noListing struct{ fs http.FileSystem }

func (n noListing) Open(name string) (http.File, error) {
	if storage.IsStaging(name) {
		return nil, errNotFound
	}
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	if st, err := f.Stat(); err == nil && st.IsDir() {
		f.Close()
		return nil, errNotFound
	}
	return f, nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Stage   string `json:"stage,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}
