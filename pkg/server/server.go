// Package server exposes the listening-test converter over HTTP and MCP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/coolbeans/listenconv/pkg/extract"
	"github.com/coolbeans/listenconv/pkg/library"
	"github.com/coolbeans/listenconv/pkg/logger"
	"github.com/coolbeans/listenconv/pkg/pdftext"
	"github.com/coolbeans/listenconv/pkg/types"
	"github.com/coolbeans/listenconv/pkg/validate"
)

const (
	defaultMaxBodyBytes = 10 << 20
	requestIDHeader     = "X-Request-ID"
	shutdownTimeout     = 10 * time.Second
)

// Config wires the server's collaborators. Library may be nil, in which case
// the /api/v1/tests routes answer 503.
type Config struct {
	Converter    *extract.Converter
	Extractor    *pdftext.Extractor
	Library      *library.Library
	Logger       *logger.Logger
	MaxBodyBytes int64
}

// Server serves conversion requests.
type Server struct {
	converter    *extract.Converter
	extractor    *pdftext.Extractor
	lib          *library.Library
	logger       *logger.Logger
	maxBodyBytes int64
}

// New creates a server, filling defaults for missing collaborators.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Converter == nil {
		cfg.Converter = extract.NewConverter(extract.Options{Logger: cfg.Logger})
	}
	if cfg.Extractor == nil {
		cfg.Extractor = pdftext.New(pdftext.Config{Logger: cfg.Logger})
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Server{
		converter:    cfg.Converter,
		extractor:    cfg.Extractor,
		lib:          cfg.Library,
		logger:       cfg.Logger,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/convert", s.handleConvert)
		r.Post("/classify", s.handleClassify)
		r.Get("/rules", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"rules": extract.Rules()})
		})

		r.Route("/tests", func(r chi.Router) {
			r.Use(s.requireLibrary)
			r.Get("/", s.handleListTests)
			r.Post("/", s.handleAddTest)
			r.Get("/{id}", s.handleGetTest)
			r.Delete("/{id}", s.handleRemoveTest)
		})
	})

	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("http server stopping", "addr", addr)
		return httpServer.Shutdown(shutdownCtx)
	}
}

// convertResponse is returned by /convert when gates are requested.
type convertResponse struct {
	Document *types.Document     `json:"document"`
	Report   *validate.GateReport `json:"report"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	// A blank body converts to a document with no sections.
	sourceText, err := s.readBody(w, r, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	doc := s.converter.Convert(sourceText)

	if !queryBool(r, "gates") {
		writeJSON(w, http.StatusOK, doc)
		return
	}

	report := runGates(sourceText, doc, time.Since(start))
	writeJSON(w, http.StatusOK, convertResponse{Document: doc, Report: report})
}

type classifyRequest struct {
	Lines []string `json:"lines"`
	Text  string   `json:"text"`
}

type classifiedLine struct {
	Line   string               `json:"line"`
	Format types.QuestionFormat `json:"format"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": classifyLines(req.Lines, req.Text)})
}

func (s *Server) handleListTests(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tests": s.lib.ListDocuments(),
		"stats": s.lib.Stats(),
	})
}

func (s *Server) handleAddTest(w http.ResponseWriter, r *http.Request) {
	sourceText, err := s.readBody(w, r, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	query := r.URL.Query()
	entry, err := s.lib.AddDocument(query.Get("id"), []byte(sourceText), library.AddOptions{
		Name:         query.Get("name"),
		SourceFormat: string(pdftext.FormatTXT),
		Tags:         query["tag"],
		Force:        queryBool(r, "force"),
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleGetTest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.lib.GetDocument(id) == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("test not found: %s", id))
		return
	}

	doc, err := s.lib.LoadDocument(id)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleRemoveTest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.lib.RemoveDocument(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requestID tags every request with a uuid, echoes it in the response and
// logs the request once it completes.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) requireLibrary(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.lib == nil {
			writeError(w, http.StatusServiceUnavailable, errors.New("no library configured"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request, allowEmpty bool) (string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	if !allowEmpty && strings.TrimSpace(string(body)) == "" {
		return "", errors.New("request body is empty")
	}
	return string(body), nil
}

// classifyLines classifies explicit lines, or the non-blank lines of text
// when no lines are given.
func classifyLines(lines []string, text string) []classifiedLine {
	if len(lines) == 0 && text != "" {
		lines = extract.SplitLines(text)
	}
	results := make([]classifiedLine, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		results = append(results, classifiedLine{Line: trimmed, Format: extract.Classify(trimmed)})
	}
	return results
}

func runGates(sourceText string, doc *types.Document, convertDuration time.Duration) *validate.GateReport {
	pipeline := validate.NewGatePipeline(validate.DefaultValidationConfig())
	pipeline.RegisterDefaultGates()
	return pipeline.Run(&validate.ValidationContext{
		SourceText:      sourceText,
		Document:        doc,
		ConvertDuration: convertDuration,
	})
}

func queryBool(r *http.Request, key string) bool {
	value, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && value
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
