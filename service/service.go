// Package service is the HTTP boundary of the document engine. It exposes
// POST /api/create-pdf (descriptor in, PDF out with widget diagnostics in
// response headers), POST /api/process-file (multipart upload in, extracted
// text out), a status endpoint, and the rendered manual.
//
// The service holds no per-request state of its own: every render runs one
// isolated engine pipeline, so handlers are safe under concurrency.
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lvillar/docgen"
	"github.com/lvillar/docgen/extract"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithManualPath sets the markdown manual served at /manual.
func WithManualPath(path string) Option {
	return func(s *Server) {
		s.manualPath = path
	}
}

// WithMaxUploadBytes overrides the upload ceiling for /api/process-file.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		s.maxUpload = n
	}
}

// WithMaxDescriptorBytes overrides the JSON body ceiling for /api/create-pdf.
// The default leaves room for a maximum-budget base64 image plus framing.
func WithMaxDescriptorBytes(n int64) Option {
	return func(s *Server) {
		s.maxDescriptor = n
	}
}

// Server wires the engine and its collaborators to an http.Handler.
type Server struct {
	engine        *docgen.Engine
	log           *slog.Logger
	manualPath    string
	maxUpload     int64
	maxDescriptor int64
	mux           *http.ServeMux
}

// A 15 MB image becomes 20 MB of base64 before JSON framing, so the
// descriptor ceiling sits above the extraction upload ceiling.
const defaultMaxDescriptorBytes = 32 << 20

// New creates a Server around engine.
func New(engine *docgen.Engine, opts ...Option) *Server {
	s := &Server{
		engine:        engine,
		log:           slog.Default(),
		manualPath:    "manual.md",
		maxUpload:     extract.MaxUploadBytes,
		maxDescriptor: defaultMaxDescriptorBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleStatus)
	mux.HandleFunc("POST /api/create-pdf", s.handleCreatePDF)
	mux.HandleFunc("POST /api/process-file", s.handleProcessFile)
	mux.HandleFunc("GET /manual", s.handleManualHTML)
	mux.HandleFunc("GET /manual.md", s.handleManualRaw)
	s.mux = mux
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "document service is running",
	})
}

func (s *Server) handleCreatePDF(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxDescriptor))
	if err != nil {
		s.writeError(w, r, &docgen.Error{Kind: docgen.KindPayloadTooLarge, Block: -1, Err: err})
		return
	}

	res, err := s.engine.Render(r.Context(), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var doc struct {
		Filename string `json:"filename"`
	}
	_ = json.Unmarshal(body, &doc)

	download := true
	if v := r.URL.Query().Get("download"); v != "" {
		download, _ = strconv.ParseBool(v)
	}
	disp := "attachment"
	if !download {
		disp = "inline"
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("%s; filename=%q", disp, safeFilename(doc.Filename)+".pdf"))
	w.Header().Set("X-Widgets-Supported", strconv.Itoa(res.Widgets.Supported))
	w.Header().Set("X-Widgets-Injected", strconv.Itoa(res.Widgets.Injected))
	w.Header().Set("X-Widgets-Skipped", strconv.Itoa(res.Widgets.Skipped))
	w.WriteHeader(http.StatusOK)
	w.Write(res.PDF)

	s.log.Info("rendered document",
		"filename", doc.Filename,
		"pages", res.Pages,
		"widgets_injected", res.Widgets.Injected,
		"widgets_skipped", res.Widgets.Skipped,
	)
}

func (s *Server) handleProcessFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "reading upload failed"})
		return
	}
	if int64(len(data)) > s.maxUpload {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{
			"error": fmt.Sprintf("file exceeds the %d MB limit", s.maxUpload/(1<<20)),
		})
		return
	}

	contentType := header.Header.Get("Content-Type")
	text, err := extract.Text(header.Filename, contentType, data)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "extraction failed"
		if errors.Is(err, extract.ErrUnsupportedFormat) {
			status = http.StatusBadRequest
			msg = err.Error()
		} else {
			s.log.Error("extraction failed", "filename", header.Filename, "err", err)
		}
		writeJSON(w, status, map[string]any{"error": msg})
		return
	}

	if r.URL.Query().Get("return_as") == "txt" {
		disp := "inline"
		if v, _ := strconv.ParseBool(r.URL.Query().Get("download")); v {
			disp = "attachment"
		}
		name := safeFilename(strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))) + ".txt"
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disp, name))
		io.WriteString(w, text)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"filename":       header.Filename,
		"content_type":   contentType,
		"length":         len(text),
		"extracted_text": text,
	})
}

// writeError maps classified engine errors to their status; anything else is
// an internal error logged with context and answered generically.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *docgen.Error
	if errors.As(err, &de) && de.Kind != docgen.KindInternal {
		writeJSON(w, de.HTTPStatus(), map[string]any{
			"error": de.Error(),
			"kind":  de.Kind.String(),
		})
		return
	}
	s.log.Error("render failed", "path", r.URL.Path, "err", err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func safeFilename(name string) string {
	if name == "" {
		return "document"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case ' ':
			return '_'
		case '/', '\\', '"':
			return '-'
		}
		return r
	}, name)
	return name
}
