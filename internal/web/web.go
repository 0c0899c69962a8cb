package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"kakaocal/internal/config"
	"kakaocal/internal/diary"
	"kakaocal/internal/ics"
	appLog "kakaocal/internal/log"
	"kakaocal/internal/pipeline"
)

const maxUploadBytes = 32 << 20

// Server exposes the conversion pipeline over HTTP for the upload UI.
// Uploads are converted statelessly: the persisted dedup store is never
// consulted, only duplicates within one request are dropped.
type Server struct {
	cfg     *config.Config
	router  chi.Router
	metrics *metrics

	// now is the DTSTAMP clock; nil means time.Now.
	now func() time.Time
}

// embeddedStatic contains the upload page served at "/".
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg:     cfg,
		router:  chi.NewRouter(),
		metrics: newMetrics(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="kakaocal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve listens on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func Serve(ctx context.Context, cfg *config.Config) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewServer(cfg).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.metrics.middleware)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.handler())
	r.Route("/api", func(r chi.Router) {
		r.Post("/convert", s.handleConvert)
		r.Post("/export", s.handleExport)
	})

	// Everything else is the embedded upload page.
	r.Handle("/*", s.staticFileServer())
}

// requestLogger logs one debug line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// staticFileServer serves the embedded files under internal/web/static.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	return http.FileServer(http.FS(sub))
}

// convertResponse is the JSON response shape for /api/convert.
type convertResponse struct {
	Count     int        `json:"count"`
	Parsed    int        `json:"parsed"`
	DateRange string     `json:"date_range"`
	Events    []eventDTO `json:"events"`
}

// eventDTO is a JSON-friendly preview of one event.
type eventDTO struct {
	UID          string   `json:"uid"`
	Sender       string   `json:"sender"`
	Date         string   `json:"date"`
	Summary      string   `json:"summary"`
	MessageCount int      `json:"message_count"`
	Messages     []string `json:"messages"`
}

// handleConvert previews the events for uploaded exports.
//
// POST /api/convert (multipart/form-data)
//   - files:    one or more chat export .txt files
//   - cutoff:   diary day boundary hour (default from config)
//   - duration: informational minutes (default from config)
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	res, ok := s.process(w, r)
	if !ok {
		return
	}

	resp := convertResponse{
		Count:  len(res.Groups),
		Parsed: res.Parsed,
		Events: make([]eventDTO, 0, len(res.Groups)),
	}
	if len(res.Groups) > 0 {
		first := res.Groups[0].First().Timestamp
		last := res.Groups[len(res.Groups)-1].First().Timestamp
		resp.DateRange = diary.FormatDate(first) + " - " + diary.FormatDate(last)
	}

	for _, g := range res.Groups {
		bodies := make([]string, len(g.Messages))
		for i, m := range g.Messages {
			bodies[i] = m.Body
		}
		resp.Events = append(resp.Events, eventDTO{
			UID:          ics.UID(g),
			Sender:       g.Sender,
			Date:         g.DisplayDay,
			Summary:      ics.Subject(g),
			MessageCount: len(g.Messages),
			Messages:     bodies,
		})
	}

	s.metrics.observe(res)
	appLog.Info("api convert request", "events", resp.Count, "parsed", resp.Parsed)
	writeJSON(w, http.StatusOK, resp)
}

// handleExport returns the converted uploads as a download.
//
// POST /api/export?format=ics|csv (same form fields as /api/convert)
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "ics"
	}
	if format != "ics" && format != "csv" {
		writeError(w, http.StatusBadRequest, "format must be ics or csv")
		return
	}

	res, ok := s.process(w, r)
	if !ok {
		return
	}
	if res.Empty() {
		writeError(w, http.StatusUnprocessableEntity, "no events found in uploaded files")
		return
	}

	var body, contentType, filename string
	switch format {
	case "csv":
		body = ics.ToCSV(ics.SummaryRows(res.Groups)) + "\r\n"
		contentType = "text/csv; charset=utf-8"
		filename = "kakao-calendar.csv"
	default:
		body = res.Calendar
		contentType = "text/calendar; charset=utf-8"
		filename = "kakao-calendar.ics"
	}

	s.metrics.observe(res)
	appLog.Info("api export request", "format", format, "events", len(res.Groups))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

// process reads the multipart upload and runs the pipeline. On failure it
// has already written the error response and returns false.
func (s *Server) process(w http.ResponseWriter, r *http.Request) (pipeline.Result, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form upload")
		return pipeline.Result{}, false
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return pipeline.Result{}, false
	}

	sources := make([]pipeline.Source, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			appLog.Error("opening upload failed", err, "name", fh.Filename)
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			appLog.Error("reading upload failed", err, "name", fh.Filename)
			continue
		}
		sources = append(sources, pipeline.Source{Origin: fh.Filename, Content: string(data)})
	}

	opts := pipeline.Options{
		CutoffHour:      config.ParseCutoff(r.FormValue("cutoff"), s.cfg.CutoffHour),
		DurationMinutes: config.ParseDuration(r.FormValue("duration"), s.cfg.DurationMinutes),
		Location:        s.cfg.Location(),
		Now:             s.now,
	}
	return pipeline.Process(sources, nil, opts), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
