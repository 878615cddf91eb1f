package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/study-groups/mdpublish"
	"github.com/study-groups/mdpublish/internal/embed"
	"github.com/study-groups/mdpublish/internal/logging"
	"github.com/study-groups/mdpublish/internal/pipeline"
)

// DefaultListen is the preview server address.
const DefaultListen = "127.0.0.1:8080"

// FilesPrefix serves the markdown file's directory, so preview documents
// built with mdpublish.WithPreviewImageBase(FilesPrefix) show local images.
const FilesPrefix = "/files"

const (
	customThemeID   = "custom" // reported for themes sent without an id
	maxMessageBytes = 64 << 10
	shutdownTimeout = 5 * time.Second

	// versionHeader carries the build version of a /document response. The
	// container page echoes it as ?version= when relaying preview-ready.
	versionHeader = "X-Preview-Version"
)

// Sentinel errors.
var (
	ErrNoSource      = errors.New("preview source is required")
	ErrEmbedMismatch = errors.New("message is for another embed")
	ErrStaleReady    = errors.New("readiness reported for an older build")
)

// Builder produces preview documents. *mdpublish.Publisher implements it.
type Builder interface {
	Preview(ctx context.Context, in mdpublish.Input) (*mdpublish.Result, error)
}

var _ Builder = (*mdpublish.Publisher)(nil)

// Config configures a Server.
type Config struct {
	Source  string                  // markdown file, required
	Theme   *pipeline.Theme         // initial theme
	Target  *pipeline.PublishTarget // supplies CSS paths and theme URL
	Listen  string                  // default DefaultListen
	Metrics http.Handler            // mounted on /metrics when set
	Logger  logging.Logger
}

// Server serves a live preview of one markdown file.
// The embed ID is fixed for the server's lifetime so the container page
// recognizes readiness messages across rebuilds.
type Server struct {
	cfg     Config
	builder Builder
	log     logging.Logger
	embedID string
	status  *buildStatus

	themeMu sync.Mutex
	theme   *pipeline.Theme
}

// NewServer creates a Server. It does not build until Rebuild or
// ListenAndServe is called.
func NewServer(b Builder, cfg Config) (*Server, error) {
	if cfg.Source == "" {
		return nil, ErrNoSource
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	return &Server{
		cfg:     cfg,
		builder: b,
		log:     logging.OrNop(cfg.Logger),
		embedID: embed.NewEmbedID(),
		status:  &buildStatus{},
		theme:   cfg.Theme,
	}, nil
}

// EmbedID returns the embed ID carried by every document this server builds.
func (s *Server) EmbedID() string {
	return s.embedID
}

// Rebuild reads the source and builds a new preview document.
// A failed build keeps the last good document.
func (s *Server) Rebuild(ctx context.Context) error {
	err := s.build(ctx)
	if err != nil {
		s.log.Warn("preview rebuild failed", "source", s.cfg.Source, "error", err)
		s.status.setError(err)
		return err
	}
	return nil
}

func (s *Server) build(ctx context.Context) error {
	data, err := os.ReadFile(s.cfg.Source)
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.cfg.Source, err)
	}

	s.themeMu.Lock()
	theme := s.theme
	s.themeMu.Unlock()

	result, err := s.builder.Preview(ctx, mdpublish.Input{
		Markdown:   string(data),
		SourcePath: s.cfg.Source,
		Theme:      theme,
		Target:     s.cfg.Target,
		EmbedID:    s.embedID,
	})
	if err != nil {
		return err
	}

	version := s.status.setSuccess(result.HTML, result.Title)
	s.log.Info("preview rebuilt", "source", s.cfg.Source, "version", version, "run", result.RunID)
	return nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleContainer)
	mux.HandleFunc("GET /document", s.handleDocument)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("POST /embed", s.handleEmbed)
	dir := filepath.Dir(s.cfg.Source)
	mux.Handle("GET "+FilesPrefix+"/", http.StripPrefix(FilesPrefix+"/", http.FileServer(http.Dir(dir))))
	if s.cfg.Metrics != nil {
		mux.Handle("GET /metrics", s.cfg.Metrics)
	}
	return mux
}

// ListenAndServe builds the preview, serves it and rebuilds on change until
// ctx is done. The initial build may fail; the page shows the error until
// the file is fixed.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	watcher, err := NewWatcher(s.cfg.Source, WithWatcherLogger(s.log))
	if err != nil {
		_ = ln.Close()
		return err
	}

	_ = s.Rebuild(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := watcher.Run(ctx, func() { _ = s.Rebuild(ctx) }); err != nil {
			s.log.Warn("file watcher stopped", "source", s.cfg.Source, "error", err)
		}
	}()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Info("preview server listening", "addr", ln.Addr().String(), "source", s.cfg.Source)

	select {
	case err = <-errCh:
		cancel()
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		err = srv.Shutdown(shutdownCtx)
	}
	wg.Wait()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleContainer(w http.ResponseWriter, _ *http.Request) {
	st := s.status.get()
	title := st.title
	if title == "" {
		title = filepath.Base(s.cfg.Source)
	}
	page, err := renderPage(pageData{
		Title:      title,
		EmbedID:    s.embedID,
		Document:   st.document,
		Version:    st.version,
		DocVersion: st.docVersion,
		Live:       true,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.WriteString(w, page)
}

func (s *Server) handleDocument(w http.ResponseWriter, _ *http.Request) {
	st := s.status.get()
	if st.document == "" {
		msg := "preview not built"
		if st.err != nil {
			msg = st.err.Error()
		}
		http.Error(w, msg, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set(versionHeader, strconv.FormatInt(st.docVersion, 10))
	_, _ = io.WriteString(w, st.document)
}

type versionResponse struct {
	Version int64  `json:"version"`
	Ready   bool   `json:"ready"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	st := s.status.get()
	resp := versionResponse{Version: st.version, Ready: st.ready}
	if st.err != nil {
		resp.Error = st.err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEmbed receives messages relayed by the container page.
// preview-ready is recorded when its ?version= names the current build;
// theme messages change the theme, rebuild and answer with the theme now
// in effect.
func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	msg, err := embed.Decode(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if msg.EmbedID != s.embedID {
		http.Error(w, ErrEmbedMismatch.Error(), http.StatusConflict)
		return
	}

	switch msg.Type {
	case embed.TypePreviewReady:
		version, err := strconv.ParseInt(r.URL.Query().Get("version"), 10, 64)
		if err != nil {
			http.Error(w, "preview-ready requires a build version", http.StatusBadRequest)
			return
		}
		if !s.status.markReady(version) {
			s.log.Info("stale readiness ignored", "version", version, "embed", s.embedID)
			http.Error(w, ErrStaleReady.Error(), http.StatusConflict)
			return
		}
		s.log.Info("preview ready", "version", version, "embed", s.embedID)
		w.WriteHeader(http.StatusNoContent)
		return
	case embed.TypeRequestTheme:
		s.respond(w, embed.TypeApplyTheme, embed.ApplyTheme{Theme: *s.currentTheme()})
		return
	case embed.TypeApplyTheme:
		p, err := msg.ApplyTheme()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.setTheme(&p.Theme)
	case embed.TypeUpdateToken:
		p, err := msg.UpdateToken()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		next := p.Apply(*s.currentTheme())
		s.setTheme(&next)
	default:
		http.Error(w, fmt.Sprintf("unexpected message %s", msg.Type), http.StatusBadRequest)
		return
	}

	if err := s.Rebuild(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	theme := s.currentTheme()
	id := theme.ID
	if id == "" {
		id = customThemeID
	}
	s.respond(w, embed.TypeThemeUpdated, embed.ThemeUpdated{ThemeID: id, Mode: theme.Mode})
}

func (s *Server) respond(w http.ResponseWriter, t embed.Type, payload any) {
	out, err := embed.Encode(t, s.embedID, payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}

// currentTheme returns the theme in effect, the fallback palette when none
// was configured.
func (s *Server) currentTheme() *pipeline.Theme {
	s.themeMu.Lock()
	defer s.themeMu.Unlock()
	return pipeline.ResolveTheme(s.theme)
}

func (s *Server) setTheme(t *pipeline.Theme) {
	s.themeMu.Lock()
	s.theme = t
	s.themeMu.Unlock()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// buildStatus is the latest build outcome, shared between the rebuild path
// and the handlers.
type buildStatus struct {
	mu         sync.RWMutex
	document   string
	title      string
	err        error
	version    int64
	docVersion int64 // version that produced document
	ready      bool
}

type statusSnapshot struct {
	document   string
	title      string
	err        error
	version    int64
	docVersion int64
	ready      bool
}

func (b *buildStatus) setSuccess(doc, title string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.document = doc
	b.title = title
	b.err = nil
	b.ready = false
	b.version++
	b.docVersion = b.version
	return b.version
}

// setError bumps the version so the page picks up the error.
func (b *buildStatus) setError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
	b.version++
}

// markReady records readiness for the document built at version. A report
// for any other build is rejected.
func (b *buildStatus) markReady(version int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.document == "" || version != b.docVersion {
		return false
	}
	b.ready = true
	return true
}

func (b *buildStatus) get() statusSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return statusSnapshot{
		document:   b.document,
		title:      b.title,
		err:        b.err,
		version:    b.version,
		docVersion: b.docVersion,
		ready:      b.ready,
	}
}
