// Package preview implements serve mode: an initial build, an HTTP server
// on the output folder and a watcher that rebuilds after changes.
package preview

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/blogbuilder/internal/builder"
	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "127.0.0.1:5000"

const defaultDebounce = 300 * time.Millisecond

// Options configure a Server.
type Options struct {
	ProjectFolder string
	Addr          string
	// Debounce is the quiet period after the last change before a rebuild.
	Debounce time.Duration
	// Registry is served on /metrics. Nil serves the default registry.
	Registry *prom.Registry
	// BuilderOptions are passed to every builder.
	BuilderOptions []builder.Option
	// Logger receives server and rebuild logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// buildStatus tracks the last build outcome.
type buildStatus struct {
	mu           sync.RWMutex
	lastError    error
	hasGoodBuild bool
	builds       int
}

func (bs *buildStatus) set(err error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.builds++
	bs.lastError = err
	if err == nil {
		bs.hasGoodBuild = true
	}
}

func (bs *buildStatus) get() (builds int, hasGoodBuild bool, err error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.builds, bs.hasGoodBuild, bs.lastError
}

// Server serves a project and rebuilds it on change.
type Server struct {
	opts    Options
	project string
	status  buildStatus
	logger  *slog.Logger

	mu     sync.RWMutex
	output string
	// buildMu serializes builds.
	buildMu sync.Mutex
}

// New validates the project folder and creates a Server.
func New(opts Options) (*Server, error) {
	abs, err := filepath.Abs(opts.ProjectFolder)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve project folder").Build()
	}
	if st, statErr := os.Stat(abs); statErr != nil || !st.IsDir() {
		return nil, errors.ValidationError("project folder not found or not a directory: " + abs).
			WithContext("path", abs).
			Build()
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		opts:    opts,
		project: abs,
		logger:  logger,
		output:  filepath.Join(abs, config.DefaultOutputFolder),
	}, nil
}

// OutputFolder returns the folder currently served.
func (s *Server) OutputFolder() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.output
}

// Rebuild loads the project configuration afresh and runs one build.
func (s *Server) Rebuild(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	b, err := builder.Load(s.project, s.opts.BuilderOptions...)
	if err == nil {
		s.mu.Lock()
		s.output = b.OutputFolder()
		s.mu.Unlock()
		_, err = b.Run(ctx)
	}
	s.status.set(err)
	return err
}

// Handler serves the output folder, the build status and metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(s.opts.Registry))
	mux.HandleFunc("/_status", s.handleStatus)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.FileServer(http.Dir(s.OutputFolder())).ServeHTTP(w, r)
	})
	return withMiddleware(s.logger, mux)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	builds, good, err := s.status.get()
	body := map[string]any{
		"builds":         builds,
		"has_good_build": good,
		"ok":             err == nil,
	}
	if err != nil {
		body["error"] = err.Error()
		body[logfields.KeySource] = errors.SourceOf(err)
	}
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
	_ = json.NewEncoder(w).Encode(body)
}

// Run builds the project, serves it and rebuilds on change until ctx is
// done. A failing build is logged and serving continues.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Rebuild(ctx); err != nil {
		s.logger.Error("Initial build failed", logfields.Source(errors.SourceOf(err)), logfields.Error(err))
	}

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "failed to listen").
			WithContext("addr", s.opts.Addr).
			Build()
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && !stdErrors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("Preview server stopped", logfields.Error(serveErr))
		}
	}()
	s.logger.Info("Preview server listening", logfields.Addr(ln.Addr().String()),
		slog.String("url", fmt.Sprintf("http://%s/", ln.Addr().String())))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = srv.Close()
		return errors.WrapError(err, errors.CategoryInternal, "failed to create watcher").Build()
	}
	defer func() { _ = watcher.Close() }()
	s.addDirsRecursive(watcher, s.project)

	rebuildReq, trigger := newDebouncer(s.opts.Debounce)
	done := make(chan struct{})
	go s.rebuildWorker(ctx, rebuildReq, done)

	err = s.loop(ctx, watcher, trigger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if stopErr := srv.Shutdown(shutdownCtx); stopErr != nil {
		s.logger.Warn("HTTP server shutdown error", logfields.Error(stopErr))
	}
	<-done
	return err
}

func (s *Server) loop(ctx context.Context, watcher *fsnotify.Watcher, trigger func()) error {
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Shutting down preview server")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(watcher, ev, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// rebuildWorker runs one build per request. Requests arriving while a build
// runs are coalesced by the one-slot channel.
func (s *Server) rebuildWorker(ctx context.Context, rebuildReq <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-rebuildReq:
			s.logger.Info("Change detected; rebuilding")
			if err := s.Rebuild(ctx); err != nil {
				s.logger.Warn("Rebuild failed", logfields.Source(errors.SourceOf(err)), logfields.Error(err))
			}
		}
	}
}

func (s *Server) handleEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if s.shouldIgnore(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			s.addDirsRecursive(watcher, ev.Name)
		}
	}
	s.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

// shouldIgnore drops events from the output folder and editor files.
func (s *Server) shouldIgnore(name string) bool {
	if isInside(s.OutputFolder(), name) {
		return true
	}
	return shouldIgnoreEvent(name)
}

func (s *Server) addDirsRecursive(w *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != s.project && (isInside(s.OutputFolder(), p) || strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := w.Add(p); err != nil {
			s.logger.Warn("Watch add failed", logfields.Path(p), logfields.Error(err))
		}
		return nil
	})
}

// newDebouncer returns a one-slot request channel and a trigger that fires
// it once the trigger has been quiet for window.
func newDebouncer(window time.Duration) (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	req := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(window, func() {
			select {
			case req <- struct{}{}:
			default:
			}
		})
	}
	return req, trigger
}

func isInside(dir, name string) bool {
	rel, err := filepath.Rel(dir, name)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// shouldIgnoreEvent reports editor temp files, hidden files and OS clutter.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
