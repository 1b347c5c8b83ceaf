// Package simulator runs compiled worker configurations in-process: one goja
// VM per worker, in-memory storage bindings, and an optional HTTP listener
// that dispatches all inbound traffic to the first worker in the sequence.
package simulator

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	"github.com/edgesim/edgesim/pkg/logger"
)

// Options tune simulator construction.
type Options struct {
	// FS is the filesystem used for scriptPath and sitePath loading.
	FS afero.Fs
	// BaseDir anchors relative scriptPath/sitePath values. Empty means the
	// process working directory, untouched.
	BaseDir string
}

type Option func(*Options)

func WithFS(fs afero.Fs) Option {
	return func(o *Options) { o.FS = fs }
}

func WithBaseDir(dir string) Option {
	return func(o *Options) { o.BaseDir = dir }
}

// Simulator hosts the workers of one compiled configuration.
type Simulator struct {
	cfg     *Config
	fs      afero.Fs
	baseDir string

	workers map[string]*workerRuntime

	storeMu sync.Mutex
	kv      map[string]*memoryStore
	r2      map[string]*memoryStore

	queueMu sync.Mutex
	queues  map[string][]any

	server   *http.Server
	listener net.Listener
	baseURL  string
}

// New validates the configuration, compiles every worker script and, when a
// port is configured, starts listening. Construction failures surface
// immediately; nothing is retried.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Simulator, error) {
	options := &Options{FS: afero.NewOsFs()}
	for _, opt := range opts {
		opt(options)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulator{
		cfg:     cfg,
		fs:      options.FS,
		baseDir: options.BaseDir,
		workers: make(map[string]*workerRuntime, len(cfg.Workers)),
		kv:      make(map[string]*memoryStore),
		r2:      make(map[string]*memoryStore),
		queues:  make(map[string][]any),
	}

	for _, w := range cfg.Workers {
		var site *siteContent
		if w.SitePath != "" {
			loaded, err := loadSite(s.fs, s.resolvePath(w.SitePath))
			if err != nil {
				return nil, err
			}
			site = loaded
		}
		script, err := s.workerScript(w)
		if err != nil {
			return nil, err
		}
		runtime, err := s.newWorkerRuntime(w, site, script)
		if err != nil {
			return nil, err
		}
		s.workers[w.Name] = runtime
	}

	if cfg.Port != 0 {
		if err := s.listen(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Simulator) workerScript(w *WorkerConfig) (string, error) {
	if w.Script != "" {
		return w.Script, nil
	}
	if w.ScriptPath != "" {
		data, err := afero.ReadFile(s.fs, s.resolvePath(w.ScriptPath))
		if err != nil {
			return "", fmt.Errorf("failed to read script for worker %q: %w", w.Name, err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("worker %q has neither script nor scriptPath", w.Name)
}

func (s *Simulator) resolvePath(path string) string {
	if filepath.IsAbs(path) || s.baseDir == "" {
		return path
	}
	return filepath.Join(s.baseDir, path)
}

// Dispatch routes a request to the named worker.
func (s *Simulator) Dispatch(_ context.Context, workerName string, req *Request) (*Response, error) {
	return s.dispatch(workerName, req)
}

// DispatchEntry routes a request to the entry worker, the same way the HTTP
// listener does.
func (s *Simulator) DispatchEntry(ctx context.Context, req *Request) (*Response, error) {
	return s.Dispatch(ctx, s.cfg.Entry().Name, req)
}

func (s *Simulator) dispatch(workerName string, req *Request) (*Response, error) {
	runtime, ok := s.workers[workerName]
	if !ok {
		return nil, &WorkerNotFoundError{Worker: workerName}
	}
	return runtime.dispatch(req)
}

func (s *Simulator) listen(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.NoRoute(s.handleHTTP)

	s.listener = listener
	s.server = &http.Server{Handler: engine, ReadHeaderTimeout: 10 * time.Second}
	s.baseURL = fmt.Sprintf("http://%s", addr)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.GetDefault().Error("simulator server stopped", "error", err)
		}
	}()
	logger.FromContext(ctx).Info("server listening", "url", s.baseURL, "entry", s.cfg.Entry().Name)
	return nil
}

func (s *Simulator) handleHTTP(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "failed to read request body: %v", err)
		return
	}
	headers := make(map[string]string, len(c.Request.Header))
	for k := range c.Request.Header {
		headers[k] = c.Request.Header.Get(k)
	}
	req := &Request{
		Method:  c.Request.Method,
		URL:     c.Request.URL.String(),
		Path:    c.Request.URL.Path,
		Headers: headers,
		Body:    string(body),
	}
	res, err := s.dispatch(s.cfg.Entry().Name, req)
	if err != nil {
		c.String(http.StatusInternalServerError, "worker dispatch failed: %v", err)
		return
	}
	contentType := res.Headers["content-type"]
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	for k, v := range res.Headers {
		if k != "content-type" {
			c.Header(k, v)
		}
	}
	c.Data(res.Status, contentType, []byte(res.Body))
}

// BaseURL returns the listener URL, empty when no port was configured.
func (s *Simulator) BaseURL() string {
	return s.baseURL
}

// Listening reports whether the simulator accepts HTTP traffic.
func (s *Simulator) Listening() bool {
	return s.server != nil
}

// Config returns the configuration the simulator was built from.
func (s *Simulator) Config() *Config {
	return s.cfg
}

func (s *Simulator) kvStore(name string) *memoryStore {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	if s.kv[name] == nil {
		s.kv[name] = newMemoryStore()
	}
	return s.kv[name]
}

func (s *Simulator) r2Store(name string) *memoryStore {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	if s.r2[name] == nil {
		s.r2[name] = newMemoryStore()
	}
	return s.r2[name]
}

func (s *Simulator) enqueue(queue string, msg any) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	s.queues[queue] = append(s.queues[queue], msg)
}

// QueueMessages returns the messages sent to a queue so far.
func (s *Simulator) QueueMessages(queue string) []any {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	out := make([]any, len(s.queues[queue]))
	copy(out, s.queues[queue])
	return out
}

// Dispose shuts the HTTP listener down and drops all worker runtimes. It is
// idempotent and safe on a partially constructed simulator.
func (s *Simulator) Dispose(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
		s.server = nil
		s.listener = nil
		s.baseURL = ""
	}
	s.workers = nil
	return err
}
