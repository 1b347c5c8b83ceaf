// Package harness wraps compile-then-simulate in a test lifecycle: Setup
// populates a caller-owned context record with the running simulator, the
// primary worker's binding handles and a fetch helper; Teardown restores the
// record to its pre-setup shape exactly.
package harness

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/edgesim/edgesim/engine/compiler"
	"github.com/edgesim/edgesim/engine/descriptor"
	"github.com/edgesim/edgesim/engine/simulator"
)

// Context is the shared mutable record Setup and Teardown operate on. It is
// owned by the caller; Setup only ever adds the keys named below.
type Context map[string]any

const (
	KeySimulator         = "simulator"
	KeyBindings          = "bindings"
	KeyFetch             = "fetch"
	KeyServerBaseURL     = "serverBaseUrl"
	KeyIsServerListening = "isServerListening"
)

var managedKeys = []string{
	KeySimulator,
	KeyBindings,
	KeyFetch,
	KeyServerBaseURL,
	KeyIsServerListening,
}

// Options tune one Setup call.
type Options struct {
	// PortAdjustment is added to the descriptor's dev.port, letting parallel
	// suites share one descriptor without colliding.
	PortAdjustment int
	// ServiceMocks supplies bodies for downstream services.
	ServiceMocks compiler.ServiceMocks
}

// FetchResult is what the installed fetch helper returns.
type FetchResult struct {
	Status  int
	Headers http.Header
	Body    string
}

// FetchFunc accepts a full URL or a path fragment resolved against the
// simulator's base URL.
type FetchFunc func(ctx context.Context, urlOrPath string) (*FetchResult, error)

// Setup compiles the descriptor (a map or a filesystem path), applies the
// asset workaround, instantiates the simulator and records the handles on
// tc. Paths inside a file-based descriptor resolve against the file's own
// directory; the process working directory is never touched. Errors
// propagate to the caller with tc unmodified.
func Setup(ctx context.Context, tc Context, input any, opts Options) error {
	if tc == nil {
		return fmt.Errorf("harness context must not be nil")
	}

	var (
		d       descriptor.Descriptor
		baseDir string
	)
	switch v := input.(type) {
	case string:
		abs, err := filepath.Abs(v)
		if err != nil {
			return fmt.Errorf("failed to resolve descriptor path %s: %w", v, err)
		}
		d, err = descriptor.Load(abs)
		if err != nil {
			return err
		}
		baseDir = filepath.Dir(abs)
	case descriptor.Descriptor:
		d = v
	case map[string]any:
		d = descriptor.Descriptor(v)
	default:
		return fmt.Errorf("unsupported descriptor input type %T", input)
	}

	cfg, err := compiler.Compile(ctx, d, opts.ServiceMocks)
	if err != nil {
		return err
	}
	if err := compiler.ApplyAssetWorkaround(ctx, cfg); err != nil {
		return err
	}
	if cfg.Port != 0 && opts.PortAdjustment != 0 {
		cfg.Port += opts.PortAdjustment
	}

	// Binding-only descriptors compile to a worker without a body; the
	// simulator still needs something to instantiate.
	if mainWorker := cfg.FindWorker(simulator.PrimaryWorkerName); mainWorker != nil && !mainWorker.HasScript() {
		stub, err := compiler.StubScript()
		if err != nil {
			return err
		}
		mainWorker.Script = stub
	}

	sim, err := simulator.New(ctx, cfg, simulator.WithBaseDir(baseDir))
	if err != nil {
		return err
	}

	tc[KeySimulator] = sim
	tc[KeyBindings] = sim.BindingHandles(simulator.PrimaryWorkerName)
	tc[KeyFetch] = newFetcher(sim)
	if sim.Listening() {
		tc[KeyIsServerListening] = true
		tc[KeyServerBaseURL] = sim.BaseURL()
	}
	return nil
}

// Teardown disposes the simulator if one was recorded and removes every key
// Setup could have added. Safe to call twice or without a prior Setup.
func Teardown(tc Context) {
	if tc == nil {
		return
	}
	if sim, ok := tc[KeySimulator].(*simulator.Simulator); ok && sim != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sim.Dispose(shutdownCtx)
	}
	for _, key := range managedKeys {
		delete(tc, key)
	}
}

// Fetch returns the helper Setup installed on tc, or nil.
func Fetch(tc Context) FetchFunc {
	f, _ := tc[KeyFetch].(FetchFunc)
	return f
}

// Bindings returns the primary worker's binding handles recorded on tc.
func Bindings(tc Context) map[string]any {
	b, _ := tc[KeyBindings].(map[string]any)
	return b
}

func newFetcher(sim *simulator.Simulator) FetchFunc {
	client := resty.New()
	base := sim.BaseURL()
	listening := sim.Listening()
	return func(ctx context.Context, target string) (*FetchResult, error) {
		if !listening {
			return &FetchResult{
				Status: http.StatusServiceUnavailable,
				Body:   "service not configured to listen",
			}, nil
		}
		url := target
		if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
			url = base + "/" + strings.TrimPrefix(target, "/")
		}
		resp, err := client.R().SetContext(ctx).Get(url)
		if err != nil {
			return nil, fmt.Errorf("fetch %s failed: %w", url, err)
		}
		return &FetchResult{
			Status:  resp.StatusCode(),
			Headers: resp.Header(),
			Body:    string(resp.Body()),
		}, nil
	}
}
