package simulator

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/dop251/goja"
)

// prelude.js defines the Response class and friends every worker script sees.
//
//go:embed prelude.js
var preludeScript string

// workerRuntime is one worker's goja VM plus its compiled fetch handler and
// materialized env. VMs are not safe for concurrent use, so dispatch is
// serialized per worker.
type workerRuntime struct {
	name  string
	vm    *goja.Runtime
	fetch goja.Callable
	env   *goja.Object
	mu    sync.Mutex
}

// Worker scripts follow a CommonJS-flavored contract: the script assigns
// module.exports = { fetch(request, env) } and the handler resolves
// synchronously (or returns an already-settled promise).
func (s *Simulator) newWorkerRuntime(w *WorkerConfig, site *siteContent, script string) (*workerRuntime, error) {
	rt := goja.New()
	if _, err := rt.RunScript("prelude.js", preludeScript); err != nil {
		return nil, &ScriptError{Worker: w.Name, Operation: "prelude", Err: err}
	}

	module := rt.NewObject()
	exports := rt.NewObject()
	_ = module.Set("exports", exports)
	_ = rt.Set("module", module)
	_ = rt.Set("exports", exports)

	if _, err := rt.RunScript(w.Name+".js", script); err != nil {
		return nil, &ScriptError{Worker: w.Name, Operation: "compile", Err: err}
	}

	exported := module.Get("exports").ToObject(rt)
	fetchFn, ok := goja.AssertFunction(exported.Get("fetch"))
	if !ok {
		return nil, &ScriptError{
			Worker:    w.Name,
			Operation: "compile",
			Err:       fmt.Errorf("script does not export a fetch handler"),
		}
	}

	return &workerRuntime{
		name:  w.Name,
		vm:    rt,
		fetch: fetchFn,
		env:   s.buildEnv(rt, w, site),
	}, nil
}

func (r *workerRuntime) dispatch(req *Request) (*Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result, err := r.fetch(goja.Undefined(), r.vm.ToValue(req.toMap()), r.env)
	if err != nil {
		return nil, &ScriptError{Worker: r.name, Operation: "fetch", Err: err}
	}
	res, err := responseFromValue(result)
	if err != nil {
		return nil, &ScriptError{Worker: r.name, Operation: "fetch", Err: err}
	}
	return res, nil
}
