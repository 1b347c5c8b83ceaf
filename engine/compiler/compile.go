package compiler

import (
	"context"
	"fmt"

	"github.com/mohae/deepcopy"

	"github.com/edgesim/edgesim/engine/descriptor"
	"github.com/edgesim/edgesim/engine/simulator"
	"github.com/edgesim/edgesim/pkg/logger"
)

// ServiceMock supplies the executable body for one mocked downstream
// service. At most one of Script and ScriptPath is meaningful.
type ServiceMock struct {
	Script     string
	ScriptPath string
}

// ServiceMocks maps service names to caller-supplied mocks. Consumed once
// per compilation, never persisted.
type ServiceMocks map[string]ServiceMock

// Compile turns a deployment descriptor into the simulator's configuration
// schema. It is a pure function of its inputs aside from diagnostic logging
// and never fails for a well-typed descriptor: missing optional keys are
// skipped, unrecognized keys are ignored.
func Compile(ctx context.Context, d descriptor.Descriptor, mocks ServiceMocks) (*simulator.Config, error) {
	log := logger.FromContext(ctx)

	primary := map[string]any{
		"name":     simulator.PrimaryWorkerName,
		"modules":  true,
		"bindings": map[string]any{},
	}

	if vars := d.GetMap("vars"); vars != nil {
		primary["bindings"] = deepcopy.Copy(vars)
	}
	if assets := d.GetMap("assets"); assets != nil {
		primary["assets"] = deepcopy.Copy(assets)
	}

	for _, rule := range Rules() {
		applyRule(rule, d, primary)
	}

	auxiliary, err := compileServices(d, mocks, primary, log)
	if err != nil {
		return nil, err
	}

	cfg := &simulator.Config{}
	primaryWorker, err := simulator.WorkerFromMap(primary)
	if err != nil {
		return nil, fmt.Errorf("failed to compile primary worker: %w", err)
	}
	cfg.Workers = append(cfg.Workers, primaryWorker)
	cfg.Workers = append(cfg.Workers, auxiliary...)

	if dev := d.GetMap("dev"); dev != nil {
		if port, ok := descriptor.Descriptor(dev).GetInt("port"); ok {
			host := descriptor.Descriptor(dev).GetString("hostname")
			if host == "" {
				host = "127.0.0.1"
			}
			cfg.Host = host
			cfg.Port = port
		}
	}

	return cfg, nil
}

// applyRule evaluates one mapping rule against the descriptor and writes the
// result into the worker document. Absent sources leave the document alone.
func applyRule(rule Rule, d descriptor.Descriptor, doc map[string]any) {
	switch rule.Kind {
	case KindDirect:
		if d.Has(rule.Source) {
			doc[rule.Target] = d[rule.Source]
		}
	case KindNameList:
		arr := d.GetArray(rule.Source)
		if len(arr) == 0 {
			return
		}
		names := make([]string, 0, len(arr))
		for _, item := range arr {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if name, ok := entry["binding"].(string); ok {
				names = append(names, name)
			}
		}
		doc[rule.Target] = names
	case KindKeyedObject:
		arr := descriptor.ResolveArray(d, rule.Source)
		if arr == nil {
			return
		}
		out := make(map[string]any, len(arr))
		for _, item := range arr {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			key, ok := entry[rule.KeyField].(string)
			if !ok {
				continue
			}
			if rule.StaticValue != nil {
				out[key] = deepcopy.Copy(rule.StaticValue)
			} else {
				out[key] = entry[rule.ValueField]
			}
		}
		doc[rule.Target] = out
	}
}

// compileServices builds the primary worker's service bindings plus one
// auxiliary worker per distinct downstream service, in descriptor order of
// first appearance. Services without a registered mock get a diagnostic 404
// stub.
func compileServices(
	d descriptor.Descriptor,
	mocks ServiceMocks,
	primary map[string]any,
	log logger.Logger,
) ([]*simulator.WorkerConfig, error) {
	entries := d.GetArray("services")
	if len(entries) == 0 {
		return nil, nil
	}

	serviceBindings := make(map[string]string, len(entries))
	var order []string
	seen := make(map[string]bool, len(entries))
	for _, item := range entries {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		binding, _ := entry["binding"].(string)
		service, _ := entry["service"].(string)
		if binding == "" || service == "" {
			continue
		}
		serviceBindings[binding] = service
		if !seen[service] {
			seen[service] = true
			order = append(order, service)
		}
	}
	if len(serviceBindings) == 0 {
		return nil, nil
	}
	primary["serviceBindings"] = serviceBindings

	workers := make([]*simulator.WorkerConfig, 0, len(order))
	for _, service := range order {
		worker := &simulator.WorkerConfig{Name: service, Modules: true}
		if mock, ok := mocks[service]; ok {
			worker.Script = mock.Script
			worker.ScriptPath = mock.ScriptPath
			log.Info("using registered service mock", "service", service)
		} else {
			script, err := DefaultMockScript(service)
			if err != nil {
				return nil, err
			}
			worker.Script = script
			log.Warn("no mock registered for service, responses will be 404", "service", service)
		}
		workers = append(workers, worker)
	}
	return workers, nil
}
