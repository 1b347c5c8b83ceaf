package compiler

import (
	"context"
	"fmt"

	"github.com/edgesim/edgesim/engine/simulator"
	"github.com/edgesim/edgesim/pkg/logger"
)

// ApplyAssetWorkaround rewrites the compiled worker sequence so that static
// assets and the primary worker's own handler coexist.
//
// The simulator's asset layer, once active on a worker, answers every request
// itself and 404s on a miss instead of yielding to the worker's handler. To
// get the intended "asset if present, else handler" order the workaround
// strips the asset config from the primary worker and chains three workers by
// service bindings instead:
//
//	router -> asset-store (hit: return store response)
//	       -> primary     (store 404: forward original request)
//
// The router is prepended at index 0 so it becomes the entry point. Callers
// that need the primary worker afterwards must look it up by name, not by
// position. A sequence whose first worker carries no assets is left
// untouched, which also makes the rewrite idempotent.
func ApplyAssetWorkaround(ctx context.Context, cfg *simulator.Config) error {
	if cfg == nil || len(cfg.Workers) == 0 {
		return nil
	}
	mainWorker := cfg.Workers[0]
	if mainWorker.Assets == nil {
		return nil
	}
	for _, w := range cfg.Workers {
		if w.Name == simulator.RouterWorkerName || w.Name == simulator.StoreWorkerName {
			return fmt.Errorf("worker name %q is reserved for the asset workaround", w.Name)
		}
	}

	assets := mainWorker.Assets
	mainWorker.Assets = nil

	storeScript, err := StoreScript()
	if err != nil {
		return err
	}
	routerScript, err := RouterScript()
	if err != nil {
		return err
	}

	store := &simulator.WorkerConfig{
		Name:               simulator.StoreWorkerName,
		Modules:            true,
		Script:             storeScript,
		SitePath:           assets.Directory,
		CompatibilityDate:  mainWorker.CompatibilityDate,
		CompatibilityFlags: mainWorker.CompatibilityFlags,
	}
	router := &simulator.WorkerConfig{
		Name:    simulator.RouterWorkerName,
		Modules: true,
		Script:  routerScript,
		ServiceBindings: map[string]string{
			routerStoreBinding:  store.Name,
			routerOriginBinding: mainWorker.Name,
		},
		CompatibilityDate:  mainWorker.CompatibilityDate,
		CompatibilityFlags: mainWorker.CompatibilityFlags,
	}

	// Code inside the primary worker keeps fetching assets through the
	// binding name it declared, now answered by the store worker.
	if assets.Binding != "" {
		if mainWorker.ServiceBindings == nil {
			mainWorker.ServiceBindings = make(map[string]string, 1)
		}
		mainWorker.ServiceBindings[assets.Binding] = store.Name
	}

	cfg.Workers = append([]*simulator.WorkerConfig{router, store}, cfg.Workers...)

	logger.FromContext(ctx).Debug(
		"asset workaround applied",
		"directory", assets.Directory,
		"binding", assets.Binding,
		"workers", len(cfg.Workers),
	)
	return nil
}
