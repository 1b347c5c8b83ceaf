package simulator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// Reserved names used by the asset-fallback topology. Descriptor-declared
// services must not collide with them.
const (
	PrimaryWorkerName = "main"
	RouterWorkerName  = "asset-router"
	StoreWorkerName   = "asset-store"
)

// AssetsConfig mirrors the descriptor's assets block. It survives on a
// WorkerConfig only until the asset workaround consumes it.
type AssetsConfig struct {
	Binding   string `json:"binding,omitempty"   mapstructure:"binding"`
	Directory string `json:"directory,omitempty" mapstructure:"directory"`
}

// WorkerConfig describes one simulated request-handling unit.
type WorkerConfig struct {
	Name               string            `json:"name"                         mapstructure:"name"               validate:"required"`
	Modules            bool              `json:"modules"                      mapstructure:"modules"`
	Bindings           map[string]any    `json:"bindings,omitempty"           mapstructure:"bindings"`
	Script             string            `json:"script,omitempty"             mapstructure:"script"`
	ScriptPath         string            `json:"scriptPath,omitempty"         mapstructure:"scriptPath"`
	Assets             *AssetsConfig     `json:"assets,omitempty"             mapstructure:"assets"`
	KVNamespaces       []string          `json:"kvNamespaces,omitempty"       mapstructure:"kvNamespaces"`
	R2Buckets          []string          `json:"r2Buckets,omitempty"          mapstructure:"r2Buckets"`
	D1Databases        map[string]string `json:"d1Databases,omitempty"        mapstructure:"d1Databases"`
	DurableObjects     map[string]string `json:"durableObjects,omitempty"     mapstructure:"durableObjects"`
	QueueProducers     map[string]string `json:"queueProducers,omitempty"     mapstructure:"queueProducers"`
	QueueConsumers     map[string]any    `json:"queueConsumers,omitempty"     mapstructure:"queueConsumers"`
	ServiceBindings    map[string]string `json:"serviceBindings,omitempty"    mapstructure:"serviceBindings"`
	CompatibilityDate  string            `json:"compatibilityDate,omitempty"  mapstructure:"compatibilityDate"`
	CompatibilityFlags []string          `json:"compatibilityFlags,omitempty" mapstructure:"compatibilityFlags"`
	SitePath           string            `json:"sitePath,omitempty"           mapstructure:"sitePath"`
}

// HasScript reports whether the worker carries an executable body.
func (w *WorkerConfig) HasScript() bool {
	return w.Script != "" || w.ScriptPath != ""
}

// Config is the compiled configuration consumed by the simulator constructor.
// Worker order is significant: the element at index 0 is the entry point for
// all inbound traffic.
type Config struct {
	Workers []*WorkerConfig `json:"workers"        validate:"required,min=1,dive,required"`
	Host    string          `json:"host,omitempty"`
	Port    int             `json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
}

// FindWorker looks a worker up by name. Callers that need "the main worker"
// after asset synthesis must use this rather than position 0.
func (c *Config) FindWorker(name string) *WorkerConfig {
	for _, w := range c.Workers {
		if w.Name == name {
			return w
		}
	}
	return nil
}

// Entry returns the worker all inbound traffic is dispatched to.
func (c *Config) Entry() *WorkerConfig {
	if len(c.Workers) == 0 {
		return nil
	}
	return c.Workers[0]
}

var validate = validator.New()

// Validate checks struct-level constraints plus the cross-worker invariants:
// unique worker names, service bindings that resolve within the sequence, and
// host defaulted whenever a port is set.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid simulator config: %w", err)
	}
	if c.Port != 0 && c.Host == "" {
		return fmt.Errorf("invalid simulator config: port %d set without a host", c.Port)
	}
	seen := make(map[string]bool, len(c.Workers))
	for _, w := range c.Workers {
		if seen[w.Name] {
			return fmt.Errorf("invalid simulator config: duplicate worker name %q", w.Name)
		}
		seen[w.Name] = true
	}
	for _, w := range c.Workers {
		for binding, target := range w.ServiceBindings {
			if !seen[target] {
				return fmt.Errorf(
					"invalid simulator config: worker %q service binding %q references unknown worker %q",
					w.Name, binding, target,
				)
			}
		}
	}
	return nil
}

// WorkerFromMap decodes a loosely-typed worker document (as assembled by the
// binding compiler's rule engine) into a WorkerConfig. Numeric and slice
// values are coerced the same way the descriptor parsers produce them.
func WorkerFromMap(doc map[string]any) (*WorkerConfig, error) {
	var w WorkerConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &w,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build worker decoder: %w", err)
	}
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode worker config: %w", err)
	}
	return &w, nil
}
