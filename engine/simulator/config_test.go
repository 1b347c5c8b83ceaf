package simulator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgesim/edgesim/engine/simulator"
)

func TestConfigValidate(t *testing.T) {
	t.Run("Should accept a minimal single-worker config", func(t *testing.T) {
		cfg := &simulator.Config{Workers: []*simulator.WorkerConfig{{Name: "main"}}}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Should reject an empty worker sequence", func(t *testing.T) {
		cfg := &simulator.Config{}
		assert.Error(t, cfg.Validate())
	})

	t.Run("Should reject duplicate worker names", func(t *testing.T) {
		cfg := &simulator.Config{Workers: []*simulator.WorkerConfig{
			{Name: "main"}, {Name: "main"},
		}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate worker name")
	})

	t.Run("Should reject service bindings to unknown workers", func(t *testing.T) {
		cfg := &simulator.Config{Workers: []*simulator.WorkerConfig{
			{Name: "main", ServiceBindings: map[string]string{"A": "ghost"}},
		}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ghost")
	})

	t.Run("Should reject a port without a host", func(t *testing.T) {
		cfg := &simulator.Config{
			Workers: []*simulator.WorkerConfig{{Name: "main"}},
			Port:    8787,
		}
		assert.Error(t, cfg.Validate())
	})

	t.Run("Should accept host plus port", func(t *testing.T) {
		cfg := &simulator.Config{
			Workers: []*simulator.WorkerConfig{{Name: "main"}},
			Host:    "127.0.0.1",
			Port:    8787,
		}
		assert.NoError(t, cfg.Validate())
	})
}

func TestFindWorker(t *testing.T) {
	cfg := &simulator.Config{Workers: []*simulator.WorkerConfig{
		{Name: "asset-router"}, {Name: "asset-store"}, {Name: "main"},
	}}

	t.Run("Should find workers by name regardless of position", func(t *testing.T) {
		require.NotNil(t, cfg.FindWorker("main"))
		assert.Equal(t, "main", cfg.FindWorker("main").Name)
		assert.Nil(t, cfg.FindWorker("ghost"))
	})

	t.Run("Should treat position zero as the entry point", func(t *testing.T) {
		assert.Equal(t, "asset-router", cfg.Entry().Name)
	})
}

func TestWorkerFromMap(t *testing.T) {
	t.Run("Should decode a rule-engine worker document", func(t *testing.T) {
		doc := map[string]any{
			"name":               "main",
			"modules":            true,
			"bindings":           map[string]any{"API_KEY": "x"},
			"scriptPath":         "src/index.js",
			"kvNamespaces":       []string{"KV"},
			"d1Databases":        map[string]any{"DB": "d1"},
			"compatibilityFlags": []any{"nodejs_compat"},
			"assets":             map[string]any{"binding": "ASSETS", "directory": "./public"},
		}
		w, err := simulator.WorkerFromMap(doc)
		require.NoError(t, err)
		assert.Equal(t, "main", w.Name)
		assert.True(t, w.Modules)
		assert.Equal(t, "src/index.js", w.ScriptPath)
		assert.Equal(t, []string{"KV"}, w.KVNamespaces)
		assert.Equal(t, map[string]string{"DB": "d1"}, w.D1Databases)
		assert.Equal(t, []string{"nodejs_compat"}, w.CompatibilityFlags)
		require.NotNil(t, w.Assets)
		assert.Equal(t, "ASSETS", w.Assets.Binding)
		assert.Equal(t, "./public", w.Assets.Directory)
	})

	t.Run("Should report whether a worker carries a body", func(t *testing.T) {
		assert.False(t, (&simulator.WorkerConfig{}).HasScript())
		assert.True(t, (&simulator.WorkerConfig{Script: "x"}).HasScript())
		assert.True(t, (&simulator.WorkerConfig{ScriptPath: "x"}).HasScript())
	})
}
