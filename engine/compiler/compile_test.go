package compiler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgesim/edgesim/engine/compiler"
	"github.com/edgesim/edgesim/engine/descriptor"
)

func TestCompile(t *testing.T) {
	ctx := context.Background()

	t.Run("Should compile an empty descriptor to a single bare main worker", func(t *testing.T) {
		cfg, err := compiler.Compile(ctx, descriptor.Descriptor{}, nil)
		require.NoError(t, err)
		require.Len(t, cfg.Workers, 1)
		w := cfg.Workers[0]
		assert.Equal(t, "main", w.Name)
		assert.True(t, w.Modules)
		assert.Empty(t, w.Bindings)
		assert.Empty(t, w.Script)
		assert.Empty(t, w.ScriptPath)
		assert.Zero(t, cfg.Port)
		assert.Empty(t, cfg.Host)
	})

	t.Run("Should copy vars into primary bindings exactly", func(t *testing.T) {
		d := descriptor.Descriptor{"vars": map[string]any{"API_KEY": "x"}}
		cfg, err := compiler.Compile(ctx, d, nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"API_KEY": "x"}, cfg.Workers[0].Bindings)
	})

	t.Run("Should apply direct rules", func(t *testing.T) {
		d := descriptor.Descriptor{
			"main":                "src/index.js",
			"compatibility_date":  "2024-01-01",
			"compatibility_flags": []any{"nodejs_compat"},
		}
		cfg, err := compiler.Compile(ctx, d, nil)
		require.NoError(t, err)
		w := cfg.Workers[0]
		assert.Equal(t, "src/index.js", w.ScriptPath)
		assert.Equal(t, "2024-01-01", w.CompatibilityDate)
		assert.Equal(t, []string{"nodejs_compat"}, w.CompatibilityFlags)
	})

	t.Run("Should reduce kv namespaces to a name list preserving order", func(t *testing.T) {
		d := descriptor.Descriptor{
			"kv_namespaces": []any{
				map[string]any{"binding": "KV", "id": "i"},
				map[string]any{"binding": "CACHE", "id": "j"},
			},
		}
		cfg, err := compiler.Compile(ctx, d, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"KV", "CACHE"}, cfg.Workers[0].KVNamespaces)
	})

	t.Run("Should reduce r2 buckets to a name list", func(t *testing.T) {
		d := descriptor.Descriptor{
			"r2_buckets": []any{map[string]any{"binding": "FILES", "bucket_name": "files"}},
		}
		cfg, err := compiler.Compile(ctx, d, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"FILES"}, cfg.Workers[0].R2Buckets)
	})

	t.Run("Should key d1 databases by binding", func(t *testing.T) {
		d := descriptor.Descriptor{
			"d1_databases": []any{map[string]any{"binding": "DB", "database_id": "d1"}},
		}
		cfg, err := compiler.Compile(ctx, d, nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"DB": "d1"}, cfg.Workers[0].D1Databases)
	})

	t.Run("Should resolve durable object bindings behind their nested path", func(t *testing.T) {
		d := descriptor.Descriptor{
			"durable_objects": map[string]any{
				"bindings": []any{map[string]any{"name": "COUNTER", "class_name": "Counter"}},
			},
		}
		cfg, err := compiler.Compile(ctx, d, nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"COUNTER": "Counter"}, cfg.Workers[0].DurableObjects)
	})

	t.Run("Should map queue producers and consumers", func(t *testing.T) {
		d := descriptor.Descriptor{
			"queues": map[string]any{
				"producers": []any{map[string]any{"binding": "JOBS", "queue": "jobs"}},
				"consumers": []any{map[string]any{"queue": "jobs"}},
			},
		}
		cfg, err := compiler.Compile(ctx, d, nil)
		require.NoError(t, err)
		w := cfg.Workers[0]
		assert.Equal(t, map[string]string{"JOBS": "jobs"}, w.QueueProducers)
		require.Contains(t, w.QueueConsumers, "jobs")
	})

	t.Run("Should set host and port from dev block with defaulted hostname", func(t *testing.T) {
		d := descriptor.Descriptor{"dev": map[string]any{"port": 8787}}
		cfg, err := compiler.Compile(ctx, d, nil)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", cfg.Host)
		assert.Equal(t, 8787, cfg.Port)
	})

	t.Run("Should honor an explicit dev hostname", func(t *testing.T) {
		d := descriptor.Descriptor{"dev": map[string]any{"port": int64(9000), "hostname": "0.0.0.0"}}
		cfg, err := compiler.Compile(ctx, d, nil)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", cfg.Host)
		assert.Equal(t, 9000, cfg.Port)
	})

	t.Run("Should ignore unrecognized keys", func(t *testing.T) {
		d := descriptor.Descriptor{"name": "my-worker", "workers_dev": true}
		cfg, err := compiler.Compile(ctx, d, nil)
		require.NoError(t, err)
		require.Len(t, cfg.Workers, 1)
	})
}

func TestCompileServices(t *testing.T) {
	ctx := context.Background()
	servicesDescriptor := descriptor.Descriptor{
		"services": []any{
			map[string]any{"binding": "A", "service": "svc1"},
			map[string]any{"binding": "B", "service": "svc2"},
		},
	}

	t.Run("Should synthesize default workers for unmocked services", func(t *testing.T) {
		cfg, err := compiler.Compile(ctx, servicesDescriptor, nil)
		require.NoError(t, err)
		require.Len(t, cfg.Workers, 3)
		assert.Equal(t, map[string]string{"A": "svc1", "B": "svc2"}, cfg.Workers[0].ServiceBindings)
		assert.Equal(t, "svc1", cfg.Workers[1].Name)
		assert.Equal(t, "svc2", cfg.Workers[2].Name)
		for _, w := range cfg.Workers[1:] {
			assert.Contains(t, w.Script, "no mock registered")
			assert.Contains(t, w.Script, "404")
		}
	})

	t.Run("Should use a registered mock verbatim", func(t *testing.T) {
		mockScript := `module.exports = { fetch: function () { return new Response("mocked", { status: 200 }); } };`
		mocks := compiler.ServiceMocks{"svc1": {Script: mockScript}}
		cfg, err := compiler.Compile(ctx, servicesDescriptor, mocks)
		require.NoError(t, err)
		require.Len(t, cfg.Workers, 3)
		assert.Equal(t, mockScript, cfg.Workers[1].Script)
		assert.NotEqual(t, mockScript, cfg.Workers[2].Script)
		assert.NotEmpty(t, cfg.Workers[2].Script)
	})

	t.Run("Should create one worker per distinct service", func(t *testing.T) {
		d := descriptor.Descriptor{
			"services": []any{
				map[string]any{"binding": "A", "service": "svc1"},
				map[string]any{"binding": "B", "service": "svc1"},
			},
		}
		cfg, err := compiler.Compile(ctx, d, nil)
		require.NoError(t, err)
		require.Len(t, cfg.Workers, 2)
		assert.Equal(t, map[string]string{"A": "svc1", "B": "svc1"}, cfg.Workers[0].ServiceBindings)
	})

	t.Run("Should let a later duplicate binding win", func(t *testing.T) {
		d := descriptor.Descriptor{
			"services": []any{
				map[string]any{"binding": "A", "service": "svc1"},
				map[string]any{"binding": "A", "service": "svc2"},
			},
		}
		cfg, err := compiler.Compile(ctx, d, nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"A": "svc2"}, cfg.Workers[0].ServiceBindings)
		require.Len(t, cfg.Workers, 3)
	})
}
