package simulator

import (
	"sort"
	"sync"

	"github.com/dop251/goja"
)

// memoryStore is the in-memory backing for KV namespaces, R2 buckets and
// site content.
type memoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (s *memoryStore) get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *memoryStore) put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *memoryStore) delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (s *memoryStore) list() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KVNamespace is the Go-facing handle for a simulated KV namespace.
type KVNamespace struct {
	Binding string
	store   *memoryStore
}

func (n *KVNamespace) Get(key string) (string, bool) { return n.store.get(key) }
func (n *KVNamespace) Put(key, value string)         { n.store.put(key, value) }
func (n *KVNamespace) Delete(key string)             { n.store.delete(key) }
func (n *KVNamespace) List() []string                { return n.store.list() }

// R2Bucket is the Go-facing handle for a simulated R2 bucket.
type R2Bucket struct {
	Binding string
	store   *memoryStore
}

func (b *R2Bucket) Get(key string) (string, bool) { return b.store.get(key) }
func (b *R2Bucket) Put(key, value string)         { b.store.put(key, value) }
func (b *R2Bucket) List() []string                { return b.store.list() }

// D1Database is a placeholder handle: the simulator knows the database id
// but executes no SQL.
type D1Database struct {
	Binding    string
	DatabaseID string
}

// DurableObjectNamespace is a placeholder handle exposing the bound class
// name.
type DurableObjectNamespace struct {
	Binding   string
	ClassName string
}

// QueueProducer appends messages to the simulator's in-memory queue.
type QueueProducer struct {
	Binding string
	Queue   string
	sim     *Simulator
}

func (p *QueueProducer) Send(msg any) {
	p.sim.enqueue(p.Queue, msg)
}

// ServiceBinding dispatches requests into another worker of the same
// simulator.
type ServiceBinding struct {
	Binding string
	Target  string
	sim     *Simulator
}

func (b *ServiceBinding) Fetch(req *Request) (*Response, error) {
	return b.sim.dispatch(b.Target, req)
}

// buildEnv materializes a worker's bindings into the env object its script
// receives on every fetch.
func (s *Simulator) buildEnv(rt *goja.Runtime, w *WorkerConfig, site *siteContent) *goja.Object {
	env := rt.NewObject()

	for k, v := range w.Bindings {
		_ = env.Set(k, v)
	}

	for _, name := range w.KVNamespaces {
		store := s.kvStore(name)
		kv := rt.NewObject()
		_ = kv.Set("get", func(key string) any {
			if v, ok := store.get(key); ok {
				return v
			}
			return nil
		})
		_ = kv.Set("put", func(key, value string) { store.put(key, value) })
		_ = kv.Set("delete", func(key string) { store.delete(key) })
		_ = kv.Set("list", func() []string { return store.list() })
		_ = env.Set(name, kv)
	}

	for _, name := range w.R2Buckets {
		store := s.r2Store(name)
		bucket := rt.NewObject()
		_ = bucket.Set("get", func(key string) any {
			if v, ok := store.get(key); ok {
				return v
			}
			return nil
		})
		_ = bucket.Set("put", func(key, value string) { store.put(key, value) })
		_ = bucket.Set("list", func() []string { return store.list() })
		_ = env.Set(name, bucket)
	}

	for binding, id := range w.D1Databases {
		db := rt.NewObject()
		_ = db.Set("databaseId", id)
		_ = db.Set("prepare", func(goja.FunctionCall) goja.Value {
			panic(rt.NewTypeError("D1 queries are not supported by the simulator"))
		})
		_ = env.Set(binding, db)
	}

	for binding, class := range w.DurableObjects {
		ns := rt.NewObject()
		_ = ns.Set("className", class)
		_ = ns.Set("idFromName", func(name string) string { return name })
		_ = ns.Set("get", func(id string) map[string]any {
			return map[string]any{"id": id}
		})
		_ = env.Set(binding, ns)
	}

	for binding, queue := range w.QueueProducers {
		queueName := queue
		producer := rt.NewObject()
		_ = producer.Set("send", func(msg any) { s.enqueue(queueName, msg) })
		_ = env.Set(binding, producer)
	}

	for binding, target := range w.ServiceBindings {
		targetName := target
		svc := rt.NewObject()
		_ = svc.Set("fetch", func(call goja.FunctionCall) goja.Value {
			req := requestFromValue(call.Argument(0))
			res, err := s.dispatch(targetName, req)
			if err != nil {
				panic(rt.NewGoError(err))
			}
			return rt.ToValue(res.toMap())
		})
		_ = env.Set(binding, svc)
	}

	if site != nil {
		_ = env.Set("__STATIC_CONTENT_MANIFEST", site.manifest)
		_ = env.Set("__STATIC_CONTENT_TYPES", site.types)
		content := rt.NewObject()
		_ = content.Set("get", func(key string) any {
			if v, ok := site.content.get(key); ok {
				return v
			}
			return nil
		})
		_ = env.Set("__STATIC_CONTENT", content)
	}

	return env
}

// BindingHandles resolves a worker's bindings into Go-facing handles, keyed
// by binding name. Plain vars appear as their values.
func (s *Simulator) BindingHandles(workerName string) map[string]any {
	w := s.cfg.FindWorker(workerName)
	if w == nil {
		return nil
	}
	handles := make(map[string]any)
	for k, v := range w.Bindings {
		handles[k] = v
	}
	for _, name := range w.KVNamespaces {
		handles[name] = &KVNamespace{Binding: name, store: s.kvStore(name)}
	}
	for _, name := range w.R2Buckets {
		handles[name] = &R2Bucket{Binding: name, store: s.r2Store(name)}
	}
	for binding, id := range w.D1Databases {
		handles[binding] = &D1Database{Binding: binding, DatabaseID: id}
	}
	for binding, class := range w.DurableObjects {
		handles[binding] = &DurableObjectNamespace{Binding: binding, ClassName: class}
	}
	for binding, queue := range w.QueueProducers {
		handles[binding] = &QueueProducer{Binding: binding, Queue: queue, sim: s}
	}
	for binding, target := range w.ServiceBindings {
		handles[binding] = &ServiceBinding{Binding: binding, Target: target, sim: s}
	}
	return handles
}
