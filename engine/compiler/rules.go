package compiler

// RuleKind discriminates the three transformation classes the rule table
// supports.
type RuleKind int

const (
	// KindDirect copies a scalar or array value verbatim under a new name.
	KindDirect RuleKind = iota
	// KindNameList turns an array of objects into the ordered list of their
	// "binding" field values.
	KindNameList
	// KindKeyedObject turns an array of objects (possibly nested behind a
	// dotted path) into a mapping from each object's key field to either its
	// value field or a fixed constant. Key collisions overwrite, last wins.
	KindKeyedObject
)

// Rule is one declarative descriptor-to-worker transformation. Adding a new
// binding category is a new table row, not new control flow.
type Rule struct {
	Kind RuleKind

	// Source is a top-level descriptor key for Direct and NameList rules, or
	// a dotted path for KeyedObject rules.
	Source string
	// Target is the compiled worker field the rule writes.
	Target string

	// KeyField and ValueField drive KeyedObject rules. When StaticValue is
	// non-nil it is used instead of ValueField for every entry.
	KeyField    string
	ValueField  string
	StaticValue any
}

// Rules returns the mapping-rule table covering every binding category the
// compiler recognizes. Unlisted descriptor keys are ignored.
func Rules() []Rule {
	return []Rule{
		{Kind: KindDirect, Source: "main", Target: "scriptPath"},
		{Kind: KindDirect, Source: "compatibility_date", Target: "compatibilityDate"},
		{Kind: KindDirect, Source: "compatibility_flags", Target: "compatibilityFlags"},
		{Kind: KindNameList, Source: "kv_namespaces", Target: "kvNamespaces"},
		{Kind: KindNameList, Source: "r2_buckets", Target: "r2Buckets"},
		{Kind: KindKeyedObject, Source: "d1_databases", Target: "d1Databases", KeyField: "binding", ValueField: "database_id"},
		{Kind: KindKeyedObject, Source: "durable_objects.bindings", Target: "durableObjects", KeyField: "name", ValueField: "class_name"},
		{Kind: KindKeyedObject, Source: "queues.producers", Target: "queueProducers", KeyField: "binding", ValueField: "queue"},
		{Kind: KindKeyedObject, Source: "queues.consumers", Target: "queueConsumers", KeyField: "queue", StaticValue: map[string]any{}},
	}
}
