// Package contentschema validates memory content against per-namespace JSON
// Schemas. The registry is a static handler table built once at startup from
// configuration; there is no dynamic code loading.
package contentschema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Registry maps namespaces to compiled schemas. Namespaces without a
// registered schema accept any content.
type Registry struct {
	schemas map[string]*jsonschema.Schema
}

// NewRegistry compiles one schema per namespace from raw JSON Schema
// documents. Compilation failures name the offending namespace.
func NewRegistry(sources map[string]string) (*Registry, error) {
	compiler := jsonschema.NewCompiler()

	// Compile in a deterministic order so error reporting is stable.
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	schemas := make(map[string]*jsonschema.Schema, len(sources))
	for _, name := range names {
		url := "mem://" + name + ".json"
		if err := compiler.AddResource(url, strings.NewReader(sources[name])); err != nil {
			return nil, fmt.Errorf("contentschema: add schema for namespace %q: %w", name, err)
		}
		sch, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("contentschema: compile schema for namespace %q: %w", name, err)
		}
		schemas[name] = sch
	}

	return &Registry{schemas: schemas}, nil
}

// Validate checks content against the namespace's schema. Nil when the
// namespace has no registered schema.
func (r *Registry) Validate(namespace string, content map[string]any) error {
	if r == nil {
		return nil
	}
	sch, ok := r.schemas[namespace]
	if !ok {
		return nil
	}

	// jsonschema validates generic decoded JSON; map[string]any qualifies as
	// long as nested values are JSON-native, which holds for content decoded
	// from or destined for the content column.
	if err := sch.Validate(normalize(content)); err != nil {
		return fmt.Errorf("contentschema: namespace %q: %w", namespace, err)
	}
	return nil
}

// Namespaces returns the registered namespace names, sorted.
func (r *Registry) Namespaces() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// normalize rewrites values produced by Go callers (ints, []string, nested
// structs already decoded to maps) into the JSON-native shapes the validator
// expects.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}
