// Package config implements the configuration cascade: an immutable snapshot
// of a hierarchical mapping that is layered directory by directory and
// document by document during a build.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// reprLimit bounds the value representation included in overlay errors.
const reprLimit = 40

// Config is an immutable view of cascaded configuration. Every overlay
// returns a new Config; existing snapshots never change.
type Config struct {
	values map[string]any
	root   map[string]any
}

// New returns a Config whose root and cascaded namespaces are both the given
// mapping. The mapping is deep-copied.
func New(root map[string]any) *Config {
	values := deepCopyMap(root)
	return &Config{values: values, root: values}
}

// Empty returns a Config without any values.
func Empty() *Config {
	return New(nil)
}

// AddFromMapping returns a new Config whose values are the receiver's values
// overridden by layer. Nested mappings merge recursively while every other
// value, lists included, replaces the inherited one. A nil layer yields the
// receiver unchanged. Anything else that is not a mapping is a config error
// attributed to origin.
func (c *Config) AddFromMapping(layer any, origin string) (*Config, error) {
	if layer == nil {
		return c, nil
	}
	m, ok := asMapping(layer)
	if !ok {
		return nil, errors.ConfigError(fmt.Sprintf("expected mapping config in file %q, got: %s", origin, truncatedRepr(layer))).
			WithSource(origin).
			WithContext("value_type", fmt.Sprintf("%T", layer)).
			Build()
	}
	merged := deepCopyMap(c.values)
	mergeInto(merged, deepCopyMap(m))
	return &Config{values: merged, root: c.root}, nil
}

// AddFromFile layers a YAML file on top of the receiver. Empty files leave the
// receiver unchanged.
func (c *Config) AddFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read config file").
			WithSource(path).
			Build()
	}
	return c.AddFromYAML(data, path)
}

// AddFromYAML decodes data and layers it on top of the receiver.
func (c *Config) AddFromYAML(data []byte, origin string) (*Config, error) {
	var layer any
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse config").
			WithSource(origin).
			Build()
	}
	return c.AddFromMapping(layer, origin)
}

// Get looks key up in the cascaded namespace. Dotted keys walk nested
// mappings. def is returned when the key is absent.
func (c *Config) Get(key string, def any) any {
	return lookup(c.values, key, def)
}

// RootGet resolves key against the top-level configuration loaded at build
// start, ignoring every overlay applied since.
func (c *Config) RootGet(key string, def any) any {
	return lookup(c.root, key, def)
}

// Root returns a Config that only carries the root namespace.
func (c *Config) Root() *Config {
	return &Config{values: c.root, root: c.root}
}

// Has reports whether key is present in the cascaded namespace.
func (c *Config) Has(key string) bool {
	_, ok := find(c.values, key)
	return ok
}

// Values returns a deep copy of the cascaded namespace.
func (c *Config) Values() map[string]any {
	return deepCopyMap(c.values)
}

// String returns the value at key rendered as a string.
func (c *Config) String(key, def string) string {
	v, ok := find(c.values, key)
	if !ok || v == nil {
		return def
	}
	switch s := v.(type) {
	case string:
		return s
	case time.Time:
		return s.Format(time.RFC3339)
	default:
		return fmt.Sprint(s)
	}
}

// Bool returns the boolean at key. Non-boolean values yield def.
func (c *Config) Bool(key string, def bool) bool {
	v, ok := find(c.values, key)
	if !ok {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// Int returns the integer at key. Floats are truncated.
func (c *Config) Int(key string, def int) int {
	v, ok := find(c.values, key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

// Float returns the number at key as float64.
func (c *Config) Float(key string, def float64) float64 {
	v, ok := find(c.values, key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return def
	}
}

// StringSlice returns the list at key with every element rendered as a
// string. A scalar string is treated as a one-element list.
func (c *Config) StringSlice(key string) []string {
	v, ok := find(c.values, key)
	if !ok || v == nil {
		return nil
	}
	switch list := v.(type) {
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return append([]string(nil), list...)
	case string:
		return []string{list}
	default:
		return nil
	}
}

// Mapping returns a deep copy of the mapping at key, or nil.
func (c *Config) Mapping(key string) map[string]any {
	v, ok := find(c.values, key)
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return deepCopyMap(m)
}

// Keys returns the sorted keys of the mapping at key. An empty key lists the
// top level.
func (c *Config) Keys(key string) []string {
	m := c.values
	if key != "" {
		v, ok := find(c.values, key)
		if !ok {
			return nil
		}
		if m, ok = v.(map[string]any); !ok {
			return nil
		}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lookup(m map[string]any, key string, def any) any {
	v, ok := find(m, key)
	if !ok {
		return def
	}
	return deepCopyValue(v)
}

// find resolves an exact key first so that keys which contain dots keep
// working, then walks the dotted path.
func find(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	parts := strings.Split(key, ".")
	if len(parts) == 1 {
		return nil, false
	}
	var cur any = m
	for _, part := range parts {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = node[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		if srcMap, ok := v.(map[string]any); ok {
			if dstMap, ok := dst[k].(map[string]any); ok {
				mergeInto(dstMap, srcMap)
				continue
			}
		}
		dst[k] = deepCopyValue(v)
	}
}

func asMapping(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		return convertAnyMap(m), true
	default:
		return nil, false
	}
}

func convertAnyMap(m map[any]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[fmt.Sprint(k)] = v
	}
	return out
}

// deepCopyMap copies m recursively, rewriting map[any]any values into
// map[string]any so merge and lookup only deal with one mapping type.
func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case map[any]any:
		return deepCopyMap(convertAnyMap(t))
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = deepCopyValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

func truncatedRepr(v any) string {
	s := fmt.Sprintf("%#v", v)
	if r := []rune(s); len(r) > reprLimit {
		return string(r[:reprLimit])
	}
	return s
}
