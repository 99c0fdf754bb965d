package object

import (
	"sort"
	"strings"
)

// Hash is a mutable string-keyed container.
type Hash struct {
	items map[string]Object
}

// NewHash creates a hash holding the given items. The map is used
// directly, not copied. Pass nil for an empty hash.
func NewHash(items map[string]Object) *Hash {
	if items == nil {
		items = map[string]Object{}
	}
	return &Hash{items: items}
}

func (h *Hash) Type() Type { return HASH }

// Inspect renders keys in sorted order so output is deterministic.
func (h *Hash) Inspect() string {
	keys := h.SortedKeys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" => "+h.items[k].Inspect())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (h *Hash) Interface() any {
	items := make(map[string]any, len(h.items))
	for k, v := range h.items {
		items[k] = v.Interface()
	}
	return items
}

// IsTruthy is true for any hash reference, matching Perl reference
// semantics.
func (h *Hash) IsTruthy() bool { return true }

func (h *Hash) Equals(other Object) bool {
	otherHash, ok := other.(*Hash)
	return ok && h == otherHash
}

// Len returns the number of keys.
func (h *Hash) Len() int { return len(h.items) }

// Get returns the value for key, or Undef when absent.
func (h *Hash) Get(key string) Object {
	if v, ok := h.items[key]; ok {
		return v
	}
	return Undef
}

// Set stores value under key.
func (h *Hash) Set(key string, value Object) {
	h.items[key] = value
}

// Exists reports whether key is present, even if its value is undef.
func (h *Hash) Exists(key string) bool {
	_, ok := h.items[key]
	return ok
}

// Delete removes key and returns its former value, or Undef when absent.
func (h *Hash) Delete(key string) Object {
	v, ok := h.items[key]
	if !ok {
		return Undef
	}
	delete(h.items, key)
	return v
}

// SortedKeys returns all keys in sorted order.
func (h *Hash) SortedKeys() []string {
	keys := make([]string, 0, len(h.items))
	for k := range h.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
