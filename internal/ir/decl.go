package ir

import "sort"

// DeclKind identifies how a named declaration is treated by the resolver.
type DeclKind string

// Declaration kinds.
const (
	// KindInterface declarations are structural boundaries: references to
	// them are never inlined by the resolver.
	KindInterface DeclKind = "interface"
	// KindAlias declarations are inlined by the resolver.
	KindAlias DeclKind = "alias"
	// KindContainer is used by the builtin Array, Map and Set declarations.
	KindContainer DeclKind = "container"
)

// Declaration is a named, possibly generic, type declaration.
// It is top-level only and never appears inside a Type tree.
type Declaration struct {
	Name     string
	Kind     DeclKind
	Params   []string
	Defaults []Type // Defaults[i] is nil when parameter i has no default
	Body     Type
}

// ParamCount returns the number of type parameters.
func (d *Declaration) ParamCount() int {
	return len(d.Params)
}

// RequiredParams returns the number of leading parameters without defaults.
func (d *Declaration) RequiredParams() int {
	n := 0
	for i := range d.Params {
		if i < len(d.Defaults) && d.Defaults[i] != nil {
			break
		}
		n++
	}
	return n
}

// Default returns the default for parameter i, or nil.
func (d *Declaration) Default(i int) Type {
	if i < len(d.Defaults) {
		return d.Defaults[i]
	}
	return nil
}

// Instance is one memoized instantiation of a named declaration.
type Instance struct {
	Key         string
	Name        string
	Args        []Type
	Body        Type
	Stats       map[string]int // occurrence counts of instances reached from Body
	Occurrences int            // reference sites across all requests of the session
	Circular    bool
	Normalized  bool
}

// InstanceTable memoizes instantiations by canonical key.
// It is owned by a single compilation session and is not safe for
// concurrent use on its own; the session serializes access.
type InstanceTable struct {
	entries map[string]*Instance
	order   []string
}

// NewInstanceTable creates an empty table.
func NewInstanceTable() *InstanceTable {
	return &InstanceTable{entries: make(map[string]*Instance)}
}

// Get returns the instance for key.
func (t *InstanceTable) Get(key string) (*Instance, bool) {
	inst, ok := t.entries[key]
	return inst, ok
}

// Put records an instance. Re-putting an existing key replaces the entry
// but keeps its original position.
func (t *InstanceTable) Put(inst *Instance) {
	if _, exists := t.entries[inst.Key]; !exists {
		t.order = append(t.order, inst.Key)
	}
	t.entries[inst.Key] = inst
}

// Len returns the number of instances.
func (t *InstanceTable) Len() int {
	return len(t.order)
}

// Keys returns instance keys in insertion order.
func (t *InstanceTable) Keys() []string {
	keys := make([]string, len(t.order))
	copy(keys, t.order)
	return keys
}

// SortedKeys returns instance keys in lexical order.
func (t *InstanceTable) SortedKeys() []string {
	keys := t.Keys()
	sort.Strings(keys)
	return keys
}

// Deref returns the body behind a handle, or t itself for any other node.
func (t *InstanceTable) Deref(typ Type) (Type, bool) {
	h, ok := typ.(Handle)
	if !ok {
		return typ, true
	}
	inst, ok := t.entries[h.Key]
	if !ok {
		return nil, false
	}
	return inst.Body, true
}
