package ir

import (
	"fmt"
	"strings"
)

// Snapshot converts t into a plain JSON-compatible value (maps, slices,
// strings, numbers, bools). It is the literal IR form used for keys and
// for the "type-ir" expected-value format.
func Snapshot(t Type) any {
	switch n := t.(type) {
	case nil:
		return nil
	case Primitive:
		return map[string]any{"kind": "primitive", "name": string(n.Name)}
	case Literal:
		return map[string]any{"kind": "literal", "value": n.Value}
	case Union:
		return map[string]any{"kind": "union", "members": snapshotAll(n.Members)}
	case Intersection:
		return map[string]any{"kind": "intersection", "members": snapshotAll(n.Members)}
	case Tuple:
		m := map[string]any{
			"kind":          "tuple",
			"elements":      snapshotAll(n.Elements),
			"firstOptional": n.FirstOptional,
		}
		if n.Rest != nil {
			m["rest"] = Snapshot(n.Rest)
		}
		return m
	case ObjectShape:
		props := make([]any, len(n.Properties))
		for i, p := range n.Properties {
			props[i] = map[string]any{"key": p.Key, "optional": p.Optional, "value": Snapshot(p.Value)}
		}
		m := map[string]any{"kind": "object", "properties": props}
		if n.StringIndex != nil {
			m["stringIndex"] = Snapshot(n.StringIndex)
		}
		if n.NumberIndex != nil {
			m["numberIndex"] = Snapshot(n.NumberIndex)
		}
		return m
	case Container:
		return map[string]any{"kind": "container", "container": string(n.Kind), "elements": snapshotAll(n.Elements)}
	case Reference:
		return map[string]any{"kind": "reference", "name": n.Name, "args": snapshotAll(n.Args)}
	case Param:
		return map[string]any{"kind": "param", "index": n.Index}
	case Handle:
		return map[string]any{"kind": "instance", "key": n.Key}
	case Bottom:
		return map[string]any{"kind": "bottom"}
	default:
		panic(fmt.Sprintf("ir: unknown node %T (this should not happen)", t))
	}
}

func snapshotAll(ts []Type) []any {
	out := make([]any, len(ts))
	for i, t := range ts {
		out[i] = Snapshot(t)
	}
	return out
}

// Key returns the deterministic structural key of t.
// Structurally identical trees always produce the same key.
func Key(t Type) string {
	data, err := MarshalCanonical(Snapshot(t))
	if err != nil {
		// Snapshot only emits canonical-safe values; a literal NaN is the
		// only way to get here.
		panic(fmt.Sprintf("ir: key for %T: %v (this should not happen)", t, err))
	}
	return string(data)
}

// InstanceKey returns the canonical instantiation key for name applied
// to args. Args must already be instantiated.
func InstanceKey(name string, args []Type) string {
	if len(args) == 0 {
		return name
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = Key(a)
	}
	return name + "<" + strings.Join(parts, ",") + ">"
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b Type) bool {
	return Key(a) == Key(b)
}
