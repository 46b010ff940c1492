package ir

// Map rebuilds t bottom-up, applying fn to every node after its children
// have been rebuilt. fn returns the replacement node. Nodes that fn leaves
// unchanged are still copied, so the result never aliases slices of t.
func Map(t Type, fn func(Type) Type) Type {
	if t == nil {
		return nil
	}
	return fn(mapChildren(t, func(c Type) Type { return Map(c, fn) }))
}

// MapErr is like Map but fn may fail; the first error stops the rebuild.
func MapErr(t Type, fn func(Type) (Type, error)) (Type, error) {
	if t == nil {
		return nil, nil
	}
	var firstErr error
	rebuilt := mapChildren(t, func(c Type) Type {
		if firstErr != nil {
			return c
		}
		out, err := MapErr(c, fn)
		if err != nil {
			firstErr = err
			return c
		}
		return out
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return fn(rebuilt)
}

// MapChildren rebuilds only the direct children of t using fn.
func MapChildren(t Type, fn func(Type) Type) Type {
	return mapChildren(t, fn)
}

func mapChildren(t Type, fn func(Type) Type) Type {
	switch n := t.(type) {
	case Union:
		return Union{Members: mapSlice(n.Members, fn)}
	case Intersection:
		return Intersection{Members: mapSlice(n.Members, fn)}
	case Tuple:
		out := Tuple{Elements: mapSlice(n.Elements, fn), FirstOptional: n.FirstOptional}
		if n.Rest != nil {
			out.Rest = fn(n.Rest)
		}
		return out
	case ObjectShape:
		out := ObjectShape{Properties: make([]Property, len(n.Properties))}
		for i, p := range n.Properties {
			out.Properties[i] = Property{Key: p.Key, Optional: p.Optional, Value: fn(p.Value)}
		}
		if n.StringIndex != nil {
			out.StringIndex = fn(n.StringIndex)
		}
		if n.NumberIndex != nil {
			out.NumberIndex = fn(n.NumberIndex)
		}
		return out
	case Container:
		return Container{Kind: n.Kind, Elements: mapSlice(n.Elements, fn)}
	case Reference:
		return Reference{Name: n.Name, Args: mapSlice(n.Args, fn)}
	default:
		return t
	}
}

func mapSlice(ts []Type, fn func(Type) Type) []Type {
	if ts == nil {
		return nil
	}
	out := make([]Type, len(ts))
	for i, c := range ts {
		out[i] = fn(c)
	}
	return out
}

// Walk visits t and its descendants in pre-order. Returning false from
// visit skips the children of that node.
func Walk(t Type, visit func(Type) bool) {
	if t == nil || !visit(t) {
		return
	}
	switch n := t.(type) {
	case Union:
		for _, m := range n.Members {
			Walk(m, visit)
		}
	case Intersection:
		for _, m := range n.Members {
			Walk(m, visit)
		}
	case Tuple:
		for _, e := range n.Elements {
			Walk(e, visit)
		}
		Walk(n.Rest, visit)
	case ObjectShape:
		for _, p := range n.Properties {
			Walk(p.Value, visit)
		}
		Walk(n.StringIndex, visit)
		Walk(n.NumberIndex, visit)
	case Container:
		for _, e := range n.Elements {
			Walk(e, visit)
		}
	case Reference:
		for _, a := range n.Args {
			Walk(a, visit)
		}
	}
}

// Substitute replaces every Param in t with the argument at its index.
// Params without a matching argument are left in place.
func Substitute(t Type, args []Type) Type {
	return Map(t, func(n Type) Type {
		if p, ok := n.(Param); ok && p.Index < len(args) && args[p.Index] != nil {
			return args[p.Index]
		}
		return n
	})
}

// ContainsParam reports whether any Param occurs in t.
func ContainsParam(t Type) bool {
	found := false
	Walk(t, func(n Type) bool {
		if _, ok := n.(Param); ok {
			found = true
		}
		return !found
	})
	return found
}

// ReferencedNames returns the distinct Reference names in t, in order of
// first appearance.
func ReferencedNames(t Type) []string {
	var names []string
	seen := make(map[string]bool)
	Walk(t, func(n Type) bool {
		if r, ok := n.(Reference); ok && !seen[r.Name] {
			seen[r.Name] = true
			names = append(names, r.Name)
		}
		return true
	})
	return names
}
