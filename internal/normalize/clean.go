package normalize

import "github.com/roach88/guardgen/internal/ir"

// CleanUnion removes redundant members from a union:
//   - nested unions are spliced in and Bottom members dropped
//     (a union of only Bottom is Bottom)
//   - any or unknown absorbs every other member
//   - duplicates are removed, keeping the first occurrence
//   - true | false becomes boolean
//   - literals covered by a primitive of the same category are dropped
//   - object shapes covered by the object primitive are dropped
func CleanUnion(members []ir.Type) ir.Type {
	var flat []ir.Type
	var splice func(ts []ir.Type)
	splice = func(ts []ir.Type) {
		for _, m := range ts {
			switch v := m.(type) {
			case ir.Union:
				splice(v.Members)
			case ir.Bottom:
			default:
				flat = append(flat, m)
			}
		}
	}
	splice(members)
	if len(flat) == 0 {
		return ir.Bottom{}
	}

	var universal ir.Type
	for _, m := range flat {
		if p, ok := m.(ir.Primitive); ok && p.IsUniversal() {
			if universal == nil || p.Name == ir.Any {
				universal = p
			}
		}
	}
	if universal != nil {
		return universal
	}

	seen := make(map[string]bool)
	prims := make(map[ir.PrimitiveName]bool)
	var unique []ir.Type
	for _, m := range flat {
		key := ir.Key(m)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, m)
		if p, ok := m.(ir.Primitive); ok {
			prims[p.Name] = true
		}
	}

	if !prims[ir.Boolean] && seen[ir.Key(ir.Lit(true))] && seen[ir.Key(ir.Lit(false))] {
		merged := make([]ir.Type, 0, len(unique)-1)
		replaced := false
		for _, m := range unique {
			if isBoolLiteral(m) {
				if !replaced {
					merged = append(merged, ir.Prim(ir.Boolean))
					replaced = true
				}
				continue
			}
			merged = append(merged, m)
		}
		unique = merged
		prims[ir.Boolean] = true
	}

	out := unique[:0:0]
	for _, m := range unique {
		switch v := m.(type) {
		case ir.Literal:
			if prims[literalPrimitive(v)] {
				continue
			}
		case ir.ObjectShape:
			if prims[ir.Object] {
				continue
			}
		}
		out = append(out, m)
	}
	return ir.NewUnion(out...)
}

func isBoolLiteral(t ir.Type) bool {
	if l, ok := t.(ir.Literal); ok {
		_, isBool := l.Value.(bool)
		return isBool
	}
	return false
}

// literalPrimitive returns the primitive a literal value belongs to.
func literalPrimitive(l ir.Literal) ir.PrimitiveName {
	switch l.Value.(type) {
	case string:
		return ir.String
	case bool:
		return ir.Boolean
	}
	return ir.Number
}

// Clean applies CleanUnion when t is a union.
func Clean(t ir.Type) ir.Type {
	if u, ok := t.(ir.Union); ok {
		return CleanUnion(u.Members)
	}
	return t
}
