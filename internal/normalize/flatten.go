package normalize

import (
	"sort"

	"github.com/roach88/guardgen/internal/diag"
	"github.com/roach88/guardgen/internal/ir"
)

// MaxLeaves bounds the number of distinct leaves of one union or
// intersection. Flattening enumerates 2^n assignments.
const MaxLeaves = 20

// boolExpr is the boolean view of a union/intersection tree.
type boolExpr struct {
	and  bool
	leaf int // bit index when kids is nil
	kids []boolExpr
}

func (e boolExpr) eval(mask uint32) bool {
	if e.kids == nil {
		return mask&(1<<e.leaf) != 0
	}
	if e.and {
		for _, k := range e.kids {
			if !k.eval(mask) {
				return false
			}
		}
		return true
	}
	for _, k := range e.kids {
		if k.eval(mask) {
			return true
		}
	}
	return false
}

type leafSet struct {
	leaves []ir.Type
	keys   []string
	index  map[string]int
	dup    bool
}

func (s *leafSet) add(t ir.Type) int {
	key := ir.Key(t)
	if i, ok := s.index[key]; ok {
		s.dup = true
		return i
	}
	i := len(s.leaves)
	s.index[key] = i
	s.leaves = append(s.leaves, t)
	s.keys = append(s.keys, key)
	return i
}

// Flatten rewrites a union or intersection subtree into a union of
// intersections of leaves. Distinct leaves, compared by structural key,
// become boolean variables; every satisfying assignment that has no
// satisfying proper subset becomes one term. Terms are ordered by
// assignment mask over the leaves sorted by key, so flattening a
// flattened tree returns it unchanged.
//
// Nodes other than Union and Intersection, and flat subtrees without
// duplicate leaves, are returned as is.
func Flatten(t ir.Type) (ir.Type, error) {
	switch t.(type) {
	case ir.Union, ir.Intersection:
	default:
		return t, nil
	}

	set := &leafSet{index: make(map[string]int)}
	nested := false
	var build func(n ir.Type, depth int) boolExpr
	build = func(n ir.Type, depth int) boolExpr {
		switch v := n.(type) {
		case ir.Union:
			if depth > 0 {
				nested = true
			}
			e := boolExpr{kids: make([]boolExpr, len(v.Members))}
			for i, m := range v.Members {
				e.kids[i] = build(m, depth+1)
			}
			return e
		case ir.Intersection:
			if depth > 0 {
				nested = true
			}
			e := boolExpr{and: true, kids: make([]boolExpr, len(v.Members))}
			for i, m := range v.Members {
				e.kids[i] = build(m, depth+1)
			}
			return e
		}
		return boolExpr{leaf: set.add(n)}
	}
	expr := build(t, 0)

	if !nested && !set.dup {
		return t, nil
	}
	if len(set.leaves) > MaxLeaves {
		return nil, diag.Errorf(diag.ErrTooManyMembers, ir.Describe(t),
			"too many distinct members (%d, limit %d)", len(set.leaves), MaxLeaves)
	}

	// Re-number leaves so bit i is the i-th leaf in key order.
	order := make([]int, len(set.leaves))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return set.keys[order[a]] < set.keys[order[b]] })
	bitOf := make([]int, len(order))
	for bit, leaf := range order {
		bitOf[leaf] = bit
	}
	expr = renumber(expr, bitOf)

	n := len(order)
	var terms []ir.Type
	for mask := uint32(1); mask < 1<<n; mask++ {
		if !expr.eval(mask) || !minimal(expr, mask, n) {
			continue
		}
		var members []ir.Type
		for bit := 0; bit < n; bit++ {
			if mask&(1<<bit) != 0 {
				members = append(members, set.leaves[order[bit]])
			}
		}
		terms = append(terms, ir.NewIntersection(members...))
	}
	return ir.NewUnion(terms...), nil
}

func renumber(e boolExpr, bitOf []int) boolExpr {
	if e.kids == nil {
		return boolExpr{leaf: bitOf[e.leaf]}
	}
	out := boolExpr{and: e.and, kids: make([]boolExpr, len(e.kids))}
	for i, k := range e.kids {
		out.kids[i] = renumber(k, bitOf)
	}
	return out
}

// minimal reports whether no assignment with one fewer true variable
// satisfies e. The expression is monotone, so this means no proper
// subset satisfies it.
func minimal(e boolExpr, mask uint32, n int) bool {
	for bit := 0; bit < n; bit++ {
		if mask&(1<<bit) != 0 && e.eval(mask&^(1<<bit)) {
			return false
		}
	}
	return true
}
