package normalize

import (
	"github.com/roach88/guardgen/internal/diag"
	"github.com/roach88/guardgen/internal/ir"
)

// category is a coarse class of runtime values. Types of different
// categories never share a value.
type category int

const (
	catNone category = iota
	catArray
	catBoolean
	catNumber
	catString
	catNull
	catUndefined
	catObject
	catMap
	catSet
)

var primitiveCategories = map[ir.PrimitiveName]category{
	ir.String:    catString,
	ir.Number:    catNumber,
	ir.Boolean:   catBoolean,
	ir.Null:      catNull,
	ir.Undefined: catUndefined,
	ir.Object:    catObject,
}

func categoryOf(t ir.Type) category {
	switch v := t.(type) {
	case ir.Primitive:
		return primitiveCategories[v.Name]
	case ir.Literal:
		switch v.Value.(type) {
		case string:
			return catString
		case bool:
			return catBoolean
		}
		return catNumber
	case ir.Tuple:
		return catArray
	case ir.ObjectShape:
		return catObject
	case ir.Container:
		switch v.Kind {
		case ir.MapKind:
			return catMap
		case ir.SetKind:
			return catSet
		}
		return catArray
	}
	return catNone
}

// Intersect computes left & right on types without handles.
func Intersect(left, right ir.Type) (ir.Type, error) {
	return New(ir.NewInstanceTable(), nil).Intersect(left, right)
}

// Intersect computes the structural intersection left & right.
// Handles are dereferenced through the instance table; the result is
// Bottom when no value can satisfy both sides.
func (n *Normalizer) Intersect(left, right ir.Type) (ir.Type, error) {
	if _, ok := left.(ir.Bottom); ok {
		return left, nil
	}
	if _, ok := right.(ir.Bottom); ok {
		return right, nil
	}
	if isUniversal(left) {
		return right, nil
	}
	if isUniversal(right) {
		return left, nil
	}

	_, lh := left.(ir.Handle)
	_, rh := right.(ir.Handle)
	if lh || rh {
		return n.intersectHandles(left, right)
	}

	if u, ok := left.(ir.Union); ok {
		return n.distribute(u, right, false)
	}
	if u, ok := right.(ir.Union); ok {
		return n.distribute(u, left, true)
	}
	if i, ok := left.(ir.Intersection); ok {
		acc, err := n.fold(i.Members)
		if err != nil {
			return nil, err
		}
		return n.Intersect(acc, right)
	}
	if i, ok := right.(ir.Intersection); ok {
		acc, err := n.fold(i.Members)
		if err != nil {
			return nil, err
		}
		return n.Intersect(left, acc)
	}

	lc, rc := categoryOf(left), categoryOf(right)
	if lc == catNone || rc == catNone {
		return nil, diag.Internalf("normalize", "cannot intersect %T with %T", left, right)
	}
	if lc != rc {
		return ir.Bottom{}, nil
	}

	switch lc {
	case catObject:
		return n.intersectObjects(left, right)
	case catArray:
		return n.intersectArrays(left, right)
	case catMap, catSet:
		lv, rv := left.(ir.Container), right.(ir.Container)
		elems := make([]ir.Type, len(lv.Elements))
		for i := range lv.Elements {
			e, err := n.Intersect(lv.Elements[i], rv.Elements[i])
			if err != nil {
				return nil, err
			}
			elems[i] = e
		}
		return ir.Container{Kind: lv.Kind, Elements: elems}, nil
	}
	return intersectScalars(left, right), nil
}

func isUniversal(t ir.Type) bool {
	p, ok := t.(ir.Primitive)
	return ok && p.IsUniversal()
}

// fold intersects members left to right.
func (n *Normalizer) fold(members []ir.Type) (ir.Type, error) {
	acc := members[0]
	for _, m := range members[1:] {
		next, err := n.Intersect(acc, m)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

// distribute computes (m1 | m2 | ...) & other. swapped keeps operand
// order when the union was on the right.
func (n *Normalizer) distribute(u ir.Union, other ir.Type, swapped bool) (ir.Type, error) {
	out := make([]ir.Type, 0, len(u.Members))
	for _, m := range u.Members {
		var (
			r   ir.Type
			err error
		)
		if swapped {
			r, err = n.Intersect(other, m)
		} else {
			r, err = n.Intersect(m, other)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return CleanUnion(out), nil
}

func (n *Normalizer) intersectHandles(left, right ir.Type) (ir.Type, error) {
	lh, lok := left.(ir.Handle)
	rh, rok := right.(ir.Handle)
	if lok && rok && lh.Key == rh.Key {
		return left, nil
	}

	pair := pairKey(ir.Key(left), ir.Key(right))
	if n.intersecting[pair] {
		return nil, diag.Errorf(diag.ErrUnsupported, ir.Describe(left)+" & "+ir.Describe(right),
			"intersection of recursive types is not supported")
	}
	n.intersecting[pair] = true
	defer delete(n.intersecting, pair)

	lbody, rbody := left, right
	if lok {
		body, err := n.instanceBody(lh.Key)
		if err != nil {
			return nil, err
		}
		lbody = body
	}
	if rok {
		body, err := n.instanceBody(rh.Key)
		if err != nil {
			return nil, err
		}
		rbody = body
	}
	out, err := n.Intersect(lbody, rbody)
	if err != nil || ir.IsBottom(out) {
		return out, err
	}

	// A refinement survives only if the other side does not narrow it.
	// Two different refinements cannot share one handle.
	lname, lref := n.refinedName(left)
	rname, rref := n.refinedName(right)
	switch {
	case lref && rref:
		return nil, diag.Errorf(diag.ErrUnsupported, lname+" & "+rname,
			"intersection of refined types %q and %q is not supported", lname, rname)
	case lref && ir.Key(out) == ir.Key(lbody):
		return left, nil
	case rref && ir.Key(out) == ir.Key(rbody):
		return right, nil
	case lref:
		return nil, diag.Errorf(diag.ErrUnsupported, lname, "intersection with refined type %q is not supported", lname)
	case rref:
		return nil, diag.Errorf(diag.ErrUnsupported, rname, "intersection with refined type %q is not supported", rname)
	}
	return out, nil
}

// refinedName returns the declaration name behind a refined handle.
func (n *Normalizer) refinedName(t ir.Type) (string, bool) {
	h, ok := t.(ir.Handle)
	if !ok || len(n.refined) == 0 {
		return "", false
	}
	inst, ok := n.table.Get(h.Key)
	if !ok || !n.refined[inst.Name] {
		return "", false
	}
	return inst.Name, true
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}

// intersectScalars handles the primitive-like categories.
func intersectScalars(left, right ir.Type) ir.Type {
	ll, lLit := left.(ir.Literal)
	rl, rLit := right.(ir.Literal)
	switch {
	case lLit && rLit:
		if ll.Value == rl.Value {
			return left
		}
		return ir.Bottom{}
	case lLit:
		return left
	case rLit:
		return right
	}
	return left
}

func (n *Normalizer) intersectObjects(left, right ir.Type) (ir.Type, error) {
	ls, lok := left.(ir.ObjectShape)
	rs, rok := right.(ir.ObjectShape)
	switch {
	case !lok:
		return right, nil
	case !rok:
		return left, nil
	}

	out := ir.ObjectShape{}
	for _, lp := range ls.Properties {
		rp, shared := rs.Property(lp.Key)
		if !shared {
			out.Properties = append(out.Properties, lp)
			continue
		}
		v, err := n.Intersect(lp.Value, rp.Value)
		if err != nil {
			return nil, err
		}
		optional := lp.Optional && rp.Optional
		if ir.IsBottom(v) && !optional {
			return ir.Bottom{}, nil
		}
		out.Properties = append(out.Properties, ir.Property{Key: lp.Key, Optional: optional, Value: v})
	}
	for _, rp := range rs.Properties {
		if _, shared := ls.Property(rp.Key); !shared {
			out.Properties = append(out.Properties, rp)
		}
	}

	var err error
	if out.StringIndex, err = n.mergeIndex(ls.StringIndex, rs.StringIndex); err != nil {
		return nil, err
	}
	if out.NumberIndex, err = n.mergeIndex(ls.NumberIndex, rs.NumberIndex); err != nil {
		return nil, err
	}
	if out.StringIndex != nil && out.NumberIndex != nil {
		// Numeric keys are also string keys.
		if out.NumberIndex, err = n.Intersect(out.NumberIndex, out.StringIndex); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (n *Normalizer) mergeIndex(a, b ir.Type) (ir.Type, error) {
	switch {
	case a == nil:
		return b, nil
	case b == nil:
		return a, nil
	}
	return n.Intersect(a, b)
}

// asTuple views an Array container as a tuple of zero fixed elements.
func asTuple(t ir.Type) ir.Tuple {
	if c, ok := t.(ir.Container); ok {
		return ir.Tuple{Rest: c.Elements[0]}
	}
	return t.(ir.Tuple)
}

func (n *Normalizer) intersectArrays(left, right ir.Type) (ir.Type, error) {
	lc, lArr := left.(ir.Container)
	rc, rArr := right.(ir.Container)
	if lArr && rArr {
		e, err := n.Intersect(lc.Elements[0], rc.Elements[0])
		if err != nil {
			return nil, err
		}
		return ir.ArrayOf(e), nil
	}
	return n.intersectTuples(asTuple(left), asTuple(right))
}

// intersectTuples intersects position by position. Positions past the
// fixed elements of one side are typed by its rest element; a position
// neither side allows ends the result.
func (n *Normalizer) intersectTuples(l, r ir.Tuple) (ir.Type, error) {
	minLen := max(l.MinLen(), r.MinLen())
	maxLen := boundedMin(l.MaxLen(), r.MaxLen())
	if maxLen >= 0 && minLen > maxLen {
		return ir.Bottom{}, nil
	}

	count := max(len(l.Elements), len(r.Elements))
	if maxLen >= 0 && count > maxLen {
		count = maxLen
	}

	out := ir.Tuple{}
	truncated := false
	for i := 0; i < count; i++ {
		e, err := n.Intersect(tupleAt(l, i), tupleAt(r, i))
		if err != nil {
			return nil, err
		}
		if ir.IsBottom(e) {
			if i < minLen {
				return ir.Bottom{}, nil
			}
			truncated = true
			break
		}
		out.Elements = append(out.Elements, e)
	}

	if !truncated && l.Rest != nil && r.Rest != nil {
		rest, err := n.Intersect(l.Rest, r.Rest)
		if err != nil {
			return nil, err
		}
		if !ir.IsBottom(rest) {
			out.Rest = rest
		}
	}
	out.FirstOptional = min(minLen, len(out.Elements))
	return out, nil
}

func tupleAt(t ir.Tuple, i int) ir.Type {
	if i < len(t.Elements) {
		return t.Elements[i]
	}
	return t.Rest
}

// boundedMin returns the smaller bound, where -1 means unbounded.
func boundedMin(a, b int) int {
	switch {
	case a < 0:
		return b
	case b < 0:
		return a
	}
	return min(a, b)
}
