// Package validator executes compiled check programs against Go values.
//
// Values follow the JSON data model: nil is null, map[string]any is an
// object, []any is an array, any Go numeric is a number. Undefined,
// *MapValue and *SetValue cover the remaining runtime kinds. Values
// decoded by encoding/json or yaml.v3 can be validated directly.
package validator

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/guardgen/internal/codegen"
	"github.com/roach88/guardgen/internal/diag"
)

// MaxDepth bounds nested function calls during one validation.
const MaxDepth = 10000

// RootPath is the path of the validated value in failures.
const RootPath = "value"

// Refinement is a user predicate attached to a named type.
type Refinement func(value any) bool

// Validator checks values against a compiled program.
// It holds no per-call state and is safe for concurrent use.
type Validator struct {
	program *codegen.Program
	refine  map[string]Refinement
}

// New binds program to its refinements. Every refinement the program
// uses must be present.
func New(program *codegen.Program, refinements map[string]Refinement) (*Validator, error) {
	bound := make(map[string]Refinement, len(program.Refinements))
	for _, name := range program.Refinements {
		fn, ok := refinements[name]
		if !ok || fn == nil {
			return nil, diag.Errorf(diag.ErrMissingRefiner, name, "no refinement registered for type %q", name)
		}
		bound[name] = fn
	}
	return &Validator{program: program, refine: bound}, nil
}

// Program returns the program the validator executes.
func (v *Validator) Program() *codegen.Program {
	return v.program
}

// Validate reports whether value matches.
func (v *Validator) Validate(value any) bool {
	return v.newRun().check(v.program.Root, value, RootPath, nil)
}

// ValidateDetailed reports whether value matches and appends every
// failure to sink. Failures inside union branches are not recorded; the
// union records a single failure of its own.
func (v *Validator) ValidateDetailed(value any, sink *[]ValidationError) bool {
	return v.newRun().check(v.program.Root, value, RootPath, sink)
}

type visit struct {
	fn  int
	ptr uintptr
}

// run is the state of one validation.
type run struct {
	v        *Validator
	depth    int
	visiting map[visit]bool
}

func (v *Validator) newRun() *run {
	return &run{v: v, visiting: make(map[visit]bool)}
}

func report(sink *[]ValidationError, path string, actual, expected any) bool {
	if sink != nil {
		*sink = append(*sink, ValidationError{Path: path, Actual: actual, Expected: expected})
	}
	return false
}

func (r *run) check(n codegen.Node, value any, path string, sink *[]ValidationError) bool {
	switch c := n.(type) {
	case codegen.Pass:
		return true
	case codegen.Fail:
		return report(sink, path, value, c.Expected)
	case codegen.TypeIs:
		if kindOf(c.Kind, value) {
			return true
		}
		return report(sink, path, value, c.Expected)
	case codegen.Equals:
		if equalLiteral(c.Value, value) {
			return true
		}
		return report(sink, path, value, c.Expected)
	case codegen.ObjectCheck:
		return r.object(c, value, path, sink)
	case codegen.TupleCheck:
		return r.tuple(c, value, path, sink)
	case codegen.ArrayCheck:
		list, ok := asList(value)
		if !ok {
			return report(sink, path, value, c.Expected)
		}
		return r.each(len(list), c.Exhaustive, func(i int) bool {
			return r.check(c.Element, list[i], path+codegen.IndexSegment(i), sink)
		})
	case codegen.MapCheck:
		m, ok := value.(*MapValue)
		if !ok {
			return report(sink, path, value, c.Expected)
		}
		return r.each(len(m.Entries), c.Exhaustive, func(i int) bool {
			entry := path + codegen.IndexSegment(i)
			okKey := r.check(c.Key, m.Entries[i].Key, entry+"[0]", sink)
			if !okKey && !c.Exhaustive {
				return false
			}
			return r.check(c.Value, m.Entries[i].Value, entry+"[1]", sink) && okKey
		})
	case codegen.SetCheck:
		s, ok := value.(*SetValue)
		if !ok {
			return report(sink, path, value, c.Expected)
		}
		return r.each(len(s.Items), c.Exhaustive, func(i int) bool {
			return r.check(c.Element, s.Items[i], path+codegen.IndexSegment(i), sink)
		})
	case codegen.AnyOf:
		for _, o := range c.Options {
			if r.check(o, value, path, nil) {
				return true
			}
		}
		return report(sink, path, value, c.Expected)
	case codegen.AllOf:
		return r.each(len(c.Checks), c.Exhaustive, func(i int) bool {
			return r.check(c.Checks[i], value, path, sink)
		})
	case codegen.Call:
		return r.call(c.Func, value, path, sink)
	case codegen.Refine:
		if r.v.refine[c.Name](value) {
			return true
		}
		return report(sink, path, value, c.Expected)
	}
	panic(diag.Internalf("validator", "unknown check %T", n))
}

// each runs fn for 0..n-1. Exhaustive runs keep going after a failure so
// every failure is recorded.
func (r *run) each(n int, exhaustive bool, fn func(i int) bool) bool {
	ok := true
	for i := 0; i < n; i++ {
		if !fn(i) {
			ok = false
			if !exhaustive {
				return false
			}
		}
	}
	return ok
}

func (r *run) call(idx int, value any, path string, sink *[]ValidationError) bool {
	fn := r.v.program.Functions[idx]
	r.depth++
	defer func() { r.depth-- }()
	if r.depth > MaxDepth {
		panic(&StackOverflowError{Function: fn.Display, Depth: MaxDepth})
	}
	if fn.Guard {
		if ptr, ok := identity(value); ok {
			key := visit{fn: idx, ptr: ptr}
			if r.visiting[key] {
				return true
			}
			r.visiting[key] = true
			defer delete(r.visiting, key)
		}
	}
	return r.check(fn.Body, value, path, sink)
}

func (r *run) object(c codegen.ObjectCheck, value any, path string, sink *[]ValidationError) bool {
	obj, ok := value.(map[string]any)
	if !ok {
		return report(sink, path, value, c.Expected)
	}
	declared := make(map[string]bool, len(c.Props))
	for _, p := range c.Props {
		declared[p.Key] = true
	}

	ok = r.each(len(c.Props), c.Exhaustive, func(i int) bool {
		p := c.Props[i]
		pv, present := obj[p.Key]
		switch {
		case !present && p.Optional:
			return true
		case !present:
			return report(sink, path+p.Segment, Undefined, p.Expected)
		case p.Optional && pv == Undefined:
			return true
		}
		return r.check(p.Check, pv, path+p.Segment, sink)
	})
	if !ok && !c.Exhaustive {
		return false
	}
	if c.StringIndex == nil && c.NumberIndex == nil && !c.RejectForeign {
		return ok
	}

	var foreign []string
	for k := range obj {
		if !declared[k] {
			foreign = append(foreign, k)
		}
	}
	sort.Strings(foreign)
	rest := r.each(len(foreign), c.Exhaustive, func(i int) bool {
		k := foreign[i]
		kpath := path + codegen.Segment(k)
		switch {
		case c.NumberIndex != nil && isIndexKey(k):
			return r.check(c.NumberIndex, obj[k], kpath, sink)
		case c.StringIndex != nil:
			return r.check(c.StringIndex, obj[k], kpath, sink)
		case c.NumberIndex != nil:
			return true
		}
		return report(sink, kpath, obj[k], c.ForeignExpected)
	})
	return ok && rest
}

func (r *run) tuple(c codegen.TupleCheck, value any, path string, sink *[]ValidationError) bool {
	list, ok := asList(value)
	if !ok || len(list) < c.Min || (c.Max >= 0 && len(list) > c.Max) {
		return report(sink, path, value, c.Expected)
	}
	fixed := len(c.Elements)
	return r.each(len(list), c.Exhaustive, func(i int) bool {
		if i < fixed {
			if i >= c.Min && list[i] == Undefined {
				return true
			}
			return r.check(c.Elements[i], list[i], path+codegen.IndexSegment(i), sink)
		}
		return r.check(c.Rest, list[i], path+codegen.IndexSegment(i), sink)
	})
}

// isIndexKey reports whether an object key is the canonical text of a
// number, the way JavaScript's String(Number(k)) === k decides it.
func isIndexKey(k string) bool {
	f, err := strconv.ParseFloat(k, 64)
	return err == nil && numberString(f) == k
}

// numberString formats f like JavaScript's Number.prototype.toString:
// plain notation for decimal exponents in [-7, 21), exponent notation
// with an explicit sign otherwise.
func numberString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	case f < 0:
		return "-" + numberString(-f)
	}

	// Shortest round-trip digits d1.d2...dk and exponent e, so the value
	// is 0.d1...dk * 10^n with n = e+1.
	mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	digits := strings.Replace(mant, ".", "", 1)
	e, _ := strconv.Atoi(exp)
	k, n := len(digits), e+1

	switch {
	case k <= n && n <= 21:
		return digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return "0." + strings.Repeat("0", -n) + digits
	}
	sign := "+"
	if e < 0 {
		sign, e = "-", -e
	}
	if k == 1 {
		return digits + "e" + sign + strconv.Itoa(e)
	}
	return digits[:1] + "." + digits[1:] + "e" + sign + strconv.Itoa(e)
}

func kindOf(kind codegen.ValueKind, v any) bool {
	switch kind {
	case codegen.KindString:
		_, ok := v.(string)
		return ok
	case codegen.KindNumber:
		_, ok := toNumber(v)
		return ok
	case codegen.KindBoolean:
		_, ok := v.(bool)
		return ok
	case codegen.KindNull:
		return v == nil
	case codegen.KindUndefined:
		return v == Undefined
	case codegen.KindObject:
		return isObject(v)
	}
	return false
}

func equalLiteral(lit, v any) bool {
	switch want := lit.(type) {
	case string:
		s, ok := v.(string)
		return ok && s == want
	case bool:
		b, ok := v.(bool)
		return ok && b == want
	case float64:
		f, ok := toNumber(v)
		return ok && f == want
	}
	return false
}
