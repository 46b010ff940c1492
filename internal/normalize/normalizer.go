// Package normalize rewrites instantiated IR into canonical form.
//
// Canonical form has no nested unions or intersections: every union or
// intersection subtree is flattened into a union of intersection terms,
// each term is reduced to a single type by pairwise structural
// intersection, and the resulting union is cleaned of redundant members.
// Instance bodies reachable through handles are normalized once and
// written back into the instance table.
package normalize

import (
	"io"
	"log/slog"

	"github.com/roach88/guardgen/internal/diag"
	"github.com/roach88/guardgen/internal/ir"
)

// Normalizer normalizes trees against one instance table.
// It is not safe for concurrent use.
type Normalizer struct {
	table   *ir.InstanceTable
	logger  *slog.Logger
	refined map[string]bool // declaration names carrying a refinement

	normalizing  map[string]bool // instance keys whose body is being normalized
	intersecting map[string]bool // handle pairs being intersected
}

// New creates a Normalizer. A nil logger discards output.
func New(table *ir.InstanceTable, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Normalizer{
		table:        table,
		logger:       logger,
		normalizing:  make(map[string]bool),
		intersecting: make(map[string]bool),
	}
}

// WithRefined marks the instances of the named declarations as refined.
// Intersections keep a refined handle when they do not narrow its body and
// are rejected otherwise, since the refinement could not be carried over.
func (n *Normalizer) WithRefined(names map[string]bool) *Normalizer {
	n.refined = names
	return n
}

// Normalize returns the canonical form of t and normalizes every instance
// body reachable from it.
func (n *Normalizer) Normalize(t ir.Type) (ir.Type, error) {
	return ir.MapErr(t, n.step)
}

func (n *Normalizer) step(t ir.Type) (ir.Type, error) {
	switch v := t.(type) {
	case ir.Reference:
		return nil, diag.Internalf("normalize", "unresolved reference %q", v.Name)
	case ir.Param:
		return nil, diag.Internalf("normalize", "unbound type parameter %d", v.Index)
	case ir.Handle:
		if err := n.normalizeInstance(v.Key); err != nil {
			return nil, err
		}
		return v, nil
	case ir.Union, ir.Intersection:
		flat, err := Flatten(t)
		if err != nil {
			return nil, err
		}
		return n.reduce(flat)
	}
	return t, nil
}

// reduce turns each intersection term of a flattened tree into a single
// type and cleans the resulting union.
func (n *Normalizer) reduce(t ir.Type) (ir.Type, error) {
	switch v := t.(type) {
	case ir.Union:
		terms := make([]ir.Type, len(v.Members))
		for i, m := range v.Members {
			r, err := n.reduce(m)
			if err != nil {
				return nil, err
			}
			terms[i] = r
		}
		return CleanUnion(terms), nil
	case ir.Intersection:
		return n.fold(v.Members)
	}
	return t, nil
}

func (n *Normalizer) normalizeInstance(key string) error {
	inst, ok := n.table.Get(key)
	if !ok {
		return diag.Internalf("normalize", "handle %q has no instance", key)
	}
	if inst.Normalized || n.normalizing[key] {
		return nil
	}
	n.normalizing[key] = true
	defer delete(n.normalizing, key)

	body, err := n.Normalize(inst.Body)
	if err != nil {
		return err
	}
	inst.Body = body
	inst.Normalized = true
	n.logger.Debug("normalized instance", "key", key, "bottom", ir.IsBottom(body))
	return nil
}

// instanceBody returns the normalized body behind key. A body that is
// still being normalized further up the stack is normalized on the spot.
func (n *Normalizer) instanceBody(key string) (ir.Type, error) {
	if err := n.normalizeInstance(key); err != nil {
		return nil, err
	}
	inst, _ := n.table.Get(key)
	if inst.Normalized {
		return inst.Body, nil
	}
	return n.Normalize(inst.Body)
}
