package compiler

import (
	"io"
	"log/slog"

	"github.com/roach88/guardgen/internal/diag"
	"github.com/roach88/guardgen/internal/ir"
)

// Instantiator replaces references with handles to memoized instances.
type Instantiator struct {
	res    *Resolver
	table  *ir.InstanceTable
	logger *slog.Logger

	inProgress map[string]bool
	circular   map[string]bool
}

// NewInstantiator creates an Instantiator that records instances in table.
func NewInstantiator(res *Resolver, table *ir.InstanceTable, logger *slog.Logger) *Instantiator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Instantiator{
		res:        res,
		table:      table,
		logger:     logger,
		inProgress: make(map[string]bool),
		circular:   make(map[string]bool),
	}
}

// Instantiate returns t with every reference replaced by a handle, or by
// the container it denotes, together with the number of times each
// instance would be reached if every handle were expanded.
func (in *Instantiator) Instantiate(t ir.Type) (ir.Type, map[string]int, error) {
	out, err := in.instantiate(t)
	if err != nil {
		return nil, nil, err
	}
	return out, in.stats(out), nil
}

func (in *Instantiator) instantiate(t ir.Type) (ir.Type, error) {
	return ir.MapErr(t, func(n ir.Type) (ir.Type, error) {
		switch v := n.(type) {
		case ir.Param:
			return nil, diag.Internalf("instantiate", "unbound type parameter %q", v.Name)
		case ir.Reference:
			return in.reference(v)
		}
		return n, nil
	})
}

// reference instantiates ref, whose arguments are already instantiated.
func (in *Instantiator) reference(ref ir.Reference) (ir.Type, error) {
	decl, err := in.res.declaration(ref.Name)
	if err != nil {
		return nil, err
	}
	args, err := in.res.bindArgs(decl, ref.Args, nil)
	if err != nil {
		return nil, err
	}
	if decl.Kind == ir.KindContainer {
		return ir.Substitute(decl.Body, args), nil
	}

	key := ir.InstanceKey(decl.Name, args)
	h := ir.Handle{Key: key, Display: ir.Describe(ir.Reference{Name: decl.Name, Args: args})}
	if in.inProgress[key] {
		in.circular[key] = true
		return h, nil
	}
	if _, ok := in.table.Get(key); ok {
		return h, nil
	}

	body, err := in.res.resolve(ir.Substitute(decl.Body, args), map[string]bool{decl.Name: true})
	if err != nil {
		return nil, err
	}
	in.inProgress[key] = true
	body, err = in.instantiate(body)
	delete(in.inProgress, key)
	if err != nil {
		return nil, err
	}

	inst := &ir.Instance{
		Key:      key,
		Name:     decl.Name,
		Args:     args,
		Body:     body,
		Circular: in.circular[key],
	}
	inst.Stats = in.stats(body)
	in.table.Put(inst)
	in.logger.Debug("instantiated", "key", key, "circular", inst.Circular, "reached", len(inst.Stats))
	return h, nil
}

// stats counts handle sites in t, adding the counts of each memoized
// instance reached. Instances still being expanded contribute only their
// own site.
func (in *Instantiator) stats(t ir.Type) map[string]int {
	counts := make(map[string]int)
	ir.Walk(t, func(n ir.Type) bool {
		h, ok := n.(ir.Handle)
		if !ok {
			return true
		}
		counts[h.Key]++
		if inst, ok := in.table.Get(h.Key); ok {
			for k, c := range inst.Stats {
				counts[k] += c
			}
		}
		return true
	})
	return counts
}
