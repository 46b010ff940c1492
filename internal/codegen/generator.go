package codegen

import (
	"io"
	"log/slog"
	"sort"
	"strconv"

	"github.com/roach88/guardgen/internal/diag"
	"github.com/roach88/guardgen/internal/ir"
)

// Config controls code generation.
type Config struct {
	AllowForeignKeys bool
	ExpectedFormat   ExpectedFormat
	// CircularRefs guards hoisted circular functions against re-entry on
	// the same value. Without it cyclic data recurses until the validator
	// gives up.
	CircularRefs bool
	// Refined holds the declaration names that carry a user refinement.
	Refined map[string]bool
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{AllowForeignKeys: true, ExpectedFormat: HumanFriendly, CircularRefs: true}
}

// Generator compiles canonical IR into a Program.
type Generator struct {
	table       *ir.InstanceTable
	occurrences map[string]int
	cfg         Config
	logger      *slog.Logger

	hoisted   map[string]int
	functions []Function
	refines   map[string]bool
}

// scope is the per-node generation state.
type scope struct {
	insideUnion bool
}

// NewGenerator creates a Generator. occurrences maps instance keys to the
// number of reference sites seen by the current request.
func NewGenerator(table *ir.InstanceTable, occurrences map[string]int, cfg Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.ExpectedFormat == "" {
		cfg.ExpectedFormat = HumanFriendly
	}
	return &Generator{
		table:       table,
		occurrences: occurrences,
		cfg:         cfg,
		logger:      logger,
		hoisted:     make(map[string]int),
		refines:     make(map[string]bool),
	}
}

// Generate compiles root, which must be in canonical form.
func (g *Generator) Generate(root ir.Type) (*Program, error) {
	node, err := g.gen(root, scope{})
	if err != nil {
		return nil, err
	}
	refinements := make([]string, 0, len(g.refines))
	for name := range g.refines {
		refinements = append(refinements, name)
	}
	sort.Strings(refinements)
	return &Program{
		Name:        ir.Describe(root),
		Root:        node,
		Functions:   g.functions,
		Refinements: refinements,
	}, nil
}

func (g *Generator) expected(t ir.Type) any {
	if g.cfg.ExpectedFormat == TypeIR {
		return ir.Snapshot(t)
	}
	return ir.Describe(t)
}

func (g *Generator) gen(t ir.Type, sc scope) (Node, error) {
	switch v := t.(type) {
	case ir.Primitive:
		if v.IsUniversal() {
			return Pass{}, nil
		}
		return TypeIs{Kind: ValueKind(v.Name), Expected: g.expected(v)}, nil
	case ir.Literal:
		return Equals{Value: v.Value, Expected: g.expected(v)}, nil
	case ir.Union:
		options := make([]Node, len(v.Members))
		for i, m := range v.Members {
			n, err := g.gen(m, scope{insideUnion: true})
			if err != nil {
				return nil, err
			}
			options[i] = n
		}
		return AnyOf{Options: options, Expected: g.expected(v)}, nil
	case ir.Tuple:
		return g.genTuple(v, sc)
	case ir.ObjectShape:
		return g.genObject(v, sc)
	case ir.Container:
		return g.genContainer(v, sc)
	case ir.Handle:
		return g.genHandle(v, sc)
	case ir.Bottom:
		return Fail{Expected: g.expected(v)}, nil
	case ir.Intersection:
		return nil, diag.Internalf("codegen", "intersection %s survived normalization", ir.Describe(v))
	case ir.Reference:
		return nil, diag.Internalf("codegen", "unresolved reference %q", v.Name)
	case ir.Param:
		return nil, diag.Internalf("codegen", "unbound type parameter %d", v.Index)
	}
	return nil, diag.Internalf("codegen", "unknown node %T", t)
}

func (g *Generator) genTuple(t ir.Tuple, sc scope) (Node, error) {
	tc := TupleCheck{
		Min:        t.MinLen(),
		Max:        t.MaxLen(),
		Exhaustive: !sc.insideUnion,
		Expected:   g.expected(t),
	}
	for _, e := range t.Elements {
		n, err := g.gen(e, sc)
		if err != nil {
			return nil, err
		}
		tc.Elements = append(tc.Elements, n)
	}
	if t.Rest != nil {
		n, err := g.gen(t.Rest, sc)
		if err != nil {
			return nil, err
		}
		tc.Rest = n
	}
	return tc, nil
}

func (g *Generator) genObject(o ir.ObjectShape, sc scope) (Node, error) {
	oc := ObjectCheck{
		RejectForeign: !g.cfg.AllowForeignKeys && !o.HasIndex(),
		Exhaustive:    !sc.insideUnion,
		Expected:      g.expected(o),
	}
	if oc.RejectForeign {
		oc.ForeignExpected = g.expected(ir.Bottom{})
	}
	for _, p := range o.Properties {
		n, err := g.gen(p.Value, sc)
		if err != nil {
			return nil, err
		}
		oc.Props = append(oc.Props, PropCheck{
			Key:      p.Key,
			Segment:  Segment(p.Key),
			Optional: p.Optional,
			Check:    n,
			Expected: g.expected(p.Value),
		})
	}
	var err error
	if o.StringIndex != nil {
		if oc.StringIndex, err = g.gen(o.StringIndex, sc); err != nil {
			return nil, err
		}
	}
	if o.NumberIndex != nil {
		if oc.NumberIndex, err = g.gen(o.NumberIndex, sc); err != nil {
			return nil, err
		}
	}
	return oc, nil
}

func (g *Generator) genContainer(c ir.Container, sc scope) (Node, error) {
	elems := make([]Node, len(c.Elements))
	for i, e := range c.Elements {
		n, err := g.gen(e, sc)
		if err != nil {
			return nil, err
		}
		elems[i] = n
	}
	exhaustive := !sc.insideUnion
	switch c.Kind {
	case ir.ArrayKind:
		return ArrayCheck{Element: elems[0], Exhaustive: exhaustive, Expected: g.expected(c)}, nil
	case ir.MapKind:
		return MapCheck{Key: elems[0], Value: elems[1], Exhaustive: exhaustive, Expected: g.expected(c)}, nil
	case ir.SetKind:
		return SetCheck{Element: elems[0], Exhaustive: exhaustive, Expected: g.expected(c)}, nil
	}
	return nil, diag.Internalf("codegen", "unknown container kind %q", c.Kind)
}

func (g *Generator) genHandle(h ir.Handle, sc scope) (Node, error) {
	inst, ok := g.table.Get(h.Key)
	if !ok {
		return nil, diag.Internalf("codegen", "handle %q has no instance", h.Key)
	}
	if !inst.Circular && g.occurrences[h.Key] <= 1 {
		return g.instanceCheck(inst, h, sc)
	}

	if idx, ok := g.hoisted[h.Key]; ok {
		return Call{Func: idx}, nil
	}
	idx := len(g.functions)
	g.hoisted[h.Key] = idx
	g.functions = append(g.functions, Function{
		Key:     h.Key,
		Display: ir.Describe(h),
		Guard:   inst.Circular && g.cfg.CircularRefs,
	})
	body, err := g.instanceCheck(inst, h, scope{})
	if err != nil {
		return nil, err
	}
	g.functions[idx].Body = body
	g.logger.Debug("hoisted instance",
		"key", h.Key,
		"func", idx,
		"circular", inst.Circular,
		"occurrences", g.occurrences[h.Key])
	return Call{Func: idx}, nil
}

// instanceCheck compiles an instance body, appending its refinement when
// the declaration has one.
func (g *Generator) instanceCheck(inst *ir.Instance, h ir.Handle, sc scope) (Node, error) {
	body, err := g.gen(inst.Body, sc)
	if err != nil {
		return nil, err
	}
	if !g.cfg.Refined[inst.Name] {
		return body, nil
	}
	g.refines[inst.Name] = true
	return AllOf{Checks: []Node{body, Refine{Name: inst.Name, Expected: g.expected(h)}}}, nil
}

// Segment returns the path segment that addresses key: ".key" for
// identifiers and ["key"] otherwise.
func Segment(key string) string {
	if ir.IsIdentifier(key) {
		return "." + key
	}
	return "[" + strconv.Quote(key) + "]"
}

// IndexSegment returns the path segment for an array index.
func IndexSegment(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}
