package compiler

import (
	"io"
	"log/slog"

	"github.com/roach88/guardgen/internal/ir"
)

// Registrar collects the declarations reachable from requested names.
type Registrar struct {
	scope  Scope
	logger *slog.Logger
	decls  map[string]*ir.Declaration
	order  []string
}

// NewRegistrar creates a Registrar over scope. A nil logger discards output.
func NewRegistrar(scope Scope, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registrar{
		scope:  scope,
		logger: logger,
		decls:  make(map[string]*ir.Declaration),
	}
}

// Register records the declaration called name and every declaration its
// body and parameter defaults reference. Names that are not declared are
// ignored here; the resolver reports them when they are used.
func (r *Registrar) Register(name string) {
	if _, done := r.decls[name]; done {
		return
	}
	decl, ok := lookup(r.scope, name)
	if !ok {
		return
	}
	r.decls[name] = decl
	r.order = append(r.order, name)
	r.logger.Debug("registered declaration", "name", name, "kind", decl.Kind, "params", len(decl.Params))

	for _, ref := range ir.ReferencedNames(decl.Body) {
		r.Register(ref)
	}
	for _, def := range decl.Defaults {
		for _, ref := range ir.ReferencedNames(def) {
			r.Register(ref)
		}
	}
}

// RegisterType registers every name referenced by t.
func (r *Registrar) RegisterType(t ir.Type) {
	for _, name := range ir.ReferencedNames(t) {
		r.Register(name)
	}
}

// Lookup returns a registered declaration.
func (r *Registrar) Lookup(name string) (*ir.Declaration, bool) {
	d, ok := r.decls[name]
	return d, ok
}

// Declarations returns the registered declarations in registration order.
func (r *Registrar) Declarations() []*ir.Declaration {
	out := make([]*ir.Declaration, len(r.order))
	for i, name := range r.order {
		out[i] = r.decls[name]
	}
	return out
}
