package compiler

import "github.com/roach88/guardgen/internal/ir"

// Scope looks up named declarations. typeexpr.File implements it.
type Scope interface {
	Lookup(name string) (*ir.Declaration, bool)
}

// DeclarationSet is a Scope backed by a map, for declarations built in Go.
type DeclarationSet map[string]*ir.Declaration

// NewDeclarationSet indexes decls by name. Later declarations replace
// earlier ones with the same name.
func NewDeclarationSet(decls ...*ir.Declaration) DeclarationSet {
	set := make(DeclarationSet, len(decls))
	for _, d := range decls {
		set[d.Name] = d
	}
	return set
}

// Lookup implements Scope.
func (s DeclarationSet) Lookup(name string) (*ir.Declaration, bool) {
	d, ok := s[name]
	return d, ok
}

func containerDecl(kind ir.ContainerKind, params ...string) *ir.Declaration {
	elems := make([]ir.Type, len(params))
	for i, p := range params {
		elems[i] = ir.Param{Index: i, Name: p}
	}
	return &ir.Declaration{
		Name:     string(kind),
		Kind:     ir.KindContainer,
		Params:   params,
		Defaults: make([]ir.Type, len(params)),
		Body:     ir.Container{Kind: kind, Elements: elems},
	}
}

// builtins are consulted after the user scope, so a user declaration
// named Array shadows the container.
var builtins = NewDeclarationSet(
	containerDecl(ir.ArrayKind, "T"),
	containerDecl(ir.MapKind, "K", "V"),
	containerDecl(ir.SetKind, "T"),
)

// IsBuiltin reports whether name is a builtin container.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

func lookup(scope Scope, name string) (*ir.Declaration, bool) {
	if scope != nil {
		if d, ok := scope.Lookup(name); ok {
			return d, true
		}
	}
	return builtins.Lookup(name)
}
