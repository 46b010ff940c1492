package compiler

import (
	"fmt"

	"github.com/roach88/guardgen/internal/diag"
	"github.com/roach88/guardgen/internal/ir"
)

// Resolver inlines alias references and checks type arguments.
// Interfaces, containers and refined aliases stay as references.
type Resolver struct {
	reg     *Registrar
	refined map[string]bool
}

// NewResolver creates a Resolver over the declarations known to reg.
// refined names the aliases that carry a refinement and must stay named.
func NewResolver(reg *Registrar, refined map[string]bool) *Resolver {
	return &Resolver{reg: reg, refined: refined}
}

// Resolve returns t with every inlinable alias reference replaced by its
// body and every remaining reference carrying a complete argument list.
func (r *Resolver) Resolve(t ir.Type) (ir.Type, error) {
	return r.resolve(t, nil)
}

func (r *Resolver) resolve(t ir.Type, resolving map[string]bool) (ir.Type, error) {
	return ir.MapErr(t, func(n ir.Type) (ir.Type, error) {
		ref, ok := n.(ir.Reference)
		if !ok {
			return n, nil
		}
		decl, err := r.declaration(ref.Name)
		if err != nil {
			return nil, err
		}
		args, err := r.bindArgs(decl, ref.Args, resolving)
		if err != nil {
			return nil, err
		}
		if decl.Kind != ir.KindAlias || r.refined[decl.Name] || resolving[decl.Name] {
			return ir.Reference{Name: ref.Name, Args: args}, nil
		}
		return r.resolve(ir.Substitute(decl.Body, args), with(resolving, decl.Name))
	})
}

func (r *Resolver) declaration(name string) (*ir.Declaration, error) {
	r.reg.Register(name)
	decl, ok := r.reg.Lookup(name)
	if !ok {
		return nil, diag.Errorf(diag.ErrUnknownType, name, "unknown type %q", name)
	}
	return decl, nil
}

// bindArgs completes args with parameter defaults. Args must already be
// resolved; default-derived arguments are resolved here.
func (r *Resolver) bindArgs(decl *ir.Declaration, args []ir.Type, resolving map[string]bool) ([]ir.Type, error) {
	if err := checkDefaults(decl); err != nil {
		return nil, err
	}
	n, required := decl.ParamCount(), decl.RequiredParams()
	if len(args) > n || len(args) < required {
		return nil, diag.Errorf(diag.ErrArity, decl.Name,
			"type %q expects %s, got %d", decl.Name, expectedArity(required, n), len(args))
	}
	bound := make([]ir.Type, n)
	copy(bound, args)
	for i := len(args); i < n; i++ {
		def := decl.Default(i)
		if def == nil {
			return nil, diag.Errorf(diag.ErrArity, decl.Name,
				"type %q expects %s, got %d", decl.Name, expectedArity(required, n), len(args))
		}
		arg, err := r.resolve(ir.Substitute(def, bound[:i]), resolving)
		if err != nil {
			return nil, err
		}
		bound[i] = arg
	}
	return bound, nil
}

// checkDefaults rejects defaults that refer to their own or a later
// parameter.
func checkDefaults(decl *ir.Declaration) error {
	for i, def := range decl.Defaults {
		if def == nil {
			continue
		}
		var bad *ir.Param
		ir.Walk(def, func(t ir.Type) bool {
			if p, ok := t.(ir.Param); ok && p.Index >= i && bad == nil {
				bad = &p
			}
			return bad == nil
		})
		if bad != nil {
			return diag.Errorf(diag.ErrDefaultForward, decl.Name,
				"default for type parameter %q references type parameter %q, which is not declared before it",
				decl.Params[i], paramName(decl, *bad))
		}
	}
	return nil
}

func paramName(decl *ir.Declaration, p ir.Param) string {
	if p.Name != "" {
		return p.Name
	}
	if p.Index < len(decl.Params) {
		return decl.Params[p.Index]
	}
	return fmt.Sprintf("$%d", p.Index)
}

func expectedArity(required, total int) string {
	switch {
	case required == total && total == 1:
		return "1 type argument"
	case required == total:
		return fmt.Sprintf("%d type arguments", total)
	}
	return fmt.Sprintf("%d to %d type arguments", required, total)
}

func with(set map[string]bool, name string) map[string]bool {
	out := make(map[string]bool, len(set)+1)
	for k := range set {
		out[k] = true
	}
	out[name] = true
	return out
}
