package cli

import (
	"math"
	"net/mail"

	"github.com/google/uuid"

	"github.com/roach88/guardgen/internal/diag"
	"github.com/roach88/guardgen/internal/validator"
)

// predicates are the refinements a project file can attach by name.
var predicates = map[string]validator.Refinement{
	"email": func(v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		addr, err := mail.ParseAddress(s)
		return err == nil && addr.Address == s
	},
	"uuid": func(v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		return uuid.Validate(s) == nil
	},
	"nonEmpty": func(v any) bool {
		switch x := v.(type) {
		case string:
			return x != ""
		case []any:
			return len(x) > 0
		case map[string]any:
			return len(x) > 0
		}
		return false
	},
	"integer": func(v any) bool {
		n, ok := number(v)
		return ok && !math.IsInf(n, 0) && n == math.Trunc(n)
	},
	"positive": func(v any) bool {
		n, ok := number(v)
		return ok && n > 0
	},
}

// builtinRefinements maps type names to the named predicates.
func builtinRefinements(names map[string]string) (map[string]validator.Refinement, error) {
	out := make(map[string]validator.Refinement, len(names))
	for typeName, predicate := range names {
		fn, ok := predicates[predicate]
		if !ok {
			return nil, diag.Errorf(diag.ErrInvalidConfig, typeName, "unknown refinement %q", predicate)
		}
		out[typeName] = fn
	}
	return out, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
