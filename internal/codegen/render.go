package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/guardgen/internal/ir"
)

const jsPrelude = `const $all = (xs) => xs.every((x) => x);
const $has = (o, k) => Object.prototype.hasOwnProperty.call(o, k);
const $isObject = (v) => typeof v === "object" && v !== null && !Array.isArray(v) && !(v instanceof Map) && !(v instanceof Set);
const $isIndex = (k) => String(Number(k)) === k;
const $seg = (k) => (/^[A-Za-z_$][A-Za-z0-9_$]*$/.test(k) ? "." + k : "[" + JSON.stringify(k) + "]");
const $report = (e, p, v, x) => {
  if (e !== null) e.push({ path: p, actual: v, expected: x });
  return false;
};
const $visiting = new Map();
const $enter = (f, v) => {
  if (typeof v !== "object" || v === null) return false;
  let fs = $visiting.get(v);
  if (fs === undefined) {
    fs = new Set();
    $visiting.set(v, fs);
  }
  if (fs.has(f)) return true;
  fs.add(f);
  return false;
};
const $leave = (f, v) => {
  if (typeof v === "object" && v !== null) $visiting.get(v).delete(f);
};
`

// RenderJS prints p as a JavaScript module exporting createValidator.
// The validator's detailed form pushes {path, actual, expected} entries
// onto the array it is given.
func RenderJS(p *Program) (string, error) {
	r := &jsRenderer{}
	var sb strings.Builder
	sb.WriteString("// Code generated by guardgen. DO NOT EDIT.\n")
	fmt.Fprintf(&sb, "// Type: %s\n\n", p.Name)
	sb.WriteString(jsPrelude)
	sb.WriteString("\nexport function createValidator($refine = {}) {\n")
	if len(p.Refinements) > 0 {
		names, err := r.json(p.Refinements)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "  for (const name of %s) {\n", names)
		sb.WriteString("    if (typeof $refine[name] !== \"function\") throw new Error(\"missing refinement \" + name);\n")
		sb.WriteString("  }\n")
	}
	for i, fn := range p.Functions {
		body := r.expr(fn.Body, "v", "p", "e", 0)
		fmt.Fprintf(&sb, "  // %s\n", fn.Display)
		if fn.Guard {
			fmt.Fprintf(&sb, "  const _f%d = (v, p, e) => {\n", i)
			fmt.Fprintf(&sb, "    if ($enter(%d, v)) return true;\n", i)
			sb.WriteString("    try {\n")
			fmt.Fprintf(&sb, "      return %s;\n", body)
			sb.WriteString("    } finally {\n")
			fmt.Fprintf(&sb, "      $leave(%d, v);\n", i)
			sb.WriteString("    }\n")
			sb.WriteString("  };\n")
		} else {
			fmt.Fprintf(&sb, "  const _f%d = (v, p, e) => %s;\n", i, body)
		}
	}
	fmt.Fprintf(&sb, "  const _root = (v, p, e) => %s;\n", r.expr(p.Root, "v", "p", "e", 0))
	sb.WriteString("  return {\n")
	sb.WriteString("    validate: (v) => _root(v, \"value\", null),\n")
	sb.WriteString("    validateDetailed: (v, errors) => _root(v, \"value\", errors),\n")
	sb.WriteString("  };\n")
	sb.WriteString("}\n")
	if r.err != nil {
		return "", r.err
	}
	return sb.String(), nil
}

type jsRenderer struct {
	err error
}

// json renders v as a JavaScript literal. The first failure is kept and
// reported by RenderJS.
func (r *jsRenderer) json(v any) (string, error) {
	if ss, ok := v.([]string); ok {
		items := make([]any, len(ss))
		for i, s := range ss {
			items[i] = s
		}
		v = items
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		if r.err == nil {
			r.err = err
		}
		return "null", err
	}
	return string(data), nil
}

func (r *jsRenderer) lit(v any) string {
	s, _ := r.json(v)
	return s
}

func (r *jsRenderer) report(e, p, v string, expected any) string {
	return fmt.Sprintf("$report(%s, %s, %s, %s)", e, p, v, r.lit(expected))
}

func join(parts []string, exhaustive bool) string {
	switch {
	case len(parts) == 0:
		return "true"
	case len(parts) == 1:
		return parts[0]
	case exhaustive:
		return "$all([" + strings.Join(parts, ", ") + "])"
	}
	return "(" + strings.Join(parts, " && ") + ")"
}

// iterate renders a per-element check over a JavaScript array expression.
func iterate(array, params, body string, exhaustive bool) string {
	if exhaustive {
		return fmt.Sprintf("$all(%s.map((%s) => %s))", array, params, body)
	}
	return fmt.Sprintf("%s.every((%s) => %s)", array, params, body)
}

func accessor(v, key string, r *jsRenderer) string {
	if ir.IsIdentifier(key) {
		return v + "." + key
	}
	return v + "[" + r.lit(key) + "]"
}

// expr renders n as a boolean JavaScript expression checking the value
// expression v at path expression p, reporting into e.
func (r *jsRenderer) expr(n Node, v, p, e string, depth int) string {
	switch c := n.(type) {
	case Pass:
		return "true"
	case Fail:
		return r.report(e, p, v, c.Expected)
	case TypeIs:
		var cond string
		switch c.Kind {
		case KindNull:
			cond = v + " === null"
		case KindUndefined:
			cond = v + " === undefined"
		case KindObject:
			cond = fmt.Sprintf("typeof %s === \"object\" && %s !== null", v, v)
		default:
			cond = fmt.Sprintf("typeof %s === %q", v, string(c.Kind))
		}
		return fmt.Sprintf("(%s || %s)", cond, r.report(e, p, v, c.Expected))
	case Equals:
		return fmt.Sprintf("(%s === %s || %s)", v, r.lit(c.Value), r.report(e, p, v, c.Expected))
	case ObjectCheck:
		return r.object(c, v, p, e, depth)
	case TupleCheck:
		return r.tuple(c, v, p, e, depth)
	case ArrayCheck:
		ev, ei := fmt.Sprintf("v%d", depth+1), fmt.Sprintf("i%d", depth+1)
		body := r.expr(c.Element, ev, fmt.Sprintf("%s + \"[\" + %s + \"]\"", p, ei), e, depth+1)
		return fmt.Sprintf("(Array.isArray(%s) ? %s : %s)",
			v, iterate(v, ev+", "+ei, body, c.Exhaustive), r.report(e, p, v, c.Expected))
	case MapCheck:
		kv, ev, ei := fmt.Sprintf("k%d", depth+1), fmt.Sprintf("v%d", depth+1), fmt.Sprintf("i%d", depth+1)
		entry := fmt.Sprintf("%s + \"[\" + %s + \"]\"", p, ei)
		key := r.expr(c.Key, kv, entry+" + \"[0]\"", e, depth+1)
		val := r.expr(c.Value, ev, entry+" + \"[1]\"", e, depth+1)
		body := join([]string{key, val}, c.Exhaustive)
		return fmt.Sprintf("(%s instanceof Map ? %s : %s)",
			v, iterate("Array.from("+v+")", "["+kv+", "+ev+"], "+ei, body, c.Exhaustive), r.report(e, p, v, c.Expected))
	case SetCheck:
		ev, ei := fmt.Sprintf("v%d", depth+1), fmt.Sprintf("i%d", depth+1)
		body := r.expr(c.Element, ev, fmt.Sprintf("%s + \"[\" + %s + \"]\"", p, ei), e, depth+1)
		return fmt.Sprintf("(%s instanceof Set ? %s : %s)",
			v, iterate("Array.from("+v+")", ev+", "+ei, body, c.Exhaustive), r.report(e, p, v, c.Expected))
	case AnyOf:
		parts := make([]string, 0, len(c.Options)+1)
		for _, o := range c.Options {
			parts = append(parts, r.expr(o, v, p, "null", depth))
		}
		parts = append(parts, r.report(e, p, v, c.Expected))
		return "(" + strings.Join(parts, " || ") + ")"
	case AllOf:
		parts := make([]string, len(c.Checks))
		for i, sub := range c.Checks {
			parts[i] = r.expr(sub, v, p, e, depth)
		}
		return join(parts, c.Exhaustive)
	case Call:
		return fmt.Sprintf("_f%d(%s, %s, %s)", c.Func, v, p, e)
	case Refine:
		return fmt.Sprintf("($refine[%s](%s) || %s)", r.lit(c.Name), v, r.report(e, p, v, c.Expected))
	}
	if r.err == nil {
		r.err = fmt.Errorf("render: unknown check %T", n)
	}
	return "false"
}

func (r *jsRenderer) object(c ObjectCheck, v, p, e string, depth int) string {
	var parts []string
	declared := make([]string, 0, len(c.Props))
	for _, prop := range c.Props {
		declared = append(declared, prop.Key)
		key := r.lit(prop.Key)
		access := accessor(v, prop.Key, r)
		path := p + " + " + r.lit(prop.Segment)
		check := r.expr(prop.Check, access, path, e, depth)
		if prop.Optional {
			parts = append(parts, fmt.Sprintf("(!$has(%s, %s) || %s === undefined || %s)", v, key, access, check))
		} else {
			parts = append(parts, fmt.Sprintf("($has(%s, %s) ? %s : %s)", v, key, check, r.report(e, path, "undefined", prop.Expected)))
		}
	}

	if c.StringIndex != nil || c.NumberIndex != nil || c.RejectForeign {
		k := fmt.Sprintf("k%d", depth+1)
		value := v + "[" + k + "]"
		path := p + " + $seg(" + k + ")"
		var entry string
		switch {
		case c.StringIndex != nil && c.NumberIndex != nil:
			entry = fmt.Sprintf("($isIndex(%s) ? %s : %s)", k,
				r.expr(c.NumberIndex, value, path, e, depth+1), r.expr(c.StringIndex, value, path, e, depth+1))
		case c.StringIndex != nil:
			entry = r.expr(c.StringIndex, value, path, e, depth+1)
		case c.NumberIndex != nil:
			entry = fmt.Sprintf("(!$isIndex(%s) || %s)", k, r.expr(c.NumberIndex, value, path, e, depth+1))
		default:
			entry = r.report(e, path, value, c.ForeignExpected)
		}
		keys := fmt.Sprintf("Object.keys(%s).filter((%s) => !%s.includes(%s))", v, k, r.lit(declared), k)
		parts = append(parts, iterate(keys, k, entry, c.Exhaustive))
	}
	return fmt.Sprintf("($isObject(%s) ? %s : %s)", v, join(parts, c.Exhaustive), r.report(e, p, v, c.Expected))
}

func (r *jsRenderer) tuple(c TupleCheck, v, p, e string, depth int) string {
	cond := fmt.Sprintf("Array.isArray(%s) && %s.length >= %d", v, v, c.Min)
	if c.Max >= 0 {
		cond += fmt.Sprintf(" && %s.length <= %d", v, c.Max)
	}
	var parts []string
	for i, el := range c.Elements {
		check := r.expr(el, fmt.Sprintf("%s[%d]", v, i), p+" + "+r.lit(IndexSegment(i)), e, depth)
		if i >= c.Min {
			check = fmt.Sprintf("(%s.length <= %d || %s[%d] === undefined || %s)", v, i, v, i, check)
		}
		parts = append(parts, check)
	}
	if c.Rest != nil {
		ev, ei := fmt.Sprintf("v%d", depth+1), fmt.Sprintf("i%d", depth+1)
		fixed := strconv.Itoa(len(c.Elements))
		body := r.expr(c.Rest, ev, fmt.Sprintf("%s + \"[\" + (%s + %s) + \"]\"", p, ei, fixed), e, depth+1)
		parts = append(parts, iterate(v+".slice("+fixed+")", ev+", "+ei, body, c.Exhaustive))
	}
	return fmt.Sprintf("(%s ? %s : %s)", cond, join(parts, c.Exhaustive), r.report(e, p, v, c.Expected))
}
