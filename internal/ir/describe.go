package ir

import (
	"strconv"
	"strings"
)

// Describe renders t in a compact TypeScript-like notation for messages.
func Describe(t Type) string {
	var sb strings.Builder
	describe(&sb, t, false)
	return sb.String()
}

func describe(sb *strings.Builder, t Type, nested bool) {
	switch n := t.(type) {
	case nil:
		sb.WriteString("unknown")
	case Primitive:
		sb.WriteString(string(n.Name))
	case Literal:
		sb.WriteString(DescribeLiteral(n.Value))
	case Union:
		describeJoined(sb, n.Members, " | ", nested)
	case Intersection:
		describeJoined(sb, n.Members, " & ", nested)
	case Tuple:
		sb.WriteByte('[')
		for i, e := range n.Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			describe(sb, e, true)
			if i >= n.FirstOptional {
				sb.WriteByte('?')
			}
		}
		if n.Rest != nil {
			if len(n.Elements) > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("...")
			describe(sb, n.Rest, true)
			sb.WriteString("[]")
		}
		sb.WriteByte(']')
	case ObjectShape:
		describeObject(sb, n)
	case Container:
		sb.WriteString(string(n.Kind))
		describeArgs(sb, n.Elements)
	case Reference:
		sb.WriteString(n.Name)
		describeArgs(sb, n.Args)
	case Param:
		if n.Name != "" {
			sb.WriteString(n.Name)
		} else {
			sb.WriteString("$" + strconv.Itoa(n.Index))
		}
	case Handle:
		if n.Display != "" {
			sb.WriteString(n.Display)
		} else {
			sb.WriteString(n.Key)
		}
	case Bottom:
		sb.WriteString("never")
	}
}

func describeJoined(sb *strings.Builder, members []Type, sep string, nested bool) {
	if nested {
		sb.WriteByte('(')
	}
	for i, m := range members {
		if i > 0 {
			sb.WriteString(sep)
		}
		describe(sb, m, true)
	}
	if nested {
		sb.WriteByte(')')
	}
}

func describeArgs(sb *strings.Builder, args []Type) {
	if len(args) == 0 {
		return
	}
	sb.WriteByte('<')
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		describe(sb, a, false)
	}
	sb.WriteByte('>')
}

func describeObject(sb *strings.Builder, o ObjectShape) {
	var parts []string
	for _, p := range o.Properties {
		var part strings.Builder
		part.WriteString(DescribeKey(p.Key))
		if p.Optional {
			part.WriteByte('?')
		}
		part.WriteString(": ")
		describe(&part, p.Value, false)
		parts = append(parts, part.String())
	}
	if o.StringIndex != nil {
		parts = append(parts, "[key: string]: "+Describe(o.StringIndex))
	}
	if o.NumberIndex != nil {
		parts = append(parts, "[key: number]: "+Describe(o.NumberIndex))
	}
	if len(parts) == 0 {
		sb.WriteString("{}")
		return
	}
	sb.WriteString("{ ")
	sb.WriteString(strings.Join(parts, "; "))
	sb.WriteString(" }")
}

// DescribeLiteral renders a literal value the way it is written in source.
func DescribeLiteral(v any) string {
	switch val := v.(type) {
	case string:
		return strconv.Quote(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	return "unknown"
}

// DescribeKey renders a property key, quoting it when it is not an
// identifier.
func DescribeKey(key string) string {
	if IsIdentifier(key) {
		return key
	}
	return strconv.Quote(key)
}

// IsIdentifier reports whether s can be used as a bare property accessor.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
