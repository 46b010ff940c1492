// Package typeexpr parses a TypeScript-like declaration syntax into IR.
//
// Supported forms:
//
//	type Name<T, U = string> = T | U[] | { key?: T; [k: string]: U };
//	interface Node<T> extends Base<T> { value: T; next: Node<T> | null }
//
// Type expressions cover primitives, string/number/boolean literals,
// unions, intersections, tuples with optional and rest elements, object
// literals with index signatures, named references with type arguments,
// and the T[] shorthand. Anything else is a syntax error.
package typeexpr

import (
	"sort"

	"github.com/roach88/guardgen/internal/ir"
)

// File is a parsed set of named declarations.
type File struct {
	decls []*ir.Declaration
	index map[string]*ir.Declaration
}

func newFile() *File {
	return &File{index: make(map[string]*ir.Declaration)}
}

func (f *File) add(decl *ir.Declaration) bool {
	if _, exists := f.index[decl.Name]; exists {
		return false
	}
	f.decls = append(f.decls, decl)
	f.index[decl.Name] = decl
	return true
}

// Lookup returns the declaration named name.
func (f *File) Lookup(name string) (*ir.Declaration, bool) {
	decl, ok := f.index[name]
	return decl, ok
}

// Declarations returns the declarations in source order.
func (f *File) Declarations() []*ir.Declaration {
	out := make([]*ir.Declaration, len(f.decls))
	copy(out, f.decls)
	return out
}

// Names returns the declared names sorted alphabetically.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.index))
	for name := range f.index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse parses declaration source.
func Parse(src string) (*File, error) {
	return NewParser(NewLexer(src)).ParseFile()
}

// ParseType parses a single type expression, such as the root type of a
// compile request ("Pair<string, number>").
func ParseType(src string) (ir.Type, error) {
	p := NewParser(NewLexer(src))
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != EOF {
		return nil, p.unexpected("end of input")
	}
	return t, nil
}
