package compiler

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/guardgen/internal/ir"
)

// RecursionWarning reports a group of declarations that reference each
// other.
//
// Recursion is legal. It is reported because validators for recursive
// types compiled without circular reference guards do not terminate on
// cyclic data.
type RecursionWarning struct {
	Path    []string `json:"path"`    // e.g. ["Tree", "Forest", "Tree"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeRecursion finds recursive declaration groups.
//
// Declarations form a graph through the names their bodies and parameter
// defaults reference. Every strongly connected component that contains a
// cycle (two or more members, or one member referencing itself) yields one
// warning whose path is a shortest cycle through the component's smallest
// name. References to names outside decls are ignored. Output is sorted by
// the first name of each path.
func AnalyzeRecursion(decls []*ir.Declaration) []RecursionWarning {
	graph := buildReferenceGraph(decls)

	warnings := []RecursionWarning{}
	for _, group := range graph.components() {
		cycle := graph.shortestCycle(group)
		if cycle == nil {
			continue
		}
		w := RecursionWarning{Path: cycle, Level: "warning"}
		if len(group) == 1 {
			w.Message = fmt.Sprintf("Self-referencing type: %s → %s", cycle[0], cycle[0])
		} else {
			w.Message = "Mutually recursive types: " + strings.Join(cycle, " → ")
		}
		warnings = append(warnings, w)
	}
	sort.Slice(warnings, func(i, j int) bool {
		return warnings[i].Path[0] < warnings[j].Path[0]
	})
	return warnings
}

// referenceGraph maps a declaration name to the declared names it uses,
// in first-use order.
type referenceGraph map[string][]string

func buildReferenceGraph(decls []*ir.Declaration) referenceGraph {
	graph := make(referenceGraph, len(decls))
	for _, d := range decls {
		graph[d.Name] = nil
	}
	for _, d := range decls {
		uses := []ir.Type{d.Body}
		uses = append(uses, d.Defaults...)
		for _, t := range uses {
			for _, name := range ir.ReferencedNames(t) {
				if _, declared := graph[name]; declared && !slices.Contains(graph[d.Name], name) {
					graph[d.Name] = append(graph[d.Name], name)
				}
			}
		}
	}
	return graph
}

// components returns the strongly connected components of g (Tarjan),
// each sorted by name. Roots are visited in name order so the result is
// deterministic.
func (g referenceGraph) components() [][]string {
	f := &sccFinder{
		graph: g,
		order: make(map[string]int, len(g)),
		low:   make(map[string]int, len(g)),
		open:  make(map[string]bool),
	}
	for _, name := range slices.Sorted(maps.Keys(g)) {
		if _, seen := f.order[name]; !seen {
			f.visit(name)
		}
	}
	return f.groups
}

type sccFinder struct {
	graph  referenceGraph
	next   int
	order  map[string]int // discovery index
	low    map[string]int // lowest index reachable
	open   map[string]bool
	path   []string
	groups [][]string
}

func (f *sccFinder) visit(name string) {
	f.order[name], f.low[name] = f.next, f.next
	f.next++
	f.path = append(f.path, name)
	f.open[name] = true

	for _, dep := range f.graph[name] {
		if _, seen := f.order[dep]; !seen {
			f.visit(dep)
			f.low[name] = min(f.low[name], f.low[dep])
		} else if f.open[dep] {
			f.low[name] = min(f.low[name], f.order[dep])
		}
	}
	if f.low[name] != f.order[name] {
		return
	}

	// name roots a component: pop it off the path.
	i := slices.Index(f.path, name)
	group := slices.Clone(f.path[i:])
	f.path = f.path[:i]
	for _, member := range group {
		f.open[member] = false
	}
	slices.Sort(group)
	f.groups = append(f.groups, group)
}

// shortestCycle returns a shortest path that leaves group[0] and comes back
// to it without leaving the group, or nil when there is none.
func (g referenceGraph) shortestCycle(group []string) []string {
	start := group[0]
	members := make(map[string]bool, len(group))
	for _, name := range group {
		members[name] = true
	}

	prev := map[string]string{}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range g[cur] {
			if dep == start {
				var back []string
				for n := cur; n != start; n = prev[n] {
					back = append(back, n)
				}
				slices.Reverse(back)
				return append(append([]string{start}, back...), start)
			}
			if _, seen := prev[dep]; members[dep] && !seen {
				prev[dep] = cur
				queue = append(queue, dep)
			}
		}
	}
	return nil
}
