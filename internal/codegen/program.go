// Package codegen compiles canonical IR into a validator program.
//
// A Program is a typed check tree rather than source text: the validator
// package executes it directly and RenderJS prints it as a standalone
// JavaScript module. Instances that occur more than once, or that are
// circular, are compiled once into Program.Functions and referenced by
// index from every call site.
package codegen

// ExpectedFormat selects how the expected side of a failure is rendered.
type ExpectedFormat string

// Expected value formats.
const (
	// HumanFriendly renders expectations as TypeScript-like text.
	HumanFriendly ExpectedFormat = "human-friendly"
	// TypeIR renders expectations as an IR snapshot.
	TypeIR ExpectedFormat = "type-ir"
)

// Valid reports whether f is a known format.
func (f ExpectedFormat) Valid() bool {
	return f == HumanFriendly || f == TypeIR
}

// ValueKind is the runtime class tested by a TypeIs check.
type ValueKind string

// Value kinds.
const (
	KindString    ValueKind = "string"
	KindNumber    ValueKind = "number"
	KindBoolean   ValueKind = "boolean"
	KindNull      ValueKind = "null"
	KindUndefined ValueKind = "undefined"
	KindObject    ValueKind = "object" // any non-null non-primitive value
)

// Node is one check of the program tree. Every check reports whether the
// value it is applied to matches.
type Node interface {
	checkNode()
}

// Pass always matches.
type Pass struct{}

// Fail never matches.
type Fail struct {
	Expected any
}

// TypeIs matches values of one runtime kind.
type TypeIs struct {
	Kind     ValueKind
	Expected any
}

// Equals matches a single literal value (string, float64 or bool).
type Equals struct {
	Value    any
	Expected any
}

// PropCheck checks one declared property.
type PropCheck struct {
	Key      string
	Segment  string // path segment appended for this property
	Optional bool
	Check    Node
	Expected any // reported when a required property is missing
}

// ObjectCheck matches plain objects. Keys that are not declared are
// checked against the index signatures; with RejectForeign set and no
// index signature they fail.
type ObjectCheck struct {
	Props           []PropCheck
	StringIndex     Node
	NumberIndex     Node
	RejectForeign   bool
	ForeignExpected any  // reported for a rejected foreign key
	Exhaustive      bool // keep checking after the first failing property
	Expected        any
}

// TupleCheck matches arrays of bounded length. Max is -1 when unbounded.
type TupleCheck struct {
	Elements   []Node
	Min        int
	Max        int
	Rest       Node
	Exhaustive bool
	Expected   any
}

// ArrayCheck matches arrays whose every element matches Element.
type ArrayCheck struct {
	Element    Node
	Exhaustive bool
	Expected   any
}

// MapCheck matches Map values.
type MapCheck struct {
	Key        Node
	Value      Node
	Exhaustive bool
	Expected   any
}

// SetCheck matches Set values.
type SetCheck struct {
	Element    Node
	Exhaustive bool
	Expected   any
}

// AnyOf matches when one option matches. Options never record failures;
// when every option fails the AnyOf records a single failure itself.
type AnyOf struct {
	Options  []Node
	Expected any
}

// AllOf matches when every check matches.
type AllOf struct {
	Checks     []Node
	Exhaustive bool
}

// Call applies the hoisted function at index Func.
type Call struct {
	Func int
}

// Refine applies the user refinement registered under Name.
type Refine struct {
	Name     string
	Expected any
}

func (Pass) checkNode()        {}
func (Fail) checkNode()        {}
func (TypeIs) checkNode()      {}
func (Equals) checkNode()      {}
func (ObjectCheck) checkNode() {}
func (TupleCheck) checkNode()  {}
func (ArrayCheck) checkNode()  {}
func (MapCheck) checkNode()    {}
func (SetCheck) checkNode()    {}
func (AnyOf) checkNode()       {}
func (AllOf) checkNode()       {}
func (Call) checkNode()        {}
func (Refine) checkNode()      {}

// Function is a hoisted sub-validator.
type Function struct {
	Key     string // instance key
	Display string // readable instance name
	Guard   bool   // stop re-entry on the same value (circular instances)
	Body    Node
}

// Program is a compiled validator.
type Program struct {
	Name        string // readable root type
	Root        Node
	Functions   []Function
	Refinements []string // refinement names used, sorted
}
