package ir

// Type is a sealed interface representing a node of the type IR.
// Only the node types declared in this file implement it.
type Type interface {
	typeNode() // Sealed - only these types implement it
}

// PrimitiveName names a primitive type.
type PrimitiveName string

// Primitive names understood by every stage.
const (
	String    PrimitiveName = "string"
	Number    PrimitiveName = "number"
	Boolean   PrimitiveName = "boolean"
	Null      PrimitiveName = "null"
	Undefined PrimitiveName = "undefined"
	Object    PrimitiveName = "object"
	Any       PrimitiveName = "any"
	Unknown   PrimitiveName = "unknown"
)

// ValidPrimitives lists the allowed primitive names.
var ValidPrimitives = map[PrimitiveName]bool{
	String:    true,
	Number:    true,
	Boolean:   true,
	Null:      true,
	Undefined: true,
	Object:    true,
	Any:       true,
	Unknown:   true,
}

// Primitive is a primitive leaf type.
type Primitive struct {
	Name PrimitiveName
}

func (Primitive) typeNode() {}

// IsUniversal reports whether the primitive accepts every value.
func (p Primitive) IsUniversal() bool {
	return p.Name == Any || p.Name == Unknown
}

// Literal is a literal leaf type. Value is a string, float64 or bool.
type Literal struct {
	Value any
}

func (Literal) typeNode() {}

// Union is an ordered union of at least two members.
type Union struct {
	Members []Type
}

func (Union) typeNode() {}

// Intersection is an ordered intersection of at least two members.
type Intersection struct {
	Members []Type
}

func (Intersection) typeNode() {}

// Tuple is a fixed-length array type.
// Elements at index >= FirstOptional may be absent; Rest, when non-nil,
// types every element past the fixed ones.
type Tuple struct {
	Elements      []Type
	FirstOptional int
	Rest          Type
}

func (Tuple) typeNode() {}

// MinLen returns the minimum accepted length.
func (t Tuple) MinLen() int {
	return t.FirstOptional
}

// MaxLen returns the maximum accepted length, or -1 when unbounded.
func (t Tuple) MaxLen() int {
	if t.Rest != nil {
		return -1
	}
	return len(t.Elements)
}

// Property is a named member of an object shape.
type Property struct {
	Key      string
	Optional bool
	Value    Type
}

// ObjectShape is a structural object type with ordered properties and
// optional index signatures.
type ObjectShape struct {
	Properties  []Property
	StringIndex Type
	NumberIndex Type
}

func (ObjectShape) typeNode() {}

// Property returns the property with the given key.
func (o ObjectShape) Property(key string) (Property, bool) {
	for _, p := range o.Properties {
		if p.Key == key {
			return p, true
		}
	}
	return Property{}, false
}

// HasIndex reports whether the shape declares an index signature.
func (o ObjectShape) HasIndex() bool {
	return o.StringIndex != nil || o.NumberIndex != nil
}

// ContainerKind identifies a parametrized container.
type ContainerKind string

// Container kinds.
const (
	ArrayKind ContainerKind = "Array"
	MapKind   ContainerKind = "Map"
	SetKind   ContainerKind = "Set"
)

// Arity returns the number of element types the container takes.
func (k ContainerKind) Arity() int {
	if k == MapKind {
		return 2
	}
	return 1
}

// Container is a parametrized container type.
// Array and Set hold one element type, Map holds key and value types.
type Container struct {
	Kind     ContainerKind
	Elements []Type
}

func (Container) typeNode() {}

// Reference is a pre-instantiation pointer to a named declaration.
type Reference struct {
	Name string
	Args []Type
}

func (Reference) typeNode() {}

// Param refers to a type parameter of the enclosing declaration.
// It only occurs inside an unbound declaration body.
type Param struct {
	Index int
	Name  string
}

func (Param) typeNode() {}

// Handle replaces a Reference after instantiation.
// Key identifies the InstanceTable entry; Display is only for messages.
type Handle struct {
	Key     string
	Display string
}

func (Handle) typeNode() {}

// Bottom is the result of an impossible intersection.
type Bottom struct{}

func (Bottom) typeNode() {}

// Prim creates a Primitive type.
func Prim(name PrimitiveName) Primitive {
	return Primitive{Name: name}
}

// Lit creates a Literal type. Integer values are widened to float64.
func Lit(v any) Literal {
	switch n := v.(type) {
	case int:
		return Literal{Value: float64(n)}
	case int64:
		return Literal{Value: float64(n)}
	case float32:
		return Literal{Value: float64(n)}
	}
	return Literal{Value: v}
}

// NewUnion creates a union, collapsing arity 0 to Bottom and arity 1 to
// the single member.
func NewUnion(members ...Type) Type {
	switch len(members) {
	case 0:
		return Bottom{}
	case 1:
		return members[0]
	}
	return Union{Members: members}
}

// NewIntersection creates an intersection, collapsing arity 0 to unknown
// and arity 1 to the single member.
func NewIntersection(members ...Type) Type {
	switch len(members) {
	case 0:
		return Prim(Unknown)
	case 1:
		return members[0]
	}
	return Intersection{Members: members}
}

// ArrayOf creates an Array container.
func ArrayOf(elem Type) Container {
	return Container{Kind: ArrayKind, Elements: []Type{elem}}
}

// MapOf creates a Map container.
func MapOf(key, value Type) Container {
	return Container{Kind: MapKind, Elements: []Type{key, value}}
}

// SetOf creates a Set container.
func SetOf(elem Type) Container {
	return Container{Kind: SetKind, Elements: []Type{elem}}
}

// Ref creates a Reference.
func Ref(name string, args ...Type) Reference {
	return Reference{Name: name, Args: args}
}

// IsBottom reports whether t is Bottom.
func IsBottom(t Type) bool {
	_, ok := t.(Bottom)
	return ok
}
