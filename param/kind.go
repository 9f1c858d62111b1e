package param

import "strconv"

// Kind is the binding kind of a statement parameter.
type Kind int

const (
	Null        Kind = 0
	Integer     Kind = 1
	String      Kind = 2
	LargeObject Kind = 3
	Boolean     Kind = 5
	Binary      Kind = 16
	ASCII       Kind = 17
)

// ArrayOffset is added to an element kind to mark a list parameter.
const ArrayOffset = 100

const (
	IntArray = Integer + ArrayOffset
	StrArray = String + ArrayOffset
)

// IsArray reports whether k marks a list of integers or strings.
func (k Kind) IsArray() bool {
	return k == IntArray || k == StrArray
}

// Elem returns the element kind of a list kind. Scalar kinds are returned as is.
func (k Kind) Elem() Kind {
	if k.IsArray() {
		return k - ArrayOffset
	}
	return k
}

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Integer:
		return "integer"
	case String:
		return "string"
	case LargeObject:
		return "large_object"
	case Boolean:
		return "boolean"
	case Binary:
		return "binary"
	case ASCII:
		return "ascii"
	case IntArray:
		return "integer[]"
	case StrArray:
		return "string[]"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Type tags a bound value. It is either a raw binding kind or the name of a
// conversion type resolved by a Converter. The zero Type is untyped.
type Type struct {
	Name string
	Kind Kind
}

// KindOf returns a Type that binds with k without conversion.
func KindOf(k Kind) Type {
	return Type{Kind: k}
}

// Named returns a Type resolved by name through a Converter.
func Named(name string) Type {
	return Type{Name: name}
}

// IsZero reports whether t is the untyped marker.
func (t Type) IsZero() bool {
	return t.Name == "" && t.Kind == Null
}

// IsArray reports whether t is a list marker that needs placeholder expansion.
func (t Type) IsArray() bool {
	return t.Name == "" && t.Kind.IsArray()
}

// Elem returns the type of a single element of a list type.
func (t Type) Elem() Type {
	if t.IsArray() {
		return Type{Kind: t.Kind.Elem()}
	}
	return t
}

func (t Type) String() string {
	if t.Name != "" {
		return t.Name
	}
	if t.IsZero() {
		return "untyped"
	}
	return t.Kind.String()
}

// Arg is a converted value ready to be sent to the server.
type Arg struct {
	Value any
	Kind  Kind
}

// Args wraps untyped values as transport arguments.
func Args(values ...any) []Arg {
	args := make([]Arg, len(values))
	for i, v := range values {
		args[i] = Arg{Value: v}
	}
	return args
}
