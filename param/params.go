package param

import (
	"errors"
	"strings"
)

// ErrInvalidParameterStyle is returned when ordinal and named parameters are
// mixed within one statement.
var ErrInvalidParameterStyle = errors.New("param: ordinal and named parameters cannot be mixed")

// Params holds the parameters of one statement, either ordinal or named.
type Params struct {
	Ordinal      []any
	OrdinalTypes []Type
	Named        map[string]any
	NamedTypes   map[string]Type
}

// Positional returns ordinal parameters bound to $1, $2, ... in order.
func Positional(values ...any) Params {
	return Params{Ordinal: values}
}

// NamedValues returns parameters bound to :name placeholders.
func NamedValues(values map[string]any) Params {
	return Params{Named: values}
}

// WithTypes sets the ordinal parameter types. Missing trailing types are untyped.
func (p Params) WithTypes(types ...Type) Params {
	p.OrdinalTypes = types
	return p
}

// WithKinds is WithTypes for raw binding kinds.
func (p Params) WithKinds(kinds ...Kind) Params {
	types := make([]Type, len(kinds))
	for i, k := range kinds {
		types[i] = KindOf(k)
	}
	p.OrdinalTypes = types
	return p
}

// WithNamedTypes sets the named parameter types.
func (p Params) WithNamedTypes(types map[string]Type) Params {
	p.NamedTypes = types
	return p
}

// Empty reports whether p carries no values at all.
func (p Params) Empty() bool {
	return len(p.Ordinal) == 0 && len(p.Named) == 0
}

// IsNamed reports whether p uses named placeholders.
func (p Params) IsNamed() bool {
	return len(p.Named) > 0
}

// Validate rejects parameter sets that mix ordinal and named styles.
func (p Params) Validate() error {
	ordinal := len(p.Ordinal) > 0 || len(p.OrdinalTypes) > 0
	named := len(p.Named) > 0 || len(p.NamedTypes) > 0
	if ordinal && named {
		return ErrInvalidParameterStyle
	}
	return nil
}

// Lookup returns the named value for name. Keys may carry a leading colon.
func (p Params) Lookup(name string) (any, bool) {
	return lookup(p.Named, name)
}

// LookupType returns the named type for name, or the untyped marker.
func (p Params) LookupType(name string) Type {
	t, _ := lookup(p.NamedTypes, name)
	return t
}

func lookup[V any](m map[string]V, name string) (V, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	if strings.HasPrefix(name, ":") {
		v, ok := m[name[1:]]
		return v, ok
	}
	v, ok := m[":"+name]
	return v, ok
}
