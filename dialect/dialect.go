package dialect

import (
	"errors"

	"github.com/Konsultn-Engineering/pgswarm/param"
)

// ErrUnsupportedBindingKind is returned when a value cannot be quoted for the
// requested binding kind.
var ErrUnsupportedBindingKind = errors.New("dialect: unsupported binding kind")

type Dialect interface {
	QuoteIdentifier(name string) string
	Placeholder(n int) string
	Quote(value any, kind param.Kind) (string, error)
}
