package connector

import (
	"github.com/Konsultn-Engineering/pgswarm/dialect"
	"github.com/Konsultn-Engineering/pgswarm/transport"
)

// Provider knows how to reach one kind of server.
type Provider interface {
	Opener(config Config) (transport.Opener, error)
	Dialect() dialect.Dialect
}
