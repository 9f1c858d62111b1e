package connector

import (
	"context"

	"github.com/Konsultn-Engineering/pgswarm/dialect"
	"github.com/Konsultn-Engineering/pgswarm/transport"
)

// Connector opens physical connections for one configured server. It
// satisfies transport.Opener so it can back a pool directly.
type Connector interface {
	Open(ctx context.Context) (transport.Conn, error)
	Dialect() dialect.Dialect
	Config() Config
}
