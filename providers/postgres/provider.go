// Package postgres registers the PostgreSQL provider. Import it for its side
// effect:
//
//	import _ "github.com/Konsultn-Engineering/pgswarm/providers/postgres"
package postgres

import (
	"github.com/Konsultn-Engineering/pgswarm/connector"
	"github.com/Konsultn-Engineering/pgswarm/dialect"
	"github.com/Konsultn-Engineering/pgswarm/transport"
)

const Name = "pgsql"

type Provider struct{}

func init() {
	connector.Register(Name, &Provider{})
	connector.Register("postgres", &Provider{})
}

// Opener parses the keyword/value connection string built from cfg. Nothing
// is dialed until the pool asks for a connection.
func (p *Provider) Opener(cfg connector.Config) (transport.Opener, error) {
	return transport.NewPgxOpener(cfg.ConnString())
}

func (p *Provider) Dialect() dialect.Dialect {
	return dialect.NewPostgresDialect()
}
