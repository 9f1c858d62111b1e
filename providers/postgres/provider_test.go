package postgres

import (
	"testing"
	"time"

	"github.com/Konsultn-Engineering/pgswarm/connector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistered(t *testing.T) {
	assert.Contains(t, connector.Providers(), "pgsql")
	assert.Contains(t, connector.Providers(), "postgres")
}

func TestOpenerDoesNotDial(t *testing.T) {
	cfg := connector.Config{
		Host:           "db.invalid",
		Port:           5432,
		Database:       "orders",
		Username:       "app",
		Password:       "s3cret pass",
		ConnectTimeout: 2 * time.Second,
	}
	opener, err := (&Provider{}).Opener(cfg)
	require.NoError(t, err)
	assert.NotNil(t, opener)
}

func TestNewConnector(t *testing.T) {
	c, err := connector.New(Name, connector.Config{Host: "localhost", Port: 5432, Database: "orders"})
	require.NoError(t, err)
	assert.Equal(t, `"orders"`, c.Dialect().QuoteIdentifier("orders"))
}
