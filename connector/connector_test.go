package connector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Konsultn-Engineering/pgswarm/dialect"
	"github.com/Konsultn-Engineering/pgswarm/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSNBuilderOrderAndOmission(t *testing.T) {
	dsn := NewDSNBuilder().
		Host("db.local", 5432).
		Database("app").
		Auth("svc", "").
		Charset("UTF8").
		Build()

	assert.Equal(t, "host=db.local port=5432 dbname=app user=svc options=--client_encoding=UTF8", dsn)
}

func TestDSNBuilderQuoting(t *testing.T) {
	dsn := NewDSNBuilder().
		Auth("svc", `pa ss'w\d`).
		Param("application_name", "my app").
		Build()

	assert.Equal(t, `user=svc password='pa ss\'w\\d' application_name='my app'`, dsn)
}

func TestDSNBuilderParamsSortedAndOverwritten(t *testing.T) {
	dsn := NewDSNBuilder().
		Param("sslmode", "disable").
		Params(map[string]string{"search_path": "app", "connect_timeout": "5", "sslmode": "require", "empty": ""}).
		Build()

	assert.Equal(t, "sslmode=require connect_timeout=5 search_path=app", dsn)
}

func TestConfigConnString(t *testing.T) {
	cfg := Config{
		Host:           "localhost",
		Port:           5433,
		Database:       "orders",
		Username:       "app",
		Password:       "secret",
		Charset:        "LATIN1",
		SSLMode:        "disable",
		ConnectTimeout: 1500 * time.Millisecond,
	}

	assert.Equal(t,
		"host=localhost port=5433 dbname=orders user=app password=secret options=--client_encoding=LATIN1 sslmode=disable connect_timeout=1",
		cfg.ConnString())
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{Host: "h", Port: 70000}.Validate())
	assert.NoError(t, Config{Host: "h"}.Validate())
}

func TestPoolConfigDefaults(t *testing.T) {
	pc := PoolConfig{}.WithDefaults()
	assert.Equal(t, DefaultMaxOpen, pc.MaxOpen)
	assert.Equal(t, DefaultMaxIdleTime, pc.MaxIdleTime)

	pc = PoolConfig{MaxOpen: 3, MaxIdleTime: time.Minute}.WithDefaults()
	assert.Equal(t, 3, pc.MaxOpen)
	assert.Equal(t, time.Minute, pc.MaxIdleTime)
}

func TestRetry(t *testing.T) {
	t.Run("nil config tries once", func(t *testing.T) {
		calls := 0
		_, err := Retry(context.Background(), nil, func(context.Context) (int, error) {
			calls++
			return 0, errors.New("down")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		cfg := &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
		v, err := Retry(context.Background(), cfg, func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("down")
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error", func(t *testing.T) {
		down := errors.New("down")
		cfg := &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond}
		_, err := Retry(context.Background(), cfg, func(context.Context) (int, error) {
			return 0, down
		})
		assert.ErrorIs(t, err, down)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cfg := &RetryConfig{MaxRetries: 5, BaseDelay: time.Hour}
		_, err := Retry(ctx, cfg, func(context.Context) (int, error) {
			return 0, errors.New("down")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

type stubProvider struct {
	opened int
}

func (p *stubProvider) Opener(Config) (transport.Opener, error) {
	return transport.OpenerFunc(func(context.Context) (transport.Conn, error) {
		p.opened++
		return nil, errors.New("stub")
	}), nil
}

func (p *stubProvider) Dialect() dialect.Dialect {
	return dialect.NewPostgresDialect()
}

func TestRegistry(t *testing.T) {
	p := &stubProvider{}
	Register("stub", p)
	assert.Contains(t, Providers(), "stub")

	_, err := New("missing", Config{Host: "h"})
	assert.EqualError(t, err, "provider missing not registered")

	_, err = New("stub", Config{})
	assert.Error(t, err)

	c, err := New("stub", Config{Host: "h"})
	require.NoError(t, err)
	assert.Equal(t, "h", c.Config().Host)
	assert.NotNil(t, c.Dialect())

	_, err = c.Open(context.Background())
	assert.EqualError(t, err, "stub")
	assert.Equal(t, 1, p.opened)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pgswarm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
host: db.internal
database: app
username: reader
charset: UTF8
pool:
  max_open: 4
  max_idle_time: 30s
retry:
  max_retries: 3
  base_delay: 100ms
`), 0o600))

	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("PGSWARM_PASSWORD=from-dotenv\nPGSWARM_DATABASE=ignored\n"), 0o600))

	t.Setenv("PGSWARM_DATABASE", "from-env")
	t.Setenv("PGSWARM_PORT", "6543")

	cfg, err := LoadConfig(path, envFile)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "from-env", cfg.Database)
	assert.Equal(t, "reader", cfg.Username)
	assert.Equal(t, "from-dotenv", cfg.Password)
	assert.Equal(t, "UTF8", cfg.Charset)
	assert.Equal(t, 4, cfg.Pool.MaxOpen)
	assert.Equal(t, 30*time.Second, cfg.Pool.MaxIdleTime)
	require.NotNil(t, cfg.Retry)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.BaseDelay)
}

func TestLoadConfigDefaultsAndBadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "empty.env")
	require.NoError(t, os.WriteFile(envFile, nil, 0o600))

	cfg, err := LoadConfig("", envFile)
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultMaxOpen, cfg.Pool.MaxOpen)
	assert.Equal(t, DefaultMaxIdleTime, cfg.Pool.MaxIdleTime)

	t.Setenv("PGSWARM_POOL_MAX_IDLE_TIME", "soon")
	_, err = LoadConfig("", envFile)
	assert.Error(t, err)
}
