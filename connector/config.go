package connector

import (
	"fmt"
	"time"
)

const (
	DefaultMaxOpen     = 10
	DefaultMaxIdleTime = 10 * time.Second
	DefaultPort        = 5432
)

// Config represents database connection configuration.
type Config struct {
	Host            string            `json:"host" yaml:"host"`
	Port            int               `json:"port" yaml:"port"`
	Database        string            `json:"database" yaml:"database"`
	Username        string            `json:"username" yaml:"username"`
	Password        string            `json:"password" yaml:"password"`
	Charset         string            `json:"charset" yaml:"charset"`
	SSLMode         string            `json:"ssl_mode" yaml:"ssl_mode"`
	ApplicationName string            `json:"application_name" yaml:"application_name"`
	Params          map[string]string `json:"params" yaml:"params"`
	Pool            PoolConfig        `json:"pool" yaml:"pool"`
	ConnectTimeout  time.Duration     `json:"connect_timeout" yaml:"connect_timeout"`
	Retry           *RetryConfig      `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// PoolConfig defines connection pool settings. Both values are fixed once the
// pool is built.
type PoolConfig struct {
	// MaxOpen is the soft maximum: idle connections are only evicted while the
	// pool holds more than this many. Leasing never waits on it.
	MaxOpen int `json:"max_open" yaml:"max_open"`
	// MaxIdleTime is how long a free connection may sit unused before it
	// becomes eligible for eviction.
	MaxIdleTime time.Duration `json:"max_idle_time" yaml:"max_idle_time"`
}

// WithDefaults fills unset fields.
func (pc PoolConfig) WithDefaults() PoolConfig {
	if pc.MaxOpen <= 0 {
		pc.MaxOpen = DefaultMaxOpen
	}
	if pc.MaxIdleTime <= 0 {
		pc.MaxIdleTime = DefaultMaxIdleTime
	}
	return pc
}

// RetryConfig defines connection retry behavior.
type RetryConfig struct {
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay" yaml:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay" yaml:"max_delay"`
	Backoff    float64       `json:"backoff" yaml:"backoff"`
}

// Validate checks the fields a connection cannot be opened without.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Pool.MaxOpen < 0 {
		return fmt.Errorf("invalid pool max_open: %d", c.Pool.MaxOpen)
	}
	return nil
}

// ConnString renders the keyword/value connection string understood by libpq
// compatible clients.
func (c Config) ConnString() string {
	b := NewDSNBuilder().
		Host(c.Host, c.Port).
		Database(c.Database).
		Auth(c.Username, c.Password).
		Charset(c.Charset).
		Param("sslmode", c.SSLMode).
		Param("application_name", c.ApplicationName)
	if c.ConnectTimeout > 0 {
		secs := int(c.ConnectTimeout / time.Second)
		if secs < 1 {
			secs = 1
		}
		b.Param("connect_timeout", fmt.Sprint(secs))
	}
	return b.Params(c.Params).Build()
}
