package connector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Konsultn-Engineering/pgswarm/dialect"
	"github.com/Konsultn-Engineering/pgswarm/transport"
)

type standardConnector struct {
	provider Provider
	config   Config
	opener   transport.Opener
}

var globalManager = &Manager{
	providers: make(map[string]Provider),
}

type Manager struct {
	providers map[string]Provider
	mu        sync.RWMutex
}

func Register(name string, provider Provider) {
	globalManager.mu.Lock()
	defer globalManager.mu.Unlock()
	globalManager.providers[name] = provider
}

// Providers lists the registered provider names.
func Providers() []string {
	globalManager.mu.RLock()
	defer globalManager.mu.RUnlock()
	names := make([]string, 0, len(globalManager.providers))
	for name := range globalManager.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func New(name string, config Config) (Connector, error) {
	globalManager.mu.RLock()
	provider, ok := globalManager.providers[name]
	globalManager.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("provider %s not registered", name)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", name, err)
	}
	opener, err := provider.Opener(config)
	if err != nil {
		return nil, fmt.Errorf("%s opener: %w", name, err)
	}
	return &standardConnector{provider: provider, config: config, opener: opener}, nil
}

func (c *standardConnector) Open(ctx context.Context) (transport.Conn, error) {
	return c.opener.Open(ctx)
}

func (c *standardConnector) Dialect() dialect.Dialect {
	return c.provider.Dialect()
}

func (c *standardConnector) Config() Config {
	return c.config
}
