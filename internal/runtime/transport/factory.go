// Package transport connects the runtime config to the pluggable transport
// registry. Importing it registers every built-in transport.
package transport

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/drblury/resourcewatch/internal/runtime/config"
	registry "github.com/drblury/resourcewatch/transport"
	_ "github.com/drblury/resourcewatch/transport/transports"
)

// Transport is the publisher/subscriber pair a factory builds.
type Transport = registry.Transport

// Capabilities describes what a built transport guarantees.
type Capabilities = registry.Capabilities

// Factory abstracts how the service initialises message transports.
type Factory interface {
	Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error)
	Capabilities(name string) Capabilities
}

// FactoryFunc adapts a function into a Factory with unknown capabilities.
type FactoryFunc func(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error)

func (f FactoryFunc) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	return f(ctx, conf, logger)
}

func (f FactoryFunc) Capabilities(name string) Capabilities {
	return Capabilities{Name: name}
}

// DefaultFactory builds transports from the default registry.
func DefaultFactory() Factory {
	return RegistryFactory(registry.DefaultRegistry)
}

// RegistryFactory builds transports from reg.
func RegistryFactory(reg *registry.Registry) Factory {
	return registryFactory{reg: reg}
}

type registryFactory struct {
	reg *registry.Registry
}

func (f registryFactory) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	if conf == nil {
		return Transport{}, fmt.Errorf("config is required")
	}
	return f.reg.Build(ctx, conf, logger)
}

func (f registryFactory) Capabilities(name string) Capabilities {
	return f.reg.Capabilities(name)
}
