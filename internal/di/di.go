// Package di provides a minimal service container with typed tokens.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry provides read access to registered services.
type ServiceRegistry interface {
	// Get returns the service registered under key, resolving a factory
	// on first access. Panics if the key is unknown.
	Get(key string) any
}

// Container extends ServiceRegistry with registration.
type Container interface {
	ServiceRegistry

	// Register stores a ready service instance under key.
	Register(key string, service any)

	// RegisterFactory stores a lazily-evaluated singleton factory under key.
	RegisterFactory(key string, factory func(ServiceRegistry) any)
}

// NewContainer creates an empty Container.
func NewContainer() Container {
	return &container{
		services:  make(map[string]any),
		factories: make(map[string]func(ServiceRegistry) any),
	}
}

type container struct {
	mu        sync.Mutex
	services  map[string]any
	factories map[string]func(ServiceRegistry) any
}

func (c *container) Register(key string, service any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[key] = service
}

func (c *container) RegisterFactory(key string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[key] = factory
}

func (c *container) Get(key string) any {
	c.mu.Lock()
	if svc, ok := c.services[key]; ok {
		c.mu.Unlock()
		return svc
	}
	factory, ok := c.factories[key]
	c.mu.Unlock()

	if !ok {
		panic(fmt.Sprintf("di: unknown service %q", key))
	}

	// Resolve outside the lock so factories can Get their dependencies.
	svc := factory(c)

	c.mu.Lock()
	// Another goroutine may have resolved concurrently; keep the first.
	if existing, ok := c.services[key]; ok {
		svc = existing
	} else {
		c.services[key] = svc
	}
	c.mu.Unlock()

	return svc
}

// Token is a typed service key. The type parameter carries the service
// type so lookups need no assertions at call sites.
type Token[T any] struct {
	name string
}

// NewToken creates a typed token with a unique name.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the token's registry key.
func (t Token[T]) Name() string {
	return t.name
}

// RegisterToken registers a typed factory for the token.
func RegisterToken[T any](c Container, token Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(token.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves the token's service with its static type.
func GetToken[T any](sr ServiceRegistry, token Token[T]) T {
	svc, ok := sr.Get(token.name).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type", token.name))
	}
	return svc
}
