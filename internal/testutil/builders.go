package testutil

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/junioryono/kiln"
)

// ContainerBuilder provides a fluent interface for building test containers
type ContainerBuilder struct {
	t         *testing.T
	container *kiln.Container
}

// NewContainerBuilder creates a new ContainerBuilder
func NewContainerBuilder(t *testing.T, opts ...kiln.Option) *ContainerBuilder {
	return &ContainerBuilder{
		t:         t,
		container: kiln.New(opts...),
	}
}

// WithSingleton registers a singleton service
func (b *ContainerBuilder) WithSingleton(service reflect.Type, implementation any) *ContainerBuilder {
	b.t.Helper()
	require.NoError(b.t, b.container.RegisterSingleton(service, implementation))
	return b
}

// WithTransient registers a transient service
func (b *ContainerBuilder) WithTransient(service reflect.Type, implementation any) *ContainerBuilder {
	b.t.Helper()
	require.NoError(b.t, b.container.RegisterTransient(service, implementation))
	return b
}

// WithInstance registers a pre-built instance
func (b *ContainerBuilder) WithInstance(service reflect.Type, instance any) *ContainerBuilder {
	b.t.Helper()
	require.NoError(b.t, b.container.RegisterInstance(service, instance))
	return b
}

// WithFactory registers a factory
func (b *ContainerBuilder) WithFactory(service reflect.Type, factory any) *ContainerBuilder {
	b.t.Helper()
	require.NoError(b.t, b.container.RegisterFactory(service, factory))
	return b
}

// WithBasicServices registers a singleton TestLogger and a transient TestDatabase.
func (b *ContainerBuilder) WithBasicServices() *ContainerBuilder {
	b.t.Helper()
	return b.
		WithSingleton(kiln.TypeOf[TestLogger](), NewTestLogger).
		WithTransient(kiln.TypeOf[TestDatabase](), NewTestDatabase)
}

// Build returns the container
func (b *ContainerBuilder) Build() *kiln.Container {
	return b.container
}
