package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/kiln"
)

// AssertServiceResolvable checks if a service can be resolved
func AssertServiceResolvable[T any](t *testing.T, c *kiln.Container) T {
	t.Helper()
	service, err := kiln.Resolve[T](c)
	require.NoError(t, err, "failed to resolve service of type %s", kiln.TypeOf[T]())
	require.NotNil(t, service, "resolved service is nil")
	return service
}

// AssertServiceNotRegistered checks if a service resolution fails with a not registered error
func AssertServiceNotRegistered[T any](t *testing.T, c *kiln.Container) {
	t.Helper()
	_, err := kiln.Resolve[T](c)
	assert.Error(t, err)
	assert.True(t, kiln.IsNotRegistered(err), "expected not registered error, got: %v", err)
}

// AssertSameInstance verifies two services are the same instance
func AssertSameInstance(t *testing.T, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	assert.Same(t, expected, actual, msgAndArgs...)
}

// AssertDifferentInstances verifies two services are different instances
func AssertDifferentInstances(t *testing.T, first, second any, msgAndArgs ...any) {
	t.Helper()
	assert.NotSame(t, first, second, msgAndArgs...)
}

// AssertErrorType checks if an error is of a specific type
func AssertErrorType[T error](t *testing.T, err error, msgAndArgs ...any) T {
	t.Helper()
	var target T
	assert.ErrorAs(t, err, &target, msgAndArgs...)
	return target
}

// AssertCircularDependency checks that err is a circular dependency error
// with the given path.
func AssertCircularDependency(t *testing.T, err error, path ...string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, kiln.IsCircularDependency(err), "expected circular dependency error, got: %v", err)
	assert.ErrorIs(t, err, kiln.ErrInjection)

	if len(path) > 0 {
		got, ok := kiln.CyclePath(err)
		require.True(t, ok)
		assert.Equal(t, path, got)
	}
}

// AssertResolutionChain checks that err is a resolution error with the given chain.
func AssertResolutionChain(t *testing.T, err error, chain ...string) kiln.DependencyResolutionError {
	t.Helper()
	require.Error(t, err)
	resErr := AssertErrorType[kiln.DependencyResolutionError](t, err)
	assert.Equal(t, chain, resErr.Chain)
	return resErr
}
