package kiln

import (
	"fmt"
	"reflect"
)

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// AddSingleton registers I as the singleton implementation of S.
// I must be a struct or pointer-to-struct; see RegisterSingleton.
func AddSingleton[S any, I any](c *Container) error {
	return c.RegisterSingleton(TypeOf[S](), TypeOf[I]())
}

// AddTransient registers I as the transient implementation of S.
func AddTransient[S any, I any](c *Container) error {
	return c.RegisterTransient(TypeOf[S](), TypeOf[I]())
}

// AddSingletonFunc registers constructor as the singleton recipe of S.
func AddSingletonFunc[S any](c *Container, constructor any) error {
	return c.RegisterSingleton(TypeOf[S](), constructor)
}

// AddTransientFunc registers constructor as the transient recipe of S.
func AddTransientFunc[S any](c *Container, constructor any) error {
	return c.RegisterTransient(TypeOf[S](), constructor)
}

// AddInstance registers instance as S.
func AddInstance[S any](c *Container, instance S) error {
	return c.RegisterInstance(TypeOf[S](), instance)
}

// AddFactory registers a typed factory for S.
func AddFactory[S any](c *Container, factory func() (S, error)) error {
	return c.RegisterFactory(TypeOf[S](), factory)
}

// Resolve is a generic helper function that resolves a service as type T.
func Resolve[T any](c *Container) (T, error) {
	var zero T

	serviceType := TypeOf[T]()

	instance, err := c.Resolve(serviceType)
	if err != nil {
		return zero, err
	}

	// A nil produced for an interface or pointer service is a valid zero value.
	if instance == nil {
		return zero, nil
	}

	result, ok := instance.(T)
	if !ok {
		return zero, DependencyResolutionError{
			ServiceType: serviceType,
			Cause:       fmt.Errorf("type assertion failed: expected %s, got %T", formatType(serviceType), instance),
		}
	}

	return result, nil
}

// MustResolve resolves a service and panics on error.
func MustResolve[T any](c *Container) T {
	result, err := Resolve[T](c)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", formatType(TypeOf[T]()), err))
	}
	return result
}

// IsRegistered reports whether T has a registration in c.
func IsRegistered[T any](c *Container) bool {
	return c.IsRegistered(TypeOf[T]())
}
