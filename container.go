package kiln

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/junioryono/kiln/internal/reflection"
)

// Container maps service types to construction strategies and resolves
// object graphs on demand.
//
// Registration and resolution are safe for concurrent use. Every top-level
// call to Resolve tracks its own resolution chain, so concurrent resolutions
// never see each other's in-progress services. A constructor or factory that
// calls Resolve on the same goroutine continues the chain of the resolution
// that invoked it, which turns a cycle through such a call into a
// CircularDependencyError. Resolutions started on other goroutines are
// independent; a constructor that waits on one resolving its own singleton
// blocks forever.
type Container struct {
	id string

	mu      sync.RWMutex
	entries map[reflect.Type]*entry
	order   []reflect.Type

	// active maps goroutine IDs to the resolution running on them.
	active sync.Map

	analyzer *reflection.Analyzer
	options  *containerOptions
	logger   *zap.Logger
}

// New creates an empty Container.
func New(opts ...Option) *Container {
	options := defaultContainerOptions()
	for _, opt := range opts {
		opt.apply(options)
	}

	id := uuid.NewString()

	return &Container{
		id:       id,
		entries:  make(map[reflect.Type]*entry),
		analyzer: reflection.New(),
		options:  options,
		logger:   options.logger.With(zap.String("container", id)),
	}
}

// ID returns the unique ID of this container.
func (c *Container) ID() string {
	return c.id
}

// RegisterSingleton registers serviceType with a constructor strategy whose
// first produced instance is cached and returned on every later resolution.
//
// implementation may be:
//   - nil, to construct serviceType itself
//   - a reflect.Type naming a struct or pointer-to-struct; fields tagged
//     `inject:""` are injected by type and `inject:"Name"` by service name
//   - a constructor function func(deps...) T or func(deps...) (T, error)
//
// The implementation must satisfy serviceType; this is checked here rather
// than at resolution.
func (c *Container) RegisterSingleton(serviceType reflect.Type, implementation any) error {
	return c.registerImplementation(serviceType, implementation, Singleton)
}

// RegisterTransient is like RegisterSingleton but constructs a new instance
// on every resolution.
func (c *Container) RegisterTransient(serviceType reflect.Type, implementation any) error {
	return c.registerImplementation(serviceType, implementation, Transient)
}

// RegisterInstance registers a pre-built instance that is returned verbatim
// by every resolution. The instance's dynamic type must satisfy serviceType.
func (c *Container) RegisterInstance(serviceType reflect.Type, instance any) error {
	return c.register(serviceType, func() (*entry, error) {
		if instance == nil {
			return nil, InvalidRegistrationError{ServiceType: serviceType, Reason: ErrInstanceNil.Error(), Cause: ErrInstanceNil}
		}

		instanceType := reflect.TypeOf(instance)
		if reason := reflection.Satisfies(instanceType, serviceType); reason != "" {
			return nil, InvalidRegistrationError{ServiceType: serviceType, Reason: reason}
		}

		return newInstanceEntry(Registration{
			ID:                 uuid.NewString(),
			ServiceType:        serviceType,
			ImplementationType: instanceType,
			Lifetime:           Singleton,
			Strategy:           StrategyInstance,
		}, instance), nil
	})
}

// RegisterFactory registers a function callable without arguments, returning
// T or (T, error). The factory runs on every resolution and its output is
// never cached, so the registration reports Transient.
//
// T must satisfy serviceType. When T is an interface the produced value is
// checked on each call instead.
func (c *Container) RegisterFactory(serviceType reflect.Type, factory any) error {
	return c.register(serviceType, func() (*entry, error) {
		recipe, err := c.analyzer.Factory(factory)
		if err != nil {
			return nil, InvalidRegistrationError{
				ServiceType: serviceType,
				Reason:      "factory is not callable without arguments: " + err.Error(),
				Cause:       err,
			}
		}

		if recipe.Implementation.Kind() != reflect.Interface {
			if reason := reflection.Satisfies(recipe.Implementation, serviceType); reason != "" {
				return nil, InvalidRegistrationError{ServiceType: serviceType, Reason: reason}
			}
		}

		return newEntry(Registration{
			ID:                 uuid.NewString(),
			ServiceType:        serviceType,
			ImplementationType: recipe.Implementation,
			Lifetime:           Transient,
			Strategy:           StrategyFactory,
		}, recipe), nil
	})
}

// IsRegistered reports whether serviceType has a registration.
func (c *Container) IsRegistered(serviceType reflect.Type) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, exists := c.entries[serviceType]
	return exists
}

// Registrations returns the registered service types in registration order.
func (c *Container) Registrations() []reflect.Type {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]reflect.Type, len(c.order))
	copy(result, c.order)
	return result
}

// Registration returns a copy of the registration for serviceType.
func (c *Container) Registration(serviceType reflect.Type) (Registration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[serviceType]
	if !exists {
		return Registration{}, false
	}
	return e.info.clone(), true
}

// Len returns the number of registrations.
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Resolve returns an instance of serviceType, constructing it and its
// dependencies as their registrations dictate.
//
// Failures are DependencyResolutionError or CircularDependencyError and are
// returned unchanged from the point they occurred.
func (c *Container) Resolve(serviceType reflect.Type) (any, error) {
	if serviceType == nil {
		return nil, DependencyResolutionError{Cause: ErrServiceTypeNil}
	}

	res, release := c.begin()
	defer release()

	start := time.Now()

	instance, err := c.resolve(res, serviceType)
	duration := time.Since(start)

	if err != nil {
		c.logger.Debug("resolution failed",
			zap.String("service", formatType(serviceType)),
			zap.String("resolution", res.id),
			zap.Duration("duration", duration),
			zap.Error(err))

		if c.options.onError != nil {
			c.options.onError(serviceType, err)
		}
		return nil, err
	}

	c.logger.Debug("resolved service",
		zap.String("service", formatType(serviceType)),
		zap.String("resolution", res.id),
		zap.Duration("duration", duration))

	if c.options.onResolved != nil {
		c.options.onResolved(serviceType, instance, duration)
	}

	return instance, nil
}

func (c *Container) registerImplementation(serviceType reflect.Type, implementation any, lifetime Lifetime) error {
	return c.register(serviceType, func() (*entry, error) {
		recipe, err := c.recipeFor(serviceType, implementation)
		if err != nil {
			return nil, InvalidRegistrationError{ServiceType: serviceType, Reason: err.Error(), Cause: err}
		}

		if reason := reflection.Satisfies(recipe.Implementation, serviceType); reason != "" {
			return nil, InvalidRegistrationError{ServiceType: serviceType, Reason: reason}
		}

		return newEntry(Registration{
			ID:                 uuid.NewString(),
			ServiceType:        serviceType,
			ImplementationType: recipe.Implementation,
			Lifetime:           lifetime,
			Strategy:           StrategyConstructor,
		}, recipe), nil
	})
}

func (c *Container) recipeFor(serviceType reflect.Type, implementation any) (*reflection.Recipe, error) {
	switch impl := implementation.(type) {
	case nil:
		return c.analyzer.Struct(serviceType)
	case reflect.Type:
		return c.analyzer.Struct(impl)
	default:
		if reflect.ValueOf(implementation).Kind() != reflect.Func {
			return nil, fmt.Errorf("implementation must be nil, a reflect.Type or a constructor function, got %T", implementation)
		}
		return c.analyzer.Constructor(implementation)
	}
}

// register builds and stores an entry for serviceType under the registry
// lock. The registry is unchanged when build fails. The registered callback
// runs after the lock is released.
func (c *Container) register(serviceType reflect.Type, build func() (*entry, error)) error {
	if serviceType == nil {
		return InvalidRegistrationError{Reason: ErrServiceTypeNil.Error(), Cause: ErrServiceTypeNil}
	}

	c.mu.Lock()
	if _, exists := c.entries[serviceType]; exists {
		c.mu.Unlock()
		return DuplicateRegistrationError{ServiceType: serviceType}
	}

	e, err := build()
	if err == nil {
		c.add(e)
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}

	if c.options.onRegistered != nil {
		c.options.onRegistered(e.info.clone())
	}
	return nil
}

// add stores e. The caller holds c.mu.
func (c *Container) add(e *entry) {
	c.entries[e.info.ServiceType] = e
	c.order = append(c.order, e.info.ServiceType)

	c.logger.Debug("registered service",
		zap.String("service", formatType(e.info.ServiceType)),
		zap.String("implementation", formatType(e.info.ImplementationType)),
		zap.Stringer("lifetime", e.info.Lifetime),
		zap.Stringer("strategy", e.info.Strategy),
		zap.String("registration", e.info.ID),
		zap.Int("analyzed", c.analyzer.CacheSize()))
}

func (c *Container) lookup(serviceType reflect.Type) (*entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[serviceType]
	return e, exists
}
