package kiln

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/petermattis/goid"
	"go.uber.org/zap"

	"github.com/junioryono/kiln/internal/graph"
	"github.com/junioryono/kiln/internal/reflection"
)

// resolution is the state of one top-level Resolve call. It is threaded
// through the recursive descent and never shared between calls.
type resolution struct {
	id    string
	chain []link
}

// link is one service on the resolution chain.
type link struct {
	serviceType reflect.Type
	name        string
}

func newResolution() *resolution {
	return &resolution{
		id:    uuid.NewString(),
		chain: make([]link, 0, 8),
	}
}

// begin returns the resolution in progress on the calling goroutine, or
// starts one. A constructor or factory that calls Resolve while it runs
// continues the chain that invoked it, so cycles and depth are counted
// across the nested call. The returned func releases a started resolution.
func (c *Container) begin() (*resolution, func()) {
	gid := goid.Get()
	if active, ok := c.active.Load(gid); ok {
		return active.(*resolution), func() {}
	}

	res := newResolution()
	c.active.Store(gid, res)
	return res, func() { c.active.Delete(gid) }
}

func (r *resolution) push(serviceType reflect.Type, name string) {
	r.chain = append(r.chain, link{serviceType: serviceType, name: name})
}

func (r *resolution) pop() {
	r.chain = r.chain[:len(r.chain)-1]
}

// indexOf returns the position of serviceType on the chain, or -1.
func (r *resolution) indexOf(serviceType reflect.Type) int {
	for i, l := range r.chain {
		if l.serviceType == serviceType {
			return i
		}
	}
	return -1
}

// types returns the service types on the chain, outermost first.
func (r *resolution) types() []reflect.Type {
	result := make([]reflect.Type, len(r.chain))
	for i, l := range r.chain {
		result[i] = l.serviceType
	}
	return result
}

// names returns the diagnostic names on the chain starting at from.
func (r *resolution) names(from int) []string {
	result := make([]string, 0, len(r.chain)-from)
	for _, l := range r.chain[from:] {
		result = append(result, l.name)
	}
	return result
}

// resolve is the recursive entry point. The service is pushed on the chain
// for the duration of the call and popped on every return path.
func (c *Container) resolve(res *resolution, serviceType reflect.Type) (any, error) {
	name := formatType(serviceType)

	if i := res.indexOf(serviceType); i >= 0 {
		return nil, CircularDependencyError{Path: append(res.names(i), name)}
	}

	if len(res.chain) >= c.options.maxDepth {
		return nil, DependencyResolutionError{
			ServiceType: serviceType,
			Chain:       res.names(0),
			Cause:       fmt.Errorf("%w (%d)", ErrMaxDepthExceeded, c.options.maxDepth),
		}
	}

	res.push(serviceType, name)
	defer res.pop()

	e, ok := c.lookup(serviceType)
	if !ok {
		return nil, DependencyResolutionError{
			ServiceType: serviceType,
			Chain:       res.names(0),
			Available:   c.Registrations(),
			Cause:       ErrNotRegistered,
		}
	}

	switch e.info.Strategy {
	case StrategyInstance:
		return e.instance, nil
	case StrategyFactory:
		return c.invokeFactory(res, e)
	default:
		if e.info.Lifetime == Singleton {
			return c.singleton(res, e)
		}
		return c.construct(res, e)
	}
}

// singleton returns the cached instance of e, constructing it under the
// entry's lock on first use.
func (c *Container) singleton(res *resolution, e *entry) (any, error) {
	if instance, ok := e.cached(); ok {
		c.logger.Debug("singleton cache hit",
			zap.String("service", formatType(e.info.ServiceType)),
			zap.String("resolution", res.id))
		return instance, nil
	}

	// A cycle through this singleton would otherwise let two goroutines
	// each hold one entry lock while waiting on the other.
	if cycle := c.findCycle(res); cycle != nil {
		return nil, CircularDependencyError{Path: cycle}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if instance, ok := e.cached(); ok {
		return instance, nil
	}

	instance, err := c.construct(res, e)
	if err != nil {
		return nil, err
	}

	e.store(instance)
	return instance, nil
}

// construct resolves every dependency of e in order and invokes its recipe.
// Dependency failures are returned as they are; only the recipe's own
// failure is wrapped.
func (c *Container) construct(res *resolution, e *entry) (any, error) {
	args := make([]any, len(e.recipe.Dependencies))

	for i, dep := range e.recipe.Dependencies {
		target := dep.Type
		if dep.IsReference() {
			t, err := c.findReference(dep.Reference)
			if err != nil {
				return nil, DependencyResolutionError{
					ServiceType: e.info.ServiceType,
					Reference:   dep.Reference,
					Chain:       res.names(0),
					Cause:       err,
				}
			}
			target = t
		}

		value, err := c.resolve(res, target)
		if err != nil {
			return nil, err
		}
		args[i] = value
	}

	instance, err := e.recipe.Build(args)
	if err != nil {
		return nil, DependencyResolutionError{
			ServiceType: e.info.ServiceType,
			Chain:       res.names(0),
			Cause:       err,
		}
	}

	return instance, nil
}

func (c *Container) invokeFactory(res *resolution, e *entry) (any, error) {
	instance, err := e.recipe.Build(nil)
	if err != nil {
		return nil, DependencyResolutionError{
			ServiceType: e.info.ServiceType,
			Chain:       res.names(0),
			Cause:       err,
		}
	}

	if instance != nil {
		if reason := reflection.Satisfies(reflect.TypeOf(instance), e.info.ServiceType); reason != "" {
			return nil, DependencyResolutionError{
				ServiceType: e.info.ServiceType,
				Chain:       res.names(0),
				Cause:       fmt.Errorf("factory produced incompatible value: %s", reason),
			}
		}
	}

	return instance, nil
}

// findReference returns the single registered service type whose name
// matches reference.
func (c *Container) findReference(reference string) (reflect.Type, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matches []reflect.Type
	for _, t := range c.order {
		if reflection.MatchesReference(t, reference) {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 0:
		return nil, ErrUnresolvedReference
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, t := range matches {
			names[i] = reflection.QualifiedName(t)
		}
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousReference, strings.Join(names, ", "))
	}
}

// dependencyTypes returns the registered edges of serviceType. References
// that do not name exactly one service are left out.
func (c *Container) dependencyTypes(serviceType reflect.Type) []reflect.Type {
	e, ok := c.lookup(serviceType)
	if !ok || e.recipe == nil {
		return nil
	}

	deps := make([]reflect.Type, 0, len(e.recipe.Dependencies))
	for _, dep := range e.recipe.Dependencies {
		if !dep.IsReference() {
			deps = append(deps, dep.Type)
			continue
		}

		if t, err := c.findReference(dep.Reference); err == nil {
			deps = append(deps, t)
		}
	}

	return deps
}

// findCycle searches the registered graph below the service on top of the
// chain for a cycle and returns it as diagnostic names. The rest of the chain
// is treated as in progress, so the path starts where resolution would have
// met the cycle.
func (c *Container) findCycle(res *resolution) []string {
	chain := res.types()
	serviceType := chain[len(chain)-1]
	g := graph.Reachable(serviceType, c.dependencyTypes)

	cycle := g.FindCycle(serviceType, chain[:len(chain)-1]...)
	if cycle == nil {
		return nil
	}

	names := make([]string, len(cycle))
	for i, t := range cycle {
		names[i] = formatType(t)
	}
	return names
}
