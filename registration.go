package kiln

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/junioryono/kiln/internal/reflection"
)

// Strategy identifies how a registration produces its instance.
type Strategy int

const (
	// StrategyConstructor builds the implementation from its dependencies,
	// either by calling a constructor function or by filling a struct's
	// tagged fields.
	StrategyConstructor Strategy = iota

	// StrategyInstance returns the object supplied at registration.
	StrategyInstance

	// StrategyFactory calls a zero-argument function on every resolution.
	StrategyFactory
)

// String returns the string representation of the Strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyConstructor:
		return "Constructor"
	case StrategyInstance:
		return "Instance"
	case StrategyFactory:
		return "Factory"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Dependency describes one injection point of a constructor registration.
type Dependency struct {
	// Type is the parameter or field type.
	Type reflect.Type

	// Reference is the service name for by-name field dependencies.
	Reference string
}

// Registration is the immutable record produced by every successful
// registration. Values returned by the container are copies.
type Registration struct {
	ID                 string
	ServiceType        reflect.Type
	ImplementationType reflect.Type
	Lifetime           Lifetime
	Strategy           Strategy
	Dependencies       []Dependency
}

// String returns a compact description of the registration.
func (r Registration) String() string {
	return fmt.Sprintf("%s => %s (%s, %s)",
		formatType(r.ServiceType), formatType(r.ImplementationType), r.Lifetime, r.Strategy)
}

func (r Registration) clone() Registration {
	deps := make([]Dependency, len(r.Dependencies))
	copy(deps, r.Dependencies)
	r.Dependencies = deps
	return r
}

// entry is the registry's private record. The singleton cache lives here
// and is written at most once.
type entry struct {
	info   Registration
	recipe *reflection.Recipe

	mu       sync.Mutex
	built    atomic.Bool
	instance any
}

func newEntry(info Registration, recipe *reflection.Recipe) *entry {
	if recipe != nil && info.Strategy == StrategyConstructor {
		info.Dependencies = make([]Dependency, len(recipe.Dependencies))
		for i, dep := range recipe.Dependencies {
			info.Dependencies[i] = Dependency{Type: dep.Type, Reference: dep.Reference}
		}
	}

	return &entry{info: info, recipe: recipe}
}

func newInstanceEntry(info Registration, instance any) *entry {
	e := &entry{info: info, instance: instance}
	e.built.Store(true)
	return e
}

// cached returns the stored instance once one exists.
func (e *entry) cached() (any, bool) {
	if e.built.Load() {
		return e.instance, true
	}
	return nil, false
}

func (e *entry) store(instance any) {
	e.instance = instance
	e.built.Store(true)
}
