package kiln

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/kiln/internal/reflection"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// Every typed error below matches ErrInjection and its own kind sentinel
// through errors.Is.

var (
	// ErrInjection is the root of every container error.
	ErrInjection = errors.New("dependency injection error")

	// Error kinds.
	ErrDuplicateRegistration = errors.New("service already registered")
	ErrInvalidRegistration   = errors.New("invalid registration")
	ErrDependencyResolution  = errors.New("dependency resolution failed")
	ErrCircularDependency    = errors.New("circular dependency detected")

	// Causes.
	ErrServiceTypeNil      = errors.New("service type cannot be nil")
	ErrInstanceNil         = errors.New("instance cannot be nil")
	ErrNotRegistered       = errors.New("not registered")
	ErrUnresolvedReference = errors.New("no registered service matches reference")
	ErrAmbiguousReference  = errors.New("reference matches more than one registered service")
	ErrMaxDepthExceeded    = errors.New("maximum resolution depth exceeded")
	ErrNoContainer         = fmt.Errorf("%w: no container in context", ErrInjection)
)

var (
	_ error = LifetimeError{}
	_ error = DuplicateRegistrationError{}
	_ error = InvalidRegistrationError{}
	_ error = DependencyResolutionError{}
	_ error = CircularDependencyError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// LifetimeError indicates an invalid lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid lifetime: %v", e.Value)
}

// DuplicateRegistrationError indicates a service type is already registered.
// It is returned before the registry is touched.
type DuplicateRegistrationError struct {
	ServiceType reflect.Type
}

func (e DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("service %s already registered", formatType(e.ServiceType))
}

func (e DuplicateRegistrationError) Is(target error) bool {
	return target == ErrDuplicateRegistration || target == ErrInjection
}

// InvalidRegistrationError indicates a registration was rejected: the
// implementation is not constructible, does not satisfy the service, the
// instance is incompatible, or the factory is not callable without arguments.
type InvalidRegistrationError struct {
	ServiceType reflect.Type
	Reason      string
	Cause       error
}

func (e InvalidRegistrationError) Error() string {
	return fmt.Sprintf("invalid registration of %s: %s", formatType(e.ServiceType), e.Reason)
}

func (e InvalidRegistrationError) Unwrap() error {
	return e.Cause
}

func (e InvalidRegistrationError) Is(target error) bool {
	return target == ErrInvalidRegistration || target == ErrInjection
}

// DependencyResolutionError indicates a service could not be produced. Chain
// is the resolution chain at the time of failure, outermost first.
type DependencyResolutionError struct {
	ServiceType reflect.Type
	Reference   string         // set when a by-name reference failed
	Chain       []string       // diagnostic names, outermost first
	Available   []reflect.Type // registered types, for suggestions
	Cause       error
}

func (e DependencyResolutionError) Error() string {
	var b strings.Builder

	switch {
	case e.Reference != "":
		b.WriteString(fmt.Sprintf("cannot resolve reference %q for %s", e.Reference, formatType(e.ServiceType)))
		if e.Cause != nil {
			b.WriteString(fmt.Sprintf(": %v", e.Cause))
		}
	case errors.Is(e.Cause, ErrNotRegistered):
		b.WriteString(fmt.Sprintf("%s is not registered", formatType(e.ServiceType)))
	default:
		b.WriteString(fmt.Sprintf("failed to resolve %s", formatType(e.ServiceType)))
		if e.Cause != nil {
			b.WriteString(fmt.Sprintf(": %v", e.Cause))
		}
	}

	if len(e.Chain) > 1 {
		b.WriteString("\n\nResolution chain: ")
		b.WriteString(strings.Join(e.Chain, " -> "))
	}

	if len(e.Available) > 0 {
		similar := findSimilarTypes(e.ServiceType, e.Available)
		if len(similar) > 0 {
			b.WriteString("\n\nDid you mean one of these?\n")
			for _, t := range similar {
				b.WriteString(fmt.Sprintf("  • %s\n", formatType(t)))
			}
		}
	}

	return b.String()
}

func (e DependencyResolutionError) Unwrap() error {
	return e.Cause
}

func (e DependencyResolutionError) Is(target error) bool {
	return target == ErrDependencyResolution || target == ErrInjection
}

// CircularDependencyError indicates a cycle was found while resolving.
// Path starts at the first repeated service and ends with it again.
type CircularDependencyError struct {
	Path []string
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected:\n\n")

	for i, node := range e.Path {
		b.WriteString(fmt.Sprintf("    %s", node))
		if i == len(e.Path)-1 {
			b.WriteString(" (cycle)\n")
			break
		}
		b.WriteString("\n      ↓\n")
	}

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Use an interface to break the dependency\n")
	b.WriteString("  • Use a factory function for lazy initialization\n")
	b.WriteString("  • Restructure to remove the circular relationship\n")

	return b.String()
}

func (e CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency || target == ErrInjection
}

// IsNotRegistered reports whether err was caused by resolving an unregistered service.
func IsNotRegistered(err error) bool {
	return errors.Is(err, ErrNotRegistered)
}

// IsCircularDependency reports whether err is a circular dependency error.
func IsCircularDependency(err error) bool {
	return errors.Is(err, ErrCircularDependency)
}

// CyclePath returns the cycle path carried by err, if any.
func CyclePath(err error) ([]string, bool) {
	var cycleErr CircularDependencyError
	if errors.As(err, &cycleErr) {
		return cycleErr.Path, true
	}
	return nil, false
}

// findSimilarTypes finds types with similar names using a simple substring match.
func findSimilarTypes(target reflect.Type, available []reflect.Type) []reflect.Type {
	if target == nil || len(available) == 0 {
		return nil
	}

	targetName := strings.TrimPrefix(formatType(target), "*")
	lowerTarget := strings.ToLower(targetName)

	var similar []reflect.Type
	for _, t := range available {
		if t == nil || t == target {
			continue
		}

		name := strings.TrimPrefix(formatType(t), "*")
		lowerName := strings.ToLower(name)

		// Same short name in another package, or one name contains the other.
		if name == targetName ||
			strings.Contains(lowerName, lowerTarget) ||
			strings.Contains(lowerTarget, lowerName) {
			similar = append(similar, t)
		}

		if len(similar) >= 5 {
			break
		}
	}

	return similar
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	return reflection.Name(t)
}
