// Package kiln provides a reflective dependency injection container for Go
// applications.
//
// # Overview
//
// A Container maps service types to construction strategies and resolves
// object graphs on demand. It enforces:
//   - At most one registration per service type
//   - No circular dependency graphs
//   - Implementations that satisfy the service type they are registered for
//
// # Basic Usage
//
// Create a container, register your services, and resolve:
//
//	c := kiln.New()
//
//	_ = kiln.AddInstance[*sql.DB](c, db)
//	_ = kiln.AddSingletonFunc[UserRepository](c, NewUserRepository)
//	_ = kiln.AddTransientFunc[*UserService](c, NewUserService)
//
//	svc, err := kiln.Resolve[*UserService](c)
//
// The reflect.Type based methods on Container are the primitive API; the
// generic helpers are thin wrappers around them.
//
// # Lifetimes
//
//   - Singleton: constructed once on first resolution, then cached
//   - Transient: constructed on every resolution
//
// Scoped is defined for completeness but no registration produces it.
//
// # Strategies
//
// Constructor registrations accept a function or a struct type. A function
// func(deps...) T or func(deps...) (T, error) has every parameter resolved
// by type. A struct has its tagged fields filled:
//
//	type UserService struct {
//	    Repo   UserRepository `inject:""`
//	    Mailer Mailer         `inject:"SMTPMailer"`
//	    cache  map[string]*User
//	}
//
// An empty tag resolves the field's own type. A non-empty tag is a forward
// reference, resolved by the name of a registered service type. Untagged
// fields keep their zero value.
//
// Instance registrations return the supplied object on every resolution.
// Factory registrations call a zero-argument function on every resolution.
//
// # Errors
//
// Every error returned by the container, and by FromContext, matches
// ErrInjection:
//
//	if errors.Is(err, kiln.ErrCircularDependency) {
//	    path, _ := kiln.CyclePath(err) // e.g. [A B A]
//	}
//
// Constructor and factory failures, including recovered panics, stay
// reachable through errors.Unwrap.
//
// # Concurrency
//
// Registration and resolution are safe for concurrent use. Each call to
// Resolve tracks its own resolution chain, and each singleton is constructed
// at most once even when first requested by several goroutines.
//
// A constructor or factory may call Resolve itself. Such a call continues the
// chain of the resolution running on the same goroutine, so a cycle through
// it fails with ErrCircularDependency instead of recursing forever.
package kiln
