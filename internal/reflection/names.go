package reflection

import (
	"reflect"
	"sort"
	"strings"
	"sync"
)

// names caches the diagnostic names of types.
var names sync.Map // map[reflect.Type]string

// Name returns the short diagnostic name of a type: the bare type name for
// named types, prefixed by the element operators for pointers and slices.
//
//	Name(reflect.TypeOf(&UserService{})) // "*UserService"
func Name(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	if cached, ok := names.Load(t); ok {
		return cached.(string)
	}

	name := formatName(t)
	actual, _ := names.LoadOrStore(t, name)
	return actual.(string)
}

func formatName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	case reflect.Map:
		key := t.Key().Name()
		if key == "" {
			key = t.Key().String()
		}
		elem := t.Elem().Name()
		if elem == "" {
			elem = t.Elem().String()
		}
		return "map[" + key + "]" + elem
	case reflect.Func:
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}

// QualifiedName returns the import-path qualified name of a named type,
// e.g. "*github.com/acme/app.UserService". Unnamed types use t.String().
func QualifiedName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	prefix := ""
	base := t
	if base.Kind() == reflect.Pointer {
		prefix = "*"
		base = base.Elem()
	}

	if base.PkgPath() == "" || base.Name() == "" {
		return t.String()
	}

	return prefix + base.PkgPath() + "." + base.Name()
}

// MatchesReference reports whether reference names t. The short name,
// the package-qualified string ("app.UserService") and the import-path
// qualified name are all accepted.
func MatchesReference(t reflect.Type, reference string) bool {
	if t == nil || reference == "" {
		return false
	}

	return reference == Name(t) || reference == t.String() || reference == QualifiedName(t)
}

// Satisfies checks that impl can stand in for service. Interfaces require
// every method; any other service type requires assignability. The returned
// reason is empty when impl satisfies service.
func Satisfies(impl, service reflect.Type) string {
	if impl == nil || service == nil {
		return "type cannot be nil"
	}

	if impl.AssignableTo(service) {
		return ""
	}

	if !IsAbstract(service) {
		return Name(impl) + " is not assignable to " + Name(service)
	}

	missing := MissingMethods(impl, service)
	reason := Name(impl) + " does not implement " + Name(service)
	if len(missing) > 0 {
		reason += " (missing " + strings.Join(missing, ", ") + ")"
	} else {
		reason += " (method signatures differ)"
	}

	if impl.Kind() != reflect.Pointer && impl.Kind() != reflect.Interface &&
		reflect.PointerTo(impl).Implements(service) {
		reason += "; *" + Name(impl) + " does, use the pointer type"
	}

	return reason
}

// MissingMethods lists the methods of iface that t does not declare, sorted.
func MissingMethods(t, iface reflect.Type) []string {
	if iface.Kind() != reflect.Interface {
		return nil
	}

	var missing []string
	for i := 0; i < iface.NumMethod(); i++ {
		m := iface.Method(i)
		if _, ok := t.MethodByName(m.Name); !ok {
			missing = append(missing, m.Name)
		}
	}

	sort.Strings(missing)
	return missing
}

// IsAbstract reports whether t is an interface declaring at least one method.
func IsAbstract(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Interface && t.NumMethod() > 0
}
