package reflection

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// TagName is the struct tag that marks a field for injection.
//
//	type UserService struct {
//	    Repo   UserRepository `inject:""`
//	    Clock  any            `inject:"Clock"`
//	    Prefix string
//	}
//
// An empty value injects the field's own type. Any other value is a
// reference to a registered service by name. "-" is treated as untagged.
const TagName = "inject"

var errType = reflect.TypeOf((*error)(nil)).Elem()

// RecipeKind identifies how a Recipe produces its value.
type RecipeKind int

const (
	// KindConstructor calls a function whose parameters are dependencies.
	KindConstructor RecipeKind = iota

	// KindStruct allocates a struct and fills its tagged fields.
	KindStruct

	// KindFactory calls a function that takes no arguments.
	KindFactory
)

func (k RecipeKind) String() string {
	switch k {
	case KindConstructor:
		return "constructor"
	case KindStruct:
		return "struct"
	case KindFactory:
		return "factory"
	default:
		return "unknown"
	}
}

// Dependency is a single injection point of a recipe.
type Dependency struct {
	// Type of the dependency. For references it is the type of the
	// receiving field, which is not necessarily a registered service type.
	Type reflect.Type

	// Reference is the service name for by-name dependencies.
	Reference string

	// Index is the parameter position or the struct field index.
	Index int

	// FieldName is set for struct recipes.
	FieldName string
}

// IsReference reports whether the dependency is resolved by name.
func (d Dependency) IsReference() bool {
	return d.Reference != ""
}

// Recipe is the analyzed, cached plan for constructing an implementation.
type Recipe struct {
	Kind           RecipeKind
	Implementation reflect.Type
	Dependencies   []Dependency
	HasErrorReturn bool

	fn reflect.Value
}

// shape is the part of a recipe that depends only on a type.
type shape struct {
	implementation reflect.Type
	dependencies   []Dependency
	hasErrorReturn bool
}

// Analyzer performs reflection-based analysis of constructors and types.
// Results are cached per reflect.Type; two closures of the same signature
// share an entry but keep their own function value in the Recipe.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[cacheKey]*shape
}

type cacheKey struct {
	kind RecipeKind
	typ  reflect.Type
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		cache: make(map[cacheKey]*shape),
	}
}

// Constructor analyzes a constructor function of the form
// func(deps...) T or func(deps...) (T, error).
func (a *Analyzer) Constructor(constructor any) (*Recipe, error) {
	val, err := funcValue(constructor)
	if err != nil {
		return nil, err
	}

	typ := val.Type()
	if typ.IsVariadic() {
		return nil, errors.Errorf("constructor %s must not be variadic", typ)
	}

	s, err := a.load(KindConstructor, typ, func() (*shape, error) {
		s, err := analyzeReturns(typ)
		if err != nil {
			return nil, err
		}

		s.dependencies = make([]Dependency, typ.NumIn())
		for i := 0; i < typ.NumIn(); i++ {
			s.dependencies[i] = Dependency{Type: typ.In(i), Index: i}
		}

		return s, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "analyzing constructor %s", typ)
	}

	return s.recipe(KindConstructor, val), nil
}

// Factory analyzes a function that can be called without arguments.
func (a *Analyzer) Factory(factory any) (*Recipe, error) {
	val, err := funcValue(factory)
	if err != nil {
		return nil, err
	}

	typ := val.Type()
	required := typ.NumIn()
	if typ.IsVariadic() {
		required--
	}
	if required != 0 {
		return nil, errors.Errorf("factory %s must take no arguments, takes %d", typ, required)
	}

	s, err := a.load(KindFactory, typ, func() (*shape, error) {
		return analyzeReturns(typ)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "analyzing factory %s", typ)
	}

	return s.recipe(KindFactory, val), nil
}

// Struct analyzes a struct or pointer-to-struct type whose tagged fields
// are dependencies.
func (a *Analyzer) Struct(t reflect.Type) (*Recipe, error) {
	if t == nil {
		return nil, errors.New("type cannot be nil")
	}

	structType := t
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	if structType.Kind() != reflect.Struct {
		return nil, errors.Errorf("%s is not a constructible type: want struct or pointer to struct, got %s", t, t.Kind())
	}

	s, err := a.load(KindStruct, t, func() (*shape, error) {
		deps, err := analyzeFields(structType)
		if err != nil {
			return nil, err
		}

		return &shape{implementation: t, dependencies: deps}, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "analyzing %s", t)
	}

	return s.recipe(KindStruct, reflect.Value{}), nil
}

// CacheSize returns the number of cached analyses.
func (a *Analyzer) CacheSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cache)
}

func (a *Analyzer) load(kind RecipeKind, typ reflect.Type, analyze func() (*shape, error)) (*shape, error) {
	key := cacheKey{kind: kind, typ: typ}

	a.mu.RLock()
	if cached, ok := a.cache[key]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	s, err := analyze()
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	if cached, ok := a.cache[key]; ok {
		s = cached
	} else {
		a.cache[key] = s
	}
	a.mu.Unlock()

	return s, nil
}

func (s *shape) recipe(kind RecipeKind, fn reflect.Value) *Recipe {
	deps := make([]Dependency, len(s.dependencies))
	copy(deps, s.dependencies)

	return &Recipe{
		Kind:           kind,
		Implementation: s.implementation,
		Dependencies:   deps,
		HasErrorReturn: s.hasErrorReturn,
		fn:             fn,
	}
}

func funcValue(fn any) (reflect.Value, error) {
	if fn == nil {
		return reflect.Value{}, errors.New("function cannot be nil")
	}

	val := reflect.ValueOf(fn)
	if val.Kind() != reflect.Func {
		return reflect.Value{}, errors.Errorf("%T is not a function", fn)
	}

	if val.IsNil() {
		return reflect.Value{}, errors.New("function cannot be nil")
	}

	return val, nil
}

// analyzeReturns accepts (T) and (T, error).
func analyzeReturns(typ reflect.Type) (*shape, error) {
	switch typ.NumOut() {
	case 1:
	case 2:
		if typ.Out(1) != errType {
			return nil, errors.Errorf("second return value must be error, got %s", typ.Out(1))
		}
	default:
		return nil, errors.Errorf("must return (T) or (T, error), returns %d values", typ.NumOut())
	}

	out := typ.Out(0)
	if out == errType {
		return nil, errors.New("first return value must not be error")
	}

	return &shape{
		implementation: out,
		hasErrorReturn: typ.NumOut() == 2,
	}, nil
}

func analyzeFields(structType reflect.Type) ([]Dependency, error) {
	deps := make([]Dependency, 0)

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		tag, ok := field.Tag.Lookup(TagName)
		if !ok || tag == "-" {
			continue
		}

		if !field.IsExported() {
			return nil, errors.Errorf("field %s is tagged %q but unexported", field.Name, TagName)
		}

		deps = append(deps, Dependency{
			Type:      field.Type,
			Reference: tag,
			Index:     i,
			FieldName: field.Name,
		})
	}

	return deps, nil
}
