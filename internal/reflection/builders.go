package reflection

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// PanicError is the cause recorded when a constructor or factory panics.
// It is returned wrapped with the stack of the recovery point; format the
// wrapping error with %+v to print it.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Build invokes the recipe with already resolved dependency values, given in
// the order of r.Dependencies. Errors returned by the function itself are
// passed through unwrapped.
func (r *Recipe) Build(args []any) (any, error) {
	if len(args) != len(r.Dependencies) {
		return nil, errors.Errorf("expected %d arguments, got %d", len(r.Dependencies), len(args))
	}

	switch r.Kind {
	case KindConstructor, KindFactory:
		in := make([]reflect.Value, len(args))
		for i, arg := range args {
			v, err := valueFor(arg, r.Dependencies[i].Type)
			if err != nil {
				return nil, errors.Wrapf(err, "argument %d", i)
			}
			in[i] = v
		}

		return r.call(in)

	case KindStruct:
		return r.fill(args)

	default:
		return nil, errors.Errorf("unknown recipe kind %d", r.Kind)
	}
}

func (r *Recipe) call(in []reflect.Value) (result any, err error) {
	defer func() {
		if v := recover(); v != nil {
			result = nil
			err = errors.WithStack(PanicError{Value: v})
		}
	}()

	out := r.fn.Call(in)

	if r.HasErrorReturn {
		if errVal := out[1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
	}

	return out[0].Interface(), nil
}

func (r *Recipe) fill(args []any) (any, error) {
	structType := r.Implementation
	isPointer := structType.Kind() == reflect.Pointer
	if isPointer {
		structType = structType.Elem()
	}

	ptr := reflect.New(structType)
	elem := ptr.Elem()

	for i, dep := range r.Dependencies {
		v, err := valueFor(args[i], dep.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", dep.FieldName)
		}
		elem.Field(dep.Index).Set(v)
	}

	if isPointer {
		return ptr.Interface(), nil
	}
	return elem.Interface(), nil
}

// valueFor converts a resolved instance to a value assignable to t.
// A nil instance becomes the zero value of t.
func valueFor(instance any, t reflect.Type) (reflect.Value, error) {
	if instance == nil {
		return reflect.Zero(t), nil
	}

	v := reflect.ValueOf(instance)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, errors.Errorf("%s is not assignable to %s", v.Type(), t)
	}

	return v, nil
}
