package kiln

import (
	"encoding/json"
	"fmt"
)

// Lifetime specifies how long a resolved instance lives.
// The lifetime determines whether the container caches what it constructs.
type Lifetime int

const (
	// Singleton specifies that a single instance of the service will be created.
	// The instance is created on first resolution and cached on the registration
	// for the lifetime of the container.
	Singleton Lifetime = iota

	// Transient specifies that a new instance is created on every resolution.
	// Factory registrations always report Transient.
	Transient

	// Scoped is reserved for per-scope caching. No registration operation
	// produces it; a registration reporting Scoped would behave like Transient.
	Scoped
)

// String returns the string representation of the Lifetime.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "Singleton"
	case Transient:
		return "Transient"
	case Scoped:
		return "Scoped"
	default:
		return fmt.Sprintf("Unknown(%d)", int(l))
	}
}

// IsValid checks if the lifetime is one of the declared values.
func (l Lifetime) IsValid() bool {
	return l >= Singleton && l <= Scoped
}

// MarshalText implements encoding.TextMarshaler.
func (l Lifetime) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, LifetimeError{Value: int(l)}
	}

	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lifetime) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Singleton", "singleton":
		*l = Singleton
	case "Transient", "transient":
		*l = Transient
	case "Scoped", "scoped":
		*l = Scoped
	default:
		return LifetimeError{Value: string(text)}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l Lifetime) MarshalJSON() ([]byte, error) {
	text, err := l.MarshalText()
	if err != nil {
		return nil, err
	}

	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Lifetime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	return l.UnmarshalText([]byte(s))
}
