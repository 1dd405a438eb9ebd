package kiln

import "sync/atomic"

// defaultContainer holds the process-wide Container.
var defaultContainer atomic.Pointer[Container]

// SetDefault sets the process-wide Container returned by Default.
// This is similar to slog.SetDefault. Pass nil to drop the current one;
// the next call to Default then creates a fresh container.
func SetDefault(c *Container) {
	defaultContainer.Store(c)
}

// Default returns the process-wide Container, creating an empty one on
// first use.
func Default() *Container {
	if c := defaultContainer.Load(); c != nil {
		return c
	}

	defaultContainer.CompareAndSwap(nil, New())
	return defaultContainer.Load()
}
