package kiln

import (
	"fmt"
	"io"
	"reflect"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/junioryono/kiln/internal/graph"
)

// WriteDOT writes the registered dependency graph to w in Graphviz DOT format.
//
// Each registration is mirrored into a dig container as a provider taking the
// registration's dependencies and producing its service type, and rendered
// with dig.Visualize. Nothing is constructed. Forward references that do not
// name exactly one service are omitted from the graph.
func (c *Container) WriteDOT(w io.Writer) error {
	g := graph.NewDependencyGraph()
	for _, serviceType := range c.Registrations() {
		g.AddNode(serviceType, c.dependencyTypes(serviceType))
	}

	c.logger.Debug("writing dependency graph", zap.Int("services", g.Size()))

	mirror := dig.New(dig.DeferAcyclicVerification())
	for _, node := range g.Nodes() {
		provider := placeholderProvider(node.Type, node.Dependencies)
		if err := mirror.Provide(provider.Interface()); err != nil {
			return fmt.Errorf("mirror %s: %w", formatType(node.Type), err)
		}
	}

	return dig.Visualize(mirror, w)
}

// placeholderProvider returns a function value of type func(deps...) out.
// It is only inspected, never called.
func placeholderProvider(out reflect.Type, deps []reflect.Type) reflect.Value {
	fnType := reflect.FuncOf(deps, []reflect.Type{out}, false)

	return reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		return []reflect.Value{reflect.Zero(out)}
	})
}
