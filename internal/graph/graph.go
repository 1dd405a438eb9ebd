package graph

import (
	"fmt"
	"reflect"
	"sync"
)

// EdgeFunc returns the direct dependencies of a node.
type EdgeFunc func(reflect.Type) []reflect.Type

// DependencyGraph manages the dependency relationships between services.
// Nodes are service types; an edge a -> b means a needs b to be built.
type DependencyGraph struct {
	mu    sync.RWMutex
	nodes map[reflect.Type]*Node
	order []reflect.Type
}

// Node represents a service in the dependency graph.
type Node struct {
	Type         reflect.Type
	Dependencies []reflect.Type
}

// NewDependencyGraph creates a new dependency graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[reflect.Type]*Node),
	}
}

// Reachable builds the subgraph of every node reachable from root.
// Dependencies are visited in the order edges returns them.
func Reachable(root reflect.Type, edges EdgeFunc) *DependencyGraph {
	g := NewDependencyGraph()
	if root == nil {
		return g
	}

	queue := []reflect.Type{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if g.HasNode(current) {
			continue
		}

		deps := edges(current)
		g.AddNode(current, deps)

		for _, dep := range deps {
			if !g.HasNode(dep) {
				queue = append(queue, dep)
			}
		}
	}

	return g
}

// AddNode adds or replaces a node and its outgoing edges.
func (g *DependencyGraph) AddNode(t reflect.Type, deps []reflect.Type) {
	g.mu.Lock()
	defer g.mu.Unlock()

	copied := make([]reflect.Type, len(deps))
	copy(copied, deps)

	if _, exists := g.nodes[t]; !exists {
		g.order = append(g.order, t)
	}
	g.nodes[t] = &Node{Type: t, Dependencies: copied}
}

// HasNode checks if a node exists in the graph.
func (g *DependencyGraph) HasNode(t reflect.Type) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, exists := g.nodes[t]
	return exists
}

// Size returns the number of nodes in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes)
}

// Nodes returns the nodes in insertion order.
func (g *DependencyGraph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]*Node, 0, len(g.order))
	for _, t := range g.order {
		result = append(result, g.nodes[t])
	}
	return result
}

// FindCycle runs a depth-first search from start and returns the first
// cycle it meets, as the path from the first repeated node back to itself
// (A, B, A). It returns nil when no cycle is reachable.
//
// ancestors are nodes already on the path to start, outermost first. They
// count as in progress, so a cycle back into them starts at the ancestor:
// FindCycle(B, A) on A -> B -> A gives (A, B, A).
func (g *DependencyGraph) FindCycle(start reflect.Type, ancestors ...reflect.Type) []reflect.Type {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, exists := g.nodes[start]; !exists {
		return nil
	}

	const (
		unvisited = iota
		visiting
		visited
	)

	states := make(map[reflect.Type]int, len(g.nodes)+len(ancestors))
	stack := make([]reflect.Type, 0, len(ancestors)+len(g.nodes))
	for _, a := range ancestors {
		states[a] = visiting
		stack = append(stack, a)
	}

	var visit func(t reflect.Type) []reflect.Type
	visit = func(t reflect.Type) []reflect.Type {
		switch states[t] {
		case visiting:
			for i, s := range stack {
				if s == t {
					path := make([]reflect.Type, 0, len(stack)-i+1)
					path = append(path, stack[i:]...)
					return append(path, t)
				}
			}
			return []reflect.Type{t, t}
		case visited:
			return nil
		}

		states[t] = visiting
		stack = append(stack, t)

		if node, exists := g.nodes[t]; exists {
			for _, dep := range node.Dependencies {
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		states[t] = visited
		return nil
	}

	return visit(start)
}

// String returns a string representation of the node.
func (n *Node) String() string {
	return fmt.Sprintf("Node{%v, deps:%d}", n.Type, len(n.Dependencies))
}
