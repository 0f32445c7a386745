package hierarchy

import "sync"

// Tree is the concrete root set of a component hierarchy.
type Tree struct {
	mu    sync.RWMutex
	roots []Node
}

// NewTree creates a Tree holding the given roots.
func NewTree(roots ...Node) *Tree {
	t := &Tree{}
	t.Add(roots...)
	return t
}

// Add appends top-level nodes.
func (t *Tree) Add(roots ...Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roots = append(t.roots, roots...)
}

// Roots returns a snapshot of the top-level nodes. A nil Tree has none.
func (t *Tree) Roots() []Node {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Node, len(t.roots))
	copy(out, t.roots)
	return out
}

// Find returns the node whose full name is path.
func (t *Tree) Find(path string) (Node, bool) {
	var found Node
	Walk(t, func(n Node) {
		if found == nil && n.Name() == path {
			found = n
		}
	})
	return found, found != nil
}

// Len returns the total number of nodes in the tree.
func (t *Tree) Len() int {
	n := 0
	Walk(t, func(Node) { n++ })
	return n
}
