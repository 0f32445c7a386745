// Package hierarchy models the externally owned component tree that the
// suspend coordinator notifies on every pause and resume transition.
//
// Nodes are plain tree members. A node may additionally implement
// SessionAware; the capability is resolved with a single type assertion
// per node per walk.
package hierarchy

import (
	"fmt"
	"strings"
)

// Separator joins the base names of nested components.
const Separator = "."

// Node is a member of the component tree.
type Node interface {
	// Name returns the full hierarchical name, e.g. "soc.cpu".
	Name() string
	Children() []Node
}

// SessionAware is the optional capability invoked during a transition.
// Both callbacks run on the loop goroutine and are expected to return quickly.
type SessionAware interface {
	OnSuspend()
	OnResume()
}

// Provider exposes the current set of root nodes.
type Provider interface {
	Roots() []Node
}

// Session returns the node's session capability, if it has one.
func Session(n Node) (SessionAware, bool) {
	s, ok := n.(SessionAware)
	return s, ok
}

// Module is an embeddable Node implementation. Types embedding *Module
// keep their own method set when added to a parent, so a component that
// embeds *Module and implements SessionAware is notified.
type Module struct {
	name     string
	parent   *Module
	children []Node
}

// NewModule creates a detached module with the given base name.
// Panics if name is empty or contains Separator.
func NewModule(name string) *Module {
	if name == "" || strings.Contains(name, Separator) {
		panic(fmt.Sprintf("hierarchy: invalid module name %q", name))
	}
	return &Module{name: name}
}

type embedder interface {
	module() *Module
}

func (m *Module) module() *Module { return m }

// Add appends children and makes m their parent. Children that do not
// embed *Module are attached as-is and keep their own naming.
func (m *Module) Add(children ...Node) {
	for _, c := range children {
		if e, ok := c.(embedder); ok {
			e.module().parent = m
		}
		m.children = append(m.children, c)
	}
}

// Name returns the full hierarchical name.
func (m *Module) Name() string {
	if m.parent == nil {
		return m.name
	}
	return m.parent.Name() + Separator + m.name
}

// BaseName returns the name without parent components.
func (m *Module) BaseName() string {
	return m.name
}

// Parent returns the enclosing module, or nil for a root.
func (m *Module) Parent() *Module {
	return m.parent
}

// Children returns the direct children in declaration order.
func (m *Module) Children() []Node {
	return m.children
}
