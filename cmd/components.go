package cmd

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/pausesim/sim/hierarchy"
)

// sessionComponent is a scenario component that reacts to session
// transitions by logging and counting them.
type sessionComponent struct {
	*hierarchy.Module
	suspends atomic.Int64
	resumes  atomic.Int64
}

func (c *sessionComponent) OnSuspend() {
	c.suspends.Add(1)
	logrus.Debugf("component %s: suspended", c.Name())
}

func (c *sessionComponent) OnResume() {
	c.resumes.Add(1)
	logrus.Debugf("component %s: resumed", c.Name())
}

// buildTree instantiates the component tree described by specs.
func buildTree(specs []ComponentSpec) (*hierarchy.Tree, []*sessionComponent) {
	var sessions []*sessionComponent
	var build func(ComponentSpec) hierarchy.Node
	build = func(spec ComponentSpec) hierarchy.Node {
		mod := hierarchy.NewModule(spec.Name)
		children := make([]hierarchy.Node, 0, len(spec.Children))
		for _, c := range spec.Children {
			children = append(children, build(c))
		}
		mod.Add(children...)
		if !spec.Session {
			return mod
		}
		sc := &sessionComponent{Module: mod}
		sessions = append(sessions, sc)
		return sc
	}
	tree := hierarchy.NewTree()
	for _, spec := range specs {
		tree.Add(build(spec))
	}
	return tree, sessions
}
