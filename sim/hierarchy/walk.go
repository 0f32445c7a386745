package hierarchy

// Walk visits every node reachable from p in post-order: a node's children
// (in declaration order) are visited before the node itself.
func Walk(p Provider, fn func(Node)) {
	if p == nil {
		return
	}
	for _, root := range p.Roots() {
		walk(root, fn)
	}
}

func walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	for _, c := range n.Children() {
		walk(c, fn)
	}
	fn(n)
}

// NotifySuspend invokes OnSuspend on every session-aware node, children
// before parents. Returns the number of nodes invoked.
func NotifySuspend(p Provider) int {
	return notify(p, SessionAware.OnSuspend)
}

// NotifyResume invokes OnResume on every session-aware node, in the same
// order as NotifySuspend. Returns the number of nodes invoked.
func NotifyResume(p Provider) int {
	return notify(p, SessionAware.OnResume)
}

func notify(p Provider, call func(SessionAware)) int {
	invoked := 0
	Walk(p, func(n Node) {
		if s, ok := Session(n); ok {
			call(s)
			invoked++
		}
	})
	return invoked
}
