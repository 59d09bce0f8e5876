package node

import "sort"

// Container owns its children. Nodes stays sorted by StartMs; nodes that
// start together keep their insertion order.
type Container struct {
	CommonAttr `json:"commonNodeAttr"`
	Nodes      []Node `json:"nodes"`
}

func NewContainer() *Container {
	return &Container{CommonAttr: newAttr(TypeContainer), Nodes: []Node{}}
}

func (*Container) node() {}

// AddNode inserts n and restores the StartMs order.
func (c *Container) AddNode(n Node) {
	c.Nodes = append(c.Nodes, n)
	c.sortNodes()
}

func (c *Container) sortNodes() {
	sort.SliceStable(c.Nodes, func(i, j int) bool {
		return c.Nodes[i].Attr().StartMs < c.Nodes[j].Attr().StartMs
	})
}

// RemoveNode detaches the node with the given id from anywhere in the
// subtree. The container itself cannot be removed this way.
func (c *Container) RemoveNode(id int) (Node, bool) {
	for i, n := range c.Nodes {
		if n.Attr().IDNum == id {
			c.Nodes = append(c.Nodes[:i:i], c.Nodes[i+1:]...)
			return n, true
		}
		if sub, ok := n.(*Container); ok {
			if removed, ok := sub.RemoveNode(id); ok {
				return removed, true
			}
		}
	}
	return nil, false
}

// Find returns the node with the given id, including c itself.
func (c *Container) Find(id int) Node {
	var found Node
	c.TraversePreorder(func(n Node) bool {
		if n.Attr().IDNum == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// TraversePreorder visits c, then each child followed by its subtree.
// Returning false from fn stops the walk.
func (c *Container) TraversePreorder(fn func(Node) bool) {
	c.preorder(fn)
}

func (c *Container) preorder(fn func(Node) bool) bool {
	if !fn(c) {
		return false
	}
	for _, n := range c.Nodes {
		if sub, ok := n.(*Container); ok {
			if !sub.preorder(fn) {
				return false
			}
			continue
		}
		if !fn(n) {
			return false
		}
	}
	return true
}

// TraversePostorder visits every child subtree before its parent; c is
// visited last.
func (c *Container) TraversePostorder(fn func(Node)) {
	for _, n := range c.Nodes {
		if sub, ok := n.(*Container); ok {
			sub.TraversePostorder(fn)
			continue
		}
		fn(n)
	}
	fn(c)
}

// NestedNodes flattens the descendants of c in pre-order.
func (c *Container) NestedNodes() []Node {
	var res []Node
	c.TraversePreorder(func(n Node) bool {
		if n != Node(c) {
			res = append(res, n)
		}
		return true
	})
	return res
}

// FixEndPoints raises EndMs of c and of every nested container so that each
// one ends no earlier than its direct children. Nested containers are fixed
// first, so growth propagates up to c.
func (c *Container) FixEndPoints() {
	c.TraversePostorder(func(n Node) {
		sub, ok := n.(*Container)
		if !ok {
			return
		}
		for _, child := range sub.Nodes {
			if end := child.Attr().EndMs; end > sub.EndMs {
				sub.EndMs = end
			}
		}
	})
}

// MaxID returns the largest id in the subtree rooted at c.
func (c *Container) MaxID() int {
	maxID := c.IDNum
	c.TraversePreorder(func(n Node) bool {
		if id := n.Attr().IDNum; id > maxID {
			maxID = id
		}
		return true
	})
	return maxID
}

// Clone returns a deep copy of the subtree.
func (c *Container) Clone() *Container {
	cp := &Container{CommonAttr: c.CommonAttr, Nodes: make([]Node, 0, len(c.Nodes))}
	for _, n := range c.Nodes {
		cp.Nodes = append(cp.Nodes, Clone(n))
	}
	return cp
}

// Clone deep-copies any node.
func Clone(n Node) Node {
	switch v := n.(type) {
	case *Container:
		return v.Clone()
	case *AudioSpeech:
		cp := *v
		return &cp
	case *VisualText:
		cp := *v
		return &cp
	case *VideoFile:
		cp := *v
		return &cp
	default:
		panic("node: unhandled variant in Clone")
	}
}
