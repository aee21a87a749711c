package ast

// NodeID addresses a node inside a Tree. Zero is never a valid node.
type NodeID uint32

// NoNode is the zero NodeID.
const NoNode NodeID = 0

// IsValid returns true if the ID is not NoNode.
func (id NodeID) IsValid() bool { return id != NoNode }

// Tree is an arena of nodes. Nodes are never removed; replacing a child only
// rewrites an index, so regions held by diagnostics stay valid.
type Tree struct {
	nodes []Node
	root  NodeID
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	// Slot 0 backs NoNode.
	return &Tree{nodes: make([]Node, 1, 64)}
}

// New stores n and returns its ID. Children already listed in n are reparented.
func (t *Tree) New(n Node) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, n)
	for _, c := range n.Children {
		t.nodes[c].Parent = id
	}
	return id
}

// Node returns the node stored under id. The pointer is only valid until the next call to New.
func (t *Tree) Node(id NodeID) *Node {
	return &t.nodes[id]
}

// Kind is shorthand for t.Node(id).Kind.
func (t *Tree) Kind(id NodeID) Kind {
	if int(id) >= len(t.nodes) {
		return KindInvalid
	}
	return t.nodes[id].Kind
}

// Len returns the number of nodes in the arena, including the NoNode slot.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Root returns the root node.
func (t *Tree) Root() NodeID {
	return t.root
}

// SetRoot marks id as the root.
func (t *Tree) SetRoot(id NodeID) {
	t.root = id
}

// Children returns the child list of id.
func (t *Tree) Children(id NodeID) []NodeID {
	return t.nodes[id].Children
}

// Child returns the i'th child of id, or NoNode.
func (t *Tree) Child(id NodeID, i int) NodeID {
	c := t.nodes[id].Children
	if i < 0 || i >= len(c) {
		return NoNode
	}
	return c[i]
}

// AppendChild adds child as the last child of parent.
func (t *Tree) AppendChild(parent, child NodeID) {
	t.nodes[parent].Children = append(t.nodes[parent].Children, child)
	t.nodes[child].Parent = parent
}

// ReplaceChild swaps old for repl in parent's child list.
func (t *Tree) ReplaceChild(parent, old, repl NodeID) bool {
	for i, c := range t.nodes[parent].Children {
		if c == old {
			t.nodes[parent].Children[i] = repl
			t.nodes[repl].Parent = parent
			t.nodes[old].Parent = NoNode
			return true
		}
	}
	return false
}

// Walk visits id and its descendants depth-first. Returning false from fn skips
// the children of that node.
func (t *Tree) Walk(id NodeID, fn func(NodeID) bool) {
	if !id.IsValid() || !fn(id) {
		return
	}
	for _, c := range t.nodes[id].Children {
		t.Walk(c, fn)
	}
}

// Unparen strips parenthesis wrappers around an expression.
func (t *Tree) Unparen(id NodeID) NodeID {
	for id.IsValid() && t.nodes[id].Kind == KindParen && len(t.nodes[id].Children) == 1 {
		id = t.nodes[id].Children[0]
	}
	return id
}
