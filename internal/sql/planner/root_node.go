package planner

import (
	"github.com/emberdb/ember/internal/catalog"
)

// RootNode is a pass-through anchor the optimizer hangs a plan on so rules
// can rewire the topmost real node like any other. It never appears in
// translated plans.
type RootNode struct {
	baseNode
}

// NewRootNode anchors a plan.
func NewRootNode(input Node) *RootNode {
	n := &RootNode{}
	n.init(n, input, nil)
	return n
}

func (n *RootNode) Type() NodeType { return NodeType(-1) }

func (n *RootNode) ColumnExpressions() []Expression {
	return n.passThroughColumns()
}

func (n *RootNode) Statistics() *catalog.TableStatistics {
	return n.leftStatistics()
}

func (n *RootNode) ShallowEquals(other Node) bool {
	_, ok := other.(*RootNode)
	return ok
}

func (n *RootNode) String() string { return "Root" }

func (n *RootNode) deepCopy(left, right Node) Node {
	clone := &RootNode{}
	clone.init(clone, left, right)
	return clone
}
