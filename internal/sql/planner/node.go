package planner

import (
	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/errors"
	"github.com/emberdb/ember/internal/types"
)

// NodeType tags the variant of a logical plan node.
type NodeType int

const (
	NodeStoredTable NodeType = iota
	NodeStaticTable
	NodeMock
	NodeValidate
	NodePredicate
	NodeProjection
	NodeJoin
	NodeAggregate
	NodeSort
	NodeLimit
	NodeUnion
	NodeInsert
	NodeUpdate
	NodeDelete
	NodeCreateTable
	NodeDropTable
	NodeShowTables
	NodeShowColumns
)

// Node is a logical query plan node. The plan is a DAG: a node may be the
// input of several outputs. Inputs own their children; the outputs list is
// a non-owning back reference maintained by the input setters.
type Node interface {
	// Type returns the variant tag.
	Type() NodeType
	// LeftInput returns the left input, or nil.
	LeftInput() Node
	// RightInput returns the right input, or nil.
	RightInput() Node
	// SetLeftInput rewires the left input and updates output lists on both
	// the old and the new child.
	SetLeftInput(Node)
	// SetRightInput rewires the right input.
	SetRightInput(Node)
	// Outputs returns the nodes naming this node as an input.
	Outputs() []Node
	// OutputCount returns len(Outputs()) without copying.
	OutputCount() int
	// ColumnExpressions describes the node's output schema in order.
	ColumnExpressions() []Expression
	// FindColumnID resolves an expression to a position in the output
	// schema, or InvalidColumnID.
	FindColumnID(Expression) types.ColumnID
	// Statistics derives the node's output statistics.
	Statistics() *catalog.TableStatistics
	// OutputRowCount estimates the number of result rows.
	OutputRowCount() float64
	// ShallowEquals compares the node's own payload, ignoring inputs.
	ShallowEquals(Node) bool
	// String renders the node for plan printing.
	String() string

	// deepCopy clones the node's payload onto already-copied inputs.
	deepCopy(left, right Node) Node

	addOutput(Node)
	removeOutput(Node)
}

// baseNode carries the input/output wiring shared by all node kinds. Each
// concrete node hands itself to init so the wiring can identify it.
type baseNode struct {
	self    Node
	left    Node
	right   Node
	outputs []Node
}

func (b *baseNode) init(self Node, left, right Node) {
	b.self = self
	if left != nil {
		self.SetLeftInput(left)
	}
	if right != nil {
		self.SetRightInput(right)
	}
}

func (b *baseNode) LeftInput() Node  { return b.left }
func (b *baseNode) RightInput() Node { return b.right }

func (b *baseNode) SetLeftInput(input Node) {
	if b.left == input {
		return
	}
	if b.left != nil {
		b.left.removeOutput(b.self)
	}
	b.left = input
	if input != nil {
		input.addOutput(b.self)
	}
}

func (b *baseNode) SetRightInput(input Node) {
	if b.right == input {
		return
	}
	if b.right != nil {
		b.right.removeOutput(b.self)
	}
	b.right = input
	if input != nil {
		input.addOutput(b.self)
	}
}

func (b *baseNode) Outputs() []Node {
	return append([]Node(nil), b.outputs...)
}

func (b *baseNode) OutputCount() int { return len(b.outputs) }

func (b *baseNode) addOutput(output Node) {
	b.outputs = append(b.outputs, output)
}

func (b *baseNode) removeOutput(output Node) {
	for i, o := range b.outputs {
		if o == output {
			b.outputs = append(b.outputs[:i], b.outputs[i+1:]...)
			return
		}
	}
}

// Default column resolution: match by rendered column name against the
// node's output schema.
func (b *baseNode) FindColumnID(expr Expression) types.ColumnID {
	want := expr.ColumnName()
	for i, col := range b.self.ColumnExpressions() {
		if col.ColumnName() == want {
			return types.ColumnID(i)
		}
		// An unqualified reference matches a qualified output column.
		if c, ok := col.(*ColumnExpression); ok && c.Name == want {
			return types.ColumnID(i)
		}
	}
	return types.InvalidColumnID
}

func (b *baseNode) OutputRowCount() float64 {
	return b.self.Statistics().RowCount
}

// passThroughColumns is the schema of nodes that keep their input columns.
func (b *baseNode) passThroughColumns() []Expression {
	if b.left == nil {
		return nil
	}
	return b.left.ColumnExpressions()
}

func (b *baseNode) leftStatistics() *catalog.TableStatistics {
	if b.left == nil {
		return &catalog.TableStatistics{}
	}
	return b.left.Statistics()
}

// RemoveFromTree splices a single-input node out of the plan: every output
// that pointed at the node points at its left input afterwards.
func RemoveFromTree(n Node) {
	if n.RightInput() != nil {
		panic(errors.OptimizerInvariantError("RemoveFromTree is defined for single-input nodes, %s has two inputs", n))
	}

	child := n.LeftInput()
	outputs := n.Outputs()
	n.SetLeftInput(nil)

	for _, output := range outputs {
		if output.LeftInput() == n {
			output.SetLeftInput(child)
		} else if output.RightInput() == n {
			output.SetRightInput(child)
		}
	}
}

// ReplaceWith swaps a node for a replacement in every output that points at
// it. The replacement keeps its own inputs.
func ReplaceWith(n, replacement Node) {
	for _, output := range n.Outputs() {
		if output.LeftInput() == n {
			output.SetLeftInput(replacement)
		}
		if output.RightInput() == n {
			output.SetRightInput(replacement)
		}
	}
}

// DeepCopyNode clones a plan. The visited map preserves DAG shape: a node
// with several outputs is copied once and shared by its copied outputs.
func DeepCopyNode(n Node) Node {
	return deepCopyNodeImpl(n, make(map[Node]Node))
}

func deepCopyNodeImpl(n Node, visited map[Node]Node) Node {
	if n == nil {
		return nil
	}
	if copied, ok := visited[n]; ok {
		return copied
	}

	left := deepCopyNodeImpl(n.LeftInput(), visited)
	right := deepCopyNodeImpl(n.RightInput(), visited)

	copied := n.deepCopy(left, right)
	visited[n] = copied
	return copied
}

// PlansEqual compares two plans structurally: same shape, node-wise
// ShallowEquals.
func PlansEqual(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !a.ShallowEquals(b) {
		return false
	}
	return PlansEqual(a.LeftInput(), b.LeftInput()) && PlansEqual(a.RightInput(), b.RightInput())
}

// VisitPlan walks the plan pre-order, visiting shared nodes once.
func VisitPlan(root Node, visit func(Node) bool) {
	visited := make(map[Node]struct{})
	var walk func(Node)
	walk = func(n Node) {
		if n == nil {
			return
		}
		if _, seen := visited[n]; seen {
			return
		}
		visited[n] = struct{}{}
		if !visit(n) {
			return
		}
		walk(n.LeftInput())
		walk(n.RightInput())
	}
	walk(root)
}

// PrintPlan renders a plan tree with indentation for EXPLAIN-style output.
func PrintPlan(root Node) string {
	var render func(n Node, indent string) string
	render = func(n Node, indent string) string {
		if n == nil {
			return ""
		}
		out := indent + n.String() + "\n"
		out += render(n.LeftInput(), indent+"  ")
		out += render(n.RightInput(), indent+"  ")
		return out
	}
	return render(root, "")
}

func describeExpressions(exprs []Expression) string {
	s := ""
	for i, e := range exprs {
		if i > 0 {
			s += ", "
		}
		s += e.ColumnName()
	}
	return s
}
