package optimizer

import (
	"sort"

	"github.com/emberdb/ember/internal/sql/planner"
)

// PredicateReordering sorts maximal chains of consecutive predicate nodes
// so the most selective predicate sits lowest, shrinking intermediate
// results as early as possible. A predicate with more than one output is
// pinned: a shared downstream node fixes its position, so chains are split
// around it.
type PredicateReordering struct{}

// Name identifies the rule.
func (r *PredicateReordering) Name() string { return "PredicateReordering" }

// Apply walks the plan top-down and reorders every chain it finds.
func (r *PredicateReordering) Apply(root planner.Node) (planner.Node, bool) {
	changed := false
	visited := make(map[planner.Node]struct{})

	var walk func(n planner.Node)
	walk = func(n planner.Node) {
		if n == nil {
			return
		}
		if _, seen := visited[n]; seen {
			return
		}
		visited[n] = struct{}{}

		// A predicate with several outputs never heads a chain; the walk
		// passes through it like any other node.
		if p, ok := n.(*planner.PredicateNode); ok && p.OutputCount() <= 1 {
			chain := collectPredicateChain(p)
			for _, node := range chain {
				visited[node] = struct{}{}
			}
			// Continue below the chain; reordering rewires the chain's
			// internal links, so grab the child first.
			child := chain[len(chain)-1].LeftInput()
			if reorderChain(chain) {
				changed = true
			}
			walk(child)
			return
		}

		walk(n.LeftInput())
		walk(n.RightInput())
	}
	walk(root)

	return root, changed
}

// collectPredicateChain gathers the maximal run of predicates below (and
// including) head. Only single-output nodes may join the chain below the
// head, and the head itself has at most one output, which is re-attached
// after sorting.
func collectPredicateChain(head *planner.PredicateNode) []*planner.PredicateNode {
	chain := []*planner.PredicateNode{head}
	for {
		next, ok := chain[len(chain)-1].LeftInput().(*planner.PredicateNode)
		if !ok || next.OutputCount() != 1 {
			break
		}
		chain = append(chain, next)
	}
	return chain
}

// reorderChain sorts a chain so that row-count estimates decrease
// top-down: the most selective predicate ends up at the bottom. Ties keep
// their original order, which makes the rule deterministic and idempotent.
func reorderChain(chain []*planner.PredicateNode) bool {
	if len(chain) < 2 {
		return false
	}

	// Rank every predicate against the chain's common input. Ranking by
	// in-place estimates would depend on the current order and oscillate
	// across rule applications.
	child := chain[len(chain)-1].LeftInput()
	rowCounts := make(map[*planner.PredicateNode]float64, len(chain))
	for _, p := range chain {
		rowCounts[p] = planner.EstimatePredicateStatistics(child, p.Predicate).RowCount
	}

	sorted := append([]*planner.PredicateNode(nil), chain...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rowCounts[sorted[i]] > rowCounts[sorted[j]]
	})

	same := true
	for i := range chain {
		if chain[i] != sorted[i] {
			same = false
			break
		}
	}
	if same {
		return false
	}

	// Remember the chain's external connections.
	type attachment struct {
		output planner.Node
		left   bool
	}
	var attachments []attachment
	for _, output := range chain[0].Outputs() {
		if output.LeftInput() == chain[0] {
			attachments = append(attachments, attachment{output: output, left: true})
		}
		if output.RightInput() == chain[0] {
			attachments = append(attachments, attachment{output: output, left: false})
		}
	}
	child = chain[len(chain)-1].LeftInput()

	for _, p := range chain {
		p.SetLeftInput(nil)
	}

	for i := 0; i < len(sorted)-1; i++ {
		sorted[i].SetLeftInput(sorted[i+1])
	}
	sorted[len(sorted)-1].SetLeftInput(child)

	for _, a := range attachments {
		if a.left {
			a.output.SetLeftInput(sorted[0])
		} else {
			a.output.SetRightInput(sorted[0])
		}
	}

	return true
}
