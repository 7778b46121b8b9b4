// Package optimizer rewrites logical query plans with an ordered list of
// rules, iterating until no rule reports a change.
package optimizer

import (
	"github.com/emberdb/ember/internal/log"
	"github.com/emberdb/ember/internal/sql/planner"
)

// Rule transforms a plan in place. Apply receives the plan root (always a
// RootNode) and reports whether anything changed.
type Rule interface {
	// Name identifies the rule in logs.
	Name() string
	// Apply attempts to apply this rule to the given plan.
	// Returns the plan root and true if the rule changed the plan.
	Apply(root planner.Node) (planner.Node, bool)
}

// Optimizer applies optimization rules to logical plans.
type Optimizer struct {
	rules         []Rule
	maxIterations int
	logger        log.Logger
}

// Options configure the default rule set.
type Options struct {
	// MaxIterations bounds the fixpoint loop.
	MaxIterations int
	// IndexScanSelectivity is the largest selectivity still routed through
	// an index.
	IndexScanSelectivity float64
}

// DefaultOptions mirror the engine's configuration defaults.
func DefaultOptions() Options {
	return Options{MaxIterations: 10, IndexScanSelectivity: 0.01}
}

// NewOptimizer creates an optimizer with the default rules.
func NewOptimizer(opts Options, logger log.Logger) *Optimizer {
	if logger == nil {
		logger = log.Discard()
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}
	if opts.IndexScanSelectivity <= 0 {
		opts.IndexScanSelectivity = DefaultOptions().IndexScanSelectivity
	}
	return &Optimizer{
		rules: []Rule{
			&ExpressionReduction{},
			&JoinDetection{},
			&PredicatePushdown{},
			&PredicateReordering{},
			&IndexScanRule{SelectivityThreshold: opts.IndexScanSelectivity},
			&ColumnPruning{},
		},
		maxIterations: opts.MaxIterations,
		logger:        logger,
	}
}

// NewOptimizerWithRules creates an optimizer running exactly the given
// rules, for tests and experiments.
func NewOptimizerWithRules(rules ...Rule) *Optimizer {
	return &Optimizer{rules: rules, maxIterations: DefaultOptions().MaxIterations, logger: log.Discard()}
}

// Optimize rewrites a plan until the rule set reaches a fixpoint or the
// iteration cap is hit. The input plan is modified in place; the returned
// root replaces it.
func (o *Optimizer) Optimize(plan planner.Node) planner.Node {
	root := planner.NewRootNode(plan)

	for i := 0; i < o.maxIterations; i++ {
		changed := false
		for _, rule := range o.rules {
			var ruleChanged bool
			_, ruleChanged = rule.Apply(root)
			if ruleChanged {
				o.logger.Debug("optimizer rule changed plan", "rule", rule.Name(), "iteration", i)
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	result := root.LeftInput()
	// Drop the anchor so the plan's true root has no stray output.
	root.SetLeftInput(nil)
	return result
}

// ApplyRule runs a single rule once against a plan, the way rule tests
// exercise rules in isolation.
func ApplyRule(rule Rule, plan planner.Node) (planner.Node, bool) {
	root := planner.NewRootNode(plan)
	_, changed := rule.Apply(root)
	result := root.LeftInput()
	root.SetLeftInput(nil)
	return result, changed
}
