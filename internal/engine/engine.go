// Package engine wires the storage manager, transaction manager, optimizer
// and scheduler into one value that drives statements end to end. Nothing
// here is a required singleton; embedders construct as many engines as
// they like.
package engine

import (
	"github.com/emberdb/ember/internal/config"
	"github.com/emberdb/ember/internal/errors"
	"github.com/emberdb/ember/internal/log"
	"github.com/emberdb/ember/internal/optimizer"
	"github.com/emberdb/ember/internal/scheduler"
	"github.com/emberdb/ember/internal/sql/ast"
	"github.com/emberdb/ember/internal/sql/executor"
	"github.com/emberdb/ember/internal/sql/parser"
	"github.com/emberdb/ember/internal/sql/planner"
	"github.com/emberdb/ember/internal/storage"
	"github.com/emberdb/ember/internal/txn"
)

// Engine is the query execution pipeline: parse → translate → optimize →
// operator DAG → scheduled execution under a transaction context.
type Engine struct {
	Config    *config.Config
	Storage   *storage.Manager
	Scheduler *scheduler.Scheduler
	Txns      *txn.Manager
	Optimizer *optimizer.Optimizer

	logger log.Logger
}

// New assembles an engine from a configuration.
func New(cfg *config.Config, logger log.Logger) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = log.Default()
	}

	var topology *scheduler.Topology
	if cfg.Scheduler.NumaNodes > 0 {
		topology = scheduler.FakeNumaTopology(cfg.Scheduler.NumaNodes, cfg.Scheduler.CPUsPerNode)
	} else {
		topology = scheduler.DetectTopology()
	}

	opts := optimizer.Options{
		MaxIterations:        cfg.Optimizer.MaxIterations,
		IndexScanSelectivity: cfg.Optimizer.IndexScanSelectivity,
	}

	return &Engine{
		Config:    cfg,
		Storage:   storage.NewManager(),
		Scheduler: scheduler.New(topology, cfg.Scheduler.PinWorkers, logger),
		Txns:      txn.NewManager(nil),
		Optimizer: optimizer.NewOptimizer(opts, logger),
		logger:    logger,
	}
}

// Shutdown drains the scheduler. The engine is unusable afterwards.
func (e *Engine) Shutdown() {
	e.Scheduler.Finish()
}

// Execute parses and runs one SQL statement.
func (e *Engine) Execute(sql string) (*executor.Result, error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}
	return e.Run(stmt)
}

// Run executes one parsed statement in its own transaction.
func (e *Engine) Run(stmt ast.Statement) (*executor.Result, error) {
	plan, err := e.plan(stmt)
	if err != nil {
		return nil, err
	}

	root, err := executor.Translate(plan, e.translateContext())
	if err != nil {
		return nil, err
	}

	ctx := e.Txns.NewContext()
	executor.SetTransactionContextRecursively(root, ctx)

	tasks := executor.MakeTasks(root)
	if err := e.Scheduler.ScheduleAll(tasks.Tasks); err != nil {
		_ = ctx.Rollback()
		return nil, err
	}

	if err := tasks.Wait(); err != nil {
		_ = ctx.Rollback()
		return nil, err
	}
	if ctx.Aborted() {
		_ = ctx.Rollback()
		return nil, errors.TransactionAbortedError()
	}

	if err := ctx.Commit(); err != nil {
		return nil, err
	}

	return root.Output(), nil
}

// Plan parses, translates and optimizes a statement and renders the plan,
// for EXPLAIN-style inspection.
func (e *Engine) Plan(sql string) (string, error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return "", err
	}
	plan, err := e.plan(stmt)
	if err != nil {
		return "", err
	}
	return planner.PrintPlan(plan), nil
}

func (e *Engine) plan(stmt ast.Statement) (planner.Node, error) {
	translator := planner.NewTranslator(e.Storage)
	plan, err := translator.Translate(stmt, planner.TranslateOptions{Validate: needsValidation(stmt)})
	if err != nil {
		return nil, err
	}
	return e.Optimizer.Optimize(plan), nil
}

func (e *Engine) translateContext() *executor.TranslateContext {
	return &executor.TranslateContext{
		Manager:   e.Storage,
		TxnLogger: txn.NewInitialLogger(),
		ChunkSize: e.Config.Storage.ChunkSize,
	}
}

// needsValidation reports whether a statement reads table data and must
// observe MVCC visibility. DDL and catalog statements bypass it.
func needsValidation(stmt ast.Statement) bool {
	switch stmt.(type) {
	case *ast.SelectStatement, *ast.UpdateStatement, *ast.DeleteStatement, *ast.InsertStatement:
		return true
	default:
		return false
	}
}

// ExitCode maps an execution error to the driver's exit code contract:
// 0 ok, 1 parse/translate error, 2 runtime error, 3 transaction aborted.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	e := errors.GetError(err)
	switch e.Code {
	case errors.ParseError, errors.UnknownIdentifier, errors.AmbiguousIdentifier,
		errors.TypeMismatch, errors.AggregateMisuse, errors.RenamingArity:
		return 1
	case errors.TransactionAborted, errors.TransactionConflict:
		return 3
	default:
		return 2
	}
}
