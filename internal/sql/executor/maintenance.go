package executor

import (
	"fmt"

	"github.com/emberdb/ember/internal/catalog"
	"github.com/emberdb/ember/internal/storage"
	"github.com/emberdb/ember/internal/txn"
	"github.com/emberdb/ember/internal/types"
)

// CreateTable registers a new table with the storage manager.
type CreateTable struct {
	baseOperator
	manager   *storage.Manager
	tableName string
	schema    *catalog.Schema
	chunkSize int
}

// NewCreateTable creates a CREATE TABLE operator.
func NewCreateTable(manager *storage.Manager, tableName string, schema *catalog.Schema, chunkSize int) *CreateTable {
	op := &CreateTable{manager: manager, tableName: tableName, schema: schema, chunkSize: chunkSize}
	op.init(op, nil, nil)
	return op
}

func (op *CreateTable) Description() string {
	return fmt.Sprintf("CreateTable(%s)", op.tableName)
}

func (op *CreateTable) onExecute(*txn.Context) (*Result, error) {
	table := storage.NewTable(op.schema.Clone(), op.chunkSize)
	if err := op.manager.AddTable(op.tableName, table); err != nil {
		return nil, err
	}
	return &Result{Table: newOutputTable(op.schema)}, nil
}

func (op *CreateTable) onRecreate(left, right Operator) Operator {
	return NewCreateTable(op.manager, op.tableName, op.schema.Clone(), op.chunkSize)
}

// DropTable removes a table from the storage manager.
type DropTable struct {
	baseOperator
	manager   *storage.Manager
	tableName string
}

// NewDropTable creates a DROP TABLE operator.
func NewDropTable(manager *storage.Manager, tableName string) *DropTable {
	op := &DropTable{manager: manager, tableName: tableName}
	op.init(op, nil, nil)
	return op
}

func (op *DropTable) Description() string {
	return fmt.Sprintf("DropTable(%s)", op.tableName)
}

func (op *DropTable) onExecute(*txn.Context) (*Result, error) {
	if err := op.manager.DropTable(op.tableName); err != nil {
		return nil, err
	}
	empty := catalog.NewSchema()
	return &Result{Table: newOutputTable(empty)}, nil
}

func (op *DropTable) onRecreate(left, right Operator) Operator {
	return NewDropTable(op.manager, op.tableName)
}

// ShowTables lists the catalog's table names.
type ShowTables struct {
	baseOperator
	manager *storage.Manager
}

// NewShowTables creates a SHOW TABLES operator.
func NewShowTables(manager *storage.Manager) *ShowTables {
	op := &ShowTables{manager: manager}
	op.init(op, nil, nil)
	return op
}

func (op *ShowTables) Description() string { return "ShowTables" }

func (op *ShowTables) onExecute(*txn.Context) (*Result, error) {
	schema := catalog.NewSchema(
		catalog.ColumnDefinition{Name: "table_name", DataType: types.String},
	)
	output := newOutputTable(schema)
	for _, name := range op.manager.TableNames() {
		if err := appendOutputRow(output, []types.Value{types.NewValue(name)}); err != nil {
			return nil, err
		}
	}
	return &Result{Table: output}, nil
}

func (op *ShowTables) onRecreate(left, right Operator) Operator {
	return NewShowTables(op.manager)
}

// ShowColumns lists a table's columns with type and nullability.
type ShowColumns struct {
	baseOperator
	manager   *storage.Manager
	tableName string
}

// NewShowColumns creates a SHOW COLUMNS operator.
func NewShowColumns(manager *storage.Manager, tableName string) *ShowColumns {
	op := &ShowColumns{manager: manager, tableName: tableName}
	op.init(op, nil, nil)
	return op
}

func (op *ShowColumns) Description() string {
	return fmt.Sprintf("ShowColumns(%s)", op.tableName)
}

func (op *ShowColumns) onExecute(*txn.Context) (*Result, error) {
	table, err := op.manager.GetTable(op.tableName)
	if err != nil {
		return nil, err
	}

	schema := catalog.NewSchema(
		catalog.ColumnDefinition{Name: "column_name", DataType: types.String},
		catalog.ColumnDefinition{Name: "column_type", DataType: types.String},
		catalog.ColumnDefinition{Name: "nullable", DataType: types.Int},
	)
	output := newOutputTable(schema)
	for _, def := range table.Schema().Columns {
		nullable := int32(0)
		if def.Nullable {
			nullable = 1
		}
		row := []types.Value{
			types.NewValue(def.Name),
			types.NewValue(def.DataType.Name()),
			types.NewValue(nullable),
		}
		if err := appendOutputRow(output, row); err != nil {
			return nil, err
		}
	}
	return &Result{Table: output}, nil
}

func (op *ShowColumns) onRecreate(left, right Operator) Operator {
	return NewShowColumns(op.manager, op.tableName)
}
