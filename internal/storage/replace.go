package storage

import (
	"context"
	"time"

	"musicetl/internal/ddl"
	"musicetl/internal/schema"
	"musicetl/internal/table"
)

// Result is the outcome of Replace. Err is nil or a *PersistenceError.
type Result struct {
	Table    string
	Rows     int64
	Dropped  bool
	Duration time.Duration
	Err      error
}

// OK reports whether the replace succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Replace makes the destination table hold exactly the rows of t:
// check existence, drop if present, create from def, bulk insert.
//
// Values are converted to the column kinds before anything is dropped, so a
// table that cannot be stored leaves the destination untouched. The three
// database steps are not one atomic unit; a failure after the drop leaves the
// table absent or empty.
func Replace(ctx context.Context, repo Repository, def ddl.TableDef, t *table.Table) Result {
	start := time.Now()
	res := Result{Table: def.Name}
	fail := func(op string, err error) Result {
		res.Err = &PersistenceError{Table: def.Name, Op: op, Err: err}
		res.Duration = time.Since(start)
		return res
	}

	rows, err := schema.Rows(def, t)
	if err != nil {
		return fail(OpConvert, err)
	}
	create, err := ddl.BuildCreateTableSQL(def, repo.Dialect())
	if err != nil {
		return fail(OpCreate, err)
	}

	exists, err := repo.TableExists(ctx, def.Name)
	if err != nil {
		return fail(OpExists, err)
	}
	if exists {
		if err := repo.Exec(ctx, ddl.BuildDropTableSQL(def, repo.Dialect())); err != nil {
			return fail(OpDrop, err)
		}
		res.Dropped = true
	}
	if err := repo.Exec(ctx, create); err != nil {
		return fail(OpCreate, err)
	}

	n, err := repo.CopyFrom(ctx, def, rows)
	res.Rows = n
	if err != nil {
		return fail(OpInsert, err)
	}
	res.Duration = time.Since(start)
	return res
}

// ReadAll reads the destination table back, ordered by its primary key, as
// a table typed by def.
func ReadAll(ctx context.Context, repo Repository, def ddl.TableDef) (*table.Table, error) {
	rows, err := repo.Query(ctx, ddl.BuildSelectAllSQL(def, repo.Dialect()))
	if err != nil {
		return nil, &PersistenceError{Table: def.Name, Op: OpRead, Err: err}
	}
	t, err := schema.FromRows(def, rows)
	if err != nil {
		return nil, &PersistenceError{Table: def.Name, Op: OpRead, Err: err}
	}
	return t, nil
}
