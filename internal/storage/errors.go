package storage

import "fmt"

// Persistence operations reported in PersistenceError.Op.
const (
	OpConvert = "convert"
	OpExists  = "exists"
	OpDrop    = "drop"
	OpCreate  = "create"
	OpInsert  = "insert"
	OpRead    = "read"
)

// PersistenceError reports a failed step of a destination table operation.
type PersistenceError struct {
	Table string
	Op    string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %s: %v", e.Table, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
