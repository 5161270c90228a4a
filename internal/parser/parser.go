// Package parser declares the contract shared by source parsers.
package parser

import (
	"io"

	"musicetl/internal/table"
)

// Parser turns raw source bytes into an untyped table. The int result counts
// rows that were skipped as malformed.
type Parser interface {
	Parse(r io.Reader) (*table.Table, int, error)
}
