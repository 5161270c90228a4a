// Package datasource declares where raw pipeline input comes from.
package datasource

import (
	"context"
	"io"
)

// Source opens a stream of raw bytes for a parser.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Name identifies the source in logs and errors.
	Name() string
}
