package table

import (
	"fmt"
	"strings"
)

// SchemaMismatchError reports columns a stage expected but did not find.
type SchemaMismatchError struct {
	Stage   string
	Missing []string
	Detail  string
}

func (e *SchemaMismatchError) Error() string {
	msg := fmt.Sprintf("%s: schema mismatch", e.Stage)
	if len(e.Missing) > 0 {
		msg += ": missing column(s) " + strings.Join(e.Missing, ", ")
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}
