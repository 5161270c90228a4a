// Package csv parses delimited text into a table.Table.
//
// Input is decoded as UTF-8. A leading byte order mark is consumed (UTF-16
// input with a BOM is transcoded), so the first header cell never carries it.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"musicetl/internal/config"
	"musicetl/internal/table"
	"musicetl/pkg/records"
)

// Options configures the CSV parser behavior. All fields are optional; sensible
// defaults are applied when a field is zero.
type Options struct {
	// HasHeader indicates whether the first row contains column headers.
	HasHeader bool

	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// ExpectedFields, when > 0 and there is no header, synthesizes col_N
	// names and enforces the row width.
	ExpectedFields int

	// LazyQuotes relaxes quote handling in the underlying reader.
	LazyQuotes bool

	// HeaderMap maps source header names to canonical keys.
	HeaderMap map[string]string
}

// FromConfig reads parser options from a pipeline options bag.
func FromConfig(o config.Options) Options {
	return Options{
		HasHeader:      o.Bool("has_header", true),
		Comma:          o.Rune("comma", ','),
		TrimSpace:      o.Bool("trim_space", false),
		ExpectedFields: o.Int("expected_fields", 0),
		LazyQuotes:     o.Bool("lazy_quotes", false),
		HeaderMap:      o.StringMap("header_map"),
	}
}

// Parser parses CSV input according to Options. It holds no per-parse state,
// so one Parser may serve concurrent Parse calls.
type Parser struct {
	opt Options
	log *zap.Logger
}

// NewParser constructs a Parser with the provided Options. A nil logger
// discards skip messages.
func NewParser(opt Options, log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{opt: opt, log: log}
}

// ErrNoHeader is returned when a header is expected but the input is empty.
var ErrNoHeader = errors.New("csv: missing header row")

// skipLogLimit caps the number of per-row skip messages.
const skipLogLimit = 400

// Parse consumes CSV records from r and returns them as an untyped table along
// with the number of rows skipped for parse errors or width mismatches.
// Empty cells become nil.
func (p *Parser) Parse(r io.Reader) (*table.Table, int, error) {
	r = transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.LazyQuotes = p.opt.LazyQuotes
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var headers []string
	if p.opt.HasHeader {
		h, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil, 0, ErrNoHeader
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read csv header: %w", err)
		}
		headers, err = normalizeHeaders(h, p.opt)
		if err != nil {
			return nil, 0, err
		}
	} else if p.opt.ExpectedFields > 0 {
		headers = make([]string, p.opt.ExpectedFields)
		for i := range headers {
			headers[i] = fmt.Sprintf("col_%d", i)
		}
	}

	out := table.New(headers...)
	var skipped int
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if skipped < skipLogLimit {
				p.log.Warn("csv: skipping row", zap.Int("line", line), zap.Error(err))
			}
			skipped++
			continue
		}
		if len(headers) > 0 && len(row) != len(headers) {
			if skipped < skipLogLimit {
				p.log.Warn("csv: skipping row: incorrect number of fields",
					zap.Int("line", line), zap.Int("expected", len(headers)), zap.Int("got", len(row)))
			}
			skipped++
			continue
		}
		if len(headers) == 0 {
			// headerless and width unknown: widen the schema as rows arrive
			for i := len(out.Columns); i < len(row); i++ {
				out.AddColumn(fmt.Sprintf("col_%d", i), table.KindAny)
			}
		}

		rec := make(records.Record, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[out.Columns[i].Name] = emptyToNil(val)
		}
		out.Append(rec)
	}
	if skipped > 0 {
		p.log.Info("csv: rows skipped", zap.Int("skipped", skipped), zap.Int("kept", out.Len()))
	}
	return out, skipped, nil
}

// emptyToNil converts an empty string to nil; all other values are returned as-is.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// normalizeHeaders produces canonical header keys using HeaderMap (when
// provided) and simple normalization (lowercase, spaces to underscores).
// Blank cells are named col_N. Duplicate names are a malformed header.
func normalizeHeaders(h []string, opt Options) ([]string, error) {
	res := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		switch m, ok := opt.HeaderMap[c]; {
		case ok:
			c = m
		case c == "":
			c = fmt.Sprintf("col_%d", i)
		default:
			c = strings.ReplaceAll(strings.ToLower(c), " ", "_")
		}
		if j, dup := seen[c]; dup {
			return nil, fmt.Errorf("csv header: column %q repeated at positions %d and %d", c, j, i)
		}
		seen[c] = i
		res[i] = c
	}
	return res, nil
}
