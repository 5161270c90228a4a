package table

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"musicetl/pkg/records"
)

// MarshalJSON encodes the table as an array of row objects with keys in
// column order. Dates are written as RFC 3339 strings.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range t.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, c := range t.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(c.Name)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			val, err := json.Marshal(jsonValue(r[c.Name]))
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, c.Name, err)
			}
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format(time.RFC3339)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	}
	return v
}

// UnmarshalJSON replaces t with the decoded row array.
func (t *Table) UnmarshalJSON(data []byte) error {
	dec, err := Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	*t = *dec
	return nil
}

// Decode reads a JSON row array. Column order follows the keys of the first
// object; keys first seen in later rows are appended. Integral numbers decode
// to int64, other numbers to float64. A JSON null document decodes to an
// empty table.
func Decode(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Empty(), nil
		}
		return nil, fmt.Errorf("decode table: %w", err)
	}
	if tok == nil {
		return Empty(), nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("decode table: expected array, got %v", tok)
	}

	t := Empty()
	for dec.More() {
		row, err := decodeRow(dec, t)
		if err != nil {
			return nil, fmt.Errorf("decode table: row %d: %w", len(t.Rows), err)
		}
		t.Rows = append(t.Rows, row)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	return t, nil
}

func decodeRow(dec *json.Decoder, t *Table) (records.Record, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	row := records.Record{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("column %q: %w", key, err)
		}
		v, err := scalar(raw)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", key, err)
		}
		row[key] = v
		observe(t, key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return row, nil
}

func scalar(raw any) (any, error) {
	switch x := raw.(type) {
	case nil, string, bool:
		return x, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("nested value %T not supported", raw)
	}
}

// observe records the column and widens its kind from the decoded value.
func observe(t *Table, key string, v any) {
	i := t.Index(key)
	if i < 0 {
		t.Columns = append(t.Columns, Column{Name: key, Kind: KindAny})
		i = len(t.Columns) - 1
	}
	k := kindOfValue(v)
	switch cur := t.Columns[i].Kind; {
	case k == KindAny || cur == k:
	case cur == KindAny:
		t.Columns[i].Kind = k
	case cur == KindInt && k == KindFloat:
		t.Columns[i].Kind = KindFloat
	case cur == KindFloat && k == KindInt:
	default:
		t.Columns[i].Kind = KindString
	}
}

func kindOfValue(v any) Kind {
	switch v.(type) {
	case string:
		return KindString
	case int64:
		return KindInt
	case float64:
		return KindFloat
	case bool:
		return KindBool
	case time.Time:
		return KindDate
	}
	return KindAny
}
