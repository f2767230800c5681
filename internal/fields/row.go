package fields

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Row is a Parsed result projected onto Schema. Every column is present;
// missing fields are empty. Values stay text so identifiers such as
// "P-1023" are never coerced.
type Row struct {
	values map[Field]string
}

func NewRow(p *Parsed) Row {
	r := Row{values: make(map[Field]string, len(Schema))}
	for _, f := range Schema {
		v := ""
		if p != nil {
			v, _ = p.Get(f)
		}
		r.values[f] = v
	}
	return r
}

// RowFromMap builds a row from column values, ignoring non-schema keys.
func RowFromMap(m map[string]string) Row {
	p := NewParsed()
	for _, f := range Schema {
		p.Set(f, m[string(f)])
	}
	return NewRow(p)
}

// Get returns the column value, "" for missing or unknown columns.
func (r Row) Get(f Field) string { return r.values[f] }

// Missing reports whether the column has no value.
func (r Row) Missing(f Field) bool { return r.values[f] == "" }

func (r Row) Columns() []string {
	out := make([]string, len(Schema))
	for i, f := range Schema {
		out[i] = string(f)
	}
	return out
}

// Values returns the cells in Schema order.
func (r Row) Values() []string {
	out := make([]string, len(Schema))
	for i, f := range Schema {
		out[i] = r.values[f]
	}
	return out
}

func (r Row) Map() map[string]string {
	out := make(map[string]string, len(Schema))
	for _, f := range Schema {
		out[string(f)] = r.values[f]
	}
	return out
}

// Numeric parses a numeric column. ok is false for missing, categorical or
// unparseable values.
func (r Row) Numeric(f Field) (float64, bool) {
	if IsCategorical(f) {
		return 0, false
	}
	v := r.values[f]
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ValidateRow lists numeric columns whose value is present but not a number.
func ValidateRow(r Row) []Field {
	var bad []Field
	for _, f := range Schema {
		if IsCategorical(f) || r.Missing(f) {
			continue
		}
		if _, ok := r.Numeric(f); !ok {
			bad = append(bad, f)
		}
	}
	return bad
}

// WriteCSV writes a header plus one line per row with every cell quoted.
func WriteCSV(w io.Writer, rows ...Row) error {
	bw := bufio.NewWriter(w)
	if err := writeQuoted(bw, NewRow(nil).Columns()); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writeQuoted(bw, r.Values()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeQuoted(w *bufio.Writer, cells []string) error {
	for i, c := range cells {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(c, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\n")
	return err
}

// ReadCSV reads rows written by WriteCSV. Column order in the header is free;
// unknown columns are dropped and missing ones stay empty.
func ReadCSV(rd io.Reader) ([]Row, error) {
	cr := csv.NewReader(rd)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read csv: missing header")
	}
	header := records[0]
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		m := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				m[strings.TrimSpace(col)] = rec[i]
			}
		}
		rows = append(rows, RowFromMap(m))
	}
	return rows, nil
}
