// Package tabular turns loosely structured BOM and KPI input (JSON or CSV text) into ordered row sets.
//
// Parsing never fails outward: malformed input yields an empty RowSet that downstream stages treat as
// "no data".
package tabular

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
)

// Row maps a column name to its raw string value.
type Row map[string]string

// RowSet is an ordered list of rows plus the header order they were read with.
type RowSet struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Len returns the number of rows.
func (rs RowSet) Len() int { return len(rs.Rows) }

// Empty reports whether the set holds no rows.
func (rs RowSet) Empty() bool { return len(rs.Rows) == 0 }

// Head returns a RowSet with at most n rows.
func (rs RowSet) Head(n int) RowSet {
	if n <= 0 || n >= len(rs.Rows) {
		return rs
	}
	return RowSet{Columns: rs.Columns, Rows: rs.Rows[:n]}
}

// Parse reads raw BOM/KPI text. A JSON array of objects is tried first, then CSV with a header row.
func Parse(raw string) RowSet {
	trimmed := strings.TrimSpace(strings.TrimPrefix(raw, "\uFEFF"))
	if trimmed == "" {
		return RowSet{}
	}

	if strings.HasPrefix(trimmed, "[") {
		rs, err := parseJSON(trimmed)
		if err == nil {
			return rs
		}
		slog.Debug("tabular input is not a JSON row array, trying CSV", "error", errors.NewParseFailure("json rows", err))
	}

	return ParseCSV(trimmed)
}

// ParseCSV reads CSV text with a header row. Blank lines are skipped and fewer than two remaining
// lines produce an empty RowSet.
func ParseCSV(raw string) RowSet {
	lines := make([]string, 0)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) < 2 {
		return RowSet{}
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		slog.Warn("CSV input could not be parsed", "error", errors.NewParseFailure("csv rows", err))
		return RowSet{}
	}
	if len(records) < 2 {
		return RowSet{}
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	}

	rs := RowSet{Columns: header, Rows: make([]Row, 0, len(records)-1)}
	for _, record := range records[1:] {
		row := make(Row, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			} else {
				row[col] = ""
			}
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs
}

func parseJSON(raw string) (RowSet, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	if tok, err := dec.Token(); err != nil || tok != json.Delim('[') {
		return RowSet{}, fmt.Errorf("expected array start")
	}

	var rs RowSet
	seen := make(map[string]bool)

	for dec.More() {
		if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
			return RowSet{}, fmt.Errorf("expected object in row array")
		}

		row := make(Row)
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return RowSet{}, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return RowSet{}, fmt.Errorf("unexpected object key %v", keyTok)
			}

			var value interface{}
			if err := dec.Decode(&value); err != nil {
				return RowSet{}, err
			}

			key = strings.TrimSpace(key)
			row[key] = stringify(value)
			if !seen[key] {
				seen[key] = true
				rs.Columns = append(rs.Columns, key)
			}
		}

		if _, err := dec.Token(); err != nil {
			return RowSet{}, err
		}
		rs.Rows = append(rs.Rows, row)
	}

	if _, err := dec.Token(); err != nil {
		return RowSet{}, err
	}
	return rs, nil
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

// Lookup returns the first non-empty value among aliases, tried in order. Exact column names are
// checked before a case and spacing insensitive pass.
func (r Row) Lookup(aliases ...string) (string, bool) {
	for _, alias := range aliases {
		if v, ok := r[alias]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}

	for _, alias := range aliases {
		want := normalizeColumn(alias)
		for col, v := range r {
			if normalizeColumn(col) == want && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
	}
	return "", false
}

// String returns the aliased value or def.
func (r Row) String(def string, aliases ...string) string {
	if v, ok := r.Lookup(aliases...); ok {
		return v
	}
	return def
}

// Float returns the aliased value as a number. Missing or non-numeric values yield def.
func (r Row) Float(def float64, aliases ...string) float64 {
	v, ok := r.Lookup(aliases...)
	if !ok {
		return def
	}
	f, ok := ParseNumber(v)
	if !ok {
		return def
	}
	return f
}

// ParseNumber parses values such as "95%", "$1,250.00" or " 12 ".
func ParseNumber(s string) (float64, bool) {
	cleaned := strings.NewReplacer("%", "", "$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func normalizeColumn(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

// CSV serializes the set with its header order.
func (rs RowSet) CSV() string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(rs.Columns)
	for _, row := range rs.Rows {
		record := make([]string, len(rs.Columns))
		for i, col := range rs.Columns {
			record[i] = row[col]
		}
		_ = w.Write(record)
	}
	w.Flush()
	return buf.String()
}

// Markdown renders up to limit rows (all when limit <= 0) as a markdown table.
func (rs RowSet) Markdown(limit int) string {
	if rs.Empty() || len(rs.Columns) == 0 {
		return ""
	}

	escape := func(s string) string { return strings.ReplaceAll(s, "|", "\\|") }

	var b strings.Builder
	b.WriteString("| ")
	for i, col := range rs.Columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(escape(col))
	}
	b.WriteString(" |\n|")
	for range rs.Columns {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")

	for _, row := range rs.Head(limit).Rows {
		b.WriteString("| ")
		for i, col := range rs.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(escape(row[col]))
		}
		b.WriteString(" |\n")
	}
	return b.String()
}
