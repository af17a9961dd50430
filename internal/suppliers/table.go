package suppliers

import (
	"strings"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/generation"
)

// TableRow is one supplier row from a discovery table.
type TableRow struct {
	Manufacturer string
	Supplier     string
}

// ParseSupplierTable reads the markdown table produced by supplier discovery. Only rows with at least six
// cells count; the manufacturer is the second cell and the supplier the third. Header rows and
// placeholder values such as "[Supplier]" are skipped.
func ParseSupplierTable(markdown string) []TableRow {
	var rows []TableRow
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") || separator(line) {
			continue
		}
		cells := generation.TableCells(line)
		if len(cells) < 6 {
			continue
		}
		mfr, supplier := cells[1], cells[2]
		if strings.EqualFold(mfr, "Manufacturer") || strings.EqualFold(supplier, "Supplier") {
			continue
		}
		if placeholder(supplier) {
			continue
		}
		if placeholder(mfr) {
			mfr = ""
		}
		rows = append(rows, TableRow{Manufacturer: mfr, Supplier: supplier})
	}
	return rows
}

// Discovered returns the supplier column of rows.
func Discovered(rows []TableRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Supplier)
	}
	return out
}

func separator(line string) bool {
	return strings.Trim(line, "|-: ") == ""
}

func placeholder(cell string) bool {
	return strings.HasPrefix(cell, "[") && strings.HasSuffix(cell, "]")
}
