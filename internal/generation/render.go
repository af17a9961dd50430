package generation

import (
	"bytes"
	"encoding/json"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// MarkdownToHTML converts markdown, tables included, to HTML with every link opening in a new tab.
func MarkdownToHTML(md string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return EnsureExternalLinks("<pre>" + html.EscapeString(md) + "</pre>")
	}
	return EnsureExternalLinks(buf.String())
}

// RenderHTML is MarkdownToHTML wrapped in a div.
func RenderHTML(md string) string {
	return "<div>" + MarkdownToHTML(md) + "</div>"
}

var (
	anchorTag   = regexp.MustCompile(`<a\s+([^>]*?)>`)
	hrefAttr    = regexp.MustCompile(`(href=["'][^"']*["'])`)
	targetAttr  = regexp.MustCompile(`(^|\s)target\s*=`)
	relAttr     = regexp.MustCompile(`(^|\s)rel\s*=`)
	anchorBlock = regexp.MustCompile(`(?s)<a\s+([^>]*?)>(.*?)</a>`)
	hrefValue   = regexp.MustCompile(`href=["']([^"']*)["']`)
)

// EnsureExternalLinks adds target="_blank" and rel="noopener noreferrer" to anchors, each only when
// the anchor does not carry that attribute yet. Applying it twice gives the same output as applying
// it once.
func EnsureExternalLinks(htmlText string) string {
	return anchorTag.ReplaceAllStringFunc(htmlText, func(tag string) string {
		attrs := anchorTag.FindStringSubmatch(tag)[1]

		var missing []string
		if !targetAttr.MatchString(attrs) {
			missing = append(missing, `target="_blank"`)
		}
		if !relAttr.MatchString(attrs) {
			missing = append(missing, `rel="noopener noreferrer"`)
		}
		if len(missing) == 0 {
			return tag
		}

		extra := strings.Join(missing, " ")
		if hrefAttr.MatchString(attrs) {
			attrs = hrefAttr.ReplaceAllString(attrs, "${1} "+extra)
		} else {
			attrs = strings.TrimSpace(attrs) + " " + extra
		}
		return "<a " + attrs + ">"
	})
}

// UnlinkUnlisted replaces every anchor whose href is not in allowed with its inner text, so the
// output only links to URLs the caller supplied.
func UnlinkUnlisted(htmlText string, allowed []string) string {
	permitted := make(map[string]struct{}, len(allowed))
	for _, u := range allowed {
		if u = strings.TrimSpace(u); u != "" {
			permitted[u] = struct{}{}
		}
	}

	return anchorBlock.ReplaceAllStringFunc(htmlText, func(block string) string {
		m := anchorBlock.FindStringSubmatch(block)
		if href := hrefValue.FindStringSubmatch(m[1]); href != nil {
			if _, ok := permitted[strings.TrimSpace(html.UnescapeString(href[1]))]; ok {
				return block
			}
		}
		return m[2]
	})
}

var tableRow = regexp.MustCompile(`(?s)<tr[^>]*>.*?</tr>`)

// HighlightRows marks table rows that mention any of terms, case-insensitively.
func HighlightRows(htmlText string, terms []string) string {
	if len(terms) == 0 {
		return htmlText
	}
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			quoted = append(quoted, regexp.QuoteMeta(t))
		}
	}
	if len(quoted) == 0 {
		return htmlText
	}
	pattern := regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))

	return tableRow.ReplaceAllStringFunc(htmlText, func(row string) string {
		if strings.HasPrefix(row, `<tr class="highlight"`) || !pattern.MatchString(row) {
			return row
		}
		return strings.Replace(row, "<tr", `<tr class="highlight"`, 1)
	})
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// ExtractJSON returns the JSON document in a response that may be wrapped in a code fence or
// surrounded by prose. It prefers a fenced block and otherwise takes the first balanced object
// or array.
func ExtractJSON(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		inner := strings.TrimSpace(m[1])
		if json.Valid([]byte(inner)) {
			return inner, true
		}
		text = inner
	}
	if json.Valid([]byte(text)) && (strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[")) {
		return text, true
	}

	start := strings.IndexAny(text, "{[")
	for start >= 0 {
		if end := balancedEnd(text, start); end > start {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexAny(text[start+1:], "{[")
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// balancedEnd returns the index of the bracket closing the one at start, honoring JSON strings.
func balancedEnd(text string, start int) int {
	var stack []byte
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

// DecodeJSON extracts and decodes the JSON document in text into v.
func DecodeJSON(text string, v any) error {
	raw, ok := ExtractJSON(text)
	if !ok {
		return errors.NewParseFailure("generated JSON", nil)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return errors.NewParseFailure("generated JSON", err)
	}
	return nil
}

// ProbabilityResearch is the generated probability narrative for a scenario. It is advisory;
// the locally computed estimate stays authoritative.
type ProbabilityResearch struct {
	ProbabilityPercentage float64  `json:"probability_percentage"`
	ConfidenceLevel       string   `json:"confidence_level"`
	EvidenceSummary       string   `json:"evidence_summary"`
	SupportingFactors     []string `json:"supporting_factors"`
	MitigatingFactors     []string `json:"mitigating_factors"`
	KeyNewsItems          []string `json:"key_news_items"`
}

// MaxResearchProbability caps generated probability estimates.
const MaxResearchProbability = 15.0

// FallbackProbabilityResearch is returned when the narrative cannot be parsed.
func FallbackProbabilityResearch(summary string) ProbabilityResearch {
	return ProbabilityResearch{
		ProbabilityPercentage: 3.0,
		ConfidenceLevel:       "Low",
		EvidenceSummary:       summary,
		SupportingFactors:     []string{},
		MitigatingFactors:     []string{},
		KeyNewsItems:          []string{},
	}
}

// ParseProbabilityResearch decodes a probability narrative, clamping the percentage to [0,15].
func ParseProbabilityResearch(text string) (ProbabilityResearch, error) {
	var r ProbabilityResearch
	if err := DecodeJSON(text, &r); err != nil {
		return FallbackProbabilityResearch("Unable to parse market research analysis"), err
	}
	if r.ProbabilityPercentage < 0 {
		r.ProbabilityPercentage = 0
	}
	if r.ProbabilityPercentage > MaxResearchProbability {
		r.ProbabilityPercentage = MaxResearchProbability
	}
	if r.ConfidenceLevel == "" {
		r.ConfidenceLevel = "Low"
	}
	return r, nil
}

// EvaluationLink is the supplier evaluation page link for a part.
func EvaluationLink(partNumber string) string {
	return "[Evaluate Suppliers](/supplier-evaluation.html?part=" + url.QueryEscape(partNumber) + ")"
}

var placeholderLinks = []string{
	"[Evaluate Suppliers](URL)",
	"[Evaluate Suppliers](WORKING_URL)",
	"[Evaluate Suppliers](link)",
	"[Evaluate Suppliers]()",
	"[Order Now](URL)",
	"[Order Now](link)",
	"[Order Now]()",
}

// RewriteEvaluationLinks replaces placeholder links and forces the evaluation column (the fifth
// cell of rows with at least six cells) to the evaluation page for partNumber.
func RewriteEvaluationLinks(table, partNumber string) string {
	link := EvaluationLink(partNumber)
	for _, p := range placeholderLinks {
		table = strings.ReplaceAll(table, p, link)
	}

	lines := strings.Split(table, "\n")
	for i, line := range lines {
		if !strings.Contains(line, "|") || isSeparatorRow(line) {
			continue
		}
		cells := TableCells(line)
		if len(cells) < 6 || strings.EqualFold(cells[4], "Evaluation Link") {
			continue
		}
		cells[4] = link
		lines[i] = "| " + strings.Join(cells, " | ") + " |"
	}
	return strings.Join(lines, "\n")
}

// TableCells splits a markdown table row into its non-empty trimmed cells.
func TableCells(line string) []string {
	parts := strings.Split(line, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}

func isSeparatorRow(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "|") {
		return false
	}
	return strings.Trim(trimmed, "|-: ") == ""
}

// SupplierDiscovery is the parsed find-supplier response.
type SupplierDiscovery struct {
	Description string
	Table       string
	// ManufacturerIncomplete is set when the table lacks a usable manufacturer column.
	ManufacturerIncomplete bool
}

// ManufacturerWarning is appended to descriptions whose supplier table lacks manufacturers.
const ManufacturerWarning = "Note: Manufacturer information may be incomplete. Please verify the actual manufacturer before ordering."

// ParseSupplierDiscovery splits a discovery response into description and table and rewrites the
// table's evaluation links.
func ParseSupplierDiscovery(response, partNumber string) SupplierDiscovery {
	var d SupplierDiscovery
	if before, after, ok := strings.Cut(response, "SUPPLIER TABLE:"); ok {
		d.Description = strings.TrimSpace(strings.Replace(before, "PART DESCRIPTION:", "", 1))
		d.Table = strings.TrimSpace(after)
	} else {
		d.Description = "Part description not available"
		d.Table = strings.TrimSpace(response)
	}

	if !strings.Contains(d.Table, "| Manufacturer |") ||
		strings.Contains(d.Table, "| [Manufacturer] |") ||
		strings.Contains(d.Table, "|  |") {
		d.ManufacturerIncomplete = true
		d.Description += "\n\n" + ManufacturerWarning
	}

	d.Table = RewriteEvaluationLinks(d.Table, partNumber)
	return d
}

// HTML renders the discovery as a description panel followed by the supplier table.
func (d SupplierDiscovery) HTML() string {
	return `<div class="part-description"><strong>Part Description:</strong><br>` +
		strings.ReplaceAll(html.EscapeString(d.Description), "\n", "<br>") + `</div>` +
		MarkdownToHTML(d.Table)
}

