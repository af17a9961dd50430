package types

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// FlexText accepts a JSON string, number, array or object and keeps its text form. BOM and KPI
// payloads arrive either as CSV text or as already-parsed arrays of objects.
type FlexText string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexText) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexText(s)
		return nil
	}
	*f = FlexText(trimmed)
	return nil
}

// String returns the trimmed text.
func (f FlexText) String() string {
	return strings.TrimSpace(string(f))
}

// Headline is a news item supplied by the headline collaborator. Its contents are opaque to scoring.
type Headline struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
	Category    string    `json:"category,omitempty"`
}

// PublishedDate formats the publication date, or "Unknown" when absent.
func (h Headline) PublishedDate() string {
	if h.PublishedAt.IsZero() {
		return "Unknown"
	}
	return h.PublishedAt.Format("2006-01-02")
}

// MarketIndicators holds named market values and the status of each data source.
type MarketIndicators struct {
	Values  map[string]float64 `json:"values"`
	Status  map[string]string  `json:"status"`
	Updated time.Time          `json:"updated"`
}

// Empty reports whether no indicator values are present.
func (m MarketIndicators) Empty() bool {
	return len(m.Values) == 0
}
