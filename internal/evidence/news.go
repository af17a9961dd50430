package evidence

import (
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/classify"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/types"
)

// Relevance filter parameters.
const (
	MinSignificantMatches = 2
	MaxRelevantNews       = 5
	MaxSearchTerms        = 10
)

// FilterDisruptions keeps headlines mentioning a disruption keyword, tagged with their disruption
// category, at most MaxDisruptionNews.
func (a *Aggregator) FilterDisruptions(items []types.Headline) []types.Headline {
	out := make([]types.Headline, 0)
	for _, item := range items {
		if !classify.ContainsKeyword(item.Title, a.tables.DisruptionKeywords) {
			continue
		}
		item.Category = a.classifier.DisruptionType(item.Title)
		out = append(out, item)
		if len(out) == MaxDisruptionNews {
			break
		}
	}
	return out
}

// ExtractEntities returns the known supplier, component and disruption keywords found in text.
func (a *Aggregator) ExtractEntities(text string) []string {
	out := []string{}
	groups := [][]string{a.tables.EntityKeywords.Suppliers, a.tables.EntityKeywords.Components, a.tables.EntityKeywords.Disruptions}
	for _, group := range groups {
		for _, kw := range group {
			if classify.ContainsKeyword(text, []string{kw}) {
				out = append(out, kw)
			}
		}
	}
	return out
}

// SearchTerms builds the headline queries for a scenario: the description, its title before a colon,
// entity pairs and triples, notable affected-component words and root causes. At most
// MaxSearchTerms unique terms are returned.
func (a *Aggregator) SearchTerms(scenario, affected string, entities []string) []string {
	terms := make([]string, 0)
	if scenario != "" {
		terms = append(terms, scenario)
		if idx := strings.Index(scenario, ":"); idx > 0 {
			terms = append(terms, scenario[:idx])
		}
	}

	for i := range entities {
		for j := i + 1; j < len(entities) && j < i+4; j++ {
			switch j {
			case i + 1:
				terms = append(terms, entities[i]+" "+entities[j])
			case i + 2:
				terms = append(terms, entities[i]+" "+entities[j])
				terms = append(terms, entities[i]+" "+entities[i+1]+" "+entities[j])
			}
		}
	}

	if affected != "" {
		terms = append(terms, affected)
		for _, w := range strings.Fields(strings.ToLower(affected)) {
			w = strings.Trim(w, ".,;:()")
			if len(w) > 5 && w != "components" && w != "affected" {
				terms = append(terms, w+" supply chain")
			}
		}
	}

	lower := strings.ToLower(scenario)
	for _, cause := range a.tables.RootCauses {
		if strings.Contains(lower, cause) {
			terms = append(terms, cause+" supply chain disruption")
		}
	}

	out := make([]string, 0, MaxSearchTerms)
	seen := make(map[string]bool)
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == MaxSearchTerms {
			break
		}
	}
	return out
}

// RelevantNews keeps only supplied headlines whose titles share at least MinSignificantMatches
// significant terms with the scenario. Results are deduplicated by URL, ordered by relevance and
// capped at MaxRelevantNews. Items are never synthesized.
func (a *Aggregator) RelevantNews(items []types.Headline, scenario string, entities []string) []types.Headline {
	significant := a.significantTerms(scenario, 5)
	if len(significant) < MinSignificantMatches {
		return []types.Headline{}
	}

	type scored struct {
		item  types.Headline
		score int
	}

	boostTerms := a.significantTerms(scenario, 4)
	seen := make(map[string]bool)
	kept := make([]scored, 0)

	for _, item := range items {
		if item.URL == "" || seen[item.URL] {
			continue
		}
		title := strings.ToLower(item.Title)
		if countMatches(title, significant) < MinSignificantMatches {
			continue
		}
		seen[item.URL] = true

		score := countMatches(title, boostTerms)
		for _, e := range entities {
			if strings.Contains(title, strings.ToLower(e)) {
				score += 2
			}
		}
		kept = append(kept, scored{item: item, score: score})
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })

	out := make([]types.Headline, 0, MaxRelevantNews)
	for _, k := range head(kept, MaxRelevantNews) {
		out = append(out, k.item)
	}
	return out
}

// EventGroup is a set of headlines that appear to report the same event.
type EventGroup struct {
	Key   string           `json:"key"`
	Items []types.Headline `json:"items"`
}

// CrossReference groups headlines by their first four title words longer than four characters.
// Groups keep first-seen order.
func CrossReference(items []types.Headline) []EventGroup {
	groups := make([]EventGroup, 0)
	index := make(map[string]int)

	for _, item := range items {
		key := eventKey(item.Title)
		if i, ok := index[key]; ok {
			groups[i].Items = append(groups[i].Items, item)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, EventGroup{Key: key, Items: []types.Headline{item}})
	}
	return groups
}

func eventKey(title string) string {
	lower := strings.ToLower(title)
	words := make([]string, 0, 4)
	for _, w := range strings.Fields(lower) {
		if len(w) > 4 {
			words = append(words, w)
			if len(words) == 4 {
				break
			}
		}
	}
	if len(words) == 0 {
		if len(lower) > 50 {
			return lower[:50]
		}
		return lower
	}
	return strings.Join(words, " ")
}

func (a *Aggregator) significantTerms(text string, minLen int) []string {
	stop := make(map[string]bool, len(a.tables.StopWords))
	for _, w := range a.tables.StopWords {
		stop[w] = true
	}

	out := make([]string, 0)
	seen := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()[]{}")
		if len(w) <= minLen || stop[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

func countMatches(title string, terms []string) int {
	n := 0
	for _, t := range terms {
		if strings.Contains(title, t) {
			n++
		}
	}
	return n
}
