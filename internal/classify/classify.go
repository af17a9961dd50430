// Package classify maps free-text part descriptions, news titles and part numbers onto the fixed
// categories used by risk scoring. All dispatch is table driven and deterministic.
package classify

import (
	"strings"
	"unicode"
)

// Level is a qualitative supply-risk level.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// ConcentrationThreshold is the row count above which a category's risk is escalated.
const ConcentrationThreshold = 5

// Escalate raises the level by one step. High stays High.
func (l Level) Escalate() Level {
	switch l {
	case LevelLow:
		return LevelMedium
	case LevelMedium, LevelHigh:
		return LevelHigh
	default:
		return l
	}
}

// Classifier holds read-only tables and is safe for concurrent use.
type Classifier struct {
	tables   Tables
	byName   map[string]Category
	ordering []string
}

// New builds a classifier over the given tables.
func New(t Tables) *Classifier {
	c := &Classifier{tables: t, byName: make(map[string]Category, len(t.Categories)+1)}
	for _, cat := range t.Categories {
		c.byName[cat.Name] = cat
		c.ordering = append(c.ordering, cat.Name)
	}
	c.byName[t.Other.Name] = t.Other
	c.ordering = append(c.ordering, t.Other.Name)
	return c
}

// Default returns a classifier over the embedded tables.
func Default() *Classifier {
	return New(DefaultTables())
}

// Categories lists category names in priority order, with the fallback category last.
func (c *Classifier) Categories() []string {
	out := make([]string, len(c.ordering))
	copy(out, c.ordering)
	return out
}

// Classify returns the first category whose keywords appear in description.
func (c *Classifier) Classify(description string) string {
	text, words := prepare(description)
	for _, cat := range c.tables.Categories {
		if matchesAny(text, words, cat.Keywords) {
			return cat.Name
		}
	}
	return c.tables.Other.Name
}

// RiskLevel returns the base risk for category, escalated once when rowCount exceeds the
// concentration threshold. Unknown categories are Medium.
func (c *Classifier) RiskLevel(category string, rowCount int) Level {
	level := LevelMedium
	if cat, ok := c.byName[category]; ok && cat.Risk != "" {
		level = cat.Risk
	}
	if rowCount > ConcentrationThreshold {
		level = level.Escalate()
	}
	return level
}

// LeadTimeExpectation returns the typical lead-time range for a category.
func (c *Classifier) LeadTimeExpectation(category string) string {
	if cat, ok := c.byName[category]; ok && cat.LeadTime != "" {
		return cat.LeadTime
	}
	return c.tables.Other.LeadTime
}

// DisruptionType labels a headline or scenario text with a disruption category.
func (c *Classifier) DisruptionType(text string) string {
	lower, words := prepare(text)
	for _, rule := range c.tables.DisruptionTypes {
		if matchesAny(lower, words, rule.Keywords) {
			return rule.Name
		}
	}
	return c.tables.DefaultDisruption
}

// ProfilePart returns the sourcing profile for a part number.
func (c *Classifier) ProfilePart(partNumber string) PartProfile {
	upper := strings.ToUpper(strings.TrimSpace(partNumber))
	if upper != "" {
		for _, p := range c.tables.PartProfiles {
			for _, prefix := range p.Prefixes {
				if strings.HasPrefix(upper, strings.ToUpper(prefix)) {
					return p
				}
			}
			for _, sub := range p.Contains {
				if strings.Contains(upper, strings.ToUpper(sub)) {
					return p
				}
			}
		}
	}
	return c.tables.DefaultProfile
}

func prepare(text string) (string, map[string]struct{}) {
	lower := strings.ToLower(text)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		words[f] = struct{}{}
	}
	return lower, words
}

func matchesAny(lower string, words map[string]struct{}, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if len(kw) <= 3 {
			if _, ok := words[kw]; ok {
				return true
			}
			continue
		}
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ContainsKeyword reports whether text contains any keyword, using the same whole-word rule for
// short keywords as the classifier.
func ContainsKeyword(text string, keywords []string) bool {
	lower, words := prepare(text)
	return matchesAny(lower, words, keywords)
}
