// Package suppliers ranks candidate distributors for a part. Candidates come from explicit selection
// and from discovery; scores come from generation when it succeeds and from a seeded deterministic
// model when it does not.
package suppliers

import (
	"hash/fnv"
	"math"
	"math/rand"
	"net/url"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/classify"
)

const (
	DefaultMinCount = 5
	DefaultMaxCount = 8

	MinScore = 70
	MaxScore = 95
)

// Score is one supplier's row in a comparison.
type Score struct {
	Name           string `json:"name"`
	Manufacturer   string `json:"manufacturer"`
	CostScore      int    `json:"costScore"`
	DeliveryScore  int    `json:"deliveryScore"`
	QualityScore   int    `json:"qualityScore"`
	Availability   string `json:"availability"`
	OverallScore   int    `json:"overallScore"`
	Recommended    bool   `json:"recommended"`
	Specialization string `json:"specialization"`
	OrderLink      string `json:"orderLink,omitempty"`
}

// Ranking is the outcome of Rank.
type Ranking struct {
	Comparison    []Score
	ResearchAdded []string
	Profile       classify.PartProfile
}

// Ranker owns the supplier tables and the part classifier used to pick backfill suppliers.
type Ranker struct {
	tables     Tables
	profiles   map[string]Profile
	classifier *classify.Classifier
}

// NewRanker builds a Ranker from tables and a classifier. A nil classifier uses classify.Default.
func NewRanker(t Tables, c *classify.Classifier) *Ranker {
	if c == nil {
		c = classify.Default()
	}
	profiles := make(map[string]Profile, len(t.Profiles))
	for _, p := range t.Profiles {
		profiles[normalize(p.Name)] = p
	}
	return &Ranker{tables: t, profiles: profiles, classifier: c}
}

// DefaultRanker uses the embedded tables.
func DefaultRanker() *Ranker {
	return NewRanker(DefaultTables(), nil)
}

// Predetermined lists the suppliers offered for explicit selection.
func (r *Ranker) Predetermined() []string {
	return append([]string(nil), r.tables.Predetermined...)
}

// ProfilePart classifies part with the ranker's classifier.
func (r *Ranker) ProfilePart(part string) classify.PartProfile {
	return r.classifier.ProfilePart(part)
}

// URLFor returns the supplier's search URL for part. Unknown suppliers fall back to a generic search.
func (r *Ranker) URLFor(supplier, part string) string {
	name := normalize(supplier)
	escaped := url.PathEscape(strings.TrimSpace(part))
	for _, p := range r.tables.URLPatterns {
		if p.Match != "" && strings.Contains(name, p.Match) {
			return strings.ReplaceAll(p.URL, "{part}", escaped)
		}
	}
	return strings.ReplaceAll(r.tables.FallbackURL, "{part}", escaped)
}

// BackfillFor returns the suppliers recommended for a component type.
func (r *Ranker) BackfillFor(componentType string) []string {
	lower := strings.ToLower(componentType)
	for _, b := range r.tables.Backfill {
		if b.Keyword != "" && strings.Contains(lower, b.Keyword) {
			return b.Suppliers
		}
	}
	return r.tables.DefaultBackfill
}

// Candidates dedups names by case-insensitive match keeping first-seen order, then backfills from the
// component-type table until minCount is reached or the table runs out. It returns the candidate list
// and the names that were backfilled.
func (r *Ranker) Candidates(names []string, profile classify.PartProfile, minCount int) ([]string, []string) {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, max(len(names), minCount))
	add := func(name string) bool {
		name = strings.TrimSpace(name)
		key := normalize(name)
		if key == "" {
			return false
		}
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		out = append(out, name)
		return true
	}

	for _, n := range names {
		add(n)
	}

	var added []string
	for _, n := range r.BackfillFor(profile.Type) {
		if len(out) >= minCount {
			break
		}
		if add(n) {
			added = append(added, strings.TrimSpace(n))
		}
	}
	return out, added
}

// profileFor returns the base profile for a supplier, falling back to the generic profile.
func (r *Ranker) profileFor(name string) Profile {
	if p, ok := r.profiles[normalize(name)]; ok {
		return p
	}
	p := r.tables.GenericProfile
	p.Name = name
	return p
}

// FallbackScores scores candidates from their base profiles with jitter seeded by the part number, so
// the same part always yields the same scores.
func (r *Ranker) FallbackScores(names []string, part string, profile classify.PartProfile) []Score {
	rng := rand.New(rand.NewSource(seedFor(part)))
	complexity := r.tables.ComplexityPenalty[profile.Complexity]
	sourcing := r.tables.SourcingPenalty[profile.SourcingDifficulty]

	scores := make([]Score, 0, len(names))
	for i, name := range names {
		base := r.profileFor(name)
		cost := clampScore(base.Cost + jitter(rng, 5) - complexity)
		delivery := clampScore(base.Delivery + jitter(rng, 4) - sourcing)
		quality := clampScore(base.Quality + jitter(rng, 3))
		scores = append(scores, Score{
			Name:           name,
			Manufacturer:   profile.Manufacturer,
			CostScore:      cost,
			DeliveryScore:  delivery,
			QualityScore:   quality,
			Availability:   r.availability(i),
			OverallScore:   overall(cost, delivery, quality),
			Specialization: base.Specialty,
		})
	}
	return scores
}

func (r *Ranker) availability(i int) string {
	if len(r.tables.AvailabilityCycle) == 0 {
		return "In Stock"
	}
	return r.tables.AvailabilityCycle[i%len(r.tables.AvailabilityCycle)]
}

// Rank is the deterministic path: dedup and backfill candidates, score them with the fallback model,
// then order and truncate.
func (r *Ranker) Rank(candidates []string, part string, minCount, maxCount int) Ranking {
	profile := r.classifier.ProfilePart(part)
	names, added := r.Candidates(candidates, profile, minCount)
	scores := r.FallbackScores(names, part, profile)
	return Ranking{
		Comparison:    Finalize(scores, maxCount),
		ResearchAdded: added,
		Profile:       profile,
	}
}

// Finalize sorts scores by overall score, highest first with ties kept in input order, truncates to
// maxCount and marks only the first entry recommended.
func Finalize(scores []Score, maxCount int) []Score {
	out := append([]Score(nil), scores...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OverallScore > out[j].OverallScore
	})
	if maxCount > 0 && len(out) > maxCount {
		out = out[:maxCount]
	}
	for i := range out {
		out[i].Recommended = i == 0
	}
	return out
}

func seedFor(part string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToUpper(strings.TrimSpace(part))))
	return int64(h.Sum32() % 1000)
}

// jitter returns a uniform integer in [-n, n].
func jitter(rng *rand.Rand, n int) int {
	return rng.Intn(2*n+1) - n
}

func clampScore(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

func overall(cost, delivery, quality int) int {
	return int(math.Round(float64(cost+delivery+quality) / 3))
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
