package datanorm

import "strings"

// CanonicalField is a normalized field name the engine depends on.
type CanonicalField string

const (
	FieldSpend       CanonicalField = "Spend"
	FieldClicks      CanonicalField = "Clicks"
	FieldImpressions CanonicalField = "Impressions"
)

// RequiredFields lists the canonical fields in resolution order.
var RequiredFields = []CanonicalField{FieldSpend, FieldClicks, FieldImpressions}

// Synonyms is the column vocabulary. Matching is case-insensitive and a
// synonym matches a header either exactly or as a substring, so "cost"
// also claims headers like "cost_per_click". The permissive match is kept
// on purpose; tighten the vocabulary rather than the matcher.
type Synonyms struct {
	Spend       []string `yaml:"spend"`
	Clicks      []string `yaml:"clicks"`
	Impressions []string `yaml:"impressions"`
	AdID        []string `yaml:"ad_id"`
}

// DefaultSynonyms returns the vocabulary used for the common ad platforms.
func DefaultSynonyms() Synonyms {
	return Synonyms{
		Spend:       []string{"spend", "cost", "amount"},
		Clicks:      []string{"clicks", "link_clicks", "click"},
		Impressions: []string{"impressions", "impr", "reach"},
		AdID:        []string{"ad_id", "ad id", "adid"},
	}
}

func (s Synonyms) forField(f CanonicalField) []string {
	switch f {
	case FieldSpend:
		return s.Spend
	case FieldClicks:
		return s.Clicks
	case FieldImpressions:
		return s.Impressions
	}
	return nil
}

// ColumnMapping is the resolved header layout of a table.
type ColumnMapping struct {
	Fields   map[CanonicalField]int // canonical field -> column index
	AdIDIdx  int                    // -1 when absent
	RawNames []string
}

// Missing returns the canonical fields with no column, in resolution order.
func (m *ColumnMapping) Missing() []string {
	var out []string
	for _, f := range RequiredFields {
		if _, ok := m.Fields[f]; !ok {
			out = append(out, string(f))
		}
	}
	return out
}

// IsMapped reports whether column i feeds a canonical field or ad_id.
func (m *ColumnMapping) IsMapped(i int) bool {
	if i == m.AdIDIdx {
		return true
	}
	for _, idx := range m.Fields {
		if idx == i {
			return true
		}
	}
	return false
}

// MapColumns resolves header names against the vocabulary. Each column takes
// the first canonical field whose synonyms match it. When several columns
// resolve to the same field the later column wins and the earlier ones stay
// passthrough.
func (s Synonyms) MapColumns(header []string) *ColumnMapping {
	m := &ColumnMapping{
		Fields:   make(map[CanonicalField]int, len(RequiredFields)),
		AdIDIdx:  -1,
		RawNames: header,
	}

	for i, h := range header {
		normalized := normalizeHeader(h)
		if normalized == "" {
			continue
		}
		if m.AdIDIdx < 0 && matchesExact(normalized, s.AdID) {
			m.AdIDIdx = i
			continue
		}
		for _, f := range RequiredFields {
			if matchesAny(normalized, s.forField(f)) {
				m.Fields[f] = i
				break
			}
		}
	}
	return m
}

func normalizeHeader(h string) string {
	normalized := strings.ToLower(strings.TrimSpace(h))
	return strings.Trim(normalized, "\"'")
}

func matchesAny(header string, synonyms []string) bool {
	for _, syn := range synonyms {
		syn = strings.ToLower(syn)
		if header == syn || strings.Contains(header, syn) {
			return true
		}
	}
	return false
}

func matchesExact(header string, synonyms []string) bool {
	for _, syn := range synonyms {
		if header == strings.ToLower(syn) {
			return true
		}
	}
	return false
}
