package segmentation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Status is the action category attached to a segment.
type Status string

const (
	StatusScalable Status = "Scalable"
	StatusRisky    Status = "Risky"
	StatusNeutral  Status = "Neutral"
)

// Cell is one passthrough source column value carried alongside a record.
type Cell struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// AdRecord is one advertisement row. Spend, Clicks and Impressions come from
// the normalized source columns; CTR, CPC and AdGroup are filled by the engine.
type AdRecord struct {
	AdID        string
	Spend       float64
	Clicks      float64
	Impressions float64

	CTR     float64
	CPC     float64
	AdGroup int

	// Vendor columns that did not map to a canonical field, in source order.
	Passthrough []Cell
}

// canonicalKeys are the JSON keys written after the passthrough columns.
var canonicalKeys = []string{"ad_id", "Spend", "Clicks", "Impressions", "CTR", "CPC", "ad_group"}

func isCanonicalKey(k string) bool {
	for _, c := range canonicalKeys {
		if c == k {
			return true
		}
	}
	return false
}

// MarshalJSON flattens the record into a single object: the passthrough
// columns in source order, then the canonical and derived fields. A
// passthrough column named like a canonical key is shadowed by it.
func (r AdRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(k string, v any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("field %s: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}

	for _, c := range r.Passthrough {
		if isCanonicalKey(c.Column) {
			continue
		}
		if err := write(c.Column, c.Value); err != nil {
			return nil, err
		}
	}
	values := []any{r.AdID, r.Spend, r.Clicks, r.Impressions, r.CTR, r.CPC, r.AdGroup}
	for i, k := range canonicalKeys {
		if err := write(k, values[i]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON is the inverse of MarshalJSON. Non-canonical keys come back
// as passthrough cells in the order they appear in the object.
func (r *AdRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("ad record: expected object, got %v", tok)
	}

	*r = AdRecord{}
	targets := map[string]any{
		"ad_id":       &r.AdID,
		"Spend":       &r.Spend,
		"Clicks":      &r.Clicks,
		"Impressions": &r.Impressions,
		"CTR":         &r.CTR,
		"CPC":         &r.CPC,
		"ad_group":    &r.AdGroup,
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		k, ok := tok.(string)
		if !ok {
			return fmt.Errorf("ad record: unexpected key %v", tok)
		}
		if dst, ok := targets[k]; ok {
			if err := dec.Decode(dst); err != nil {
				return fmt.Errorf("field %s: %w", k, err)
			}
			continue
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			v = string(raw)
		}
		r.Passthrough = append(r.Passthrough, Cell{Column: k, Value: v})
	}
	_, err = dec.Token()
	return err
}

// Dataset is the ordered input to the engine.
type Dataset []AdRecord

// SegmentInsight summarises one cluster.
type SegmentInsight struct {
	CPC            float64 `json:"CPC"`
	CTR            float64 `json:"CTR"`
	Spend          float64 `json:"Spend"`
	Size           int     `json:"size"`
	Label          string  `json:"label"`
	Status         Status  `json:"status"`
	Recommendation string  `json:"recommendation"`
}

// RunResult is the output of one Segment call. It is owned by the caller.
type RunResult struct {
	ModelAccuracyScore float64                `json:"model_accuracy_score"`
	GroupInsights      map[int]SegmentInsight `json:"group_insights"`
	DetailedResults    []AdRecord             `json:"detailed_results"`

	// RiskyGroups is the sorted set of ad_group ids whose status is Risky.
	// Savings and risky-ad reporting both read from it.
	RiskyGroups      []int   `json:"risky_groups"`
	TotalSpend       float64 `json:"total_spend"`
	PotentialSavings float64 `json:"potential_savings"`
}

// IsRisky reports whether group belongs to RiskyGroups.
func (r *RunResult) IsRisky(group int) bool {
	i := sort.SearchInts(r.RiskyGroups, group)
	return i < len(r.RiskyGroups) && r.RiskyGroups[i] == group
}
