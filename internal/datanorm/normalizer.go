package datanorm

import (
	"strconv"

	"github.com/ignite/adoptimizer/internal/segmentation"
)

// DefaultMaxRows bounds the table size handed to the engine.
const DefaultMaxRows = 50000

// Normalizer turns a parsed table into an engine dataset.
type Normalizer struct {
	synonyms Synonyms
	maxRows  int
}

// NewNormalizer creates a normalizer with the given vocabulary. maxRows <= 0
// uses DefaultMaxRows.
func NewNormalizer(synonyms Synonyms, maxRows int) *Normalizer {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Normalizer{synonyms: synonyms, maxRows: maxRows}
}

// Synonyms returns the vocabulary the normalizer matches headers against.
func (n *Normalizer) Synonyms() Synonyms { return n.synonyms }

// MaxRows returns the row ceiling.
func (n *Normalizer) MaxRows() int { return n.maxRows }

// Normalize maps columns and parses numeric cells. Blank or unparseable
// numeric cells become 0. It fails with MissingColumns when a canonical
// field has no column, InsufficientData when a canonical column holds no
// number at all, and InvalidInput when the table exceeds the row ceiling.
func (n *Normalizer) Normalize(t *Table) (segmentation.Dataset, error) {
	if t.Len() > n.maxRows {
		return nil, segmentation.InvalidInput("file has %d rows; the limit is %d", t.Len(), n.maxRows)
	}

	mapping := n.synonyms.MapColumns(t.Columns)
	if missing := mapping.Missing(); len(missing) > 0 {
		return nil, segmentation.MissingColumns(missing...)
	}

	spendIdx := mapping.Fields[FieldSpend]
	clicksIdx := mapping.Fields[FieldClicks]
	imprIdx := mapping.Fields[FieldImpressions]

	valid := make(map[CanonicalField]int, len(RequiredFields))
	ds := make(segmentation.Dataset, len(t.Rows))
	for i, row := range t.Rows {
		rec := segmentation.AdRecord{AdID: strconv.Itoa(i)}
		if mapping.AdIDIdx >= 0 && row[mapping.AdIDIdx] != "" {
			rec.AdID = row[mapping.AdIDIdx]
		}

		var ok bool
		if rec.Spend, ok = ParseNumber(row[spendIdx]); ok {
			valid[FieldSpend]++
		}
		if rec.Clicks, ok = ParseNumber(row[clicksIdx]); ok {
			valid[FieldClicks]++
		}
		if rec.Impressions, ok = ParseNumber(row[imprIdx]); ok {
			valid[FieldImpressions]++
		}

		for c, val := range row {
			if mapping.IsMapped(c) {
				continue
			}
			rec.Passthrough = append(rec.Passthrough, segmentation.Cell{Column: t.Columns[c], Value: val})
		}
		ds[i] = rec
	}

	if len(ds) > 0 {
		for _, f := range RequiredFields {
			if valid[f] == 0 {
				return nil, segmentation.InsufficientData("column %s has no numeric values", f)
			}
		}
	}
	return ds, nil
}
