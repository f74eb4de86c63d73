package domain

import (
	"errors"
	"strings"
	"time"
)

// AnonymousOwner is recorded when an upload carries no identity.
const AnonymousOwner = "anonymous"

// Audit is the persisted summary of one analysed upload.
type Audit struct {
	ID               string    `json:"id" db:"id"`
	Filename         string    `json:"filename" db:"filename"`
	Owner            string    `json:"owner" db:"owner"`
	TotalSpend       float64   `json:"total_spend" db:"total_spend"`
	PotentialSavings float64   `json:"potential_savings" db:"potential_savings"`
	Confidence       float64   `json:"confidence" db:"confidence"`
	AdsAnalyzed      int       `json:"ads_analyzed" db:"ads_analyzed"`
	ContentHash      string    `json:"content_hash" db:"content_hash"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// Validate checks the invariants every stored audit must hold.
func (a *Audit) Validate() error {
	if strings.TrimSpace(a.Filename) == "" {
		return errors.New("filename is required")
	}
	if strings.TrimSpace(a.Owner) == "" {
		return errors.New("owner is required")
	}
	if a.TotalSpend < 0 || a.PotentialSavings < 0 {
		return errors.New("spend figures must be non-negative")
	}
	if a.PotentialSavings > a.TotalSpend {
		return errors.New("potential savings exceed total spend")
	}
	return nil
}

// NormalizeOwner trims an identity and falls back to AnonymousOwner.
func NormalizeOwner(owner string) string {
	owner = strings.ToLower(strings.TrimSpace(owner))
	if owner == "" {
		return AnonymousOwner
	}
	return owner
}
