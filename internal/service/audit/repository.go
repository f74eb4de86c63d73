package audit

import (
	"context"

	"github.com/ignite/adoptimizer/internal/domain"
	"github.com/ignite/adoptimizer/internal/segmentation"
)

// Repository defines the data access contract for audit summaries.
type Repository interface {
	// CreateAudit stores a new audit summary.
	CreateAudit(ctx context.Context, a *domain.Audit) error

	// GetAudit returns one audit owned by owner. Returns ErrNotFound if it
	// doesn't exist or belongs to someone else.
	GetAudit(ctx context.Context, owner, id string) (*domain.Audit, error)

	// ListAudits returns the owner's audits, newest first, and the total count.
	ListAudits(ctx context.Context, owner string, filter ListFilter) ([]domain.Audit, int, error)
}

// Archive stores full run results keyed by audit.
type Archive interface {
	SaveRun(ctx context.Context, owner, id string, res *segmentation.RunResult) error
	// LoadRun returns ErrNotFound when nothing is archived under id.
	LoadRun(ctx context.Context, owner, id string) (*segmentation.RunResult, error)
}

// Cache memoizes run results by content fingerprint.
type Cache interface {
	// Get returns ErrCacheMiss when the key is absent.
	Get(ctx context.Context, key string) (*segmentation.RunResult, error)
	Set(ctx context.Context, key string, res *segmentation.RunResult) error
}

// ListFilter controls pagination for audit history.
type ListFilter struct {
	Limit  int
	Offset int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Normalize clamps the filter to the supported page sizes.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
