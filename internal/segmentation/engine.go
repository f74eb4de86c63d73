// Package segmentation groups ads into performance segments and attaches a
// recommendation to each segment.
package segmentation

import (
	"errors"

	"github.com/ignite/adoptimizer/internal/cluster"
)

// Engine runs the derive → cluster → label → save pipeline. It holds only
// immutable configuration and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// New creates an engine. Zero fields in cfg take their defaults.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Segment clusters ds and returns the full result. The input slice is not
// modified; DetailedResults holds augmented copies in input order.
func (e *Engine) Segment(ds Dataset) (*RunResult, error) {
	k := e.cfg.ClusterCount
	if len(ds) < k {
		return nil, InsufficientData("need at least %d rows for %d segments, got %d", k, k, len(ds))
	}

	rows := make(Dataset, len(ds))
	copy(rows, ds)
	DeriveFeatures(rows)

	features := FeatureMatrix(rows)
	model, err := cluster.KMeans(features, e.cfg.clusterOptions())
	if err != nil {
		return nil, clusterError(err, k)
	}
	for i := range rows {
		rows[i].AdGroup = model.Labels[i]
	}

	insights := e.cfg.Label(rows)
	risky := RiskyGroups(insights)

	return &RunResult{
		ModelAccuracyScore: cluster.Silhouette(features, model.Labels),
		GroupInsights:      insights,
		DetailedResults:    rows,
		RiskyGroups:        risky,
		TotalSpend:         TotalSpend(rows),
		PotentialSavings:   EstimateSavings(rows, risky),
	}, nil
}

func clusterError(err error, k int) error {
	switch {
	case errors.Is(err, cluster.ErrTooFewPoints), errors.Is(err, cluster.ErrTooFewDistinct):
		return InsufficientData("cannot form %d distinct segments: %v", k, err)
	case errors.Is(err, cluster.ErrNonFinite):
		return InsufficientData("no valid numeric data after cleaning: %v", err)
	default:
		return err
	}
}
