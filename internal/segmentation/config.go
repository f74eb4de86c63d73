package segmentation

import "github.com/ignite/adoptimizer/internal/cluster"

// Class is the label, status and recommendation assigned to a segment.
type Class struct {
	Label          string `yaml:"label"`
	Status         Status `yaml:"status"`
	Recommendation string `yaml:"recommendation"`
}

// Config is the immutable engine configuration. Build it once and pass it to
// New; the engine never mutates it.
type Config struct {
	ClusterCount  int     `yaml:"cluster_count"`
	Seed          *uint64 `yaml:"seed"` // nil means the default seed; 0 is a valid seed
	Restarts      int     `yaml:"restarts"`
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`

	// A segment is Risky when its mean CPC is strictly above the global mean
	// times this multiplier.
	RiskyCPCMultiplier float64 `yaml:"risky_cpc_multiplier"`

	TopPerformers Class `yaml:"top_performers"`
	MoneyPits     Class `yaml:"money_pits"`
	Stable        Class `yaml:"stable"`
}

// DefaultConfig returns the production settings: three clusters, seed 42,
// ten restarts and a 20% CPC margin.
func DefaultConfig() Config {
	opts := cluster.DefaultOptions()
	return Config{
		ClusterCount:       opts.K,
		Seed:               &opts.Seed,
		Restarts:           opts.Restarts,
		MaxIterations:      opts.MaxIterations,
		Tolerance:          opts.Tolerance,
		RiskyCPCMultiplier: 1.2,
		TopPerformers: Class{
			Label:          "Top Performers",
			Status:         StatusScalable,
			Recommendation: "Increase budget - these ads are efficient.",
		},
		MoneyPits: Class{
			Label:          "Money Pits",
			Status:         StatusRisky,
			Recommendation: "Pause or redesign - costs are significantly above average.",
		},
		Stable: Class{
			Label:          "Stable / Learning",
			Status:         StatusNeutral,
			Recommendation: "Maintain and monitor.",
		},
	}
}

// withDefaults fills zero-valued fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ClusterCount <= 0 {
		c.ClusterCount = d.ClusterCount
	}
	if c.Seed == nil {
		c.Seed = d.Seed
	}
	if c.Restarts <= 0 {
		c.Restarts = d.Restarts
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.Tolerance <= 0 {
		c.Tolerance = d.Tolerance
	}
	if c.RiskyCPCMultiplier <= 0 {
		c.RiskyCPCMultiplier = d.RiskyCPCMultiplier
	}
	if c.TopPerformers.Label == "" {
		c.TopPerformers = d.TopPerformers
	}
	if c.MoneyPits.Label == "" {
		c.MoneyPits = d.MoneyPits
	}
	if c.Stable.Label == "" {
		c.Stable = d.Stable
	}
	return c
}

func (c Config) clusterOptions() cluster.Options {
	return cluster.Options{
		K:             c.ClusterCount,
		Seed:          *c.Seed,
		Restarts:      c.Restarts,
		MaxIterations: c.MaxIterations,
		Tolerance:     c.Tolerance,
	}
}
