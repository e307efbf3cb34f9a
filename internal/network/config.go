package network

import (
	"fmt"
	"time"
)

// MaxSupportedDepth is the hard upper bound on expansion depth.
const MaxSupportedDepth = 3

// Config holds the engine parameters shared by every build.
type Config struct {
	Thresholds       []float64     // descending tier lower bounds
	MaxDepth         int           // largest depth a request may ask for
	Neighbors        int           // K, neighbours requested per frontier object
	ObjectTypes      []string      // optional type filter; empty queries all types
	QueryTimeout     time.Duration // per SimilaritySource call
	SummaryTimeout   time.Duration // per SummarySource call
	HierarchyTimeout time.Duration // per HierarchySource call
	Concurrency      int           // parallel queries within one tier
	HierarchyWeight  float64       // nominal weight of hierarchy edges
}

// DefaultConfig returns the stock thresholds [0.8, 0.7, 0.6], K=5, depth 3.
func DefaultConfig() Config {
	return Config{
		Thresholds:       []float64{0.8, 0.7, 0.6},
		MaxDepth:         MaxSupportedDepth,
		Neighbors:        5,
		QueryTimeout:     10 * time.Second,
		SummaryTimeout:   30 * time.Second,
		HierarchyTimeout: 5 * time.Second,
		Concurrency:      4,
		HierarchyWeight:  1.0,
	}
}

// Validate rejects configurations that cannot produce a bounded build.
func (c Config) Validate() error {
	if _, err := NewLevelClassifier(c.Thresholds); err != nil {
		return err
	}
	if c.MaxDepth < 1 || c.MaxDepth > MaxSupportedDepth {
		return fmt.Errorf("%w: max depth %d outside [1,%d]", ErrConfiguration, c.MaxDepth, MaxSupportedDepth)
	}
	if c.Neighbors < 1 {
		return fmt.Errorf("%w: neighbours per step must be at least 1, got %d", ErrConfiguration, c.Neighbors)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrConfiguration, c.Concurrency)
	}
	if c.QueryTimeout <= 0 || c.SummaryTimeout <= 0 || c.HierarchyTimeout <= 0 {
		return fmt.Errorf("%w: collaborator timeouts must be positive", ErrConfiguration)
	}
	if c.HierarchyWeight <= 0 || c.HierarchyWeight > 1 {
		return fmt.Errorf("%w: hierarchy weight %v outside (0,1]", ErrConfiguration, c.HierarchyWeight)
	}
	return nil
}

// Request is one buildNetwork call.
type Request struct {
	Seed              ObjectRef
	Depth             int
	GenerateSummaries bool
	IncludeHierarchy  bool
}

func (c Config) validateRequest(req Request) error {
	if req.Seed.ID == "" || req.Seed.Type == "" {
		return fmt.Errorf("%w: seed type and id are required", ErrConfiguration)
	}
	if req.Depth < 1 || req.Depth > c.MaxDepth {
		return fmt.Errorf("%w: depth %d outside [1,%d]", ErrConfiguration, req.Depth, c.MaxDepth)
	}
	return nil
}
