package graph

import (
	"math"

	"ideagraph/semnet/internal/network"
)

// CohesionBreakdown shows the sub-scores of the cohesion formula
type CohesionBreakdown struct {
	Connectivity float64 `json:"connectivity"`
	Components   float64 `json:"components"`
	Strength     float64 `json:"strength"`
	Fragility    float64 `json:"fragility"`
}

// AnalysisReport is the full analysis of one built network
type AnalysisReport struct {
	Cohesion          float64           `json:"cohesion"`
	CohesionBreakdown CohesionBreakdown `json:"cohesion_breakdown"`
	Topology          *TopologyReport   `json:"topology"`
	Bridges           *BridgeReport     `json:"bridges"`
}

// AnalyzerConfig holds analysis parameters
type AnalyzerConfig struct {
	HubThreshold int
	TopN         int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		HubThreshold: 4,
		TopN:         20,
	}
}

// Analyze runs all analyses and computes a composite cohesion score in [0,1].
// A network where every node is reachable, similarity is high and no single
// node or edge holds it together scores 1.
func Analyze(snap *Snapshot, config *AnalyzerConfig) *AnalysisReport {
	topology := ComputeTopology(snap, config.HubThreshold, config.TopN)
	bridges := ComputeBridges(snap)

	total := float64(topology.TotalNodes)

	var connectivity, components, strength, fragility float64
	if total > 0 {
		connectivity = clamp(1.0-math.Min(float64(topology.OrphanCount)/total, 0.2)*5.0, 0, 1)
		fragility = clamp(1.0-math.Min(float64(bridges.APCount)/total, 0.25)*4.0, 0, 1)
	}
	if topology.NumComponents > 0 {
		components = clamp(1.0/float64(topology.NumComponents), 0, 1)
	}
	strength = meanSimilarityWeight(snap)

	cohesion := 0.30*connectivity + 0.20*components + 0.30*strength + 0.20*fragility

	return &AnalysisReport{
		Cohesion: cohesion,
		CohesionBreakdown: CohesionBreakdown{
			Connectivity: connectivity,
			Components:   components,
			Strength:     strength,
			Fragility:    fragility,
		},
		Topology: topology,
		Bridges:  bridges,
	}
}

func meanSimilarityWeight(snap *Snapshot) float64 {
	var sum float64
	var n int
	for _, e := range snap.Edges {
		if e.Kind == network.EdgeSimilarity {
			sum += e.Weight
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return clamp(sum/float64(n), 0, 1)
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
