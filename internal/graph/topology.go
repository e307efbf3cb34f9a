package graph

import (
	"sort"

	"ideagraph/semnet/internal/network"
)

// HubNode is a node with high connectivity
type HubNode struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Level  int    `json:"level"`
	Degree int    `json:"degree"`
}

// DegreeBucket is one bucket in the degree histogram
type DegreeBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TierStats describes the nodes and edges of one similarity tier.
type TierStats struct {
	Level          int     `json:"level"`
	Nodes          int     `json:"nodes"`
	MeanSimilarity float64 `json:"mean_similarity"`
	MinSimilarity  float64 `json:"min_similarity"`
}

// TopologyReport contains topology analysis results
type TopologyReport struct {
	TotalNodes        int            `json:"total_nodes"`
	SimilarityEdges   int            `json:"similarity_edges"`
	HierarchyEdges    int            `json:"hierarchy_edges"`
	NumComponents     int            `json:"num_components"`
	LargestComponent  int            `json:"largest_component"`
	SmallestComponent int            `json:"smallest_component"`
	OrphanCount       int            `json:"orphan_count"`
	OrphanKeys        []string       `json:"orphan_keys"` // type:id
	DegreeHistogram   []DegreeBucket `json:"degree_histogram"`
	Hubs              []HubNode      `json:"hubs"`
	Tiers             []TierStats    `json:"tiers"`
}

// ComputeTopology analyzes network topology: components, orphans, degree
// distribution, hubs and per-tier similarity.
func ComputeTopology(snap *Snapshot, hubThreshold, topN int) *TopologyReport {
	report := &TopologyReport{
		TotalNodes:      len(snap.Nodes),
		DegreeHistogram: defaultHistogram(),
	}
	for _, e := range snap.Edges {
		if e.Kind == network.EdgeHierarchy {
			report.HierarchyEdges++
		} else {
			report.SimilarityEdges++
		}
	}
	if report.TotalNodes == 0 {
		return report
	}

	nodeIDs := snap.Keys()
	uf := NewUnionFind(nodeIDs)
	for id, neighbours := range snap.Adj {
		for _, other := range neighbours {
			uf.Union(id, other)
		}
	}

	components := uf.Components()
	report.NumComponents = uf.Count()
	report.SmallestComponent = report.TotalNodes
	for _, c := range components {
		if len(c) > report.LargestComponent {
			report.LargestComponent = len(c)
		}
		if len(c) < report.SmallestComponent {
			report.SmallestComponent = len(c)
		}
	}

	// Orphans: degree == 0. The seed of a build with no neighbours is one.
	var orphans []string
	for _, id := range nodeIDs {
		if len(snap.Adj[id]) == 0 {
			orphans = append(orphans, id)
		}
	}
	report.OrphanCount = len(orphans)
	if len(orphans) > topN {
		orphans = orphans[:topN]
	}
	report.OrphanKeys = orphans

	for _, id := range nodeIDs {
		report.DegreeHistogram[degreeBucket(len(snap.Adj[id]))].Count++
	}

	var hubs []HubNode
	for _, id := range nodeIDs {
		degree := len(snap.Adj[id])
		if degree > hubThreshold {
			n := snap.Nodes[id]
			hubs = append(hubs, HubNode{ID: n.ID, Type: n.Type, Title: n.Title, Level: n.Level, Degree: degree})
		}
	}
	sort.SliceStable(hubs, func(i, j int) bool { return hubs[i].Degree > hubs[j].Degree })
	if len(hubs) > topN {
		hubs = hubs[:topN]
	}
	report.Hubs = hubs

	report.Tiers = tierStats(snap, nodeIDs)
	return report
}

func tierStats(snap *Snapshot, nodeIDs []string) []TierStats {
	byLevel := map[int]*TierStats{}
	for _, id := range nodeIDs {
		n := snap.Nodes[id]
		if n.Level == 0 {
			continue
		}
		ts, ok := byLevel[n.Level]
		if !ok {
			ts = &TierStats{Level: n.Level, MinSimilarity: n.Similarity}
			byLevel[n.Level] = ts
		}
		ts.Nodes++
		ts.MeanSimilarity += n.Similarity
		if n.Similarity < ts.MinSimilarity {
			ts.MinSimilarity = n.Similarity
		}
	}

	out := make([]TierStats, 0, len(byLevel))
	for _, ts := range byLevel {
		ts.MeanSimilarity /= float64(ts.Nodes)
		out = append(out, *ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

func defaultHistogram() []DegreeBucket {
	return []DegreeBucket{
		{Label: "0"}, {Label: "1"}, {Label: "2-3"},
		{Label: "4-7"}, {Label: "8-15"}, {Label: "16-31"}, {Label: "32+"},
	}
}

func degreeBucket(degree int) int {
	switch {
	case degree == 0:
		return 0
	case degree == 1:
		return 1
	case degree <= 3:
		return 2
	case degree <= 7:
		return 3
	case degree <= 15:
		return 4
	case degree <= 31:
		return 5
	default:
		return 6
	}
}
