package graph

import "sort"

// ArticulationPoint is a node whose removal disconnects the network
type ArticulationPoint struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Level  int    `json:"level"`
	Degree int    `json:"degree"`
}

// BridgeEdge is an edge whose removal disconnects the network
type BridgeEdge struct {
	SourceID    string `json:"source_id"`
	TargetID    string `json:"target_id"`
	SourceTitle string `json:"source_title"`
	TargetTitle string `json:"target_title"`
}

// TierLink counts the edges joining two tiers. Level 0 stands for the seed
// and hierarchy-only nodes.
type TierLink struct {
	LevelA int `json:"level_a"`
	LevelB int `json:"level_b"`
	Edges  int `json:"edges"`
}

// BridgeReport contains bridge analysis results
type BridgeReport struct {
	ArticulationPoints []ArticulationPoint `json:"articulation_points"`
	BridgeEdges        []BridgeEdge        `json:"bridge_edges"`
	TierLinks          []TierLink          `json:"tier_links"`
	APCount            int                 `json:"ap_count"`
	BridgeCount        int                 `json:"bridge_count"`
}

// ComputeBridges finds articulation points and bridge edges of the network
// and counts the edges running between tiers.
func ComputeBridges(snap *Snapshot) *BridgeReport {
	if len(snap.Nodes) == 0 {
		return &BridgeReport{}
	}

	nodeIDs := snap.Keys()
	index := make(map[string]int, len(nodeIDs))
	for i, id := range nodeIDs {
		index[id] = i
	}
	// Snapshot adjacency is already deduplicated and loop-free.
	adjIdx := make([][]int, len(nodeIDs))
	for i, id := range nodeIDs {
		for _, other := range snap.Adj[id] {
			adjIdx[i] = append(adjIdx[i], index[other])
		}
	}

	cut, bridgePairs := tarjan(adjIdx)

	var aps []ArticulationPoint
	for i, isCut := range cut {
		if !isCut {
			continue
		}
		node := snap.Nodes[nodeIDs[i]]
		aps = append(aps, ArticulationPoint{
			ID:     node.ID,
			Type:   node.Type,
			Title:  node.Title,
			Level:  node.Level,
			Degree: len(adjIdx[i]),
		})
	}

	var bridges []BridgeEdge
	for _, pair := range bridgePairs {
		u := snap.Nodes[nodeIDs[pair[0]]]
		v := snap.Nodes[nodeIDs[pair[1]]]
		bridges = append(bridges, BridgeEdge{
			SourceID:    u.ID,
			TargetID:    v.ID,
			SourceTitle: u.Title,
			TargetTitle: v.Title,
		})
	}

	return &BridgeReport{
		ArticulationPoints: aps,
		BridgeEdges:        bridges,
		TierLinks:          tierLinks(snap),
		APCount:            len(aps),
		BridgeCount:        len(bridges),
	}
}

func tierLinks(snap *Snapshot) []TierLink {
	type levelPair struct{ a, b int }
	counts := make(map[levelPair]int)
	for _, e := range snap.Edges {
		la := snap.Nodes[e.Source].Level
		lb := snap.Nodes[e.Target].Level
		if la > lb {
			la, lb = lb, la
		}
		counts[levelPair{la, lb}]++
	}

	links := make([]TierLink, 0, len(counts))
	for p, c := range counts {
		links = append(links, TierLink{LevelA: p.a, LevelB: p.b, Edges: c})
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].LevelA != links[j].LevelA {
			return links[i].LevelA < links[j].LevelA
		}
		return links[i].LevelB < links[j].LevelB
	})
	return links
}

// tarjan finds articulation points and bridges of an undirected graph given
// as index adjacency lists. The DFS is iterative so deep chains cannot
// exhaust the goroutine stack.
func tarjan(adj [][]int) (cut []bool, bridges [][2]int) {
	n := len(adj)
	cut = make([]bool, n)
	disc := make([]int, n) // 0 means unvisited
	low := make([]int, n)
	clock := 0

	type frame struct {
		v, from, next int
	}
	visit := func(v int) {
		clock++
		disc[v], low[v] = clock, clock
	}

	for root := range adj {
		if disc[root] != 0 {
			continue
		}
		visit(root)
		stack := []frame{{v: root, from: -1}}
		treeChildren := 0

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.next < len(adj[f.v]) {
				w := adj[f.v][f.next]
				f.next++
				switch {
				case w == f.from:
				case disc[w] != 0:
					low[f.v] = min(low[f.v], disc[w])
				default:
					visit(w)
					if f.v == root {
						treeChildren++
					}
					stack = append(stack, frame{v: w, from: f.v})
				}
				continue
			}

			v := f.v
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				break
			}
			u := stack[len(stack)-1].v
			low[u] = min(low[u], low[v])
			if low[v] > disc[u] {
				bridges = append(bridges, [2]int{u, v})
			}
			if u != root && low[v] >= disc[u] {
				cut[u] = true
			}
		}

		if treeChildren >= 2 {
			cut[root] = true
		}
	}
	return cut, bridges
}
