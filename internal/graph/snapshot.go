package graph

import (
	"sort"

	"ideagraph/semnet/internal/network"
)

// NodeInfo is a lightweight view of a network node.
type NodeInfo struct {
	ID         string
	Title      string
	Type       string
	Level      int // 0 for the seed and hierarchy-only nodes
	Similarity float64
	IsSource   bool
}

// Key identifies the node inside a Snapshot. Objects of different types may
// share an id, so the key is "type:id" whenever the type is known.
func (n *NodeInfo) Key() string {
	return nodeKey(n.Type, n.ID)
}

func nodeKey(objType, id string) string {
	if objType == "" {
		return id
	}
	return objType + ":" + id
}

// EdgeInfo is a lightweight view of a network edge. Source and Target are
// node keys; a bare id is accepted when exactly one node carries it.
type EdgeInfo struct {
	Source string
	Target string
	Kind   string // network.EdgeSimilarity or network.EdgeHierarchy
	Weight float64
}

// Snapshot holds a built network with precomputed adjacency.
type Snapshot struct {
	Nodes map[string]*NodeInfo // by Key
	Edges []EdgeInfo           // endpoints rewritten to keys
	Adj   map[string][]string  // undirected, deduplicated
}

// NewSnapshot builds a Snapshot from raw nodes and edges. Edges that
// reference unknown nodes are dropped.
func NewSnapshot(nodes []*NodeInfo, edges []EdgeInfo) *Snapshot {
	nodeMap := make(map[string]*NodeInfo, len(nodes))
	byID := make(map[string][]string, len(nodes))
	adj := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		key := n.Key()
		if _, dup := nodeMap[key]; !dup {
			byID[n.ID] = append(byID[n.ID], key)
		}
		nodeMap[key] = n
		adj[key] = nil // ensure entry exists
	}
	endpoint := func(ref string) (string, bool) {
		if _, ok := nodeMap[ref]; ok {
			return ref, true
		}
		if keys := byID[ref]; len(keys) == 1 {
			return keys[0], true
		}
		return "", false
	}

	type pair struct{ a, b string }
	linked := make(map[pair]bool)
	kept := make([]EdgeInfo, 0, len(edges))
	for _, e := range edges {
		src, ok := endpoint(e.Source)
		if !ok {
			continue
		}
		dst, ok := endpoint(e.Target)
		if !ok {
			continue
		}
		e.Source, e.Target = src, dst
		kept = append(kept, e)
		if src == dst {
			continue
		}
		key := pair{src, dst}
		if key.b < key.a {
			key = pair{dst, src}
		}
		if linked[key] {
			continue
		}
		linked[key] = true
		adj[src] = append(adj[src], dst)
		adj[dst] = append(adj[dst], src)
	}

	return &Snapshot{Nodes: nodeMap, Edges: kept, Adj: adj}
}

// FromResult converts a successful network build into a Snapshot.
func FromResult(res *network.Result) *Snapshot {
	nodes := make([]*NodeInfo, 0, len(res.Nodes))
	for i := range res.Nodes {
		n := &res.Nodes[i]
		info := &NodeInfo{
			ID:       n.ID,
			Title:    n.Label(),
			Type:     n.Type,
			IsSource: n.IsSource,
		}
		if n.Level != nil {
			info.Level = *n.Level
		}
		if n.Similarity != nil {
			info.Similarity = *n.Similarity
		}
		nodes = append(nodes, info)
	}

	edges := make([]EdgeInfo, 0, len(res.Edges))
	for _, e := range res.Edges {
		edges = append(edges, EdgeInfo{
			Source: nodeKey(e.SourceType, e.Source),
			Target: nodeKey(e.TargetType, e.Target),
			Kind:   e.Type,
			Weight: e.Weight,
		})
	}
	return NewSnapshot(nodes, edges)
}

// Keys returns the sorted node keys (for deterministic output)
func (s *Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.Nodes))
	for k := range s.Nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
