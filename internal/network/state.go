package network

import "fmt"

// edgeKey identifies an edge. Similarity is symmetric, so similarity edges are
// keyed by the unordered pair; hierarchy edges live in their own key space.
type edgeKey struct {
	a, b ObjectRef
	kind string
}

func newEdgeKey(from, to ObjectRef, kind string) edgeKey {
	if to.String() < from.String() {
		from, to = to, from
	}
	return edgeKey{a: from, b: to, kind: kind}
}

// graphState accumulates one build. It is owned by a single goroutine.
type graphState struct {
	source   ObjectRef
	nodes    map[ObjectRef]*Node
	order    []ObjectRef
	edges    []Edge
	edgeIdx  map[edgeKey]int
	warnings []string
}

func newGraphState(seed *Object) *graphState {
	props := copyProps(seed.Properties)
	if _, ok := props["title"]; !ok && seed.Title != "" {
		props["title"] = seed.Title
	}
	s := &graphState{
		source:  seed.Ref,
		nodes:   make(map[ObjectRef]*Node),
		edgeIdx: make(map[edgeKey]int),
	}
	s.put(&Node{ID: seed.Ref.ID, Type: seed.Ref.Type, IsSource: true, Properties: props})
	return s
}

func (s *graphState) put(n *Node) {
	ref := n.Ref()
	s.nodes[ref] = n
	s.order = append(s.order, ref)
}

func (s *graphState) node(ref ObjectRef) (*Node, bool) {
	n, ok := s.nodes[ref]
	return n, ok
}

func (s *graphState) addSimilar(ref ObjectRef, level int, score float64, metadata map[string]any) *Node {
	n := &Node{
		ID:         ref.ID,
		Type:       ref.Type,
		Level:      intPtr(level),
		Similarity: floatPtr(score),
		Properties: copyProps(metadata),
	}
	s.put(n)
	return n
}

// improve applies best-tier-wins to an existing node. Equal scores keep the
// first discovery. The seed and hierarchy-only nodes are never reclassified
// from here; hierarchy nodes only exist after expansion finishes.
func (s *graphState) improve(ref ObjectRef, level int, score float64) bool {
	n, ok := s.nodes[ref]
	if !ok || n.IsSource || n.Similarity == nil {
		return false
	}
	if score <= *n.Similarity {
		return false
	}
	n.Similarity = floatPtr(score)
	n.Level = intPtr(level)
	return true
}

// addEdge records an edge unless it is a self-loop or already present. For a
// repeated pair the larger weight is kept. Similarity edges are undirected:
// when B's query later returns A, the existing A-B edge is reused and no
// separate B->A edge is added.
func (s *graphState) addEdge(from, to ObjectRef, kind string, weight float64) bool {
	if from == to {
		return false
	}
	key := newEdgeKey(from, to, kind)
	if i, ok := s.edgeIdx[key]; ok {
		if weight > s.edges[i].Weight {
			s.edges[i].Weight = weight
		}
		return false
	}
	s.edgeIdx[key] = len(s.edges)
	s.edges = append(s.edges, Edge{
		Source: from.ID, Target: to.ID, Type: kind, Weight: weight,
		SourceType: from.Type, TargetType: to.Type,
	})
	return true
}

func (s *graphState) warnf(format string, args ...any) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}

// tier returns the similarity-classified nodes at level, in discovery order.
func (s *graphState) tier(level int) []*Node {
	var out []*Node
	for _, ref := range s.order {
		n := s.nodes[ref]
		if n.Level != nil && *n.Level == level {
			out = append(out, n)
		}
	}
	return out
}

// snapshot returns nodes in discovery order (seed first) and edges in
// insertion order.
func (s *graphState) snapshot() ([]Node, []Edge) {
	nodes := make([]Node, 0, len(s.order))
	for _, ref := range s.order {
		nodes = append(nodes, *s.nodes[ref])
	}
	edges := make([]Edge, len(s.edges))
	copy(edges, s.edges)
	return nodes, edges
}

func copyProps(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
