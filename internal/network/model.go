package network

import (
	"encoding/json"
	"fmt"
)

// Edge types.
const (
	EdgeSimilarity = "similarity"
	EdgeHierarchy  = "hierarchy"
)

// ObjectRef identifies a knowledge object. Node identity is the (Type, ID) pair.
type ObjectRef struct {
	Type string
	ID   string
}

func (r ObjectRef) String() string {
	return r.Type + ":" + r.ID
}

// Node is one knowledge object placed in the network.
type Node struct {
	ID              string         `json:"id"`
	Type            string         `json:"type"`
	Level           *int           `json:"level"`      // nil for the seed and hierarchy-only nodes
	Similarity      *float64       `json:"similarity"` // relative to the discovering node
	IsSource        bool           `json:"isSource"`
	IsParent        bool           `json:"isParent,omitempty"`
	IsChild         bool           `json:"isChild,omitempty"`
	InheritsContext bool           `json:"inheritsContext,omitempty"`
	Properties      map[string]any `json:"properties"`
}

// Ref returns the identity of the node.
func (n *Node) Ref() ObjectRef {
	return ObjectRef{Type: n.Type, ID: n.ID}
}

// Label returns the display label used for summaries: title, then name, then the id.
func (n *Node) Label() string {
	for _, key := range []string{"title", "name"} {
		if v, ok := n.Properties[key].(string); ok && v != "" {
			return v
		}
	}
	return n.ID
}

// Edge is a discovered relationship between two nodes.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`

	// Endpoint types disambiguate ids shared across object types. They are
	// not part of the wire format.
	SourceType string `json:"-"`
	TargetType string `json:"-"`
}

// LevelSummary describes one similarity tier.
type LevelSummary struct {
	Level     int     `json:"level"`
	Threshold float64 `json:"threshold"`
	NodeCount int     `json:"node_count"`
	Summary   string  `json:"summary"`
}

// Result is the serialized network handed to the rendering client.
type Result struct {
	Success bool
	Error   string
	Nodes   []Node
	Edges   []Edge
	Levels  map[int]LevelSummary

	// Warnings lists upstream failures absorbed during the build. Not serialized.
	Warnings []string
}

// Failure renders a fatal build error as an unsuccessful result.
func Failure(err error) *Result {
	return &Result{Success: false, Error: err.Error()}
}

// MarshalJSON emits {success, error} for failed builds and the full graph otherwise.
// Integer level numbers become string keys of the "levels" object.
func (r *Result) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}{false, r.Error})
	}

	nodes := r.Nodes
	if nodes == nil {
		nodes = []Node{}
	}
	edges := r.Edges
	if edges == nil {
		edges = []Edge{}
	}
	levels := make(map[string]LevelSummary, len(r.Levels))
	for lvl, s := range r.Levels {
		levels[fmt.Sprintf("%d", lvl)] = s
	}

	return json.Marshal(struct {
		Success bool                    `json:"success"`
		Nodes   []Node                  `json:"nodes"`
		Edges   []Edge                  `json:"edges"`
		Levels  map[string]LevelSummary `json:"levels"`
	}{true, nodes, edges, levels})
}

// UnmarshalJSON accepts both the success and failure shapes.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw struct {
		Success bool                    `json:"success"`
		Error   string                  `json:"error"`
		Nodes   []Node                  `json:"nodes"`
		Edges   []Edge                  `json:"edges"`
		Levels  map[string]LevelSummary `json:"levels"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Success = raw.Success
	r.Error = raw.Error
	r.Nodes = raw.Nodes
	r.Edges = raw.Edges
	r.Levels = nil
	if raw.Levels != nil {
		r.Levels = make(map[int]LevelSummary, len(raw.Levels))
		for _, s := range raw.Levels {
			r.Levels[s.Level] = s
		}
	}
	return nil
}

// SourceNode returns the seed node, or nil for failed results.
func (r *Result) SourceNode() *Node {
	for i := range r.Nodes {
		if r.Nodes[i].IsSource {
			return &r.Nodes[i]
		}
	}
	return nil
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
