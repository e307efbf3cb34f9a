package network

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// HierarchyMerger adds explicit parent/child edges around the seed. It never
// touches tiers: existing nodes are only annotated, new nodes carry no level.
type HierarchyMerger struct {
	source  HierarchySource
	weight  float64
	timeout time.Duration
	logger  *zap.Logger
}

// NewHierarchyMerger wires a merger using cfg.HierarchyWeight and cfg.HierarchyTimeout.
func NewHierarchyMerger(source HierarchySource, cfg Config, logger *zap.Logger) *HierarchyMerger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HierarchyMerger{source: source, weight: cfg.HierarchyWeight, timeout: cfg.HierarchyTimeout, logger: logger}
}

// Merge annotates st with the seed's parents and children. Lookup failures
// are recorded as warnings and leave that side of the hierarchy empty.
func (m *HierarchyMerger) Merge(ctx context.Context, st *graphState) {
	seed := st.source

	parents, err := m.fetch(ctx, seed, m.source.Parents)
	if err != nil {
		m.logger.Warn("parent lookup failed", zap.String("type", seed.Type), zap.String("id", seed.ID), zap.Error(err))
		st.warnf("parent lookup for %s failed: %v", seed, err)
	}
	for _, p := range parents {
		n := m.attach(st, p)
		if n != nil {
			n.IsParent = true
		}
	}

	children, err := m.fetch(ctx, seed, m.source.Children)
	if err != nil {
		m.logger.Warn("child lookup failed", zap.String("type", seed.Type), zap.String("id", seed.ID), zap.Error(err))
		st.warnf("child lookup for %s failed: %v", seed, err)
	}
	for _, c := range children {
		n := m.attach(st, c)
		if n != nil {
			n.IsChild = true
			if c.InheritsContext {
				n.InheritsContext = true
			}
		}
	}
}

func (m *HierarchyMerger) fetch(ctx context.Context, ref ObjectRef, fn func(context.Context, ObjectRef) ([]Relative, error)) ([]Relative, error) {
	hctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return fn(hctx, ref)
}

// attach returns the node for rel, creating a level-less one when needed, and
// links it to the seed with a hierarchy edge.
func (m *HierarchyMerger) attach(st *graphState, rel Relative) *Node {
	if rel.Ref.ID == "" || rel.Ref == st.source {
		return nil
	}
	n, ok := st.node(rel.Ref)
	if !ok {
		props := map[string]any{}
		if rel.Title != "" {
			props["title"] = rel.Title
		}
		n = &Node{ID: rel.Ref.ID, Type: rel.Ref.Type, Properties: props}
		st.put(n)
	}
	st.addEdge(st.source, rel.Ref, EdgeHierarchy, m.weight)
	return n
}
