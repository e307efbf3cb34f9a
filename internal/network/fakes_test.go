package network

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func item(id string) ObjectRef { return ObjectRef{Type: "item", ID: id} }

func cand(ref ObjectRef, score float64) Candidate {
	return Candidate{Ref: ref, Score: score, Metadata: map[string]any{"title": "Title " + ref.ID}}
}

// fakeSource answers queries by the ref being expanded (Query.Exclude).
type fakeSource struct {
	mu      sync.Mutex
	results map[ObjectRef][]Candidate
	fail    map[ObjectRef]error
	hang    map[ObjectRef]bool // block until the query context ends
	calls   map[ObjectRef]int
	queries []Query
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		results: map[ObjectRef][]Candidate{},
		fail:    map[ObjectRef]error{},
		hang:    map[ObjectRef]bool{},
		calls:   map[ObjectRef]int{},
	}
}

func (f *fakeSource) on(ref ObjectRef, cands ...Candidate) *fakeSource {
	f.results[ref] = cands
	return f
}

func (f *fakeSource) Query(ctx context.Context, q Query) ([]Candidate, error) {
	f.mu.Lock()
	f.calls[q.Exclude]++
	f.queries = append(f.queries, q)
	hang := f.hang[q.Exclude]
	f.mu.Unlock()
	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[q.Exclude]; err != nil {
		return nil, err
	}
	var out []Candidate
	for _, c := range f.results[q.Exclude] {
		if q.ObjectType != "" && c.Ref.Type != q.ObjectType {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeSource) callCount(ref ObjectRef) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[ref]
}

type fakeResolver struct {
	objects map[ObjectRef]*Object
}

func newFakeResolver(objs ...*Object) *fakeResolver {
	r := &fakeResolver{objects: map[ObjectRef]*Object{}}
	for _, o := range objs {
		r.objects[o.Ref] = o
	}
	return r
}

func (r *fakeResolver) Resolve(ctx context.Context, ref ObjectRef) (*Object, error) {
	o, ok := r.objects[ref]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

// fakeSummarizer fails whenever a snippet contains failOn and blocks until
// its context ends whenever a snippet contains hangOn.
type fakeSummarizer struct {
	mu     sync.Mutex
	calls  [][]string
	ctxs   []string
	failOn string
	hangOn string
}

func (s *fakeSummarizer) Summarize(ctx context.Context, snippets []string, contextTitle string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, snippets)
	s.ctxs = append(s.ctxs, contextTitle)
	s.mu.Unlock()
	for _, sn := range snippets {
		if s.hangOn != "" && strings.Contains(sn, s.hangOn) {
			<-ctx.Done()
			return "", ctx.Err()
		}
		if s.failOn != "" && strings.Contains(sn, s.failOn) {
			return "", errors.New("summarizer unavailable")
		}
	}
	return "summary of " + strings.Join(snippets, ", "), nil
}

type fakeHierarchy struct {
	parents  []Relative
	children []Relative
	err      error
}

func (h *fakeHierarchy) Parents(ctx context.Context, ref ObjectRef) ([]Relative, error) {
	return h.parents, h.err
}

func (h *fakeHierarchy) Children(ctx context.Context, ref ObjectRef) ([]Relative, error) {
	return h.children, h.err
}

func seedObject(id string) *Object {
	return &Object{Ref: item(id), Title: "Seed " + id, Content: "content of " + id}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Neighbors = 3
	return cfg
}

func nodeByID(t *testing.T, res *Result, id string) *Node {
	t.Helper()
	for i := range res.Nodes {
		if res.Nodes[i].ID == id {
			return &res.Nodes[i]
		}
	}
	t.Fatalf("node %s not in result", id)
	return nil
}

func hasNode(res *Result, id string) bool {
	for _, n := range res.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

func findEdge(res *Result, source, target, kind string) *Edge {
	for i, e := range res.Edges {
		if e.Type != kind {
			continue
		}
		if (e.Source == source && e.Target == target) || (e.Source == target && e.Target == source) {
			return &res.Edges[i]
		}
	}
	return nil
}
