package network

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAssembler(t *testing.T, cfg Config, src SimilaritySource, res ObjectResolver, opts ...func(*Options)) *Assembler {
	t.Helper()
	o := Options{Source: src, Resolver: res}
	for _, fn := range opts {
		fn(&o)
	}
	a, err := NewAssembler(cfg, o)
	require.NoError(t, err)
	return a
}

func withSummarizer(s SummarySource) func(*Options) {
	return func(o *Options) { o.Summarizer = s }
}

func withHierarchy(h HierarchySource) func(*Options) {
	return func(o *Options) { o.Hierarchy = h }
}

// scenarioSource is the worked example: A -> B(0.85), C(0.72), D(0.5); B -> E(0.9).
func scenarioSource() *fakeSource {
	return newFakeSource().
		on(item("A"), cand(item("B"), 0.85), cand(item("C"), 0.72), cand(item("D"), 0.5)).
		on(item("B"), cand(item("E"), 0.9))
}

func TestBuild_TieredExpansion(t *testing.T) {
	src := scenarioSource()
	a := newTestAssembler(t, testConfig(), src, newFakeResolver(seedObject("A")))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 2})
	require.NoError(t, err)
	require.True(t, res.Success)

	seed := nodeByID(t, res, "A")
	assert.True(t, seed.IsSource)
	assert.Nil(t, seed.Level)
	assert.Nil(t, seed.Similarity)

	b := nodeByID(t, res, "B")
	require.NotNil(t, b.Level)
	assert.Equal(t, 1, *b.Level)
	assert.InDelta(t, 0.85, *b.Similarity, 1e-9)

	c := nodeByID(t, res, "C")
	assert.Equal(t, 2, *c.Level)

	e := nodeByID(t, res, "E")
	assert.Equal(t, 1, *e.Level)
	assert.NotNil(t, findEdge(res, "B", "E", EdgeSimilarity))

	assert.False(t, hasNode(res, "D"), "below the lowest threshold")
	assert.Len(t, res.Nodes, 4)
	assert.Len(t, res.Edges, 3)

	assert.Equal(t, 1, src.callCount(item("A")))
	assert.Equal(t, 1, src.callCount(item("B")))
	assert.Equal(t, 1, src.callCount(item("C")))
	assert.Equal(t, 0, src.callCount(item("E")), "E sits at the depth bound")

	assert.Equal(t, 2, res.Levels[1].NodeCount)
	assert.Equal(t, 1, res.Levels[2].NodeCount)
	assert.Equal(t, 0, res.Levels[3].NodeCount)
	assert.Equal(t, 0.6, res.Levels[3].Threshold)
}

func TestBuild_BestTierWinsOnRediscovery(t *testing.T) {
	src := scenarioSource()
	src.on(item("B"), cand(item("E"), 0.9), cand(item("C"), 0.95))
	a := newTestAssembler(t, testConfig(), src, newFakeResolver(seedObject("A")))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 2})
	require.NoError(t, err)

	c := nodeByID(t, res, "C")
	assert.Equal(t, 1, *c.Level)
	assert.InDelta(t, 0.95, *c.Similarity, 1e-9)

	ac := findEdge(res, "A", "C", EdgeSimilarity)
	bc := findEdge(res, "B", "C", EdgeSimilarity)
	require.NotNil(t, ac)
	require.NotNil(t, bc)
	assert.InDelta(t, 0.72, ac.Weight, 1e-9)
	assert.InDelta(t, 0.95, bc.Weight, 1e-9)

	count := 0
	for _, n := range res.Nodes {
		if n.ID == "C" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, src.callCount(item("C")), "an upgraded node is not queried again")
}

func TestBuild_WeakerRediscoveryKeepsFirstClassification(t *testing.T) {
	src := scenarioSource()
	src.on(item("C"), cand(item("B"), 0.61))
	a := newTestAssembler(t, testConfig(), src, newFakeResolver(seedObject("A")))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 2})
	require.NoError(t, err)

	b := nodeByID(t, res, "B")
	assert.Equal(t, 1, *b.Level)
	assert.InDelta(t, 0.85, *b.Similarity, 1e-9)
	assert.NotNil(t, findEdge(res, "C", "B", EdgeSimilarity))
}

func TestBuild_EqualScoresFirstDiscoveryWins(t *testing.T) {
	src := newFakeSource().
		on(item("A"), cand(item("B"), 0.9), cand(item("C"), 0.9)).
		on(item("B"), cand(item("X"), 0.75)).
		on(item("C"), cand(item("X"), 0.75))
	a := newTestAssembler(t, testConfig(), src, newFakeResolver(seedObject("A")))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 2})
	require.NoError(t, err)

	x := nodeByID(t, res, "X")
	assert.Equal(t, 2, *x.Level)
	// B precedes C in the frontier, so the B->X edge is recorded first.
	var first *Edge
	for i := range res.Edges {
		if res.Edges[i].Target == "X" {
			first = &res.Edges[i]
			break
		}
	}
	require.NotNil(t, first)
	assert.Equal(t, "B", first.Source)
	assert.NotNil(t, findEdge(res, "C", "X", EdgeSimilarity))
}

func TestBuild_NoSelfLoopsAndSeedNeverReclassified(t *testing.T) {
	src := newFakeSource().
		on(item("A"), cand(item("A"), 1.0), cand(item("B"), 0.9)).
		on(item("B"), cand(item("B"), 1.0), cand(item("A"), 0.99))
	a := newTestAssembler(t, testConfig(), src, newFakeResolver(seedObject("A")))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 3})
	require.NoError(t, err)

	for _, e := range res.Edges {
		assert.NotEqual(t, e.Source, e.Target)
	}
	seed := nodeByID(t, res, "A")
	assert.Nil(t, seed.Level)
	assert.Nil(t, seed.Similarity)

	ab := findEdge(res, "A", "B", EdgeSimilarity)
	require.NotNil(t, ab)
	assert.InDelta(t, 0.99, ab.Weight, 1e-9, "repeated pair keeps the larger weight")
	assert.Len(t, res.Edges, 1)
}

func TestBuild_DepthBound(t *testing.T) {
	src := newFakeSource().
		on(item("A"), cand(item("B"), 0.9)).
		on(item("B"), cand(item("C"), 0.9)).
		on(item("C"), cand(item("D"), 0.9)).
		on(item("D"), cand(item("E"), 0.9))

	for depth, want := range map[int][]string{
		1: {"A", "B"},
		2: {"A", "B", "C"},
		3: {"A", "B", "C", "D"},
	} {
		a := newTestAssembler(t, testConfig(), src, newFakeResolver(seedObject("A")))
		res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: depth})
		require.NoError(t, err)

		var got []string
		for _, n := range res.Nodes {
			got = append(got, n.ID)
		}
		assert.Equal(t, want, got, "depth %d", depth)
	}
}

func TestBuild_CrossTypeIdentity(t *testing.T) {
	task := ObjectRef{Type: "task", ID: "B"}
	src := newFakeSource().
		on(item("A"), cand(item("B"), 0.9), cand(task, 0.85))
	a := newTestAssembler(t, testConfig(), src, newFakeResolver(seedObject("A")))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 1})
	require.NoError(t, err)

	seen := map[ObjectRef]int{}
	for _, n := range res.Nodes {
		seen[n.Ref()]++
	}
	assert.Equal(t, 1, seen[item("B")])
	assert.Equal(t, 1, seen[task])

	targets := map[string]bool{}
	for _, e := range res.Edges {
		assert.Equal(t, "item", e.SourceType)
		targets[e.TargetType+":"+e.Target] = true
	}
	assert.Equal(t, map[string]bool{"item:B": true, "task:B": true}, targets)
}

func TestBuild_PartialFailureKeepsOtherBranches(t *testing.T) {
	src := scenarioSource()
	src.fail[item("C")] = errors.New("store timeout")
	a := newTestAssembler(t, testConfig(), src, newFakeResolver(seedObject("A")))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 2})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, hasNode(res, "E"))
	assert.True(t, hasNode(res, "C"))
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "item:C")
}

func TestBuild_QueryTimeoutAbandonsBranch(t *testing.T) {
	src := scenarioSource()
	src.hang[item("C")] = true
	cfg := testConfig()
	cfg.QueryTimeout = 50 * time.Millisecond
	a := newTestAssembler(t, cfg, src, newFakeResolver(seedObject("A")))

	start := time.Now()
	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 2})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.True(t, res.Success)
	assert.True(t, hasNode(res, "C"))
	assert.True(t, hasNode(res, "E"), "sibling branch still expands")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "item:C")
	assert.Contains(t, res.Warnings[0], context.DeadlineExceeded.Error())
}

func TestBuild_SeedQueryTimeoutIsFatal(t *testing.T) {
	src := scenarioSource()
	src.hang[item("A")] = true
	cfg := testConfig()
	cfg.QueryTimeout = 20 * time.Millisecond
	a := newTestAssembler(t, cfg, src, newFakeResolver(seedObject("A")))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 1})
	assert.ErrorIs(t, err, ErrSeedUnresolvable)
	assert.False(t, res.Success)
}

func TestBuild_UnnormalizedScoresAreClamped(t *testing.T) {
	src := newFakeSource().
		on(item("A"), cand(item("B"), 1.7), cand(item("C"), -0.4))
	a := newTestAssembler(t, testConfig(), src, newFakeResolver(seedObject("A")))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 1})
	require.NoError(t, err)

	b := nodeByID(t, res, "B")
	assert.Equal(t, 1, *b.Level)
	assert.Equal(t, 1.0, *b.Similarity)
	edge := findEdge(res, "A", "B", EdgeSimilarity)
	require.NotNil(t, edge)
	assert.Equal(t, 1.0, edge.Weight)
	assert.False(t, hasNode(res, "C"))
}

func TestBuild_ReverseDiscoveryReusesEdge(t *testing.T) {
	src := newFakeSource().
		on(item("A"), cand(item("B"), 0.85)).
		on(item("B"), cand(item("A"), 0.85), cand(item("C"), 0.9))
	a := newTestAssembler(t, testConfig(), src, newFakeResolver(seedObject("A")))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 2})
	require.NoError(t, err)

	count := 0
	for _, e := range res.Edges {
		if e.Type == EdgeSimilarity && findEdge(&Result{Edges: []Edge{e}}, "A", "B", EdgeSimilarity) != nil {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Len(t, res.Edges, 2)
}

func TestBuild_SeedQueryFailureIsFatal(t *testing.T) {
	src := newFakeSource()
	src.fail[item("A")] = errors.New("store down")
	a := newTestAssembler(t, testConfig(), src, newFakeResolver(seedObject("A")))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 1})
	assert.ErrorIs(t, err, ErrSeedUnresolvable)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestBuild_SeedUnresolvable(t *testing.T) {
	empty := &Object{Ref: item("A"), Title: ""}
	src := newFakeSource()

	for name, resolver := range map[string]ObjectResolver{
		"missing":    newFakeResolver(),
		"no content": newFakeResolver(empty),
	} {
		a := newTestAssembler(t, testConfig(), src, resolver)
		res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 1})
		assert.ErrorIs(t, err, ErrSeedUnresolvable, name)
		assert.False(t, res.Success, name)

		raw, err := json.Marshal(res)
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		assert.Equal(t, false, m["success"])
		assert.NotEmpty(t, m["error"])
		assert.NotContains(t, m, "nodes")
	}
	assert.Zero(t, src.callCount(item("A")))
}

func TestBuild_ConfigurationErrorsRejectedBeforeQuerying(t *testing.T) {
	src := scenarioSource()
	a := newTestAssembler(t, testConfig(), src, newFakeResolver(seedObject("A")))

	for _, req := range []Request{
		{Seed: item("A"), Depth: 0},
		{Seed: item("A"), Depth: 4},
		{Seed: ObjectRef{Type: "item"}, Depth: 1},
	} {
		_, err := a.Build(context.Background(), req)
		assert.ErrorIs(t, err, ErrConfiguration)
	}
	assert.Zero(t, src.callCount(item("A")))

	bad := testConfig()
	bad.Thresholds = []float64{0.6, 0.8}
	_, err := NewAssembler(bad, Options{Source: src, Resolver: newFakeResolver()})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewAssembler(testConfig(), Options{Resolver: newFakeResolver()})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestBuild_SummariesSkipEmptyTiers(t *testing.T) {
	summ := &fakeSummarizer{}
	a := newTestAssembler(t, testConfig(), scenarioSource(), newFakeResolver(seedObject("A")), withSummarizer(summ))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 2, GenerateSummaries: true})
	require.NoError(t, err)

	assert.Len(t, summ.calls, 2, "tier 3 is empty and must not be summarized")
	for _, c := range summ.ctxs {
		assert.Equal(t, "Seed A", c)
	}
	assert.Contains(t, res.Levels[1].Summary, "Title B")
	assert.Contains(t, res.Levels[1].Summary, "Title E")
	assert.Contains(t, res.Levels[2].Summary, "Title C")
	assert.Equal(t, "", res.Levels[3].Summary)
}

func TestBuild_SummariesDisabled(t *testing.T) {
	summ := &fakeSummarizer{}
	a := newTestAssembler(t, testConfig(), scenarioSource(), newFakeResolver(seedObject("A")), withSummarizer(summ))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 2})
	require.NoError(t, err)

	assert.Empty(t, summ.calls)
	require.Len(t, res.Levels, 3)
	for lvl, s := range res.Levels {
		assert.Equal(t, lvl, s.Level)
		assert.Equal(t, "", s.Summary)
	}
	assert.Equal(t, 2, res.Levels[1].NodeCount)
}

func TestBuild_SummaryFailureIsolatedToTier(t *testing.T) {
	summ := &fakeSummarizer{failOn: "Title C"}
	a := newTestAssembler(t, testConfig(), scenarioSource(), newFakeResolver(seedObject("A")), withSummarizer(summ))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 2, GenerateSummaries: true})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Levels[1].Summary)
	assert.Equal(t, "", res.Levels[2].Summary)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "level 2")
}

func TestBuild_SummaryTimeoutIsolatedToTier(t *testing.T) {
	summ := &fakeSummarizer{hangOn: "Title C"}
	cfg := testConfig()
	cfg.SummaryTimeout = 50 * time.Millisecond
	a := newTestAssembler(t, cfg, scenarioSource(), newFakeResolver(seedObject("A")), withSummarizer(summ))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 2, GenerateSummaries: true})
	require.NoError(t, err)
	assert.True(t, res.Success)

	assert.NotEmpty(t, res.Levels[1].Summary)
	assert.Equal(t, "", res.Levels[2].Summary)
	assert.Equal(t, 1, res.Levels[2].NodeCount)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "level 2")
}

func TestBuild_HierarchyAddsParentWithoutLevel(t *testing.T) {
	h := &fakeHierarchy{parents: []Relative{{Ref: item("P"), Title: "Parent"}}}
	a := newTestAssembler(t, testConfig(), scenarioSource(), newFakeResolver(seedObject("A")), withHierarchy(h))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 1, IncludeHierarchy: true})
	require.NoError(t, err)

	p := nodeByID(t, res, "P")
	assert.True(t, p.IsParent)
	assert.Nil(t, p.Level)
	assert.Nil(t, p.Similarity)
	assert.Equal(t, "Parent", p.Properties["title"])

	e := findEdge(res, "A", "P", EdgeHierarchy)
	require.NotNil(t, e)
	assert.Equal(t, "A", e.Source)
	assert.Equal(t, "P", e.Target)
	assert.Equal(t, 1.0, e.Weight)
	assert.Equal(t, 1, res.Levels[1].NodeCount, "hierarchy nodes are not counted in tiers")
}

func TestBuild_HierarchyAnnotatesExistingNodes(t *testing.T) {
	h := &fakeHierarchy{
		parents:  []Relative{{Ref: item("B"), Title: "B as parent"}},
		children: []Relative{{Ref: item("C"), InheritsContext: true}, {Ref: item("A")}},
	}
	plain := newTestAssembler(t, testConfig(), scenarioSource(), newFakeResolver(seedObject("A")))
	merged := newTestAssembler(t, testConfig(), scenarioSource(), newFakeResolver(seedObject("A")), withHierarchy(h))

	req := Request{Seed: item("A"), Depth: 2}
	before, err := plain.Build(context.Background(), req)
	require.NoError(t, err)
	req.IncludeHierarchy = true
	after, err := merged.Build(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, after.Nodes, len(before.Nodes))
	for _, n := range before.Nodes {
		m := nodeByID(t, after, n.ID)
		assert.Equal(t, n.Level, m.Level, n.ID)
		assert.Equal(t, n.Similarity, m.Similarity, n.ID)
	}
	assert.True(t, nodeByID(t, after, "B").IsParent)
	c := nodeByID(t, after, "C")
	assert.True(t, c.IsChild)
	assert.True(t, c.InheritsContext)
	assert.False(t, nodeByID(t, after, "A").IsChild, "the seed is never its own relative")

	assert.NotNil(t, findEdge(after, "A", "B", EdgeSimilarity))
	assert.NotNil(t, findEdge(after, "A", "B", EdgeHierarchy))
	assert.Len(t, after.Edges, len(before.Edges)+2)
}

func TestBuild_HierarchyFailureIsAbsorbed(t *testing.T) {
	h := &fakeHierarchy{err: errors.New("db locked")}
	a := newTestAssembler(t, testConfig(), scenarioSource(), newFakeResolver(seedObject("A")), withHierarchy(h))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 1, IncludeHierarchy: true})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, res.Warnings, 2)
}

func TestBuild_Canceled(t *testing.T) {
	a := newTestAssembler(t, testConfig(), scenarioSource(), newFakeResolver(seedObject("A")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := a.Build(ctx, Request{Seed: item("A"), Depth: 2})
	assert.ErrorIs(t, err, ErrCanceled)
	assert.False(t, res.Success)
}

func TestBuild_TypeFilterMergesByScore(t *testing.T) {
	cfg := testConfig()
	cfg.Neighbors = 2
	cfg.ObjectTypes = []string{"item", "task"}
	src := newFakeSource().on(item("A"),
		cand(item("B"), 0.7),
		cand(ObjectRef{Type: "task", ID: "T1"}, 0.95),
		cand(ObjectRef{Type: "task", ID: "T2"}, 0.65),
		cand(ObjectRef{Type: "file", ID: "F"}, 0.99),
	)
	a := newTestAssembler(t, cfg, src, newFakeResolver(seedObject("A")))

	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 1})
	require.NoError(t, err)

	assert.True(t, hasNode(res, "T1"))
	assert.True(t, hasNode(res, "B"))
	assert.False(t, hasNode(res, "T2"), "cut by K after merging")
	assert.False(t, hasNode(res, "F"), "filtered type")
	assert.Equal(t, 2, src.callCount(item("A")))
}

func TestBuild_ConcurrentBuildsAreIsolated(t *testing.T) {
	a := newTestAssembler(t, testConfig(), scenarioSource(), newFakeResolver(seedObject("A")))

	const n = 16
	results := make(chan *Result, n)
	for i := 0; i < n; i++ {
		go func() {
			res, _ := a.Build(context.Background(), Request{Seed: item("A"), Depth: 2})
			results <- res
		}()
	}
	for i := 0; i < n; i++ {
		res := <-results
		require.True(t, res.Success)
		assert.Len(t, res.Nodes, 4)
		assert.Len(t, res.Edges, 3)
	}
}

func TestResult_JSONShape(t *testing.T) {
	h := &fakeHierarchy{parents: []Relative{{Ref: item("P"), Title: "Parent"}}}
	a := newTestAssembler(t, testConfig(), scenarioSource(), newFakeResolver(seedObject("A")), withHierarchy(h))
	res, err := a.Build(context.Background(), Request{Seed: item("A"), Depth: 2, IncludeHierarchy: true})
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, true, m["success"])
	assert.NotContains(t, m, "error")

	levels := m["levels"].(map[string]any)
	assert.Len(t, levels, 3)
	l1 := levels["1"].(map[string]any)
	assert.Equal(t, float64(1), l1["level"])
	assert.Equal(t, 0.8, l1["threshold"])
	assert.Equal(t, float64(2), l1["node_count"])
	assert.Equal(t, "", l1["summary"])

	nodes := m["nodes"].([]any)
	seed := nodes[0].(map[string]any)
	assert.Equal(t, "A", seed["id"])
	assert.Equal(t, true, seed["isSource"])
	assert.Nil(t, seed["level"])
	assert.Contains(t, seed, "level")
	assert.Nil(t, seed["similarity"])
	assert.NotContains(t, seed, "isParent")

	edges := m["edges"].([]any)
	first := edges[0].(map[string]any)
	assert.Equal(t, "similarity", first["type"])
	assert.Contains(t, first, "weight")

	var back Result
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, len(res.Nodes), len(back.Nodes))
	assert.Equal(t, res.Levels[1].NodeCount, back.Levels[1].NodeCount)
}
