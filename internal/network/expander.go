package network

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FrontierExpander performs the bounded, level-aware breadth-first expansion.
// Tiers are processed strictly one after another; queries within a tier run
// concurrently and are merged sequentially in frontier order, so equal scores
// resolve to the first discovery.
type FrontierExpander struct {
	source     SimilaritySource
	resolver   ObjectResolver
	classifier *LevelClassifier
	cfg        Config
	logger     *zap.Logger
	recorder   Recorder
}

// NewFrontierExpander wires an expander. resolver may be nil, in which case
// non-seed frontier text comes from candidate metadata only.
func NewFrontierExpander(source SimilaritySource, resolver ObjectResolver, classifier *LevelClassifier, cfg Config, logger *zap.Logger, recorder Recorder) *FrontierExpander {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &FrontierExpander{
		source:     source,
		resolver:   resolver,
		classifier: classifier,
		cfg:        cfg,
		logger:     logger,
		recorder:   recorder,
	}
}

type frontierItem struct {
	ref      ObjectRef
	text     string
	metadata map[string]any
}

type queryOutcome struct {
	candidates []Candidate
	err        error // the whole branch failed
	partial    error // some type-filtered queries failed
}

// Expand grows st from the seed for up to depth hops. It returns
// ErrSeedUnresolvable when the seed itself cannot be queried and ErrCanceled
// when ctx ends; every other upstream failure is absorbed as a warning.
func (e *FrontierExpander) Expand(ctx context.Context, st *graphState, seed *Object, depth int) error {
	frontier := []frontierItem{{ref: seed.Ref, text: seed.Text(), metadata: seed.Properties}}
	expanded := map[ObjectRef]bool{}

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		for _, item := range frontier {
			expanded[item.ref] = true
		}

		outcomes := e.queryFrontier(ctx, frontier)
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrCanceled, err)
		}

		var next []frontierItem
		for i, item := range frontier {
			out := outcomes[i]
			if out.err != nil {
				if item.ref == seed.Ref {
					return fmt.Errorf("%w: querying neighbours of %s: %v", ErrSeedUnresolvable, item.ref, out.err)
				}
				e.logger.Warn("similarity query failed, abandoning branch",
					zap.String("type", item.ref.Type),
					zap.String("id", item.ref.ID),
					zap.Int("hop", hop+1),
					zap.Error(out.err))
				st.warnf("query for %s failed: %v", item.ref, out.err)
				continue
			}
			if out.partial != nil {
				e.logger.Warn("similarity query partially failed",
					zap.String("type", item.ref.Type),
					zap.String("id", item.ref.ID),
					zap.Error(out.partial))
				st.warnf("query for %s partially failed: %v", item.ref, out.partial)
			}

			for _, c := range out.candidates {
				if c.Ref.ID == "" || c.Ref == item.ref {
					continue
				}
				c.Score = clamp01(c.Score)
				level, ok := e.classifier.Classify(c.Score)
				if !ok {
					continue
				}
				if _, seen := st.node(c.Ref); seen {
					st.improve(c.Ref, level, c.Score)
					st.addEdge(item.ref, c.Ref, EdgeSimilarity, c.Score)
					continue
				}
				st.addSimilar(c.Ref, level, c.Score, c.Metadata)
				st.addEdge(item.ref, c.Ref, EdgeSimilarity, c.Score)
				if !expanded[c.Ref] {
					next = append(next, frontierItem{ref: c.Ref, metadata: c.Metadata})
				}
			}
		}
		frontier = next
	}
	return nil
}

// queryFrontier issues one lookup per frontier object, at most
// cfg.Concurrency at a time. Each goroutine writes only its own slot.
func (e *FrontierExpander) queryFrontier(ctx context.Context, frontier []frontierItem) []queryOutcome {
	outcomes := make([]queryOutcome, len(frontier))

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i, item := range frontier {
		g.Go(func() error {
			outcomes[i] = e.queryItem(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (e *FrontierExpander) queryItem(ctx context.Context, item frontierItem) queryOutcome {
	text, err := e.textFor(ctx, item)
	if err != nil {
		return queryOutcome{err: err}
	}

	types := e.cfg.ObjectTypes
	if len(types) == 0 {
		types = []string{""}
	}

	var merged []Candidate
	var failures []error
	for _, t := range types {
		qctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
		cands, err := e.source.Query(qctx, Query{
			Text:       text,
			ObjectType: t,
			Exclude:    item.ref,
			Limit:      e.cfg.Neighbors,
		})
		cancel()
		if err != nil {
			e.recorder.QueryFailed(t)
			if t != "" {
				err = fmt.Errorf("type %s: %w", t, err)
			}
			failures = append(failures, err)
			continue
		}
		merged = append(merged, cands...)
	}

	if len(failures) == len(types) {
		return queryOutcome{err: errors.Join(failures...)}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > e.cfg.Neighbors {
		merged = merged[:e.cfg.Neighbors]
	}
	return queryOutcome{candidates: merged, partial: errors.Join(failures...)}
}

// textFor returns the query text for a frontier object: known text, then the
// relational store, then text-bearing metadata fields.
func (e *FrontierExpander) textFor(ctx context.Context, item frontierItem) (string, error) {
	if item.text != "" {
		return item.text, nil
	}
	var resolveErr error
	if e.resolver != nil {
		rctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
		obj, err := e.resolver.Resolve(rctx, item.ref)
		cancel()
		if err == nil && strings.TrimSpace(obj.Text()) != "" {
			return obj.Text(), nil
		}
		resolveErr = err
	}
	if text := metadataText(item.metadata); text != "" {
		return text, nil
	}
	if resolveErr != nil {
		return "", fmt.Errorf("no text content for %s: %w", item.ref, resolveErr)
	}
	return "", fmt.Errorf("no text content for %s", item.ref)
}

func metadataText(md map[string]any) string {
	for _, key := range []string{"content", "description", "title"} {
		if v, ok := md[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
