package network

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Build outcomes reported to the Recorder.
const (
	OutcomeSuccess          = "success"
	OutcomeSeedUnresolvable = "seed_unresolvable"
	OutcomeConfigurationErr = "configuration_error"
	OutcomeCanceled         = "canceled"
)

const maxSnippetDetail = 160

// Options carries the collaborators of an Assembler.
type Options struct {
	Source     SimilaritySource // required
	Resolver   ObjectResolver   // required, resolves the seed
	Summarizer SummarySource    // nil disables summaries
	Hierarchy  HierarchySource  // nil disables hierarchy merging
	Logger     *zap.Logger
	Recorder   Recorder
}

// Assembler orchestrates a network build:
// Validating -> Expanding -> MergingHierarchy -> Summarizing -> Done.
// It holds no per-build state and is safe for concurrent Build calls.
type Assembler struct {
	cfg        Config
	classifier *LevelClassifier
	expander   *FrontierExpander
	merger     *HierarchyMerger
	summarizer SummarySource
	resolver   ObjectResolver
	logger     *zap.Logger
	recorder   Recorder
}

// NewAssembler validates cfg and wires the pipeline.
func NewAssembler(cfg Config, opts Options) (*Assembler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("%w: similarity source is required", ErrConfiguration)
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("%w: object resolver is required", ErrConfiguration)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	classifier, err := NewLevelClassifier(cfg.Thresholds)
	if err != nil {
		return nil, err
	}

	a := &Assembler{
		cfg:        cfg,
		classifier: classifier,
		expander:   NewFrontierExpander(opts.Source, opts.Resolver, classifier, cfg, logger, recorder),
		summarizer: opts.Summarizer,
		resolver:   opts.Resolver,
		logger:     logger,
		recorder:   recorder,
	}
	if opts.Hierarchy != nil {
		a.merger = NewHierarchyMerger(opts.Hierarchy, cfg, logger)
	}
	return a, nil
}

// Config returns the engine configuration.
func (a *Assembler) Config() Config {
	return a.cfg
}

// Build constructs the similarity network for req. The returned Result is
// never nil: fatal errors (ErrConfiguration, ErrSeedUnresolvable, ErrCanceled)
// are also returned as err, with the Result rendered by Failure.
func (a *Assembler) Build(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	log := a.logger.With(
		zap.String("build_id", uuid.NewString()),
		zap.String("seed_type", req.Seed.Type),
		zap.String("seed_id", req.Seed.ID),
		zap.Int("depth", req.Depth),
	)

	res, err := a.build(ctx, req, log)
	if err != nil {
		a.recorder.BuildCompleted(outcomeOf(err), time.Since(start), 0, 0)
		log.Info("network build failed", zap.Error(err))
		return Failure(err), err
	}

	a.recorder.BuildCompleted(OutcomeSuccess, time.Since(start), len(res.Nodes), len(res.Edges))
	log.Debug("network built",
		zap.Int("nodes", len(res.Nodes)),
		zap.Int("edges", len(res.Edges)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (a *Assembler) build(ctx context.Context, req Request, log *zap.Logger) (*Result, error) {
	if err := a.cfg.validateRequest(req); err != nil {
		return nil, err
	}

	seed, err := a.resolveSeed(ctx, req.Seed)
	if err != nil {
		return nil, err
	}

	st := newGraphState(seed)
	if err := a.expander.Expand(ctx, st, seed, req.Depth); err != nil {
		return nil, err
	}

	if req.IncludeHierarchy && a.merger != nil {
		a.merger.Merge(ctx, st)
	}

	levels := a.levels(st)
	if req.GenerateSummaries {
		if a.summarizer == nil {
			log.Warn("summaries requested but no summarizer is configured")
			st.warnf("summaries requested but no summarizer is configured")
		} else {
			a.summarize(ctx, st, levels, seedContext(seed), log)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCanceled, err)
	}

	nodes, edges := st.snapshot()
	return &Result{
		Success:  true,
		Nodes:    nodes,
		Edges:    edges,
		Levels:   levels,
		Warnings: st.warnings,
	}, nil
}

func (a *Assembler) resolveSeed(ctx context.Context, ref ObjectRef) (*Object, error) {
	rctx, cancel := context.WithTimeout(ctx, a.cfg.QueryTimeout)
	defer cancel()

	obj, err := a.resolver.Resolve(rctx, ref)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
		}
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrSeedUnresolvable, ref)
		}
		return nil, fmt.Errorf("%w: resolving %s: %v", ErrSeedUnresolvable, ref, err)
	}
	if obj == nil || strings.TrimSpace(obj.Text()) == "" {
		return nil, fmt.Errorf("%w: %s has no text content", ErrSeedUnresolvable, ref)
	}
	// The store may return a canonical ref; keep the requested identity.
	obj.Ref = ref
	return obj, nil
}

// levels returns one entry per configured tier with its node count.
func (a *Assembler) levels(st *graphState) map[int]LevelSummary {
	levels := make(map[int]LevelSummary, a.classifier.Levels())
	for lvl := 1; lvl <= a.classifier.Levels(); lvl++ {
		levels[lvl] = LevelSummary{
			Level:     lvl,
			Threshold: a.classifier.Threshold(lvl),
			NodeCount: len(st.tier(lvl)),
		}
	}
	return levels
}

// summarize fills Summary for every non-empty tier. Tiers run concurrently;
// a failed tier keeps an empty summary and does not affect the others.
func (a *Assembler) summarize(ctx context.Context, st *graphState, levels map[int]LevelSummary, seedTitle string, log *zap.Logger) {
	n := a.classifier.Levels()
	texts := make([]string, n+1)
	errs := make([]error, n+1)

	var g errgroup.Group
	g.SetLimit(a.cfg.Concurrency)
	for lvl := 1; lvl <= n; lvl++ {
		nodes := st.tier(lvl)
		if len(nodes) == 0 {
			continue
		}
		snippets := make([]string, 0, len(nodes))
		for _, node := range nodes {
			snippets = append(snippets, snippet(node))
		}
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, a.cfg.SummaryTimeout)
			defer cancel()
			text, err := a.summarizer.Summarize(sctx, snippets, seedTitle)
			if err != nil {
				errs[lvl] = err
				return nil
			}
			texts[lvl] = strings.TrimSpace(text)
			return nil
		})
	}
	_ = g.Wait()

	for lvl := 1; lvl <= n; lvl++ {
		if errs[lvl] != nil {
			a.recorder.SummaryFailed(lvl)
			log.Warn("level summary failed", zap.Int("level", lvl), zap.Error(errs[lvl]))
			st.warnf("summary for level %d failed: %v", lvl, errs[lvl])
			continue
		}
		s := levels[lvl]
		s.Summary = texts[lvl]
		levels[lvl] = s
	}
}

func snippet(n *Node) string {
	label := n.Label()
	for _, key := range []string{"description", "content"} {
		if v, ok := n.Properties[key].(string); ok {
			v = strings.Join(strings.Fields(v), " ")
			if v == "" || v == label {
				continue
			}
			if r := []rune(v); len(r) > maxSnippetDetail {
				v = string(r[:maxSnippetDetail]) + "..."
			}
			return label + ": " + v
		}
	}
	return label
}

func seedContext(seed *Object) string {
	if seed.Title != "" {
		return seed.Title
	}
	return seed.Ref.String()
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return OutcomeConfigurationErr
	case errors.Is(err, ErrCanceled):
		return OutcomeCanceled
	default:
		return OutcomeSeedUnresolvable
	}
}
