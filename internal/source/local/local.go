// Package local answers similarity queries from embeddings stored in the
// SQLite object store.
package local

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"ideagraph/semnet/internal/db"
	"ideagraph/semnet/internal/graph"
	"ideagraph/semnet/internal/network"
	"ideagraph/semnet/internal/source"
)

// Source is a brute-force cosine SimilaritySource over db embeddings.
type Source struct {
	store    *db.DB
	embedder source.Embedder
	policy   network.ScorePolicy
	logger   *zap.Logger
}

// New returns a Source. embedder may be nil, in which case only objects
// with a stored embedding can be expanded.
func New(store *db.DB, embedder source.Embedder, policy network.ScorePolicy, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{store: store, embedder: embedder, policy: policy, logger: logger}
}

// Query implements network.SimilaritySource.
func (s *Source) Query(ctx context.Context, q network.Query) ([]network.Candidate, error) {
	vec, err := s.queryVector(ctx, q)
	if err != nil {
		return nil, err
	}

	candidates, err := s.store.EmbeddingsByType(ctx, q.ObjectType)
	if err != nil {
		return nil, fmt.Errorf("loading embeddings: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches := graph.FindSimilar(vec, candidates, graph.SimilarQuery{
		Exclude:       q.Exclude,
		TopN:          q.Limit,
		MinSimilarity: -1,
	})
	out := make([]network.Candidate, 0, len(matches))
	for _, m := range matches {
		md := make(map[string]any, len(m.Metadata)+2)
		for k, v := range m.Metadata {
			md[k] = v
		}
		md["title"] = m.Title
		if m.Content != "" {
			md["content"] = m.Content
		}
		out = append(out, network.Candidate{
			Ref:      m.Ref,
			Score:    s.policy.Normalize(source.CosineRaw(m.Similarity)),
			Metadata: md,
		})
	}
	s.logger.Debug("local similarity query",
		zap.String("exclude", q.Exclude.String()),
		zap.String("object_type", q.ObjectType),
		zap.Int("scanned", len(candidates)),
		zap.Int("returned", len(out)))
	return out, nil
}

// queryVector prefers the stored embedding of the object being expanded so
// the query runs in exactly the space it was indexed in.
func (s *Source) queryVector(ctx context.Context, q network.Query) ([]float32, error) {
	if q.Exclude.ID != "" {
		vec, err := s.store.GetEmbedding(ctx, q.Exclude.Type, q.Exclude.ID)
		if err != nil {
			return nil, fmt.Errorf("loading embedding of %s: %w", q.Exclude, err)
		}
		if len(vec) > 0 && !zeroVector(vec) {
			return vec, nil
		}
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("%s has no stored embedding and no embedder is configured", q.Exclude)
	}
	vec, err := s.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("embedding query text: %w", err)
	}
	return vec, nil
}

func zeroVector(v []float32) bool {
	var sum float64
	for _, f := range v {
		sum += math.Abs(float64(f))
	}
	return sum == 0
}
