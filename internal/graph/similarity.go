package graph

import (
	"math"
	"sort"

	"ideagraph/semnet/internal/db"
	"ideagraph/semnet/internal/network"
)

// Match is a stored object with its cosine similarity to a query vector.
type Match struct {
	Ref        network.ObjectRef
	Title      string
	Content    string
	Metadata   map[string]any
	Similarity float64
}

// SimilarQuery bounds a FindSimilar scan.
type SimilarQuery struct {
	Exclude       network.ObjectRef // skipped when non-zero
	TopN          int               // <= 0 keeps every match
	MinSimilarity float64
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector has zero norm or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na := norm(a)
	if na == 0 {
		return 0
	}
	return cosineWithNorm(a, na, b)
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

func cosineWithNorm(a []float32, na float64, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, sumB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		sumB += float64(b[i]) * float64(b[i])
	}
	if sumB == 0 {
		return 0
	}
	return dot / (na * math.Sqrt(sumB))
}

// FindSimilar scans candidates and returns those at or above q.MinSimilarity,
// most similar first. Equal similarities keep candidate order.
func FindSimilar(target []float32, candidates []db.ObjectEmbedding, q SimilarQuery) []Match {
	nt := norm(target)
	if nt == 0 {
		return nil
	}

	var results []Match
	for _, c := range candidates {
		ref := network.ObjectRef{Type: c.Type, ID: c.ID}
		if q.Exclude.ID != "" && ref == q.Exclude {
			continue
		}
		sim := cosineWithNorm(target, nt, c.Embedding)
		if sim < q.MinSimilarity {
			continue
		}
		results = append(results, Match{
			Ref:        ref,
			Title:      c.Title,
			Content:    c.Content,
			Metadata:   c.Metadata,
			Similarity: sim,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if q.TopN > 0 && len(results) > q.TopN {
		results = results[:q.TopN]
	}
	return results
}
