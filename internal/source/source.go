// Package source holds the similarity-source plumbing shared by the vector
// store adapters.
package source

import (
	"context"
	"fmt"
	"strings"

	"ideagraph/semnet/internal/network"
)

// Embedder turns text into a vector in the same space as the stored objects.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Backend names accepted by configuration.
const (
	BackendLocal    = "local"
	BackendWeaviate = "weaviate"
)

// CosineRaw reports a cosine similarity the way Weaviate does for cosine
// indexes: distance = 1 - cos and certainty = 1 - distance/2.
func CosineRaw(cos float64) network.RawScore {
	distance := 1 - cos
	certainty := 1 - distance/2
	return network.RawScore{Certainty: &certainty, Distance: &distance}
}

// TrimResults drops the excluded object and cuts the list to limit. The
// remaining order is preserved.
func TrimResults(cands []network.Candidate, exclude network.ObjectRef, limit int) []network.Candidate {
	out := cands[:0]
	for _, c := range cands {
		if c.Ref == exclude || c.Ref.ID == "" {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// ValidateBackend rejects unknown backend names.
func ValidateBackend(name string) error {
	switch strings.ToLower(name) {
	case BackendLocal, BackendWeaviate:
		return nil
	default:
		return fmt.Errorf("%w: unknown similarity backend %q", network.ErrConfiguration, name)
	}
}
