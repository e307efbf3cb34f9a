// Package weaviate answers similarity queries from a Weaviate class.
package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"

	"ideagraph/semnet/internal/network"
	"ideagraph/semnet/internal/source"
)

// Property names of the object class.
const (
	propType    = "objectType"
	propID      = "objectId"
	propTitle   = "title"
	propContent = "content"
)

// NewClient builds a client from a base URL such as http://localhost:8080.
func NewClient(rawURL, apiKey string) (*weaviate.Client, error) {
	u, err := url.Parse(strings.Trim(rawURL, "\"' "))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid weaviate url %q", network.ErrConfiguration, rawURL)
	}
	cfg := weaviate.Config{Host: u.Host, Scheme: u.Scheme}
	if apiKey != "" {
		cfg.AuthConfig = auth.ApiKey{Value: apiKey}
	}
	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating weaviate client: %w", err)
	}
	return client, nil
}

// Source is a SimilaritySource backed by one Weaviate class. With an
// Embedder it searches by vector; without one it relies on the class
// vectorizer through nearText.
type Source struct {
	client   *weaviate.Client
	class    string
	embedder source.Embedder
	policy   network.ScorePolicy
	logger   *zap.Logger
}

// New returns a Source over class.
func New(client *weaviate.Client, class string, embedder source.Embedder, policy network.ScorePolicy, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{client: client, class: class, embedder: embedder, policy: policy, logger: logger}
}

type hit struct {
	ObjectType string `json:"objectType"`
	ObjectID   string `json:"objectId"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Additional struct {
		ID        string   `json:"id"`
		Distance  *float64 `json:"distance"`
		Certainty *float64 `json:"certainty"`
	} `json:"_additional"`
}

type getResponse struct {
	Get map[string][]hit `json:"Get"`
}

// Query implements network.SimilaritySource. One extra result is requested
// so dropping the excluded object still leaves Limit candidates.
func (s *Source) Query(ctx context.Context, q network.Query) ([]network.Candidate, error) {
	fields := []graphql.Field{
		{Name: propType},
		{Name: propID},
		{Name: propTitle},
		{Name: propContent},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "id"},
			{Name: "distance"},
			{Name: "certainty"},
		}},
	}

	get := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(fields...).
		WithLimit(q.Limit + 1)

	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, q.Text)
		if err != nil {
			return nil, fmt.Errorf("embedding query text: %w", err)
		}
		get = get.WithNearVector(s.client.GraphQL().NearVectorArgBuilder().WithVector(vec))
	} else {
		get = get.WithNearText(s.client.GraphQL().NearTextArgBuilder().WithConcepts([]string{q.Text}))
	}

	if q.ObjectType != "" {
		get = get.WithWhere(filters.Where().
			WithPath([]string{propType}).
			WithOperator(filters.Equal).
			WithValueString(q.ObjectType))
	}

	resp, err := get.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("weaviate search failed: %s", strings.Join(msgs, "; "))
	}

	hits, err := parseHits(resp, s.class)
	if err != nil {
		return nil, err
	}

	cands := make([]network.Candidate, 0, len(hits))
	for _, h := range hits {
		md := map[string]any{"title": h.Title}
		if h.Content != "" {
			md["content"] = h.Content
		}
		if h.Additional.ID != "" {
			md["weaviateId"] = h.Additional.ID
		}
		cands = append(cands, network.Candidate{
			Ref:      network.ObjectRef{Type: h.ObjectType, ID: h.ObjectID},
			Score:    s.policy.Normalize(network.RawScore{Certainty: h.Additional.Certainty, Distance: h.Additional.Distance}),
			Metadata: md,
		})
	}
	return source.TrimResults(cands, q.Exclude, q.Limit), nil
}

func parseHits(resp *models.GraphQLResponse, class string) ([]hit, error) {
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}
	var parsed getResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse weaviate results: %w", err)
	}
	return parsed.Get[class], nil
}

// ObjectUUID derives the stable Weaviate id of an object.
func ObjectUUID(ref network.ObjectRef) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("semnet:"+ref.String())).String()
}

// ClassSchema describes the object class. vectorizer is "none" when vectors
// are supplied by the caller.
func ClassSchema(class, vectorizer string) *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       class,
		Description: "A knowledge object indexed for semantic networks.",
		Vectorizer:  vectorizer,
		Properties: []*models.Property{
			{Name: propType, DataType: []string{"text"}, IndexFilterable: indexFilterable, Tokenization: "field"},
			{Name: propID, DataType: []string{"text"}, IndexFilterable: indexFilterable, Tokenization: "field"},
			{Name: propTitle, DataType: []string{"text"}, Tokenization: "word"},
			{Name: propContent, DataType: []string{"text"}, Tokenization: "word"},
		},
	}
}

// EnsureSchema creates the class when it does not exist yet.
func (s *Source) EnsureSchema(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(s.class).Do(ctx)
	if err != nil {
		return fmt.Errorf("checking class %s: %w", s.class, err)
	}
	if exists {
		return nil
	}
	vectorizer := "none"
	if s.embedder == nil {
		vectorizer = "text2vec-openai"
	}
	s.logger.Info("creating weaviate class", zap.String("class", s.class), zap.String("vectorizer", vectorizer))
	if err := s.client.Schema().ClassCreator().WithClass(ClassSchema(s.class, vectorizer)).Do(ctx); err != nil {
		return fmt.Errorf("creating class %s: %w", s.class, err)
	}
	return nil
}

// Upsert writes obj into the class under its stable id. vector may be nil
// when the class has its own vectorizer.
func (s *Source) Upsert(ctx context.Context, obj *network.Object, vector []float32) error {
	id := ObjectUUID(obj.Ref)
	props := map[string]interface{}{
		propType:    obj.Ref.Type,
		propID:      obj.Ref.ID,
		propTitle:   obj.Title,
		propContent: obj.Content,
	}

	exists, err := s.client.Data().Checker().WithClassName(s.class).WithID(id).Do(ctx)
	if err != nil {
		return fmt.Errorf("checking %s in weaviate: %w", obj.Ref, err)
	}
	if exists {
		updater := s.client.Data().Updater().
			WithClassName(s.class).
			WithID(id).
			WithProperties(props)
		if vector != nil {
			updater = updater.WithVector(vector)
		}
		if err := updater.Do(ctx); err != nil {
			return fmt.Errorf("updating %s in weaviate: %w", obj.Ref, err)
		}
		return nil
	}

	creator := s.client.Data().Creator().
		WithClassName(s.class).
		WithID(id).
		WithProperties(props)
	if vector != nil {
		creator = creator.WithVector(vector)
	}
	if _, err := creator.Do(ctx); err != nil {
		return fmt.Errorf("creating %s in weaviate: %w", obj.Ref, err)
	}
	return nil
}
