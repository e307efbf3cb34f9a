package network

import (
	"context"
	"time"
)

// Query is one nearest-neighbour request against the vector store.
type Query struct {
	Text       string
	ObjectType string // empty means any type
	Exclude    ObjectRef
	Limit      int
}

// Candidate is one neighbour returned by a SimilaritySource. Score is already
// normalized to [0,1] by the adapter's ScorePolicy.
type Candidate struct {
	Ref      ObjectRef
	Score    float64
	Metadata map[string]any
}

// SimilaritySource abstracts the vector store. Implementations must be safe
// for concurrent use.
type SimilaritySource interface {
	Query(ctx context.Context, q Query) ([]Candidate, error)
}

// SummarySource produces a short natural-language summary of snippets.
type SummarySource interface {
	Summarize(ctx context.Context, snippets []string, contextTitle string) (string, error)
}

// Relative is a structural parent or child of an object.
type Relative struct {
	Ref             ObjectRef
	Title           string
	InheritsContext bool
}

// HierarchySource exposes explicit parent/child relationships.
type HierarchySource interface {
	Parents(ctx context.Context, ref ObjectRef) ([]Relative, error)
	Children(ctx context.Context, ref ObjectRef) ([]Relative, error)
}

// Object is a resolved knowledge object with its text content.
type Object struct {
	Ref        ObjectRef
	Title      string
	Content    string
	Properties map[string]any
}

// Text returns the text used to query the vector store.
func (o *Object) Text() string {
	if o.Content != "" {
		return o.Content
	}
	return o.Title
}

// ObjectResolver loads objects from the relational store. It returns
// ErrNotFound (possibly wrapped) for unknown objects.
type ObjectResolver interface {
	Resolve(ctx context.Context, ref ObjectRef) (*Object, error)
}

// Recorder observes build outcomes. All methods must be safe for concurrent use.
type Recorder interface {
	BuildCompleted(outcome string, duration time.Duration, nodes, edges int)
	QueryFailed(objectType string)
	SummaryFailed(level int)
}

type nopRecorder struct{}

func (nopRecorder) BuildCompleted(string, time.Duration, int, int) {}
func (nopRecorder) QueryFailed(string)                             {}
func (nopRecorder) SummaryFailed(int)                              {}
