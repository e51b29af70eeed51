package graphstore

import (
	"context"

	"github.com/deckgraph/deckgraph/pkg/common"
)

// Store defines the interface for persisting and querying the conference
// knowledge graph. Writes follow an idempotent upsert contract: nodes merge
// by natural key with counter deltas, edges merge by endpoints with weight
// deltas. Applying the same delta twice therefore doubles counters without
// ever duplicating a node or an edge.
//
// Implementations map connectivity failures to *common.StoreConnectionError
// and missing lookups to *common.NotFoundError.
type Store interface {
	// VerifyConnectivity checks that the store is reachable before a run
	// starts.
	VerifyConnectivity(ctx context.Context) error

	// ApplyDelta applies one file's node and edge merge requests as a
	// single logical unit of work.
	ApplyDelta(ctx context.Context, delta common.GraphDelta) error

	// ClearAll removes every node and edge of all managed types. It is
	// invoked before any load within a run, never interleaved with one.
	ClearAll(ctx context.Context) error

	// Presentations returns all presentation nodes ordered by key.
	Presentations(ctx context.Context) ([]common.Presentation, error)

	// Presentation looks up one presentation by its natural key.
	Presentation(ctx context.Context, key string) (*common.Presentation, error)

	// Topics returns all topic nodes with cumulative mentions and the
	// count of distinct covering presentations, ordered by mentions
	// descending, name ascending.
	Topics(ctx context.Context) ([]TopicStats, error)

	// Topic looks up one topic by normalized name.
	Topic(ctx context.Context, name string) (*TopicStats, error)

	// CoveredTopics returns the topics a presentation covers with the
	// per-document mention weight of the COVERS edge.
	CoveredTopics(ctx context.Context, presentationKey string) ([]TopicWeight, error)

	// CoveringPresentations returns the presentations covering a topic,
	// ordered by COVERS weight descending, key ascending.
	CoveringPresentations(ctx context.Context, topicName string) ([]PresentationWeight, error)

	// RelatedTopics returns the RELATED_TO neighbors of a topic with
	// their co-occurrence weights, ordered by weight descending, name
	// ascending.
	RelatedTopics(ctx context.Context, topicName string) ([]TopicWeight, error)

	// PresentationKeywords returns the distinct keywords linked to any
	// slide of a presentation, ordered by frequency descending. A limit
	// of zero means no limit.
	PresentationKeywords(ctx context.Context, presentationKey string, limit int) ([]common.Keyword, error)

	// PresentationEntities returns the distinct entities referenced by
	// any slide of a presentation, ordered by mentions descending.
	PresentationEntities(ctx context.Context, presentationKey string, limit int) ([]common.Entity, error)

	// MatchNames finds topics and keywords whose normalized name, and
	// presentations whose title, contain the query, case-insensitive,
	// together with their associated presentations.
	MatchNames(ctx context.Context, query string) ([]NameMatch, error)

	// Statistics returns node counts by kind.
	Statistics(ctx context.Context) (Statistics, error)
}

// TopicStats is a topic node with its cumulative mention counter and the
// number of distinct presentations covering it.
type TopicStats struct {
	Name          string `json:"name"`
	TotalMentions int    `json:"total_mentions"`
	Presentations int    `json:"presentations"`
}

// TopicWeight is a topic and the weight of the edge it was reached over.
type TopicWeight struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

// PresentationWeight is a presentation and the weight of the edge it was
// reached over.
type PresentationWeight struct {
	Presentation common.Presentation `json:"presentation"`
	Weight       int                 `json:"weight"`
}

// NameMatch is one search hit over topic names, keyword names, or
// presentation titles. For a presentation hit, Presentations holds the
// matching presentation itself.
type NameMatch struct {
	Kind          common.NodeKind       `json:"kind"`
	Name          string                `json:"name"`
	Presentations []common.Presentation `json:"presentations"`
}

// Statistics holds node counts by kind.
type Statistics struct {
	Presentations int `json:"presentations"`
	Slides        int `json:"slides"`
	Topics        int `json:"topics"`
	Keywords      int `json:"keywords"`
	Entities      int `json:"entities"`
}
