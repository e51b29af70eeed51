// Package insight provides the read-only query tools over a built graph:
// topic rankings, agenda track suggestions, presentation similarity, and
// topic-scoped material assembly for content writing. All ranked results
// tie-break on natural key so repeated queries return identical output.
package insight

import (
	"context"
	"sort"

	"github.com/deckgraph/deckgraph/pkg/common"
	"github.com/deckgraph/deckgraph/pkg/graphstore"
)

const (
	// A RELATED_TO neighbor joins an agenda track only when the topics
	// co-occurred at least this often.
	minTrackCooccurrence = 2
	trackRelatedLimit    = 5

	summaryTopicLimit   = 5
	summaryKeywordLimit = 10
	summaryEntityLimit  = 10

	blogKeywordLimit = 10
	blogRelatedLimit = 5
)

// Tools answers queries against a populated graph store.
type Tools struct {
	store graphstore.Store
}

// New creates query tools over the given store.
func New(store graphstore.Store) *Tools {
	return &Tools{store: store}
}

// ListTopics returns every topic ranked by cumulative mentions.
func (t *Tools) ListTopics(ctx context.Context) ([]graphstore.TopicStats, error) {
	return t.store.Topics(ctx)
}

// Statistics returns node counts per kind.
func (t *Tools) Statistics(ctx context.Context) (graphstore.Statistics, error) {
	return t.store.Statistics(ctx)
}

// AgendaTrack is a suggested conference track: a primary topic grouped
// with its strongest related topics.
type AgendaTrack struct {
	Topic         string   `json:"topic"`
	Presentations int      `json:"presentations"`
	TotalMentions int      `json:"total_mentions"`
	RelatedTopics []string `json:"related_topics,omitempty"`
}

// AgendaSuggestions ranks topics by how many distinct presentations cover
// them and builds a track for each of the top topK. Topics covered by
// fewer than minPresentations presentations are excluded.
func (t *Tools) AgendaSuggestions(ctx context.Context, topK, minPresentations int) ([]AgendaTrack, error) {
	topics, err := t.store.Topics(ctx)
	if err != nil {
		return nil, err
	}

	ranked := make([]graphstore.TopicStats, 0, len(topics))
	for _, topic := range topics {
		if topic.Presentations >= minPresentations {
			ranked = append(ranked, topic)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Presentations != ranked[j].Presentations {
			return ranked[i].Presentations > ranked[j].Presentations
		}
		return ranked[i].Name < ranked[j].Name
	})
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}

	tracks := make([]AgendaTrack, 0, len(ranked))
	for _, topic := range ranked {
		track := AgendaTrack{
			Topic:         topic.Name,
			Presentations: topic.Presentations,
			TotalMentions: topic.TotalMentions,
		}

		related, err := t.store.RelatedTopics(ctx, topic.Name)
		if err != nil {
			return nil, err
		}
		for _, neighbor := range related {
			if neighbor.Weight < minTrackCooccurrence {
				continue
			}
			track.RelatedTopics = append(track.RelatedTopics, neighbor.Name)
			if len(track.RelatedTopics) == trackRelatedLimit {
				break
			}
		}

		tracks = append(tracks, track)
	}
	return tracks, nil
}

// RelatedPresentation pairs a presentation with the number of topics it
// shares with the anchor presentation.
type RelatedPresentation struct {
	Presentation common.Presentation `json:"presentation"`
	SharedTopics int                 `json:"shared_topics"`
}

// RelatedPresentations finds the presentations most similar to the one
// with the given key, measured as the count of topics both cover. Results
// are ordered by overlap descending, then presentation key ascending.
func (t *Tools) RelatedPresentations(ctx context.Context, presentationKey string, limit int) ([]RelatedPresentation, error) {
	covered, err := t.store.CoveredTopics(ctx, presentationKey)
	if err != nil {
		return nil, err
	}

	overlap := make(map[string]*RelatedPresentation)
	for _, topic := range covered {
		covering, err := t.store.CoveringPresentations(ctx, topic.Name)
		if err != nil {
			return nil, err
		}
		for _, other := range covering {
			if other.Presentation.Key == presentationKey {
				continue
			}
			if entry := overlap[other.Presentation.Key]; entry != nil {
				entry.SharedTopics++
			} else {
				overlap[other.Presentation.Key] = &RelatedPresentation{
					Presentation: other.Presentation,
					SharedTopics: 1,
				}
			}
		}
	}

	result := make([]RelatedPresentation, 0, len(overlap))
	for _, entry := range overlap {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SharedTopics != result[j].SharedTopics {
			return result[i].SharedTopics > result[j].SharedTopics
		}
		return result[i].Presentation.Key < result[j].Presentation.Key
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// PresentationMaterial is one covering presentation with its strongest
// keywords, as raw material for writing about a topic.
type PresentationMaterial struct {
	Presentation common.Presentation `json:"presentation"`
	CoverWeight  int                 `json:"cover_weight"`
	Keywords     []common.Keyword    `json:"keywords,omitempty"`
}

// BlogMaterial bundles everything the graph knows about one topic.
type BlogMaterial struct {
	Topic         string                 `json:"topic"`
	TotalMentions int                    `json:"total_mentions"`
	Presentations []PresentationMaterial `json:"presentations,omitempty"`
	RelatedTopics []string               `json:"related_topics,omitempty"`
}

// BlogPostMaterial gathers the covering presentations, their keyword sets,
// and the related topics for the named topic. An unknown topic fails with
// a NotFoundError rather than returning an empty result.
func (t *Tools) BlogPostMaterial(ctx context.Context, topicName string) (*BlogMaterial, error) {
	topic, err := t.store.Topic(ctx, topicName)
	if err != nil {
		return nil, err
	}

	material := &BlogMaterial{
		Topic:         topic.Name,
		TotalMentions: topic.TotalMentions,
	}

	covering, err := t.store.CoveringPresentations(ctx, topic.Name)
	if err != nil {
		return nil, err
	}
	for _, entry := range covering {
		keywords, err := t.store.PresentationKeywords(ctx, entry.Presentation.Key, blogKeywordLimit)
		if err != nil {
			return nil, err
		}
		material.Presentations = append(material.Presentations, PresentationMaterial{
			Presentation: entry.Presentation,
			CoverWeight:  entry.Weight,
			Keywords:     keywords,
		})
	}

	related, err := t.store.RelatedTopics(ctx, topic.Name)
	if err != nil {
		return nil, err
	}
	for _, neighbor := range related {
		material.RelatedTopics = append(material.RelatedTopics, neighbor.Name)
		if len(material.RelatedTopics) == blogRelatedLimit {
			break
		}
	}

	return material, nil
}

// Search matches topic names, keyword names, and presentation titles by
// case-insensitive substring and returns each hit with its associated
// presentations.
func (t *Tools) Search(ctx context.Context, query string) ([]graphstore.NameMatch, error) {
	return t.store.MatchNames(ctx, query)
}

// PresentationSummary describes one presentation with its strongest
// topics, keywords, and entities.
type PresentationSummary struct {
	Presentation common.Presentation      `json:"presentation"`
	Topics       []graphstore.TopicWeight `json:"topics,omitempty"`
	Keywords     []common.Keyword         `json:"keywords,omitempty"`
	Entities     []common.Entity          `json:"entities,omitempty"`
}

// Summary assembles the summary for the presentation with the given key.
func (t *Tools) Summary(ctx context.Context, presentationKey string) (*PresentationSummary, error) {
	presentation, err := t.store.Presentation(ctx, presentationKey)
	if err != nil {
		return nil, err
	}

	topics, err := t.store.CoveredTopics(ctx, presentationKey)
	if err != nil {
		return nil, err
	}
	if len(topics) > summaryTopicLimit {
		topics = topics[:summaryTopicLimit]
	}

	keywords, err := t.store.PresentationKeywords(ctx, presentationKey, summaryKeywordLimit)
	if err != nil {
		return nil, err
	}
	entities, err := t.store.PresentationEntities(ctx, presentationKey, summaryEntityLimit)
	if err != nil {
		return nil, err
	}

	return &PresentationSummary{
		Presentation: *presentation,
		Topics:       topics,
		Keywords:     keywords,
		Entities:     entities,
	}, nil
}
