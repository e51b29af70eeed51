package builder

import (
	"sort"
	"strings"

	"github.com/deckgraph/deckgraph/pkg/common"
	"github.com/deckgraph/deckgraph/pkg/extractor"
)

const (
	slideTopicLimit   = 5
	slideKeywordLimit = 10
)

// buildDelta turns an extracted deck into the node and edge merge requests
// for one presentation. Topic, keyword, and entity counters in the delta
// count slide sightings: a topic mentioned on three slides contributes a
// delta of three regardless of how often each slide repeats it. Per-slide
// repetition survives as the weight of the slide-level edge instead.
func (b *Builder) buildDelta(deck *extractor.Deck) *common.GraphDelta {
	p := deck.Presentation
	delta := &common.GraphDelta{Presentation: p, Slides: deck.Slides}

	topicSightings := make(map[string]*common.Topic)
	keywordSightings := make(map[string]*common.Keyword)
	entitySightings := make(map[string]*common.Entity)
	cooccurrence := make(map[topicPair]int)

	for _, slide := range deck.Slides {
		slideKey := slide.Key()
		delta.Edges = append(delta.Edges, common.Edge{
			Kind:     common.EdgeContains,
			FromKind: common.NodePresentation,
			FromKey:  p.Key,
			ToKind:   common.NodeSlide,
			ToKey:    slideKey,
			Weight:   1,
		})

		analysis := b.analyzer.Analyze(slide.Content, slideKeywordLimit)
		topics := topTopics(analysis.Topics, slideTopicLimit)

		for _, topic := range topics {
			key := common.NormalizeName(topic.Name)
			if seen := topicSightings[key]; seen != nil {
				seen.Mentions++
			} else {
				topicSightings[key] = &common.Topic{Name: topic.Name, Mentions: 1}
			}
			delta.Edges = append(delta.Edges, common.Edge{
				Kind:     common.EdgeMentions,
				FromKind: common.NodeSlide,
				FromKey:  slideKey,
				ToKind:   common.NodeTopic,
				ToKey:    key,
				Weight:   topic.Mentions,
			})
		}

		for i := 0; i < len(topics); i++ {
			for j := i + 1; j < len(topics); j++ {
				cooccurrence[orderedPair(topics[i].Name, topics[j].Name)]++
			}
		}

		for _, keyword := range analysis.Keywords {
			key := common.NormalizeName(keyword.Term)
			if seen := keywordSightings[key]; seen != nil {
				seen.Frequency++
			} else {
				keywordSightings[key] = &common.Keyword{Term: keyword.Term, Frequency: 1}
			}
			delta.Edges = append(delta.Edges, common.Edge{
				Kind:     common.EdgeContainsKeyword,
				FromKind: common.NodeSlide,
				FromKey:  slideKey,
				ToKind:   common.NodeKeyword,
				ToKey:    key,
				Weight:   keyword.Frequency,
			})
		}

		for _, entity := range analysis.Entities {
			key := entity.Key()
			if seen := entitySightings[key]; seen != nil {
				seen.Mentions++
			} else {
				entitySightings[key] = &common.Entity{Name: entity.Name, Type: entity.Type, Mentions: 1}
			}
			delta.Edges = append(delta.Edges, common.Edge{
				Kind:     common.EdgeReferences,
				FromKind: common.NodeSlide,
				FromKey:  slideKey,
				ToKind:   common.NodeEntity,
				ToKey:    key,
				Weight:   entity.Mentions,
			})
		}
	}

	// Document-level aggregate pass: topics that co-occur anywhere in the
	// deck relate, even when they never share a slide. Restricted to
	// topics the slide pass sighted so no edge points at an absent node.
	var slideContents []string
	for _, slide := range deck.Slides {
		slideContents = append(slideContents, slide.Content)
	}
	docTopics, _ := b.analyzer.ExtractTopicsAndEntities(strings.Join(slideContents, "\n\n"))
	var docNames []string
	for _, topic := range docTopics {
		key := common.NormalizeName(topic.Name)
		if topicSightings[key] != nil {
			docNames = append(docNames, key)
		}
	}
	sort.Strings(docNames)
	for i := 0; i < len(docNames); i++ {
		for j := i + 1; j < len(docNames); j++ {
			cooccurrence[orderedPair(docNames[i], docNames[j])]++
		}
	}

	for key, topic := range topicSightings {
		delta.Topics = append(delta.Topics, *topic)
		delta.Edges = append(delta.Edges, common.Edge{
			Kind:     common.EdgeCovers,
			FromKind: common.NodePresentation,
			FromKey:  p.Key,
			ToKind:   common.NodeTopic,
			ToKey:    key,
			Weight:   topic.Mentions,
		})
	}
	for _, keyword := range keywordSightings {
		delta.Keywords = append(delta.Keywords, *keyword)
	}
	for _, entity := range entitySightings {
		delta.Entities = append(delta.Entities, *entity)
	}

	pairs := make([]topicPair, 0, len(cooccurrence))
	for pair := range cooccurrence {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].a != pairs[j].a {
			return pairs[i].a < pairs[j].a
		}
		return pairs[i].b < pairs[j].b
	})
	for _, pair := range pairs {
		delta.Edges = append(delta.Edges, common.Edge{
			Kind:     common.EdgeRelatedTo,
			FromKind: common.NodeTopic,
			FromKey:  pair.a,
			ToKind:   common.NodeTopic,
			ToKey:    pair.b,
			Weight:   cooccurrence[pair],
		})
	}

	sort.Slice(delta.Topics, func(i, j int) bool { return delta.Topics[i].Name < delta.Topics[j].Name })
	sort.Slice(delta.Keywords, func(i, j int) bool { return delta.Keywords[i].Term < delta.Keywords[j].Term })
	sort.Slice(delta.Entities, func(i, j int) bool { return delta.Entities[i].Key() < delta.Entities[j].Key() })

	return delta
}

type topicPair struct {
	a, b string
}

func orderedPair(x, y string) topicPair {
	x, y = common.NormalizeName(x), common.NormalizeName(y)
	if x > y {
		x, y = y, x
	}
	return topicPair{a: x, b: y}
}

// topTopics keeps the most-mentioned topics of one slide, ties broken by
// name for stable output.
func topTopics(topics []common.Topic, limit int) []common.Topic {
	sorted := make([]common.Topic, len(topics))
	copy(sorted, topics)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Mentions != sorted[j].Mentions {
			return sorted[i].Mentions > sorted[j].Mentions
		}
		return sorted[i].Name < sorted[j].Name
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
