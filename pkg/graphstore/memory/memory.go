package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/deckgraph/deckgraph/pkg/common"
	"github.com/deckgraph/deckgraph/pkg/graphstore"
)

// Store is an in-process implementation of graphstore.Store with the same
// merge-by-natural-key semantics as the Cypher implementation. It backs
// the pipeline tests and serves as the reference model for upsert
// idempotence.
type Store struct {
	mu            sync.RWMutex
	presentations map[string]common.Presentation
	slides        map[string]common.Slide
	topics        map[string]common.Topic
	keywords      map[string]common.Keyword
	entities      map[string]common.Entity
	edges         map[edgeKey]int
}

type edgeKey struct {
	kind common.EdgeKind
	from string
	to   string
}

// New creates an empty in-memory store.
func New() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.presentations = make(map[string]common.Presentation)
	s.slides = make(map[string]common.Slide)
	s.topics = make(map[string]common.Topic)
	s.keywords = make(map[string]common.Keyword)
	s.entities = make(map[string]common.Entity)
	s.edges = make(map[edgeKey]int)
}

// VerifyConnectivity always succeeds for the in-memory store.
func (s *Store) VerifyConnectivity(ctx context.Context) error { return nil }

// ClearAll removes every node and edge.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

// ApplyDelta merges one file's contribution into the graph under a single
// lock, making the whole delta one atomic unit toward readers.
func (s *Store) ApplyDelta(ctx context.Context, delta common.GraphDelta) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Presentation and slide attributes are overwritten on reload. Slides
	// past the new deck's length are pruned so the slide count attribute
	// stays equal to the number of CONTAINS edges.
	s.presentations[delta.Presentation.Key] = delta.Presentation
	for key, slide := range s.slides {
		if slide.PresentationKey == delta.Presentation.Key && slide.Number > delta.Presentation.TotalSlides {
			delete(s.slides, key)
			s.dropSlideEdgesLocked(key)
		}
	}
	for _, slide := range delta.Slides {
		s.slides[slide.Key()] = slide
	}

	// Counter nodes accumulate; the canonical display name of the first
	// sighting wins.
	for _, topic := range delta.Topics {
		key := common.NormalizeName(topic.Name)
		if existing, ok := s.topics[key]; ok {
			existing.Mentions += topic.Mentions
			s.topics[key] = existing
			continue
		}
		s.topics[key] = topic
	}
	for _, keyword := range delta.Keywords {
		key := common.NormalizeName(keyword.Term)
		if existing, ok := s.keywords[key]; ok {
			existing.Frequency += keyword.Frequency
			s.keywords[key] = existing
			continue
		}
		s.keywords[key] = keyword
	}
	for _, entity := range delta.Entities {
		key := entity.Key()
		if existing, ok := s.entities[key]; ok {
			existing.Mentions += entity.Mentions
			s.entities[key] = existing
			continue
		}
		s.entities[key] = entity
	}

	for _, edge := range delta.Edges {
		weight := edge.Weight
		if weight <= 0 {
			weight = 1
		}
		s.edges[normalizeEdge(edge)] += weight
	}

	return nil
}

func (s *Store) dropSlideEdgesLocked(slideKey string) {
	for edge := range s.edges {
		if edge.from == slideKey || (edge.kind == common.EdgeContains && edge.to == slideKey) {
			delete(s.edges, edge)
		}
	}
}

// normalizeEdge maps an edge request to its storage key. RELATED_TO has
// bidirectional semantics, so the endpoint pair is ordered to collapse
// both directions onto one edge.
func normalizeEdge(edge common.Edge) edgeKey {
	from, to := storageKey(edge.FromKind, edge.FromKey), storageKey(edge.ToKind, edge.ToKey)
	if edge.Kind == common.EdgeRelatedTo && to < from {
		from, to = to, from
	}
	return edgeKey{kind: edge.Kind, from: from, to: to}
}

func storageKey(kind common.NodeKind, key string) string {
	switch kind {
	case common.NodeTopic, common.NodeKeyword:
		return common.NormalizeName(key)
	default:
		return key
	}
}

func (s *Store) Presentations(ctx context.Context) ([]common.Presentation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]common.Presentation, 0, len(s.presentations))
	for _, p := range s.presentations {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (s *Store) Presentation(ctx context.Context, key string) (*common.Presentation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.presentations[key]
	if !ok {
		return nil, &common.NotFoundError{Kind: common.NodePresentation, Key: key}
	}
	return &p, nil
}

func (s *Store) Topics(ctx context.Context) ([]graphstore.TopicStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]graphstore.TopicStats, 0, len(s.topics))
	for key, topic := range s.topics {
		result = append(result, graphstore.TopicStats{
			Name:          topic.Name,
			TotalMentions: topic.Mentions,
			Presentations: s.coveringCountLocked(key),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalMentions != result[j].TotalMentions {
			return result[i].TotalMentions > result[j].TotalMentions
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (s *Store) Topic(ctx context.Context, name string) (*graphstore.TopicStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := common.NormalizeName(name)
	topic, ok := s.topics[key]
	if !ok {
		return nil, &common.NotFoundError{Kind: common.NodeTopic, Key: key}
	}
	return &graphstore.TopicStats{
		Name:          topic.Name,
		TotalMentions: topic.Mentions,
		Presentations: s.coveringCountLocked(key),
	}, nil
}

func (s *Store) coveringCountLocked(topicKey string) int {
	count := 0
	for edge := range s.edges {
		if edge.kind == common.EdgeCovers && edge.to == topicKey {
			count++
		}
	}
	return count
}

func (s *Store) CoveredTopics(ctx context.Context, presentationKey string) ([]graphstore.TopicWeight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.presentations[presentationKey]; !ok {
		return nil, &common.NotFoundError{Kind: common.NodePresentation, Key: presentationKey}
	}

	var result []graphstore.TopicWeight
	for edge, weight := range s.edges {
		if edge.kind != common.EdgeCovers || edge.from != presentationKey {
			continue
		}
		result = append(result, graphstore.TopicWeight{Name: s.topics[edge.to].Name, Weight: weight})
	}
	sortTopicWeights(result)
	return result, nil
}

func (s *Store) CoveringPresentations(ctx context.Context, topicName string) ([]graphstore.PresentationWeight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := common.NormalizeName(topicName)
	if _, ok := s.topics[key]; !ok {
		return nil, &common.NotFoundError{Kind: common.NodeTopic, Key: key}
	}

	var result []graphstore.PresentationWeight
	for edge, weight := range s.edges {
		if edge.kind != common.EdgeCovers || edge.to != key {
			continue
		}
		result = append(result, graphstore.PresentationWeight{
			Presentation: s.presentations[edge.from],
			Weight:       weight,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Weight != result[j].Weight {
			return result[i].Weight > result[j].Weight
		}
		return result[i].Presentation.Key < result[j].Presentation.Key
	})
	return result, nil
}

func (s *Store) RelatedTopics(ctx context.Context, topicName string) ([]graphstore.TopicWeight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := common.NormalizeName(topicName)
	if _, ok := s.topics[key]; !ok {
		return nil, &common.NotFoundError{Kind: common.NodeTopic, Key: key}
	}

	var result []graphstore.TopicWeight
	for edge, weight := range s.edges {
		if edge.kind != common.EdgeRelatedTo {
			continue
		}
		var neighbor string
		switch key {
		case edge.from:
			neighbor = edge.to
		case edge.to:
			neighbor = edge.from
		default:
			continue
		}
		result = append(result, graphstore.TopicWeight{Name: s.topics[neighbor].Name, Weight: weight})
	}
	sortTopicWeights(result)
	return result, nil
}

func sortTopicWeights(weights []graphstore.TopicWeight) {
	sort.Slice(weights, func(i, j int) bool {
		if weights[i].Weight != weights[j].Weight {
			return weights[i].Weight > weights[j].Weight
		}
		return weights[i].Name < weights[j].Name
	})
}

func (s *Store) PresentationKeywords(ctx context.Context, presentationKey string, limit int) ([]common.Keyword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]int)
	for edge, weight := range s.edges {
		if edge.kind != common.EdgeContainsKeyword {
			continue
		}
		slide, ok := s.slides[edge.from]
		if !ok || slide.PresentationKey != presentationKey {
			continue
		}
		totals[edge.to] += weight
	}

	result := make([]common.Keyword, 0, len(totals))
	for key, freq := range totals {
		result = append(result, common.Keyword{Term: s.keywords[key].Term, Frequency: freq})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Frequency != result[j].Frequency {
			return result[i].Frequency > result[j].Frequency
		}
		return result[i].Term < result[j].Term
	})
	return clampKeywords(result, limit), nil
}

func (s *Store) PresentationEntities(ctx context.Context, presentationKey string, limit int) ([]common.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]int)
	for edge, weight := range s.edges {
		if edge.kind != common.EdgeReferences {
			continue
		}
		slide, ok := s.slides[edge.from]
		if !ok || slide.PresentationKey != presentationKey {
			continue
		}
		totals[edge.to] += weight
	}

	result := make([]common.Entity, 0, len(totals))
	for key, mentions := range totals {
		entity := s.entities[key]
		entity.Mentions = mentions
		result = append(result, entity)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Mentions != result[j].Mentions {
			return result[i].Mentions > result[j].Mentions
		}
		return result[i].Key() < result[j].Key()
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func clampKeywords(keywords []common.Keyword, limit int) []common.Keyword {
	if limit > 0 && len(keywords) > limit {
		return keywords[:limit]
	}
	return keywords
}

func (s *Store) MatchNames(ctx context.Context, query string) ([]graphstore.NameMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := common.NormalizeName(query)
	if needle == "" {
		return nil, nil
	}

	var matches []graphstore.NameMatch
	for key, topic := range s.topics {
		if !strings.Contains(key, needle) {
			continue
		}
		matches = append(matches, graphstore.NameMatch{
			Kind:          common.NodeTopic,
			Name:          topic.Name,
			Presentations: s.topicPresentationsLocked(key),
		})
	}
	for key, keyword := range s.keywords {
		if !strings.Contains(key, needle) {
			continue
		}
		matches = append(matches, graphstore.NameMatch{
			Kind:          common.NodeKeyword,
			Name:          keyword.Term,
			Presentations: s.keywordPresentationsLocked(key),
		})
	}
	for _, p := range s.presentations {
		if !strings.Contains(common.NormalizeName(p.Title), needle) {
			continue
		}
		matches = append(matches, graphstore.NameMatch{
			Kind:          common.NodePresentation,
			Name:          p.Title,
			Presentations: []common.Presentation{p},
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Kind != matches[j].Kind {
			return matchKindRank(matches[i].Kind) < matchKindRank(matches[j].Kind)
		}
		return common.NormalizeName(matches[i].Name) < common.NormalizeName(matches[j].Name)
	})
	return matches, nil
}

func matchKindRank(kind common.NodeKind) int {
	switch kind {
	case common.NodeTopic:
		return 0
	case common.NodeKeyword:
		return 1
	default:
		return 2
	}
}

func (s *Store) topicPresentationsLocked(topicKey string) []common.Presentation {
	var result []common.Presentation
	for edge := range s.edges {
		if edge.kind == common.EdgeCovers && edge.to == topicKey {
			result = append(result, s.presentations[edge.from])
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

func (s *Store) keywordPresentationsLocked(keywordKey string) []common.Presentation {
	seen := make(map[string]struct{})
	var result []common.Presentation
	for edge := range s.edges {
		if edge.kind != common.EdgeContainsKeyword || edge.to != keywordKey {
			continue
		}
		slide, ok := s.slides[edge.from]
		if !ok {
			continue
		}
		if _, dup := seen[slide.PresentationKey]; dup {
			continue
		}
		seen[slide.PresentationKey] = struct{}{}
		result = append(result, s.presentations[slide.PresentationKey])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

func (s *Store) Statistics(ctx context.Context) (graphstore.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return graphstore.Statistics{
		Presentations: len(s.presentations),
		Slides:        len(s.slides),
		Topics:        len(s.topics),
		Keywords:      len(s.keywords),
		Entities:      len(s.entities),
	}, nil
}
