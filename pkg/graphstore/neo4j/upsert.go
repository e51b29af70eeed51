package neo4j

import (
	"context"
	"encoding/json"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/deckgraph/deckgraph/internal/util"
	"github.com/deckgraph/deckgraph/pkg/common"
)

// edgeQueries maps each relationship kind to its merge statement. The
// relationship type cannot be parameterized in Cypher, so there is one
// statement per kind. Weights accumulate on match. RELATED_TO merges
// undirected; its endpoint pairs are ordered before they get here.
var edgeQueries = map[common.EdgeKind]string{
	common.EdgeContains: `
UNWIND $edges AS e
MATCH (a:Presentation {key: e.from})
MATCH (b:Slide {key: e.to})
MERGE (a)-[r:CONTAINS]->(b)
ON CREATE SET r.weight = e.weight
ON MATCH SET r.weight = r.weight + e.weight`,
	common.EdgeCovers: `
UNWIND $edges AS e
MATCH (a:Presentation {key: e.from})
MATCH (b:Topic {key: e.to})
MERGE (a)-[r:COVERS]->(b)
ON CREATE SET r.weight = e.weight
ON MATCH SET r.weight = r.weight + e.weight`,
	common.EdgeMentions: `
UNWIND $edges AS e
MATCH (a:Slide {key: e.from})
MATCH (b:Topic {key: e.to})
MERGE (a)-[r:MENTIONS]->(b)
ON CREATE SET r.weight = e.weight
ON MATCH SET r.weight = r.weight + e.weight`,
	common.EdgeContainsKeyword: `
UNWIND $edges AS e
MATCH (a:Slide {key: e.from})
MATCH (b:Keyword {key: e.to})
MERGE (a)-[r:CONTAINS_KEYWORD]->(b)
ON CREATE SET r.weight = e.weight
ON MATCH SET r.weight = r.weight + e.weight`,
	common.EdgeReferences: `
UNWIND $edges AS e
MATCH (a:Slide {key: e.from})
MATCH (b:Entity {key: e.to})
MERGE (a)-[r:REFERENCES]->(b)
ON CREATE SET r.weight = e.weight
ON MATCH SET r.weight = r.weight + e.weight`,
	common.EdgeRelatedTo: `
UNWIND $edges AS e
MATCH (a:Topic {key: e.from})
MATCH (b:Topic {key: e.to})
MERGE (a)-[r:RELATED_TO]-(b)
ON CREATE SET r.weight = e.weight
ON MATCH SET r.weight = r.weight + e.weight`,
}

// edgeKindOrder fixes the statement order inside the transaction: nodes
// first (separate statements), then structural edges, then signal edges.
var edgeKindOrder = []common.EdgeKind{
	common.EdgeContains,
	common.EdgeCovers,
	common.EdgeMentions,
	common.EdgeContainsKeyword,
	common.EdgeReferences,
	common.EdgeRelatedTo,
}

// ApplyDelta writes one file's node and edge merge requests in a single
// write transaction.
func (s *Store) ApplyDelta(ctx context.Context, delta common.GraphDelta) error {
	s.ensureSchema(ctx)

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := runConsume(ctx, tx, `
MERGE (p:Presentation {key: $key})
SET p.filename = $filename,
    p.title = $title,
    p.total_slides = $total_slides,
    p.metadata_json = $metadata_json
`, presentationParams(delta.Presentation)); err != nil {
			return nil, err
		}

		// Slides past the new deck length are pruned so the slide count
		// attribute stays equal to the number of CONTAINS edges.
		if err := runConsume(ctx, tx, `
MATCH (s:Slide {presentation_key: $key})
WHERE s.number > $total_slides
DETACH DELETE s
`, map[string]any{
			"key":          delta.Presentation.Key,
			"total_slides": int64(delta.Presentation.TotalSlides),
		}); err != nil {
			return nil, err
		}

		if len(delta.Slides) > 0 {
			if err := runConsume(ctx, tx, `
UNWIND $slides AS sl
MERGE (s:Slide {key: sl.key})
SET s.presentation_key = sl.presentation_key,
    s.number = sl.number,
    s.title = sl.title,
    s.content = sl.content
`, map[string]any{"slides": slideParams(delta.Slides)}); err != nil {
				return nil, err
			}
		}

		if len(delta.Topics) > 0 {
			if err := runConsume(ctx, tx, `
UNWIND $topics AS t
MERGE (n:Topic {key: t.key})
ON CREATE SET n.name = t.name, n.total_mentions = t.mentions
ON MATCH SET n.total_mentions = n.total_mentions + t.mentions
`, map[string]any{"topics": topicParams(delta.Topics)}); err != nil {
				return nil, err
			}
		}

		if len(delta.Keywords) > 0 {
			if err := runConsume(ctx, tx, `
UNWIND $keywords AS k
MERGE (n:Keyword {key: k.key})
ON CREATE SET n.term = k.term, n.total_frequency = k.frequency
ON MATCH SET n.total_frequency = n.total_frequency + k.frequency
`, map[string]any{"keywords": keywordParams(delta.Keywords)}); err != nil {
				return nil, err
			}
		}

		if len(delta.Entities) > 0 {
			if err := runConsume(ctx, tx, `
UNWIND $entities AS e
MERGE (n:Entity {key: e.key})
ON CREATE SET n.name = e.name, n.entity_type = e.entity_type, n.total_mentions = e.mentions
ON MATCH SET n.total_mentions = n.total_mentions + e.mentions
`, map[string]any{"entities": entityParams(delta.Entities)}); err != nil {
				return nil, err
			}
		}

		groups := groupEdges(delta.Edges)
		for _, kind := range edgeKindOrder {
			edges := groups[kind]
			if len(edges) == 0 {
				continue
			}
			if err := runConsume(ctx, tx, edgeQueries[kind], map[string]any{"edges": edges}); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})
	if err != nil {
		return storeErr("apply delta", err)
	}
	return nil
}

// ClearAll wipes every managed node and edge in one transaction, so a
// concurrent reader sees either the old graph or an empty one.
func (s *Store) ClearAll(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, runConsume(ctx, tx, `
MATCH (n)
WHERE n:Presentation OR n:Slide OR n:Topic OR n:Keyword OR n:Entity
DETACH DELETE n
`, nil)
	})
	if err != nil {
		return storeErr("clear all", err)
	}
	return nil
}

func runConsume(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any) error {
	res, err := tx.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func presentationParams(p common.Presentation) map[string]any {
	metadataJSON := ""
	if len(p.Metadata) > 0 {
		if data, err := json.Marshal(p.Metadata); err == nil {
			metadataJSON = string(data)
		}
	}
	return map[string]any{
		"key":           p.Key,
		"filename":      p.Filename,
		"title":         util.SanitizeStoreText(p.Title),
		"total_slides":  int64(p.TotalSlides),
		"metadata_json": metadataJSON,
	}
}

func slideParams(slides []common.Slide) []map[string]any {
	params := make([]map[string]any, 0, len(slides))
	for _, slide := range slides {
		params = append(params, map[string]any{
			"key":              slide.Key(),
			"presentation_key": slide.PresentationKey,
			"number":           int64(slide.Number),
			"title":            util.SanitizeStoreText(slide.Title),
			"content":          util.SanitizeStoreText(slide.Content),
		})
	}
	return params
}

func topicParams(topics []common.Topic) []map[string]any {
	params := make([]map[string]any, 0, len(topics))
	for _, topic := range topics {
		params = append(params, map[string]any{
			"key":      common.NormalizeName(topic.Name),
			"name":     topic.Name,
			"mentions": int64(topic.Mentions),
		})
	}
	return params
}

func keywordParams(keywords []common.Keyword) []map[string]any {
	params := make([]map[string]any, 0, len(keywords))
	for _, keyword := range keywords {
		params = append(params, map[string]any{
			"key":       common.NormalizeName(keyword.Term),
			"term":      keyword.Term,
			"frequency": int64(keyword.Frequency),
		})
	}
	return params
}

func entityParams(entities []common.Entity) []map[string]any {
	params := make([]map[string]any, 0, len(entities))
	for _, entity := range entities {
		params = append(params, map[string]any{
			"key":         entity.Key(),
			"name":        entity.Name,
			"entity_type": string(entity.Type),
			"mentions":    int64(entity.Mentions),
		})
	}
	return params
}

// groupEdges buckets edge requests by kind and resolves endpoint keys to
// their storage form. RELATED_TO pairs are ordered so both directions
// land on the same stored edge.
func groupEdges(edges []common.Edge) map[common.EdgeKind][]map[string]any {
	groups := make(map[common.EdgeKind][]map[string]any)
	for _, edge := range edges {
		from := endpointKey(edge.FromKind, edge.FromKey)
		to := endpointKey(edge.ToKind, edge.ToKey)
		if edge.Kind == common.EdgeRelatedTo && to < from {
			from, to = to, from
		}
		weight := edge.Weight
		if weight <= 0 {
			weight = 1
		}
		groups[edge.Kind] = append(groups[edge.Kind], map[string]any{
			"from":   from,
			"to":     to,
			"weight": int64(weight),
		})
	}
	return groups
}

func endpointKey(kind common.NodeKind, key string) string {
	switch kind {
	case common.NodeTopic, common.NodeKeyword:
		return common.NormalizeName(key)
	default:
		return key
	}
}
