package neo4j

import (
	"context"
	"encoding/json"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/deckgraph/deckgraph/pkg/common"
	"github.com/deckgraph/deckgraph/pkg/graphstore"
)

func (s *Store) collect(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*neo4j.Record), nil
}

func recString(record *neo4j.Record, key string) string {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return ""
	}
	str, _ := value.(string)
	return str
}

func recInt(record *neo4j.Record, key string) int {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return 0
	}
	num, _ := value.(int64)
	return int(num)
}

func recPresentation(record *neo4j.Record) common.Presentation {
	p := common.Presentation{
		Key:         recString(record, "key"),
		Filename:    recString(record, "filename"),
		Title:       recString(record, "title"),
		TotalSlides: recInt(record, "total_slides"),
	}
	if metadataJSON := recString(record, "metadata_json"); metadataJSON != "" {
		var metadata map[string]string
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err == nil {
			p.Metadata = metadata
		}
	}
	return p
}

const presentationFields = `p.key AS key, p.filename AS filename, p.title AS title,
       p.total_slides AS total_slides, p.metadata_json AS metadata_json`

func (s *Store) Presentations(ctx context.Context) ([]common.Presentation, error) {
	records, err := s.collect(ctx, `
MATCH (p:Presentation)
RETURN `+presentationFields+`
ORDER BY p.key ASC
`, nil)
	if err != nil {
		return nil, storeErr("list presentations", err)
	}

	result := make([]common.Presentation, 0, len(records))
	for _, record := range records {
		result = append(result, recPresentation(record))
	}
	return result, nil
}

func (s *Store) Presentation(ctx context.Context, key string) (*common.Presentation, error) {
	records, err := s.collect(ctx, `
MATCH (p:Presentation {key: $key})
RETURN `+presentationFields+`
`, map[string]any{"key": key})
	if err != nil {
		return nil, storeErr("get presentation", err)
	}
	if len(records) == 0 {
		return nil, &common.NotFoundError{Kind: common.NodePresentation, Key: key}
	}

	p := recPresentation(records[0])
	return &p, nil
}

func (s *Store) Topics(ctx context.Context) ([]graphstore.TopicStats, error) {
	records, err := s.collect(ctx, `
MATCH (t:Topic)
OPTIONAL MATCH (p:Presentation)-[:COVERS]->(t)
WITH t, count(DISTINCT p) AS presentations
RETURN t.name AS name, t.total_mentions AS total_mentions, presentations
ORDER BY total_mentions DESC, name ASC
`, nil)
	if err != nil {
		return nil, storeErr("list topics", err)
	}

	result := make([]graphstore.TopicStats, 0, len(records))
	for _, record := range records {
		result = append(result, graphstore.TopicStats{
			Name:          recString(record, "name"),
			TotalMentions: recInt(record, "total_mentions"),
			Presentations: recInt(record, "presentations"),
		})
	}
	return result, nil
}

func (s *Store) Topic(ctx context.Context, name string) (*graphstore.TopicStats, error) {
	key := common.NormalizeName(name)
	records, err := s.collect(ctx, `
MATCH (t:Topic {key: $key})
OPTIONAL MATCH (p:Presentation)-[:COVERS]->(t)
WITH t, count(DISTINCT p) AS presentations
RETURN t.name AS name, t.total_mentions AS total_mentions, presentations
`, map[string]any{"key": key})
	if err != nil {
		return nil, storeErr("get topic", err)
	}
	if len(records) == 0 {
		return nil, &common.NotFoundError{Kind: common.NodeTopic, Key: key}
	}

	return &graphstore.TopicStats{
		Name:          recString(records[0], "name"),
		TotalMentions: recInt(records[0], "total_mentions"),
		Presentations: recInt(records[0], "presentations"),
	}, nil
}

func (s *Store) CoveredTopics(ctx context.Context, presentationKey string) ([]graphstore.TopicWeight, error) {
	records, err := s.collect(ctx, `
MATCH (p:Presentation {key: $key})
OPTIONAL MATCH (p)-[c:COVERS]->(t:Topic)
RETURN t.name AS name, c.weight AS weight
ORDER BY weight DESC, name ASC
`, map[string]any{"key": presentationKey})
	if err != nil {
		return nil, storeErr("covered topics", err)
	}
	if len(records) == 0 {
		return nil, &common.NotFoundError{Kind: common.NodePresentation, Key: presentationKey}
	}

	var result []graphstore.TopicWeight
	for _, record := range records {
		name := recString(record, "name")
		if name == "" {
			continue // presentation covers no topics
		}
		result = append(result, graphstore.TopicWeight{Name: name, Weight: recInt(record, "weight")})
	}
	return result, nil
}

func (s *Store) CoveringPresentations(ctx context.Context, topicName string) ([]graphstore.PresentationWeight, error) {
	key := common.NormalizeName(topicName)
	records, err := s.collect(ctx, `
MATCH (t:Topic {key: $key})
OPTIONAL MATCH (p:Presentation)-[c:COVERS]->(t)
RETURN `+presentationFields+`, c.weight AS weight
ORDER BY weight DESC, key ASC
`, map[string]any{"key": key})
	if err != nil {
		return nil, storeErr("covering presentations", err)
	}
	if len(records) == 0 {
		return nil, &common.NotFoundError{Kind: common.NodeTopic, Key: key}
	}

	var result []graphstore.PresentationWeight
	for _, record := range records {
		if recString(record, "key") == "" {
			continue // topic covered by no presentation
		}
		result = append(result, graphstore.PresentationWeight{
			Presentation: recPresentation(record),
			Weight:       recInt(record, "weight"),
		})
	}
	return result, nil
}

func (s *Store) RelatedTopics(ctx context.Context, topicName string) ([]graphstore.TopicWeight, error) {
	key := common.NormalizeName(topicName)
	records, err := s.collect(ctx, `
MATCH (t:Topic {key: $key})
OPTIONAL MATCH (t)-[r:RELATED_TO]-(o:Topic)
RETURN o.name AS name, r.weight AS weight
ORDER BY weight DESC, name ASC
`, map[string]any{"key": key})
	if err != nil {
		return nil, storeErr("related topics", err)
	}
	if len(records) == 0 {
		return nil, &common.NotFoundError{Kind: common.NodeTopic, Key: key}
	}

	var result []graphstore.TopicWeight
	for _, record := range records {
		name := recString(record, "name")
		if name == "" {
			continue
		}
		result = append(result, graphstore.TopicWeight{Name: name, Weight: recInt(record, "weight")})
	}
	return result, nil
}

func (s *Store) PresentationKeywords(ctx context.Context, presentationKey string, limit int) ([]common.Keyword, error) {
	query := `
MATCH (p:Presentation {key: $key})-[:CONTAINS]->(:Slide)-[ck:CONTAINS_KEYWORD]->(k:Keyword)
RETURN k.term AS term, sum(ck.weight) AS frequency
ORDER BY frequency DESC, term ASC
`
	params := map[string]any{"key": presentationKey}
	if limit > 0 {
		query += "LIMIT $limit\n"
		params["limit"] = int64(limit)
	}

	records, err := s.collect(ctx, query, params)
	if err != nil {
		return nil, storeErr("presentation keywords", err)
	}

	result := make([]common.Keyword, 0, len(records))
	for _, record := range records {
		result = append(result, common.Keyword{
			Term:      recString(record, "term"),
			Frequency: recInt(record, "frequency"),
		})
	}
	return result, nil
}

func (s *Store) PresentationEntities(ctx context.Context, presentationKey string, limit int) ([]common.Entity, error) {
	query := `
MATCH (p:Presentation {key: $key})-[:CONTAINS]->(:Slide)-[r:REFERENCES]->(e:Entity)
RETURN e.name AS name, e.entity_type AS entity_type, sum(r.weight) AS mentions
ORDER BY mentions DESC, name ASC
`
	params := map[string]any{"key": presentationKey}
	if limit > 0 {
		query += "LIMIT $limit\n"
		params["limit"] = int64(limit)
	}

	records, err := s.collect(ctx, query, params)
	if err != nil {
		return nil, storeErr("presentation entities", err)
	}

	result := make([]common.Entity, 0, len(records))
	for _, record := range records {
		result = append(result, common.Entity{
			Name:     recString(record, "name"),
			Type:     common.EntityType(recString(record, "entity_type")),
			Mentions: recInt(record, "mentions"),
		})
	}
	return result, nil
}

func (s *Store) MatchNames(ctx context.Context, query string) ([]graphstore.NameMatch, error) {
	needle := common.NormalizeName(query)
	if needle == "" {
		return nil, nil
	}

	topicRecords, err := s.collect(ctx, `
MATCH (t:Topic)
WHERE t.key CONTAINS $needle
OPTIONAL MATCH (p:Presentation)-[:COVERS]->(t)
WITH t, p ORDER BY p.key ASC
RETURN t.key AS key, t.name AS name,
       collect(p {.key, .filename, .title, .total_slides}) AS presentations
ORDER BY key ASC
`, map[string]any{"needle": needle})
	if err != nil {
		return nil, storeErr("search topics", err)
	}

	keywordRecords, err := s.collect(ctx, `
MATCH (k:Keyword)
WHERE k.key CONTAINS $needle
OPTIONAL MATCH (p:Presentation)-[:CONTAINS]->(:Slide)-[:CONTAINS_KEYWORD]->(k)
WITH k, p ORDER BY p.key ASC
RETURN k.key AS key, k.term AS name,
       collect(DISTINCT p {.key, .filename, .title, .total_slides}) AS presentations
ORDER BY key ASC
`, map[string]any{"needle": needle})
	if err != nil {
		return nil, storeErr("search keywords", err)
	}

	presentationRecords, err := s.collect(ctx, `
MATCH (p:Presentation)
WHERE toLower(p.title) CONTAINS $needle
RETURN `+presentationFields+`
ORDER BY toLower(p.title) ASC, p.key ASC
`, map[string]any{"needle": needle})
	if err != nil {
		return nil, storeErr("search presentations", err)
	}

	var matches []graphstore.NameMatch
	for _, record := range topicRecords {
		matches = append(matches, graphstore.NameMatch{
			Kind:          common.NodeTopic,
			Name:          recString(record, "name"),
			Presentations: recPresentationList(record),
		})
	}
	for _, record := range keywordRecords {
		matches = append(matches, graphstore.NameMatch{
			Kind:          common.NodeKeyword,
			Name:          recString(record, "name"),
			Presentations: recPresentationList(record),
		})
	}
	for _, record := range presentationRecords {
		p := recPresentation(record)
		matches = append(matches, graphstore.NameMatch{
			Kind:          common.NodePresentation,
			Name:          p.Title,
			Presentations: []common.Presentation{p},
		})
	}
	return matches, nil
}

func recPresentationList(record *neo4j.Record) []common.Presentation {
	value, ok := record.Get("presentations")
	if !ok || value == nil {
		return nil
	}
	items, _ := value.([]any)

	var result []common.Presentation
	for _, item := range items {
		props, ok := item.(map[string]any)
		if !ok || props["key"] == nil {
			continue
		}
		p := common.Presentation{}
		p.Key, _ = props["key"].(string)
		p.Filename, _ = props["filename"].(string)
		p.Title, _ = props["title"].(string)
		if total, ok := props["total_slides"].(int64); ok {
			p.TotalSlides = int(total)
		}
		result = append(result, p)
	}
	return result
}

func (s *Store) Statistics(ctx context.Context) (graphstore.Statistics, error) {
	// One count per label keeps the queries portable across Neo4j and
	// Memgraph, neither of which shares a COUNT subquery dialect.
	counts := make(map[string]int, 5)
	for _, label := range []string{"Presentation", "Slide", "Topic", "Keyword", "Entity"} {
		records, err := s.collect(ctx, "MATCH (n:"+label+") RETURN count(n) AS total", nil)
		if err != nil {
			return graphstore.Statistics{}, storeErr("statistics", err)
		}
		if len(records) > 0 {
			counts[label] = recInt(records[0], "total")
		}
	}

	return graphstore.Statistics{
		Presentations: counts["Presentation"],
		Slides:        counts["Slide"],
		Topics:        counts["Topic"],
		Keywords:      counts["Keyword"],
		Entities:      counts["Entity"],
	}, nil
}
