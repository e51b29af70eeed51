package insight

import (
	"context"
	"errors"
	"testing"

	"github.com/deckgraph/deckgraph/pkg/common"
	"github.com/deckgraph/deckgraph/pkg/graphstore/memory"
)

func coversDelta(key string, topics map[string]int) common.GraphDelta {
	delta := common.GraphDelta{
		Presentation: common.Presentation{Key: key, Filename: key, Title: key},
	}
	for name, mentions := range topics {
		delta.Topics = append(delta.Topics, common.Topic{Name: name, Mentions: mentions})
		delta.Edges = append(delta.Edges, common.Edge{
			Kind:     common.EdgeCovers,
			FromKind: common.NodePresentation,
			FromKey:  key,
			ToKind:   common.NodeTopic,
			ToKey:    name,
			Weight:   mentions,
		})
	}
	return delta
}

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	// a and b share two topics, a and d share one, c shares none.
	deltas := []common.GraphDelta{
		coversDelta("/a.pdf", map[string]int{"Kubernetes": 3, "DevOps": 2, "Security": 1}),
		coversDelta("/b.pdf", map[string]int{"Kubernetes": 1, "DevOps": 1}),
		coversDelta("/c.pdf", map[string]int{"Databases": 2}),
		coversDelta("/d.pdf", map[string]int{"Kubernetes": 2}),
	}
	for _, delta := range deltas {
		if err := store.ApplyDelta(ctx, delta); err != nil {
			t.Fatal(err)
		}
	}

	related := common.GraphDelta{
		Presentation: common.Presentation{Key: "/a.pdf", Filename: "/a.pdf", Title: "/a.pdf"},
		Edges: []common.Edge{
			{Kind: common.EdgeRelatedTo, FromKind: common.NodeTopic, FromKey: "devops", ToKind: common.NodeTopic, ToKey: "kubernetes", Weight: 3},
			{Kind: common.EdgeRelatedTo, FromKind: common.NodeTopic, FromKey: "kubernetes", ToKind: common.NodeTopic, ToKey: "security", Weight: 1},
		},
	}
	if err := store.ApplyDelta(ctx, related); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestRelatedPresentations(t *testing.T) {
	ctx := context.Background()
	tools := New(seedStore(t))

	related, err := tools.RelatedPresentations(ctx, "/a.pdf", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(related) != 2 {
		t.Fatalf("expected 2 related presentations, got %+v", related)
	}
	if related[0].Presentation.Key != "/b.pdf" || related[0].SharedTopics != 2 {
		t.Fatalf("expected /b.pdf with 2 shared topics first, got %+v", related[0])
	}
	if related[1].Presentation.Key != "/d.pdf" || related[1].SharedTopics != 1 {
		t.Fatalf("expected /d.pdf with 1 shared topic second, got %+v", related[1])
	}
}

func TestRelatedPresentationsUnknownKey(t *testing.T) {
	tools := New(seedStore(t))

	var notFound *common.NotFoundError
	if _, err := tools.RelatedPresentations(context.Background(), "/missing.pdf", 10); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestAgendaSuggestions(t *testing.T) {
	ctx := context.Background()
	tools := New(seedStore(t))

	tracks, err := tools.AgendaSuggestions(ctx, 10, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only Kubernetes (3 presentations) and DevOps (2) clear the floor.
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %+v", tracks)
	}
	if tracks[0].Topic != "Kubernetes" || tracks[0].Presentations != 3 {
		t.Fatalf("unexpected leading track: %+v", tracks[0])
	}
	// Security relates to Kubernetes below the co-occurrence floor and
	// stays out of the track.
	if len(tracks[0].RelatedTopics) != 1 || tracks[0].RelatedTopics[0] != "DevOps" {
		t.Fatalf("unexpected related topics: %+v", tracks[0].RelatedTopics)
	}
	if tracks[1].Topic != "DevOps" {
		t.Fatalf("unexpected second track: %+v", tracks[1])
	}
}

func TestBlogPostMaterial(t *testing.T) {
	ctx := context.Background()
	tools := New(seedStore(t))

	material, err := tools.BlogPostMaterial(ctx, "  KUBERNETES ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if material.Topic != "Kubernetes" {
		t.Fatalf("unexpected topic name: %q", material.Topic)
	}
	if len(material.Presentations) != 3 {
		t.Fatalf("expected 3 covering presentations, got %+v", material.Presentations)
	}
	// Ordered by cover weight, then key.
	if material.Presentations[0].Presentation.Key != "/a.pdf" {
		t.Fatalf("unexpected leading presentation: %+v", material.Presentations[0])
	}
	if len(material.RelatedTopics) != 2 {
		t.Fatalf("expected 2 related topics, got %+v", material.RelatedTopics)
	}
	if material.RelatedTopics[0] != "DevOps" {
		t.Fatalf("expected DevOps as strongest neighbor, got %+v", material.RelatedTopics)
	}
}

func TestBlogPostMaterialUnknownTopic(t *testing.T) {
	tools := New(seedStore(t))

	var notFound *common.NotFoundError
	if _, err := tools.BlogPostMaterial(context.Background(), "Nonexistent Topic"); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestSummaryUnknownPresentation(t *testing.T) {
	tools := New(seedStore(t))

	var notFound *common.NotFoundError
	if _, err := tools.Summary(context.Background(), "/missing.pdf"); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	tools := New(seedStore(t))

	matches, err := tools.Search(context.Background(), "kube")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].Name != "Kubernetes" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
	if len(matches[0].Presentations) != 3 {
		t.Fatalf("expected 3 presentations on the match, got %+v", matches[0].Presentations)
	}
}
