package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/deckgraph/deckgraph/internal/pdftest"
	"github.com/deckgraph/deckgraph/pkg/common"
	"github.com/deckgraph/deckgraph/pkg/extractor"
	"github.com/deckgraph/deckgraph/pkg/graphstore"
	"github.com/deckgraph/deckgraph/pkg/graphstore/memory"
	"github.com/deckgraph/deckgraph/pkg/insight"
)

// writeCorpus writes two small decks: doc1 mentions Kubernetes on two
// slides and DevOps on one, doc2 mentions Kubernetes on one slide.
func writeCorpus(t *testing.T, dir string) (doc1, doc2 string) {
	t.Helper()
	doc1 = filepath.Join(dir, "doc1.pdf")
	doc2 = filepath.Join(dir, "doc2.pdf")

	if err := pdftest.WriteDeck(doc1, [][]string{
		{"Intro", "Kubernetes rollouts made easy"},
		{"Upgrades", "Upgrading Kubernetes nodes safely"},
		{"Culture", "DevOps culture for teams"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := pdftest.WriteDeck(doc2, [][]string{
		{"Overview", "Kubernetes for newcomers"},
		{"Notes", "General housekeeping and logistics"},
		{"Wrap", "Questions and answers session"},
	}); err != nil {
		t.Fatal(err)
	}
	return doc1, doc2
}

func TestRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	doc1, doc2 := writeCorpus(t, dir)

	store := memory.New()
	b := New(store, nil, nil, Options{Clear: true})

	summary, err := b.Run(ctx, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Total != 2 || summary.Succeeded != 2 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	topics, err := store.Topics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(topics) < 2 {
		t.Fatalf("expected at least 2 topics, got %v", topics)
	}
	if topics[0].Name != "Kubernetes" || topics[0].TotalMentions != 3 {
		t.Fatalf("expected Kubernetes ranked first with 3 mentions, got %+v", topics[0])
	}
	var devops *graphstore.TopicStats
	for i := range topics {
		if topics[i].Name == "DevOps" {
			devops = &topics[i]
		}
	}
	if devops == nil || devops.TotalMentions != 1 {
		t.Fatalf("expected DevOps with 1 mention, got %+v", devops)
	}

	abs1, _ := filepath.Abs(doc1)
	abs2, _ := filepath.Abs(doc2)
	related, err := insight.New(store).RelatedPresentations(ctx, abs1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(related) != 1 || related[0].Presentation.Key != abs2 || related[0].SharedTopics != 1 {
		t.Fatalf("unexpected related presentations: %+v", related)
	}
}

func TestRunIdempotence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeCorpus(t, dir)

	store := memory.New()

	// Two runs without clear double every counter but add no nodes.
	if _, err := New(store, nil, nil, Options{}).Run(ctx, dir); err != nil {
		t.Fatal(err)
	}
	statsOnce, err := store.Statistics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(store, nil, nil, Options{}).Run(ctx, dir); err != nil {
		t.Fatal(err)
	}
	statsTwice, err := store.Statistics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if statsOnce != statsTwice {
		t.Fatalf("node counts changed on reload: %+v vs %+v", statsOnce, statsTwice)
	}

	topic, err := store.Topic(ctx, "kubernetes")
	if err != nil {
		t.Fatal(err)
	}
	if topic.TotalMentions != 6 {
		t.Fatalf("expected doubled mentions after reload, got %d", topic.TotalMentions)
	}

	// A clear run resets the counters to a single load's worth.
	if _, err := New(store, nil, nil, Options{Clear: true}).Run(ctx, dir); err != nil {
		t.Fatal(err)
	}
	topic, err = store.Topic(ctx, "kubernetes")
	if err != nil {
		t.Fatal(err)
	}
	if topic.TotalMentions != 3 {
		t.Fatalf("expected fresh counters after clear, got %d", topic.TotalMentions)
	}
}

func TestRunIsolatesFileFailures(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeCorpus(t, dir)
	if err := os.WriteFile(filepath.Join(dir, "broken.pdf"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := memory.New()
	summary, err := New(store, nil, nil, Options{}).Run(ctx, dir)
	if err != nil {
		t.Fatalf("per-file failure must not abort the run: %v", err)
	}
	if summary.Total != 3 || summary.Succeeded != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("expected one failure record, got %v", summary.Failures)
	}
	failure := summary.Failures[0]
	if failure.Stage != StageExtract || filepath.Base(failure.Path) != "broken.pdf" {
		t.Fatalf("unexpected failure record: %+v", failure)
	}
}

func TestRunValidatesRoot(t *testing.T) {
	store := memory.New()
	_, err := New(store, nil, nil, Options{}).Run(context.Background(), filepath.Join(t.TempDir(), "absent"))
	var validationErr *common.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.pdf", "B.PDF", "notes.txt", "deck_part01.pdf"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(sub, "c.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	flat, err := discover(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "B.PDF"), filepath.Join(dir, "a.pdf")}
	if !reflect.DeepEqual(flat, want) {
		t.Fatalf("unexpected flat discovery: got %v, want %v", flat, want)
	}

	deep, err := discover(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(deep) != 3 || deep[2] != filepath.Join(sub, "c.pdf") {
		t.Fatalf("unexpected recursive discovery: %v", deep)
	}
}

func TestBuildDelta(t *testing.T) {
	b := New(memory.New(), nil, nil, Options{})
	deck := &extractor.Deck{
		Presentation: common.Presentation{Key: "/p.pdf", Filename: "p.pdf", TotalSlides: 2},
		Slides: []common.Slide{
			{PresentationKey: "/p.pdf", Number: 1, Content: "kubernetes devops"},
			{PresentationKey: "/p.pdf", Number: 2, Content: "kubernetes"},
		},
	}

	delta := b.buildDelta(deck)

	wantTopics := []common.Topic{
		{Name: "DevOps", Mentions: 1},
		{Name: "Kubernetes", Mentions: 2},
	}
	if !reflect.DeepEqual(delta.Topics, wantTopics) {
		t.Fatalf("unexpected topics: got %v, want %v", delta.Topics, wantTopics)
	}

	edgeWeights := make(map[common.EdgeKind]int)
	for _, edge := range delta.Edges {
		edgeWeights[edge.Kind]++
	}
	if edgeWeights[common.EdgeContains] != 2 {
		t.Fatalf("expected 2 CONTAINS edges, got %d", edgeWeights[common.EdgeContains])
	}
	if edgeWeights[common.EdgeMentions] != 3 {
		t.Fatalf("expected 3 MENTIONS edges, got %d", edgeWeights[common.EdgeMentions])
	}
	if edgeWeights[common.EdgeCovers] != 2 {
		t.Fatalf("expected 2 COVERS edges, got %d", edgeWeights[common.EdgeCovers])
	}

	// Topics sharing a slide and the document relate with the combined
	// co-occurrence weight.
	var related []common.Edge
	for _, edge := range delta.Edges {
		if edge.Kind == common.EdgeRelatedTo {
			related = append(related, edge)
		}
	}
	if len(related) != 1 {
		t.Fatalf("expected one RELATED_TO edge, got %v", related)
	}
	if related[0].FromKey != "devops" || related[0].ToKey != "kubernetes" || related[0].Weight != 2 {
		t.Fatalf("unexpected RELATED_TO edge: %+v", related[0])
	}

	// COVERS weights count slide sightings.
	for _, edge := range delta.Edges {
		if edge.Kind == common.EdgeCovers && edge.ToKey == "kubernetes" && edge.Weight != 2 {
			t.Fatalf("unexpected COVERS weight: %+v", edge)
		}
	}
}
