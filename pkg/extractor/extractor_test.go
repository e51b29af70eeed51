package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/deckgraph/deckgraph/internal/pdftest"
	"github.com/deckgraph/deckgraph/pkg/common"
)

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kubernetes_intro.pdf")
	pages := [][]string{
		{"Kubernetes in Production", "Lessons from three years of clusters", "Slide 1"},
		{"Scaling", "Horizontal pod autoscaling in practice", "Slide 2"},
	}
	if err := pdftest.WriteDeck(path, pages); err != nil {
		t.Fatal(err)
	}

	e := New()
	deck, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	abs, _ := filepath.Abs(path)
	p := deck.Presentation
	if p.Key != abs {
		t.Fatalf("presentation key: got %q, want %q", p.Key, abs)
	}
	if p.Filename != "kubernetes_intro.pdf" {
		t.Fatalf("unexpected filename: %q", p.Filename)
	}
	if p.Title != "Kubernetes in Production" {
		t.Fatalf("unexpected title: %q", p.Title)
	}
	if p.TotalSlides != 2 {
		t.Fatalf("unexpected slide count: %d", p.TotalSlides)
	}

	if len(deck.Slides) != 2 {
		t.Fatalf("expected 2 slides, got %d", len(deck.Slides))
	}
	for i, slide := range deck.Slides {
		if slide.Number != i+1 {
			t.Fatalf("slide %d has number %d", i, slide.Number)
		}
		if slide.PresentationKey != abs {
			t.Fatalf("slide %d has presentation key %q", i, slide.PresentationKey)
		}
	}
	if deck.Slides[0].Title != "Kubernetes in Production" {
		t.Fatalf("unexpected slide title: %q", deck.Slides[0].Title)
	}
	if !strings.Contains(deck.Slides[1].Content, "autoscaling") {
		t.Fatalf("slide body lost: %q", deck.Slides[1].Content)
	}
	if strings.Contains(deck.Slides[1].Content, "Slide 2") {
		t.Fatalf("footer not stripped: %q", deck.Slides[1].Content)
	}

	// Repeated extraction serves the cached deck.
	again, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error on reread: %v", err)
	}
	if again != deck {
		t.Fatal("expected cached deck on second extraction")
	}
}

func TestExtractDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "observability.pdf")
	pages := [][]string{
		{"Observability at Scale", "Metrics, logs and traces", "Slide 1"},
		{"Dashboards", "What to alert on and what to ignore", "Slide 2"},
	}
	if err := pdftest.WriteDeck(path, pages); err != nil {
		t.Fatal(err)
	}

	// Two independent extractors, so neither run can serve the other's
	// cache.
	first, err := New().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("first extraction: %v", err)
	}
	second, err := New().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("second extraction: %v", err)
	}

	if !reflect.DeepEqual(first.Presentation, second.Presentation) {
		t.Fatalf("presentation differs between runs:\n%+v\n%+v", first.Presentation, second.Presentation)
	}
	if !reflect.DeepEqual(first.Slides, second.Slides) {
		t.Fatalf("slides differ between runs:\n%+v\n%+v", first.Slides, second.Slides)
	}
}

func TestExtractMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("not a pdf at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := New().Extract(context.Background(), path)
	var extractErr *common.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestExtractMissingFile(t *testing.T) {
	_, err := New().Extract(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))
	var extractErr *common.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestSplitTitle(t *testing.T) {
	longLine := strings.Repeat("x", slideTitleMaxLen)

	tests := []struct {
		name      string
		lines     []string
		wantTitle string
		wantBody  []string
	}{
		{
			name: "empty slide",
		},
		{
			name:      "short first line is title",
			lines:     []string{"Overview", "body text"},
			wantTitle: "Overview",
			wantBody:  []string{"body text"},
		},
		{
			name:     "long first line stays body",
			lines:    []string{longLine, "more"},
			wantBody: []string{longLine, "more"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body := splitTitle(tt.lines)
			if title != tt.wantTitle {
				t.Fatalf("unexpected title: got %q, want %q", title, tt.wantTitle)
			}
			if strings.Join(body, "|") != strings.Join(tt.wantBody, "|") {
				t.Fatalf("unexpected body: got %v, want %v", body, tt.wantBody)
			}
		})
	}
}

func TestCleanSlideText(t *testing.T) {
	got := cleanSlideText([]string{"Intro to clusters", "Page 4", "more   text", "slide 12"})
	want := "Intro to clusters more text"
	if got != want {
		t.Fatalf("unexpected cleaned text: got %q, want %q", got, want)
	}
}

func TestPresentationTitle(t *testing.T) {
	t.Run("first slide title wins", func(t *testing.T) {
		slides := []common.Slide{{Title: "Cloud Native Patterns"}}
		if got := presentationTitle("/x/deck.pdf", slides); got != "Cloud Native Patterns" {
			t.Fatalf("unexpected title: %q", got)
		}
	})

	t.Run("short slide title falls back to filename", func(t *testing.T) {
		slides := []common.Slide{{Title: "Intro"}}
		if got := presentationTitle("/x/cloud_native-intro.pdf", slides); got != "Cloud Native Intro" {
			t.Fatalf("unexpected title: %q", got)
		}
	})

	t.Run("no slides falls back to filename", func(t *testing.T) {
		if got := presentationTitle("/x/devops_day.pdf", nil); got != "Devops Day" {
			t.Fatalf("unexpected title: %q", got)
		}
	})
}

func TestTruncateTitle(t *testing.T) {
	long := strings.Repeat("a", slideTitleMaxLen+10)
	got := truncateTitle(long)
	if len(got) != slideTitleMaxLen+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected truncation: %q", got)
	}
}
