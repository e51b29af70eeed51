package analyzer

import (
	"reflect"
	"testing"

	"github.com/deckgraph/deckgraph/pkg/common"
	"github.com/deckgraph/deckgraph/pkg/logger"
)

// warnRecorder is a logger backend that counts warnings.
type warnRecorder struct {
	warns []string
}

func (r *warnRecorder) Log(message string, keyvals ...any)   {}
func (r *warnRecorder) Debug(message string, keyvals ...any) {}
func (r *warnRecorder) Info(message string, keyvals ...any)  {}
func (r *warnRecorder) Warn(message string, keyvals ...any)  { r.warns = append(r.warns, message) }
func (r *warnRecorder) Error(message string, keyvals ...any) {}
func (r *warnRecorder) Fatal(message string, keyvals ...any) {}

func TestExtractKeywords(t *testing.T) {
	a := New(nil)

	tests := []struct {
		name string
		text string
		topN int
		want []common.Keyword
	}{
		{
			name: "empty text",
			text: "",
			topN: 5,
			want: nil,
		},
		{
			name: "zero topN",
			text: "kubernetes cluster",
			topN: 0,
			want: nil,
		},
		{
			name: "frequency wins",
			text: "kubernetes deployment kubernetes cluster",
			topN: 1,
			want: []common.Keyword{
				{Term: "kubernetes", Frequency: 2},
			},
		},
		{
			name: "ties prefer longer grams then first occurrence",
			text: "quick brown",
			topN: 10,
			want: []common.Keyword{
				{Term: "quick brown", Frequency: 1},
				{Term: "quick", Frequency: 1},
				{Term: "brown", Frequency: 1},
			},
		},
		{
			name: "stop words and short tokens dropped",
			text: "the api is it ok",
			topN: 10,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.ExtractKeywords(tt.text, tt.topN)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("unexpected keywords: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalyzeInvalidUTF8WarnsOnce(t *testing.T) {
	recorder := &warnRecorder{}
	logger.Init(recorder)
	defer logger.Init()

	a := New(nil)
	result := a.Analyze("kubernetes \xff\xfe cluster", 5)

	if len(result.Keywords) != 0 || len(result.Topics) != 0 || len(result.Entities) != 0 {
		t.Fatalf("expected empty analysis for invalid UTF-8, got %+v", result)
	}
	if len(recorder.warns) != 1 {
		t.Fatalf("expected exactly one warning, got %d: %v", len(recorder.warns), recorder.warns)
	}

	recorder.warns = nil
	valid := a.Analyze("kubernetes cluster scaling kubernetes", 5)
	if len(valid.Keywords) == 0 {
		t.Fatal("expected keywords for valid input")
	}
	if len(recorder.warns) != 0 {
		t.Fatalf("unexpected warnings for valid input: %v", recorder.warns)
	}
}

func TestExtractKeywordsStableUnderLargerTopN(t *testing.T) {
	a := New(nil)
	text := "pipeline deployment pipeline rollout deployment pipeline"

	short := a.ExtractKeywords(text, 3)
	long := a.ExtractKeywords(text, 10)

	if len(long) < len(short) {
		t.Fatalf("larger topN returned fewer keywords: %d < %d", len(long), len(short))
	}
	if !reflect.DeepEqual(short, long[:len(short)]) {
		t.Fatalf("larger topN reordered the prefix: got %v, want %v", long[:len(short)], short)
	}
}

func TestExtractTopicsAndEntities(t *testing.T) {
	a := New(nil)

	t.Run("aliases merge into canonical topic", func(t *testing.T) {
		topics, _ := a.ExtractTopicsAndEntities("Kubernetes scaling with k8s and more kubernetes")
		want := []common.Topic{
			{Name: "Kubernetes", Mentions: 3},
			{Name: "Scalability", Mentions: 1},
		}
		if !reflect.DeepEqual(topics, want) {
			t.Fatalf("unexpected topics: got %v, want %v", topics, want)
		}
	})

	t.Run("entity aliases carry curated type", func(t *testing.T) {
		_, entities := a.ExtractTopicsAndEntities("Deploying on AWS with aws tooling")
		want := []common.Entity{
			{Name: "Amazon Web Services", Type: common.EntityOrganization, Mentions: 2},
		}
		if !reflect.DeepEqual(entities, want) {
			t.Fatalf("unexpected entities: got %v, want %v", entities, want)
		}
	})

	t.Run("longest surface wins", func(t *testing.T) {
		_, entities := a.ExtractTopicsAndEntities("google cloud platform")
		want := []common.Entity{
			{Name: "Google Cloud Platform", Type: common.EntityOrganization, Mentions: 1},
		}
		if !reflect.DeepEqual(entities, want) {
			t.Fatalf("unexpected entities: got %v, want %v", entities, want)
		}
	})

	t.Run("empty text yields empty results", func(t *testing.T) {
		topics, entities := a.ExtractTopicsAndEntities("")
		if topics != nil || entities != nil {
			t.Fatalf("expected empty results, got topics %v entities %v", topics, entities)
		}
	})
}

func TestCapitalizedEntityCandidates(t *testing.T) {
	a := New(nil)

	t.Run("repeated uncurated run surfaces with classified type", func(t *testing.T) {
		_, entities := a.ExtractTopicsAndEntities("Acme Corp builds widgets. Acme Corp sells tools.")
		want := []common.Entity{
			{Name: "Acme Corp", Type: common.EntityOrganization, Mentions: 2},
		}
		if !reflect.DeepEqual(entities, want) {
			t.Fatalf("unexpected entities: got %v, want %v", entities, want)
		}
	})

	t.Run("no indicator stays unknown", func(t *testing.T) {
		_, entities := a.ExtractTopicsAndEntities("Frobnicator ships weekly. Frobnicator rocks.")
		want := []common.Entity{
			{Name: "Frobnicator", Type: common.EntityUnknown, Mentions: 2},
		}
		if !reflect.DeepEqual(entities, want) {
			t.Fatalf("unexpected entities: got %v, want %v", entities, want)
		}
	})

	t.Run("single occurrence suppressed", func(t *testing.T) {
		_, entities := a.ExtractTopicsAndEntities("Frobnicator ships weekly and nothing else repeats here")
		if len(entities) != 0 {
			t.Fatalf("expected no candidates, got %v", entities)
		}
	})

	t.Run("vocabulary match suppresses duplicate candidate", func(t *testing.T) {
		_, entities := a.ExtractTopicsAndEntities("Grafana dashboards everywhere. Grafana is easy.")
		want := []common.Entity{
			{Name: "Grafana", Type: common.EntityProduct, Mentions: 2},
		}
		if !reflect.DeepEqual(entities, want) {
			t.Fatalf("unexpected entities: got %v, want %v", entities, want)
		}
	})
}

func TestClassifyEntityType(t *testing.T) {
	tests := []struct {
		name string
		want common.EntityType
	}{
		{name: "Rocket Platform", want: common.EntityTechnology},
		{name: "Acme Corp", want: common.EntityOrganization},
		{name: "Frobnicator", want: common.EntityUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyEntityType(tt.name); got != tt.want {
				t.Fatalf("unexpected type for %q: got %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}
