package analyzer

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/deckgraph/deckgraph/pkg/common"
)

// VocabEntry is one curated vocabulary item: a canonical name plus the
// surface forms that normalize to it. Entity entries additionally carry a
// type tag; topic entries leave it empty.
type VocabEntry struct {
	Canonical string            `json:"name"`
	Aliases   []string          `json:"aliases,omitempty"`
	Type      common.EntityType `json:"type,omitempty"`
}

// Vocabulary holds the curated topic and entity lexicons the analyzer
// matches against. It is injected at construction time; the analyzer never
// consults global state.
type Vocabulary struct {
	Topics   []VocabEntry `json:"topics"`
	Entities []VocabEntry `json:"entities"`
}

// DefaultVocabulary returns the built-in lexicon of conference-tech topics
// and well-known named entities.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Topics: []VocabEntry{
			{Canonical: "API Design", Aliases: []string{"api", "apis", "rest api"}},
			{Canonical: "Artificial Intelligence", Aliases: []string{"ai", "machine learning", "ml", "deep learning"}},
			{Canonical: "Automation", Aliases: []string{"automated", "automating"}},
			{Canonical: "CI/CD", Aliases: []string{"cicd", "ci cd", "continuous integration", "continuous delivery"}},
			{Canonical: "Cloud", Aliases: []string{"cloud native", "cloud computing", "serverless"}},
			{Canonical: "Containers", Aliases: []string{"container", "containerization"}},
			{Canonical: "Databases", Aliases: []string{"database", "sql", "nosql"}},
			{Canonical: "DevOps", Aliases: []string{"devops culture"}},
			{Canonical: "Docker"},
			{Canonical: "Infrastructure", Aliases: []string{"infrastructure as code", "iac"}},
			{Canonical: "Kubernetes", Aliases: []string{"k8s"}},
			{Canonical: "Microservices", Aliases: []string{"microservice"}},
			{Canonical: "Monitoring", Aliases: []string{"observability", "telemetry"}},
			{Canonical: "Performance", Aliases: []string{"latency", "throughput"}},
			{Canonical: "Scalability", Aliases: []string{"scaling", "scalable"}},
			{Canonical: "Security", Aliases: []string{"authentication", "authorization", "encryption"}},
		},
		Entities: []VocabEntry{
			{Canonical: "Amazon Web Services", Type: common.EntityOrganization, Aliases: []string{"aws"}},
			{Canonical: "GitHub", Type: common.EntityProduct},
			{Canonical: "GitLab", Type: common.EntityProduct},
			{Canonical: "Google Cloud Platform", Type: common.EntityOrganization, Aliases: []string{"gcp", "google cloud"}},
			{Canonical: "Grafana", Type: common.EntityProduct},
			{Canonical: "Helm", Type: common.EntityTechnology},
			{Canonical: "Istio", Type: common.EntityTechnology},
			{Canonical: "Microsoft Azure", Type: common.EntityOrganization, Aliases: []string{"azure"}},
			{Canonical: "PostgreSQL", Type: common.EntityTechnology, Aliases: []string{"postgres"}},
			{Canonical: "Prometheus", Type: common.EntityProduct},
			{Canonical: "Terraform", Type: common.EntityTechnology},
		},
	}
}

// LoadVocabulary reads a vocabulary overlay from a JSON file and merges it
// over the defaults. Entries whose canonical name matches a default entry
// replace it; new entries are appended.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}

	var overlay Vocabulary
	if err := json.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}

	base := DefaultVocabulary()
	base.Topics = mergeEntries(base.Topics, overlay.Topics)
	base.Entities = mergeEntries(base.Entities, overlay.Entities)
	return base, nil
}

func mergeEntries(base, overlay []VocabEntry) []VocabEntry {
	byKey := make(map[string]int, len(base))
	for i, entry := range base {
		byKey[common.NormalizeName(entry.Canonical)] = i
	}

	for _, entry := range overlay {
		if entry.Canonical == "" {
			continue
		}
		if i, ok := byKey[common.NormalizeName(entry.Canonical)]; ok {
			base[i] = entry
			continue
		}
		base = append(base, entry)
	}

	sort.Slice(base, func(i, j int) bool {
		return common.NormalizeName(base[i].Canonical) < common.NormalizeName(base[j].Canonical)
	})
	return base
}
