package analyzer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/deckgraph/deckgraph/pkg/common"
)

// minCandidateFrequency is the occurrence floor for surfacing an
// uncurated capitalized run as an entity candidate.
const minCandidateFrequency = 2

// reCapitalizedRun matches runs of capitalized words ("Amazon Web Services").
var reCapitalizedRun = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

var techIndicators = []string{"api", "server", "cloud", "app", "platform", "service"}

var orgIndicators = []string{"inc", "corp", "ltd", "llc", "company", "foundation"}

// capitalizedCandidates scans the raw (case-preserving) text for repeated
// capitalized runs that no vocabulary entry already matched and surfaces
// them as low-confidence entity candidates.
func capitalizedCandidates(text string, matched map[string]struct{}) []common.Entity {
	counts := make(map[string]int)
	for _, run := range reCapitalizedRun.FindAllString(text, -1) {
		counts[run]++
	}

	var candidates []common.Entity
	for name, freq := range counts {
		if freq < minCandidateFrequency || len(name) <= 3 {
			continue
		}
		if _, known := matched[common.NormalizeName(name)]; known {
			continue
		}
		candidates = append(candidates, common.Entity{
			Name:     name,
			Type:     classifyEntityType(name),
			Mentions: freq,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Key() < candidates[j].Key()
	})
	return candidates
}

// classifyEntityType guesses a type tag from indicator substrings. Runs
// with no indicator stay unknown; the curated vocabulary is the only
// source of confident type tags.
func classifyEntityType(name string) common.EntityType {
	lower := strings.ToLower(name)

	for _, indicator := range techIndicators {
		if strings.Contains(lower, indicator) {
			return common.EntityTechnology
		}
	}
	for _, indicator := range orgIndicators {
		if containsWord(lower, indicator) {
			return common.EntityOrganization
		}
	}
	return common.EntityUnknown
}

func containsWord(text, word string) bool {
	for _, field := range strings.Fields(text) {
		if strings.Trim(field, ".,") == word {
			return true
		}
	}
	return false
}
