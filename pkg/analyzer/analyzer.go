package analyzer

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/deckgraph/deckgraph/pkg/common"
	"github.com/deckgraph/deckgraph/pkg/logger"
)

// minTokenLen filters out tokens too short to carry signal on their own.
const minTokenLen = 4

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(
		"the a an and or but in on at to for of with by from as is was are were been " +
			"be have has had do does did will would should could may might must can this " +
			"that these those i you he she it we they what which who when where why how " +
			"all each every both few more most other some such no nor not only own same " +
			"so than too very just slide presentation") {
		stopWords[w] = struct{}{}
	}
}

var (
	reURL     = regexp.MustCompile(`https?://\S+|www\.\S+`)
	reEmail   = regexp.MustCompile(`\S+@\S+`)
	reNonWord = regexp.MustCompile(`[^\p{L}\p{N}\s-]`)
)

// Analyzer produces ranked keywords, matched topics, and named entities
// from slide text using frequency statistics against a fixed vocabulary.
// Output is a pure function of the input text and the vocabulary; no
// randomness, no network calls.
type Analyzer struct {
	topics   []vocabMatcher
	entities []vocabMatcher
}

// Analysis bundles the three extraction results for one piece of text.
type Analysis struct {
	Keywords []common.Keyword
	Topics   []common.Topic
	Entities []common.Entity
}

type vocabMatcher struct {
	canonical  string
	entityType common.EntityType
	aliases    [][]string // tokenized surface forms, canonical included
}

// New builds an Analyzer over the given vocabulary. A nil vocabulary
// falls back to the curated defaults.
func New(vocab *Vocabulary) *Analyzer {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}

	a := &Analyzer{}
	for _, entry := range vocab.Topics {
		a.topics = append(a.topics, newMatcher(entry))
	}
	for _, entry := range vocab.Entities {
		a.entities = append(a.entities, newMatcher(entry))
	}
	return a
}

func newMatcher(entry VocabEntry) vocabMatcher {
	m := vocabMatcher{
		canonical:  entry.Canonical,
		entityType: entry.Type,
	}
	surfaces := append([]string{entry.Canonical}, entry.Aliases...)
	seen := make(map[string]struct{}, len(surfaces))
	for _, surface := range surfaces {
		tokens := tokenize(surface)
		if len(tokens) == 0 {
			continue
		}
		key := strings.Join(tokens, " ")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		m.aliases = append(m.aliases, tokens)
	}
	// Longer surfaces first so "google cloud platform" wins over "google cloud".
	sort.SliceStable(m.aliases, func(i, j int) bool {
		return len(m.aliases[i]) > len(m.aliases[j])
	})
	return m
}

// validInput rejects byte sequences that are not valid UTF-8. Malformed
// input is logged and treated as empty rather than failing the file.
func validInput(text string) bool {
	if utf8.ValidString(text) {
		return true
	}
	logger.Warn("skipping analysis of invalid UTF-8 input", "bytes", len(text))
	return false
}

// cleanText lowers the case, strips URLs, e-mail addresses and special
// characters (hyphens survive), and collapses whitespace.
func cleanText(text string) string {
	text = strings.ToLower(text)
	text = reURL.ReplaceAllString(text, " ")
	text = reEmail.ReplaceAllString(text, " ")
	text = reNonWord.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// tokenize returns the cleaned, lower-case word sequence of text with
// stop words retained. Phrase matching needs the full stream.
func tokenize(text string) []string {
	return strings.Fields(cleanText(text))
}

// contentTokens drops stop words and short tokens from an already
// tokenized stream. Keyword candidates are built from this stream.
func contentTokens(tokens []string) []string {
	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, stop := stopWords[token]; stop {
			continue
		}
		if len(token) < minTokenLen {
			continue
		}
		filtered = append(filtered, token)
	}
	return filtered
}

type candidate struct {
	term  string
	freq  int
	gram  int
	first int
}

// ExtractKeywords tokenizes text, removes stop words and short tokens,
// builds 1-, 2-, and 3-gram candidates, and returns the topN distinct
// terms ranked by raw frequency. Ties prefer longer n-grams, then earlier
// first occurrence, so repeated calls return identical orderings and a
// larger topN extends the list without reordering it.
func (a *Analyzer) ExtractKeywords(text string, topN int) []common.Keyword {
	if topN <= 0 || !validInput(text) {
		return nil
	}

	tokens := contentTokens(tokenize(text))
	if len(tokens) == 0 {
		return nil
	}

	counts := make(map[string]*candidate)
	record := func(term string, gram, pos int) {
		if c, ok := counts[term]; ok {
			c.freq++
			return
		}
		counts[term] = &candidate{term: term, freq: 1, gram: gram, first: pos}
	}

	for i, token := range tokens {
		record(token, 1, i)
		if i+1 < len(tokens) {
			record(tokens[i]+" "+tokens[i+1], 2, i)
		}
		if i+2 < len(tokens) {
			record(tokens[i]+" "+tokens[i+1]+" "+tokens[i+2], 3, i)
		}
	}

	ranked := make([]*candidate, 0, len(counts))
	for _, c := range counts {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].freq != ranked[j].freq {
			return ranked[i].freq > ranked[j].freq
		}
		if ranked[i].gram != ranked[j].gram {
			return ranked[i].gram > ranked[j].gram
		}
		return ranked[i].first < ranked[j].first
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	keywords := make([]common.Keyword, 0, len(ranked))
	for _, c := range ranked {
		keywords = append(keywords, common.Keyword{Term: c.term, Frequency: c.freq})
	}
	return keywords
}

// ExtractTopicsAndEntities matches the text against the topic and entity
// vocabularies and returns mention counts per canonical name. Capitalized
// runs that match no vocabulary entry but occur more than once are
// surfaced as low-confidence entity candidates.
func (a *Analyzer) ExtractTopicsAndEntities(text string) ([]common.Topic, []common.Entity) {
	if !validInput(text) {
		return nil, nil
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	var topics []common.Topic
	matched := make(map[string]struct{})
	for _, m := range a.topics {
		if count := m.countMentions(tokens); count > 0 {
			topics = append(topics, common.Topic{Name: m.canonical, Mentions: count})
			matched[common.NormalizeName(m.canonical)] = struct{}{}
			for _, alias := range m.aliases {
				matched[strings.Join(alias, " ")] = struct{}{}
			}
		}
	}

	var entities []common.Entity
	for _, m := range a.entities {
		if count := m.countMentions(tokens); count > 0 {
			entities = append(entities, common.Entity{Name: m.canonical, Type: m.entityType, Mentions: count})
			matched[common.NormalizeName(m.canonical)] = struct{}{}
			for _, alias := range m.aliases {
				matched[strings.Join(alias, " ")] = struct{}{}
			}
		}
	}

	entities = append(entities, capitalizedCandidates(text, matched)...)

	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })
	sort.Slice(entities, func(i, j int) bool { return entities[i].Key() < entities[j].Key() })
	return topics, entities
}

// Analyze runs keyword and topic/entity extraction in one pass. topN
// bounds the keyword list.
func (a *Analyzer) Analyze(text string, topN int) Analysis {
	// Checked once here so malformed input is warned about once, not per
	// extraction pass.
	if !validInput(text) {
		return Analysis{}
	}
	topics, entities := a.ExtractTopicsAndEntities(text)
	return Analysis{
		Keywords: a.ExtractKeywords(text, topN),
		Topics:   topics,
		Entities: entities,
	}
}

// countMentions counts non-overlapping occurrences of any surface form in
// the token stream. The scan advances past a match so "aws aws" counts
// twice but a surface never matches inside itself.
func (m vocabMatcher) countMentions(tokens []string) int {
	total := 0
	for i := 0; i < len(tokens); {
		advance := 1
		for _, alias := range m.aliases {
			if matchAt(tokens, i, alias) {
				total++
				advance = len(alias)
				break
			}
		}
		i += advance
	}
	return total
}

func matchAt(tokens []string, at int, phrase []string) bool {
	if at+len(phrase) > len(tokens) {
		return false
	}
	for j, word := range phrase {
		if tokens[at+j] != word {
			return false
		}
	}
	return true
}
