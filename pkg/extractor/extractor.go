package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/singleflight"

	"github.com/deckgraph/deckgraph/internal/util"
	"github.com/deckgraph/deckgraph/pkg/common"
)

const (
	// slideTitleMaxLen is the threshold above which the first line of a
	// slide is treated as body text instead of a title.
	slideTitleMaxLen = 150
	// presTitleMinLen is the minimum length for a first-slide line to be
	// accepted as the presentation title before falling back to the filename.
	presTitleMinLen = 10
)

// rePageFooter matches "Page 12" / "Slide 3" footers left over from the
// deck template. They carry no content signal and skew keyword counts.
var rePageFooter = regexp.MustCompile(`(?i)\b(?:page|slide)\s+\d+\b`)

// Deck is the result of extracting one PDF slide deck: the presentation
// record plus its ordered slides. Slide numbers are 1-based and sequential
// with no gaps, one slide per PDF page.
type Deck struct {
	Presentation common.Presentation
	Slides       []common.Slide
}

// Extractor reads PDF slide decks and produces structured slide records.
// Extraction is a pure function of the file bytes; results are cached per
// path and concurrent extractions of the same file are collapsed.
type Extractor struct {
	cache   map[string]*Deck
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// New creates an Extractor with an empty cache.
func New() *Extractor {
	return &Extractor{
		cache: make(map[string]*Deck),
	}
}

// Extract reads the PDF at path and returns its slides in page order.
// The returned error is an *common.ExtractionError when the file cannot
// be parsed as a PDF.
func (e *Extractor) Extract(ctx context.Context, path string) (*Deck, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &common.ExtractionError{Path: path, Err: err}
	}

	e.cacheMu.RLock()
	if cached, ok := e.cache[abs]; ok {
		e.cacheMu.RUnlock()
		return cached, nil
	}
	e.cacheMu.RUnlock()

	result, err, _ := e.group.Do(abs, func() (any, error) {
		e.cacheMu.RLock()
		if cached, ok := e.cache[abs]; ok {
			e.cacheMu.RUnlock()
			return cached, nil
		}
		e.cacheMu.RUnlock()

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, &common.ExtractionError{Path: abs, Err: err}
		}

		deck, err := parseDeck(data, abs)
		if err != nil {
			return nil, err
		}

		e.cacheMu.Lock()
		e.cache[abs] = deck
		e.cacheMu.Unlock()

		return deck, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*Deck), nil
}

// parseDeck builds the deck record from raw PDF bytes. The underlying
// parser panics on some malformed xref tables, so the panic is converted
// into an ExtractionError here.
func parseDeck(data []byte, path string) (deck *Deck, err error) {
	defer func() {
		if r := recover(); r != nil {
			deck = nil
			err = &common.ExtractionError{Path: path, Err: fmt.Errorf("malformed pdf: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &common.ExtractionError{Path: path, Err: err}
	}

	slides := make([]common.Slide, 0, reader.NumPage())
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)

		var lines []string
		if !page.V.IsNull() {
			lines = pageLines(page)
		}

		slide := common.Slide{
			PresentationKey: path,
			Number:          pageNum,
			RawText:         strings.Join(lines, "\n"),
		}

		title, body := splitTitle(lines)
		slide.Title = title
		slide.Content = cleanSlideText(body)

		slides = append(slides, slide)
	}

	pres := common.Presentation{
		Key:         path,
		Filename:    filepath.Base(path),
		Title:       presentationTitle(path, slides),
		TotalSlides: len(slides),
		Metadata:    documentInfo(reader),
	}

	return &Deck{Presentation: pres, Slides: slides}, nil
}

// pageLines reads the page text row by row, top to bottom, and joins the
// fragments of each row into one line.
func pageLines(page pdf.Page) []string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil
	}

	var lines []string
	for _, row := range rows {
		var sb strings.Builder
		for _, text := range row.Content {
			sb.WriteString(text.S)
			sb.WriteByte(' ')
		}
		line := util.CollapseWhitespace(sb.String())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// splitTitle applies the title heuristic: the first non-empty line is the
// title when it stays under the length threshold. Otherwise the title is
// empty and the whole text is body.
func splitTitle(lines []string) (title string, body []string) {
	if len(lines) == 0 {
		return "", nil
	}
	first := lines[0]
	if len(first) < slideTitleMaxLen {
		return first, lines[1:]
	}
	return "", lines
}

// cleanSlideText normalizes body text for analysis: footers removed,
// whitespace collapsed.
func cleanSlideText(lines []string) string {
	joined := strings.Join(lines, " ")
	joined = rePageFooter.ReplaceAllString(joined, "")
	return util.CollapseWhitespace(joined)
}

// presentationTitle prefers the first slide's title line and falls back to
// a prettified filename stem.
func presentationTitle(path string, slides []common.Slide) string {
	if len(slides) > 0 && len(slides[0].Title) >= presTitleMinLen {
		return truncateTitle(slides[0].Title)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	return titleCaseWords(util.CollapseWhitespace(stem))
}

func titleCaseWords(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func truncateTitle(title string) string {
	if len(title) > slideTitleMaxLen {
		return title[:slideTitleMaxLen] + "..."
	}
	return title
}

// documentInfo pulls the document information dictionary out of the PDF
// trailer. Missing or non-string entries are skipped.
func documentInfo(reader *pdf.Reader) map[string]string {
	defer func() {
		// Info dictionaries in the wild reference broken objects; metadata
		// is best-effort.
		_ = recover()
	}()

	info := reader.Trailer().Key("Info")
	if info.Kind() != pdf.Dict {
		return nil
	}

	metadata := make(map[string]string)
	for _, key := range []string{"Title", "Author", "Subject", "Creator", "Producer"} {
		value := info.Key(key)
		if value.Kind() == pdf.String {
			if text := strings.TrimSpace(value.RawString()); text != "" {
				metadata[strings.ToLower(key)] = util.SanitizeStoreText(text)
			}
		}
	}
	if len(metadata) == 0 {
		return nil
	}
	return metadata
}
