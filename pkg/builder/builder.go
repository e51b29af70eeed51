// Package builder orchestrates the load pipeline: it discovers PDF decks
// under a root directory, extracts and analyzes each one, and applies the
// resulting graph delta to the store. Extraction and analysis run on a
// worker pool; store writes are serialized so counter merges never race.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/deckgraph/deckgraph/internal/timing"
	"github.com/deckgraph/deckgraph/pkg/analyzer"
	"github.com/deckgraph/deckgraph/pkg/common"
	"github.com/deckgraph/deckgraph/pkg/extractor"
	"github.com/deckgraph/deckgraph/pkg/graphstore"
	"github.com/deckgraph/deckgraph/pkg/logger"
)

const defaultWorkers = 4

// Split renders of a deck (deck_part01.pdf etc.) duplicate content that is
// already present in the full render, so discovery skips them.
var rePartFile = regexp.MustCompile(`(?i)_part\d+\.pdf$`)

// Pipeline stages, used to attribute per-file failures.
const (
	StageExtract = "extract"
	StageAnalyze = "analyze"
	StageUpsert  = "upsert"
)

// Options configure a build run.
type Options struct {
	// Recursive walks subdirectories of the root as well.
	Recursive bool
	// Clear wipes the whole graph before the first load.
	Clear bool
	// Workers bounds concurrent extract+analyze work. Zero or negative
	// selects the default.
	Workers int
}

// Failure records one file that could not be loaded.
type Failure struct {
	Path   string `json:"path"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// Summary aggregates the outcome of one build run. A run with failures is
// still a completed run; only store connectivity or argument validation
// abort it.
type Summary struct {
	RunID     string        `json:"run_id"`
	Root      string        `json:"root"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []Failure     `json:"failures,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Builder drives the extract → analyze → upsert pipeline.
type Builder struct {
	store     graphstore.Store
	extractor *extractor.Extractor
	analyzer  *analyzer.Analyzer
	opts      Options
	timings   *timing.Tracker
}

// New creates a Builder. A nil extractor or analyzer is replaced with a
// default instance.
func New(store graphstore.Store, ext *extractor.Extractor, an *analyzer.Analyzer, opts Options) *Builder {
	if ext == nil {
		ext = extractor.New()
	}
	if an == nil {
		an = analyzer.New(nil)
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &Builder{
		store:     store,
		extractor: ext,
		analyzer:  an,
		opts:      opts,
		timings:   timing.NewTracker(),
	}
}

// Run loads every deck found under root. Per-file failures are recorded in
// the summary and do not abort the run. Store connectivity failures and
// context cancellation abort after the file in flight; the partial summary
// is returned alongside the error.
func (b *Builder) Run(ctx context.Context, root string) (*Summary, error) {
	runID, err := gonanoid.New(10)
	if err != nil {
		runID = "run"
	}
	start := time.Now()

	paths, err := discover(root, b.opts.Recursive)
	if err != nil {
		return nil, err
	}

	logger.Info("starting graph build", "run", runID, "root", root, "files", len(paths), "workers", b.opts.Workers)

	if b.opts.Clear {
		if err := b.store.ClearAll(ctx); err != nil {
			return nil, err
		}
		logger.Info("cleared graph", "run", runID)
	}

	summary := &Summary{RunID: runID, Root: root, Total: len(paths)}
	var summaryMu sync.Mutex
	var storeMu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.opts.Workers)

	for _, path := range paths {
		path := path
		group.Go(func() error {
			// A canceled run finishes files already in flight but
			// starts no new ones.
			if err := groupCtx.Err(); err != nil {
				return err
			}

			err := b.processFile(groupCtx, path, &storeMu)
			if err == nil {
				summaryMu.Lock()
				summary.Succeeded++
				summaryMu.Unlock()
				return nil
			}

			var connErr *common.StoreConnectionError
			if errors.As(err, &connErr) {
				return err
			}

			summaryMu.Lock()
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{
				Path:   path,
				Stage:  failureStage(err),
				Reason: err.Error(),
			})
			summaryMu.Unlock()
			logger.Warn("file failed", "run", runID, "file", path, "error", err)
			return nil
		})
	}

	waitErr := group.Wait()
	summary.Duration = time.Since(start)
	sort.Slice(summary.Failures, func(i, j int) bool {
		return summary.Failures[i].Path < summary.Failures[j].Path
	})

	if waitErr != nil {
		logger.Error("graph build aborted", "run", runID, "error", waitErr,
			"succeeded", summary.Succeeded, "failed", summary.Failed)
		return summary, waitErr
	}

	logger.Info("graph build finished", "run", runID,
		"total", summary.Total, "succeeded", summary.Succeeded,
		"failed", summary.Failed, "duration", summary.Duration)
	for stage, stat := range b.timings.Snapshot() {
		logger.Debug("stage timing", "run", runID, "stage", stage,
			"count", stat.Count, "total", stat.Total, "avg", stat.Average())
	}
	return summary, nil
}

func (b *Builder) processFile(ctx context.Context, path string, storeMu *sync.Mutex) error {
	stopExtract := b.timings.Track(StageExtract)
	deck, err := b.extractor.Extract(ctx, path)
	stopExtract()
	if err != nil {
		return err
	}

	stopAnalyze := b.timings.Track(StageAnalyze)
	delta := b.buildDelta(deck)
	stopAnalyze()

	storeMu.Lock()
	defer storeMu.Unlock()
	stopUpsert := b.timings.Track(StageUpsert)
	defer stopUpsert()
	if err := b.store.ApplyDelta(ctx, *delta); err != nil {
		return err
	}

	logger.Debug("loaded presentation", "file", path,
		"slides", len(delta.Slides), "topics", len(delta.Topics),
		"keywords", len(delta.Keywords), "entities", len(delta.Entities))
	return nil
}

func failureStage(err error) string {
	var extractErr *common.ExtractionError
	if errors.As(err, &extractErr) {
		return StageExtract
	}
	return StageUpsert
}

// discover lists candidate deck files under root in lexical order.
func discover(root string, recursive bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &common.ValidationError{Reason: fmt.Sprintf("input path %q: %v", root, err)}
	}
	if !info.IsDir() {
		return nil, &common.ValidationError{Reason: fmt.Sprintf("input path %q is not a directory", root)}
	}

	var paths []string
	if recursive {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isDeckFile(d.Name()) {
				paths = append(paths, path)
			}
			return nil
		})
	} else {
		var entries []fs.DirEntry
		entries, err = os.ReadDir(root)
		for _, entry := range entries {
			if !entry.IsDir() && isDeckFile(entry.Name()) {
				paths = append(paths, filepath.Join(root, entry.Name()))
			}
		}
	}
	if err != nil {
		return nil, &common.ValidationError{Reason: fmt.Sprintf("listing %q: %v", root, err)}
	}

	sort.Strings(paths)
	return paths, nil
}

func isDeckFile(name string) bool {
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return false
	}
	return !rePartFile.MatchString(name)
}
