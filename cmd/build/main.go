package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deckgraph/deckgraph/internal/util"
	"github.com/deckgraph/deckgraph/pkg/analyzer"
	"github.com/deckgraph/deckgraph/pkg/builder"
	"github.com/deckgraph/deckgraph/pkg/extractor"
	"github.com/deckgraph/deckgraph/pkg/graphstore/neo4j"
	"github.com/deckgraph/deckgraph/pkg/logger"
	"github.com/deckgraph/deckgraph/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	recursive := flag.Bool("recursive", false, "descend into subdirectories")
	clear := flag.Bool("clear", false, "wipe the graph before loading")
	workers := flag.Int("workers", util.GetEnvInt("PARALLEL_FILES", 4), "concurrent files")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <directory>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	root := flag.Arg(0)

	vocab := analyzer.DefaultVocabulary()
	if vocabPath := util.GetEnv("VOCAB_PATH"); vocabPath != "" {
		var err error
		if vocab, err = analyzer.LoadVocabulary(vocabPath); err != nil {
			logger.Fatal("loading vocabulary", "error", err)
		}
	}

	store, err := neo4j.NewStoreFromEnv(ctx)
	if err != nil {
		logger.Fatal("connecting to graph store", "error", err)
	}
	defer store.Close(context.Background())

	b := builder.New(store, extractor.New(), analyzer.New(vocab), builder.Options{
		Recursive: *recursive,
		Clear:     *clear,
		Workers:   *workers,
	})

	summary, err := b.Run(ctx, root)
	if err != nil {
		if summary != nil {
			printSummary(summary)
		}
		logger.Error("build failed", "error", err)
		os.Exit(1)
	}

	printSummary(summary)
}

func printSummary(s *builder.Summary) {
	fmt.Printf("Run %s: %d files, %d succeeded, %d failed (%s)\n",
		s.RunID, s.Total, s.Succeeded, s.Failed, s.Duration.Round(time.Millisecond))
	for _, failure := range s.Failures {
		fmt.Printf("  FAILED %-8s %s: %s\n", failure.Stage, failure.Path, failure.Reason)
	}
}
