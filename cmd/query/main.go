package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/deckgraph/deckgraph/internal/util"
	"github.com/deckgraph/deckgraph/pkg/common"
	"github.com/deckgraph/deckgraph/pkg/graphstore/neo4j"
	"github.com/deckgraph/deckgraph/pkg/insight"
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

	action := flag.String("action", "", "one of: agenda, topics, search, summary, related, blog, stats")
	query := flag.String("query", "", "parameter for search/summary/related/blog")
	limit := flag.Int("limit", 5, "result limit where applicable")
	minTrack := flag.Int("min-presentations", 2, "minimum presentations per agenda track")
	flag.Parse()

	store, err := neo4j.NewStoreFromEnv(ctx)
	if err != nil {
		logger.Fatal("connecting to graph store", "error", err)
	}
	defer store.Close(context.Background())

	tools := insight.New(store)

	if err := run(ctx, tools, *action, *query, *limit, *minTrack); err != nil {
		var notFound *common.NotFoundError
		if errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "not found: %s %q\n", notFound.Kind, notFound.Key)
			os.Exit(1)
		}
		logger.Fatal("query failed", "action", *action, "error", err)
	}
}

func run(ctx context.Context, tools *insight.Tools, action, query string, limit, minTrack int) error {
	switch action {
	case "topics":
		return printTopics(ctx, tools)
	case "agenda":
		return printAgenda(ctx, tools, limit, minTrack)
	case "search":
		if query == "" {
			return &common.ValidationError{Reason: "search requires --query"}
		}
		return printSearch(ctx, tools, query)
	case "summary":
		if query == "" {
			return &common.ValidationError{Reason: "summary requires --query <presentation key>"}
		}
		return printSummary(ctx, tools, query)
	case "related":
		if query == "" {
			return &common.ValidationError{Reason: "related requires --query <presentation key>"}
		}
		return printRelated(ctx, tools, query, limit)
	case "blog":
		if query == "" {
			return &common.ValidationError{Reason: "blog requires --query <topic>"}
		}
		return printBlog(ctx, tools, query)
	case "stats":
		return printStats(ctx, tools)
	default:
		return &common.ValidationError{Reason: fmt.Sprintf("unknown action %q", action)}
	}
}

func printTopics(ctx context.Context, tools *insight.Tools) error {
	topics, err := tools.ListTopics(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d topics:\n", len(topics))
	for i, topic := range topics {
		fmt.Printf("%3d. %-30s %5d mentions in %d presentations\n",
			i+1, topic.Name, topic.TotalMentions, topic.Presentations)
	}
	return nil
}

func printAgenda(ctx context.Context, tools *insight.Tools, topK, minTrack int) error {
	tracks, err := tools.AgendaSuggestions(ctx, topK, minTrack)
	if err != nil {
		return err
	}
	fmt.Printf("%d suggested tracks:\n", len(tracks))
	for i, track := range tracks {
		fmt.Printf("%3d. %s (%d presentations, %d mentions)\n",
			i+1, track.Topic, track.Presentations, track.TotalMentions)
		if len(track.RelatedTopics) > 0 {
			fmt.Printf("     related: %s\n", strings.Join(track.RelatedTopics, ", "))
		}
	}
	return nil
}

func printSearch(ctx context.Context, tools *insight.Tools, query string) error {
	matches, err := tools.Search(ctx, query)
	if err != nil {
		return err
	}
	fmt.Printf("%d matches for %q:\n", len(matches), query)
	for _, match := range matches {
		fmt.Printf("  [%s] %s\n", strings.ToLower(string(match.Kind)), match.Name)
		for _, p := range match.Presentations {
			fmt.Printf("      - %s (%s)\n", p.Title, p.Filename)
		}
	}
	return nil
}

func printSummary(ctx context.Context, tools *insight.Tools, key string) error {
	summary, err := tools.Summary(ctx, key)
	if err != nil {
		return err
	}
	p := summary.Presentation
	fmt.Printf("%s\n  file: %s\n  slides: %d\n", p.Title, p.Filename, p.TotalSlides)
	if len(summary.Topics) > 0 {
		fmt.Println("  topics:")
		for _, topic := range summary.Topics {
			fmt.Printf("    %-30s %d\n", topic.Name, topic.Weight)
		}
	}
	if len(summary.Keywords) > 0 {
		terms := make([]string, 0, len(summary.Keywords))
		for _, keyword := range summary.Keywords {
			terms = append(terms, keyword.Term)
		}
		fmt.Printf("  keywords: %s\n", strings.Join(terms, ", "))
	}
	if len(summary.Entities) > 0 {
		fmt.Println("  entities:")
		for _, entity := range summary.Entities {
			fmt.Printf("    %-30s %s\n", entity.Name, entity.Type)
		}
	}
	return nil
}

func printRelated(ctx context.Context, tools *insight.Tools, key string, limit int) error {
	related, err := tools.RelatedPresentations(ctx, key, limit)
	if err != nil {
		return err
	}
	fmt.Printf("%d related presentations:\n", len(related))
	for i, entry := range related {
		fmt.Printf("%3d. %s (%s), %d shared topics\n",
			i+1, entry.Presentation.Title, entry.Presentation.Filename, entry.SharedTopics)
	}
	return nil
}

func printBlog(ctx context.Context, tools *insight.Tools, topic string) error {
	material, err := tools.BlogPostMaterial(ctx, topic)
	if err != nil {
		return err
	}
	fmt.Printf("Topic: %s (%d total mentions)\n", material.Topic, material.TotalMentions)
	if len(material.RelatedTopics) > 0 {
		fmt.Printf("Related: %s\n", strings.Join(material.RelatedTopics, ", "))
	}
	fmt.Printf("Covered by %d presentations:\n", len(material.Presentations))
	for _, entry := range material.Presentations {
		fmt.Printf("  %s (%s), weight %d\n",
			entry.Presentation.Title, entry.Presentation.Filename, entry.CoverWeight)
		if len(entry.Keywords) > 0 {
			terms := make([]string, 0, len(entry.Keywords))
			for _, keyword := range entry.Keywords {
				terms = append(terms, keyword.Term)
			}
			fmt.Printf("    keywords: %s\n", strings.Join(terms, ", "))
		}
	}
	return nil
}

func printStats(ctx context.Context, tools *insight.Tools) error {
	stats, err := tools.Statistics(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("presentations: %d\nslides: %d\ntopics: %d\nkeywords: %d\nentities: %d\n",
		stats.Presentations, stats.Slides, stats.Topics, stats.Keywords, stats.Entities)
	return nil
}
