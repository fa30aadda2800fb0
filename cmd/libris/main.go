// Copyright 2025 The Libris Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/libris-ai/libris"
	"github.com/libris-ai/libris/backfill"
	"github.com/libris-ai/libris/config"
	"github.com/libris-ai/libris/core"
	"github.com/libris-ai/libris/search"
)

func main() {
	app := &cli.App{
		Name:  "libris",
		Usage: "Personal resource librarian with hybrid semantic search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "add",
				Usage:  "Save a resource (updates an existing one matching by url or title)",
				Action: addCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "title",
						Aliases: []string{"t"},
						Usage:   "Resource title (derived from the url when omitted)",
					},
					&cli.StringFlag{
						Name:    "url",
						Aliases: []string{"u"},
						Usage:   "Resource URL",
					},
					&cli.StringFlag{
						Name:    "notes",
						Aliases: []string{"n"},
						Usage:   "Free-form notes",
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Tag (repeatable; only the first is persisted)",
					},
					&cli.StringSliceFlag{
						Name:  "category",
						Usage: "Category (repeatable; only the first is persisted)",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search stored resources",
				ArgsUsage: "[query]",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Narrow by tag",
					},
					&cli.StringSliceFlag{
						Name:  "category",
						Usage: "Narrow by category",
					},
					&cli.StringSliceFlag{
						Name:    "keyword",
						Aliases: []string{"k"},
						Usage:   "Keyword to match (repeatable, expanded with singular variants)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: core.DefaultSearchLimit,
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "Trace the search phases",
					},
				},
			},
			{
				Name:   "backfill",
				Usage:  "Generate embeddings for resources stored without one",
				Action: backfillCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of resources to embed in each provider call",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N resources",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed embedding calls",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent store writers",
						Value: 2,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openLibrary(ctx context.Context, opts ...libris.Option) (*libris.Library, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	lib, err := libris.New(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("assembling librarian: %w", err)
	}
	return lib, nil
}

func addCommand(c *cli.Context) error {
	ctx := c.Context

	title := c.String("title")
	url := c.String("url")
	notes := c.String("notes")
	if title == "" {
		title = core.DeriveTitle(url, notes)
	}

	lib, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer lib.Close()

	record, err := lib.Save(ctx, core.ResourceInput{
		Title:      title,
		URL:        url,
		Notes:      notes,
		Tags:       c.StringSlice("tag"),
		Categories: c.StringSlice("category"),
	})
	if err != nil {
		return fmt.Errorf("saving resource: %w", err)
	}

	if record.Id == "" {
		fmt.Printf("Saved %q (not yet visible in the store)\n", record.Title)
		return nil
	}
	fmt.Printf("Saved %q (%s)\n", record.Title, record.Id)
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := c.Context

	var opts []libris.Option
	if c.Bool("verbose") {
		opts = append(opts, libris.WithSearchMonitor(&traceMonitor{out: os.Stderr}))
	}

	lib, err := openLibrary(ctx, opts...)
	if err != nil {
		return err
	}
	defer lib.Close()

	result := lib.Search(ctx, search.Request{
		Tags:       c.StringSlice("tag"),
		Categories: c.StringSlice("category"),
		Query:      strings.Join(c.Args().Slice(), " "),
		Keywords:   c.StringSlice("keyword"),
		Limit:      c.Int("limit"),
	})

	for _, notice := range result.Notices {
		fmt.Fprintf(os.Stderr, "note: %s\n", notice)
	}

	if len(result.Records) == 0 {
		fmt.Println("No matching resources")
		return nil
	}

	for i, record := range result.Records {
		fmt.Printf("%d. %s\n", i+1, record.Title)
		if record.URL != "" {
			fmt.Printf("   %s\n", record.URL)
		}
		if record.Notes != "" {
			fmt.Printf("   %s\n", record.Notes)
		}
		if len(record.Tags) > 0 || len(record.Categories) > 0 {
			fmt.Printf("   tags: %s  categories: %s\n",
				strings.Join(record.Tags, ", "), strings.Join(record.Categories, ", "))
		}
	}
	return nil
}

func backfillCommand(c *cli.Context) error {
	ctx := c.Context

	backfillConfig := &backfill.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Workers:        c.Int("workers"),
	}
	if backfillConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if backfillConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if backfillConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}
	if backfillConfig.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0")
	}

	lib, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer lib.Close()

	runner, err := lib.NewBackfillRunner(backfillConfig, os.Stderr)
	if err != nil {
		return fmt.Errorf("creating backfill runner: %w", err)
	}
	defer runner.Close()

	if _, err := runner.Run(ctx); err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}
	return nil
}

// traceMonitor prints each search stage for --verbose.
type traceMonitor struct {
	out *os.File
}

var _ search.Monitor = (*traceMonitor)(nil)

func (m *traceMonitor) Start(query string, keywords []string) {
	fmt.Fprintf(m.out, "searching query=%q keywords=%v\n", query, keywords)
}

func (m *traceMonitor) AfterSemanticSearch(records []core.ResourceRecord) {
	fmt.Fprintf(m.out, "semantic phase: %d hits\n", len(records))
}

func (m *traceMonitor) SemanticDegraded(reason search.DegradedReason) {
	fmt.Fprintf(m.out, "semantic phase degraded: %s\n", reason.Detail)
}

func (m *traceMonitor) AfterKeywordSearch(terms []string, records []core.ResourceRecord) {
	fmt.Fprintf(m.out, "keyword phase: terms=%v, %d new hits\n", terms, len(records))
}

func (m *traceMonitor) Finish(records []core.ResourceRecord, notices []string) {
	fmt.Fprintf(m.out, "finished with %d records, %d notices\n", len(records), len(notices))
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
