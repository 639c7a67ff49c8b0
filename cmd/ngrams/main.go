// Copyright 2025 The NextServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the n-gram store builder.

It reads plain text corpora, counts unigrams, bigrams and trigrams per
sentence, and writes the SQLite store nextserve serves predictions from.
Words below the frequency floor are dropped, the vocabulary can be capped
at the N most frequent words, and files are ingested concurrently.

Build a store from two corpus files:

	ngrams -o ngrams.db -min-freq 3 -max-words 50000 corpus_a.txt corpus_b.txt

The output replaces any existing file at the same path, so rebuilding is
just running the command again.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bastiangx/nextserve/internal/utils"
	"github.com/bastiangx/nextserve/pkg/corpus"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

func main() {
	out := flag.String("o", "ngrams.db", "Output path for the store")
	minFreq := flag.Int("min-freq", 1, "Drop words and n-grams seen fewer times than this")
	maxWords := flag.Int("max-words", 0, "Cap the vocabulary at the N most frequent words (0 for no cap)")
	workers := flag.Int("workers", 0, "Concurrent file readers (0 for one per CPU)")
	debugMode := flag.Bool("d", false, "Toggle debug mode")

	flag.Parse()

	if *debugMode {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: ngrams [flags] corpus.txt [corpus.txt ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	// Ctrl+C cancels ingestion instead of leaving a half-written store.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	builder := corpus.NewBuilder(corpus.Options{
		MinFreq:  *minFreq,
		MaxWords: *maxWords,
		Workers:  *workers,
	})

	start := time.Now()
	stats, err := builder.Build(ctx, paths, *out)
	if err != nil {
		log.Fatalf("build failed: %v", err)
		os.Exit(1)
	}

	showSummary(*out, stats, time.Since(start))
}

// showSummary prints what ended up in the store.
func showSummary(out string, stats corpus.BuildStats, elapsed time.Duration) {
	title := lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Render(" ngrams ")

	fmt.Fprintln(os.Stderr, title)
	log.Infof("store: ( %s )", out)
	log.Infof("words: %s", utils.FormatWithCommas(stats.Words))
	log.Infof("bigrams: %s", utils.FormatWithCommas(stats.Bigrams))
	log.Infof("trigrams: %s", utils.FormatWithCommas(stats.Trigrams))
	log.Infof("took: %v", elapsed.Round(time.Millisecond))
}
