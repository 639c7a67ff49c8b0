// Package corpus turns raw text into the n-gram store the predictor serves
// from: tokenize, count uni/bi/trigrams per sentence, then write the SQLite
// tables with token ids assigned by descending frequency.
package corpus

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/bastiangx/nextserve/internal/logger"
)

// Options tunes a build. Zero values mean: keep every word, no vocabulary
// cap, one worker per CPU.
type Options struct {
	// MinFreq drops words and n-grams seen fewer times than this.
	MinFreq int
	// MaxWords caps the vocabulary at the N most frequent words.
	MaxWords int
	// Workers bounds concurrent file ingestion.
	Workers int
}

// Builder ingests corpus files and writes stores.
type Builder struct {
	opts Options
	log  *log.Logger
}

// NewBuilder returns a builder with opts normalized.
func NewBuilder(opts Options) *Builder {
	if opts.MinFreq < 1 {
		opts.MinFreq = 1
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	return &Builder{opts: opts, log: logger.New("corpus")}
}

// Ingest counts n-grams across all paths, one worker per file up to the
// configured bound. Counts merge additively, so the result is independent of
// file order and scheduling.
func (b *Builder) Ingest(ctx context.Context, paths []string) (*Counter, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("corpus: no input files")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)

	var mu sync.Mutex
	total := NewCounter()

	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("corpus: open %s: %w", path, err)
			}
			defer f.Close()

			local := NewCounter()
			if err := local.AddText(f); err != nil {
				return fmt.Errorf("corpus: read %s: %w", path, err)
			}
			b.log.Debug("ingested file", "path", path, "words", local.Words(), "tokens", local.Tokens())

			mu.Lock()
			total.Merge(local)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	b.log.Info("corpus ingested",
		"files", len(paths), "words", total.Words(), "tokens", total.Tokens())
	return total, nil
}

// Build ingests paths and writes the store at out in one step.
func (b *Builder) Build(ctx context.Context, paths []string, out string) (BuildStats, error) {
	counter, err := b.Ingest(ctx, paths)
	if err != nil {
		return BuildStats{}, err
	}
	return b.WriteStore(out, counter)
}
