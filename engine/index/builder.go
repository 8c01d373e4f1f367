// Package index builds the passage index for the configured document:
// extract, split, embed, and persist, at most once per process.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Jatin-93/pdf-chatbot/engine/domain"
	"github.com/Jatin-93/pdf-chatbot/engine/extract"
	"github.com/Jatin-93/pdf-chatbot/engine/semantic"
	"github.com/Jatin-93/pdf-chatbot/pkg/fn"
)

const (
	// DefaultBatchSize is the number of passages embedded and written
	// per batch.
	DefaultBatchSize = 100
	// DefaultBatchWorkers bounds concurrent embedding calls within a
	// batch.
	DefaultBatchWorkers = 8
	// DefaultBuildTimeout caps a single build attempt.
	DefaultBuildTimeout = 5 * time.Minute
)

// Source supplies the raw document bytes.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
}

// FileSource loads the document from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Load(context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return data, nil
}

// BytesSource serves an in-memory document.
type BytesSource struct {
	Data []byte
}

func (s BytesSource) Load(context.Context) ([]byte, error) { return s.Data, nil }

// Embedder turns one text into a vector. *llm.EmbedClient satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dims() int
}

// Store is the vector-store slice the builder writes through.
// semantic.Backend satisfies it.
type Store interface {
	EnsureCollection(ctx context.Context, dims int) error
	Upsert(ctx context.Context, records []semantic.Record) error
}

// Options tunes the build pipeline.
type Options struct {
	PassageSize    int
	PassageOverlap int
	BatchSize      int
	BatchWorkers   int
	BuildTimeout   time.Duration
}

// DefaultOptions returns the production build settings.
func DefaultOptions() Options {
	return Options{
		PassageSize:    DefaultPassageSize,
		PassageOverlap: DefaultPassageOverlap,
		BatchSize:      DefaultBatchSize,
		BatchWorkers:   DefaultBatchWorkers,
		BuildTimeout:   DefaultBuildTimeout,
	}
}

// Builder runs the document through extract, split, embed, and upsert.
// Ensure is safe from any number of goroutines; concurrent callers share
// a single in-flight build, and a completed build is never repeated.
type Builder struct {
	source   Source
	embedder Embedder
	store    Store
	state    *State
	opts     Options
	log      *slog.Logger
	run      fn.Stage[struct{}, Stats]
	group    singleflight.Group
}

// New creates a Builder. Zero option fields fall back to defaults.
func New(source Source, embedder Embedder, store Store, opts Options, log *slog.Logger) *Builder {
	if opts.PassageSize <= 0 {
		opts.PassageSize = DefaultPassageSize
	}
	if opts.PassageOverlap < 0 {
		opts.PassageOverlap = 0
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = DefaultBatchWorkers
	}
	if opts.BuildTimeout <= 0 {
		opts.BuildTimeout = DefaultBuildTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	b := &Builder{
		source:   source,
		embedder: embedder,
		store:    store,
		state:    NewState(),
		opts:     opts,
		log:      log,
	}
	b.run = b.pipeline()
	return b
}

// State exposes the build lifecycle for health reporting.
func (b *Builder) State() *State { return b.state }

// Ensure makes the index ready, building it on first use. A caller whose
// context ends stops waiting, but the build itself keeps running to
// completion. After a failed build the next call starts a fresh attempt.
func (b *Builder) Ensure(ctx context.Context) error {
	if b.state.Ready() {
		return nil
	}

	ch := b.group.DoChan("build", func() (any, error) {
		return nil, b.build(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		err := ctx.Err()
		return domain.NewStageError("await index build", domain.Classify(err, domain.ErrIndexBuild), err)
	case res := <-ch:
		return res.Err
	}
}

// build runs one attempt. The parent carries the winning caller's trace
// but not its cancellation: the index outlives any single request, so
// the pipeline gets its own deadline.
func (b *Builder) build(parent context.Context) error {
	if b.state.Ready() {
		return nil
	}
	b.state.setBuilding()
	b.log.Info("index: build started",
		"passage_size", b.opts.PassageSize,
		"passage_overlap", b.opts.PassageOverlap,
		"batch_size", b.opts.BatchSize,
	)

	ctx, cancel := context.WithTimeout(parent, b.opts.BuildTimeout)
	defer cancel()

	start := time.Now()
	result := b.run(ctx, struct{}{})
	if result.IsErr() {
		_, err := result.Unwrap()
		buildErr := domain.NewStageError("build index", domain.ErrIndexBuild, err)
		b.state.setFailed(buildErr)
		b.log.Error("index: build failed", "error", err, "duration", time.Since(start))
		return buildErr
	}

	stats, _ := result.Unwrap()
	stats.Duration = time.Since(start)
	b.state.setReady()
	b.log.Info("index: build complete",
		"passages", stats.Passages,
		"batches", stats.Batches,
		"duration", stats.Duration,
	)
	return nil
}

// pipeline composes load → extract → split → persist.
func (b *Builder) pipeline() fn.Stage[struct{}, Stats] {
	loaded := fn.TracedStage("index.load", b.loadStage())
	text := fn.Then(loaded, fn.TracedStage("index.extract", extractStage))
	passages := fn.Then(text, fn.TracedStage("index.split", b.splitStage()))
	logged := fn.Then(passages, fn.TapStage(func(_ context.Context, ps []Passage) {
		b.log.Info("index: split complete", "passages", len(ps))
	}))
	return fn.Then(logged, fn.TracedStage("index.persist", b.persistStage()))
}

func (b *Builder) loadStage() fn.Stage[struct{}, []byte] {
	return func(ctx context.Context, _ struct{}) fn.Result[[]byte] {
		data, err := b.source.Load(ctx)
		if err != nil {
			return fn.Err[[]byte](domain.NewStageError("load document", domain.ErrExtraction, err))
		}
		return fn.Ok(data)
	}
}

var extractStage fn.Stage[[]byte, string] = func(_ context.Context, data []byte) fn.Result[string] {
	return fn.FromPair(extract.Text(data))
}

func (b *Builder) splitStage() fn.Stage[string, []Passage] {
	return func(_ context.Context, text string) fn.Result[[]Passage] {
		passages := SplitPassages(text, b.opts.PassageSize, b.opts.PassageOverlap)
		if len(passages) == 0 {
			return fn.Err[[]Passage](domain.NewStageError("split", domain.ErrSplit,
				fmt.Errorf("no passages from %d bytes of text", len(text))))
		}
		return fn.Ok(passages)
	}
}

// persistStage embeds each batch concurrently, then writes it before the
// next batch starts. Passage ids are stable, so rebuilding after a
// partial failure rewrites the same points instead of duplicating them.
func (b *Builder) persistStage() fn.Stage[[]Passage, Stats] {
	embedOne := func(ctx context.Context, p Passage) fn.Result[semantic.Record] {
		vec, err := b.embedder.Embed(ctx, p.Text)
		if err != nil {
			return fn.Err[semantic.Record](domain.NewStageError(
				fmt.Sprintf("embed passage %d", p.Ordinal), domain.Classify(err, domain.ErrEmbedding), err))
		}
		return fn.Ok(semantic.Record{
			ID:      PassageID(p.Ordinal),
			Vector:  vec,
			Text:    p.Text,
			Ordinal: p.Ordinal,
		})
	}
	embedBatch := fn.BatchStage(b.opts.BatchWorkers, embedOne)

	return func(ctx context.Context, passages []Passage) fn.Result[Stats] {
		if err := b.store.EnsureCollection(ctx, b.embedder.Dims()); err != nil {
			return fn.Err[Stats](domain.NewStageError("ensure collection",
				domain.Classify(err, domain.ErrStoreWrite), err))
		}

		batches := fn.Chunk(passages, b.opts.BatchSize)
		for i, batch := range batches {
			embedded := embedBatch(ctx, batch)
			if embedded.IsErr() {
				_, err := embedded.Unwrap()
				return fn.Err[Stats](err)
			}
			records, _ := embedded.Unwrap()
			if err := b.store.Upsert(ctx, records); err != nil {
				return fn.Err[Stats](domain.NewStageError(
					fmt.Sprintf("upsert batch %d", i), domain.Classify(err, domain.ErrStoreWrite), err))
			}
		}
		return fn.Ok(Stats{Passages: len(passages), Batches: len(batches)})
	}
}
