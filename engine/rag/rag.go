// Package rag orchestrates the retrieval-augmented answer pipeline.
// A query makes sure the passage index exists, embeds the question,
// retrieves the closest passages, and asks the model with exactly those
// passages as context.
package rag

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Jatin-93/pdf-chatbot/engine/domain"
	"github.com/Jatin-93/pdf-chatbot/engine/semantic"
	"github.com/Jatin-93/pdf-chatbot/pkg/fn"
)

// SystemInstruction pins the model to the retrieved context.
const SystemInstruction = `You are a helpful assistant answering questions about a single document.
Answer using ONLY the provided context. If the context does not contain
the answer, say that the document does not cover it.`

const (
	// DefaultTopK is the number of passages retrieved per query.
	DefaultTopK = 5
	// DefaultMaxTokens bounds the answer length.
	DefaultMaxTokens = 512
	// DefaultTemperature leaves the model some phrasing freedom without
	// letting it wander from the context.
	DefaultTemperature = 0.5
)

// Ensurer builds the passage index on first use. *index.Builder
// satisfies it.
type Ensurer interface {
	Ensure(ctx context.Context) error
}

// Embedder turns the question into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher retrieves the closest passages. semantic.Backend satisfies it.
type Searcher interface {
	Query(ctx context.Context, vector []float32, topK int) ([]semantic.Hit, error)
}

// Completer produces the final answer text. *llm.CompletionClient
// satisfies it.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, maxTokens int, temperature float32) (string, error)
}

// Options configures retrieval and generation.
type Options struct {
	TopK          int
	MaxTokens     int
	Temperature   float32
	EmbedTimeout  time.Duration
	SearchTimeout time.Duration
	AnswerTimeout time.Duration
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		TopK:          DefaultTopK,
		MaxTokens:     DefaultMaxTokens,
		Temperature:   DefaultTemperature,
		EmbedTimeout:  10 * time.Second,
		SearchTimeout: 5 * time.Second,
		AnswerTimeout: 30 * time.Second,
	}
}

// Responder answers questions about the indexed document.
type Responder struct {
	index Ensurer
	embed Embedder
	store Searcher
	llm   Completer
	opts  Options
	log   *slog.Logger
}

// New creates a Responder. Zero option fields fall back to defaults.
func New(index Ensurer, embed Embedder, store Searcher, llm Completer, opts Options, log *slog.Logger) *Responder {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = 10 * time.Second
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = 5 * time.Second
	}
	if opts.AnswerTimeout <= 0 {
		opts.AnswerTimeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Responder{
		index: index,
		embed: embed,
		store: store,
		llm:   llm,
		opts:  opts,
		log:   log,
	}
}

// Answer is the assembled response with the passages that backed it.
type Answer struct {
	Text    string         `json:"answer"`
	Sources []semantic.Hit `json:"sources,omitempty"`
}

// Query runs the full pipeline for one question. Failures carry the
// stage and kind of the step that broke; there are no partial answers.
func (r *Responder) Query(ctx context.Context, query string) (*Answer, error) {
	q, err := domain.ValidateQuery(query)
	if err != nil {
		return nil, err
	}

	log := r.log.With("query_len", len(q))
	log.Info("rag: query start")

	if err := r.index.Ensure(ctx); err != nil {
		// Already carries the build kind.
		return nil, err
	}

	vec, err := r.embedQuery(ctx, q)
	if err != nil {
		return nil, err
	}

	hits, err := r.searchPassages(ctx, vec)
	if err != nil {
		return nil, err
	}
	log.Info("rag: retrieved", "hits", len(hits))

	text, err := r.completeAnswer(ctx, BuildPrompt(q, hits))
	if err != nil {
		return nil, err
	}

	log.Info("rag: answered", "answer_len", len(text))
	return &Answer{Text: text, Sources: hits}, nil
}

func (r *Responder) embedQuery(ctx context.Context, q string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.EmbedTimeout)
	defer cancel()

	vec, err := r.embed.Embed(ctx, q)
	if err != nil {
		return nil, domain.NewStageError("embed query", domain.Classify(err, domain.ErrEmbedding), err)
	}
	return vec, nil
}

func (r *Responder) searchPassages(ctx context.Context, vec []float32) ([]semantic.Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.SearchTimeout)
	defer cancel()

	hits, err := r.store.Query(ctx, vec, r.opts.TopK)
	if err != nil {
		return nil, domain.NewStageError("search passages", domain.Classify(err, domain.ErrStoreQuery), err)
	}
	return hits, nil
}

func (r *Responder) completeAnswer(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.AnswerTimeout)
	defer cancel()

	text, err := r.llm.Complete(ctx, SystemInstruction, prompt, r.opts.MaxTokens, r.opts.Temperature)
	if err != nil {
		return "", domain.NewStageError("complete answer", domain.Classify(err, domain.ErrCompletion), err)
	}
	return text, nil
}

// BuildPrompt joins the hit texts with newlines in retrieval order and
// appends the question. No re-ranking, dedup, or truncation: what the
// store returned is what the model sees.
func BuildPrompt(question string, hits []semantic.Hit) string {
	passages := strings.Join(fn.Map(hits, func(h semantic.Hit) string { return h.Text }), "\n")

	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(passages)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
