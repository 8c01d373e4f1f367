// Command index builds the passage index for a document ahead of time,
// so the API server's first query does not pay the build cost.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Jatin-93/pdf-chatbot/engine/index"
	"github.com/Jatin-93/pdf-chatbot/engine/semantic"
	"github.com/Jatin-93/pdf-chatbot/pkg/llm"
)

func main() {
	var (
		docPath    = flag.String("doc", "document.pdf", "document to index")
		backend    = flag.String("backend", "qdrant", "vector store backend (qdrant|memory)")
		qdrantAddr = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection = flag.String("collection", "pdf_chatbot", "Qdrant collection name")
		model      = flag.String("model", "", "embedding model (default "+llm.DefaultEmbedModel+")")
		dims       = flag.Int("dims", llm.DefaultEmbedDims, "embedding vector width")
		rps        = flag.Float64("rps", 5, "embedding requests per second")
		reset      = flag.Bool("reset", false, "drop existing points before indexing")
		timeout    = flag.Duration("timeout", 10*time.Minute, "overall build timeout")
	)
	flag.Parse()

	_ = godotenv.Load()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := semantic.Open(*backend, *qdrantAddr, *collection)
	if err != nil {
		log.Error("open vector store failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if *reset {
		if err := store.Reset(ctx); err != nil {
			log.Error("reset collection failed", "error", err)
			os.Exit(1)
		}
		log.Info("collection dropped", "collection", *collection)
	}

	api := llm.NewOpenAI(apiKey, os.Getenv("OPENAI_BASE_URL"))
	embedder := llm.NewEmbedClient(api, *model, *dims, *rps)

	opts := index.DefaultOptions()
	opts.BuildTimeout = *timeout
	builder := index.New(index.FileSource{Path: *docPath}, embedder, store, opts, log)

	start := time.Now()
	if err := builder.Ensure(ctx); err != nil {
		log.Error("index build failed", "error", err)
		os.Exit(1)
	}

	count, err := store.Count(ctx)
	if err != nil {
		log.Warn("count points failed", "error", err)
	}
	log.Info("index built",
		"document", *docPath,
		"points", count,
		"took", time.Since(start),
	)
}
