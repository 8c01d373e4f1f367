// Package main implements the document chat API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Jatin-93/pdf-chatbot/engine/domain"
	"github.com/Jatin-93/pdf-chatbot/engine/index"
	"github.com/Jatin-93/pdf-chatbot/engine/rag"
	"github.com/Jatin-93/pdf-chatbot/engine/semantic"
	"github.com/Jatin-93/pdf-chatbot/pkg/llm"
	"github.com/Jatin-93/pdf-chatbot/pkg/metrics"
	"github.com/Jatin-93/pdf-chatbot/pkg/mid"
)

const maxRequestBytes = 1 << 20

// --- metrics ---

var (
	reg           = metrics.New()
	queriesTotal  = reg.Counter("queries_total", "Total document queries received.")
	queryDuration = reg.Histogram("query_duration_seconds", "End-to-end query latency in seconds.", nil)
	indexReady    = reg.Gauge("index_ready", "Whether the passage index is ready (1) or not (0).")
)

// Config holds all environment-based configuration.
type Config struct {
	Port          string
	OpenAIKey     string
	OpenAIBaseURL string
	EmbedModel    string
	ChatModel     string
	EmbedDims     int
	EmbedRPS      float64
	QdrantURL     string
	Collection    string
	VectorBackend string
	DocumentPath  string
	CORSOrigin    string
}

func loadConfig() Config {
	return Config{
		Port:          envOr("PORT", "8080"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		EmbedModel:    envOr("EMBED_MODEL", llm.DefaultEmbedModel),
		ChatModel:     envOr("CHAT_MODEL", llm.DefaultChatModel),
		EmbedDims:     envIntOr("EMBED_DIMS", llm.DefaultEmbedDims),
		EmbedRPS:      envFloatOr("EMBED_RPS", 5),
		QdrantURL:     envOr("QDRANT_URL", "localhost:6334"),
		Collection:    envOr("QDRANT_COLLECTION", "pdf_chatbot"),
		VectorBackend: envOr("VECTOR_STORE", "qdrant"),
		DocumentPath:  envOr("DOCUMENT_PATH", "document.pdf"),
		CORSOrigin:    envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()
	if cfg.OpenAIKey == "" {
		logger.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Connect to the vector store ---
	store, err := semantic.Open(cfg.VectorBackend, cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("open vector store: %w", err)
	}
	defer store.Close()

	// --- OpenAI clients ---
	api := llm.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	embedder := llm.NewEmbedClient(api, cfg.EmbedModel, cfg.EmbedDims, cfg.EmbedRPS)
	completer := llm.NewCompletionClient(api, cfg.ChatModel, nil)

	// --- Index builder + responder ---
	builder := index.New(index.FileSource{Path: cfg.DocumentPath}, embedder, store, index.DefaultOptions(), logger)
	responder := rag.New(builder, embedder, store, completer, rag.DefaultOptions(), logger)

	// --- HTTP server ---
	handler := mid.Chain(routes(responder, builder.State(), logger),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.MaxBytes(maxRequestBytes),
		mid.OTel("pdf-chatbot-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting",
			"port", cfg.Port,
			"backend", cfg.VectorBackend,
			"document", cfg.DocumentPath,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func routes(responder *rag.Responder, state *index.State, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth(state))
	mux.HandleFunc("POST /api/query", handleQuery(responder, state, logger))
	mux.Handle("GET /metrics", reg.Handler())
	return mux
}

// --- Handlers ---

// QueryRequest is the JSON body for POST /api/query.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse is the JSON response for POST /api/query.
type QueryResponse struct {
	Answer  string         `json:"answer"`
	Sources []semantic.Hit `json:"sources,omitempty"`
}

// ErrorResponse is the JSON error envelope for non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func handleHealth(state *index.State) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"index":  state.Phase().String(),
		})
	}
}

func handleQuery(responder *rag.Responder, state *index.State, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		queriesTotal.Inc()
		defer queryDuration.Since(start)

		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ans, err := responder.Query(r.Context(), req.Query)
		if state.Ready() {
			indexReady.Set(1)
		} else {
			indexReady.Set(0)
		}
		if err != nil {
			kind := kindOf(err)
			logger.Error("query failed", "err", err, "kind", kindLabel(kind))
			reg.Counter(metrics.WithLabels("query_errors_total", "kind", kindLabel(kind)),
				"Failed queries by error kind.").Inc()
			writeError(w, statusFor(kind), publicMessage(kind))
			return
		}

		writeJSON(w, http.StatusOK, QueryResponse{Answer: ans.Text, Sources: ans.Sources})
	}
}

// kinds in matching order: a build failure also carries the failing
// stage's kind, and the more specific one wins.
var kinds = []error{
	domain.ErrInvalidQuery,
	domain.ErrTimeout,
	domain.ErrExtraction,
	domain.ErrSplit,
	domain.ErrEmbedding,
	domain.ErrStoreWrite,
	domain.ErrStoreQuery,
	domain.ErrCompletion,
	domain.ErrIndexBuild,
}

// kindOf returns the first matching failure kind, nil for unclassified
// errors.
func kindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

func statusFor(kind error) int {
	switch kind {
	case domain.ErrInvalidQuery:
		return http.StatusBadRequest
	case domain.ErrTimeout:
		return http.StatusGatewayTimeout
	case nil:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func kindLabel(kind error) string {
	switch kind {
	case domain.ErrInvalidQuery:
		return "invalid_query"
	case domain.ErrTimeout:
		return "timeout"
	case domain.ErrExtraction:
		return "extraction"
	case domain.ErrSplit:
		return "split"
	case domain.ErrEmbedding:
		return "embedding"
	case domain.ErrStoreWrite:
		return "store_write"
	case domain.ErrStoreQuery:
		return "store_query"
	case domain.ErrCompletion:
		return "completion"
	case domain.ErrIndexBuild:
		return "index_build"
	default:
		return "internal"
	}
}

// publicMessage keeps internal detail out of responses: clients get the
// failure kind, logs get the full chain.
func publicMessage(kind error) string {
	if kind == nil {
		return "internal server error"
	}
	return kind.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
