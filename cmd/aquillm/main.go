// Command aquillm is the research document Q&A CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aquillm/aquillm/internal/adapters/driven/blob/file"
	configfile "github.com/aquillm/aquillm/internal/adapters/driven/config/file"
	embeddingollama "github.com/aquillm/aquillm/internal/adapters/driven/embedding/ollama"
	embeddingopenai "github.com/aquillm/aquillm/internal/adapters/driven/embedding/openai"
	llmanthropic "github.com/aquillm/aquillm/internal/adapters/driven/llm/anthropic"
	llmopenai "github.com/aquillm/aquillm/internal/adapters/driven/llm/openai"
	ocropenai "github.com/aquillm/aquillm/internal/adapters/driven/ocr/openai"
	"github.com/aquillm/aquillm/internal/adapters/driven/storage/sqlite"
	vectormemory "github.com/aquillm/aquillm/internal/adapters/driven/vector/memory"
	"github.com/aquillm/aquillm/internal/adapters/driving/cli"
	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
	"github.com/aquillm/aquillm/internal/core/services"
	"github.com/aquillm/aquillm/internal/formats"
	"github.com/aquillm/aquillm/internal/formats/arxiv"
	"github.com/aquillm/aquillm/internal/formats/notes"
	"github.com/aquillm/aquillm/internal/formats/pdf"
	"github.com/aquillm/aquillm/internal/formats/vtt"
	"github.com/aquillm/aquillm/internal/formats/webpage"
	"github.com/aquillm/aquillm/internal/postprocessors"
	"github.com/aquillm/aquillm/internal/postprocessors/chunker"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := configfile.NewConfigStore(os.Getenv("AQUILLM_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := sqlite.NewStore(os.Getenv("AQUILLM_DATA_DIR"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	blobs, err := file.NewBlobStore(os.Getenv("AQUILLM_BLOB_DIR"))
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	embedder, err := buildEmbedder(config)
	if err != nil {
		return fmt.Errorf("configure embedding service: %w", err)
	}
	defer embedder.Close()

	completer, err := buildCompleter(config)
	if err != nil {
		return fmt.Errorf("configure completion service: %w", err)
	}
	defer completer.Close()

	ocr := buildOCR(config)

	// Format adapters. The arXiv adapter delegates PDF extraction to
	// the plain PDF adapter after fetching.
	pdfAdapter := pdf.New()
	registry := formats.NewRegistry()
	registry.Register(pdfAdapter)
	registry.Register(vtt.New())
	registry.Register(webpage.New())
	registry.Register(arxiv.New(pdfAdapter))
	registry.Register(notes.New(ocr))

	pipeline := postprocessors.NewPipeline(chunker.New(
		chunker.WithMaxTokens(config.GetInt("chunker.max_tokens")),
		chunker.WithOverlapTokens(config.GetInt("chunker.overlap_tokens")),
	))

	vectorIndex := vectormemory.NewIndex()
	defer vectorIndex.Close()

	bus := services.NewEventBus(store.EventLog())
	defer bus.Close()

	ingestCfg := services.DefaultIngestConfig()
	if n := config.GetInt("ingest.workers"); n > 0 {
		ingestCfg.Workers = n
	}
	if n := config.GetInt("ingest.max_retries"); n > 0 {
		ingestCfg.MaxRetries = n
	}

	collections := services.NewCollectionService(store.CollectionStore(), store.DocumentStore(), vectorIndex)

	ingest := services.NewIngestOrchestrator(
		store.CollectionStore(),
		store.DocumentStore(),
		blobs,
		registry,
		pipeline,
		embedder,
		vectorIndex,
		bus,
		ingestCfg,
	)
	ingest.Start(ctx)
	defer ingest.Stop()

	// The in-memory vector index is rebuilt from stored chunks at
	// startup so ready documents stay searchable across runs.
	if err := rebuildIndex(ctx, store, collections, vectorIndex); err != nil {
		return fmt.Errorf("rebuild vector index: %w", err)
	}

	chatCfg := services.DefaultChatConfig()
	if n := config.GetInt("chat.top_k"); n > 0 {
		chatCfg.TopK = n
	}
	if n := config.GetInt("chat.context_tokens"); n > 0 {
		chatCfg.ContextTokens = n
	}
	chat := services.NewChatService(
		store.ConversationStore(),
		store.DocumentStore(),
		collections,
		embedder,
		vectorIndex,
		completer,
		chatCfg,
	)

	cli.SetVersion(version)
	cli.SetServices(&cli.Services{
		Ingest:      ingest,
		Chat:        chat,
		Collections: collections,
		Events:      bus,
		Blobs:       blobs,
	})

	return cli.Execute()
}

// buildEmbedder selects the embedding provider from configuration.
// Defaults to Ollama, which needs no API key.
func buildEmbedder(config driven.ConfigStore) (driven.EmbeddingService, error) {
	switch config.GetString("embedding.provider") {
	case "openai":
		return embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
			APIKey:  apiKey(config, "embedding.api_key", "OPENAI_API_KEY"),
			BaseURL: config.GetString("embedding.base_url"),
			Model:   config.GetString("embedding.model"),
		})
	default:
		return embeddingollama.NewEmbeddingService(embeddingollama.Config{
			BaseURL:    config.GetString("embedding.base_url"),
			Model:      config.GetString("embedding.model"),
			Dimensions: config.GetInt("embedding.dimensions"),
		}), nil
	}
}

// buildCompleter selects the completion provider from configuration.
func buildCompleter(config driven.ConfigStore) (driven.CompletionService, error) {
	switch config.GetString("llm.provider") {
	case "openai":
		return llmopenai.NewCompletionService(llmopenai.Config{
			APIKey:  apiKey(config, "llm.api_key", "OPENAI_API_KEY"),
			BaseURL: config.GetString("llm.base_url"),
			Model:   config.GetString("llm.model"),
		})
	default:
		return llmanthropic.NewCompletionService(llmanthropic.Config{
			APIKey:  apiKey(config, "llm.api_key", "ANTHROPIC_API_KEY"),
			BaseURL: config.GetString("llm.base_url"),
			Model:   config.GetString("llm.model"),
		})
	}
}

// buildOCR configures the OCR service when a key is available. Without
// one the notes source kind is rejected at ingest time.
func buildOCR(config driven.ConfigStore) driven.OCRService {
	key := apiKey(config, "ocr.api_key", "OPENAI_API_KEY")
	if key == "" {
		return nil
	}
	ocr, err := ocropenai.NewOCRService(ocropenai.Config{
		APIKey:  key,
		BaseURL: config.GetString("ocr.base_url"),
		Model:   config.GetString("ocr.model"),
	})
	if err != nil {
		return nil
	}
	return ocr
}

// apiKey reads a key from config, falling back to an environment variable.
func apiKey(config driven.ConfigStore, configKey, envVar string) string {
	if key := config.GetString(configKey); key != "" {
		return key
	}
	return os.Getenv(envVar)
}

// rebuildIndex loads embedded chunks of ready documents into the
// in-memory vector index.
func rebuildIndex(ctx context.Context, store *sqlite.Store, collections *services.CollectionService, index driven.VectorIndex) error {
	cols, err := collections.List(ctx)
	if err != nil {
		return err
	}
	docStore := store.DocumentStore()
	for _, col := range cols {
		docs, err := docStore.ListDocuments(ctx, col.ID)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if doc.State != domain.StateReady {
				continue
			}
			chunks, err := docStore.GetChunks(ctx, doc.ID)
			if err != nil {
				return err
			}
			if len(chunks) == 0 {
				continue
			}
			if err := index.UpsertDocument(ctx, doc.ID, doc.CollectionID, doc.CreatedAt, chunks); err != nil {
				return err
			}
		}
	}
	return nil
}
