// Package embedder generates vector embeddings for messages and document
// chunks using pluggable providers.
//
// The contract is deliberately small: EmbedBatch takes texts and returns one
// vector per text, in order, at a fixed dimensionality per provider. Batching
// exists purely to bound call overhead and cost; batch size carries no
// correctness meaning.
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{
//	    Provider:  "ollama",
//	    Endpoint:  "http://localhost:11434",
//	    Model:     "nomic-embed-text",
//	    CacheSize: 10000,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	vectors, err := emb.EmbedBatch(ctx, []string{"first text", "second text"})
//	// len(vectors) == 2, vectors[i] belongs to texts[i]
//
// # Provider Selection
//
// NewFromEnv selects a provider from environment variables:
//
//  1. If RECALL_EMBEDDING_PROVIDER is set → use specified provider
//  2. Else if OPENAI_API_KEY is set → use OpenAI
//  3. Else → fallback to local provider (offline mode)
//
// Providers:
//
// Ollama (recommended, runs locally):
//   - Endpoint: /api/embed against a local Ollama server
//   - Default model: nomic-embed-text, 768 dimensions
//
// OpenAI:
//   - Endpoint: /v1/embeddings
//   - Default model: text-embedding-3-small, 1536 dimensions
//
// Local (offline):
//   - Deterministic hash-derived unit vectors, 384 dimensions
//   - No semantic meaning; exists so indexing and tests run with no server
//
// # Caching
//
// All providers share an LRU cache keyed by content hash, so re-ingesting a
// transcript only pays for lines it has never embedded:
//
//	cache := embedder.NewCache(10000)
//	provider := embedder.NewOllamaProvider(url, model, cache)
//
// # Error Handling
//
// HTTP providers retry transient failures with exponential backoff. A batch
// that still fails after retries returns ErrProviderFailed; callers count
// the batch's messages as skipped and continue with other batches.
package embedder
