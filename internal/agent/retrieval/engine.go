package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/leadline-ai/engine/internal/agent/model"
	logx "github.com/leadline-ai/engine/pkg/logger"
)

// Engine turns free text into a ranked list of relevant chunks from one of
// the two corpora. It is stateless with respect to conversation state; every
// call re-ranks from scratch.
type Engine struct {
	embedder model.Embedder
	searcher model.ChunkSearcher
	cfg      model.RetrievalConfig
	timeout  time.Duration
}

func NewEngine(embedder model.Embedder, searcher model.ChunkSearcher, cfg model.RetrievalConfig) *Engine {
	timeout := 10 * time.Second
	if d, err := time.ParseDuration(cfg.Timeout); err == nil && d > 0 {
		timeout = d
	}
	return &Engine{
		embedder: embedder,
		searcher: searcher,
		cfg:      cfg,
		timeout:  timeout,
	}
}

// ThresholdFor returns the configured similarity threshold for a corpus.
func (e *Engine) ThresholdFor(corpus model.Corpus) float64 {
	switch corpus {
	case model.CorpusCompanyDocs:
		return e.cfg.CompanyDocsThreshold
	default:
		return e.cfg.JobPostingsThreshold
	}
}

// Search embeds the query and returns matching chunks ordered by similarity
// descending, most recently updated source first on ties. A threshold or
// maxResults of zero falls back to the configured defaults. An empty result
// is a valid, non-error outcome.
func (e *Engine) Search(ctx context.Context, corpus model.Corpus, queryText string, threshold float64, maxResults int) ([]model.RetrievedChunk, error) {
	if corpus != model.CorpusJobPostings && corpus != model.CorpusCompanyDocs {
		return nil, fmt.Errorf("unknown corpus %q", corpus)
	}
	if threshold <= 0 {
		threshold = e.ThresholdFor(corpus)
	}
	if maxResults <= 0 {
		maxResults = e.cfg.MaxResults
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vector, err := e.embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := e.searcher.Search(ctx, corpus, vector, threshold, maxResults)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", corpus, err)
	}

	// A hit counts only when strictly above the threshold; an exact match
	// is excluded regardless of how the store filtered.
	kept := chunks[:0]
	for _, c := range chunks {
		if c.Similarity > threshold {
			kept = append(kept, c)
		}
	}
	chunks = kept
	if len(chunks) > maxResults {
		chunks = chunks[:maxResults]
	}
	logx.Debug().
		Str("corpus", string(corpus)).
		Float64("threshold", threshold).
		Int("results", len(chunks)).
		Msg("retrieval search completed")
	return chunks, nil
}

// embed calls the embedding collaborator with bounded exponential backoff;
// transient failures are retried locally, exhaustion surfaces as a failure.
func (e *Engine) embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	backoff := retry.WithMaxRetries(uint64(e.cfg.MaxRetries), retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := e.embedder.Embed(ctx, text)
		if err != nil {
			return retry.RetryableError(err)
		}
		vector = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("embedder returned empty vector")
	}
	return vector, nil
}
