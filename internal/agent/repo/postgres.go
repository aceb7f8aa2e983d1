package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/leadline-ai/engine/internal/agent/model"
	errx "github.com/leadline-ai/engine/internal/core/error"
	logx "github.com/leadline-ai/engine/pkg/logger"
)

// PostgresStore implements the qualification, audit and vector-search
// contracts on a single pgx pool. Chunk embeddings live in one table per
// corpus with the source activity flag and recency denormalized onto the
// chunk rows.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Upsert(ctx context.Context, leadID string, result model.QualificationResult) error {
	const q = `
		INSERT INTO lead_qualifications (
			lead_id, technical_score, soft_skill_score, experience_score,
			overall_score, status, missing_info, extraction_confidence, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (lead_id) DO UPDATE SET
			technical_score       = EXCLUDED.technical_score,
			soft_skill_score      = EXCLUDED.soft_skill_score,
			experience_score      = EXCLUDED.experience_score,
			overall_score         = EXCLUDED.overall_score,
			status                = EXCLUDED.status,
			missing_info          = EXCLUDED.missing_info,
			extraction_confidence = EXCLUDED.extraction_confidence,
			updated_at            = now()`

	_, err := s.pool.Exec(ctx, q,
		leadID,
		result.TechnicalScore,
		result.SoftSkillScore,
		result.ExperienceScore,
		result.OverallScore,
		string(result.Status),
		result.MissingInfo,
		result.ExtractionConfidence,
	)
	if err != nil {
		logx.Error().Err(err).Str("lead_id", leadID).Msg("failed to upsert qualification")
		return errx.WrapPostgres(err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, rec model.ToolInvocationRecord) error {
	const q = `
		INSERT INTO tool_invocations (
			id, thread_id, tool_name, input, output, error,
			duration_ms, success, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, q,
		rec.ID,
		rec.ThreadID,
		rec.ToolName,
		rec.Input,
		rec.Output,
		rec.Error,
		rec.Duration.Milliseconds(),
		rec.Success,
		rec.Timestamp,
	)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", rec.ThreadID).Str("tool", rec.ToolName).
			Msg("failed to append tool invocation record")
		return errx.WrapPostgres(err)
	}
	return nil
}

// corpusTables maps corpora to their chunk tables. The table name is taken
// from this closed map, never from caller input.
var corpusTables = map[model.Corpus]string{
	model.CorpusJobPostings: "job_posting_chunks",
	model.CorpusCompanyDocs: "company_doc_chunks",
}

func (s *PostgresStore) Search(ctx context.Context, corpus model.Corpus, queryVector []float32, threshold float64, limit int) ([]model.RetrievedChunk, error) {
	table, ok := corpusTables[corpus]
	if !ok {
		return nil, fmt.Errorf("unknown corpus %q", corpus)
	}

	// Similarity is 1 - cosine distance; chunks at exactly the threshold
	// are excluded.
	q := fmt.Sprintf(`
		SELECT source_id, title, chunk_text, chunk_type,
		       1 - (embedding <=> $1) AS similarity
		FROM %s
		WHERE is_active
		  AND 1 - (embedding <=> $1) > $2
		ORDER BY similarity DESC, source_updated_at DESC
		LIMIT $3`, table)

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(queryVector), threshold, limit)
	if err != nil {
		logx.Error().Err(err).Str("corpus", string(corpus)).Msg("vector search failed")
		return nil, errx.WrapPostgres(err)
	}
	defer rows.Close()

	var chunks []model.RetrievedChunk
	for rows.Next() {
		var c model.RetrievedChunk
		if err := rows.Scan(&c.SourceID, &c.Title, &c.ChunkText, &c.ChunkType, &c.Similarity); err != nil {
			return nil, errx.WrapPostgres(err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapPostgres(err)
	}
	return chunks, nil
}

var (
	_ model.QualificationStore = (*PostgresStore)(nil)
	_ model.ToolLog            = (*PostgresStore)(nil)
	_ model.ChunkSearcher      = (*PostgresStore)(nil)
)
