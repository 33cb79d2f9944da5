package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/case-rag/internal/core/embedding"
	"github.com/jinford/case-rag/internal/core/legalcase"
	"github.com/jinford/case-rag/internal/core/retrieval"
	"github.com/jinford/case-rag/internal/platform/database"
)

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS case_embeddings (
		id         UUID PRIMARY KEY,
		seq        BIGSERIAL,
		case_id    TEXT NOT NULL,
		chunk      INTEGER NOT NULL DEFAULT 0,
		embedding  VECTOR NOT NULL,
		model      TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS case_embeddings_case_id_idx ON case_embeddings (case_id)`,
}

const insertEmbeddingSQL = `
INSERT INTO case_embeddings (id, case_id, chunk, embedding, model)
VALUES ($1, $2, $3, $4, $5)
`

const selectEmbeddingsSQL = `
SELECT case_id, chunk, embedding
FROM case_embeddings
ORDER BY seq
`

// replaceLockID は Replace を直列化するアドバイザリロックのID
var replaceLockID = database.LockID("case-rag", "case_embeddings")

// VectorRepository は pgvector を使ったベクトルストア
type VectorRepository struct {
	pool  *pgxpool.Pool
	model string
}

// NewVectorRepository は新しい VectorRepository を返す
// model は保存する行に記録するEmbeddingモデル名
func NewVectorRepository(pool *pgxpool.Pool, model string) *VectorRepository {
	return &VectorRepository{pool: pool, model: model}
}

// EnsureSchema は拡張とテーブルを作成する（既存なら何もしない）
func (r *VectorRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Replace は既存の行をすべて削除して entries を挿入する（1トランザクション）
// 途中で失敗した場合はロールバックされ、既存の行が残る
func (r *VectorRepository) Replace(ctx context.Context, entries []legalcase.EmbeddingEntry) error {
	if err := r.EnsureSchema(ctx); err != nil {
		return err
	}

	_, err := database.Transact(ctx, r.pool, func(tx pgx.Tx) (struct{}, error) {
		// 同時に実行された embed が互いの行を消さないようにする
		if err := database.AcquireXactLock(ctx, tx, replaceLockID); err != nil {
			return struct{}{}, err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM case_embeddings`); err != nil {
			return struct{}{}, fmt.Errorf("failed to clear embeddings: %w", err)
		}

		batch := &pgx.Batch{}
		for _, e := range entries {
			batch.Queue(insertEmbeddingSQL,
				UUIDToPgtype(uuid.New()),
				e.CaseID,
				e.Chunk,
				pgvector.NewVector(e.Vector),
				r.model,
			)
		}
		if batch.Len() == 0 {
			return struct{}{}, nil
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return struct{}{}, fmt.Errorf("failed to insert embeddings: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

// Load は挿入順に全Embeddingを返す
func (r *VectorRepository) Load(ctx context.Context) ([]legalcase.EmbeddingEntry, error) {
	if err := r.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, selectEmbeddingsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}
	defer rows.Close()

	var entries []legalcase.EmbeddingEntry
	for rows.Next() {
		var (
			caseID string
			chunk  int32
			vector pgvector.Vector
		)
		if err := rows.Scan(&caseID, &chunk, &vector); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		entries = append(entries, legalcase.EmbeddingEntry{
			CaseID: caseID,
			Chunk:  int(chunk),
			Vector: vector.Slice(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate embeddings: %w", err)
	}
	return entries, nil
}

var (
	_ embedding.VectorStore = (*VectorRepository)(nil)
	_ retrieval.VectorStore = (*VectorRepository)(nil)
)
