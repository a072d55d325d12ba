package gorm

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate. The documents
// table is created with raw SQL so the embedding column dimension can follow
// the configured embedding model; everything else uses AutoMigrate.
func runMigrations(db *gorm.DB, embeddingDims int) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: pgvector extension + documents table
		{
			ID: "001_documents",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
					return err
				}

				sqls := []string{
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
						id uuid PRIMARY KEY,
						user_id uuid NOT NULL,
						title text NOT NULL,
						word_count integer NOT NULL DEFAULT 0,
						concepts jsonb,
						claim_count integer NOT NULL DEFAULT 0,
						emotional_pattern_count integer NOT NULL DEFAULT 0,
						embedding vector(%d),
						created_at timestamptz NOT NULL
					)`, embeddingDims),
					`CREATE INDEX IF NOT EXISTS idx_documents_user_created
						ON documents (user_id, created_at DESC)`,
				}
				for _, s := range sqls {
					if err := tx.Exec(s).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("documents")
			},
		},

		// Migration 002: per-document scores
		{
			ID: "002_document_scores",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&DocumentScore{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("document_scores")
			},
		},

		// Migration 003: redundancy detections
		{
			ID: "003_redundancy_detections",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&RedundancyDetection{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("redundancy_detections")
			},
		},

		// Migration 004: weekly user insights
		{
			ID: "004_user_insights",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&UserInsight{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("user_insights")
			},
		},

		// Migration 005: ANN index for embedding similarity lookups.
		// ivfflat needs rows to build useful lists; lists=100 is the pgvector
		// default recommendation for small-to-medium tables.
		{
			ID: "005_embedding_index",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_documents_embedding
					ON documents USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("DROP INDEX IF EXISTS idx_documents_embedding").Error
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
