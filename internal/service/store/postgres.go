package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kapu/palette-index-go/internal/domain"
	"github.com/kapu/palette-index-go/internal/util"
	"github.com/kapu/palette-index-go/pkg/errors"
)

const createEntriesTable = `
CREATE TABLE IF NOT EXISTS palette_index_entries (
	name         TEXT PRIMARY KEY,
	species_id   INTEGER NOT NULL,
	form_order   INTEGER NOT NULL,
	payload      JSONB NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL
)`

const upsertEntry = `
INSERT INTO palette_index_entries (name, species_id, form_order, payload, generated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (name) DO UPDATE SET
	species_id = EXCLUDED.species_id,
	form_order = EXCLUDED.form_order,
	payload = EXCLUDED.payload,
	generated_at = EXCLUDED.generated_at`

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// DSN renders the lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

// PostgresMirror copies saved snapshots into a table for SQL consumers.
// Rows are upserted by name and never deleted.
type PostgresMirror struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresMirror(cfg PostgresConfig, logger *zap.Logger) (*PostgresMirror, error) {
	logger = util.OrNop(logger)

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info("PostgreSQL connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
	)

	mirror := NewPostgresMirrorFromDB(db, logger)
	if err := mirror.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return mirror, nil
}

// NewPostgresMirrorFromDB wraps an already opened database.
func NewPostgresMirrorFromDB(db *sql.DB, logger *zap.Logger) *PostgresMirror {
	return &PostgresMirror{db: db, logger: util.OrNop(logger)}
}

func (m *PostgresMirror) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createEntriesTable); err != nil {
		return errors.NewStoreError("failed to create mirror table", "migrate", "palette_index_entries", err)
	}
	return nil
}

// Sync upserts every snapshot entry in a single transaction.
func (m *PostgresMirror) Sync(ctx context.Context, snapshot domain.IndexSnapshot) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreError("begin tx", "sync", "palette_index_entries", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertEntry)
	if err != nil {
		return errors.NewStoreError("prepare upsert", "sync", "palette_index_entries", err)
	}
	defer stmt.Close()

	for _, entry := range snapshot.Entries {
		payload, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal entry %s: %w", entry.Name, err)
		}
		if _, err := stmt.ExecContext(ctx, entry.Name, entry.SpeciesID, entry.FormOrder, string(payload), snapshot.GeneratedAt); err != nil {
			return errors.NewStoreError(fmt.Sprintf("upsert %s", entry.Name), "sync", "palette_index_entries", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreError("commit", "sync", "palette_index_entries", err)
	}

	m.logger.Info("Snapshot mirrored to PostgreSQL", zap.Int("entries", len(snapshot.Entries)))
	return nil
}

func (m *PostgresMirror) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
