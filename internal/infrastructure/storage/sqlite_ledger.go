package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"NewsForge/internal/domain"
	"NewsForge/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS generated_articles (
    cluster_id TEXT PRIMARY KEY,
    titulo     TEXT NOT NULL DEFAULT '',
    status     TEXT NOT NULL,
    word_count INTEGER NOT NULL DEFAULT 0,
    reason     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteLedger persists per-cluster generation outcomes for idempotent
// reruns and audit.
type SQLiteLedger struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.GenerationLedger = (*SQLiteLedger)(nil)

// Open creates (if needed) and opens the ledger database at path.
func Open(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &SQLiteLedger{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Question)}, nil
}

// AlreadyGenerated returns the subset of cluster ids with an accepted article.
func (l *SQLiteLedger) AlreadyGenerated(ctx context.Context, clusterIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(clusterIDs))
	if len(clusterIDs) == 0 {
		return result, nil
	}

	query, args, err := l.sb.
		Select("cluster_id").
		From("generated_articles").
		Where(sq.Eq{"cluster_id": clusterIDs, "status": string(domain.LedgerAccepted)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query generated: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan cluster id: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// RecordResult upserts the outcome of one cluster generation.
func (l *SQLiteLedger) RecordResult(ctx context.Context, entry domain.LedgerEntry) error {
	query, args, err := l.sb.
		Insert("generated_articles").
		Columns("cluster_id", "titulo", "status", "word_count", "reason").
		Values(entry.ClusterID, entry.Titulo, string(entry.Status), entry.WordCount, entry.Reason).
		Suffix(`ON CONFLICT(cluster_id) DO UPDATE SET
            titulo = excluded.titulo,
            status = excluded.status,
            word_count = excluded.word_count,
            reason = excluded.reason,
            updated_at = CURRENT_TIMESTAMP`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
