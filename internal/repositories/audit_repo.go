package repositories

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/modrelay/backend/internal/models"
	"github.com/modrelay/backend/migrations"
)

const (
	DefaultRecentLimit = 50
	modLogsSchemaFile  = "0001_mod_logs.up.sql"
)

// DBTX is the subset of *pgxpool.Pool the repositories use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AuditRepo is the append-only moderation log. Writes are serialized so that
// id assignment order matches commit order; reads are not blocked.
type AuditRepo struct {
	db      DBTX
	writeMu sync.Mutex
}

func NewAuditRepo(db DBTX) *AuditRepo {
	return &AuditRepo{db: db}
}

// EnsureSchema creates mod_logs if it does not exist. Safe to call on every start.
func (r *AuditRepo) EnsureSchema(ctx context.Context) error {
	ddl, err := migrations.FS.ReadFile(modLogsSchemaFile)
	if err != nil {
		return fmt.Errorf("read mod_logs schema: %w", err)
	}
	if _, err := r.db.Exec(ctx, string(ddl)); err != nil {
		return fmt.Errorf("ensure mod_logs schema: %w", err)
	}
	return nil
}

// Append persists rec (its ID is ignored) and returns the assigned id.
func (r *AuditRepo) Append(ctx context.Context, rec models.AuditRecord) (int64, error) {
	if !rec.Action.Valid() {
		return 0, fmt.Errorf("append audit record: unknown action %q", rec.Action)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO mod_logs (action, subject, reason, timestamp)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, string(rec.Action), rec.Subject, rec.Reason, rec.Timestamp).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append audit record: %w", err)
	}
	return id, nil
}

// QueryRecent returns up to limit records, newest first. An empty table yields an empty slice.
func (r *AuditRepo) QueryRecent(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, action, subject, reason, timestamp
		FROM mod_logs
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent audit records: %w", err)
	}
	defer rows.Close()

	records := make([]models.AuditRecord, 0, limit)
	for rows.Next() {
		var (
			rec    models.AuditRecord
			action string
		)
		if err := rows.Scan(&rec.ID, &action, &rec.Subject, &rec.Reason, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Action = models.Action(action)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}

// Count returns the total number of records ever appended.
func (r *AuditRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM mod_logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit records: %w", err)
	}
	return n, nil
}
