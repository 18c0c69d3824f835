package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertConversion = `
INSERT INTO conversions (
    id, file_name, download_name, status, error_code, error_message,
    records, input_bytes, output_bytes, null_policy, duration_ms,
    ip_address, user_agent, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

const selectRecent = `
SELECT id, file_name, download_name, status, error_code, error_message,
       records, input_bytes, output_bytes, null_policy, duration_ms,
       ip_address, user_agent, created_at
FROM conversions
ORDER BY created_at DESC
LIMIT $1`

const deleteBefore = `DELETE FROM conversions WHERE created_at < $1`

// PostgresStore keeps history in the conversions table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool. The caller owns migrations; see Migrate.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Record(ctx context.Context, e Entry) error {
	id, err := parseID(e.ID)
	if err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx, insertConversion,
		id, e.FileName, e.DownloadName, string(e.Status), e.ErrorCode, e.ErrorMessage,
		e.Records, e.InputBytes, e.OutputBytes, e.NullPolicy, e.DurationMS,
		e.IPAddress, e.UserAgent,
		pgtype.Timestamptz{Time: e.CreatedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("record conversion: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultCapacity
	}

	rows, err := s.pool.Query(ctx, selectRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("query conversions: %w", err)
	}

	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("scan conversions: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, deleteBefore, pgtype.Timestamptz{Time: cutoff, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("prune conversions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Backend() string { return "postgres" }

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func scanEntry(row pgx.CollectableRow) (Entry, error) {
	var (
		e       Entry
		id      pgtype.UUID
		status  string
		created pgtype.Timestamptz
	)
	err := row.Scan(
		&id, &e.FileName, &e.DownloadName, &status, &e.ErrorCode, &e.ErrorMessage,
		&e.Records, &e.InputBytes, &e.OutputBytes, &e.NullPolicy, &e.DurationMS,
		&e.IPAddress, &e.UserAgent, &created,
	)
	if err != nil {
		return Entry{}, err
	}

	e.ID = uuid.UUID(id.Bytes).String()
	e.Status = Status(status)
	e.CreatedAt = created.Time
	return e, nil
}

// parseID converts an entry ID to a pgtype.UUID, generating one when empty.
func parseID(s string) (pgtype.UUID, error) {
	if s == "" {
		return pgtype.UUID{Bytes: uuid.New(), Valid: true}, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid conversion id %q: %w", s, err)
	}
	return pgtype.UUID{Bytes: id, Valid: true}, nil
}
