package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/filebroker/internal/common"
	"github.com/dmitrijs2005/filebroker/internal/dbx"
	"github.com/dmitrijs2005/filebroker/internal/server/metadata/migrations"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or
// *sql.Tx). It is the development stand-in for the managed key-value table;
// row expiry is left to an external sweep, the ttl column is only stored.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

// OpenPostgres opens a pgx-backed connection for dsn, runs migrations and
// returns the handle.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

// Put upserts the record by file_id.
func (r *PostgresRepository) Put(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO file_records (file_id, original_filename, content_type, object_key, status, upload_url_generated_at, ttl)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (file_id)
		DO UPDATE SET
			original_filename = EXCLUDED.original_filename,
			content_type = EXCLUDED.content_type,
			object_key = EXCLUDED.object_key,
			status = EXCLUDED.status,
			upload_url_generated_at = EXCLUDED.upload_url_generated_at,
			ttl = EXCLUDED.ttl;
	`
	_, err := r.db.ExecContext(ctx, query,
		record.FileID, record.OriginalFilename, record.ContentType, record.ObjectKey,
		record.Status, record.UploadURLGeneratedAt, record.TTL)
	if err != nil {
		return fmt.Errorf("%w: db error: %v", common.ErrDependency, err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, fileID string) (*Record, error) {
	query := `SELECT file_id, original_filename, content_type, object_key, status, upload_url_generated_at, ttl
		FROM file_records WHERE file_id=$1`

	record := &Record{}
	err := r.db.QueryRowContext(ctx, query, fileID).Scan(
		&record.FileID, &record.OriginalFilename, &record.ContentType, &record.ObjectKey,
		&record.Status, &record.UploadURLGeneratedAt, &record.TTL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: db error: %v", common.ErrDependency, err)
	}
	return record, nil
}

func (r *PostgresRepository) ScanAll(ctx context.Context) ([]*Record, error) {
	query := `SELECT file_id, original_filename, content_type, object_key, status, upload_url_generated_at, ttl
		FROM file_records`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: db error: %v", common.ErrDependency, err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		record := &Record{}
		if err := rows.Scan(&record.FileID, &record.OriginalFilename, &record.ContentType,
			&record.ObjectKey, &record.Status, &record.UploadURLGeneratedAt, &record.TTL); err != nil {
			return nil, fmt.Errorf("%w: db error: %v", common.ErrDependency, err)
		}
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: db error: %v", common.ErrDependency, err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, fileID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM file_records WHERE file_id=$1`, fileID)
	if err != nil {
		return fmt.Errorf("%w: db error: %v", common.ErrDependency, err)
	}
	return nil
}
