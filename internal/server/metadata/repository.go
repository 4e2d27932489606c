package metadata

import "context"

// Repository is the single-row access contract for the metadata table.
// There are no transactions: Put is an unconditional upsert and ScanAll is
// an unbounded full-table read.
type Repository interface {
	Put(ctx context.Context, record *Record) error
	// Get returns common.ErrNotFound when no row exists for fileID.
	Get(ctx context.Context, fileID string) (*Record, error)
	ScanAll(ctx context.Context) ([]*Record, error)
	// Delete is idempotent: removing an absent row is not an error.
	Delete(ctx context.Context, fileID string) error
}
