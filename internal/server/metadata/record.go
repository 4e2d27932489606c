// Package metadata tracks one row per uploaded object in a key-value table.
// Rows are written when an upload URL is issued and removed either
// explicitly or by the store's own TTL sweep.
package metadata

import "time"

// Upload states. Status is set to pending when the upload URL is issued and
// is never advanced: nothing in the system observes the object actually
// landing in storage.
const (
	StatusPending  = "pending"
	StatusComplete = "complete"
)

// RecordTTL is how long a row may live before the store is allowed to
// garbage-collect it.
const RecordTTL = 24 * time.Hour

// Record is the metadata row for a single uploaded object.
type Record struct {
	// FileID is the primary key, "<random-8-hex>_<original-filename>".
	FileID string `dynamodbav:"file_id"`
	// OriginalFilename and ContentType are caller-supplied at upload time.
	OriginalFilename string `dynamodbav:"original_filename"`
	ContentType      string `dynamodbav:"content_type"`
	// ObjectKey is the storage-layer path, "uploads/<file_id>".
	ObjectKey string `dynamodbav:"object_key"`
	Status    string `dynamodbav:"status"`
	// UploadURLGeneratedAt is when the upload URL was issued.
	UploadURLGeneratedAt time.Time `dynamodbav:"upload_url_generated_at"`
	// TTL is the epoch-seconds deadline after which the store may drop the
	// row.
	TTL int64 `dynamodbav:"ttl"`
}
