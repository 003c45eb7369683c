package port

import (
	"context"
	"time"

	"resumeanalyzer/internal/domain"
)

// ResumeObject is one uploaded résumé as written to the archive bucket.
type ResumeObject struct {
	Key         string
	Filename    string
	RequestID   string
	ContentType string
	Data        []byte
}

// ObjectStorage is a bucket-bound blob store.
type ObjectStorage interface {
	Put(ctx context.Context, obj ResumeObject) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// DocumentArchive stores a copy of an uploaded résumé and returns its key.
type DocumentArchive interface {
	Archive(ctx context.Context, requestID string, index int, doc domain.RawDocument) (string, error)
	URL(ctx context.Context, key string) (string, error)
}
