package s3

import (
	"context"
	"fmt"
	"time"

	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/port"
)

const defaultPresignExpiry = time.Hour

// Archive stores uploaded résumés under resumes/{request_id}/{index}-{filename}.
type Archive struct {
	storage       port.ObjectStorage
	presignExpiry time.Duration
}

// NewArchive returns a DocumentArchive writing through storage. Presigned
// links live presignExpirySeconds, one hour when not positive.
func NewArchive(storage port.ObjectStorage, presignExpirySeconds int64) *Archive {
	expiry := time.Duration(presignExpirySeconds) * time.Second
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	return &Archive{storage: storage, presignExpiry: expiry}
}

// Archive uploads doc and returns its object key.
func (a *Archive) Archive(ctx context.Context, requestID string, index int, doc domain.RawDocument) (string, error) {
	obj := newResumeObject(requestID, index, doc)
	if err := a.storage.Put(ctx, obj); err != nil {
		return "", fmt.Errorf("archive.Archive: %w", err)
	}
	return obj.Key, nil
}

// URL returns a time-limited download link for key.
func (a *Archive) URL(ctx context.Context, key string) (string, error) {
	url, err := a.storage.PresignGet(ctx, key, a.presignExpiry)
	if err != nil {
		return "", fmt.Errorf("archive.URL: %w", err)
	}
	return url, nil
}
