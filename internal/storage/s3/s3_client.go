package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"resumeanalyzer/internal/classifier"
	"resumeanalyzer/internal/config"
	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/port"
)

var reUnsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Bucket is the S3 (or S3-compatible) bucket résumés are archived in.
type Bucket struct {
	name      string
	presigner *s3.PresignClient
	uploader  *manager.Uploader
}

// NewBucket connects to the archive bucket named in cfg.
func NewBucket(ctx context.Context, cfg *config.ArchiveConfig) (*Bucket, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			// MinIO and other S3-compatible stores need path-style addressing.
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Bucket{
		name:      cfg.Bucket,
		presigner: s3.NewPresignClient(client),
		uploader:  manager.NewUploader(client),
	}, nil
}

// Put uploads obj. The original filename travels as the download name and
// the request id as object metadata.
func (b *Bucket) Put(ctx context.Context, obj port.ResumeObject) error {
	put := &s3.PutObjectInput{
		Bucket:        aws.String(b.name),
		Key:           aws.String(obj.Key),
		Body:          bytes.NewReader(obj.Data),
		ContentLength: aws.Int64(int64(len(obj.Data))),
		ContentType:   aws.String(obj.ContentType),
		Metadata:      map[string]string{"request-id": obj.RequestID},
	}
	if obj.Filename != "" {
		put.ContentDisposition = aws.String(mime.FormatMediaType("attachment", map[string]string{"filename": obj.Filename}))
	}

	if _, err := b.uploader.Upload(ctx, put); err != nil {
		return fmt.Errorf("s3 put %s: %w", obj.Key, err)
	}
	return nil
}

// PresignGet returns a download link for key valid for expiry.
func (b *Bucket) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	result, err := b.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s: %w", key, err)
	}
	return result.URL, nil
}

// ObjectKey builds the archive key for the index-th document of a request.
func ObjectKey(requestID string, index int, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.Trim(reUnsafeKeyChars.ReplaceAllString(name, "_"), "_")
	if name == "" || name == "." {
		name = "document"
	}
	req := strings.Trim(reUnsafeKeyChars.ReplaceAllString(requestID, "_"), "_")
	return fmt.Sprintf("resumes/%s/%d-%s", req, index, name)
}

// newResumeObject maps an uploaded document onto its archive object. The
// declared MIME type wins unless it is missing or generic.
func newResumeObject(requestID string, index int, doc domain.RawDocument) port.ResumeObject {
	contentType := doc.DeclaredMIME
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = classifier.ContentType(doc.Data)
	}
	return port.ResumeObject{
		Key:         ObjectKey(requestID, index, doc.Filename),
		Filename:    path.Base(strings.ReplaceAll(doc.Filename, "\\", "/")),
		RequestID:   requestID,
		ContentType: contentType,
		Data:        doc.Data,
	}
}
