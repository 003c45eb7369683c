package s3_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"resumeanalyzer/internal/config"
	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/port"
	"resumeanalyzer/internal/storage/s3"
	"resumeanalyzer/mocks"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		requestID string
		index     int
		filename  string
		want      string
	}{
		{"req-1", 0, "jane.pdf", "resumes/req-1/0-jane.pdf"},
		{"req-1", 2, "Jane Doe CV.pdf", "resumes/req-1/2-Jane_Doe_CV.pdf"},
		{"req-1", 1, "../../etc/passwd", "resumes/req-1/1-passwd"},
		{"req-1", 1, `C:\scans\cv.png`, "resumes/req-1/1-cv.png"},
		{"req/../x", 0, "", "resumes/req_.._x/0-document"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s3.ObjectKey(tt.requestID, tt.index, tt.filename))
	}
}

func TestArchive_Uploads(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	pdf := []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n")

	storage.On("Put", mock.Anything, port.ResumeObject{
		Key:         "resumes/req-7/0-Jane_Doe.pdf",
		Filename:    "Jane Doe.pdf",
		RequestID:   "req-7",
		ContentType: "application/pdf",
		Data:        pdf,
	}).Return(nil)

	a := s3.NewArchive(storage, 0)
	key, err := a.Archive(context.Background(), "req-7", 0, domain.RawDocument{Filename: "Jane Doe.pdf", Data: pdf})

	require.NoError(t, err)
	assert.Equal(t, "resumes/req-7/0-Jane_Doe.pdf", key)
	storage.AssertExpectations(t)
}

func TestArchive_DeclaredContentTypeWins(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	storage.On("Put", mock.Anything, mock.MatchedBy(func(obj port.ResumeObject) bool {
		return obj.ContentType == "image/png" && obj.Filename == "scan.png"
	})).Return(nil)

	a := s3.NewArchive(storage, 0)
	_, err := a.Archive(context.Background(), "r", 3, domain.RawDocument{
		Filename:     `C:\scans\scan.png`,
		Data:         []byte("not really a png"),
		DeclaredMIME: "image/png",
	})
	require.NoError(t, err)
	storage.AssertExpectations(t)
}

func TestArchive_UploadError(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	storage.On("Put", mock.Anything, mock.Anything).Return(errors.New("access denied"))

	a := s3.NewArchive(storage, 60)
	_, err := a.Archive(context.Background(), "r", 0, domain.RawDocument{Filename: "a.png", Data: []byte{0x89, 'P', 'N', 'G'}, DeclaredMIME: "image/png"})
	assert.ErrorContains(t, err, "access denied")
}

func TestArchive_URL(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	storage.On("PresignGet", mock.Anything, "resumes/r/0-a.pdf", time.Hour).Return("https://signed", nil)

	a := s3.NewArchive(storage, 0)
	url, err := a.URL(context.Background(), "resumes/r/0-a.pdf")

	require.NoError(t, err)
	assert.Equal(t, "https://signed", url)
}

func TestArchive_URLUsesConfiguredExpiry(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	storage.On("PresignGet", mock.Anything, "k", 90*time.Second).Return("https://signed", nil)

	_, err := s3.NewArchive(storage, 90).URL(context.Background(), "k")
	require.NoError(t, err)
	storage.AssertExpectations(t)
}

func TestNewBucket_RequiresName(t *testing.T) {
	_, err := s3.NewBucket(context.Background(), &config.ArchiveConfig{Enabled: true, Region: "us-east-1"})
	assert.ErrorContains(t, err, "bucket")
}
