// Package storage keeps application documents in an S3-compatible bucket,
// encrypted with AES-256-GCM before they leave the process.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxDocumentSize is the largest document accepted for upload
const MaxDocumentSize = 10 << 20

// AllowedContentTypes lists the document formats applicants may upload
var AllowedContentTypes = []string{"application/pdf", "image/jpeg", "image/png"}

// Store is the document storage used by the application service
type Store interface {
	UploadDocument(ctx context.Context, doc Document) (*UploadResult, error)
	DownloadFile(ctx context.Context, s3Key string) (*DownloadResult, error)
	GeneratePresignedURL(ctx context.Context, s3Key string, expiration time.Duration) (string, error)
	DeleteFile(ctx context.Context, s3Key string) error
}

// Document is an upload in flight
type Document struct {
	ApplicationID uuid.UUID
	Filename      string
	ContentType   string
	Body          io.Reader
}

type UploadResult struct {
	S3Key      string
	S3Bucket   string
	FileHash   string // SHA-256 hash of original file
	FileSize   int64
	MimeType   string
	UploadedAt time.Time
}

type DownloadResult struct {
	Data     []byte
	FileHash string
	FileSize int64
}

// Validate checks the declared content type
func (d Document) Validate() error {
	if !slices.Contains(AllowedContentTypes, d.ContentType) {
		return fmt.Errorf("unsupported document type %q", d.ContentType)
	}
	if d.Body == nil {
		return fmt.Errorf("document body is empty")
	}
	return nil
}

func (d Document) read() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(d.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", MaxDocumentSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("document body is empty")
	}
	return data, nil
}

func documentKey(applicationID, documentID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("applications/%s/documents/%s%s", applicationID, documentID, ext)
}

func hashOf(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ValidateFileIntegrity validates a file against its stored hash
func ValidateFileIntegrity(data []byte, expectedHash string) error {
	if actualHash := hashOf(data); actualHash != expectedHash {
		return fmt.Errorf("file integrity check failed: expected %s, got %s", expectedHash, actualHash)
	}
	return nil
}
