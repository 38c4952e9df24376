package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory keeps encrypted documents in process memory. It backs the memory
// store driver and tests.
type Memory struct {
	cipher *Cipher

	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemory(c *Cipher) *Memory {
	return &Memory{cipher: c, objects: make(map[string][]byte)}
}

func (m *Memory) UploadDocument(_ context.Context, doc Document) (*UploadResult, error) {
	data, err := doc.read()
	if err != nil {
		return nil, err
	}
	encrypted, err := m.cipher.Encrypt(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt file: %w", err)
	}

	key := documentKey(doc.ApplicationID, uuid.New(), doc.Filename)
	m.mu.Lock()
	m.objects[key] = encrypted
	m.mu.Unlock()

	return &UploadResult{
		S3Key:      key,
		S3Bucket:   "memory",
		FileHash:   hashOf(data),
		FileSize:   int64(len(data)),
		MimeType:   doc.ContentType,
		UploadedAt: time.Now().UTC(),
	}, nil
}

func (m *Memory) DownloadFile(_ context.Context, s3Key string) (*DownloadResult, error) {
	m.mu.RLock()
	encrypted, ok := m.objects[s3Key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("object %s not found", s3Key)
	}
	data, err := m.cipher.Decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt file: %w", err)
	}
	return &DownloadResult{Data: data, FileHash: hashOf(data), FileSize: int64(len(data))}, nil
}

func (m *Memory) GeneratePresignedURL(_ context.Context, s3Key string, _ time.Duration) (string, error) {
	return "memory://" + s3Key, nil
}

func (m *Memory) DeleteFile(_ context.Context, s3Key string) error {
	m.mu.Lock()
	delete(m.objects, s3Key)
	m.mu.Unlock()
	return nil
}
