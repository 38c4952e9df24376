package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Lazy defers building the underlying Store until the first call and
// builds it exactly once. A failed build is remembered and returned to
// every later caller.
type Lazy struct {
	build func(ctx context.Context) (Store, error)

	once  sync.Once
	store Store
	err   error
}

func NewLazy(build func(ctx context.Context) (Store, error)) *Lazy {
	return &Lazy{build: build}
}

// NewLazyS3 returns a handle that connects to S3 on first use
func NewLazyS3(cfg S3Config) *Lazy {
	return NewLazy(func(ctx context.Context) (Store, error) {
		return NewS3Service(ctx, cfg)
	})
}

func (l *Lazy) get(ctx context.Context) (Store, error) {
	l.once.Do(func() {
		l.store, l.err = l.build(context.WithoutCancel(ctx))
		if l.err != nil {
			l.err = fmt.Errorf("document storage unavailable: %w", l.err)
		}
	})
	return l.store, l.err
}

func (l *Lazy) UploadDocument(ctx context.Context, doc Document) (*UploadResult, error) {
	s, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return s.UploadDocument(ctx, doc)
}

func (l *Lazy) DownloadFile(ctx context.Context, s3Key string) (*DownloadResult, error) {
	s, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return s.DownloadFile(ctx, s3Key)
}

func (l *Lazy) GeneratePresignedURL(ctx context.Context, s3Key string, expiration time.Duration) (string, error) {
	s, err := l.get(ctx)
	if err != nil {
		return "", err
	}
	return s.GeneratePresignedURL(ctx, s3Key, expiration)
}

func (l *Lazy) DeleteFile(ctx context.Context, s3Key string) error {
	s, err := l.get(ctx)
	if err != nil {
		return err
	}
	return s.DeleteFile(ctx, s3Key)
}
