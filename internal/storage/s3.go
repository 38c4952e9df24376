package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3Config configures the document bucket
type S3Config struct {
	Bucket        string
	Region        string
	EndpointURL   string // set for MinIO and other S3-compatible stores
	EncryptionKey string // 64 hex characters
}

type S3Service struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	bucket     string
	region     string
	cipher     *Cipher
}

// NewS3Service creates a new S3 service instance with MinIO support
func NewS3Service(ctx context.Context, cfg S3Config) (*S3Service, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	c, err := NewCipher(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true // MinIO requires path-style addressing
		}
	})

	return &S3Service{
		client:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		cipher:     c,
	}, nil
}

// UploadDocument encrypts and stores an application document
func (s *S3Service) UploadDocument(ctx context.Context, doc Document) (*UploadResult, error) {
	data, err := doc.read()
	if err != nil {
		return nil, err
	}
	fileHash := hashOf(data)

	encryptedData, err := s.cipher.Encrypt(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt file: %w", err)
	}

	documentID := uuid.New()
	s3Key := documentKey(doc.ApplicationID, documentID, doc.Filename)

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s3Key),
		Body:        bytes.NewReader(encryptedData),
		ContentType: aws.String(doc.ContentType),
		Metadata: map[string]string{
			"original-filename": doc.Filename,
			"application-id":    doc.ApplicationID.String(),
			"document-id":       documentID.String(),
			"original-hash":     fileHash,
			"encrypted":         "true",
		},
		ServerSideEncryption: types.ServerSideEncryptionAes256, // Additional S3-level encryption
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		S3Key:      s3Key,
		S3Bucket:   s.bucket,
		FileHash:   fileHash,
		FileSize:   int64(len(data)),
		MimeType:   doc.ContentType,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// DownloadFile downloads and decrypts a file from S3
func (s *S3Service) DownloadFile(ctx context.Context, s3Key string) (*DownloadResult, error) {
	buf := manager.NewWriteAtBuffer([]byte{})

	_, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3Key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}

	decryptedData, err := s.cipher.Decrypt(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt file: %w", err)
	}

	return &DownloadResult{
		Data:     decryptedData,
		FileHash: hashOf(decryptedData),
		FileSize: int64(len(decryptedData)),
	}, nil
}

// GeneratePresignedURL generates a presigned URL for temporary access
func (s *S3Service) GeneratePresignedURL(ctx context.Context, s3Key string, expiration time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(s.client)

	request, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3Key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiration
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return request.URL, nil
}

// DeleteFile deletes a file from S3
func (s *S3Service) DeleteFile(ctx context.Context, s3Key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3Key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

// CheckFileExists checks if a file exists in S3
func (s *S3Service) CheckFileExists(ctx context.Context, s3Key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3Key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}
	return true, nil
}
