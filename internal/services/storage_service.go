// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/servicemart-backend/internal/config"
)

// Upload categories.
const (
	UploadCategoryServiceImages        = "service_images"
	UploadCategoryApplicationDocuments = "application_documents"
)

type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

type UploadOptions struct {
	Folder       string
	MaxSize      int64 // in bytes
	AllowedTypes []string
	ImagesOnly   bool
	IsPublic     bool
}

// UploadInput is one file received from a client.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func NewStorageService(config *config.Config) (*StorageService, error) {
	if config.AWS.AccessKeyID == "" {
		// Local disk storage for development
		return &StorageService{config: config}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   config,
	}, nil
}

func (s *StorageService) UploadFile(ctx context.Context, in UploadInput, options UploadOptions) (*UploadResult, error) {
	if options.MaxSize > 0 && in.Size > options.MaxSize {
		return nil, validationError("file size %d bytes exceeds maximum allowed size %d bytes", in.Size, options.MaxSize)
	}

	if len(options.AllowedTypes) > 0 {
		fileExt := strings.ToLower(filepath.Ext(in.Filename))
		allowed := false
		for _, allowedType := range options.AllowedTypes {
			if fileExt == allowedType {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, validationError("file type %s is not allowed", fileExt)
		}
	}

	reader := in.Body
	if options.MaxSize > 0 {
		reader = io.LimitReader(in.Body, options.MaxSize+1)
	}
	fileBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if options.MaxSize > 0 && int64(len(fileBytes)) > options.MaxSize {
		return nil, validationError("file exceeds maximum allowed size %d bytes", options.MaxSize)
	}
	if options.ImagesOnly && !isValidImageType(fileBytes) {
		return nil, validationError("invalid image file")
	}

	key := s.generateFileName(in.Filename, options.Folder)

	if s.s3Client != nil {
		return s.uploadToS3(ctx, fileBytes, key, in.ContentType, options.IsPublic)
	}
	return s.uploadToLocal(fileBytes, key, in.ContentType)
}

func (s *StorageService) uploadToS3(ctx context.Context, fileBytes []byte, key, contentType string, isPublic bool) (*UploadResult, error) {
	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.config.AWS.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(fileBytes),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(fileBytes))),
	}
	if isPublic {
		params.ACL = aws.String("public-read")
	}

	if _, err := s.s3Client.PutObjectWithContext(ctx, params); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		URL:      s.getS3URL(key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) uploadToLocal(fileBytes []byte, key, contentType string) (*UploadResult, error) {
	dest := filepath.Join(s.config.Server.UploadDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(dest, fileBytes, 0o644); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	return &UploadResult{
		URL:      fmt.Sprintf("%s/uploads/%s", strings.TrimRight(s.config.Server.PublicURL, "/"), key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) DeleteFile(ctx context.Context, key string) error {
	if strings.Contains(key, "..") {
		return validationError("invalid file key")
	}

	if s.s3Client == nil {
		err := os.Remove(filepath.Join(s.config.Server.UploadDir, filepath.FromSlash(key)))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		return nil
	}

	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

// GeneratePresignedURL gives temporary read access to a private object.
// Local storage serves files directly.
func (s *StorageService) GeneratePresignedURL(key string, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		return fmt.Sprintf("%s/uploads/%s", strings.TrimRight(s.config.Server.PublicURL, "/"), key), nil
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url, nil
}

func (s *StorageService) GetDefaultUploadOptions(category string) (UploadOptions, bool) {
	switch category {
	case UploadCategoryServiceImages:
		return UploadOptions{
			Folder:       "services",
			MaxSize:      10 * 1024 * 1024, // 10MB
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".gif"},
			ImagesOnly:   true,
			IsPublic:     true,
		}, true
	case UploadCategoryApplicationDocuments:
		return UploadOptions{
			Folder:       "applications",
			MaxSize:      20 * 1024 * 1024, // 20MB
			AllowedTypes: []string{".pdf", ".doc", ".docx", ".jpg", ".jpeg", ".png"},
			IsPublic:     false,
		}, true
	default:
		logrus.WithField("category", category).Debug("unknown upload category")
		return UploadOptions{}, false
	}
}

func (s *StorageService) generateFileName(originalName, folder string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	timestamp := time.Now().UTC().Format("20060102")
	filename := fmt.Sprintf("%s_%s%s", timestamp, uuid.New().String()[:8], ext)

	if folder != "" {
		return path.Join(folder, filename)
	}
	return filename
}

func (s *StorageService) getS3URL(key string) string {
	if s.config.AWS.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", s.config.AWS.CloudFrontURL, key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.AWS.S3Bucket, s.config.AWS.Region, key)
}

func isValidImageType(buffer []byte) bool {
	// JPEG
	if len(buffer) >= 3 && buffer[0] == 0xFF && buffer[1] == 0xD8 && buffer[2] == 0xFF {
		return true
	}

	// PNG
	if len(buffer) >= 8 && buffer[0] == 0x89 && buffer[1] == 0x50 && buffer[2] == 0x4E && buffer[3] == 0x47 {
		return true
	}

	// GIF
	if len(buffer) >= 6 && (string(buffer[0:6]) == "GIF87a" || string(buffer[0:6]) == "GIF89a") {
		return true
	}

	return false
}
