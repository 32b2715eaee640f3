// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/projectstore/internal/config"
	"github.com/javajoker/projectstore/internal/imaging"
	"github.com/javajoker/projectstore/internal/utils"
)

// StorageService stores media under slash-separated keys such as
// "payment_slips/slip.png" or "products/main/x_wm.jpg". It writes to S3 when
// AWS credentials are configured and to the local media root otherwise.
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

func NewStorageService(config *config.Config) (*StorageService, error) {
	if config.AWS.AccessKeyID == "" {
		// Local disk under MEDIA_ROOT
		return &StorageService{config: config}, nil
	}

	// Create AWS session
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

// UploadFile validates an uploaded file and stores it in options.Folder under
// its own (sanitized) file name.
func (s *StorageService) UploadFile(ctx context.Context, header *multipart.FileHeader, options UploadOptions) (*UploadResult, error) {
	// Validate file size
	if options.MaxSize > 0 && header.Size > options.MaxSize {
		return nil, NewFieldError("file", fmt.Sprintf("file size %d bytes exceeds maximum allowed size %d bytes", header.Size, options.MaxSize))
	}

	// Validate file type
	fileExt := strings.ToLower(filepath.Ext(header.Filename))
	if len(options.AllowedTypes) > 0 && !contains(options.AllowedTypes, fileExt) {
		return nil, NewFieldError("file", fmt.Sprintf("file type %s is not allowed", fileExt))
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	// Read file content
	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if options.ImagesOnly && !IsValidImageType(fileBytes) {
		return nil, NewFieldError("file", "invalid image file")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(fileBytes)
	}

	key, err := s.AvailableKey(ctx, path.Join(options.Folder, SanitizeFileName(header.Filename)))
	if err != nil {
		return nil, err
	}

	if err := s.Save(ctx, key, fileBytes, contentType); err != nil {
		return nil, err
	}

	return &UploadResult{
		URL:      s.URL(key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) Save(ctx context.Context, key string, data []byte, contentType string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	if s.s3Client != nil {
		// Prepare S3 upload parameters
		params := &s3.PutObjectInput{
			Bucket:        aws.String(s.config.AWS.S3Bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(data),
			ContentType:   aws.String(contentType),
			ContentLength: aws.Int64(int64(len(data))),
		}
		if _, err := s.s3Client.PutObjectWithContext(ctx, params); err != nil {
			return fmt.Errorf("failed to upload to S3: %w", err)
		}
		return nil
	}

	full := s.localPath(key)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create media folder: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (s *StorageService) Read(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	if s.s3Client != nil {
		out, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.config.AWS.S3Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			if isS3NotFound(err) {
				return nil, notFound("file")
			}
			return nil, fmt.Errorf("failed to read from S3: %w", err)
		}
		defer out.Body.Close()
		return io.ReadAll(out.Body)
	}

	data, err := os.ReadFile(s.localPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound("file")
	}
	return data, err
}

// Delete removes key. Deleting a missing file is not an error.
func (s *StorageService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := checkKey(key); err != nil {
		return err
	}

	if s.s3Client != nil {
		_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.config.AWS.S3Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("failed to delete file from S3: %w", err)
		}
		return nil
	}

	if err := os.Remove(s.localPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *StorageService) Exists(ctx context.Context, key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}

	if s.s3Client != nil {
		_, err := s.s3Client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.config.AWS.S3Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			if isS3NotFound(err) {
				return false, nil
			}
			return false, fmt.Errorf("failed to stat S3 object: %w", err)
		}
		return true, nil
	}

	_, err := os.Stat(s.localPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// List returns the files directly inside folder, sorted by key.
func (s *StorageService) List(ctx context.Context, folder string) ([]imaging.File, error) {
	folder = strings.Trim(folder, "/")
	var files []imaging.File

	if s.s3Client != nil {
		input := &s3.ListObjectsV2Input{
			Bucket:    aws.String(s.config.AWS.S3Bucket),
			Prefix:    aws.String(folder + "/"),
			Delimiter: aws.String("/"),
		}
		err := s.s3Client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, last bool) bool {
			for _, obj := range page.Contents {
				files = append(files, imaging.File{Key: aws.StringValue(obj.Key), Size: aws.Int64Value(obj.Size)})
			}
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 objects: %w", err)
		}
		return files, nil
	}

	entries, err := os.ReadDir(s.localPath(folder))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", folder, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, imaging.File{Key: path.Join(folder, entry.Name()), Size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files, nil
}

// AvailableKey returns key, or key with a random suffix when it is taken.
func (s *StorageService) AvailableKey(ctx context.Context, key string) (string, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil || !exists {
		return key, err
	}

	ext := path.Ext(key)
	suffix, err := utils.GenerateRandomString(7)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%s%s", strings.TrimSuffix(key, ext), suffix, ext), nil
}

func (s *StorageService) URL(key string) string {
	if key == "" {
		return ""
	}
	if s.s3Client != nil {
		if s.config.AWS.CloudFrontURL != "" {
			return fmt.Sprintf("%s/%s", s.config.AWS.CloudFrontURL, key)
		}
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
			s.config.AWS.S3Bucket, s.config.AWS.Region, key)
	}
	return strings.TrimRight(s.config.Media.BaseURL, "/") + "/" + key
}

func (s *StorageService) GetDefaultUploadOptions(category string) UploadOptions {
	switch category {
	case "payment_slips":
		return UploadOptions{
			Folder:       "payment_slips",
			MaxSize:      10 * 1024 * 1024, // 10MB
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".webp", ".pdf"},
		}
	case "products/main", "products/variants", "products/gallery":
		return UploadOptions{
			Folder:       category,
			MaxSize:      15 * 1024 * 1024, // 15MB
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
			ImagesOnly:   true,
			IsPublic:     true,
		}
	default:
		return UploadOptions{
			Folder:       "general",
			MaxSize:      5 * 1024 * 1024, // 5MB
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".pdf"},
		}
	}
}

func (s *StorageService) localPath(key string) string {
	return filepath.Join(s.config.Media.Root, filepath.FromSlash(key))
}

// SanitizeFileName keeps the extension and slugifies the stem.
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(name))
	stem := slug.Make(strings.TrimSuffix(name, filepath.Ext(name)))
	if stem == "" {
		stem = "file"
	}
	return stem + ext
}

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.Contains(key, "..") {
		return fmt.Errorf("%w: invalid storage key %q", ErrValidation, key)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}

// IsValidImageType checks the file signature of common image formats.
func IsValidImageType(buffer []byte) bool {
	// Check for JPEG
	if len(buffer) >= 3 && buffer[0] == 0xFF && buffer[1] == 0xD8 && buffer[2] == 0xFF {
		return true
	}

	// Check for PNG
	if len(buffer) >= 8 && buffer[0] == 0x89 && buffer[1] == 0x50 && buffer[2] == 0x4E && buffer[3] == 0x47 {
		return true
	}

	// Check for GIF
	if len(buffer) >= 6 && (string(buffer[0:6]) == "GIF87a" || string(buffer[0:6]) == "GIF89a") {
		return true
	}

	// Check for WEBP
	if len(buffer) >= 12 && string(buffer[0:4]) == "RIFF" && string(buffer[8:12]) == "WEBP" {
		return true
	}

	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func logStorageError(err error, key string) {
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Storage cleanup failed")
	}
}
