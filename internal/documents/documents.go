// Package documents issues presigned S3 upload and download URLs for
// onboarding documents. Callers store only the resulting file URLs.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

var (
	ErrNotConfigured = errors.New("documents: storage is not configured")
	ErrInvalidFile   = errors.New("documents: invalid file")
)

const defaultDownloadTTL = time.Hour

// Folder groups uploads by purpose.
type Folder string

const (
	FolderLicenses        Folder = "licenses"
	FolderCertificates    Folder = "certificates"
	FolderClinicDocuments Folder = "clinic-documents"
	FolderContracts       Folder = "contracts"
	FolderSitePhotos      Folder = "site-photos"
	FolderProfiles        Folder = "profiles"
)

// ParseFolder rejects folders outside the known set.
func ParseFolder(raw string) (Folder, error) {
	switch f := Folder(strings.ToLower(strings.TrimSpace(raw))); f {
	case FolderLicenses, FolderCertificates, FolderClinicDocuments, FolderContracts, FolderSitePhotos, FolderProfiles:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown folder %q", ErrInvalidFile, raw)
}

// contentTypes maps allowed extensions to their MIME type.
var contentTypes = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner is the subset of s3.PresignClient used by Store.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Config holds bucket settings. PublicBaseURL, when set, replaces the
// virtual-hosted S3 URL in returned file URLs (for a CDN in front of the bucket).
type Config struct {
	Bucket        string
	Region        string
	PublicBaseURL string
	UploadTTL     time.Duration
	MaxBytes      int64
}

// Ticket is a presigned upload handed to the browser.
type Ticket struct {
	UploadURL   string `json:"upload_url"`
	FileURL     string `json:"file_url"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Store issues presigned URLs against one bucket. A Store with no bucket
// reports ErrNotConfigured from every operation.
type Store struct {
	client    S3API
	presigner Presigner
	cfg       Config
	logger    *logging.Logger
	newID     func() string
}

// NewStore builds a Store from an S3 client. The presigner is derived from it.
func NewStore(client *s3.Client, cfg Config, logger *logging.Logger) *Store {
	if client == nil {
		return newStore(nil, nil, cfg, logger)
	}
	return newStore(client, s3.NewPresignClient(client), cfg, logger)
}

func newStore(client S3API, presigner Presigner, cfg Config, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.UploadTTL <= 0 {
		cfg.UploadTTL = 15 * time.Minute
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 << 20
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &Store{
		client:    client,
		presigner: presigner,
		cfg:       cfg,
		logger:    logger.Component("documents"),
		newID:     uuid.NewString,
	}
}

// Enabled reports whether a bucket and client are configured.
func (s *Store) Enabled() bool {
	return s != nil && s.cfg.Bucket != "" && s.client != nil && s.presigner != nil
}

// MaxBytes is the accepted upload size.
func (s *Store) MaxBytes() int64 {
	return s.cfg.MaxBytes
}

// resolve validates the upload and returns its object key and content type.
func (s *Store) resolve(folder Folder, filename, contentType string, size int64) (string, string, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(strings.TrimSpace(filename)), "."))
	want, ok := contentTypes[ext]
	if !ok {
		return "", "", fmt.Errorf("%w: only pdf, jpg, jpeg, png and webp files are accepted", ErrInvalidFile)
	}
	if contentType = strings.ToLower(strings.TrimSpace(contentType)); contentType != "" && contentType != want {
		return "", "", fmt.Errorf("%w: content type %q does not match .%s", ErrInvalidFile, contentType, ext)
	}
	if size < 0 || size > s.cfg.MaxBytes {
		return "", "", fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidFile, s.cfg.MaxBytes)
	}
	return fmt.Sprintf("%s/%s.%s", folder, s.newID(), ext), want, nil
}

// FileURL is the stable URL stored on records for key.
func (s *Store) FileURL(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return s.cfg.PublicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}

// PresignUpload returns a short-lived PUT URL for a new object in folder.
// A size of zero means the client did not declare one.
func (s *Store) PresignUpload(ctx context.Context, folder Folder, filename, contentType string, size int64) (*Ticket, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	key, ct, err := s.resolve(folder, filename, contentType, size)
	if err != nil {
		return nil, err
	}
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(ct),
	}, s3.WithPresignExpires(s.cfg.UploadTTL))
	if err != nil {
		return nil, fmt.Errorf("documents: presign upload %s: %w", key, err)
	}
	s.logger.Debug("upload presigned", "key", key, "content_type", ct)
	return &Ticket{
		UploadURL:   req.URL,
		FileURL:     s.FileURL(key),
		Key:         key,
		ContentType: ct,
		ExpiresIn:   int(s.cfg.UploadTTL / time.Second),
	}, nil
}

// PresignDownload returns a GET URL for a private object.
func (s *Store) PresignDownload(ctx context.Context, key string) (string, error) {
	if !s.Enabled() {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: key is required", ErrInvalidFile)
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(defaultDownloadTTL))
	if err != nil {
		return "", fmt.Errorf("documents: presign download %s: %w", key, err)
	}
	return req.URL, nil
}

// Upload writes body server-side, for files generated by the platform itself.
func (s *Store) Upload(ctx context.Context, folder Folder, filename, contentType string, body io.Reader) (string, error) {
	if !s.Enabled() {
		return "", ErrNotConfigured
	}
	key, ct, err := s.resolve(folder, filename, contentType, 0)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(ct),
	})
	if err != nil {
		return "", fmt.Errorf("documents: s3 put %s: %w", key, err)
	}
	s.logger.Info("document uploaded", "key", key)
	return s.FileURL(key), nil
}

// Delete removes an object. Deleting a missing key succeeds.
func (s *Store) Delete(ctx context.Context, key string) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("documents: s3 delete %s: %w", key, err)
	}
	return nil
}
