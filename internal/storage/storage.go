// Package storage puts uploaded images into an S3-compatible bucket and maps
// object keys to their public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dukerupert/mise/internal/apperr"
)

// Folders an upload may be filed under. Anything else lands in TempFolder.
var Folders = []string{"recipes", "profiles", "categories"}

const TempFolder = "temp"

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds S3-compatible storage configuration.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string
}

// Bucket stores objects in one bucket served from PublicURL.
type Bucket struct {
	client    s3Client
	bucket    string
	publicURL string
}

func New(cfg Config) *Bucket {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return newBucket(s3.New(opts), cfg.Bucket, cfg.PublicURL)
}

func newBucket(client s3Client, bucket, publicURL string) *Bucket {
	return &Bucket{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Put uploads body under key and returns its public URL.
func (b *Bucket) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %v: %w", key, err, apperr.ErrUpstream)
	}
	return b.URL(key), nil
}

// Delete removes key from the bucket.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %v: %w", key, err, apperr.ErrUpstream)
	}
	return nil
}

// URL is the public address of key.
func (b *Bucket) URL(key string) string {
	return b.publicURL + "/" + key
}

// KeyFromURL recovers the object key from a public URL. URLs outside the
// public base report false.
func (b *Bucket) KeyFromURL(u string) (string, bool) {
	key, ok := strings.CutPrefix(u, b.publicURL+"/")
	if !ok || key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Folder returns kind when it names a known folder, else TempFolder.
func Folder(kind string) string {
	if slices.Contains(Folders, kind) {
		return kind
	}
	return TempFolder
}

// Key builds a unique object key: folder/<name>_<unix>_<rand><ext>.
func Key(kind, originalName string, now time.Time) (key, filename string) {
	ext := strings.ToLower(filepath.Ext(originalName))
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	base = unsafeName.ReplaceAllString(base, "_")
	if len(base) > 64 {
		base = base[:64]
	}
	if base == "" {
		base = "file"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	filename = fmt.Sprintf("%s_%d_%s%s", base, now.Unix(), suffix, ext)
	return Folder(kind) + "/" + filename, filename
}
