package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	pkglogger "github.com/rankreport/rankreport-backend/pkg/logger"
)

// S3 accepts at most this many keys per DeleteObjects call
const maxDeleteBatch = 1000

// S3Client stores rendered report documents in S3/R2/MinIO compatible storage
type S3Client struct {
	client    *s3.Client
	bucket    string
	endpoint  string
	cdnURL    string // white-label base URL for report links
	basePath  string // prefix for all objects (e.g. "reports/")
	pathStyle bool
}

// S3Config holds S3-compatible storage configuration
type S3Config struct {
	Endpoint        string // e.g. https://xxx.r2.cloudflarestorage.com
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	CDNURL          string
	BasePath        string
	ForcePathStyle  bool // true for MinIO/R2
}

// NewS3Client creates a new S3-compatible storage client
func NewS3Client(cfg S3Config) (*S3Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	client := s3.New(s3.Options{}, func(o *s3.Options) {
		o.Region = cfg.Region
		o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	pkglogger.GetLogger().Info().
		Str("bucket", cfg.Bucket).
		Str("endpoint", cfg.Endpoint).
		Msg("report storage initialized")

	return &S3Client{
		client:    client,
		bucket:    cfg.Bucket,
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		cdnURL:    strings.TrimRight(cfg.CDNURL, "/"),
		basePath:  cfg.BasePath,
		pathStyle: cfg.ForcePathStyle,
	}, nil
}

// UploadResult describes a stored report document
type UploadResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Upload writes a report document under basePath+key and returns its public URL.
// Documents open inline in the browser so agencies can print them to PDF.
func (c *S3Client) Upload(ctx context.Context, key string, body io.Reader, contentType string, size int64) (*UploadResult, error) {
	fullKey := c.basePath + key

	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(c.bucket),
		Key:                aws.String(fullKey),
		Body:               body,
		ContentType:        aws.String(contentType),
		ContentLength:      aws.Int64(size),
		ContentDisposition: aws.String("inline"),
		CacheControl:       aws.String("private, max-age=300"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", fullKey, err)
	}

	return &UploadResult{
		Key:         fullKey,
		URL:         c.PublicURL(fullKey),
		ContentType: contentType,
		Size:        size,
	}, nil
}

// DeleteMany removes stored documents by their full keys, in batches.
// Per-key failures reported by S3 are joined into the returned error.
func (c *S3Client) DeleteMany(ctx context.Context, keys []string) error {
	var errs []error
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := start + maxDeleteBatch
		if end > len(keys) {
			end = len(keys)
		}

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(k)})
		}

		out, err := c.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("delete batch at %d: %w", start, err))
			continue
		}
		for _, e := range out.Errors {
			errs = append(errs, fmt.Errorf("delete %s: %s", aws.ToString(e.Key), aws.ToString(e.Message)))
		}
	}
	return errors.Join(errs...)
}

// PublicURL is the link stored on the report: the CDN when configured,
// otherwise the bucket URL on the configured endpoint.
func (c *S3Client) PublicURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	switch {
	case c.cdnURL != "":
		return c.cdnURL + "/" + escaped
	case c.endpoint != "" && c.pathStyle:
		return c.endpoint + "/" + c.bucket + "/" + escaped
	case c.endpoint != "":
		if u, err := url.Parse(c.endpoint); err == nil && u.Host != "" {
			return u.Scheme + "://" + c.bucket + "." + u.Host + "/" + escaped
		}
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", c.bucket, escaped)
}

// ReportKey builds the object key for a rendered report document
func ReportKey(userID, reportID string, createdAt time.Time) string {
	return fmt.Sprintf("%s/%d/%02d/%s.html", userID, createdAt.Year(), createdAt.Month(), reportID)
}
