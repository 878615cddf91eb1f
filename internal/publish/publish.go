// Package publish uploads finished documents to S3-compatible object storage.
//
// Two drivers exist: S3Uploader (aws-sdk-go-v2) and MinioUploader
// (minio-go). NewUploader picks one from PublishTarget.Driver.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gosimple/slug"

	"github.com/study-groups/mdpublish/internal/pipeline"
)

// Driver names.
const (
	DriverS3    = "s3"
	DriverMinio = "minio"
)

// DefaultRegion is used when neither the target nor the environment set one.
const DefaultRegion = "us-east-1"

// Sentinel errors.
var (
	ErrInvalidTarget = errors.New("invalid publish target")
	ErrUnknownDriver = errors.New("unknown publish driver")
	ErrEmptyDocument = errors.New("empty document")
)

// Request is one upload.
type Request struct {
	Document []byte
	Key      string // object key relative to the target prefix
	Target   pipeline.PublishTarget
}

// Response mirrors the publish-target API: Success with the public URL, or
// the server-provided error message.
type Response struct {
	Success bool
	URL     string
	Error   string
}

// Uploader sends a document to a publish target.
type Uploader interface {
	Upload(ctx context.Context, req Request) (*Response, error)
}

// Error represents an upload failure with context about the object.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("publish.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("publish.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("publish.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewUploader creates the uploader for target.Driver (s3 when empty).
func NewUploader(ctx context.Context, target pipeline.PublishTarget) (Uploader, error) {
	if err := ValidateTarget(target); err != nil {
		return nil, err
	}
	switch strings.ToLower(target.Driver) {
	case "", DriverS3:
		return NewS3Uploader(ctx, target)
	case DriverMinio:
		return NewMinioUploader(target)
	}
	return nil, fmt.Errorf("%w: %q (must be s3 or minio)", ErrUnknownDriver, target.Driver)
}

// ValidateTarget checks the fields every driver needs.
func ValidateTarget(t pipeline.PublishTarget) error {
	if strings.TrimSpace(t.Bucket) == "" {
		return fmt.Errorf("%w: bucket is required", ErrInvalidTarget)
	}
	if strings.ToLower(t.Driver) == DriverMinio && strings.TrimSpace(t.Endpoint) == "" {
		return fmt.Errorf("%w: minio driver requires an endpoint", ErrInvalidTarget)
	}
	if t.Endpoint != "" {
		if _, err := endpointURL(t.Endpoint); err != nil {
			return fmt.Errorf("%w: endpoint: %v", ErrInvalidTarget, err)
		}
	}
	if (t.Credentials.AccessKey == "") != (t.Credentials.SecretKey == "") {
		return fmt.Errorf("%w: access key and secret key must be set together", ErrInvalidTarget)
	}
	return nil
}

// DefaultKey derives an object key from a document title.
func DefaultKey(title string) string {
	s := slug.Make(title)
	if s == "" {
		s = "document"
	}
	return s + ".html"
}

// ObjectKey joins the target prefix and a document path.
func ObjectKey(prefix, path string) string {
	prefix = strings.Trim(prefix, "/")
	path = strings.TrimLeft(path, "/")
	if prefix == "" {
		return path
	}
	return prefix + "/" + path
}

// PublicURL returns the URL a published object is served from.
// BaseURL wins; otherwise the URL is derived from the endpoint or AWS.
func PublicURL(t pipeline.PublishTarget, key string) string {
	escaped := escapeKey(key)
	if t.BaseURL != "" {
		return strings.TrimRight(t.BaseURL, "/") + "/" + escaped
	}

	if t.Endpoint != "" {
		u, err := endpointURL(t.Endpoint)
		if err == nil {
			if t.ForcePathStyle || strings.ToLower(t.Driver) == DriverMinio {
				return fmt.Sprintf("%s://%s/%s/%s", u.Scheme, u.Host, t.Bucket, escaped)
			}
			return fmt.Sprintf("%s://%s.%s/%s", u.Scheme, t.Bucket, u.Host, escaped)
		}
	}

	region := t.Region
	if region == "" {
		region = DefaultRegion
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", t.Bucket, region, escaped)
}

// endpointURL parses an endpoint, defaulting the scheme to https.
func endpointURL(endpoint string) (*url.URL, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host in %q", endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return u, nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// contentType sniffs the document; published documents are HTML.
func contentType(doc []byte) string {
	mt := mimetype.Detect(doc)
	if mt.Is("text/html") {
		return mt.String()
	}
	return "text/html; charset=utf-8"
}
