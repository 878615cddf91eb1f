package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/study-groups/mdpublish/internal/pipeline"
)

// MinioAPI is the subset of the MinIO client the uploader uses.
type MinioAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioUploader uploads to MinIO and other S3-compatible servers.
type MinioUploader struct {
	client MinioAPI
}

// NewMinioUploader connects to target.Endpoint. An http:// endpoint
// disables TLS.
func NewMinioUploader(target pipeline.PublishTarget) (*MinioUploader, error) {
	u, err := endpointURL(target.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: endpoint: %v", ErrInvalidTarget, err)
	}

	lookup := minio.BucketLookupAuto
	if target.ForcePathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := minio.New(u.Host, &minio.Options{
		Creds:        credentials.NewStaticV4(target.Credentials.AccessKey, target.Credentials.SecretKey, ""),
		Secure:       u.Scheme == "https",
		Region:       target.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, &Error{Op: "init", Bucket: target.Bucket, Err: err}
	}
	return &MinioUploader{client: client}, nil
}

// NewMinioUploaderWithClient wraps an existing client.
func NewMinioUploaderWithClient(client MinioAPI) *MinioUploader {
	return &MinioUploader{client: client}
}

// Upload puts the document as a public-read object.
func (m *MinioUploader) Upload(ctx context.Context, req Request) (*Response, error) {
	if len(req.Document) == 0 {
		return nil, &Error{Op: "upload", Bucket: req.Target.Bucket, Err: ErrEmptyDocument}
	}

	key := ObjectKey(req.Target.Prefix, req.Key)
	_, err := m.client.PutObject(
		ctx,
		req.Target.Bucket,
		key,
		bytes.NewReader(req.Document),
		int64(len(req.Document)),
		minio.PutObjectOptions{
			ContentType:  contentType(req.Document),
			UserMetadata: map[string]string{"x-amz-acl": "public-read"},
		},
	)
	if err != nil {
		return &Response{Error: err.Error()}, &Error{Op: "upload", Bucket: req.Target.Bucket, Key: key, Err: err}
	}

	return &Response{Success: true, URL: PublicURL(req.Target, key)}, nil
}

var _ Uploader = (*MinioUploader)(nil)
