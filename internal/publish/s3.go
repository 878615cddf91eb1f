package publish

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/study-groups/mdpublish/internal/pipeline"
)

// S3API is the subset of the S3 client the uploader uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader uploads with the AWS SDK. It works against AWS and any
// S3-compatible endpoint (DigitalOcean Spaces, Ceph, ...).
type S3Uploader struct {
	client S3API
}

// NewS3Uploader builds an S3 client for target. Static credentials from
// the target win over the default AWS credential chain.
func NewS3Uploader(ctx context.Context, target pipeline.PublishTarget) (*S3Uploader, error) {
	var loadOpts []func(*config.LoadOptions) error
	if target.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(target.Region))
	}
	if target.Credentials.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(target.Credentials.AccessKey, target.Credentials.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, &Error{Op: "init", Bucket: target.Bucket, Err: err}
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	var endpoint string
	if target.Endpoint != "" {
		u, err := endpointURL(target.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("%w: endpoint: %v", ErrInvalidTarget, err)
		}
		endpoint = u.String()
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = target.ForcePathStyle
	})
	return &S3Uploader{client: client}, nil
}

// NewS3UploaderWithClient wraps an existing client.
func NewS3UploaderWithClient(client S3API) *S3Uploader {
	return &S3Uploader{client: client}
}

// Upload puts the document as a public-read object.
func (u *S3Uploader) Upload(ctx context.Context, req Request) (*Response, error) {
	if len(req.Document) == 0 {
		return nil, &Error{Op: "upload", Bucket: req.Target.Bucket, Err: ErrEmptyDocument}
	}

	key := ObjectKey(req.Target.Prefix, req.Key)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(req.Target.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(req.Document),
		ContentLength: aws.Int64(int64(len(req.Document))),
		ContentType:   aws.String(contentType(req.Document)),
		ACL:           types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return &Response{Error: err.Error()}, &Error{Op: "upload", Bucket: req.Target.Bucket, Key: key, Err: err}
	}

	return &Response{Success: true, URL: PublicURL(req.Target, key)}, nil
}

var _ Uploader = (*S3Uploader)(nil)
