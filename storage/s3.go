package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"storymill/types"
)

// S3Config contains minimal configuration for creating an S3 client. Empty
// values fall back to the standard AWS config/credential chain.
type S3Config struct {
	Region string
	// Profile selects a named shared config profile.
	Profile string
	// UsePathStyle forces path-style addressing for S3-compatible providers.
	UsePathStyle bool
}

// S3 wraps the AWS SDK v2 client behind the narrow surface the archive needs.
type S3 struct {
	client *s3.Client
}

// NewS3 creates an S3 wrapper from the default AWS configuration chain with
// optional overrides.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3{client: client}, nil
}

// Put uploads an object to bucket/key.
func (s *S3) Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	_, err := s.client.PutObject(ctx, in)
	return err
}

// Get fetches an object's streaming body. Caller must Close it.
func (s *S3) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

// Exists returns true when HeadObject succeeds, false on 404/NotFound.
func (s *S3) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return false, nil
	}
	return false, err
}

// Archive persists deduplication run outputs as JSON objects, one pair of
// objects (retained items + report) per batch.
type Archive struct {
	s3     *S3
	bucket string
	prefix string
}

// NewArchive wraps an S3 client with the target bucket and key prefix.
func NewArchive(client *S3, bucket, prefix string) *Archive {
	return &Archive{s3: client, bucket: bucket, prefix: prefix}
}

// StoreRun writes the retained items and the report for one batch. The batch
// id becomes part of the object keys; an empty id falls back to a timestamp.
func (a *Archive) StoreRun(ctx context.Context, batchID string, unique []types.Item, report *types.Report) error {
	if batchID == "" {
		batchID = time.Now().UTC().Format("20060102T150405Z")
	}

	itemsKey := fmt.Sprintf("%sruns/%s/unique_items.json", a.prefix, batchID)
	if err := a.putJSON(ctx, itemsKey, unique); err != nil {
		return fmt.Errorf("failed to store unique items: %w", err)
	}

	reportKey := fmt.Sprintf("%sruns/%s/report.json", a.prefix, batchID)
	if err := a.putJSON(ctx, reportKey, report); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}

func (a *Archive) putJSON(ctx context.Context, key string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return a.s3.Put(ctx, a.bucket, key, bytes.NewReader(b), "application/json")
}
