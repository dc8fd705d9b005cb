package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/imamik/mskstack/internal/util/naming"
)

// StageInput locates where a template is staged.
type StageInput struct {
	Bucket    string
	Prefix    string
	StackName string
	// Create makes the bucket when it does not exist.
	Create bool
}

// StagedTemplate is a template uploaded to S3.
type StagedTemplate struct {
	Bucket string
	Key    string
	URL    string
}

// PrepareTemplate returns body as an inline template when it fits, and
// stages it in S3 otherwise. The returned cleanup removes the staged copy
// and is never nil.
func (c *Clients) PrepareTemplate(ctx context.Context, body []byte, in StageInput) (Template, func(), error) {
	noop := func() {}
	if len(body) <= MaxInlineTemplateSize {
		return Template{Body: string(body)}, noop, nil
	}
	if in.Bucket == "" {
		return Template{}, noop, fmt.Errorf("template is %d bytes, over the %d byte inline limit: set staging.bucket", len(body), MaxInlineTemplateSize)
	}

	staged, err := c.StageTemplate(ctx, body, in)
	if err != nil {
		return Template{}, noop, err
	}
	cleanup := func() {
		_ = c.DeleteObject(context.WithoutCancel(ctx), staged.Bucket, staged.Key)
	}
	return Template{URL: staged.URL}, cleanup, nil
}

// StageTemplate uploads a template under a content-addressed key.
func (c *Clients) StageTemplate(ctx context.Context, body []byte, in StageInput) (*StagedTemplate, error) {
	exists, err := c.BucketExists(ctx, in.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if !in.Create {
			return nil, fmt.Errorf("staging bucket %s does not exist: create it or set staging.create", in.Bucket)
		}
		if err := c.CreateBucket(ctx, in.Bucket); err != nil {
			return nil, err
		}
	}

	key := naming.StagedTemplateKey(in.Prefix, in.StackName, body)
	if err := c.PutObject(ctx, in.Bucket, key, body); err != nil {
		return nil, err
	}
	return &StagedTemplate{Bucket: in.Bucket, Key: key, URL: c.objectURL(in.Bucket, key)}, nil
}

// objectURL is the virtual-hosted URL CloudFormation reads the template from.
func (c *Clients) objectURL(bucket, key string) string {
	if c.Region == "us-east-1" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, c.Region, key)
}

// CreateBucket creates a new S3 bucket in the client's region.
// Returns nil if the bucket already exists and is owned by us.
func (c *Clients) CreateBucket(ctx context.Context, bucketName string) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(bucketName)}
	// us-east-1 rejects an explicit location constraint.
	if c.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.Region),
		}
	}
	_, err := c.S3.CreateBucket(ctx, input)
	if err != nil {
		if isBucketAlreadyOwnedByYou(err) {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
	}
	return nil
}

// BucketExists checks if a bucket exists and is accessible.
func (c *Clients) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	_, err := c.S3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucketName),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check bucket %s: %w", bucketName, err)
	}
	return true, nil
}

// PutObject uploads an object to a bucket.
func (c *Clients) PutObject(ctx context.Context, bucketName, key string, data []byte) error {
	_, err := c.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s in bucket %s: %w", key, bucketName, err)
	}
	return nil
}

// DeleteObject deletes an object from a bucket.
func (c *Clients) DeleteObject(ctx context.Context, bucketName, key string) error {
	_, err := c.S3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s from bucket %s: %w", key, bucketName, err)
	}
	return nil
}

// isBucketAlreadyOwnedByYou checks if the error indicates the bucket exists and is owned by us.
func isBucketAlreadyOwnedByYou(err error) bool {
	if err == nil {
		return false
	}

	var baoby *types.BucketAlreadyOwnedByYou
	if errors.As(err, &baoby) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "BucketAlreadyOwnedByYou"
	}
	return false
}

// isNotFoundError checks if the error is a not found error.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	// HeadBucket has no body, so a missing bucket surfaces as NotFound.
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchBucket" || code == "404"
	}
	return false
}
