package replica

import (
	"bytes"
	"context"
	"fmt"
	"path"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures an S3 compatible replica (AWS S3 or MinIO).
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	Prefix    string
	PathStyle bool
}

// S3 uploads objects under a key prefix of one bucket.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 builds the client from the default AWS credentials chain.
func NewS3(ctx context.Context, cfg S3Config, optFns ...func(*s3.Options)) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3FromConfig(awsCfg, cfg, optFns...), nil
}

// NewS3FromConfig builds the replica from an existing aws.Config.
func NewS3FromConfig(awsCfg aws.Config, cfg S3Config, optFns ...func(*s3.Options)) *S3 {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		for _, fn := range optFns {
			fn(o)
		}
	})
	return &S3{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}
}

// Put uploads every object. The first failure stops the upload.
func (r *S3) Put(ctx context.Context, objects ...Object) error {
	for _, obj := range objects {
		key := r.key(obj.Name)
		input := &s3.PutObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(obj.Data),
		}
		if obj.ContentType != "" {
			input.ContentType = aws.String(obj.ContentType)
		}
		if _, err := r.client.PutObject(ctx, input); err != nil {
			return fmt.Errorf("put s3://%s/%s: %w", r.bucket, key, err)
		}
	}
	return nil
}

// Target describes the replica for logs.
func (r *S3) Target() string {
	return "s3://" + path.Join(r.bucket, r.prefix)
}

func (r *S3) key(name string) string {
	if r.prefix == "" {
		return name
	}
	return path.Join(r.prefix, name)
}
