// Package s3 uploads message attachments to an S3 bucket and hands back
// descriptors suitable for storing alongside an email.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rbaliyan/webmail/store"
)

// Uploader uploads attachment content to S3. The bucket is expected to
// serve objects publicly (directly or through a CDN fronting it); the
// returned descriptors carry the public URL, never the raw bytes.
type Uploader struct {
	client  *s3.Client
	bucket  string
	prefix  string
	baseURL string
	logger  *slog.Logger
}

// New creates a new S3 attachment uploader.
// The context is used for AWS credential loading and configuration.
func New(ctx context.Context, opts ...Option) (*Uploader, error) {
	o := &options{
		region: "us-east-1",
		prefix: "attachments",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	awsCfg, err := buildAWSConfig(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("build aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(opts *s3.Options) {
		if o.endpoint != "" {
			opts.BaseEndpoint = aws.String(o.endpoint)
			opts.UsePathStyle = o.usePathStyle
		}
	})

	baseURL := o.publicBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", o.bucket, o.region)
	}

	return &Uploader{
		client:  client,
		bucket:  o.bucket,
		prefix:  o.prefix,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  o.logger,
	}, nil
}

// buildAWSConfig builds AWS config based on authentication options.
func buildAWSConfig(ctx context.Context, o *options) (aws.Config, error) {
	var optFns []func(*config.LoadOptions) error

	optFns = append(optFns, config.WithRegion(o.region))

	if o.accessKey != "" && o.secretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(o.accessKey, o.secretKey, o.sessionToken)
		optFns = append(optFns, config.WithCredentialsProvider(creds))
	}
	// Otherwise the default credential chain applies: env vars, shared
	// config, EC2/ECS instance roles, IRSA on EKS.

	return config.LoadDefaultConfig(ctx, optFns...)
}

// Upload stores one attachment and returns its descriptor. The content
// type is recorded on the object so the bucket serves it correctly.
func (u *Uploader) Upload(ctx context.Context, filename, contentType string, content []byte) (*store.AttachmentData, error) {
	if filename == "" {
		return nil, fmt.Errorf("filename is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := u.generateKey(filename)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		return nil, fmt.Errorf("upload to s3: %w", err)
	}

	u.logger.Debug("uploaded attachment", "bucket", u.bucket, "key", key, "size", len(content))

	return &store.AttachmentData{
		Filename: filename,
		FileURL:  u.baseURL + "/" + key,
		FileSize: int64(len(content)),
		MIMEType: contentType,
	}, nil
}

// generateKey creates a unique S3 key for the attachment.
// Date partitioning keeps listings manageable; the UUID segment makes
// same-named uploads collide-free.
func (u *Uploader) generateKey(filename string) string {
	now := time.Now().UTC()
	id := uuid.New().String()
	return path.Join(u.prefix, now.Format("2006/01/02"), id, path.Base(filename))
}
