// Package objectstore wraps the S3-compatible backend used for file bytes.
// It exposes exactly the four operations the file service needs: put with
// server-side encryption, existence check, delete, and presigned GET URLs.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dmitrijs2005/filevault/internal/common"
	sc "github.com/dmitrijs2005/filevault/internal/server/config"
)

// Seams for testing the AWS SDK calls without network access.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}
	headObject = func(c *s3.Client, ctx context.Context, in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
		return c.HeadObject(ctx, in)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// PresignOptions tweak how a download URL is issued.
type PresignOptions struct {
	// TTL is the validity window of the URL.
	TTL time.Duration
	// ForceDownload asks the store to answer with a Content-Disposition
	// attachment header carrying Filename.
	ForceDownload bool
	// Filename used in the attachment disposition.
	Filename string
}

// Store is the S3-backed object store for one bucket.
type Store struct {
	bucket string
	config *sc.Config
}

// NewStore builds a Store for the configured bucket and endpoint.
func NewStore(cfg *sc.Config) *Store {
	return &Store{bucket: cfg.S3Bucket, config: cfg}
}

// Bucket returns the bucket this store writes to.
func (s *Store) Bucket() string {
	return s.bucket
}

func (s *Store) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return client, nil
}

// Put writes the object under key with AES256 server-side encryption.
// The write must complete before any metadata referencing key is persisted.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 body,
		ContentType:          aws.String(contentType),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return nil
}

// Exists reports whether the object under key is present. A missing object
// is not an error; backend failures are.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	_, err = headObject(client, ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return true, nil
}

// Delete removes the object under key. Deleting an absent key is a no-op
// for S3-compatible backends.
func (s *Store) Delete(ctx context.Context, key string) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	_, err = deleteObject(client, ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return nil
}

// PresignGet issues a time-limited GET URL for the object under key.
func (s *Store) PresignGet(ctx context.Context, key string, opts PresignOptions) (string, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	presignClient := newS3PresignClient(client)

	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if opts.ForceDownload {
		in.ResponseContentDisposition = aws.String(fmt.Sprintf("attachment; filename=%q", opts.Filename))
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = common.DefaultPresignTTL
	}

	req, err := presignGetObject(presignClient, ctx, in, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return req.URL, nil
}
