// Package archivestore fetches previously-retrieved BOE XML / EUR-Lex HTML
// payloads from an S3-compatible local archive (MinIO, Hetzner Cloud
// Storage, or AWS S3 itself), trimmed down from the teacher's multi-cloud
// upload toolkit to the two operations the ingestion engine uses: a single
// object GET for replaying archived documents, and a file upload for the
// extract command.
package archivestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dustin/go-humanize"

	"github.com/mhanii/corolaria-sub000/common"
)

// Config addresses one S3-compatible endpoint.
type Config struct {
	EndpointURL string
	AccessKey   string
	SecretKey   string
	Region      string
	Bucket      string
}

// Client fetches archived document payloads by object key.
type Client struct {
	s3       *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// New builds a Client against a custom endpoint, the way MinioGetObject does:
// path-style addressing and static credentials, so the same code works
// against MinIO, Hetzner Cloud Storage, or real AWS S3.
func New(ctx context.Context, cfg Config) (*Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               cfg.EndpointURL,
					SigningRegion:     region,
					HostnameImmutable: true,
				}, nil
			})),
	)
	if err != nil {
		return nil, fmt.Errorf("load archive store config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &Client{s3: client, uploader: manager.NewUploader(client), bucket: cfg.Bucket}, nil
}

// ErrObjectNotFound marks a missing archive object; callers map this to
// the retriever's terminal DocumentNotFound failure.
var ErrObjectNotFound = fmt.Errorf("archive object not found")

// Get returns the full body of objectKey.
func (c *Client) Get(ctx context.Context, objectKey string) ([]byte, error) {
	result, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectKey)
		}
		return nil, fmt.Errorf("get archive object %s: %w", objectKey, err)
	}
	defer result.Body.Close()

	body, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read archive object %s: %w", objectKey, err)
	}

	common.Logger.WithField("bytes", humanize.Bytes(uint64(len(body)))).
		WithField("object", objectKey).Debug("fetched archive object")
	return body, nil
}

// UploadFile uploads the file at filePath as objectKey, using a multipart
// upload for anything past the manager's single-part size threshold. Seeds
// the archive bucket from a local directory of extracted documents.
func (c *Client) UploadFile(ctx context.Context, filePath, objectKey string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", filePath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", filePath, err)
	}

	_, err = c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectKey),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("upload %s to %s: %w", filePath, objectKey, err)
	}

	common.Logger.WithField("bytes", humanize.Bytes(uint64(info.Size()))).
		WithField("object", objectKey).Debug("uploaded archive object")
	return nil
}
