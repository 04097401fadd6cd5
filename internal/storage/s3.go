package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// Client is a thin wrapper over the S3 SDK; all transfer semantics belong
// to the SDK's transfer managers.
type Client struct {
	s3         *s3.S3
	downloader *s3manager.Downloader
	uploader   *s3manager.Uploader
}

func New(region string) *Client {
	sess := session.Must(session.NewSession(&aws.Config{
		Region: aws.String(region),
	}))
	return &Client{
		s3:         s3.New(sess),
		downloader: s3manager.NewDownloader(sess),
		uploader:   s3manager.NewUploader(sess),
	}
}

// ListKeys returns all keys under prefix with the given suffix, paginated.
func (c *Client) ListKeys(ctx context.Context, bucket, prefix, suffix string) ([]string, error) {
	var keys []string
	err := c.s3.ListObjectsPagesWithContext(ctx,
		&s3.ListObjectsInput{
			Bucket: aws.String(bucket),
			Prefix: aws.String(prefix),
		},
		func(page *s3.ListObjectsOutput, lastPage bool) bool {
			for _, obj := range page.Contents {
				if suffix == "" || strings.HasSuffix(*obj.Key, suffix) {
					keys = append(keys, *obj.Key)
				}
			}
			return !lastPage
		})
	if err != nil {
		return nil, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
	}
	return keys, nil
}

// Download fetches the whole object into memory.
func (c *Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	buffer := &aws.WriteAtBuffer{}
	_, err := c.downloader.DownloadWithContext(ctx, buffer, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}
	return buffer.Bytes(), nil
}

// Get opens the object as a stream. The caller owns the ReadCloser.
func (c *Client) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := c.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

// Upload writes the body to the bucket and verifies the object landed.
func (c *Client) Upload(ctx context.Context, bucket, key string, body io.Reader, meta map[string]string) error {
	input := &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if len(meta) > 0 {
		input.Metadata = make(map[string]*string, len(meta))
		for k, v := range meta {
			input.Metadata[k] = aws.String(v)
		}
	}
	if _, err := c.uploader.UploadWithContext(ctx, input); err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", bucket, key, err)
	}
	_, err := c.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("upload verification failed for s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
