package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/noah-isme/trs-ewc-import/pkg/config"
)

// S3Storage stores files in S3 compatible buckets; containers are bucket names.
type S3Storage struct {
	client   s3iface.S3API
	uploader *s3manager.Uploader
}

var _ FileStore = (*S3Storage)(nil)

// NewS3Storage builds a client from the storage configuration. Credentials
// come from the default AWS provider chain.
func NewS3Storage(cfg config.StorageConfig) (*S3Storage, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.S3Region).WithS3ForcePathStyle(cfg.S3ForcePathStyle)
	if cfg.S3Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.S3Endpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return NewS3StorageWithClient(s3.New(sess)), nil
}

// NewS3StorageWithClient wraps an existing S3 client.
func NewS3StorageWithClient(client s3iface.S3API) *S3Storage {
	return &S3Storage{
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
	}
}

// List pages through every object under prefix. Directory placeholder keys are skipped.
func (s *S3Storage) List(ctx context.Context, container, prefix string) ([]Object, error) {
	objects := make([]Object, 0)
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(container),
		Prefix: aws.String(prefix),
	}
	err := s.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			objects = append(objects, Object{
				Key:          key,
				Size:         aws.Int64Value(obj.Size),
				LastModified: aws.TimeValue(obj.LastModified),
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list s3://%s/%s: %w", container, prefix, err)
	}
	return objects, nil
}

// Open streams an object body; callers must close it.
func (s *S3Storage) Open(ctx context.Context, container, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", container, key, err)
	}
	return out.Body, nil
}

// Put uploads r under key.
func (s *S3Storage) Put(ctx context.Context, container, key string, r io.Reader) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", container, key, err)
	}
	return nil
}

// Copy performs a server side copy.
func (s *S3Storage) Copy(ctx context.Context, srcContainer, srcKey, dstContainer, dstKey string) error {
	_, err := s.client.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstContainer),
		Key:        aws.String(dstKey),
		CopySource: aws.String(url.PathEscape(srcContainer + "/" + srcKey)),
	})
	if err != nil {
		return fmt.Errorf("copy s3://%s/%s to s3://%s/%s: %w", srcContainer, srcKey, dstContainer, dstKey, err)
	}
	return nil
}

// Delete removes an object. Deleting a missing key is not an error in S3.
func (s *S3Storage) Delete(ctx context.Context, container, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", container, key, err)
	}
	return nil
}

// New selects the file store for the configured driver.
func New(cfg config.StorageConfig) (FileStore, error) {
	switch cfg.Driver {
	case config.StorageDriverS3:
		return NewS3Storage(cfg)
	case config.StorageDriverLocal, "":
		return NewLocalStorage(cfg.LocalDir)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
