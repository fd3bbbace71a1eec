package media

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"backend-nepaltrip/internal/apperr"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type S3 struct {
	client  *s3.S3
	bucket  string
	baseURL string
	now     func() time.Time
}

// NewS3 builds an uploader for bucket. endpoint is empty for AWS itself and
// set for S3-compatible stores, which are addressed path-style.
func NewS3(bucket, region, endpoint string) (*S3, error) {
	cfg := &aws.Config{Region: aws.String(region)}
	baseURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
		baseURL = fmt.Sprintf("%s/%s", endpoint, bucket)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return &S3{client: s3.New(sess), bucket: bucket, baseURL: baseURL, now: time.Now}, nil
}

func (s *S3) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	key := ObjectPath(s.now(), filename)
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(data)),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		return "", apperr.Storage(err, "upload %s", key)
	}
	return fmt.Sprintf("%s/%s", s.baseURL, key), nil
}
