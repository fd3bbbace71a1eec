package media

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"backend-nepaltrip/internal/apperr"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
)

// Firebase writes to the project's Cloud Storage bucket and returns the
// download URL Firebase serves objects from.
type Firebase struct {
	bucket *gcs.BucketHandle
	name   string
	now    func() time.Time
}

func NewFirebase(ctx context.Context, app *firebase.App, bucketName string) (*Firebase, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase storage client: %w", err)
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("firebase bucket %s: %w", bucketName, err)
	}
	return &Firebase{bucket: bucket, name: bucketName, now: time.Now}, nil
}

func (f *Firebase) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	key := ObjectPath(f.now(), filename)
	w := f.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType(data)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", apperr.Storage(err, "upload %s", key)
	}
	if err := w.Close(); err != nil {
		return "", apperr.Storage(err, "upload %s", key)
	}
	return downloadURL(f.name, key), nil
}

func downloadURL(bucket, key string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media", bucket, url.PathEscape(key))
}
