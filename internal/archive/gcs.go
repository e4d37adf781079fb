package archive

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// NewGCSClient creates a storage client. A non-empty endpoint targets an
// emulator such as fake-gcs-server without credentials.
func NewGCSClient(ctx context.Context, endpoint string) (*storage.Client, error) {
	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return client, nil
}

// GCS uploads files to a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

// NewGCS creates a GCS archiver writing to bucket.
func NewGCS(client *storage.Client, bucket string) *GCS {
	return &GCS{client: client, bucket: bucket, now: time.Now}
}

// Archive implements Archiver. The location is a gs:// URI.
func (g *GCS) Archive(ctx context.Context, userID, filename string, data []byte) (string, error) {
	name := objectName(userID, filename, g.now())

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "text/csv"
	w.Metadata = map[string]string{"user_id": userID, "original_filename": filename}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload of %s: %w", name, err)
	}

	return fmt.Sprintf("gs://%s/%s", g.bucket, name), nil
}
