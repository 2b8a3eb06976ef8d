package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	gcs "cloud.google.com/go/storage"

	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

// GCSArchiver copies finished clips to a Cloud Storage bucket under
// <prefix>/<jobID>/<filename>
type GCSArchiver struct {
	client *gcs.Client
	bucket string
	prefix string
}

// NewGCSArchiver creates an archiver using application default credentials
func NewGCSArchiver(ctx context.Context, bucket, prefix string) (*GCSArchiver, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSArchiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Close releases the underlying client
func (a *GCSArchiver) Close() error {
	return a.client.Close()
}

// ObjectName is the bucket key a clip is archived under
func (a *GCSArchiver) ObjectName(jobID string, clip types.Clip) string {
	return path.Join(a.prefix, jobID, clip.Filename)
}

// Archive uploads the clip and returns its gs:// URL
func (a *GCSArchiver) Archive(ctx context.Context, jobID string, clip types.Clip) (string, error) {
	f, err := os.Open(clip.Filepath)
	if err != nil {
		return "", fmt.Errorf("failed to open clip: %w", err)
	}
	defer func() { _ = f.Close() }()

	// cancelling the writer's context is the only way to abort without
	// committing a truncated object
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	name := a.ObjectName(jobID, clip)
	w := a.client.Bucket(a.bucket).Object(name).NewWriter(wctx)
	w.ContentType = "video/mp4"

	if _, err := io.Copy(w, f); err != nil {
		cancel()
		_ = w.Close()
		return "", fmt.Errorf("failed to upload clip: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", a.bucket, name), nil
}
