package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"

	"koala-diff/core/storage"
)

// OpenObject downloads a dataset object to a temporary file and opens it with
// the format reader matching the object key's extension. The temporary file is
// removed when the returned source is closed.
func OpenObject(ctx context.Context, client storage.Client, bucket, key string) (Source, error) {
	if _, err := client.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, fmt.Errorf("stat s3://%s/%s: %w", bucket, key, err)
	}
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	tmp, err := os.CreateTemp("", "koala-obj-*"+filepath.Ext(key))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(tmp, obj); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}

	src, err := Open(tmp.Name())
	if err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}
	return &tempFileSource{Source: src, path: tmp.Name()}, nil
}

// tempFileSource removes its backing temporary file on Close.
type tempFileSource struct {
	Source
	path string
}

func (s *tempFileSource) Close() error {
	err := s.Source.Close()
	if rmErr := os.Remove(s.path); err == nil {
		err = rmErr
	}
	return err
}
