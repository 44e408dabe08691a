package destination

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path"
	"path/filepath"

	"github.com/yuya-takeyama/raw2tiff-sync/pkg/s3client"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/tiffimage"
)

// S3 is a destination rooted at s3://bucket/prefix. Paths are object keys.
type S3 struct {
	client s3client.Client
	bucket string
	prefix string
}

func NewS3(client s3client.Client, uri string) (*S3, error) {
	bucket, prefix, err := s3client.ParseS3URI(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid S3 URI: %w", err)
	}
	return &S3{client: client, bucket: bucket, prefix: prefix}, nil
}

func (d *S3) Join(rel string) string {
	rel = filepath.ToSlash(rel)
	if rel == "." {
		rel = ""
	}
	return path.Join(d.prefix, rel)
}

func (d *S3) Stat(ctx context.Context, key string) (Info, error) {
	obj, err := d.client.HeadObject(ctx, &s3client.HeadObjectRequest{
		Bucket: d.bucket,
		Key:    key,
	})
	if err != nil {
		if errors.Is(err, s3client.ErrNotFound) {
			return Info{}, fmt.Errorf("s3://%s/%s: %w", d.bucket, key, fs.ErrNotExist)
		}
		return Info{}, err
	}
	return Info{Size: obj.Size, ModTime: obj.LastModified}, nil
}

// MkdirAll is a no-op; S3 has no directories.
func (d *S3) MkdirAll(context.Context, string) error {
	return nil
}

func (d *S3) Remove(ctx context.Context, key string) error {
	return d.client.DeleteObject(ctx, &s3client.DeleteObjectRequest{
		Bucket: d.bucket,
		Key:    key,
	})
}

func (d *S3) Create(ctx context.Context, key string, _ fs.FileMode) (Writer, error) {
	pr, pw := io.Pipe()
	w := &objectWriter{
		pw:   pw,
		done: make(chan error, 1),
		remove: func() error {
			return d.Remove(context.WithoutCancel(ctx), key)
		},
	}

	go func() {
		err := d.client.PutObject(ctx, &s3client.PutObjectRequest{
			Bucket:      d.bucket,
			Key:         key,
			Body:        pr,
			ContentType: contentType(key),
		})
		// Unblock a writer still feeding the pipe after a failed upload.
		pr.CloseWithError(uploadAborted(err))
		w.done <- err
	}()

	return w, nil
}

func (d *S3) String() string {
	if d.prefix == "" {
		return "s3://" + d.bucket
	}
	return "s3://" + d.bucket + "/" + d.prefix
}

type objectWriter struct {
	pw     *io.PipeWriter
	done   chan error
	remove func() error
}

func (w *objectWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *objectWriter) Close() error {
	w.pw.Close()
	return <-w.done
}

// Abort fails the body stream so the uploader gives up instead of
// committing a truncated object.
func (w *objectWriter) Abort(cause error) error {
	if cause == nil {
		cause = errUploadAborted
	}
	w.pw.CloseWithError(cause)
	if err := <-w.done; err != nil {
		return nil
	}
	// The upload won the race; take the object back.
	if err := w.remove(); err != nil {
		return fmt.Errorf("remove aborted upload: %w", err)
	}
	return nil
}

func contentType(key string) string {
	if tiffimage.IsTaggedImage(key) {
		return "image/tiff"
	}
	return mime.TypeByExtension(path.Ext(key))
}

var errUploadAborted = errors.New("upload aborted")

func uploadAborted(err error) error {
	if err == nil {
		return io.ErrClosedPipe
	}
	return err
}
