package policy

import "fmt"

// Format names the decoder that failed.
type Format string

const (
	FormatRaw  Format = "raw"
	FormatTIFF Format = "tiff"
)

// DecodeError is returned when a source cannot be interpreted as an image.
// Raw decode errors fail the task; TIFF decode errors trigger the
// recompress fallback.
type DecodeError struct {
	Format Format
	Path   string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s %s: %v", e.Format, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// CopyError is returned when a byte copy fails.
type CopyError struct {
	Src string
	Dst string
	Err error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copy %s to %s: %v", e.Src, e.Dst, e.Err)
}

func (e *CopyError) Unwrap() error {
	return e.Err
}
