// Package rawimage reads and writes the headered raw image format produced by
// the acquisition software: a little-endian uint32 width and uint32 height,
// followed by width*height little-endian uint16 samples in row-major order.
package rawimage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
)

const (
	headerSize = 8
	// maxPixels caps a single frame at 512 MiB of samples.
	maxPixels = int64(1) << 28
)

var (
	ErrShortHeader  = errors.New("raw: short header")
	ErrEmptyImage   = errors.New("raw: zero width or height")
	ErrSizeMismatch = errors.New("raw: pixel data does not match header dimensions")
	ErrTooLarge     = errors.New("raw: image dimensions too large")
)

// Decode reads a raw image from r into a 16-bit grayscale image.
func Decode(r io.Reader) (*image.Gray16, error) {
	width, height, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	return readSamples(r, width, height)
}

// ReadFile decodes the raw image stored at path. The file size must match
// the header before any pixel memory is allocated.
func ReadFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(f)
	width, height, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	if want := headerSize + 2*width*height; info.Size() != want {
		return nil, fmt.Errorf("%w: file is %d bytes, header declares %dx%d (%d bytes)",
			ErrSizeMismatch, info.Size(), width, height, want)
	}
	return readSamples(br, width, height)
}

// readHeader returns the declared dimensions. A product that would overflow
// or exceed maxPixels is rejected before anything is allocated.
func readHeader(r io.Reader) (width, height int64, err error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, 0, ErrShortHeader
		}
		return 0, 0, fmt.Errorf("read header: %w", err)
	}

	width = int64(binary.LittleEndian.Uint32(header[0:4]))
	height = int64(binary.LittleEndian.Uint32(header[4:8]))
	if width == 0 || height == 0 {
		return 0, 0, ErrEmptyImage
	}
	if width > maxPixels/height {
		return 0, 0, fmt.Errorf("%w: %dx%d", ErrTooLarge, width, height)
	}
	return width, height, nil
}

func readSamples(r io.Reader, width, height int64) (*image.Gray16, error) {
	img := image.NewGray16(image.Rect(0, 0, int(width), int(height)))
	if _, err := io.ReadFull(r, img.Pix); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: want %d bytes of samples", ErrSizeMismatch, len(img.Pix))
		}
		return nil, fmt.Errorf("read samples: %w", err)
	}

	var extra [1]byte
	if n, _ := r.Read(extra[:]); n != 0 {
		return nil, fmt.Errorf("%w: trailing data after %d samples", ErrSizeMismatch, width*height)
	}

	// image.Gray16 stores samples big-endian.
	for i := 0; i < len(img.Pix); i += 2 {
		img.Pix[i], img.Pix[i+1] = img.Pix[i+1], img.Pix[i]
	}

	return img, nil
}

// Encode writes img to w in raw format.
func Encode(w io.Writer, img *image.Gray16) error {
	b := img.Bounds()

	var header [headerSize]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(b.Dx()))
	binary.LittleEndian.PutUint32(header[4:8], uint32(b.Dy()))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	row := make([]byte, b.Dx()*2)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			binary.LittleEndian.PutUint16(row[(x-b.Min.X)*2:], img.Gray16At(x, y).Y)
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes img to path in raw format.
func WriteFile(path string, img *image.Gray16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(f)
	if err := Encode(bw, img); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
