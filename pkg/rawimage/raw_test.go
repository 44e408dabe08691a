package rawimage

import (
	"bytes"
	"errors"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func randomGray16(r *rand.Rand, w, h int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, w, h))
	r.Read(img.Pix)
	return img
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	tests := []struct {
		name string
		w, h int
	}{
		{"square", 10, 10},
		{"wide", 17, 3},
		{"single pixel", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := randomGray16(r, tt.w, tt.h)
			path := filepath.Join(t.TempDir(), "img.raw")
			if err := WriteFile(path, want); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}

			got, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			gray, ok := got.(*image.Gray16)
			if !ok {
				t.Fatalf("ReadFile() returned %T, want *image.Gray16", got)
			}
			if gray.Bounds() != want.Bounds() {
				t.Fatalf("bounds = %v, want %v", gray.Bounds(), want.Bounds())
			}
			if !bytes.Equal(gray.Pix, want.Pix) {
				t.Errorf("pixels differ after round trip")
			}
		})
	}
}

func TestEncodeLayout(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 2, 1))
	img.Pix = []byte{0x01, 0x02, 0xAB, 0xCD}

	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	want := []byte{
		2, 0, 0, 0, // width
		1, 0, 0, 0, // height
		0x02, 0x01, // little-endian samples
		0xCD, 0xAB,
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("Encode() = % x, want % x", buf.Bytes(), want)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrShortHeader},
		{"short header", []byte{1, 0, 0}, ErrShortHeader},
		{"zero width", []byte{0, 0, 0, 0, 1, 0, 0, 0}, ErrEmptyImage},
		{"truncated samples", []byte{2, 0, 0, 0, 2, 0, 0, 0, 1, 2, 3}, ErrSizeMismatch},
		{"trailing data", []byte{1, 0, 0, 0, 1, 0, 0, 0, 1, 2, 3}, ErrSizeMismatch},
		{"huge", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, ErrTooLarge},
		{"product overflows int64", []byte{0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x80}, ErrTooLarge},
		{"just over the cap", []byte{0x00, 0x00, 0x02, 0x00, 0x01, 0x08, 0x00, 0x00}, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadFileChecksSizeBeforeAllocating(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		// 16384x16384 samples would need 512 MiB; the file holds only the header.
		{"header only", []byte{0x00, 0x40, 0x00, 0x00, 0x00, 0x40, 0x00, 0x00}, ErrSizeMismatch},
		{"one sample short", []byte{2, 0, 0, 0, 1, 0, 0, 0, 1, 2}, ErrSizeMismatch},
		{"one byte extra", []byte{1, 0, 0, 0, 1, 0, 0, 0, 1, 2, 3}, ErrSizeMismatch},
		{"overflowing header", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, ErrTooLarge},
		{"empty file", nil, ErrShortHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "frame.raw")
			if err := os.WriteFile(path, tt.data, 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := ReadFile(path); !errors.Is(err, tt.want) {
				t.Errorf("ReadFile() error = %v, want %v", err, tt.want)
			}
		})
	}
}
