// Package tiffimage wraps golang.org/x/image/tiff with the pieces the sync
// pipeline needs: level-based encoding, decoding and a directory walk that
// tells whether a file survives a decode and re-encode intact.
package tiffimage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
)

// Compression values of TIFF tag 259.
const (
	CompressionNone       uint16 = 1
	CompressionLZW        uint16 = 5
	CompressionDeflate    uint16 = 8
	CompressionPackBits   uint16 = 32773
	CompressionDeflateOld uint16 = 32946
)

// Photometric interpretations of TIFF tag 262.
const (
	PhotometricWhiteIsZero uint16 = 0
	PhotometricBlackIsZero uint16 = 1
	PhotometricRGB         uint16 = 2
	PhotometricPalette     uint16 = 3
)

const (
	tagBitsPerSample = 258
	tagCompression   = 259
	tagPhotometric   = 262
	tagPlanarConfig  = 284
	tagSampleFormat  = 339

	typeShort = 3
	typeLong  = 4

	sampleFormatUint = 1
	planarContig     = 1

	// maxPages bounds the IFD walk on files with a corrupted chain.
	maxPages = 1 << 16
)

var (
	ErrNotTIFF      = errors.New("tiff: not a TIFF file")
	ErrBigTIFF      = errors.New("tiff: BigTIFF is not supported")
	ErrMalformedIFD = errors.New("tiff: malformed image file directory")
)

var taggedExtensions = []string{".tif", ".tiff"}

// IsTaggedImage reports whether name carries a TIFF extension.
func IsTaggedImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range taggedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Options maps a 0-9 compression level onto encoder options.
// Level 0 writes uncompressed strips, any other level writes Deflate.
func Options(level int) *tiff.Options {
	if level <= 0 {
		return &tiff.Options{Compression: tiff.Uncompressed}
	}
	return &tiff.Options{
		Compression: tiff.Deflate,
		Predictor:   level >= 6,
	}
}

// Encode writes img as a single-page TIFF at the given compression level.
func Encode(w io.Writer, img image.Image, level int) error {
	return tiff.Encode(w, img, Options(level))
}

// Decode reads the first page of a TIFF file.
func Decode(r io.Reader) (image.Image, error) {
	return tiff.Decode(r)
}

// Layout describes the first page of a TIFF file and how many pages follow
// it. Tags missing from the file hold their TIFF defaults, except
// Photometric which has none.
type Layout struct {
	Pages         int
	Compression   uint16
	Photometric   uint16
	BitsPerSample uint16
	SampleFormat  uint16
	PlanarConfig  uint16

	hasPhotometric bool
}

// Reencodable reports whether decoding the file with Decode and writing the
// result with Encode keeps every page and every sample value.
func (l Layout) Reencodable() bool {
	if l.Pages != 1 || !l.hasPhotometric {
		return false
	}
	if l.SampleFormat != sampleFormatUint || l.PlanarConfig != planarContig {
		return false
	}
	switch l.Photometric {
	case PhotometricBlackIsZero, PhotometricRGB:
		return l.BitsPerSample == 8 || l.BitsPerSample == 16
	case PhotometricPalette:
		return l.BitsPerSample == 8
	default:
		return false
	}
}

// FirstPageCompression returns the compression tag of the first IFD. A page
// without the tag is uncompressed.
func FirstPageCompression(r io.ReaderAt) (uint16, error) {
	l, err := Inspect(r)
	if err != nil {
		return 0, err
	}
	return l.Compression, nil
}

// Inspect reads the tags of the first IFD and walks the chain of following
// IFDs to count the pages.
func Inspect(r io.ReaderAt) (Layout, error) {
	var header [8]byte
	if _, err := r.ReadAt(header[:], 0); err != nil {
		return Layout{}, fmt.Errorf("%w: %v", ErrNotTIFF, err)
	}

	var order binary.ByteOrder
	switch string(header[0:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return Layout{}, ErrNotTIFF
	}

	switch order.Uint16(header[2:4]) {
	case 42:
	case 43:
		return Layout{}, ErrBigTIFF
	default:
		return Layout{}, ErrNotTIFF
	}

	d := ifdReader{r: r, order: order}
	l := Layout{
		Compression:   CompressionNone,
		BitsPerSample: 1,
		SampleFormat:  sampleFormatUint,
		PlanarConfig:  planarContig,
	}

	seen := make(map[int64]bool)
	for ifd := int64(order.Uint32(header[4:8])); ifd != 0; l.Pages++ {
		if ifd < int64(len(header)) || seen[ifd] || l.Pages == maxPages {
			return Layout{}, fmt.Errorf("%w: bad directory offset %d", ErrMalformedIFD, ifd)
		}
		seen[ifd] = true

		entries, next, err := d.directory(ifd)
		if err != nil {
			return Layout{}, err
		}
		if l.Pages == 0 {
			if err := d.fill(&l, entries); err != nil {
				return Layout{}, err
			}
		}
		ifd = next
	}
	if l.Pages == 0 {
		return Layout{}, fmt.Errorf("%w: no image directory", ErrMalformedIFD)
	}
	return l, nil
}

type ifdReader struct {
	r     io.ReaderAt
	order binary.ByteOrder
}

// directory returns the raw 12-byte entries of the IFD at off and the
// offset of the next IFD.
func (d ifdReader) directory(off int64) ([]byte, int64, error) {
	var countBuf [2]byte
	if _, err := d.r.ReadAt(countBuf[:], off); err != nil {
		return nil, 0, fmt.Errorf("%w: read entry count: %v", ErrMalformedIFD, err)
	}
	count := int(d.order.Uint16(countBuf[:]))

	buf := make([]byte, count*12+4)
	if _, err := d.r.ReadAt(buf, off+2); err != nil {
		return nil, 0, fmt.Errorf("%w: read entries: %v", ErrMalformedIFD, err)
	}
	return buf[:count*12], int64(d.order.Uint32(buf[count*12:])), nil
}

func (d ifdReader) fill(l *Layout, entries []byte) error {
	for i := 0; i+12 <= len(entries); i += 12 {
		entry := entries[i : i+12]
		var dst *uint16
		switch d.order.Uint16(entry[0:2]) {
		case tagBitsPerSample:
			dst = &l.BitsPerSample
		case tagCompression:
			dst = &l.Compression
		case tagPhotometric:
			dst = &l.Photometric
			l.hasPhotometric = true
		case tagPlanarConfig:
			dst = &l.PlanarConfig
		case tagSampleFormat:
			dst = &l.SampleFormat
		default:
			continue
		}
		v, err := d.firstValue(entry)
		if err != nil {
			return err
		}
		*dst = uint16(v)
	}
	return nil
}

// firstValue returns the first element of a SHORT or LONG entry, following
// the value offset when the elements do not fit in the entry.
func (d ifdReader) firstValue(entry []byte) (uint32, error) {
	tag := d.order.Uint16(entry[0:2])
	typ := d.order.Uint16(entry[2:4])
	count := d.order.Uint32(entry[4:8])

	var size uint32
	switch typ {
	case typeShort:
		size = 2
	case typeLong:
		size = 4
	default:
		return 0, fmt.Errorf("%w: tag %d has unexpected type %d", ErrMalformedIFD, tag, typ)
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: tag %d has no values", ErrMalformedIFD, tag)
	}

	value := entry[8:12]
	if uint64(count)*uint64(size) > 4 {
		var buf [4]byte
		if _, err := d.r.ReadAt(buf[:size], int64(d.order.Uint32(entry[8:12]))); err != nil {
			return 0, fmt.Errorf("%w: read tag %d: %v", ErrMalformedIFD, tag, err)
		}
		value = buf[:]
	}
	if typ == typeShort {
		return uint32(d.order.Uint16(value)), nil
	}
	return d.order.Uint32(value), nil
}
