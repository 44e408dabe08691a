// Package tiffimagetest builds small uncompressed TIFF files for tests.
package tiffimagetest

import (
	"bytes"
	"encoding/binary"
)

// Page describes one 2x2 single-channel strip.
type Page struct {
	Photometric   uint16
	BitsPerSample uint16
	// SampleFormat is written only when non-zero.
	SampleFormat uint16
	Fill         byte
}

// GrayPage is an 8-bit BlackIsZero page filled with v.
func GrayPage(v byte) Page {
	return Page{Photometric: 1, BitsPerSample: 8, Fill: v}
}

type entry struct {
	tag, typ uint16
	value    uint32
}

// Stack returns a little-endian TIFF holding pages in order. Each IFD is
// followed by its pixel data and linked to the next one.
func Stack(pages ...Page) []byte {
	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, binary.LittleEndian, uint16(42))
	binary.Write(&buf, binary.LittleEndian, uint32(8))

	for i, p := range pages {
		data := bytes.Repeat([]byte{p.Fill}, 4*int(p.BitsPerSample)/8)

		entries := []entry{
			{256, 3, 2},
			{257, 3, 2},
			{258, 3, uint32(p.BitsPerSample)},
			{259, 3, 1},
			{262, 3, uint32(p.Photometric)},
			{273, 4, 0},
			{277, 3, 1},
			{278, 3, 2},
			{279, 4, uint32(len(data))},
		}
		if p.SampleFormat != 0 {
			entries = append(entries, entry{339, 3, uint32(p.SampleFormat)})
		}

		ifdStart := buf.Len()
		dataStart := ifdStart + 2 + 12*len(entries) + 4
		entries[5].value = uint32(dataStart)
		next := uint32(0)
		if i < len(pages)-1 {
			next = uint32(dataStart + len(data) + len(data)%2)
		}

		binary.Write(&buf, binary.LittleEndian, uint16(len(entries)))
		for _, e := range entries {
			binary.Write(&buf, binary.LittleEndian, e.tag)
			binary.Write(&buf, binary.LittleEndian, e.typ)
			binary.Write(&buf, binary.LittleEndian, uint32(1))
			if e.typ == 3 {
				binary.Write(&buf, binary.LittleEndian, uint16(e.value))
				binary.Write(&buf, binary.LittleEndian, uint16(0))
			} else {
				binary.Write(&buf, binary.LittleEndian, e.value)
			}
		}
		binary.Write(&buf, binary.LittleEndian, next)
		buf.Write(data)
		if len(data)%2 == 1 {
			buf.WriteByte(0)
		}
	}
	return buf.Bytes()
}
