/*
Package bmp implements a Windows bitmap source adapter for indexed images.

Only the classic 40 byte BITMAPINFOHEADER variant is accepted; the older
and newer mutually-incompatible header sizes are rejected so that nothing
downstream ever branches on header version. Supported bit depths are 1, 4
and 8 with an uncompressed palette-indexed pixel array.

Decode normalizes the container's quirks away: bottom-up row storage is
flipped to top-to-bottom, the 4 byte row padding is stripped, and packed
pixels are unpacked to one palette index per byte.
*/
package bmp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"io"
	"io/ioutil"
)

// ErrFormat reports a malformed or unsupported bitmap container.
var ErrFormat = errors.New("bmp: unsupported or malformed bitmap")

const (
	fileHeaderLen = 14
	infoHeaderLen = 40
)

// Bitmap is the decoded container: dimensions, palette and row-major
// top-to-bottom pixel indices, one index per byte regardless of the
// stored bit depth.
type Bitmap struct {
	Width        int
	Height       int
	BitsPerPixel int
	Palette      color.Palette
	Indices      []uint8
}

type decoder struct {
	data []byte
}

func (d *decoder) u16(off int) uint32 {
	return uint32(binary.LittleEndian.Uint16(d.data[off:]))
}

func (d *decoder) u32(off int) uint32 {
	return binary.LittleEndian.Uint32(d.data[off:])
}

func (d *decoder) header() (offset, bpp, paletteLen int, width, height int32, err error) {
	if len(d.data) < fileHeaderLen+infoHeaderLen {
		return 0, 0, 0, 0, 0, fmt.Errorf("%w: truncated header", ErrFormat)
	}

	if d.data[0] != 'B' || d.data[1] != 'M' {
		return 0, 0, 0, 0, 0, fmt.Errorf("%w: missing BM signature", ErrFormat)
	}

	if int(d.u32(2)) != len(d.data) {
		return 0, 0, 0, 0, 0, fmt.Errorf("%w: header reports incorrect file size", ErrFormat)
	}

	offset = int(d.u32(10))

	if size := d.u32(14); size != infoHeaderLen {
		return 0, 0, 0, 0, 0, fmt.Errorf("%w: DIB header size %d, expected %d (BITMAPINFOHEADER)", ErrFormat, size, infoHeaderLen)
	}

	width = int32(d.u32(18))
	height = int32(d.u32(22))

	if planes := d.u16(26); planes != 1 {
		return 0, 0, 0, 0, 0, fmt.Errorf("%w: %d color planes, expected 1", ErrFormat, planes)
	}

	bpp = int(d.u16(28))

	if compression := d.u32(30); compression != 0 {
		return 0, 0, 0, 0, 0, fmt.Errorf("%w: compression method %d not supported", ErrFormat, compression)
	}

	paletteLen = int(d.u32(46))

	return offset, bpp, paletteLen, width, height, nil
}

func (d *decoder) palette(bpp, paletteLen int) (color.Palette, error) {
	max := 1 << uint(bpp)
	if paletteLen == 0 {
		return nil, fmt.Errorf("%w: missing palette", ErrFormat)
	}
	if paletteLen > max {
		return nil, fmt.Errorf("%w: %d palette entries for %d bits per pixel", ErrFormat, paletteLen, bpp)
	}
	if fileHeaderLen+infoHeaderLen+paletteLen*4 > len(d.data) {
		return nil, fmt.Errorf("%w: truncated palette", ErrFormat)
	}

	// Pad missing entries to 2^bpp so every representable index is a
	// valid palette entry.
	p := make(color.Palette, max)
	for i := 0; i < max; i++ {
		if i < paletteLen {
			// Entries are stored B, G, R, reserved.
			off := fileHeaderLen + infoHeaderLen + i*4
			p[i] = color.RGBA{d.data[off+2], d.data[off+1], d.data[off], 0xff}
		} else {
			p[i] = color.RGBA{A: 0xff}
		}
	}

	return p, nil
}

func unpackRow(dst []uint8, src []byte, width, bpp int) {
	switch bpp {
	case 1:
		for x := 0; x < width; x++ {
			dst[x] = src[x>>3] >> uint(7-x&7) & 0x01
		}
	case 4:
		for x := 0; x < width; x++ {
			dst[x] = src[x>>1] >> uint((1-x&1)<<2) & 0x0f
		}
	default:
		copy(dst, src[:width])
	}
}

func (d *decoder) decode() (*Bitmap, error) {
	offset, bpp, paletteLen, w, h, err := d.header()
	if err != nil {
		return nil, err
	}

	switch bpp {
	case 1, 4, 8:
	default:
		return nil, fmt.Errorf("%w: %d bits per pixel", ErrFormat, bpp)
	}

	// A negative height means the rows are already stored top-down.
	topDown := h < 0
	if topDown {
		h = -h
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: image is %dx%d", ErrFormat, w, h)
	}
	width, height := int(w), int(h)

	palette, err := d.palette(bpp, paletteLen)
	if err != nil {
		return nil, err
	}

	// Rows are padded to 4 byte boundaries.
	rowSize := (bpp*width + 31) / 32 * 4
	if offset < 0 || offset+rowSize*height > len(d.data) {
		return nil, fmt.Errorf("%w: truncated pixel data", ErrFormat)
	}

	b := &Bitmap{
		Width:        width,
		Height:       height,
		BitsPerPixel: bpp,
		Palette:      palette,
		Indices:      make([]uint8, width*height),
	}

	for y := 0; y < height; y++ {
		src := y
		if !topDown {
			src = height - 1 - y
		}
		unpackRow(b.Indices[y*width:(y+1)*width], d.data[offset+src*rowSize:offset+(src+1)*rowSize], width, bpp)
	}

	return b, nil
}

// Decode reads a bitmap container from r and returns the normalized pixel
// and palette data.
func Decode(r io.Reader) (*Bitmap, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}

	d := decoder{data: data}
	return d.decode()
}
