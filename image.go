package shadertoy

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/bodgit/img2shadertoy/bmp"
	"github.com/ericpauley/go-quantize/quantize"
)

// Image is an indexed raster image ready for encoding: row-major
// top-to-bottom palette indices with a palette of exactly 2^BitDepth
// entries.
type Image struct {
	Width    int
	Height   int
	BitDepth int
	Palette  color.Palette
	Pixels   []uint8
}

// FromBitmap wraps a decoded bitmap container as an Image.
func FromBitmap(b *bmp.Bitmap) *Image {
	return &Image{
		Width:    b.Width,
		Height:   b.Height,
		BitDepth: b.BitsPerPixel,
		Palette:  b.Palette,
		Pixels:   b.Indices,
	}
}

// FromImage converts any image to an indexed Image at the given bit
// depth, quantizing the palette down with median cut when the source has
// more than 2^depth colors.
func FromImage(m image.Image, depth int) (*Image, error) {
	switch depth {
	case 1, 4, 8:
	default:
		return nil, fmt.Errorf("%w: %d bits per pixel", ErrUnsupportedBitDepth, depth)
	}
	max := 1 << uint(depth)

	b := m.Bounds()

	pm, _ := m.(*image.Paletted)
	if pm == nil || len(pm.Palette) > max {
		q := quantize.MedianCutQuantizer{}
		pm = image.NewPaletted(b, q.Quantize(make(color.Palette, 0, max), m))
		draw.Draw(pm, b, m, b.Min, draw.Src)
	}

	img := &Image{
		Width:    b.Dx(),
		Height:   b.Dy(),
		BitDepth: depth,
		Palette:  padPalette(pm.Palette, max),
		Pixels:   make([]uint8, b.Dx()*b.Dy()),
	}

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			img.Pixels[y*img.Width+x] = pm.ColorIndexAt(b.Min.X+x, b.Min.Y+y)
		}
	}

	return img, nil
}

func padPalette(p color.Palette, size int) color.Palette {
	out := make(color.Palette, size)
	for i := range out {
		if i < len(p) {
			out[i] = p[i]
		} else {
			out[i] = color.RGBA{A: 0xff}
		}
	}
	return out
}

// grayLevels maps each palette entry to its grayscale sample, the mean of
// the 8-bit red, green and blue components.
func (img *Image) grayLevels() []float64 {
	levels := make([]float64, len(img.Palette))
	for i, c := range img.Palette {
		r, g, b, _ := c.RGBA()
		levels[i] = float64(r>>8+g>>8+b>>8) / 3.0
	}
	return levels
}
