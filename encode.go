package shadertoy

import (
	"bytes"
	"fmt"

	"github.com/bodgit/img2shadertoy/dct"
	"github.com/bodgit/img2shadertoy/glsl"
	"github.com/bodgit/img2shadertoy/rle"
)

// Encode converts img into a Shadertoy script using a silent Encoder. A
// nil opts selects the defaults, see Options.
func Encode(img *Image, mode Mode, opts *Options) (string, error) {
	return New(nil).Encode(img, mode, opts)
}

// Encode converts img into a Shadertoy script. All validation happens
// before any text is produced, so the result is either a complete script
// or an error with nothing emitted.
func (e *Encoder) Encode(img *Image, mode Mode, opts *Options) (string, error) {
	if err := validate(img, mode, opts); err != nil {
		return "", err
	}

	symbols, err := pixelStream(img)
	if err != nil {
		return "", err
	}

	var p *glsl.Payload
	switch mode {
	case Raw:
		p = rawPayload(img, symbols)
	case RLE:
		p, err = e.rlePayload(img, symbols, opts)
	case DCT:
		p = e.dctPayload(img, symbols, opts)
	case DCTRLE:
		p, err = e.dctRLEPayload(img, symbols, opts)
	default:
		return "", fmt.Errorf("shadertoy: unknown mode %d", int(mode))
	}
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := glsl.Generate(&buf, p); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func validate(img *Image, mode Mode, opts *Options) error {
	switch img.BitDepth {
	case 1, 4, 8:
	default:
		return fmt.Errorf("%w: %d bits per pixel", ErrUnsupportedBitDepth, img.BitDepth)
	}

	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: image is %dx%d", ErrInvalidDimension, img.Width, img.Height)
	}
	if img.Width%32 != 0 {
		return fmt.Errorf("%w: width %d is not a multiple of 32", ErrInvalidDimension, img.Width)
	}

	if mode == DCT || mode == DCTRLE {
		if img.BitDepth != 8 {
			return fmt.Errorf("%w: the block transform needs 8 bits per pixel, image has %d", ErrUnsupportedBitDepth, img.BitDepth)
		}
		if img.Height%dct.BlockSize != 0 {
			return fmt.Errorf("%w: height %d is not a multiple of %d", ErrInvalidDimension, img.Height, dct.BlockSize)
		}
	}

	if want := 1 << uint(img.BitDepth); len(img.Palette) != want {
		return fmt.Errorf("shadertoy: palette has %d entries, want %d", len(img.Palette), want)
	}

	return opts.validate()
}

// pixelStream linearizes the pixel grid into the row-major symbol stream,
// checking every index against the bit depth.
func pixelStream(img *Image) ([]uint8, error) {
	if len(img.Pixels) != img.Width*img.Height {
		return nil, fmt.Errorf("shadertoy: %d pixels for a %dx%d image", len(img.Pixels), img.Width, img.Height)
	}

	max := uint8(1<<uint(img.BitDepth) - 1)
	for i, s := range img.Pixels {
		if s > max {
			return nil, fmt.Errorf("shadertoy: pixel %d has index %d, beyond %d bit depth", i, s, img.BitDepth)
		}
	}

	return img.Pixels, nil
}

func rawPayload(img *Image, symbols []uint8) *glsl.Payload {
	return &glsl.Payload{
		Kind:     glsl.Raw,
		Width:    img.Width,
		Height:   img.Height,
		BitDepth: img.BitDepth,
		Palette:  img.Palette,
		Bitmap:   glsl.PackBitmap(symbols, img.BitDepth),
	}
}

func (e *Encoder) rlePayload(img *Image, symbols []uint8, opts *Options) (*glsl.Payload, error) {
	countBits := opts.countBits()

	stream := make([]int, len(symbols))
	for i, s := range symbols {
		stream[i] = int(s)
	}

	runs, err := rle.Encode(stream, 1<<uint(img.BitDepth), 1<<uint(countBits))
	if err != nil {
		return nil, err
	}
	words := glsl.PackRuns(runs, uint(countBits), 0)

	raw := rawPayload(img, symbols)
	if opts.fallback() == FallbackSmaller && len(words) >= len(raw.Bitmap) {
		e.logger.Printf("rle payload of %d words is not smaller than %d raw words, falling back to raw\n", len(words), len(raw.Bitmap))
		return raw, nil
	}

	return &glsl.Payload{
		Kind:      glsl.RLE,
		Width:     img.Width,
		Height:    img.Height,
		BitDepth:  img.BitDepth,
		Palette:   img.Palette,
		Runs:      words,
		CountBits: uint(countBits),
	}, nil
}

// transform runs every 8 by 8 block through the forward transform,
// quantization and zig-zag scan, blocks in row-major order.
func transform(img *Image, symbols []uint8, table *[dct.BlockLen]int32) []int16 {
	cols := img.Width / dct.BlockSize
	rows := img.Height / dct.BlockSize

	gray := img.grayLevels()

	coeffs := make([]int16, 0, cols*rows*dct.BlockLen)
	for br := 0; br < rows; br++ {
		for bc := 0; bc < cols; bc++ {
			var block [dct.BlockLen]float64
			for y := 0; y < dct.BlockSize; y++ {
				for x := 0; x < dct.BlockSize; x++ {
					px := (br*dct.BlockSize+y)*img.Width + bc*dct.BlockSize + x
					block[y*dct.BlockSize+x] = gray[symbols[px]]
				}
			}

			f := dct.Forward(&block)
			q := dct.Quantize(&f, table)
			z := dct.Scan(&q)
			coeffs = append(coeffs, z[:]...)
		}
	}

	return coeffs
}

func (e *Encoder) dctPayload(img *Image, symbols []uint8, opts *Options) *glsl.Payload {
	return &glsl.Payload{
		Kind:     glsl.DCT,
		Width:    img.Width,
		Height:   img.Height,
		BitDepth: img.BitDepth,
		Coeffs:   transform(img, symbols, opts.quantTable()),
		Quant:    opts.quantTable(),
	}
}

func (e *Encoder) dctRLEPayload(img *Image, symbols []uint8, opts *Options) (*glsl.Payload, error) {
	countBits := opts.countBits()

	p := e.dctPayload(img, symbols, opts)

	stream := make([]int, len(p.Coeffs))
	for i, c := range p.Coeffs {
		stream[i] = int(c) + glsl.CoeffBias
	}

	runs, err := rle.Encode(stream, 2*glsl.CoeffBias, 1<<uint(countBits))
	if err != nil {
		return nil, err
	}
	words := glsl.PackRuns(runs, uint(countBits), 0)

	if packed := (len(p.Coeffs) + 1) / 2; opts.fallback() == FallbackSmaller && len(words) >= packed {
		e.logger.Printf("rle payload of %d words is not smaller than %d coefficient words, falling back to dct\n", len(words), packed)
		return p, nil
	}

	return &glsl.Payload{
		Kind:      glsl.DCTRLE,
		Width:     img.Width,
		Height:    img.Height,
		BitDepth:  img.BitDepth,
		Runs:      words,
		CountBits: uint(countBits),
		Quant:     p.Quant,
	}, nil
}
