package shadertoy

import (
	"fmt"

	"github.com/bodgit/img2shadertoy/dct"
)

// Mode selects the encoding applied to the pixel stream. Each mode is
// dispatched once at the top of the pipeline.
type Mode int

const (
	// Raw embeds the pixels as packed words with no compression.
	Raw Mode = iota

	// RLE run-length encodes the pixel stream.
	RLE

	// DCT encodes 8 by 8 blocks with a quantized block transform;
	// 8 bits per pixel only, output is grayscale.
	DCT

	// DCTRLE additionally run-length encodes the zig-zag ordered
	// transform coefficients.
	DCTRLE
)

func (m Mode) String() string {
	switch m {
	case Raw:
		return "raw"
	case RLE:
		return "rle"
	case DCT:
		return "dct"
	case DCTRLE:
		return "dct+rle"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Fallback controls what happens when run-length encoding does not pay
// off: highly irregular data can make the run stream larger than the
// uncompressed form.
type Fallback int

const (
	// FallbackSmaller compares payload sizes and emits the uncompressed
	// form when the run stream is not smaller. RLE falls back to Raw,
	// DCTRLE to DCT.
	FallbackSmaller Fallback = iota

	// FallbackNever always emits the requested encoding.
	FallbackNever
)

const defaultCountBits = 8

// Options tune the encoders. The zero value selects the standard JPEG
// luminance quantization table, 8 count bits (runs cap at 256) and size
// comparison fallback.
type Options struct {
	// QuantTable overrides the quantization table for the DCT modes,
	// row-major. Every entry must be positive.
	QuantTable *[dct.BlockLen]int32

	// RLECountBits is the width of the run count field, 1 to 16. A run
	// covers at most 2^RLECountBits symbols.
	RLECountBits int

	Fallback Fallback
}

func (o *Options) quantTable() *[dct.BlockLen]int32 {
	if o == nil || o.QuantTable == nil {
		return &dct.DefaultQuantTable
	}
	return o.QuantTable
}

func (o *Options) countBits() int {
	if o == nil || o.RLECountBits == 0 {
		return defaultCountBits
	}
	return o.RLECountBits
}

func (o *Options) fallback() Fallback {
	if o == nil {
		return FallbackSmaller
	}
	return o.Fallback
}

func (o *Options) validate() error {
	if bits := o.countBits(); bits < 1 || bits > 16 {
		return fmt.Errorf("shadertoy: run count field width %d out of range", bits)
	}
	for i, q := range o.quantTable() {
		if q < 1 {
			return fmt.Errorf("shadertoy: quantization table entry %d is %d, must be positive", i, q)
		}
	}
	return nil
}
