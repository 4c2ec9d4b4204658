/*
Package glsl emits self-contained Shadertoy scripts that reconstruct an
image from embedded constant int arrays, without texture sampling.

Payload packing conventions, which the emitted decode procedures mirror
exactly:

Raw bitmaps pack pixels least-significant-bit first into 32-bit words, so
a word holds 32, 8 or 4 pixels for bit depths 1, 4 and 8; each image row
occupies width*depth/32 consecutive words and rows are stored top to
bottom. Run-length data packs one run per word with count-1 in the low
CountBits bits and the symbol in the bits above, runs in stream order.
DCT data packs two little-end-first 16-bit two's complement coefficients
per word, coefficients in zig-zag order, blocks in row-major block order;
run-length coded coefficients are biased by 0x8000 before packing so all
symbols are non-negative. Palette entries are emitted as 0x00BBGGRR with
red in the low byte.

Shadertoy's fragment coordinates grow bottom-up while the payload stores
rows top to bottom, so the emitted decode logic flips the y coordinate
when indexing the arrays.
*/
package glsl

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/bodgit/img2shadertoy/dct"
	"github.com/bodgit/img2shadertoy/rle"
)

// Kind selects the decode logic emitted for a payload.
type Kind int

const (
	Raw Kind = iota
	RLE
	DCT
	DCTRLE
)

// CoeffBias is added to quantized coefficients before run-length packing
// in DCTRLE payloads so every symbol is non-negative; the emitted decode
// logic subtracts it again.
const CoeffBias = 0x8000

// Payload is everything Generate needs to produce a script: the encoded
// values plus the metadata the decode logic is parameterized on. Exactly
// the fields relevant to Kind must be populated.
type Payload struct {
	Kind     Kind
	Width    int
	Height   int
	BitDepth int

	// Palette is required for Raw and RLE payloads and ignored for the
	// grayscale DCT kinds.
	Palette color.Palette

	// Bitmap holds the packed raw pixel words (Raw).
	Bitmap []uint32

	// Runs holds the packed run words (RLE, DCTRLE).
	Runs      []uint32
	CountBits uint

	// Coeffs holds quantized coefficients in zig-zag order (DCT); for
	// DCTRLE the coefficients travel inside Runs instead.
	Coeffs []int16

	// Quant is the quantization table embedded into the decode logic
	// (DCT, DCTRLE).
	Quant *[dct.BlockLen]int32
}

// PackBitmap packs a row-major symbol stream into raw bitmap words.
func PackBitmap(symbols []uint8, depth int) []uint32 {
	perWord := 32 / depth
	words := make([]uint32, (len(symbols)+perWord-1)/perWord)
	for i, s := range symbols {
		words[i/perWord] |= uint32(s) << (uint(i%perWord) * uint(depth))
	}
	return words
}

// PackRuns packs runs one per word, count-1 in the low countBits bits and
// symbol+bias above.
func PackRuns(runs []rle.Run, countBits uint, bias int) []uint32 {
	words := make([]uint32, len(runs))
	for i, r := range runs {
		words[i] = uint32(r.Symbol+bias)<<countBits | uint32(r.Count-1)
	}
	return words
}

// PackCoeffs packs two 16-bit two's complement coefficients per word, low
// half first.
func PackCoeffs(coeffs []int16) []uint32 {
	words := make([]uint32, (len(coeffs)+1)/2)
	for i, c := range coeffs {
		words[i/2] |= uint32(uint16(c)) << (uint(i%2) * 16)
	}
	return words
}

type emitter struct {
	w   io.Writer
	err error
}

func (e *emitter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

// words emits a constant int array, values as hex literals, n per line.
func (e *emitter) words(name string, vals []uint32, n int) {
	e.printf("const int[] %s = int[] (\n", name)
	for i, v := range vals {
		sep := ", "
		switch {
		case i == len(vals)-1:
			sep = "\n"
		case i%n == n-1:
			sep = ",\n"
		}
		e.printf("0x%08x%s", v, sep)
	}
	e.printf(");\n")
}

// ints emits a constant int array of decimal literals, n per line.
func (e *emitter) ints(name string, vals []int32, n int) {
	e.printf("const int[] %s = int[] (\n", name)
	for i, v := range vals {
		sep := ", "
		switch {
		case i == len(vals)-1:
			sep = "\n"
		case i%n == n-1:
			sep = ",\n"
		}
		e.printf("%d%s", v, sep)
	}
	e.printf(");\n")
}

func (e *emitter) header(p *Payload) {
	e.printf("// Generated by img2shadertoy (github.com/bodgit/img2shadertoy)\n")
	e.printf("const vec2 bitmap_size = vec2(%d, %d);\n", p.Width, p.Height)
}

func (e *emitter) palette(p color.Palette) {
	e.printf("const int[] palette = int[] (\n")
	for i, c := range p {
		r, g, b, _ := c.RGBA()
		v := uint32(b>>8)<<16 | uint32(g>>8)<<8 | uint32(r>>8)
		sep := ",\n"
		if i == len(p)-1 {
			sep = "\n"
		}
		e.printf("0x%08x%s", v, sep)
	}
	e.printf(");\n")
}

func (e *emitter) bitmap(p *Payload) {
	perLine := p.Width * p.BitDepth / 32

	e.printf("const int longs_per_line = %d;\n", perLine)
	e.words("bitmap", p.Bitmap, perLine)

	var idxShift uint
	var idxMask, valMask uint32
	var subShift string
	switch p.BitDepth {
	case 1:
		idxShift, idxMask, valMask, subShift = 5, 0x1f, 0x01, "pixel_index"
	case 4:
		idxShift, idxMask, valMask, subShift = 3, 0x07, 0x0f, "pixel_index << 2"
	default:
		idxShift, idxMask, valMask, subShift = 2, 0x03, 0xff, "pixel_index << 3"
	}

	e.printf(`
int getPaletteIndexXY(in ivec2 fetch_pos)
{
    int palette_index = 0;
    if(fetch_pos.x >= 0 && fetch_pos.y >= 0
        && fetch_pos.x < int(bitmap_size.x) && fetch_pos.y < int(bitmap_size.y))
    {
        int line_index = (int(bitmap_size.y) - 1 - fetch_pos.y) * longs_per_line;

        int long_index = line_index + (fetch_pos.x >> %d);
        int bitmap_long = bitmap[long_index];

        int pixel_index = fetch_pos.x & 0x%02x;
        palette_index = (bitmap_long >> (%s)) & 0x%02x;
    }
    return palette_index;
}
`, idxShift, idxMask, subShift, valMask)
}

func (e *emitter) runArray(p *Payload) {
	e.printf("const int rle_count_bits = %d;\n", p.CountBits)
	e.printf("const int rle_count_mask = 0x%x;\n", uint32(1)<<p.CountBits-1)
	e.words("rle", p.Runs, 8)
}

// runScan emits the linear scan shared by both run-length kinds: walk the
// runs accumulating counts until the run covering symbol_index is found.
// retExpr recovers the symbol from the run word; it must mask the shifted
// value whenever the symbol can occupy the word's sign bit, because the
// GLSL shift is arithmetic.
func (e *emitter) runScan(name, retExpr string) {
	e.printf(`
int %s(in int symbol_index)
{
    int base_index = 0;
    for(int i = 0; i < rle.length(); ++i)
    {
        int run = rle[i];
        int count = (run & rle_count_mask) + 1;
        if(symbol_index < base_index + count)
        {
            return %s;
        }
        base_index += count;
    }
    return 0;
}
`, name, retExpr)
}

func (e *emitter) runBitmap(p *Payload) {
	e.runArray(p)
	e.runScan("get_symbol", "run >> rle_count_bits")
	e.printf(`
int getPaletteIndexXY(in ivec2 fetch_pos)
{
    int palette_index = 0;
    if(fetch_pos.x >= 0 && fetch_pos.y >= 0
        && fetch_pos.x < int(bitmap_size.x) && fetch_pos.y < int(bitmap_size.y))
    {
        int row = int(bitmap_size.y) - 1 - fetch_pos.y;
        palette_index = get_symbol(row * int(bitmap_size.x) + fetch_pos.x);
    }
    return palette_index;
}
`)
}

// footer emits the palette lookup chain shared by the indexed kinds.
func (e *emitter) footer() {
	e.printf(`
int getPaletteIndex(in vec2 uv)
{
    int palette_index = 0;
    ivec2 fetch_pos = ivec2(uv * bitmap_size);
    palette_index = getPaletteIndexXY(fetch_pos);
    return palette_index;
}

vec4 getColorFromPalette(in int palette_index)
{
    int int_color = palette[palette_index];
    return vec4(float(int_color & 0xff) / 255.0,
                float((int_color >> 8) & 0xff) / 255.0,
                float((int_color >> 16) & 0xff) / 255.0,
                0);
}

vec4 getBitmapColor(in vec2 uv)
{
    return getColorFromPalette(getPaletteIndex(uv));
}

void mainImage(out vec4 fragColor, in vec2 fragCoord)
{
    vec2 uv = fragCoord / bitmap_size;
    fragColor = getBitmapColor(uv);
}
`)
}

func (e *emitter) transform(p *Payload) {
	e.printf("#define PI 3.141592653589793\n\n")
	e.printf("const int dct_cols = %d;\n", p.Width/dct.BlockSize)
	e.printf("const int dct_rows = %d;\n", p.Height/dct.BlockSize)

	quant := make([]int32, dct.BlockLen)
	copy(quant, p.Quant[:])
	e.ints("quant_mtx", quant, dct.BlockSize)

	// Row-major coefficient position to zig-zag scan position, so the
	// decode logic can locate a frequency inside a block's scan-ordered
	// coefficients.
	scan := make([]int32, dct.BlockLen)
	for i, s := range dct.ScanIndex {
		scan[i] = int32(s)
	}
	e.ints("zigzag_index", scan, dct.BlockSize)

	if p.Kind == DCT {
		e.words("dct", PackCoeffs(p.Coeffs), dct.BlockLen/2)
		e.printf(`
int get_coeff(in int coeff_index)
{
    int word = dct[coeff_index >> 1];
    int val = (word >> ((coeff_index & 1) << 4)) & 0xffff;
    return (val > 0x7fff) ? val - 0x10000 : val;
}
`)
	} else {
		e.runArray(p)
		// Biased coefficient symbols span the full 16 bits, so a wide
		// count field can push the symbol into the sign bit; mask after
		// the arithmetic shift before removing the bias.
		e.runScan("get_coeff", fmt.Sprintf("((run >> rle_count_bits) & 0xffff) - 0x%x", CoeffBias))
	}

	e.printf(`
float get_dct_val(in int block_start, in int x, in int y)
{
    int pos = (y << 3) + x;
    int quant_val = get_coeff(block_start + zigzag_index[pos]);
    return float(quant_val) * float(quant_mtx[pos]);
}

float c_factor(in int i)
{
    return (i == 0) ? (1.0 / sqrt(2.0)) : 1.0;
}

float cos_term(in int inner, in int outer)
{
    return cos(PI * float(inner) * (2.0 * float(outer) + 1.0) / 16.0);
}

float get_idct(in int block_start, in int i, in int j)
{
    float r = 0.;
    for(int x = 0; x < 8; ++x)
    {
        for(int y = 0; y < 8; ++y)
        {
            r += c_factor(x) * c_factor(y) * get_dct_val(block_start, x, y) * cos_term(x, i) * cos_term(y, j);
        }
    }
    return r * 0.25;
}

vec4 getBitmapColor(in vec2 uv)
{
    vec4 col = vec4(0);
    ivec2 fetch_pos = ivec2(uv * bitmap_size);
    if(fetch_pos.x >= 0 && fetch_pos.y >= 0
        && fetch_pos.x < int(bitmap_size.x) && fetch_pos.y < int(bitmap_size.y))
    {
        int row = int(bitmap_size.y) - 1 - fetch_pos.y;
        int block_start = ((row >> 3) * dct_cols + (fetch_pos.x >> 3)) << 6;

        float idct = get_idct(block_start, fetch_pos.x & 0x07, row & 0x07);
        col = vec4(clamp(idct, 0.0, 255.0) / 255.0);
    }
    return col;
}

void mainImage(out vec4 fragColor, in vec2 fragCoord)
{
    vec2 uv = fragCoord / bitmap_size;
    fragColor = getBitmapColor(uv);
}
`)
}

func (p *Payload) check() error {
	switch p.Kind {
	case Raw:
		if p.Bitmap == nil || p.Palette == nil {
			return errors.New("glsl: raw payload needs bitmap words and a palette")
		}
	case RLE:
		if p.Runs == nil || p.Palette == nil {
			return errors.New("glsl: rle payload needs run words and a palette")
		}
	case DCT:
		if p.Coeffs == nil || p.Quant == nil {
			return errors.New("glsl: dct payload needs coefficients and a quantization table")
		}
	case DCTRLE:
		if p.Runs == nil || p.Quant == nil {
			return errors.New("glsl: dct+rle payload needs run words and a quantization table")
		}
	default:
		return fmt.Errorf("glsl: unknown payload kind %d", p.Kind)
	}
	return nil
}

// Generate writes the complete script for p to w. It is a pure function
// of the payload; on error nothing useful has been written and the caller
// should discard the output.
func Generate(w io.Writer, p *Payload) error {
	if err := p.check(); err != nil {
		return err
	}

	e := &emitter{w: w}
	e.header(p)

	switch p.Kind {
	case Raw:
		e.palette(p.Palette)
		e.bitmap(p)
		e.footer()
	case RLE:
		e.palette(p.Palette)
		e.runBitmap(p)
		e.footer()
	default:
		e.transform(p)
	}

	return e.err
}
