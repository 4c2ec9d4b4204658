package glsl

import (
	"bytes"
	"image/color"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/bodgit/img2shadertoy/dct"
	"github.com/bodgit/img2shadertoy/rle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var literal = regexp.MustCompile(`0x[0-9a-fA-F]+|\d+`)

// parseArray extracts a named constant int array from the script text.
func parseArray(t *testing.T, script, name string) []uint32 {
	t.Helper()

	re := regexp.MustCompile(`(?s)const int\[\] ` + name + ` = int\[\] \((.*?)\);`)
	m := re.FindStringSubmatch(script)
	require.NotNil(t, m, "array %s not found", name)

	var vals []uint32
	for _, s := range literal.FindAllString(m[1], -1) {
		v, err := strconv.ParseUint(s, 0, 32)
		require.NoError(t, err)
		vals = append(vals, uint32(v))
	}
	return vals
}

func generate(t *testing.T, p *Payload) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, p))
	return buf.String()
}

func grayPalette(n int) color.Palette {
	p := make(color.Palette, n)
	for i := range p {
		v := uint8(i * 255 / (n - 1))
		p[i] = color.RGBA{v, v, v, 0xff}
	}
	return p
}

// rawIndexAt mirrors the emitted getPaletteIndexXY for raw bitmaps;
// fy counts bottom-up, as Shadertoy fragment coordinates do.
func rawIndexAt(words []uint32, width, height, depth, fx, fy int) int {
	perLine := width * depth / 32
	perWord := 32 / depth

	row := height - 1 - fy
	word := words[row*perLine+fx/perWord]
	return int(word >> (uint(fx%perWord) * uint(depth)) & (1<<uint(depth) - 1))
}

// runSymbolAt mirrors the emitted pixel run scan, including GLSL's 32-bit
// signed int arithmetic: the shift recovering the symbol is arithmetic.
func runSymbolAt(t *testing.T, words []uint32, countBits uint, index int) int {
	base := 0
	for _, w := range words {
		run := int32(w)
		count := int(run&(1<<countBits-1)) + 1
		if index < base+count {
			return int(run >> countBits)
		}
		base += count
	}
	t.Fatalf("symbol index %d beyond run stream", index)
	return 0
}

// coeffAt mirrors the emitted coefficient run scan: arithmetic shift,
// mask, then bias removal.
func coeffAt(t *testing.T, words []uint32, countBits uint, index int) int {
	base := 0
	for _, w := range words {
		run := int32(w)
		count := int(run&(1<<countBits-1)) + 1
		if index < base+count {
			return int(run>>countBits&0xffff) - CoeffBias
		}
		base += count
	}
	t.Fatalf("coefficient index %d beyond run stream", index)
	return 0
}

func TestGenerateRaw(t *testing.T) {
	const width, height = 32, 8

	for _, depth := range []int{1, 4, 8} {
		symbols := make([]uint8, width*height)
		for i := range symbols {
			symbols[i] = uint8(i % (1 << uint(depth)))
		}

		p := &Payload{
			Kind:     Raw,
			Width:    width,
			Height:   height,
			BitDepth: depth,
			Palette:  grayPalette(1 << uint(depth)),
			Bitmap:   PackBitmap(symbols, depth),
		}
		script := generate(t, p)

		words := parseArray(t, script, "bitmap")
		require.Len(t, words, width*height*depth/32)

		for fy := 0; fy < height; fy++ {
			for fx := 0; fx < width; fx++ {
				want := int(symbols[(height-1-fy)*width+fx])
				assert.Equal(t, want, rawIndexAt(words, width, height, depth, fx, fy))
			}
		}
	}
}

func TestGenerateRLE(t *testing.T) {
	const width, height, depth = 32, 8, 4

	symbols := make([]uint8, width*height)
	for i := range symbols {
		symbols[i] = uint8(i / 37 % 16)
	}

	stream := make([]int, len(symbols))
	for i, s := range symbols {
		stream[i] = int(s)
	}
	runs, err := rle.Encode(stream, 16, 256)
	require.NoError(t, err)

	p := &Payload{
		Kind:      RLE,
		Width:     width,
		Height:    height,
		BitDepth:  depth,
		Palette:   grayPalette(16),
		Runs:      PackRuns(runs, 8, 0),
		CountBits: 8,
	}
	script := generate(t, p)

	words := parseArray(t, script, "rle")
	require.Len(t, words, len(runs))

	for fy := 0; fy < height; fy++ {
		for fx := 0; fx < width; fx++ {
			want := int(symbols[(height-1-fy)*width+fx])
			got := runSymbolAt(t, words, 8, (height-1-fy)*width+fx)
			assert.Equal(t, want, got)
		}
	}
}

func TestGeneratePalette(t *testing.T) {
	p := &Payload{
		Kind:     Raw,
		Width:    32,
		Height:   8,
		BitDepth: 1,
		Palette:  color.Palette{color.RGBA{0x12, 0x34, 0x56, 0xff}, color.RGBA{0xff, 0x00, 0x00, 0xff}},
		Bitmap:   make([]uint32, 8),
	}
	script := generate(t, p)

	// Red lives in the low byte.
	assert.Equal(t, []uint32{0x00563412, 0x000000ff}, parseArray(t, script, "palette"))
}

// unpackCoeffs inverts PackCoeffs.
func unpackCoeffs(words []uint32, n int) []int16 {
	coeffs := make([]int16, n)
	for i := range coeffs {
		coeffs[i] = int16(words[i/2] >> (uint(i%2) * 16))
	}
	return coeffs
}

// reconstruct mirrors the emitted inverse transform chain for one block:
// de-zig-zag, dequantize, inverse DCT, clamp.
func reconstruct(coeffs []int16, quant *[dct.BlockLen]int32) [dct.BlockLen]float64 {
	var z [dct.BlockLen]int16
	copy(z[:], coeffs)

	q := dct.Unscan(&z)
	d := dct.Dequantize(&q, quant)
	out := dct.Inverse(&d)
	for i, v := range out {
		if v < 0 {
			out[i] = 0
		} else if v > 255 {
			out[i] = 255
		}
	}
	return out
}

func flatCoeffs(blocks int) []int16 {
	// A flat block of value 128 quantized with the default table: DC
	// 1024/16, AC all zero.
	coeffs := make([]int16, blocks*dct.BlockLen)
	for b := 0; b < blocks; b++ {
		coeffs[b*dct.BlockLen] = 64
	}
	return coeffs
}

func TestGenerateDCT(t *testing.T) {
	const width, height = 32, 8
	const blocks = width / 8 * height / 8

	p := &Payload{
		Kind:     DCT,
		Width:    width,
		Height:   height,
		BitDepth: 8,
		Coeffs:   flatCoeffs(blocks),
		Quant:    &dct.DefaultQuantTable,
	}
	script := generate(t, p)

	quant := parseArray(t, script, "quant_mtx")
	require.Len(t, quant, dct.BlockLen)
	for i, q := range dct.DefaultQuantTable {
		assert.Equal(t, uint32(q), quant[i])
	}

	scan := parseArray(t, script, "zigzag_index")
	require.Len(t, scan, dct.BlockLen)
	for i, s := range dct.ScanIndex {
		assert.Equal(t, uint32(s), scan[i])
	}

	words := parseArray(t, script, "dct")
	coeffs := unpackCoeffs(words, blocks*dct.BlockLen)
	assert.Equal(t, p.Coeffs, coeffs)

	for b := 0; b < blocks; b++ {
		out := reconstruct(coeffs[b*dct.BlockLen:(b+1)*dct.BlockLen], p.Quant)
		for _, v := range out {
			assert.InDelta(t, 128.0, v, 1e-9)
		}
	}
}

func TestGenerateDCTSignedCoeffs(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))

	coeffs := make([]int16, dct.BlockLen)
	for i := range coeffs {
		coeffs[i] = int16(rnd.Intn(4001) - 2000)
	}

	p := &Payload{
		Kind:     DCT,
		Width:    32,
		Height:   8,
		BitDepth: 8,
		Coeffs:   append(flatCoeffs(3), coeffs...),
		Quant:    &dct.DefaultQuantTable,
	}
	script := generate(t, p)

	words := parseArray(t, script, "dct")
	got := unpackCoeffs(words, 4*dct.BlockLen)

	// Negative coefficients survive the 16-bit two's complement packing.
	assert.Equal(t, coeffs, got[3*dct.BlockLen:])
}

func TestGenerateDCTRLE(t *testing.T) {
	const width, height = 32, 8
	const blocks = width / 8 * height / 8

	coeffs := flatCoeffs(blocks)

	stream := make([]int, len(coeffs))
	for i, c := range coeffs {
		stream[i] = int(c) + CoeffBias
	}
	runs, err := rle.Encode(stream, 2*CoeffBias, 256)
	require.NoError(t, err)

	p := &Payload{
		Kind:      DCTRLE,
		Width:     width,
		Height:    height,
		BitDepth:  8,
		Runs:      PackRuns(runs, 8, 0),
		CountBits: 8,
		Quant:     &dct.DefaultQuantTable,
	}
	script := generate(t, p)

	words := parseArray(t, script, "rle")
	require.Len(t, words, len(runs))

	for i, want := range coeffs {
		got := coeffAt(t, words, 8, i)
		require.Equal(t, int(want), got, "coefficient %d", i)
	}

	assert.Contains(t, script, "int get_coeff(in int symbol_index)")
	assert.Contains(t, script, "((run >> rle_count_bits) & 0xffff) - 0x8000")
}

func TestPackRunsCountWidths(t *testing.T) {
	pixels := []rle.Run{
		{Symbol: 0, Count: 1},
		{Symbol: 255, Count: 2},
		{Symbol: 1, Count: 1},
		{Symbol: 128, Count: 1},
	}
	coeffs := []rle.Run{
		{Symbol: 0 + CoeffBias, Count: 1},
		{Symbol: 5 + CoeffBias, Count: 2},
		{Symbol: -3 + CoeffBias, Count: 1},
		{Symbol: 0 + CoeffBias, Count: 1},
	}

	for _, countBits := range []uint{1, 8, 15, 16} {
		words := PackRuns(pixels, countBits, 0)
		index := 0
		for _, r := range pixels {
			for j := 0; j < r.Count; j++ {
				got := runSymbolAt(t, words, countBits, index)
				require.Equal(t, r.Symbol, got, "count bits %d, pixel index %d", countBits, index)
				index++
			}
		}

		// Biased coefficient symbols reach the packed word's sign bit at
		// the widest count field; the masked decode must still recover
		// small non-negative coefficients.
		words = PackRuns(coeffs, countBits, 0)
		index = 0
		for _, r := range coeffs {
			for j := 0; j < r.Count; j++ {
				got := coeffAt(t, words, countBits, index)
				require.Equal(t, r.Symbol-CoeffBias, got, "count bits %d, coefficient index %d", countBits, index)
				index++
			}
		}
	}
}

func TestGenerateIncompletePayload(t *testing.T) {
	for _, p := range []*Payload{
		{Kind: Raw, Palette: grayPalette(2)},
		{Kind: RLE, Runs: []uint32{0}},
		{Kind: DCT, Coeffs: []int16{0}},
		{Kind: DCTRLE, Quant: &dct.DefaultQuantTable},
		{Kind: Kind(42)},
	} {
		var buf bytes.Buffer
		assert.Error(t, Generate(&buf, p))
	}
}

func TestGenerateSelfContained(t *testing.T) {
	p := &Payload{
		Kind:     Raw,
		Width:    32,
		Height:   8,
		BitDepth: 1,
		Palette:  grayPalette(2),
		Bitmap:   make([]uint32, 8),
	}
	script := generate(t, p)

	// The decode logic references only emitted constants and the
	// fragment coordinate.
	assert.False(t, strings.Contains(script, "texture"))
	assert.False(t, strings.Contains(script, "iChannel"))
	assert.Contains(t, script, "void mainImage(out vec4 fragColor, in vec2 fragCoord)")
}
