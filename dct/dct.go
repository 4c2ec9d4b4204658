/*
Package dct implements the 8 by 8 block transform used for lossy image
encoding.

The forward transform of a block of samples f is

	F[v][u] = 2/8 * c(u) * c(v) * sum f[y][x] * cos(pi*u*(2x+1)/16) * cos(pi*v*(2y+1)/16)

with c(0) = 1/sqrt(2) and c(k) = 1 otherwise. The inverse transform uses
the same convention, so the tables below are the single source of truth
for both the encoder and the decode logic emitted into the shader script.

Blocks are stored row-major: samples as f[y*8+x], coefficients as
F[v*8+u]. ZigZag maps a scan position to its row-major coefficient index;
ScanIndex is the inverse permutation.
*/
package dct

import "math"

const (
	// BlockSize is the width and height of a transform block.
	BlockSize = 8

	// BlockLen is the number of samples or coefficients per block.
	BlockLen = BlockSize * BlockSize
)

// ZigZag lists row-major coefficient indices in zig-zag scan order, from
// the DC term to the highest frequency.
var ZigZag = [BlockLen]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// ScanIndex maps a row-major coefficient index to its zig-zag scan
// position.
var ScanIndex [BlockLen]int

// DefaultQuantTable is the standard JPEG luminance quantization matrix,
// row-major.
var DefaultQuantTable = [BlockLen]int32{
	16, 11, 10, 16, 24, 40, 51, 61,
	12, 12, 14, 19, 26, 58, 60, 55,
	14, 13, 16, 24, 40, 57, 69, 56,
	14, 17, 22, 29, 51, 87, 80, 62,
	18, 22, 37, 56, 68, 109, 103, 77,
	24, 35, 55, 64, 81, 104, 113, 92,
	49, 64, 78, 87, 103, 121, 120, 101,
	72, 92, 95, 98, 112, 100, 103, 99,
}

// cosTable[k][n] = cos(pi/8 * k * (n + 0.5))
var cosTable [BlockSize][BlockSize]float64

func init() {
	for s, n := range ZigZag {
		ScanIndex[n] = s
	}
	for k := 0; k < BlockSize; k++ {
		for n := 0; n < BlockSize; n++ {
			cosTable[k][n] = math.Cos(math.Pi / BlockSize * float64(k) * (float64(n) + 0.5))
		}
	}
}

func cFactor(k int) float64 {
	if k == 0 {
		return 1.0 / math.Sqrt2
	}
	return 1.0
}

// Forward computes the 2-D DCT of a row-major sample block.
func Forward(block *[BlockLen]float64) [BlockLen]float64 {
	var coeffs [BlockLen]float64
	for v := 0; v < BlockSize; v++ {
		for u := 0; u < BlockSize; u++ {
			var sum float64
			for y := 0; y < BlockSize; y++ {
				for x := 0; x < BlockSize; x++ {
					sum += block[y*BlockSize+x] * cosTable[u][x] * cosTable[v][y]
				}
			}
			coeffs[v*BlockSize+u] = 2.0 / BlockSize * cFactor(u) * cFactor(v) * sum
		}
	}
	return coeffs
}

// Inverse computes the 2-D inverse DCT of a row-major coefficient block.
func Inverse(coeffs *[BlockLen]float64) [BlockLen]float64 {
	var block [BlockLen]float64
	for y := 0; y < BlockSize; y++ {
		for x := 0; x < BlockSize; x++ {
			var sum float64
			for v := 0; v < BlockSize; v++ {
				for u := 0; u < BlockSize; u++ {
					sum += cFactor(u) * cFactor(v) * coeffs[v*BlockSize+u] * cosTable[u][x] * cosTable[v][y]
				}
			}
			block[y*BlockSize+x] = 2.0 / BlockSize * sum
		}
	}
	return block
}

// Quantize divides each coefficient by the matching table entry and rounds
// half away from zero. For 8-bit samples every quantized coefficient fits
// comfortably in an int16; the decoder only ever multiplies back, so the
// rounding choice affects encoder lossiness, not round-trip consistency.
func Quantize(coeffs *[BlockLen]float64, table *[BlockLen]int32) [BlockLen]int16 {
	var q [BlockLen]int16
	for i, c := range coeffs {
		q[i] = int16(math.Round(c / float64(table[i])))
	}
	return q
}

// Dequantize multiplies quantized coefficients by the table entries,
// mirroring the emitted decode logic.
func Dequantize(q *[BlockLen]int16, table *[BlockLen]int32) [BlockLen]float64 {
	var coeffs [BlockLen]float64
	for i, v := range q {
		coeffs[i] = float64(v) * float64(table[i])
	}
	return coeffs
}

// Scan reorders row-major quantized coefficients into zig-zag order.
func Scan(q *[BlockLen]int16) [BlockLen]int16 {
	var z [BlockLen]int16
	for s, n := range ZigZag {
		z[s] = q[n]
	}
	return z
}

// Unscan restores zig-zag ordered coefficients to row-major order.
func Unscan(z *[BlockLen]int16) [BlockLen]int16 {
	var q [BlockLen]int16
	for s, n := range ZigZag {
		q[n] = z[s]
	}
	return q
}
