package shadertoy

import "errors"

var (
	// ErrInvalidDimension reports a width that is not a multiple of 32,
	// or a height that is not a multiple of 8 when the block transform
	// is requested.
	ErrInvalidDimension = errors.New("shadertoy: invalid image dimension")

	// ErrUnsupportedBitDepth reports a bit depth outside 1, 4 and 8, or
	// a depth the requested mode cannot encode.
	ErrUnsupportedBitDepth = errors.New("shadertoy: unsupported bit depth")
)
