/*
Package shadertoy converts indexed raster images into self-contained
Shadertoy scripts that reconstruct the image from embedded constant data,
without any texture sampling.

The pipeline linearizes the pixel grid into a symbol stream, optionally
compresses it with run-length encoding and/or an 8 by 8 block transform,
and emits the payload together with matching decode procedures as shader
source text.
*/
package shadertoy

import (
	"io/ioutil"
	"log"
)

// Encoder runs image conversions. The logger receives progress and
// fallback notices; batch conversion uses it to report per-file results.
type Encoder struct {
	logger *log.Logger
}

// New returns an Encoder logging to logger; a nil logger discards all
// output.
func New(logger *log.Logger) *Encoder {
	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}
	return &Encoder{
		logger: logger,
	}
}
