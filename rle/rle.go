/*
Package rle implements run-length encoding of symbol streams.

A stream is encoded as an ordered sequence of runs, each pairing a symbol
with a repeat count. Expanding the runs in order reproduces the input
stream exactly. Runs longer than the caller's count cap are split into
multiple runs of the same symbol so that count-1 always fits the decoder's
count field.
*/
package rle

import "fmt"

// Run is a single (symbol, count) pair. Count is always at least 1.
type Run struct {
	Symbol int
	Count  int
}

// Encode scans symbols left to right and folds consecutive equal symbols
// into runs. Every symbol must lie in [0, alphabet); runs never exceed
// maxCount. An empty stream yields no runs.
func Encode(symbols []int, alphabet, maxCount int) ([]Run, error) {
	if maxCount < 1 {
		return nil, fmt.Errorf("rle: count cap %d out of range", maxCount)
	}

	var runs []Run
	for i := 0; i < len(symbols); {
		s := symbols[i]
		if s < 0 || s >= alphabet {
			return nil, fmt.Errorf("rle: symbol %d outside alphabet of size %d", s, alphabet)
		}

		j := i + 1
		for j < len(symbols) && symbols[j] == s {
			j++
		}

		for count := j - i; count > 0; count -= maxCount {
			c := count
			if c > maxCount {
				c = maxCount
			}
			runs = append(runs, Run{Symbol: s, Count: c})
		}

		i = j
	}

	return runs, nil
}

// Expand concatenates the expansions of all runs, inverting Encode.
func Expand(runs []Run) []int {
	n := 0
	for _, r := range runs {
		n += r.Count
	}

	symbols := make([]int, 0, n)
	for _, r := range runs {
		for i := 0; i < r.Count; i++ {
			symbols = append(symbols, r.Symbol)
		}
	}

	return symbols
}
