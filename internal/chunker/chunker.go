// Package chunker splits extracted document text into overlapping
// passages of bounded size. Splitting is a pure function of its inputs:
// the same text and settings always produce the same pieces.
//
// Boundary policy: sizes and offsets are measured in runes, so a piece
// never splits a UTF-8 sequence. Consecutive pieces share exactly
// `overlap` runes; the final piece may be shorter than `maxSize`.
package chunker

import (
	"fmt"
	"iter"
)

// DefaultMaxSize is the default piece size in runes.
const DefaultMaxSize = 1000

// DefaultOverlap is the default number of shared runes between
// consecutive pieces.
const DefaultOverlap = 200

// Piece is one chunk of text with its rune offsets in the source.
type Piece struct {
	// Start is the inclusive rune offset of the piece.
	Start int

	// End is the exclusive rune offset of the piece.
	End int

	// Text is the piece content.
	Text string
}

// Pieces returns a lazy, restartable sequence of pieces. Invalid
// settings yield nothing; use Split to surface the error.
func Pieces(text string, maxSize, overlap int) iter.Seq[Piece] {
	return func(yield func(Piece) bool) {
		if maxSize <= 0 || overlap < 0 || overlap >= maxSize {
			return
		}
		runes := []rune(text)
		n := len(runes)
		step := maxSize - overlap

		for start := 0; start < n; start += step {
			end := start + maxSize
			if end > n {
				end = n
			}
			if !yield(Piece{Start: start, End: end, Text: string(runes[start:end])}) {
				return
			}
			if end == n {
				return
			}
		}
	}
}

// Split collects all pieces for the text.
// Requires maxSize > 0 and 0 <= overlap < maxSize.
func Split(text string, maxSize, overlap int) ([]Piece, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("chunker: max size must be positive, got %d", maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("chunker: overlap must be in [0, %d), got %d", maxSize, overlap)
	}

	var pieces []Piece
	for p := range Pieces(text, maxSize, overlap) {
		pieces = append(pieces, p)
	}
	return pieces, nil
}
