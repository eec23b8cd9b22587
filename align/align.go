// Package align tracks constraint span boundaries across text transformations
// that insert or remove filler characters (subword separators, tokenization
// whitespace) without ever substituting content characters. Offsets are rune
// offsets, so multi-byte text remaps the same way single-byte text does.
package align

import (
	"github.com/pkg/errors"
)

// Span is a half-open [Start, End) range of rune offsets into a string, marking
// one constrained phrase.
type Span struct {
	Start int // start rune offset (inclusive)
	End   int // end rune offset (exclusive)
}

var (
	// ErrOrphanSpanEnd reports a span end encountered with no span open.
	ErrOrphanSpanEnd = errors.New("span end with no open span")

	// ErrAlignmentOverrun reports that the two sequences could not be aligned
	// by deletion alone; a content character was substituted or the span
	// offsets do not belong to the tokenized sequence.
	ErrAlignmentOverrun = errors.New("ran past the end of the tokenized sequence")

	// ErrLengthMismatch reports token/annotation sequences of different length.
	ErrLengthMismatch = errors.New("tokens and annotations differ in length")
)

// Remap translates constraint spans from offsets into tokenized to offsets
// into detokenized, where detokenized is tokenized with some characters
// removed (and none substituted). Within one call no two spans may share a
// start offset and no two may share an end offset. Output spans come back in
// input order.
func Remap(tokenized, detokenized string, spans []Span) ([]Span, error) {
	tok := []rune(tokenized)
	detok := []rune(detokenized)

	starts := make(map[int]struct{}, len(spans))
	ends := make(map[int]struct{}, len(spans))
	for _, s := range spans {
		starts[s.Start] = struct{}{}
		ends[s.End] = struct{}{}
	}

	var remapped []Span
	tokIdx := 0
	offset := 0 // characters seen in tok but absent from detok
	pendingStart := -1

	// note registers tokIdx as a potential span boundary before the character
	// at tokIdx is consumed or skipped.
	note := func() error {
		if _, ok := starts[tokIdx]; ok {
			pendingStart = tokIdx - offset
		} else if _, ok := ends[tokIdx]; ok {
			if pendingStart < 0 {
				return errors.Wrapf(ErrOrphanSpanEnd, "at tokenized offset %d", tokIdx)
			}
			remapped = append(remapped, Span{Start: pendingStart, End: tokIdx - offset})
			pendingStart = -1
		}
		return nil
	}

	for _, outChar := range detok {
		if err := note(); err != nil {
			return nil, err
		}
		// Skip characters the transformation removed. A mismatch that never
		// resolves means a character was substituted, which the alignment
		// cannot represent.
		for tokIdx >= len(tok) || tok[tokIdx] != outChar {
			tokIdx++
			offset++
			if tokIdx > len(tok) {
				return nil, errors.Wrapf(ErrAlignmentOverrun, "aligning %q with %q", tokenized, detokenized)
			}
			if err := note(); err != nil {
				return nil, err
			}
		}
		tokIdx++
	}

	if pendingStart >= 0 {
		remapped = append(remapped, Span{Start: pendingStart, End: tokIdx - offset})
	}
	return remapped, nil
}
