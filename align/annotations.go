package align

import (
	"strings"

	"github.com/pkg/errors"
)

// AnnotationsToSpans joins output tokens into a single space-separated string
// and converts per-token constraint annotations into character spans over it.
// tags has one entry per token: the constraint identifier the token belongs
// to, or nil for unconstrained tokens. A run of adjacent tokens carrying the
// same identifier becomes exactly one span; which constraint an identifier
// refers to is not kept, only where the constrained ranges lie.
func AnnotationsToSpans(tokens []string, tags []*int) (string, []Span, error) {
	if len(tokens) != len(tags) {
		return "", nil, errors.Wrapf(ErrLengthMismatch, "%d tokens, %d annotations", len(tokens), len(tags))
	}

	var out strings.Builder
	var spans []Span
	open := false
	var openID int
	var openStart int

	runeLen := 0 // rune length of out, tracked separately for multi-byte text
	for i, token := range tokens {
		tag := tags[i]
		switch {
		case tag != nil && (!open || *tag != openID):
			if open {
				spans = append(spans, Span{Start: openStart, End: runeLen})
			}
			openStart = runeLen
			if runeLen > 0 {
				openStart++ // the joining space is written below
			}
			openID = *tag
			open = true
		case tag == nil && open:
			spans = append(spans, Span{Start: openStart, End: runeLen})
			open = false
		}

		if runeLen > 0 {
			out.WriteByte(' ')
			runeLen++
		}
		out.WriteString(token)
		runeLen += len([]rune(token))
	}

	if open {
		spans = append(spans, Span{Start: openStart, End: runeLen})
	}
	return out.String(), spans, nil
}
