package subword

import (
	"strings"

	esentencepiece "github.com/eliben/go-sentencepiece"
	"github.com/pkg/errors"
)

// SentenceSegmenter is the capability the tokenizer adapter consumes: turn a
// whitespace-tokenized sentence into its subword-segmented counterpart.
type SentenceSegmenter interface {
	SegmentSentence(sentence string) string
}

// Compile time assert that Segmenter implements SentenceSegmenter.
var _ SentenceSegmenter = &Segmenter{}

// SentencePieceSegmenter is a SentenceSegmenter backed by a SentencePiece
// model, for deployments whose translation models were trained with
// SentencePiece instead of BPE merge tables. Output pieces keep the
// U+2581 metaspace marker, following the SentencePiece convention.
type SentencePieceSegmenter struct {
	proc *esentencepiece.Processor
}

// Compile time assert that SentencePieceSegmenter implements SentenceSegmenter.
var _ SentenceSegmenter = &SentencePieceSegmenter{}

// NewSentencePieceSegmenter loads a SentencePiece model proto from path.
func NewSentencePieceSegmenter(path string) (*SentencePieceSegmenter, error) {
	proc, err := esentencepiece.NewProcessorFromPath(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't load sentencepiece model %q", path)
	}
	return &SentencePieceSegmenter{proc: proc}, nil
}

// SegmentSentence encodes the sentence and rejoins the resulting pieces with
// single spaces.
func (s *SentencePieceSegmenter) SegmentSentence(sentence string) string {
	tokens := s.proc.Encode(sentence)
	pieces := make([]string, len(tokens))
	for i, tok := range tokens {
		pieces[i] = tok.Text
	}
	return strings.Join(pieces, " ")
}
