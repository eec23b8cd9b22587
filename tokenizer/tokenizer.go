// Package tokenizer adapts an external line-based tokenizing service into the
// preprocessing step of the translation pipeline: raw sentences in,
// whitespace-separated token lists out, optionally subword-segmented.
package tokenizer

import (
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/nmtkit/go-constrained/subword"
)

// Adapter owns one tokenizing Service for one language. The service handles
// one in-flight request at a time, so the adapter serializes calls internally;
// sharing one Adapter across concurrent requests is safe but not parallel.
type Adapter struct {
	lang      string
	mu        sync.Mutex
	svc       Service
	segmenter subword.SentenceSegmenter // optional
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithSegmenter pipes tokenized output through a subword segmenter before it
// is split into tokens.
func WithSegmenter(seg subword.SentenceSegmenter) AdapterOption {
	return func(a *Adapter) { a.segmenter = seg }
}

// NewAdapter creates an Adapter for the given language over svc.
func NewAdapter(lang string, svc Service, opts ...AdapterOption) *Adapter {
	a := &Adapter{lang: lang, svc: svc}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Lang returns the language this adapter tokenizes.
func (a *Adapter) Lang() string { return a.lang }

// Tokenize converts one raw sentence into a token list. Input is normalized
// to NFC before it reaches the service. Empty or whitespace-only input
// returns an empty list without a service round trip.
func (a *Adapter) Tokenize(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	text = norm.NFC.String(text)

	a.mu.Lock()
	line, err := a.svc.Transform(text)
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if a.segmenter != nil {
		line = a.segmenter.SegmentSentence(line)
	}
	return strings.Fields(line), nil
}

// Detokenize reconstitutes human-readable text from tokens. Detokenization is
// an external collaborator; the placeholder joins with single spaces.
func (a *Adapter) Detokenize(tokens []string) (string, error) {
	return strings.Join(tokens, " "), nil
}

// Truecase restores model casing. External collaborator; currently a no-op.
func (a *Adapter) Truecase(text string) (string, error) {
	return text, nil
}

// Detruecase restores natural casing. External collaborator; currently a no-op.
func (a *Adapter) Detruecase(text string) (string, error) {
	return text, nil
}

// MapTerms maps tokens through a terminology dictionary. External
// collaborator; currently a no-op.
func (a *Adapter) MapTerms(tokens []string) ([]string, error) {
	return tokens, nil
}

// Close releases the underlying service.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.svc.Close()
}
