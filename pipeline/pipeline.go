// Package pipeline wires preprocessing, the constrained decoder and
// postprocessing into one translation engine: raw source text is tokenized
// (and subword-segmented) per language, constraint phrases are tokenized the
// same way, the decoder runs a constrained beam search, and its output tokens
// plus per-token constraint annotations come back as human-readable text with
// character spans marking the constrained ranges.
package pipeline

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/nmtkit/go-constrained/align"
	"github.com/nmtkit/go-constrained/tokenizer"
)

// ErrUnknownLanguagePair reports a translation request for a pair no model
// was registered for.
var ErrUnknownLanguagePair = errors.New("no model for language pair")

// LangPair identifies a translation direction by two language codes.
type LangPair struct {
	Source string
	Target string
}

// MappedInputs is a model's internal representation of the tokenized source.
// Len is the token length of the primary input; it bounds the hypothesis
// length during search.
type MappedInputs interface {
	Len() int
}

// MappedConstraints is a model's internal representation of the tokenized
// constraint phrases. Opaque to the pipeline.
type MappedConstraints any

// Hypothesis is a decoder search state. Opaque to the pipeline.
type Hypothesis any

// Grid is a completed decoder search. Opaque to the pipeline.
type Grid any

// Candidate is one ranked decoder output: tokens plus one constraint
// annotation per token (nil when the token is unconstrained).
type Candidate struct {
	Tokens      []string
	Annotations []*int
	Score       float64
}

// Model is the translation model collaborator. It consumes the token lists
// this pipeline produces and hands opaque state to its Decoder.
type Model interface {
	MapInputs(inputs [][]string) (MappedInputs, error)
	MapConstraints(constraints [][]string) (MappedConstraints, error)
	StartHypothesis(inputs MappedInputs, constraints MappedConstraints) (Hypothesis, error)
}

// Decoder is the constrained beam-search collaborator.
type Decoder interface {
	Search(start Hypothesis, constraints MappedConstraints, maxHypLen, beamSize int) (Grid, error)
	BestN(grid Grid, n int) ([]Candidate, error)
}

// Request is one translation request.
type Request struct {
	SourceLang     string
	TargetLang     string
	SourceSentence string
	Constraints    []string // raw target-language phrases the output must contain
	NBest          int
}

// Translation is one ranked output with its constrained character spans.
type Translation struct {
	Text  string
	Spans []align.Span
	Score float64
}

// Result is a ranked list of translations, best first.
type Result struct {
	Translations []Translation
}

const (
	defaultBeamSize     = 5
	defaultLengthFactor = 1.5
)

// Engine owns the per-pair models and decoders and the per-language
// tokenizer adapters, all built at startup and immutable afterwards.
type Engine struct {
	models       map[LangPair]Model
	decoders     map[LangPair]Decoder
	processors   map[string]*tokenizer.Adapter
	beamSize     int
	lengthFactor float64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithBeamSize overrides the default beam size of 5.
func WithBeamSize(n int) EngineOption {
	return func(e *Engine) { e.beamSize = n }
}

// WithLengthFactor overrides the hypothesis length bound factor of 1.5.
func WithLengthFactor(f float64) EngineOption {
	return func(e *Engine) { e.lengthFactor = f }
}

// NewEngine creates an empty Engine; register models and processors before
// serving requests.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		models:       make(map[LangPair]Model),
		decoders:     make(map[LangPair]Decoder),
		processors:   make(map[string]*tokenizer.Adapter),
		beamSize:     defaultBeamSize,
		lengthFactor: defaultLengthFactor,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterModel adds a model and its decoder for one language pair.
func (e *Engine) RegisterModel(pair LangPair, model Model, decoder Decoder) {
	e.models[pair] = model
	e.decoders[pair] = decoder
}

// RegisterProcessor adds the tokenizer adapter for one language. Languages
// without a processor receive pre-tokenized input as-is.
func (e *Engine) RegisterProcessor(lang string, adapter *tokenizer.Adapter) {
	e.processors[lang] = adapter
}

// HasPair reports whether a model serves the given pair.
func (e *Engine) HasPair(pair LangPair) bool {
	_, ok := e.models[pair]
	return ok
}

// Translate runs one request through preprocessing, constrained search and
// postprocessing.
func (e *Engine) Translate(req Request) (*Result, error) {
	pair := LangPair{Source: req.SourceLang, Target: req.TargetLang}
	model, ok := e.models[pair]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownLanguagePair, "%s-%s", pair.Source, pair.Target)
	}
	decoder := e.decoders[pair]

	sourceTokens, err := e.tokenize(req.SourceLang, req.SourceSentence)
	if err != nil {
		return nil, errors.WithMessage(err, "preprocessing source sentence")
	}

	mappedInputs, err := model.MapInputs([][]string{sourceTokens})
	if err != nil {
		return nil, errors.WithMessage(err, "mapping inputs")
	}

	constraintTokens := make([][]string, 0, len(req.Constraints))
	for _, phrase := range req.Constraints {
		tokens, err := e.tokenize(req.TargetLang, phrase)
		if err != nil {
			return nil, errors.WithMessagef(err, "preprocessing constraint %q", phrase)
		}
		if len(tokens) == 0 {
			continue
		}
		constraintTokens = append(constraintTokens, tokens)
	}
	mappedConstraints, err := model.MapConstraints(constraintTokens)
	if err != nil {
		return nil, errors.WithMessage(err, "mapping constraints")
	}

	start, err := model.StartHypothesis(mappedInputs, mappedConstraints)
	if err != nil {
		return nil, errors.WithMessage(err, "building start hypothesis")
	}

	nBest := req.NBest
	if nBest < 1 {
		nBest = 1
	}
	beamSize := e.beamSize
	if nBest > beamSize {
		beamSize = nBest
	}
	maxHypLen := int(math.Round(float64(mappedInputs.Len()) * e.lengthFactor))

	grid, err := decoder.Search(start, mappedConstraints, maxHypLen, beamSize)
	if err != nil {
		return nil, errors.WithMessage(err, "constrained search")
	}
	candidates, err := decoder.BestN(grid, nBest)
	if err != nil {
		return nil, errors.WithMessage(err, "extracting n-best list")
	}
	klog.V(2).Infof("decoded %s-%s: %d candidates for %d source tokens",
		pair.Source, pair.Target, len(candidates), len(sourceTokens))

	result := &Result{Translations: make([]Translation, 0, len(candidates))}
	for _, cand := range candidates {
		translation, err := postprocess(cand)
		if err != nil {
			return nil, err
		}
		result.Translations = append(result.Translations, translation)
	}
	return result, nil
}

// tokenize runs text through the language's adapter, or splits on whitespace
// when no adapter is registered (input assumed pre-tokenized).
func (e *Engine) tokenize(lang, text string) ([]string, error) {
	if proc, ok := e.processors[lang]; ok {
		return proc.Tokenize(text)
	}
	return strings.Fields(text), nil
}

// postprocess turns one decoder candidate into readable text with constraint
// spans: annotations become spans over the joined token sequence, the subword
// separators are removed, and the spans are remapped onto the shorter text.
func postprocess(cand Candidate) (Translation, error) {
	joined, spans, err := align.AnnotationsToSpans(cand.Tokens, cand.Annotations)
	if err != nil {
		return Translation{}, errors.WithMessage(err, "converting annotations to spans")
	}
	text := stripSubword(joined)
	remapped, err := align.Remap(joined, text, spans)
	if err != nil {
		return Translation{}, errors.WithMessage(err, "remapping constraint spans")
	}
	return Translation{Text: text, Spans: remapped, Score: cand.Score}, nil
}

// stripSubword undoes BPE segmentation. The order matters: mid-sentence
// separators first, then a word-final separator left at the end of the text.
func stripSubword(s string) string {
	s = strings.ReplaceAll(s, "@@ ", "")
	return strings.ReplaceAll(s, "@@", "")
}
