package pipeline

import (
	"github.com/pkg/errors"
)

// Passthrough is a Model and Decoder that copies the source tokens through
// and appends each constraint phrase, annotated with its constraint index.
// It carries no linguistic knowledge; it exists so deployments can smoke-test
// the whole pre/postprocessing path (tokenization, subword, span remapping)
// before a real model is attached.
type Passthrough struct{}

// NewPassthrough creates a Passthrough model/decoder.
func NewPassthrough() *Passthrough { return &Passthrough{} }

// Compile time asserts that Passthrough fills both collaborator roles.
var (
	_ Model   = &Passthrough{}
	_ Decoder = &Passthrough{}
)

type passthroughInputs struct {
	tokens []string
}

func (p passthroughInputs) Len() int { return len(p.tokens) }

type passthroughHypothesis struct {
	source      []string
	constraints [][]string
}

// MapInputs keeps the primary input's tokens.
func (p *Passthrough) MapInputs(inputs [][]string) (MappedInputs, error) {
	if len(inputs) == 0 {
		return nil, errors.New("passthrough model needs at least one input")
	}
	return passthroughInputs{tokens: inputs[0]}, nil
}

// MapConstraints keeps constraint token lists as-is.
func (p *Passthrough) MapConstraints(constraints [][]string) (MappedConstraints, error) {
	return constraints, nil
}

// StartHypothesis pairs the mapped inputs with the constraints.
func (p *Passthrough) StartHypothesis(inputs MappedInputs, constraints MappedConstraints) (Hypothesis, error) {
	in, ok := inputs.(passthroughInputs)
	if !ok {
		return nil, errors.Errorf("passthrough decoder got foreign inputs %T", inputs)
	}
	cons, _ := constraints.([][]string)
	return passthroughHypothesis{source: in.tokens, constraints: cons}, nil
}

// Search emits the source tokens followed by every constraint phrase,
// annotating constraint tokens with their constraint index.
func (p *Passthrough) Search(start Hypothesis, constraints MappedConstraints, maxHypLen, beamSize int) (Grid, error) {
	hyp, ok := start.(passthroughHypothesis)
	if !ok {
		return nil, errors.Errorf("passthrough decoder got foreign hypothesis %T", start)
	}

	cand := Candidate{}
	for _, tok := range hyp.source {
		cand.Tokens = append(cand.Tokens, tok)
		cand.Annotations = append(cand.Annotations, nil)
	}
	for i, phrase := range hyp.constraints {
		idx := i
		for _, tok := range phrase {
			cand.Tokens = append(cand.Tokens, tok)
			cand.Annotations = append(cand.Annotations, &idx)
		}
	}
	return []Candidate{cand}, nil
}

// BestN returns the single echoed candidate.
func (p *Passthrough) BestN(grid Grid, n int) ([]Candidate, error) {
	candidates, ok := grid.([]Candidate)
	if !ok {
		return nil, errors.Errorf("passthrough decoder got foreign grid %T", grid)
	}
	if n < len(candidates) {
		candidates = candidates[:n]
	}
	return candidates, nil
}
