// Package subword implements byte-pair-encoding (BPE) segmentation of
// whitespace-tokenized text into subword units, driven by an ordered table of
// merge rules. The `@@ ` separator convention matches the subword-nmt tooling
// commonly used to prepare NMT training data, so segmented output can be undone
// by deleting the separator and the following space.
package subword

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformedRule reports a merge-table line that does not contain exactly
// two whitespace-separated symbols.
var ErrMalformedRule = errors.New("malformed merge rule")

// pair is an adjacent symbol bigram eligible for merging.
type pair struct {
	first, second string
}

// Table maps symbol pairs to their merge priority. Lower priority merges
// earlier. Built once per model and immutable afterwards.
type Table struct {
	ranks map[pair]int
	size  int
}

// NewTable parses merge rules from r, one rule per line, two
// whitespace-separated symbols each. Priorities are assigned by position.
// When the same pair is declared more than once, the earliest declaration
// wins and later ones are dropped; subword-nmt emits such duplicates and
// downstream tools are expected to tolerate them.
func NewTable(r io.Reader) (*Table, error) {
	t := &Table{ranks: make(map[pair]int)}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, errors.Wrapf(ErrMalformedRule, "line %d: %q has %d fields, want 2", lineNo, line, len(fields))
		}
		p := pair{first: fields[0], second: fields[1]}
		// Duplicates still consume a rank so priorities match source positions.
		if _, ok := t.ranks[p]; !ok {
			t.ranks[p] = t.size
		}
		t.size++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading merge rules")
	}
	return t, nil
}

// TableFromFile reads a merge table from a UTF-8 text file.
func TableFromFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open merge table %q", path)
	}
	defer f.Close()
	t, err := NewTable(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "while parsing merge table %q", path)
	}
	return t, nil
}

// Len returns the number of distinct merge rules in the table.
func (t *Table) Len() int { return len(t.ranks) }

// rank returns the priority for p and whether p is in the table.
func (t *Table) rank(p pair) (int, bool) {
	r, ok := t.ranks[p]
	return r, ok
}
