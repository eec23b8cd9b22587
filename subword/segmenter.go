package subword

import (
	"strings"

	lru "github.com/hashicorp/golang-lru"
)

// endOfWord is the sentinel appended to every word before merging, so rules
// can distinguish word-final symbols. It is stripped from the segmented output.
const endOfWord = "</w>"

// DefaultSeparator is the suffix attached to every non-final subword unit.
const DefaultSeparator = "@@"

// segmenterCacheSize bounds the per-segmenter memoization cache.
const segmenterCacheSize = 8192

// Segmenter splits words into subword units using a merge Table. Segmented
// words are memoized; segmentation is a pure function of (word, table), so a
// cached result is always valid for the segmenter's lifetime. The cache is
// safe for concurrent use.
type Segmenter struct {
	table     *Table
	separator string
	ignore    map[string]struct{}
	cache     *lru.Cache
}

// SegmenterOption configures a Segmenter.
type SegmenterOption func(*Segmenter)

// WithSeparator overrides the subword continuation separator.
func WithSeparator(sep string) SegmenterOption {
	return func(s *Segmenter) { s.separator = sep }
}

// WithIgnore sets words that pass through segmentation untouched.
func WithIgnore(words ...string) SegmenterOption {
	return func(s *Segmenter) {
		for _, w := range words {
			s.ignore[w] = struct{}{}
		}
	}
}

// NewSegmenter creates a Segmenter over the given merge table.
func NewSegmenter(table *Table, opts ...SegmenterOption) *Segmenter {
	s := &Segmenter{
		table:     table,
		separator: DefaultSeparator,
		ignore:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	// Only errors on size <= 0.
	s.cache, _ = lru.New(segmenterCacheSize)
	return s
}

// Segment splits a single word into subword units by repeatedly applying the
// highest-priority merge rule present in the word until none applies.
func (s *Segmenter) Segment(word string) []string {
	if word == "" {
		return nil
	}
	if cached, ok := s.cache.Get(word); ok {
		return cached.([]string)
	}

	symbols := make([]string, 0, len(word)+1)
	for _, r := range word {
		symbols = append(symbols, string(r))
	}
	symbols = append(symbols, endOfWord)

	for len(symbols) > 1 {
		best, ok := s.lowestRankedPair(symbols)
		if !ok {
			break
		}
		symbols = mergePair(symbols, best)
	}

	symbols = stripEndOfWord(symbols)
	s.cache.Add(word, symbols)
	return symbols
}

// SegmentSentence segments every word of a whitespace-tokenized sentence,
// suffixing all non-final subword units with the separator, and returns the
// words rejoined with single spaces. Words in the ignore set pass through.
func (s *Segmenter) SegmentSentence(sentence string) string {
	var out []string
	for _, word := range strings.Fields(sentence) {
		if _, ok := s.ignore[word]; ok {
			out = append(out, word)
			continue
		}
		units := s.Segment(word)
		for i, unit := range units {
			if i < len(units)-1 {
				out = append(out, unit+s.separator)
			} else {
				out = append(out, unit)
			}
		}
	}
	return strings.Join(out, " ")
}

// lowestRankedPair scans the adjacent pairs of symbols left to right and
// returns the table pair with the lowest priority. The left-to-right scan
// makes tie-breaking deterministic; well-formed tables assign distinct
// priorities, so ties do not occur in practice.
func (s *Segmenter) lowestRankedPair(symbols []string) (pair, bool) {
	var best pair
	bestRank := -1
	for i := 0; i+1 < len(symbols); i++ {
		p := pair{first: symbols[i], second: symbols[i+1]}
		if r, ok := s.table.rank(p); ok && (bestRank < 0 || r < bestRank) {
			best, bestRank = p, r
		}
	}
	return best, bestRank >= 0
}

// mergePair merges every non-overlapping left-to-right occurrence of p in
// symbols into a single symbol. One call is one full merge pass.
func mergePair(symbols []string, p pair) []string {
	merged := make([]string, 0, len(symbols))
	for i := 0; i < len(symbols); {
		if symbols[i] == p.first && i+1 < len(symbols) && symbols[i+1] == p.second {
			merged = append(merged, p.first+p.second)
			i += 2
		} else {
			merged = append(merged, symbols[i])
			i++
		}
	}
	return merged
}

// stripEndOfWord removes the sentinel from the final symbol: dropped when it
// is the whole symbol, trimmed when merged onto a longer one.
func stripEndOfWord(symbols []string) []string {
	if len(symbols) == 0 {
		return symbols
	}
	last := symbols[len(symbols)-1]
	switch {
	case last == endOfWord:
		symbols = symbols[:len(symbols)-1]
	case strings.HasSuffix(last, endOfWord):
		symbols[len(symbols)-1] = strings.TrimSuffix(last, endOfWord)
	}
	return symbols
}
