package tokenizer

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmtkit/go-constrained/subword"
)

// stubService is an in-memory Service recording its calls.
type stubService struct {
	calls  []string
	reply  string
	closed bool
}

func (s *stubService) Transform(line string) (string, error) {
	s.calls = append(s.calls, line)
	return s.reply, nil
}

func (s *stubService) Close() error {
	s.closed = true
	return nil
}

func TestLineClientRoundTrip(t *testing.T) {
	var sent bytes.Buffer
	c := &lineClient{
		w: &sent,
		r: bufio.NewReader(strings.NewReader("\n\nhello world !\nTRAILER\n")),
	}
	out, err := c.roundTrip("hello world!")
	require.NoError(t, err)
	assert.Equal(t, "hello world !", out)
	assert.Equal(t, "hello world!\n\n", sent.String())
}

func TestLineClientSkipsBlankLinesOnly(t *testing.T) {
	c := &lineClient{
		w: &bytes.Buffer{},
		r: bufio.NewReader(strings.NewReader("line\n")),
	}
	// Missing trailer is tolerated, the output line is what matters.
	out, err := c.roundTrip("x")
	require.NoError(t, err)
	assert.Equal(t, "line", out)
}

func TestLineClientProtocolError(t *testing.T) {
	for _, response := range []string{"", "\n", "\n\n\n"} {
		c := &lineClient{
			w: &bytes.Buffer{},
			r: bufio.NewReader(strings.NewReader(response)),
		}
		_, err := c.roundTrip("x")
		require.Error(t, err, "response %q", response)
		assert.True(t, errors.Is(err, ErrProtocol))
	}
}

func TestAdapterTokenize(t *testing.T) {
	svc := &stubService{reply: "hello world !"}
	a := NewAdapter("en", svc)
	tokens, err := a.Tokenize("hello world!")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "world", "!"}, tokens)
	assert.Equal(t, []string{"hello world!"}, svc.calls)
}

func TestAdapterEmptyInputSkipsService(t *testing.T) {
	svc := &stubService{reply: "should not be used"}
	a := NewAdapter("en", svc)
	for _, input := range []string{"", "   ", "\t\n"} {
		tokens, err := a.Tokenize(input)
		require.NoError(t, err)
		assert.Empty(t, tokens)
	}
	assert.Empty(t, svc.calls)
}

func TestAdapterSubwordSegmentation(t *testing.T) {
	table, err := subword.NewTable(strings.NewReader("f o\nfo o\n"))
	require.NoError(t, err)
	seg := subword.NewSegmenter(table)

	svc := &stubService{reply: "foo fox"}
	a := NewAdapter("en", svc, WithSegmenter(seg))
	tokens, err := a.Tokenize("foo fox")
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "fo@@", "x"}, tokens)
}

func TestAdapterClose(t *testing.T) {
	svc := &stubService{}
	a := NewAdapter("en", svc)
	require.NoError(t, a.Close())
	assert.True(t, svc.closed)
}

// cat happens to satisfy the line protocol for single requests: it echoes the
// sentence line (the real output) and then the blank framing line (the
// discarded trailer).
func TestProcessWithCat(t *testing.T) {
	p, err := StartProcess("cat")
	require.NoError(t, err)
	defer p.Close()

	out, err := p.Transform("der Mann ging nach Hause")
	require.NoError(t, err)
	assert.Equal(t, "der Mann ging nach Hause", out)

	// The process stays usable across requests.
	out, err = p.Transform("zweiter Satz")
	require.NoError(t, err)
	assert.Equal(t, "zweiter Satz", out)
}
