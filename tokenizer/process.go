package tokenizer

import (
	"bufio"
	"io"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrProtocol reports that the tokenizing service closed its stream before
// producing a usable output line.
var ErrProtocol = errors.New("tokenizer service produced no output line")

// Service is a line-based text transformation service: one input sentence in,
// exactly one transformed line out. Implementations may be a subprocess, an
// in-process library, or a network call, as long as they hold this contract.
type Service interface {
	Transform(line string) (string, error)
	Close() error
}

// lineClient speaks the request/response framing used by Moses-style
// tokenizer scripts in batch mode: the request is the sentence followed by a
// blank line; the response is the tokenized line, possibly preceded by blank
// lines (an artifact of the script, skipped rather than treated as
// end-of-output), followed by one trailing marker line that is discarded.
type lineClient struct {
	w io.Writer
	r *bufio.Reader
}

func (c *lineClient) roundTrip(line string) (string, error) {
	if _, err := io.WriteString(c.w, line+"\n\n"); err != nil {
		return "", errors.Wrap(err, "writing to tokenizer service")
	}
	if f, ok := c.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return "", errors.Wrap(err, "flushing tokenizer request")
		}
	}

	var out string
	for {
		resp, err := c.r.ReadString('\n')
		if err != nil {
			return "", errors.Wrapf(ErrProtocol, "stream closed while waiting for output: %v", err)
		}
		if resp != "\n" {
			out = resp
			break
		}
	}
	// One trailing marker line per request; its content is irrelevant.
	if _, err := c.r.ReadString('\n'); err != nil && err != io.EOF {
		return "", errors.Wrap(err, "discarding tokenizer trailer line")
	}
	return strings.TrimRight(out, "\r\n"), nil
}

// Process is a Service backed by a long-lived external tokenizer process,
// held open for the life of the owning pipeline and spoken to over its pipes.
// All pipe I/O is blocking; a hung process blocks the caller indefinitely
// (callers needing resilience add their own timeout and kill policy).
// Transform is not safe for concurrent use; the Adapter serializes access.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	client *lineClient
}

// Compile time assert that Process implements Service.
var _ Service = &Process{}

// StartProcess launches the external tokenizer command and wires its pipes.
func StartProcess(name string, args ...string) (*Process, error) {
	cmd := exec.Command(name, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "opening tokenizer stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "opening tokenizer stdout")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "starting tokenizer command %q", name)
	}
	klog.V(1).Infof("started tokenizer process %q (pid %d)", name, cmd.Process.Pid)
	return &Process{
		cmd:    cmd,
		stdin:  stdin,
		client: &lineClient{w: stdin, r: bufio.NewReader(stdout)},
	}, nil
}

// Transform sends one sentence through the external process and returns the
// tokenized line.
func (p *Process) Transform(line string) (string, error) {
	return p.client.roundTrip(line)
}

// Close shuts the process down by closing its stdin and waiting for exit.
func (p *Process) Close() error {
	if err := p.stdin.Close(); err != nil {
		return errors.Wrap(err, "closing tokenizer stdin")
	}
	if err := p.cmd.Wait(); err != nil {
		return errors.Wrap(err, "waiting for tokenizer process exit")
	}
	return nil
}
