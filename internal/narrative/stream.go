package narrative

import (
	"encoding/json"
	"errors"
	"io"
	"iter"
	"strings"
)

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"
)

// LineAccumulator reassembles newline-terminated lines from arbitrary chunks.
// The trailing fragment of each chunk is carried over to the next Feed.
type LineAccumulator struct {
	buf strings.Builder
}

// Feed appends chunk and returns every line it completed, without the
// terminating newline.
func (a *LineAccumulator) Feed(chunk []byte) []string {
	a.buf.Write(chunk)
	text := a.buf.String()
	parts := strings.Split(text, "\n")
	a.buf.Reset()
	a.buf.WriteString(parts[len(parts)-1])
	return parts[:len(parts)-1]
}

// Pending returns the incomplete fragment currently held.
func (a *LineAccumulator) Pending() string {
	return a.buf.String()
}

// completionChunk is the subset of a streamed chat completion we read.
type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Parser turns server-sent event chunks into text deltas.
type Parser struct {
	lines   LineAccumulator
	dropped int
}

// Feed consumes one raw chunk and returns the deltas it completed, in order.
func (p *Parser) Feed(chunk []byte) []string {
	var deltas []string
	for _, line := range p.lines.Feed(chunk) {
		if d, ok := p.parseLine(line); ok {
			deltas = append(deltas, d)
		}
	}
	return deltas
}

// Dropped reports how many data records could not be decoded.
func (p *Parser) Dropped() int {
	return p.dropped
}

func (p *Parser) parseLine(line string) (string, bool) {
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}
	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == doneSentinel {
		return "", false
	}
	var chunk completionChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		p.dropped++
		return "", false
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
		return "", false
	}
	return chunk.Choices[0].Delta.Content, true
}

// ChunkSource yields raw chunks until it returns io.EOF.
type ChunkSource interface {
	Next() ([]byte, error)
}

// ChunkFunc adapts a function to ChunkSource.
type ChunkFunc func() ([]byte, error)

func (f ChunkFunc) Next() ([]byte, error) { return f() }

// SliceSource replays fixed chunks, mainly for tests.
func SliceSource(chunks ...string) ChunkSource {
	i := 0
	return ChunkFunc(func() ([]byte, error) {
		if i >= len(chunks) {
			return nil, io.EOF
		}
		i++
		return []byte(chunks[i-1]), nil
	})
}

// ReaderSource reads chunks of up to size bytes from r.
func ReaderSource(r io.Reader, size int) ChunkSource {
	if size <= 0 {
		size = 4096
	}
	buf := make([]byte, size)
	return ChunkFunc(func() ([]byte, error) {
		n, err := r.Read(buf)
		if n > 0 {
			// hand out a copy; buf is reused on the next read
			out := make([]byte, n)
			copy(out, buf[:n])
			return out, nil
		}
		if err == nil {
			return []byte{}, nil
		}
		return nil, err
	})
}

// Deltas lazily parses src. Iteration ends at io.EOF; any other source error
// is yielded once as the final element. An unterminated last line is dropped.
func Deltas(src ChunkSource) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var p Parser
		for {
			chunk, err := src.Next()
			for _, d := range p.Feed(chunk) {
				if !yield(d, nil) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield("", err)
				}
				return
			}
		}
	}
}
