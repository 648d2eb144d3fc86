package ingest

import (
	"bytes"
	"fmt"
	"io"
)

func openTag(name string) string  { return "<" + name + ">" }
func closeTag(name string) string { return "</" + name + ">" }

// ElementState is the tag scanner state carried between reads.
//
// While Accumulating, Buffer holds every byte from the open tag of the
// current element up to the end of the last read. It grows without bound
// until the close tag arrives.
type ElementState struct {
	Accumulating bool
	Buffer       []byte
}

// ElementStep is the outcome of feeding one read to the scanner.
type ElementStep struct {
	// Element is the complete open..close element, set when one finished.
	Element []byte
	// Consumed is how many bytes of the read belong to skipped input, the
	// buffer or the returned element. The rest must be delivered again.
	Consumed int
	// Truncated is set when the input ended inside an element.
	Truncated bool
}

// ElementScanner finds <name>...</name> elements in a byte stream.
type ElementScanner struct {
	open  []byte
	close []byte
}

// NewElementScanner returns a scanner for elements called name.
func NewElementScanner(name string) *ElementScanner {
	return &ElementScanner{
		open:  []byte(openTag(name)),
		close: []byte(closeTag(name)),
	}
}

// Step feeds one read to the scanner. At most one element is completed per
// step; bytes after its close tag are reported as unconsumed.
func (s *ElementScanner) Step(st ElementState, chunk []byte, atEOF bool) (ElementState, ElementStep) {
	var searchFrom, base int

	if !st.Accumulating {
		start := bytes.Index(chunk, s.open)
		if start < 0 {
			// Hold back a possible partial open tag at the end of the read.
			consumed := len(chunk)
			if !atEOF {
				consumed -= min(len(s.open)-1, len(chunk))
				if consumed == 0 {
					consumed = len(chunk)
				}
			}
			return st, ElementStep{Consumed: consumed}
		}

		st.Accumulating = true
		st.Buffer = append(st.Buffer[:0], chunk[start:]...)
		searchFrom = len(s.open)
		base = start
	} else {
		prev := len(st.Buffer)
		st.Buffer = append(st.Buffer, chunk...)
		// Re-scan the tail of the previous reads for a close tag split
		// across the boundary.
		searchFrom = max(prev-(len(s.close)-1), len(s.open))
		base = -prev
	}

	idx := bytes.Index(st.Buffer[searchFrom:], s.close)
	if idx < 0 {
		if atEOF {
			return ElementState{}, ElementStep{Consumed: len(chunk), Truncated: true}
		}
		return st, ElementStep{Consumed: len(chunk)}
	}

	end := searchFrom + idx + len(s.close)
	elem := st.Buffer[:end]

	return ElementState{}, ElementStep{Element: elem, Consumed: base + end}
}

// ElementReader drives an ElementScanner over a ChunkSource, rewinding the
// source past each close tag so the next element is found in order.
type ElementReader struct {
	src       *ChunkSource
	scanner   *ElementScanner
	chunkSize int
	state     ElementState
	start     int64
}

// NewElementReader reads src in chunks of at most chunkSize bytes.
func NewElementReader(src *ChunkSource, scanner *ElementScanner, chunkSize int) *ElementReader {
	return &ElementReader{src: src, scanner: scanner, chunkSize: chunkSize}
}

// Next returns the next complete element and its byte offset. It returns a
// *RecordError when the file ends inside an element and io.EOF once no more
// elements can be produced. Any other error is fatal.
func (r *ElementReader) Next() ([]byte, int64, error) {
	for {
		chunk, err := r.src.Read(r.chunkSize)
		if err == io.EOF {
			if r.state.Accumulating {
				r.state = ElementState{}
				return nil, r.start, &RecordError{Offset: r.start, Reason: "file ends inside an element"}
			}
			return nil, 0, io.EOF
		}
		if err != nil {
			return nil, 0, err
		}

		if !r.state.Accumulating {
			if i := bytes.Index(chunk.Data, r.scanner.open); i >= 0 {
				r.start = chunk.Offset + int64(i)
			}
		}

		st, step := r.scanner.Step(r.state, chunk.Data, chunk.EOF)
		r.state = st

		if rest := len(chunk.Data) - step.Consumed; rest > 0 {
			if err := r.src.Unread(rest); err != nil {
				return nil, 0, fmt.Errorf("rewind source: %w", err)
			}
		}

		switch {
		case step.Element != nil:
			return step.Element, r.start, nil
		case step.Truncated:
			return nil, r.start, &RecordError{Offset: r.start, Reason: "file ends inside an element"}
		}
	}
}
