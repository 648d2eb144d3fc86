package ingest

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// RawRecord is one delimited row mapped positionally onto the schema columns.
type RawRecord struct {
	Line   int
	Fields map[string]string
}

// LineState is the delimited parser state carried between chunks.
//
// Carry holds the bytes of a line not yet terminated by a line separator.
// Carry followed by the next chunk reproduces the source stream exactly.
type LineState struct {
	Carry         []byte
	HeaderSkipped bool
	// Line is the number of physical lines consumed so far.
	Line int
}

// DelimitedParser splits chunks into schema-width rows.
type DelimitedParser struct {
	columnSep string
	lineSep   []byte
	columns   []string
	trimCR    bool
}

// NewDelimitedParser returns a parser for the given separators and schema.
func NewDelimitedParser(columnSep, lineSep string, columns []string) *DelimitedParser {
	return &DelimitedParser{
		columnSep: columnSep,
		lineSep:   []byte(lineSep),
		columns:   columns,
		trimCR:    lineSep == "\n",
	}
}

// Split parses every complete line in carry+chunk. A trailing fragment with
// no line separator is returned in the new state's Carry, unless atEOF is set,
// in which case it is parsed as the final line.
//
// The first line of the stream is the header and is dropped. Rows whose field
// count differs from the schema width are returned as RecordErrors.
func (p *DelimitedParser) Split(st LineState, chunk []byte, atEOF bool) (LineState, []RawRecord, []*RecordError) {
	data := chunk
	if len(st.Carry) > 0 {
		data = make([]byte, 0, len(st.Carry)+len(chunk))
		data = append(data, st.Carry...)
		data = append(data, chunk...)
	}

	complete := data
	st.Carry = nil
	if !atEOF {
		cut := bytes.LastIndex(data, p.lineSep)
		if cut < 0 {
			st.Carry = bytes.Clone(data)
			return st, nil, nil
		}
		complete = data[:cut]
		st.Carry = bytes.Clone(data[cut+len(p.lineSep):])
	} else if len(data) == 0 {
		return st, nil, nil
	}

	var (
		records []RawRecord
		rejects []*RecordError
	)

	for _, line := range bytes.Split(complete, p.lineSep) {
		st.Line++

		if !st.HeaderSkipped {
			st.HeaderSkipped = true
			continue
		}

		if p.trimCR {
			line = bytes.TrimSuffix(line, []byte{'\r'})
		}
		if len(line) == 0 {
			continue
		}

		fields := strings.Split(string(line), p.columnSep)
		if len(fields) != len(p.columns) {
			rejects = append(rejects, &RecordError{
				Line:   st.Line,
				Reason: fmt.Sprintf("row has %d columns, expected %d", len(fields), len(p.columns)),
			})
			continue
		}

		rec := RawRecord{Line: st.Line, Fields: make(map[string]string, len(p.columns))}
		for i, name := range p.columns {
			rec.Fields[name] = fields[i]
		}
		records = append(records, rec)
	}

	return st, records, rejects
}

// DelimitedReader drives a DelimitedParser over a ChunkSource.
type DelimitedReader struct {
	src       *ChunkSource
	parser    *DelimitedParser
	chunkSize int
	state     LineState
	done      bool
}

// NewDelimitedReader reads src in chunks of at most chunkSize bytes.
func NewDelimitedReader(src *ChunkSource, parser *DelimitedParser, chunkSize int) *DelimitedReader {
	return &DelimitedReader{src: src, parser: parser, chunkSize: chunkSize}
}

// Next reads one chunk and returns the rows it completed. It returns io.EOF
// after the final line has been emitted. Any other error is fatal.
func (r *DelimitedReader) Next() ([]RawRecord, []*RecordError, error) {
	if r.done {
		return nil, nil, io.EOF
	}

	chunk, err := r.src.Read(r.chunkSize)
	if err == io.EOF {
		r.done = true
		st, records, rejects := r.parser.Split(r.state, nil, true)
		r.state = st
		return records, rejects, nil
	}
	if err != nil {
		return nil, nil, err
	}

	st, records, rejects := r.parser.Split(r.state, chunk.Data, chunk.EOF)
	r.state = st
	if chunk.EOF {
		r.done = true
	}
	return records, rejects, nil
}

// Pending returns the number of carried bytes awaiting a line separator.
func (r *DelimitedReader) Pending() int { return len(r.state.Carry) }
