package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// utf8BOM is skipped when it opens the file, as Windows tools often write it.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// RawChunk is one bounded read from the source.
//
// Data is only valid until the next Read; parsers copy what they keep.
type RawChunk struct {
	Data   []byte
	Offset int64
	// EOF is set when this read reached the end of the file.
	EOF bool
}

// ChunkSource is a forward-only reader over a file that hands out
// bounded-size chunks. A consumer that did not use the tail of a chunk calls
// Unread so those bytes are delivered again by the next Read.
type ChunkSource struct {
	f      *os.File
	path   string
	size   int64
	start  int64
	offset int64
	buf    []byte

	// Reads and BytesRead count every chunk handed out, including
	// re-delivered bytes.
	Reads     int
	BytesRead int64
}

// OpenChunkSource opens path for chunked reading.
func OpenChunkSource(path string) (*ChunkSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	s := &ChunkSource{f: f, path: path, size: info.Size()}

	var head [3]byte
	n, err := f.ReadAt(head[:], 0)
	if err != nil && !errors.Is(err, io.EOF) {
		f.Close()
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if n == len(head) && bytes.Equal(head[:], utf8BOM) {
		s.start = int64(len(utf8BOM))
		s.offset = s.start
	}

	return s, nil
}

// Read returns the next chunk of at most maxBytes bytes, or io.EOF once the
// cursor has reached the end of the file.
func (s *ChunkSource) Read(maxBytes int) (RawChunk, error) {
	if maxBytes <= 0 {
		return RawChunk{}, fmt.Errorf("read %s: chunk size %d must be positive", s.path, maxBytes)
	}
	if s.offset >= s.size {
		return RawChunk{}, io.EOF
	}

	if cap(s.buf) < maxBytes {
		s.buf = make([]byte, maxBytes)
	}
	buf := s.buf[:maxBytes]

	n, err := s.f.ReadAt(buf, s.offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return RawChunk{}, fmt.Errorf("read %s at offset %d: %w: %w", s.path, s.offset, ErrIO, err)
	}
	if n == 0 {
		return RawChunk{}, io.EOF
	}

	chunk := RawChunk{
		Data:   buf[:n],
		Offset: s.offset,
		EOF:    errors.Is(err, io.EOF) || s.offset+int64(n) >= s.size,
	}
	s.offset += int64(n)
	s.Reads++
	s.BytesRead += int64(n)

	return chunk, nil
}

// Unread moves the cursor back by n bytes so they are re-delivered.
// The cursor never moves before the start of the data.
func (s *ChunkSource) Unread(n int) error {
	if n < 0 || s.offset-int64(n) < s.start {
		return fmt.Errorf("unread %d bytes at offset %d: out of range", n, s.offset)
	}
	s.offset -= int64(n)
	return nil
}

// Offset returns the byte position of the next Read.
func (s *ChunkSource) Offset() int64 { return s.offset }

// Progress returns how far the cursor is through the file (0-100).
func (s *ChunkSource) Progress() int {
	if s.size <= 0 {
		return 100
	}
	return int(s.offset * 100 / s.size)
}

// Close releases the file handle.
func (s *ChunkSource) Close() error {
	return s.f.Close()
}
