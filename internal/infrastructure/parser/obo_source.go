package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"OboGraphLoader/internal/ports"
	"OboGraphLoader/internal/scanner"
)

// OBOSource implements BlockSource over an OBO-formatted stream.
type OBOSource struct {
	scanner *scanner.Scanner
	closer  io.Closer
}

var _ ports.BlockSource = (*OBOSource)(nil)

// NewOBOSource wraps r; blockMarker defaults to "[Term]".
func NewOBOSource(r io.Reader, blockMarker string) *OBOSource {
	return &OBOSource{scanner: scanner.New(r, blockMarker)}
}

// OpenOBOFile opens path for reading. The caller must Close the source.
func OpenOBOFile(path, blockMarker string) (*OBOSource, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open obo file: %w", err)
	}
	src := NewOBOSource(file, blockMarker)
	src.closer = file
	return src, nil
}

// NextBlock returns the lines of the next stanza; ok is false at end of input.
func (s *OBOSource) NextBlock() ([]string, bool) {
	block := s.scanner.Next()
	if block == nil {
		return nil, false
	}
	return block.Lines(), true
}

// Err reports a read failure that ended the stream early.
func (s *OBOSource) Err() error {
	if err := s.scanner.Err(); err != nil {
		return fmt.Errorf("read obo file: %w", err)
	}
	return nil
}

// Close releases the underlying file, if any.
func (s *OBOSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
