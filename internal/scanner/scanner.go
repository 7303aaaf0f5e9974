package scanner

import (
	"bufio"
	"io"
	"strings"
)

// DefaultBlockMarker opens a term stanza in OBO files.
const DefaultBlockMarker = "[Term]"

const maxLineSize = 1024 * 1024

// LineSource yields raw lines from an input stream, forward only.
type LineSource struct {
	sc  *bufio.Scanner
	eof bool
}

// NewLineSource wraps r; lines longer than 1MiB end the stream with an error.
func NewLineSource(r io.Reader) *LineSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &LineSource{sc: sc}
}

// Next returns the next line without its terminator; ok is false at end of input.
func (l *LineSource) Next() (line string, ok bool) {
	if l.eof {
		return "", false
	}
	if !l.sc.Scan() {
		l.eof = true
		return "", false
	}
	return strings.TrimRight(l.sc.Text(), "\r"), true
}

// Err reports the read error that ended the stream, if any.
func (l *LineSource) Err() error {
	return l.sc.Err()
}

// TermBlock accumulates the raw lines of one term stanza.
type TermBlock struct {
	lines []string
}

// Add appends a line to the block.
func (b *TermBlock) Add(line string) {
	b.lines = append(b.lines, line)
}

// Lines returns a copy of the accumulated lines.
func (b *TermBlock) Lines() []string {
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// HasContent reports whether at least one line was collected.
func (b *TermBlock) HasContent() bool {
	return b != nil && len(b.lines) > 0
}

// Scanner segments a line stream into term blocks. A block starts after a
// block-start marker line and ends at a blank line, the next marker, or end
// of input. Lines are consumed exactly once.
type Scanner struct {
	src      *LineSource
	marker   string
	atMarker bool
}

// New builds a Scanner over r; an empty marker falls back to DefaultBlockMarker.
func New(r io.Reader, marker string) *Scanner {
	if marker == "" {
		marker = DefaultBlockMarker
	}
	return &Scanner{src: NewLineSource(r), marker: marker}
}

// Advance discards lines until a block-start marker is found. It returns
// false when the input ends first.
func (s *Scanner) Advance() bool {
	if s.atMarker {
		s.atMarker = false
		return true
	}
	for {
		line, ok := s.src.Next()
		if !ok {
			return false
		}
		if s.isMarker(line) {
			return true
		}
	}
}

// Collect gathers lines into a block until a blank line, another marker, or
// end of input. The returned block may be empty.
func (s *Scanner) Collect() *TermBlock {
	block := &TermBlock{}
	for {
		line, ok := s.src.Next()
		if !ok || strings.TrimSpace(line) == "" {
			return block
		}
		if s.isMarker(line) {
			s.atMarker = true
			return block
		}
		block.Add(line)
	}
}

// Next advances to the next stanza and collects it. The block is nil once
// the input is exhausted; an empty but non-nil block marks a stanza without body.
func (s *Scanner) Next() *TermBlock {
	if !s.Advance() {
		return nil
	}
	return s.Collect()
}

// Err reports the underlying read error, if any.
func (s *Scanner) Err() error {
	return s.src.Err()
}

func (s *Scanner) isMarker(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), s.marker)
}
