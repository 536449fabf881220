package samtext

import (
	"bufio"
	"fmt"
	"io"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
)

// Scanner reads SAM alignment rows from a stream. Header lines
// ("@"-prefixed) are collected separately, not returned as records.
// Scanners are not threadsafe.
type Scanner struct {
	b      *bufio.Scanner
	err    error
	line   int
	header []string
}

// NewScanner constructs a Scanner reading SAM text from r.
func NewScanner(r io.Reader) *Scanner {
	b := bufio.NewScanner(r)
	// Long-read rows carry the full sequence and quality strings.
	b.Buffer(make([]byte, 0, 64<<10), 16<<20)
	return &Scanner{b: b}
}

// Scan decodes the next alignment row into rec and reports whether it
// succeeded. Once Scan returns false it never returns true again; check
// Err to distinguish end of stream from a malformed row.
func (s *Scanner) Scan(rec *Record) bool {
	if s.err != nil {
		return false
	}
	for s.b.Scan() {
		s.line++
		line := s.b.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '@' {
			s.header = append(s.header, line)
			continue
		}
		if err := parseInto(rec, line); err != nil {
			s.err = fmt.Errorf("line %d: %v", s.line, err)
			return false
		}
		return true
	}
	s.err = s.b.Err()
	return false
}

// Header returns the header lines seen so far. SAM headers precede all
// alignment rows, so the slice is complete once Scan has returned the
// first record.
func (s *Scanner) Header() []string { return s.header }

// Err returns the first error encountered, or nil at a clean end of
// stream.
func (s *Scanner) Err() error { return s.err }

// Read loads every alignment row of the SAM text file at path, which may
// be compressed. The header lines are returned separately, in input
// order.
func Read(path string) (header []string, recs []*Record, err error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	sc := NewScanner(r)
	rec := &Record{}
	for sc.Scan(rec) {
		recs = append(recs, rec)
		rec = &Record{}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("%s: %v", path, err)
	}
	return sc.Header(), recs, nil
}

// Writer emits SAM text. Write errors are sticky; call Flush once at the
// end and check its result.
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter constructs a Writer emitting SAM text to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteHeader writes the given header lines.
func (w *Writer) WriteHeader(lines []string) {
	for _, line := range lines {
		w.writeln(line)
	}
}

// Write writes one alignment row.
func (w *Writer) Write(r *Record) {
	w.writeln(r.String())
}

func (w *Writer) writeln(line string) {
	if w.err != nil {
		return
	}
	if _, err := w.w.WriteString(line); err != nil {
		w.err = err
		return
	}
	w.err = w.w.WriteByte('\n')
}

// Flush flushes buffered rows and returns the first error encountered by
// this writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}
