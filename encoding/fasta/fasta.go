// Package fasta provides genome sequence lookup for coordinate-space
// operations: extraction of raw subsequences by 0-based half-open interval,
// and extraction of spliced transcript sequences from block-structured BED
// records (concatenated exon blocks, reverse-complemented for '-' strand
// features, the way twoBitToFa -bed emits them).
//
// FASTA input consists of named sequences that may wrap across lines:
//
//	>chr7 optional description
//	ACGTAC
//	GAGGAC
//
// The sequence name is the text between '>' and the first space. The whole
// file is held in memory; transcript-scale and single-genome inputs are
// small enough that indexed random access is not worth its complexity here.
package fasta

import (
	"bufio"
	"io"
	"strings"

	"github.com/alejandrogzi/isopipe/encoding/bed"
	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/pkg/errors"
)

// Fasta is the genome-sequence collaborator: random access to named
// sequences by 0-based half-open coordinates.
type Fasta interface {
	// Get returns the bases of seqName in [start, end).
	Get(seqName string, start, end int) (string, error)

	// Len returns the length of seqName.
	Len(seqName string) (int, error)

	// SeqNames returns all sequence names in file order.
	SeqNames() []string
}

type memFasta struct {
	seqs  map[string]string
	names []string
}

// New reads all FASTA data from r into memory.
func New(r io.Reader) (Fasta, error) {
	f := &memFasta{seqs: make(map[string]string)}
	var (
		name string
		seq  strings.Builder
	)
	flush := func() {
		if name != "" {
			f.seqs[name] = seq.String()
			f.names = append(f.names, name)
			seq.Reset()
		}
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<30)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			flush()
			name = strings.SplitN(line[1:], " ", 2)[0]
			if name == "" {
				return nil, errors.Errorf("fasta: empty sequence name in header %q", line)
			}
			if _, ok := f.seqs[name]; ok {
				return nil, errors.Errorf("fasta: duplicate sequence %s", name)
			}
			// Reserve the name so an empty trailing sequence still registers.
			f.seqs[name] = ""
			continue
		}
		if name == "" {
			return nil, errors.New("fasta: sequence data before first header")
		}
		seq.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "fasta: read failed")
	}
	flush()
	return f, nil
}

// NewFromPath reads a FASTA file, transparently decompressing by extension.
func NewFromPath(path string) (f Fasta, err error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	return New(r)
}

// Get implements Fasta.
func (f *memFasta) Get(seqName string, start, end int) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("fasta: sequence not found: %s", seqName)
	}
	if start < 0 || start >= end {
		return "", errors.Errorf("fasta: invalid range [%d, %d) for %s", start, end, seqName)
	}
	if end > len(s) {
		return "", errors.Errorf("fasta: range [%d, %d) past end of %s (%dbp)",
			start, end, seqName, len(s))
	}
	return s[start:end], nil
}

// Len implements Fasta.
func (f *memFasta) Len(seqName string) (int, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("fasta: sequence not found: %s", seqName)
	}
	return len(s), nil
}

// SeqNames implements Fasta.
func (f *memFasta) SeqNames() []string {
	return f.names
}

// Extract returns the spliced sequence of a block-structured record: block
// subsequences concatenated in genomic order, reverse-complemented when the
// record is on '-' so the result reads in transcription direction.
func Extract(f Fasta, rec *bed.Record) (string, error) {
	var sb strings.Builder
	sb.Grow(rec.TotalBlockLen())
	for i := 0; i < rec.BlockCount; i++ {
		start := rec.Start + rec.BlockStarts[i]
		s, err := f.Get(rec.Chrom, start, start+rec.BlockLens[i])
		if err != nil {
			return "", errors.Wrapf(err, "extracting %s block %d", rec.ID, i)
		}
		sb.WriteString(s)
	}
	if rec.Strand == '-' {
		return ReverseComplement(sb.String()), nil
	}
	return sb.String(), nil
}

var complement [256]byte

func init() {
	for i := range complement {
		complement[i] = 'N'
		if i >= 'a' && i <= 'z' {
			complement[i] = 'n'
		}
	}
	for _, p := range []struct{ from, to byte }{
		{'A', 'T'}, {'C', 'G'}, {'G', 'C'}, {'T', 'A'}, {'N', 'N'},
	} {
		complement[p.from] = p.to
		complement[p.from+'a'-'A'] = p.to + 'a' - 'A'
	}
}

// ReverseComplement returns the reverse complement, preserving case.
// Ambiguity codes map to N.
func ReverseComplement(seq string) string {
	out := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		out[len(seq)-1-i] = complement[seq[i]]
	}
	return string(out)
}

// Writer emits FASTA records, one sequence per line (the shape the
// downstream per-transcript tools consume; wrapping is a display nicety the
// reader side does not require).
type Writer struct {
	w *bufio.Writer
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write emits one named sequence.
func (w *Writer) Write(name, seq string) error {
	if err := w.w.WriteByte('>'); err != nil {
		return err
	}
	if _, err := w.w.WriteString(name); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if _, err := w.w.WriteString(seq); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Flush flushes buffered output.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
