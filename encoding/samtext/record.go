// Package samtext reads and writes SAM alignment rows as tab-separated
// text. Only the columns the clip-correction pipeline touches (read name,
// flag, position, CIGAR, sequence) are decoded; every other column,
// including optional tags, round-trips byte for byte.
package samtext

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alejandrogzi/isopipe/cigar"
	"github.com/grailbio/hts/sam"
)

// Mandatory SAM column indexes.
const (
	colName  = 0
	colFlag  = 1
	colRef   = 2
	colPos   = 3
	colCigar = 5
	colSeq   = 9

	// A SAM alignment row has eleven mandatory columns.
	minCols = 11
)

// Record is one SAM alignment row. Fill it with Parse or Scanner.Scan.
type Record struct {
	cols []string
	flag int
	pos  int // 1-based leftmost mapping position
}

// Parse decodes one tab-separated alignment row.
func Parse(line string) (*Record, error) {
	r := &Record{}
	if err := parseInto(r, line); err != nil {
		return nil, err
	}
	return r, nil
}

func parseInto(r *Record, line string) error {
	cols := strings.Split(line, "\t")
	if len(cols) < minCols {
		return fmt.Errorf("sam: %d columns, want >= %d", len(cols), minCols)
	}
	flag, err := strconv.Atoi(cols[colFlag])
	if err != nil {
		return fmt.Errorf("sam: bad flag %q: %v", cols[colFlag], err)
	}
	pos, err := strconv.Atoi(cols[colPos])
	if err != nil {
		return fmt.Errorf("sam: bad position %q: %v", cols[colPos], err)
	}
	r.cols = cols
	r.flag = flag
	r.pos = pos
	return nil
}

// Name returns the read name (column 1).
func (r *Record) Name() string { return r.cols[colName] }

// SetName replaces the read name.
func (r *Record) SetName(name string) { r.cols[colName] = name }

// Flag returns the bitwise flag (column 2).
func (r *Record) Flag() int { return r.flag }

// SetFlag replaces the bitwise flag.
func (r *Record) SetFlag(flag int) {
	r.flag = flag
	r.cols[colFlag] = strconv.Itoa(flag)
}

// Reverse reports whether the reverse-strand bit is set.
func (r *Record) Reverse() bool { return sam.Flags(r.flag)&sam.Reverse != 0 }

// Strand returns '-' for reverse-strand alignments and '+' otherwise.
func (r *Record) Strand() byte {
	if r.Reverse() {
		return '-'
	}
	return '+'
}

// Ref returns the reference (chromosome) name, column 3.
func (r *Record) Ref() string { return r.cols[colRef] }

// Pos returns the 1-based leftmost mapping position (column 4).
func (r *Record) Pos() int { return r.pos }

// SetPos replaces the 1-based leftmost mapping position.
func (r *Record) SetPos(pos int) {
	r.pos = pos
	r.cols[colPos] = strconv.Itoa(pos)
}

// CigarString returns the CIGAR column verbatim.
func (r *Record) CigarString() string { return r.cols[colCigar] }

// SetCigar replaces the CIGAR column.
func (r *Record) SetCigar(c string) { r.cols[colCigar] = c }

// Seq returns the read sequence (column 10).
func (r *Record) Seq() string { return r.cols[colSeq] }

// Span returns the alignment's reference span in zero-based half-open
// coordinates, computed from the position and the CIGAR's
// reference-consuming length. Unmapped rows ("*" CIGAR) are an error.
func (r *Record) Span() (start, end int, err error) {
	ed, err := cigar.Parse(r.CigarString())
	if err != nil {
		return 0, 0, err
	}
	start = r.pos - 1
	return start, start + ed.RefLen(), nil
}

// Clone returns a copy that shares no state with r.
func (r *Record) Clone() *Record {
	c := *r
	c.cols = append([]string(nil), r.cols...)
	return &c
}

// String reassembles the tab-separated row, without a trailing newline.
func (r *Record) String() string { return strings.Join(r.cols, "\t") }
