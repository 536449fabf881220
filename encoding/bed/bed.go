// Package bed parses and manipulates BED-style transcript annotations.
//
// A Record is a block-structured feature: a spliced transcript with exon
// blocks in BED12 form, or a plain interval in BED6/8/9 form. The package
// provides strand-aware conversion between genomic, block-walk and sequence
// coordinate spaces (coord.go), plus destructive trim operations that cut a
// record down to ORF or prediction boundaries while keeping its block
// structure consistent (trim.go).
//
// All coordinates are 0-based, half-open [start, stop), matching the BED
// convention. Block lengths and offsets are stored in genomic order
// regardless of strand; strand only changes how sequence-space positions are
// interpreted.
package bed

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
)

// FormatError reports a structurally invalid BED row: wrong column count,
// unparseable numeric field, or inconsistent block arrays. Loading aborts on
// the first FormatError since downstream indices assume valid structure.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string { return e.Msg }

func formatErrorf(format string, args ...interface{}) error {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// OutOfRangeError reports a position that does not fall inside any block of
// a record: outside [start, stop], inside an intron, or a walked offset past
// the total block length.
type OutOfRangeError struct {
	ID  string // record id
	Pos int    // offending genomic position or walked offset
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("bed: position %d not in a block of %s", e.Pos, e.ID)
}

// InvalidTrimError reports a trim that would consume a record entirely.
// Trims must leave at least one block with positive length.
type InvalidTrimError struct {
	ID    string
	Bp    int // requested trim amount
	Total int // total block length available
}

func (e *InvalidTrimError) Error() string {
	return fmt.Sprintf("bed: cannot trim %dbp from %s (%dbp total)", e.Bp, e.ID, e.Total)
}

// IsOutOfRange reports whether err is an OutOfRangeError.
func IsOutOfRange(err error) bool {
	_, ok := err.(*OutOfRangeError)
	return ok
}

// IsInvalidTrim reports whether err is an InvalidTrimError.
func IsInvalidTrim(err error) bool {
	_, ok := err.(*InvalidTrimError)
	return ok
}

// Record is one BED row. Rows with fewer than 12 columns carry a single
// implicit block spanning [Start, Stop) and an implicit thick span equal to
// the full extent, so every coordinate operation works uniformly across
// column shapes. Serialization reproduces the original column count.
type Record struct {
	Chrom  string
	Start  int
	Stop   int
	ID     string
	Score  string
	Strand byte // '+' or '-'

	// ThickStart/ThickStop bound the coding sub-span. Trims clamp them so
	// Start <= ThickStart <= ThickStop <= Stop holds after every mutation.
	ThickStart int
	ThickStop  int
	RGB        string

	BlockCount  int
	BlockLens   []int
	BlockStarts []int

	ncols int // 6, 8, 9 or 12; the shape String() writes back
}

// New returns a six-column record spanning [start, stop) with one implicit
// block.
func New(chrom string, start, stop int, id, score string, strand byte) *Record {
	return &Record{
		Chrom:       chrom,
		Start:       start,
		Stop:        stop,
		ID:          id,
		Score:       score,
		Strand:      strand,
		ThickStart:  start,
		ThickStop:   stop,
		BlockCount:  1,
		BlockLens:   []int{stop - start},
		BlockStarts: []int{0},
		ncols:       6,
	}
}

// NewThick returns a nine-column record: a six-column record plus explicit
// thick bounds and an item color.
func NewThick(chrom string, start, stop int, id, score string, strand byte, thickStart, thickStop int, rgb string) *Record {
	r := New(chrom, start, stop, id, score, strand)
	r.ThickStart = thickStart
	r.ThickStop = thickStop
	r.RGB = rgb
	r.ncols = 9
	return r
}

// NCols returns the column count the record was parsed with (6, 8, 9 or 12).
func (r *Record) NCols() int { return r.ncols }

// Clone returns a deep copy. Callers must clone before speculative trims so
// the original record stays usable; block slices are never shared between a
// record and its clone.
func (r *Record) Clone() *Record {
	c := *r
	c.BlockLens = append([]int(nil), r.BlockLens...)
	c.BlockStarts = append([]int(nil), r.BlockStarts...)
	return &c
}

// ParseRecord parses a single tab-separated BED row with exactly 6, 8, 9 or
// 12 columns. Block arrays may carry a trailing comma. The row is validated
// structurally: ordered non-overlapping blocks, positive lengths, matching
// array sizes, and stop == start + last offset + last length.
func ParseRecord(line string) (*Record, error) {
	cols := strings.Split(line, "\t")
	switch len(cols) {
	case 6, 8, 9, 12:
	default:
		return nil, formatErrorf("bed: %d columns, want 6, 8, 9 or 12", len(cols))
	}
	r := &Record{ncols: len(cols)}
	r.Chrom = cols[0]
	var err error
	if r.Start, err = parseInt(cols[1], "start"); err != nil {
		return nil, err
	}
	if r.Stop, err = parseInt(cols[2], "stop"); err != nil {
		return nil, err
	}
	r.ID = cols[3]
	r.Score = cols[4]
	if len(cols[5]) != 1 || (cols[5][0] != '+' && cols[5][0] != '-') {
		return nil, formatErrorf("bed: bad strand %q for %s", cols[5], r.ID)
	}
	r.Strand = cols[5][0]
	if r.Start < 0 || r.Start >= r.Stop {
		return nil, formatErrorf("bed: bad span [%d, %d) for %s", r.Start, r.Stop, r.ID)
	}
	if len(cols) >= 8 {
		if r.ThickStart, err = parseInt(cols[6], "thickStart"); err != nil {
			return nil, err
		}
		if r.ThickStop, err = parseInt(cols[7], "thickStop"); err != nil {
			return nil, err
		}
		if r.ThickStart > r.ThickStop || r.ThickStart < r.Start || r.ThickStop > r.Stop {
			return nil, formatErrorf("bed: thick span [%d, %d) outside [%d, %d) for %s",
				r.ThickStart, r.ThickStop, r.Start, r.Stop, r.ID)
		}
	} else {
		r.ThickStart = r.Start
		r.ThickStop = r.Stop
	}
	if len(cols) >= 9 {
		r.RGB = cols[8]
	}
	if len(cols) == 12 {
		if r.BlockCount, err = parseInt(cols[9], "blockCount"); err != nil {
			return nil, err
		}
		if r.BlockLens, err = parseIntList(cols[10], "blockSizes"); err != nil {
			return nil, err
		}
		if r.BlockStarts, err = parseIntList(cols[11], "blockStarts"); err != nil {
			return nil, err
		}
		if err = r.validateBlocks(); err != nil {
			return nil, err
		}
	} else {
		r.BlockCount = 1
		r.BlockLens = []int{r.Stop - r.Start}
		r.BlockStarts = []int{0}
	}
	return r, nil
}

func (r *Record) validateBlocks() error {
	if r.BlockCount < 1 {
		return formatErrorf("bed: blockCount %d for %s", r.BlockCount, r.ID)
	}
	if len(r.BlockLens) != r.BlockCount || len(r.BlockStarts) != r.BlockCount {
		return formatErrorf("bed: %s has blockCount %d but %d sizes and %d starts",
			r.ID, r.BlockCount, len(r.BlockLens), len(r.BlockStarts))
	}
	for i := 0; i < r.BlockCount; i++ {
		if r.BlockLens[i] <= 0 {
			return formatErrorf("bed: %s block %d has length %d", r.ID, i, r.BlockLens[i])
		}
		if r.BlockStarts[i] < 0 {
			return formatErrorf("bed: %s block %d has offset %d", r.ID, i, r.BlockStarts[i])
		}
		if i > 0 && r.BlockStarts[i-1]+r.BlockLens[i-1] > r.BlockStarts[i] {
			return formatErrorf("bed: %s blocks %d and %d overlap or are unordered", r.ID, i-1, i)
		}
	}
	last := r.BlockCount - 1
	if r.Start+r.BlockStarts[last]+r.BlockLens[last] != r.Stop {
		return formatErrorf("bed: %s blocks end at %d, want stop %d",
			r.ID, r.Start+r.BlockStarts[last]+r.BlockLens[last], r.Stop)
	}
	return nil
}

func parseInt(s, what string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, formatErrorf("bed: bad %s %q", what, s)
	}
	return n, nil
}

func parseIntList(s, what string) ([]int, error) {
	s = strings.TrimSuffix(s, ",")
	if s == "" {
		return nil, formatErrorf("bed: empty %s", what)
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, formatErrorf("bed: bad %s element %q", what, p)
		}
		out[i] = n
	}
	return out, nil
}

func joinInts(xs []int) string {
	var sb strings.Builder
	for i, x := range xs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(x))
	}
	return sb.String()
}

// String serializes the record at its original column count. Block arrays
// are written without a trailing comma.
func (r *Record) String() string {
	cols := make([]string, 0, r.ncols)
	cols = append(cols, r.Chrom,
		strconv.Itoa(r.Start), strconv.Itoa(r.Stop),
		r.ID, r.Score, string(r.Strand))
	if r.ncols >= 8 {
		cols = append(cols, strconv.Itoa(r.ThickStart), strconv.Itoa(r.ThickStop))
	}
	if r.ncols >= 9 {
		cols = append(cols, r.RGB)
	}
	if r.ncols == 12 {
		cols = append(cols, strconv.Itoa(r.BlockCount),
			joinInts(r.BlockLens), joinInts(r.BlockStarts))
	}
	return strings.Join(cols, "\t")
}

// ReadRecords parses every row of a BED file. Gzipped files are detected by
// extension. Empty lines and lines starting with '#', "track" or "browser"
// are skipped. The first malformed row aborts the load.
func ReadRecords(path string) (recs []*Record, err error) {
	ctx := vcontext.Background()
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		if reader, err = gzip.NewReader(reader); err != nil {
			return nil, err
		}
	}
	return readRecords(reader, path)
}

func readRecords(reader io.Reader, path string) ([]*Record, error) {
	var recs []*Record
	scanner := bufio.NewScanner(reader)
	// A BED12 row for a many-exon transcript can exceed Scanner's default
	// 64KiB limit.
	scanner.Buffer(make([]byte, 0, 64<<10), 4<<20)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" || text[0] == '#' ||
			strings.HasPrefix(text, "track") || strings.HasPrefix(text, "browser") {
			continue
		}
		rec, err := ParseRecord(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %v", path, line, err)
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// WriteRecords writes one row per record.
func WriteRecords(path string, recs []*Record) (err error) {
	ctx := vcontext.Background()
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := bufio.NewWriter(out.Writer(ctx))
	for _, r := range recs {
		if _, err = w.WriteString(r.String()); err != nil {
			return err
		}
		if err = w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.Flush()
}
