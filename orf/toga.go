package orf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alejandrogzi/isopipe/encoding/bed"
	"github.com/biogo/store/interval"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Projection is one homology projection: its orthology label, alignment
// identity and substitution score, and whether the projected alignment
// carried masked codons.
type Projection struct {
	ID     string
	Label  string // orthology class, e.g. FI, I, PI
	PID    float64
	Blosum float64
	Masked bool
}

// ReadProjections reads the projection classification table: a headerless
// TSV of id, label, pid and blosum columns, gzipped by convention. A
// non-empty maskedPath additionally marks projections whose query_codon
// column reads MASKED; only the first masked-table row per projection
// counts.
func ReadProjections(resultsPath, maskedPath string) (map[string]*Projection, error) {
	projections := make(map[string]*Projection)
	if err := scanMaybeGzip(resultsPath, func(line int, text string) error {
		cols := strings.Split(text, "\t")
		if len(cols) < 4 {
			return fmt.Errorf("%s:%d: projection row has %d columns, want >= 4", resultsPath, line, len(cols))
		}
		pid, err := strconv.ParseFloat(cols[2], 64)
		if err != nil {
			return fmt.Errorf("%s:%d: bad pid: %v", resultsPath, line, err)
		}
		blosum, err := strconv.ParseFloat(cols[3], 64)
		if err != nil {
			return fmt.Errorf("%s:%d: bad blosum: %v", resultsPath, line, err)
		}
		projections[cols[0]] = &Projection{ID: cols[0], Label: cols[1], PID: pid, Blosum: blosum}
		return nil
	}); err != nil {
		return nil, err
	}
	if maskedPath == "" {
		return projections, nil
	}
	seen := make(map[string]bool)
	if err := scanMaybeGzip(maskedPath, func(line int, text string) error {
		if line == 1 {
			return nil // header
		}
		cols := strings.Split(text, "\t")
		if len(cols) < 7 {
			return fmt.Errorf("%s:%d: masked row has %d columns, want >= 7", maskedPath, line, len(cols))
		}
		if seen[cols[0]] {
			return nil
		}
		seen[cols[0]] = true
		if p, ok := projections[cols[0]]; ok && cols[6] == "MASKED" {
			p.Masked = true
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return projections, nil
}

// scanMaybeGzip streams non-empty lines of a possibly gzipped file to fn
// with 1-based line numbers.
func scanMaybeGzip(path string, fn func(line int, text string) error) (err error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, in, &err)
	reader := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return errors.Wrapf(err, "orf: open %s", path)
		}
		reader = gz
	}
	return forEachLine(reader, fn)
}

// forEachLine streams non-empty lines to fn with 1-based line numbers.
func forEachLine(r io.Reader, fn func(line int, text string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), 4<<20)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		if err := fn(line, text); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Overlap is one qualifying pair from a reciprocal-overlap pass.
type Overlap struct {
	A  *bed.Record // query record
	B  *bed.Record // subject record
	BP int         // span overlap in bp
}

// recInterval adapts a record's span to the interval tree.
type recInterval struct {
	start, end int
	id         uintptr
	rec        *bed.Record
}

func (i recInterval) Overlap(b interval.IntRange) bool {
	// Half-open interval indexing.
	return i.end > b.Start && i.start < b.End
}

func (i recInterval) ID() uintptr { return i.id }

func (i recInterval) Range() interval.IntRange {
	return interval.IntRange{Start: i.start, End: i.end}
}

// ReciprocalOverlap reports every same-strand pair of records from a and b
// whose spans overlap by at least frac of both lengths, the way an
// annotation is matched against exported ORFs. Block structure is ignored;
// the comparison runs on the outer spans. Pairs are emitted in a's input
// order.
func ReciprocalOverlap(a, b []*bed.Record, frac float64) []Overlap {
	trees := make(map[string]map[byte]*interval.IntTree)
	for i, rec := range b {
		byStrand, ok := trees[rec.Chrom]
		if !ok {
			byStrand = map[byte]*interval.IntTree{'+': {}, '-': {}}
			trees[rec.Chrom] = byStrand
		}
		tree, ok := byStrand[rec.Strand]
		if !ok {
			continue
		}
		// Insert cannot fail with fast ordering checks disabled.
		_ = tree.Insert(recInterval{start: rec.Start, end: rec.Stop, id: uintptr(i), rec: rec}, false)
	}
	for _, byStrand := range trees {
		byStrand['+'].AdjustRanges()
		byStrand['-'].AdjustRanges()
	}

	var out []Overlap
	for _, rec := range a {
		byStrand, ok := trees[rec.Chrom]
		if !ok {
			continue
		}
		tree, ok := byStrand[rec.Strand]
		if !ok {
			continue
		}
		lenA := rec.Stop - rec.Start
		query := recInterval{start: rec.Start, end: rec.Stop}
		for _, iv := range tree.Get(query) {
			hit := iv.(recInterval)
			ov := min(rec.Stop, hit.end) - max(rec.Start, hit.start)
			if ov <= 0 {
				continue
			}
			lenB := hit.end - hit.start
			if float64(ov) < frac*float64(lenA) || float64(ov) < frac*float64(lenB) {
				continue
			}
			out = append(out, Overlap{A: rec, B: hit.rec, BP: ov})
		}
	}
	return out
}

func min(a, b int) int {
	if a > b {
		return b
	}
	return a
}

func max(a, b int) int {
	if a < b {
		return b
	}
	return a
}
