package clipcorrect

import (
	"fmt"

	"github.com/alejandrogzi/isopipe/encoding/bed"
)

// ExonKey identifies one exon by its transcript name and the exon's
// zero-based index in genomic block order.
type ExonKey struct {
	Transcript string
	Index      int
}

func (k ExonKey) String() string {
	return fmt.Sprintf("%s#%d", k.Transcript, k.Index)
}

// Exon is one block of an annotation transcript, in genomic coordinates.
type Exon struct {
	Key    ExonKey
	Chrom  string
	Start  int // zero-based, inclusive
	Stop   int // zero-based, exclusive
	Strand byte
	// Internal is true when the exon starts and ends strictly inside its
	// transcript's span. Only internal exons have a downstream neighbor
	// to match clipped read ends against.
	Internal bool
}

// ThreePrimeEnd returns the genomic position of the exon's 3' boundary in
// transcription direction: the stop for '+' transcripts, the start for
// '-'.
func (e Exon) ThreePrimeEnd() int {
	if e.Strand == '-' {
		return e.Start
	}
	return e.Stop
}

// Downstream returns the key of the exon immediately following e in
// transcription direction.
func (e Exon) Downstream() ExonKey {
	if e.Strand == '-' {
		return ExonKey{e.Key.Transcript, e.Key.Index - 1}
	}
	return ExonKey{e.Key.Transcript, e.Key.Index + 1}
}

// Record returns the exon as a six-column BED record.
func (e Exon) Record() *bed.Record {
	return bed.New(e.Chrom, e.Start, e.Stop, e.Key.String(), "0", e.Strand)
}

// SplitExons expands annotation transcripts into per-exon records,
// indexed per transcript in genomic block order.
func SplitExons(recs []*bed.Record) []Exon {
	var exons []Exon
	for _, rec := range recs {
		for i := 0; i < rec.BlockCount; i++ {
			start := rec.Start + rec.BlockStarts[i]
			stop := start + rec.BlockLens[i]
			exons = append(exons, Exon{
				Key:      ExonKey{Transcript: rec.ID, Index: i},
				Chrom:    rec.Chrom,
				Start:    start,
				Stop:     stop,
				Strand:   rec.Strand,
				Internal: start != rec.Start && stop != rec.Stop,
			})
		}
	}
	return exons
}
