// Package orf prepares, scores and exports open-reading-frame candidates on
// long-read transcript models.
//
// A candidate is a genomic ORF span tied to the transcript it was called on.
// The package covers the coordinate plumbing around an ORF-calling pass:
// cutting candidate spans out of their source transcripts as BED sub-records
// (export.go), formatting transcript sequences for a splice-site style
// start/stop predictor and trimming models to its calls (translationai.go),
// matching candidates against homology projections (toga.go), collapsing
// duplicate sequences and splitting work into aligner-sized chunks
// (blast.go, chunk.go), and turning classifier probabilities into the final
// coding and non-coding row sets (classify.go, results.go).
//
// External tools (the ORF finder, the aligner, the predictor, the projection
// pipeline) run elsewhere; this package only produces their inputs and
// consumes their outputs.
package orf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alejandrogzi/isopipe/encoding/bed"
)

// Span is a stranded genomic interval in 0-based half-open coordinates.
type Span struct {
	Chrom  string
	Start  int
	Stop   int
	Strand byte // '+' or '-'
}

// ParseSpan parses the pipe-separated chrom|start|stop|strand form used in
// candidate tables.
func ParseSpan(s string) (Span, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 4 {
		return Span{}, fmt.Errorf("orf: malformed span %q: want chrom|start|stop|strand", s)
	}
	start, err := strconv.Atoi(parts[1])
	if err != nil {
		return Span{}, fmt.Errorf("orf: malformed span %q: %v", s, err)
	}
	stop, err := strconv.Atoi(parts[2])
	if err != nil {
		return Span{}, fmt.Errorf("orf: malformed span %q: %v", s, err)
	}
	if parts[3] != "+" && parts[3] != "-" {
		return Span{}, fmt.Errorf("orf: malformed span %q: bad strand", s)
	}
	return Span{Chrom: parts[0], Start: start, Stop: stop, Strand: parts[3][0]}, nil
}

// String renders the span back in chrom|start|stop|strand form.
func (s Span) String() string {
	return fmt.Sprintf("%s|%d|%d|%c", s.Chrom, s.Start, s.Stop, s.Strand)
}

// Len returns the span length in bp.
func (s Span) Len() int { return s.Stop - s.Start }

// SpanOf returns the genomic extent of a record.
func SpanOf(r *bed.Record) Span {
	return Span{Chrom: r.Chrom, Start: r.Start, Stop: r.Stop, Strand: r.Strand}
}

// Candidate is one scored ORF call: a genomic span on its source transcript,
// the evidence vector the classifier scores, and the resulting coding
// probability.
type Candidate struct {
	// Transcript is the id of the model the ORF was called on.
	Transcript string
	// Span is the genomic extent of the ORF.
	Span Span
	// Features is the evidence vector in FeatureNames order.
	Features []float64
	// Probability is the classifier's coding probability.
	Probability float64
	// Overruled marks candidates kept on homology evidence alone,
	// independent of Probability.
	Overruled bool
}
