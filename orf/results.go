package orf

import (
	"fmt"
	"strconv"

	"github.com/alejandrogzi/isopipe/encoding/bed"
)

// Item colors for the predictions track: blue above the threshold, red at
// or below it.
const (
	rgbCoding    = "0,0,255"
	rgbNoncoding = "255,0,0"
)

// WriteResults writes the scored candidates as a nine-column BED track. Each
// row covers the candidate's span with thick bounds to match, named
// <transcript>_<rank>_<probability>, where rank counts the transcript's
// candidates in input order. The score column carries the probability scaled
// to 1000 and the item color encodes the threshold call. Returns the rank of
// each candidate, aligned with cands.
func WriteResults(path string, cands []*Candidate, threshold float64) ([]int, error) {
	ranks := make([]int, len(cands))
	counts := make(map[string]int)
	recs := make([]*bed.Record, len(cands))
	for i, c := range cands {
		rank := counts[c.Transcript]
		counts[c.Transcript]++
		ranks[i] = rank

		rgb := rgbNoncoding
		if c.Probability > threshold {
			rgb = rgbCoding
		}
		recs[i] = bed.NewThick(
			c.Span.Chrom, c.Span.Start, c.Span.Stop,
			fmt.Sprintf("%s_%d_%.4f", c.Transcript, rank, c.Probability),
			formatScore(c.Probability),
			c.Span.Strand,
			c.Span.Start, c.Span.Stop,
			rgb,
		)
	}
	if err := bed.WriteRecords(path, recs); err != nil {
		return nil, err
	}
	return ranks, nil
}

// formatScore scales a probability to the 0-1000 BED score range, keeping
// two decimals.
func formatScore(prob float64) string {
	return strconv.FormatFloat(prob*1000, 'f', 2, 64)
}

// WriteCodingSplit maps candidates back onto their transcript models and
// splits the annotation in two: transcripts with at least one candidate go
// to codingPath, one row per candidate with the thick bounds moved to the
// candidate's span and the score column carrying its probability; the rest
// go to noncodingPath untouched. Overruled candidates get an _OVERRULED name
// suffix.
func WriteCodingSplit(codingPath, noncodingPath string, transcripts []*bed.Record, cands []*Candidate) error {
	byTranscript := make(map[string][]*Candidate)
	for _, c := range cands {
		byTranscript[c.Transcript] = append(byTranscript[c.Transcript], c)
	}
	var coding, noncoding []*bed.Record
	for _, tx := range transcripts {
		group, ok := byTranscript[tx.ID]
		if !ok {
			noncoding = append(noncoding, tx)
			continue
		}
		for _, c := range group {
			rec := tx.Clone()
			rec.ThickStart = c.Span.Start
			rec.ThickStop = c.Span.Stop
			rec.Score = formatScore(c.Probability)
			if c.Overruled {
				rec.ID += "_OVERRULED"
			}
			coding = append(coding, rec)
		}
	}
	if err := bed.WriteRecords(codingPath, coding); err != nil {
		return err
	}
	return bed.WriteRecords(noncodingPath, noncoding)
}
