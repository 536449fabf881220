package clipcorrect

// Stats represents high-level statistics for one correction run.
type Stats struct {
	// Transcripts is the # of annotation transcripts read.
	Transcripts int
	// Exons is the # of exons after the per-block split.
	Exons int
	// InternalExons is the # of exons eligible for boundary matching.
	InternalExons int
	// Rows is the # of alignment rows scanned, headers excluded.
	Rows int
	// Candidates is the # of rows carrying a 3' clip of at least the
	// cutoff, indexed for boundary matching.
	Candidates int
	// MissingClip is the # of rows whose name lacks a clip-length token.
	MissingClip int
	// BadMeta is the # of rows whose name tokens failed to parse.
	BadMeta int
	// Unplaced is the # of rows whose reference span could not be
	// computed (unmapped or malformed CIGAR).
	Unplaced int
	// Matched is the # of (read, exon) pairs whose end positions agreed
	// within the wiggle tolerance.
	Matched int
	// MatchedWiggle is the subset of Matched pairs with a nonzero offset.
	MatchedWiggle int
	// Hits is the # of pairs whose clip matched the downstream exon
	// prefix.
	Hits int
	// Mismatches is the # of pairs rejected by the sequence comparison.
	Mismatches int
	// SeqMisses is the # of pairs dropped because the downstream exon
	// sequence was not retrievable from the genome.
	SeqMisses int
	// Corrected is the # of reads whose primary alignment was rewritten.
	Corrected int
	// Secondary is the # of additional distinct corrections emitted with
	// the secondary-alignment flag set.
	Secondary int
	// Collapsed is the # of duplicate corrected rows dropped.
	Collapsed int
	// EditFailures is the # of corrections abandoned because the CIGAR
	// edit was not applicable; the affected rows pass through unmodified.
	EditFailures int
	// Passthrough is the # of input rows emitted unmodified.
	Passthrough int
}

// Merge adds the field values of the two Stats objects and creates new
// Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Transcripts += o.Transcripts
	s.Exons += o.Exons
	s.InternalExons += o.InternalExons
	s.Rows += o.Rows
	s.Candidates += o.Candidates
	s.MissingClip += o.MissingClip
	s.BadMeta += o.BadMeta
	s.Unplaced += o.Unplaced
	s.Matched += o.Matched
	s.MatchedWiggle += o.MatchedWiggle
	s.Hits += o.Hits
	s.Mismatches += o.Mismatches
	s.SeqMisses += o.SeqMisses
	s.Corrected += o.Corrected
	s.Secondary += o.Secondary
	s.Collapsed += o.Collapsed
	s.EditFailures += o.EditFailures
	s.Passthrough += o.Passthrough
	return s
}
