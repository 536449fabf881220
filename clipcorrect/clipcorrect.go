// Package clipcorrect rescues spliced long-read alignments whose 3' end
// stops at an exon boundary with a short soft-clipped tail. When the
// clipped bases reproduce the start of the next annotated exon, the
// alignment did not really end: the tail belongs across the intron. The
// corrector rewrites such alignments, replacing part of the soft clip
// with an intron skip and a sequence-match operation, and zeroes the
// clip-length token in the read name.
//
// Matching is annotation-driven. Every internal exon 3' end is compared,
// within a +-wiggle tolerance, against the 3' ends of clip-carrying
// reads on the same chromosome and strand; surviving pairs are confirmed
// by comparing the clipped sequence to the downstream exon prefix.
package clipcorrect

import (
	"fmt"
	"strings"

	"github.com/alejandrogzi/isopipe/cigar"
	"github.com/alejandrogzi/isopipe/encoding/bed"
	"github.com/alejandrogzi/isopipe/encoding/fasta"
	"github.com/alejandrogzi/isopipe/encoding/samtext"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/sam"
)

// endKey addresses one strand-aware 3' end position.
type endKey struct {
	Chrom  string
	Pos    int
	Strand byte
}

// span is an alignment's reference span in zero-based half-open
// coordinates.
type span struct {
	start, end int
}

// candidate pairs a clip-carrying read with an internal exon whose 3'
// end matched the read's end at the given genomic offset.
type candidate struct {
	read   string
	exon   Exon
	offset int
}

// hit is a candidate confirmed by the sequence comparison.
type hit struct {
	read string
	// clipSeq is the frame-shifted clip in transcription orientation.
	clipSeq string
	// oriented is the match offset in transcription direction. Positive
	// means the aligned part overshot the exon boundary.
	oriented int
	down     Exon
}

type corrector struct {
	opts   Opts
	genome fasta.Fasta
	stats  Stats

	exons    map[ExonKey]Exon
	internal []Exon

	rows    []*samtext.Record
	byName  map[string]*samtext.Record // last row wins for repeated names
	windows map[string]string          // read name -> stored clip + context bases
	spans   map[string]span
	ends    map[endKey][]string

	downSeq map[ExonKey]string // downstream exon sequence cache

	debug debugState
}

func newCorrector(genome fasta.Fasta, opts Opts) *corrector {
	if opts.Wiggle < 0 {
		opts.Wiggle = -opts.Wiggle
	}
	return &corrector{
		opts:    opts,
		genome:  genome,
		exons:   map[ExonKey]Exon{},
		byName:  map[string]*samtext.Record{},
		windows: map[string]string{},
		spans:   map[string]span{},
		ends:    map[endKey][]string{},
		downSeq: map[ExonKey]string{},
	}
}

// Correct rewrites alignments whose 3' soft clip matches the start of
// the next annotated exon. annotationPath is the transcript BED12,
// samPath the alignment SAM text (either may be compressed), genome the
// reference sequence provider. The corrected SAM is written to outPath
// with the input header preserved.
func Correct(annotationPath, samPath, outPath string, genome fasta.Fasta, opts Opts) (Stats, error) {
	transcripts, err := bed.ReadRecords(annotationPath)
	if err != nil {
		return Stats{}, err
	}
	header, rows, err := samtext.Read(samPath)
	if err != nil {
		return Stats{}, err
	}
	c := newCorrector(genome, opts)
	c.loadAnnotation(transcripts)
	c.loadAlignments(rows)
	out, err := c.run()
	if err != nil {
		return c.stats, err
	}
	if err := writeSAM(outPath, header, out); err != nil {
		return c.stats, err
	}
	if opts.Debug {
		if err := c.writeDebug(header); err != nil {
			return c.stats, err
		}
	}
	log.Printf("clipcorrect: %d/%d candidate reads corrected (%d secondary, %d collapsed), %d comparisons failed, %d rows passed through",
		c.stats.Corrected, c.stats.Candidates, c.stats.Secondary, c.stats.Collapsed,
		c.stats.Mismatches, c.stats.Passthrough)
	return c.stats, nil
}

// CorrectRecords runs the correction over already-loaded inputs and
// returns the output rows, headers excluded, in emission order:
// corrected reads first, then every uncorrected input row in input
// order.
func CorrectRecords(transcripts []*bed.Record, rows []*samtext.Record, genome fasta.Fasta, opts Opts) ([]*samtext.Record, Stats, error) {
	c := newCorrector(genome, opts)
	c.loadAnnotation(transcripts)
	c.loadAlignments(rows)
	out, err := c.run()
	return out, c.stats, err
}

func (c *corrector) loadAnnotation(transcripts []*bed.Record) {
	c.stats.Transcripts = len(transcripts)
	exons := SplitExons(transcripts)
	c.stats.Exons = len(exons)
	for _, ex := range exons {
		c.exons[ex.Key] = ex
		if ex.Internal {
			c.internal = append(c.internal, ex)
		}
	}
	c.stats.InternalExons = len(c.internal)
}

func (c *corrector) loadAlignments(rows []*samtext.Record) {
	c.rows = rows
	c.stats.Rows = len(rows)
	for _, row := range rows {
		name := row.Name()
		c.byName[name] = row
		meta, err := samtext.ParseMeta(name)
		if err != nil {
			log.Error.Printf("clipcorrect: %v; row excluded from correction", err)
			c.stats.BadMeta++
			continue
		}
		if meta.Clip < 0 {
			log.Printf("clipcorrect: read %q carries no clip-length token; row excluded from correction", name)
			c.stats.MissingClip++
			continue
		}
		if meta.Clip < c.opts.ClipCutoff {
			continue
		}
		start, end, err := row.Span()
		if err != nil {
			if row.CigarString() != "*" {
				log.Error.Printf("clipcorrect: read %q: %v; row excluded from correction", name, err)
			}
			c.stats.Unplaced++
			continue
		}
		c.windows[name] = clipWindow(row.Seq(), meta.Clip, meta.PolyA, c.opts.Wiggle, row.Reverse())
		c.spans[name] = span{start, end}
		pos := end
		if row.Reverse() {
			pos = start
		}
		key := endKey{Chrom: row.Ref(), Pos: pos, Strand: row.Strand()}
		c.ends[key] = append(c.ends[key], name)
		c.stats.Candidates++
	}
}

// clipWindow cuts the stored 3' clip plus up to wiggle context bases out
// of a read sequence. On forward reads the clip sits at the end of the
// sequence, just before the trimmed poly-A tail; on reverse reads the
// stored sequence is reverse-complemented, so the clip follows the tail
// at the front. Out-of-range bounds clamp to the sequence.
func clipWindow(seq string, clip, polyA, wiggle int, reverse bool) string {
	if reverse {
		lo := clampInt(polyA, 0, len(seq))
		hi := clampInt(polyA+clip+wiggle, lo, len(seq))
		return seq[lo:hi]
	}
	hi := clampInt(len(seq)-polyA, 0, len(seq))
	lo := clampInt(hi-clip-wiggle, 0, hi)
	return seq[lo:hi]
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (c *corrector) run() ([]*samtext.Record, error) {
	corrected := map[string][]string{} // read -> distinct corrected CIGARs
	var order []string                 // reads in first-hit order
	outByRead := map[string][]*samtext.Record{}

	for _, cand := range c.match() {
		h, ok, err := c.evaluate(cand)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		row, err := c.rewrite(h)
		if err != nil {
			log.Error.Printf("clipcorrect: read %q: %v; row left uncorrected", h.read, err)
			c.stats.EditFailures++
			continue
		}
		seen := corrected[h.read]
		switch {
		case len(seen) == 0:
			corrected[h.read] = []string{row.CigarString()}
			order = append(order, h.read)
			outByRead[h.read] = []*samtext.Record{row}
			c.stats.Corrected++
		case containsString(seen, row.CigarString()):
			c.stats.Collapsed++
			if c.opts.Debug {
				c.debug.collapsed = append(c.debug.collapsed, row)
			}
		default:
			corrected[h.read] = append(seen, row.CigarString())
			row.SetFlag((c.byName[h.read].Flag() & int(sam.Reverse)) | int(sam.Secondary))
			outByRead[h.read] = append(outByRead[h.read], row)
			c.stats.Secondary++
		}
	}

	out := make([]*samtext.Record, 0, len(c.rows))
	for _, name := range order {
		out = append(out, outByRead[name]...)
	}
	for _, row := range c.rows {
		if _, ok := corrected[row.Name()]; ok {
			continue
		}
		out = append(out, row)
		c.stats.Passthrough++
	}
	return out, nil
}

func (c *corrector) match() []candidate {
	var cands []candidate
	for _, ex := range c.internal {
		for i := -c.opts.Wiggle; i <= c.opts.Wiggle; i++ {
			reads := c.ends[endKey{Chrom: ex.Chrom, Pos: ex.ThreePrimeEnd() + i, Strand: ex.Strand}]
			if len(reads) == 0 {
				continue
			}
			c.stats.Matched += len(reads)
			if i != 0 {
				c.stats.MatchedWiggle += len(reads)
				if c.opts.Debug {
					c.debug.wiggle = append(c.debug.wiggle, wiggleMatch{exon: ex.Key, reads: reads, offset: i})
				}
			}
			for _, name := range reads {
				cands = append(cands, candidate{read: name, exon: ex, offset: i})
			}
		}
	}
	return cands
}

// evaluate confirms or rejects a candidate by comparing its
// frame-shifted clip against the downstream exon prefix. A missing
// downstream exon violates the internal-exon invariant and is an error;
// a missing sequence is a per-candidate warning.
func (c *corrector) evaluate(cand candidate) (hit, bool, error) {
	down, ok := c.exons[cand.exon.Downstream()]
	if !ok {
		return hit{}, false, fmt.Errorf("clipcorrect: internal exon %s has no downstream exon %s",
			cand.exon.Key, cand.exon.Downstream())
	}
	downSeq, err := c.downstreamSeq(down)
	if err != nil {
		log.Error.Printf("clipcorrect: exon %s: %v; candidate skipped", down.Key, err)
		c.stats.SeqMisses++
		return hit{}, false, nil
	}

	window := c.windows[cand.read]
	oriented := cand.offset
	if cand.exon.Strand == '-' {
		oriented = -oriented
		window = fasta.ReverseComplement(window)
	}
	// A positive oriented offset means the last bases of the aligned part
	// already belong to the downstream exon: move the comparison frame
	// forward so they count toward the clip.
	shift := c.opts.Wiggle - oriented
	if shift > len(window) {
		shift = len(window)
	}
	clipSeq := window[shift:]

	match := false
	if len(clipSeq) > c.opts.ClipCutoff && len(downSeq) >= len(clipSeq) {
		match = strings.EqualFold(clipSeq, downSeq[:len(clipSeq)])
	}
	if c.opts.Debug {
		c.debug.addComparison(cand, down, clipSeq, downSeq, oriented, match)
	}
	if !match {
		c.stats.Mismatches++
		if c.opts.Debug {
			c.debug.markDiscarded(cand.read, c.byName[cand.read])
		}
		return hit{}, false, nil
	}
	c.stats.Hits++
	return hit{read: cand.read, clipSeq: clipSeq, oriented: oriented, down: down}, true, nil
}

func (c *corrector) downstreamSeq(ex Exon) (string, error) {
	if seq, ok := c.downSeq[ex.Key]; ok {
		return seq, nil
	}
	seq, err := fasta.Extract(c.genome, ex.Record())
	if err != nil {
		return "", err
	}
	c.downSeq[ex.Key] = seq
	return seq, nil
}

// rewrite applies the correction to a copy of the read's row. The clip
// bases move out of the terminal soft clip into a new sequence-match
// operation placed after an intron skip covering the distance to the
// downstream exon.
func (c *corrector) rewrite(h hit) (*samtext.Record, error) {
	orig := c.byName[h.read]
	ed, err := cigar.Parse(orig.CigarString())
	if err != nil {
		return nil, err
	}
	out := orig.Clone()
	sp := c.spans[h.read]
	lenClip := len(h.clipSeq)
	if orig.Reverse() {
		aw := h.oriented
		if aw < 0 {
			aw = -aw
		}
		dist := sp.start - h.down.Stop
		if gap := dist + aw; gap <= 0 {
			return nil, fmt.Errorf("nonpositive intron gap %d", gap)
		}
		if err := ed.Grow(1, -aw); err != nil {
			return nil, err
		}
		ed.Insert(1, sam.NewCigarOp(sam.CigarSkipped, dist+aw))
		ed.Insert(1, sam.NewCigarOp(sam.CigarEqual, lenClip))
		if err := ed.Grow(0, -(lenClip - aw)); err != nil {
			return nil, err
		}
		if h.oriented < 0 {
			dist++
		}
		out.SetCigar(ed.String())
		out.SetPos(orig.Pos() - dist - lenClip)
	} else {
		w := h.oriented
		dist := h.down.Start - sp.end
		if gap := dist + w; gap <= 0 {
			return nil, fmt.Errorf("nonpositive intron gap %d", gap)
		}
		if err := ed.Grow(-2, -w); err != nil {
			return nil, err
		}
		ed.Insert(-1, sam.NewCigarOp(sam.CigarSkipped, dist+w))
		ed.Insert(-1, sam.NewCigarOp(sam.CigarEqual, lenClip))
		if err := ed.Grow(-1, -(lenClip - w)); err != nil {
			return nil, err
		}
		out.SetCigar(ed.String())
	}
	out.SetName(samtext.ZeroClip(orig.Name()))
	return out, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func writeSAM(path string, header []string, rows []*samtext.Record) (err error) {
	ctx := vcontext.Background()
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := samtext.NewWriter(out.Writer(ctx))
	w.WriteHeader(header)
	for _, row := range rows {
		w.Write(row)
	}
	return w.Flush()
}
