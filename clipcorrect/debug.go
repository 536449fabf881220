package clipcorrect

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alejandrogzi/isopipe/encoding/samtext"
	"github.com/antzucaro/matchr"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/base/vcontext"
)

// wiggleMatch records a boundary match at a nonzero offset.
type wiggleMatch struct {
	exon   ExonKey
	reads  []string
	offset int
}

// comparison records one clip-vs-exon sequence comparison.
type comparison struct {
	read     string
	exon     ExonKey
	clipSeq  string
	exonSeq  string
	strand   byte
	oriented int
	match    bool
	// hamming is the mismatch count between the clip and the equally long
	// exon prefix, -1 when the lengths differ.
	hamming int
}

// debugState accumulates the per-stage artifacts written by writeDebug.
type debugState struct {
	wiggle      []wiggleMatch
	comparisons []comparison
	collapsed   []*samtext.Record

	discarded     []*samtext.Record
	discardedSeen map[string]bool

	// matchedClip maps a confirmed read to its last matched clip sequence.
	matchedClip map[string]string
}

func (d *debugState) addComparison(cand candidate, down Exon, clipSeq, downSeq string, oriented int, match bool) {
	hamming := -1
	if len(clipSeq) > 0 && len(downSeq) >= len(clipSeq) {
		prefix := strings.ToUpper(downSeq[:len(clipSeq)])
		if n, err := matchr.Hamming(strings.ToUpper(clipSeq), prefix); err == nil {
			hamming = n
		}
	}
	d.comparisons = append(d.comparisons, comparison{
		read:     cand.read,
		exon:     down.Key,
		clipSeq:  clipSeq,
		exonSeq:  downSeq,
		strand:   cand.exon.Strand,
		oriented: oriented,
		match:    match,
		hamming:  hamming,
	})
	if match {
		if d.matchedClip == nil {
			d.matchedClip = map[string]string{}
		}
		d.matchedClip[cand.read] = clipSeq
	}
}

func (d *debugState) markDiscarded(read string, row *samtext.Record) {
	if d.discardedSeen == nil {
		d.discardedSeen = map[string]bool{}
	}
	if d.discardedSeen[read] {
		return
	}
	d.discardedSeen[read] = true
	d.discarded = append(d.discarded, row)
}

// writeDebug materializes the debug artifacts under opts.DebugDir:
//
//	wiggle_report.tsv   boundary matches at nonzero offsets
//	comparisons.tsv     every clip-vs-exon comparison with its outcome
//	discarded.sam       reads with at least one failed comparison
//	collapsed.sam       duplicate corrected rows that were dropped
//	matched.sam         input rows of confirmed reads, clip appended to the name
func (c *corrector) writeDebug(header []string) error {
	dir := c.opts.DebugDir
	if err := c.writeWiggleReport(filepath.Join(dir, "wiggle_report.tsv")); err != nil {
		return err
	}
	if err := c.writeComparisons(filepath.Join(dir, "comparisons.tsv")); err != nil {
		return err
	}
	if err := writeSAM(filepath.Join(dir, "discarded.sam"), header, c.debug.discarded); err != nil {
		return err
	}
	if err := writeSAM(filepath.Join(dir, "collapsed.sam"), header, c.debug.collapsed); err != nil {
		return err
	}
	return c.writeMatched(filepath.Join(dir, "matched.sam"), header)
}

func (c *corrector) writeWiggleReport(path string) (err error) {
	ctx := vcontext.Background()
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := tsv.NewWriter(out.Writer(ctx))
	w.WriteString("exon\treads\toffset")
	if err := w.EndLine(); err != nil {
		return err
	}
	for _, m := range c.debug.wiggle {
		w.WriteString(m.exon.String())
		w.WriteString(strings.Join(m.reads, ","))
		w.WriteString(strconv.Itoa(m.offset))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (c *corrector) writeComparisons(path string) (err error) {
	ctx := vcontext.Background()
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := tsv.NewWriter(out.Writer(ctx))
	w.WriteString("read\texon\tclip\texon_seq\tstrand\toffset\tmatch\thamming")
	if err := w.EndLine(); err != nil {
		return err
	}
	for _, cmp := range c.debug.comparisons {
		w.WriteString(cmp.read)
		w.WriteString(cmp.exon.String())
		w.WriteString(cmp.clipSeq)
		w.WriteString(cmp.exonSeq)
		w.WriteByte(cmp.strand)
		w.WriteString(strconv.Itoa(cmp.oriented))
		w.WriteString(strconv.FormatBool(cmp.match))
		w.WriteString(strconv.Itoa(cmp.hamming))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

// writeMatched emits the original rows of every confirmed read with the
// matched clip appended to the read name, the input to the downstream
// alignment classifier.
func (c *corrector) writeMatched(path string, header []string) error {
	clips := c.debug.matchedClip
	var rows []*samtext.Record
	for _, row := range c.rows {
		clip, ok := clips[row.Name()]
		if !ok {
			continue
		}
		out := row.Clone()
		out.SetName(row.Name() + "_" + clip)
		rows = append(rows, out)
	}
	return writeSAM(path, header, rows)
}
