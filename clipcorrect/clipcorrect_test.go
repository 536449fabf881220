package clipcorrect

import (
	"io/ioutil"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/alejandrogzi/isopipe/encoding/bed"
	"github.com/alejandrogzi/isopipe/encoding/fasta"
	"github.com/alejandrogzi/isopipe/encoding/samtext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

// The test genome is all T except for a distinctive pentamer at the
// start (in transcription orientation) of every downstream exon the
// fixtures use:
//
//	[500,505)   ACGTG  first bases of the tx1/tx3 last exon
//	[520,525)   ACGTG  first bases of the tx2 last exon
//	[1045,1050) ATGCC  last bases of the tx5 first exon (GGCAT on -)
//	[1095,1100) ATGCC  last bases of the tx4 first exon (GGCAT on -)
var testGenomeSeq = strings.Repeat("T", 500) + "ACGTG" + strings.Repeat("T", 15) + "ACGTG" +
	strings.Repeat("T", 520) + "ATGCC" + strings.Repeat("T", 45) + "ATGCC" + strings.Repeat("T", 400)

const (
	bedTx1 = "chr1\t100\t600\ttx1\t0\t+\t100\t600\t0\t3\t100,100,100\t0,200,400"
	bedTx2 = "chr1\t200\t620\ttx2\t0\t+\t200\t620\t0\t3\t60,70,100\t0,130,320"
	bedTx3 = "chr1\t150\t600\ttx3\t0\t+\t150\t600\t0\t3\t60,90,100\t0,160,350"
	bedTx4 = "chr1\t1000\t1500\ttx4\t0\t-\t1000\t1500\t0\t3\t100,100,100\t0,200,400"
	bedTx5 = "chr1\t950\t1480\ttx5\t0\t-\t950\t1480\t0\t3\t100,120,80\t0,250,450"
)

var (
	// seqR1 ends one aligned base past the exon boundary at 400; the
	// frame-shifted clip ACGTG matches the downstream exon at 500.
	seqR1 = strings.Repeat("C", 46) + "ACGTG" + "AAA"
	// seqR2/seqR3 are stored reverse-complemented; their windows turn
	// into GGCAT and GGC after reorientation.
	seqR2 = "TTT" + "ATGCCA" + strings.Repeat("G", 39)
	seqR3 = "TTT" + "GCCAAA" + strings.Repeat("G", 39)
	// seqR4 has no trailing poly-A; the clip sits at the sequence end.
	seqR4 = strings.Repeat("C", 47) + "ACGTG"
	// seqR5's clip matches no exon.
	seqR5 = strings.Repeat("C", 46) + "AAAAA" + "AAA"
)

func testGenome(t *testing.T) fasta.Fasta {
	t.Helper()
	fa, err := fasta.New(strings.NewReader(">chr1\n" + testGenomeSeq + "\n"))
	assert.NoError(t, err)
	return fa
}

func samRow(name string, flag, pos int, cig, seq string) string {
	return name + "\t" + strconv.Itoa(flag) + "\tchr1\t" + strconv.Itoa(pos) +
		"\t60\t" + cig + "\t*\t0\t0\t" + seq + "\t*"
}

func mustSAM(t *testing.T, line string) *samtext.Record {
	t.Helper()
	rec, err := samtext.Parse(line)
	assert.NoError(t, err)
	return rec
}

func TestClipWindow(t *testing.T) {
	for _, tc := range []struct {
		seq                 string
		clip, polyA, wiggle int
		reverse             bool
		want                string
	}{
		{"ACGTACGTACGT", 3, 2, 2, false, "CGTAC"},
		{"ACGTACGTACGT", 3, 0, 2, false, "TACGT"}, // no poly-A: clip ends at the sequence end
		{"ACGT", 3, 0, 2, false, "ACGT"},
		{"ACG", 2, 5, 2, false, ""},
		{"ACGTACGTACGT", 3, 2, 2, true, "GTACG"},
		{"ACGTA", 3, 2, 2, true, "GTA"},
		{"ACG", 3, 5, 2, true, ""},
	} {
		expect.EQ(t, clipWindow(tc.seq, tc.clip, tc.polyA, tc.wiggle, tc.reverse), tc.want)
	}
}

func TestCorrectPlusStrand(t *testing.T) {
	// r1 ends at 401, one base past the tx1 internal exon boundary at
	// 400, with a 4-base clip recorded. After the one-base frame shift
	// the 5-base clip matches the downstream exon start, so the edit
	// bridges the 99-base gap with 100N, adds 5= and shrinks the 6S
	// trailing clip by 4.
	recs := []*bed.Record{mustBed(t, bedTx1)}
	rows := []*samtext.Record{mustSAM(t, samRow("r1_PolyA3_3Clip4", 0, 354, "48M6S", seqR1))}
	out, stats, err := CorrectRecords(recs, rows, testGenome(t), DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(out), 1)
	expect.EQ(t, out[0].Name(), "r1_PolyA3_3Clip0")
	expect.EQ(t, out[0].Flag(), 0)
	expect.EQ(t, out[0].Pos(), 354)
	expect.EQ(t, out[0].CigarString(), "47M100N5=2S")
	expect.EQ(t, out[0].Seq(), seqR1)
	expect.EQ(t, stats.Candidates, 1)
	expect.EQ(t, stats.Matched, 1)
	expect.EQ(t, stats.MatchedWiggle, 1)
	expect.EQ(t, stats.Hits, 1)
	expect.EQ(t, stats.Corrected, 1)
	expect.EQ(t, stats.Passthrough, 0)

	// The input row must stay untouched: edits operate on a clone.
	expect.EQ(t, rows[0].Name(), "r1_PolyA3_3Clip4")
	expect.EQ(t, rows[0].CigarString(), "48M6S")
}

func TestCorrectExactBoundary(t *testing.T) {
	// The alignment ends exactly at the exon boundary; the recorded clip
	// is compared unshifted and the skip length equals the intron.
	recs := []*bed.Record{mustBed(t, bedTx1)}
	seq := strings.Repeat("C", 48) + "ACGT" + "AAA"
	rows := []*samtext.Record{mustSAM(t, samRow("r7_PolyA3_3Clip4", 0, 353, "48M7S", seq))}
	out, stats, err := CorrectRecords(recs, rows, testGenome(t), DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(out), 1)
	expect.EQ(t, out[0].CigarString(), "48M100N4=3S")
	expect.EQ(t, out[0].Pos(), 353)
	expect.EQ(t, stats.MatchedWiggle, 0)
	expect.EQ(t, stats.Corrected, 1)
}

func TestCorrectMinusStrand(t *testing.T) {
	// On the reverse strand the 3' end is the alignment start and the
	// correction extends the alignment leftward: r2 starts one base
	// before the tx4 internal exon 3' end at 1200, r3 one base past it.
	recs := []*bed.Record{mustBed(t, bedTx4)}
	rows := []*samtext.Record{
		mustSAM(t, samRow("r2_PolyA3_3Clip4", 16, 1200, "7S41M", seqR2)),
		mustSAM(t, samRow("r3_PolyA3_3Clip4", 16, 1202, "7S41M", seqR3)),
	}
	out, stats, err := CorrectRecords(recs, rows, testGenome(t), DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(out), 2)
	expect.EQ(t, out[0].Name(), "r2_PolyA3_3Clip0")
	expect.EQ(t, out[0].Flag(), 16)
	expect.EQ(t, out[0].CigarString(), "3S5=100N40M")
	expect.EQ(t, out[0].Pos(), 1096)
	expect.EQ(t, out[1].Name(), "r3_PolyA3_3Clip0")
	expect.EQ(t, out[1].CigarString(), "5S3=102N40M")
	expect.EQ(t, out[1].Pos(), 1097)
	expect.EQ(t, stats.Hits, 2)
	expect.EQ(t, stats.Corrected, 2)
}

func TestSecondaryAlignments(t *testing.T) {
	// Three transcripts share the boundary at 400. tx1 and tx3 lead to
	// the same downstream start and collapse into one row; tx2's
	// downstream exon starts at 520 and yields a second, distinct
	// correction flagged secondary.
	recs := []*bed.Record{mustBed(t, bedTx1), mustBed(t, bedTx2), mustBed(t, bedTx3)}
	rows := []*samtext.Record{mustSAM(t, samRow("r1_PolyA3_3Clip4", 0, 354, "48M6S", seqR1))}
	out, stats, err := CorrectRecords(recs, rows, testGenome(t), DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(out), 2)
	expect.EQ(t, out[0].CigarString(), "47M100N5=2S")
	expect.EQ(t, out[0].Flag(), 0)
	expect.EQ(t, out[1].CigarString(), "47M120N5=2S")
	expect.EQ(t, out[1].Flag(), 256)
	expect.EQ(t, out[1].Name(), "r1_PolyA3_3Clip0")
	expect.EQ(t, out[1].Pos(), 354)
	expect.EQ(t, stats.Hits, 3)
	expect.EQ(t, stats.Corrected, 1)
	expect.EQ(t, stats.Secondary, 1)
	expect.EQ(t, stats.Collapsed, 1)
}

func TestSecondaryKeepsReverseFlag(t *testing.T) {
	recs := []*bed.Record{mustBed(t, bedTx4), mustBed(t, bedTx5)}
	rows := []*samtext.Record{mustSAM(t, samRow("r2_PolyA3_3Clip4", 16, 1200, "7S41M", seqR2))}
	out, stats, err := CorrectRecords(recs, rows, testGenome(t), DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(out), 2)
	expect.EQ(t, out[0].Flag(), 16)
	expect.EQ(t, out[0].CigarString(), "3S5=100N40M")
	expect.EQ(t, out[1].Flag(), 272)
	expect.EQ(t, out[1].CigarString(), "3S5=150N40M")
	expect.EQ(t, out[1].Pos(), 1046)
	expect.EQ(t, stats.Secondary, 1)
}

func TestCorrectWithoutPolyATail(t *testing.T) {
	// No poly-A token: the clip window is cut from the very end of the
	// sequence.
	recs := []*bed.Record{mustBed(t, bedTx1)}
	seq := strings.Repeat("C", 49) + "ACGTG"
	rows := []*samtext.Record{mustSAM(t, samRow("r10_3Clip4", 0, 354, "48M6S", seq))}
	out, stats, err := CorrectRecords(recs, rows, testGenome(t), DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(out), 1)
	expect.EQ(t, out[0].Name(), "r10_3Clip0")
	expect.EQ(t, out[0].CigarString(), "47M100N5=2S")
	expect.EQ(t, stats.Corrected, 1)
}

func TestMismatchedClipPassesThrough(t *testing.T) {
	recs := []*bed.Record{mustBed(t, bedTx1)}
	line := samRow("r5_PolyA3_3Clip4", 0, 354, "48M6S", seqR5)
	out, stats, err := CorrectRecords(recs, []*samtext.Record{mustSAM(t, line)}, testGenome(t), DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(out), 1)
	expect.EQ(t, out[0].String(), line)
	expect.EQ(t, stats.Mismatches, 1)
	expect.EQ(t, stats.Hits, 0)
	expect.EQ(t, stats.Passthrough, 1)
}

func TestClipAtCutoffRejected(t *testing.T) {
	// The frame-shifted clip must strictly exceed the cutoff even when
	// its bases match the downstream exon.
	recs := []*bed.Record{mustBed(t, bedTx1)}
	seq := strings.Repeat("C", 48) + "AC" + "AAA"
	rows := []*samtext.Record{mustSAM(t, samRow("r8_PolyA3_3Clip2", 0, 353, "48M5S", seq))}
	out, stats, err := CorrectRecords(recs, rows, testGenome(t), DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(out), 1)
	expect.EQ(t, stats.Candidates, 1)
	expect.EQ(t, stats.Mismatches, 1)
	expect.EQ(t, stats.Corrected, 0)
}

func TestClipBelowCutoffSkipped(t *testing.T) {
	recs := []*bed.Record{mustBed(t, bedTx1)}
	rows := []*samtext.Record{mustSAM(t, samRow("r9_PolyA3_3Clip1", 0, 354, "48M6S", seqR1))}
	out, stats, err := CorrectRecords(recs, rows, testGenome(t), DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(out), 1)
	expect.EQ(t, stats.Candidates, 0)
	expect.EQ(t, stats.Matched, 0)
	expect.EQ(t, stats.Passthrough, 1)
}

func TestEditFailurePassesThrough(t *testing.T) {
	// A 4-base trailing soft clip cannot absorb a 5-base correction: the
	// clip would shrink to zero length, the edit fails and the row is
	// left as is.
	recs := []*bed.Record{mustBed(t, bedTx1)}
	line := samRow("r4_3Clip4", 0, 354, "48M4S", seqR4)
	out, stats, err := CorrectRecords(recs, []*samtext.Record{mustSAM(t, line)}, testGenome(t), DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(out), 1)
	expect.EQ(t, out[0].String(), line)
	expect.EQ(t, stats.Hits, 1)
	expect.EQ(t, stats.EditFailures, 1)
	expect.EQ(t, stats.Corrected, 0)
	expect.EQ(t, stats.Passthrough, 1)
}

func TestNonpositiveGapPassesThrough(t *testing.T) {
	// txG's downstream exon starts right at the internal exon boundary,
	// so an overshot alignment would need a nonpositive intron gap.
	recs := []*bed.Record{mustBed(t, "chr1\t100\t500\ttxG\t0\t+\t100\t500\t0\t3\t100,100,100\t0,200,300")}
	seq := strings.Repeat("C", 46) + "TTTTT" + "AAA"
	line := samRow("rg_PolyA3_3Clip4", 0, 354, "48M6S", seq)
	out, stats, err := CorrectRecords(recs, []*samtext.Record{mustSAM(t, line)}, testGenome(t), DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(out), 1)
	expect.EQ(t, out[0].String(), line)
	expect.EQ(t, stats.Hits, 1)
	expect.EQ(t, stats.EditFailures, 1)
}

func TestDownstreamSequenceMiss(t *testing.T) {
	// tx6's last exon lies beyond the end of the test genome; the fetch
	// fails and the candidate is skipped rather than corrected.
	recs := []*bed.Record{mustBed(t, "chr1\t100\t1700\ttx6\t0\t+\t100\t1700\t0\t3\t100,100,100\t0,200,1500")}
	line := samRow("r1_PolyA3_3Clip4", 0, 354, "48M6S", seqR1)
	out, stats, err := CorrectRecords(recs, []*samtext.Record{mustSAM(t, line)}, testGenome(t), DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(out), 1)
	expect.EQ(t, out[0].String(), line)
	expect.EQ(t, stats.SeqMisses, 1)
	expect.EQ(t, stats.Corrected, 0)
}

func TestMissingDownstreamExonFails(t *testing.T) {
	c := newCorrector(testGenome(t), DefaultOpts)
	ex := Exon{Key: ExonKey{Transcript: "txX", Index: 1}, Chrom: "chr1", Start: 300, Stop: 400, Strand: '+', Internal: true}
	c.exons[ex.Key] = ex
	c.internal = []Exon{ex}
	c.loadAlignments([]*samtext.Record{mustSAM(t, samRow("r1_PolyA3_3Clip4", 0, 354, "48M6S", seqR1))})
	_, err := c.run()
	expect.NotNil(t, err)
	assert.HasSubstr(t, err.Error(), "no downstream exon")
}

func TestMalformedNameExcluded(t *testing.T) {
	recs := []*bed.Record{mustBed(t, bedTx1)}
	line := samRow("rb_3Clipx", 0, 354, "48M6S", seqR1)
	out, stats, err := CorrectRecords(recs, []*samtext.Record{mustSAM(t, line)}, testGenome(t), DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(out), 1)
	expect.EQ(t, out[0].String(), line)
	expect.EQ(t, stats.BadMeta, 1)
	expect.EQ(t, stats.Candidates, 0)
}

func TestUnmappedRowExcluded(t *testing.T) {
	recs := []*bed.Record{mustBed(t, bedTx1)}
	line := "ru_3Clip4\t4\t*\t0\t0\t*\t*\t0\t0\t" + seqR1 + "\t*"
	out, stats, err := CorrectRecords(recs, []*samtext.Record{mustSAM(t, line)}, testGenome(t), DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(out), 1)
	expect.EQ(t, stats.Unplaced, 1)
	expect.EQ(t, stats.Candidates, 0)
}

func TestDuplicateNameLastRowWins(t *testing.T) {
	// Repeated read names keep only the last row for correction, and
	// every input row under a corrected name is replaced.
	recs := []*bed.Record{mustBed(t, bedTx1)}
	rows := []*samtext.Record{
		mustSAM(t, samRow("r1_PolyA3_3Clip4", 0, 999, "54M", seqR1)),
		mustSAM(t, samRow("r1_PolyA3_3Clip4", 0, 354, "48M6S", seqR1)),
	}
	out, stats, err := CorrectRecords(recs, rows, testGenome(t), DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(out), 1)
	expect.EQ(t, out[0].CigarString(), "47M100N5=2S")
	expect.EQ(t, stats.Corrected, 1)
	expect.EQ(t, stats.Passthrough, 0)
}

func TestCorrectRecords(t *testing.T) {
	recs := []*bed.Record{
		mustBed(t, bedTx1), mustBed(t, bedTx2), mustBed(t, bedTx3), mustBed(t, bedTx4),
	}
	rows := []*samtext.Record{
		mustSAM(t, samRow("r1_PolyA3_3Clip4", 0, 354, "48M6S", seqR1)),
		mustSAM(t, samRow("r2_PolyA3_3Clip4", 16, 1200, "7S41M", seqR2)),
		mustSAM(t, samRow("r3_PolyA3_3Clip4", 16, 1202, "7S41M", seqR3)),
		mustSAM(t, samRow("r4_3Clip4", 0, 354, "48M4S", seqR4)),
		mustSAM(t, samRow("r5_PolyA3_3Clip4", 0, 354, "48M6S", seqR5)),
		mustSAM(t, samRow("r6", 0, 354, "48M6S", seqR5)),
	}
	out, stats, err := CorrectRecords(recs, rows, testGenome(t), DefaultOpts)
	assert.NoError(t, err)

	// Corrected reads come first in first-hit order, each followed by its
	// secondary variants; uncorrected rows follow in input order.
	var got []string
	for _, row := range out {
		got = append(got, row.Name()+" "+strconv.Itoa(row.Flag())+" "+row.CigarString())
	}
	expect.EQ(t, got, []string{
		"r1_PolyA3_3Clip0 0 47M100N5=2S",
		"r1_PolyA3_3Clip0 256 47M120N5=2S",
		"r2_PolyA3_3Clip0 16 3S5=100N40M",
		"r3_PolyA3_3Clip0 16 5S3=102N40M",
		"r4_3Clip4 0 48M4S",
		"r5_PolyA3_3Clip4 0 48M6S",
		"r6 0 48M6S",
	})

	expect.EQ(t, stats.Transcripts, 4)
	expect.EQ(t, stats.Exons, 12)
	expect.EQ(t, stats.InternalExons, 4)
	expect.EQ(t, stats.Rows, 6)
	expect.EQ(t, stats.Candidates, 5)
	expect.EQ(t, stats.MissingClip, 1)
	expect.EQ(t, stats.Matched, 11)
	expect.EQ(t, stats.Hits, 8)
	expect.EQ(t, stats.Mismatches, 3)
	expect.EQ(t, stats.Corrected, 3)
	expect.EQ(t, stats.Secondary, 1)
	expect.EQ(t, stats.Collapsed, 1)
	expect.EQ(t, stats.EditFailures, 3)
	expect.EQ(t, stats.Passthrough, 3)
}

func TestCorrectFiles(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	bedPath := filepath.Join(tmpDir, "annotation.bed")
	samPath := filepath.Join(tmpDir, "in.sam")
	outPath := filepath.Join(tmpDir, "out.sam")
	assert.NoError(t, ioutil.WriteFile(bedPath, []byte(bedTx1+"\n"), 0644))
	header := "@HD\tVN:1.6\tSO:coordinate\n@SQ\tSN:chr1\tLN:1500\n"
	body := samRow("r1_PolyA3_3Clip4", 0, 354, "48M6S", seqR1) + "\n" +
		samRow("r6", 0, 354, "48M6S", seqR5) + "\n"
	assert.NoError(t, ioutil.WriteFile(samPath, []byte(header+body), 0644))

	opts := DefaultOpts
	opts.Debug = true
	opts.DebugDir = tmpDir
	stats, err := Correct(bedPath, samPath, outPath, testGenome(t), opts)
	assert.NoError(t, err)
	expect.EQ(t, stats.Corrected, 1)
	expect.EQ(t, stats.Passthrough, 1)

	outHeader, outRows, err := samtext.Read(outPath)
	assert.NoError(t, err)
	expect.EQ(t, outHeader, []string{"@HD\tVN:1.6\tSO:coordinate", "@SQ\tSN:chr1\tLN:1500"})
	assert.EQ(t, len(outRows), 2)
	expect.EQ(t, outRows[0].Name(), "r1_PolyA3_3Clip0")
	expect.EQ(t, outRows[0].CigarString(), "47M100N5=2S")
	expect.EQ(t, outRows[1].Name(), "r6")

	comparisons, err := ioutil.ReadFile(filepath.Join(tmpDir, "comparisons.tsv"))
	assert.NoError(t, err)
	assert.HasSubstr(t, string(comparisons), "tx1#1")
	assert.HasSubstr(t, string(comparisons), "ACGTG")
	wiggle, err := ioutil.ReadFile(filepath.Join(tmpDir, "wiggle_report.tsv"))
	assert.NoError(t, err)
	assert.HasSubstr(t, string(wiggle), "tx1#1")
	matched, err := ioutil.ReadFile(filepath.Join(tmpDir, "matched.sam"))
	assert.NoError(t, err)
	assert.HasSubstr(t, string(matched), "r1_PolyA3_3Clip4_ACGTG")
}
