package clipcorrect

import (
	"testing"

	"github.com/alejandrogzi/isopipe/encoding/bed"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func mustBed(t *testing.T, line string) *bed.Record {
	t.Helper()
	rec, err := bed.ParseRecord(line)
	assert.NoError(t, err)
	return rec
}

func TestSplitExons(t *testing.T) {
	recs := []*bed.Record{
		mustBed(t, "chr1\t100\t600\ttx1\t0\t+\t100\t600\t0\t3\t100,100,100\t0,200,400"),
		mustBed(t, "chr2\t1000\t1500\ttx2\t0\t-\t1000\t1500\t0\t3\t100,100,100\t0,200,400"),
		mustBed(t, "chr3\t50\t90\ttx3\t0\t+"),
		mustBed(t, "chr4\t10\t100\ttx4\t0\t+\t10\t100\t0\t2\t30,40\t0,50"),
	}
	exons := SplitExons(recs)
	assert.EQ(t, len(exons), 9)

	// tx1: the middle exon is the only internal one.
	expect.EQ(t, exons[0].Key, ExonKey{"tx1", 0})
	expect.EQ(t, exons[0].Start, 100)
	expect.EQ(t, exons[0].Stop, 200)
	expect.False(t, exons[0].Internal)
	expect.EQ(t, exons[1].Key, ExonKey{"tx1", 1})
	expect.EQ(t, exons[1].Start, 300)
	expect.EQ(t, exons[1].Stop, 400)
	expect.True(t, exons[1].Internal)
	expect.False(t, exons[2].Internal)

	// Indexes follow genomic block order regardless of strand.
	expect.EQ(t, exons[3].Key, ExonKey{"tx2", 0})
	expect.True(t, exons[4].Internal)
	expect.EQ(t, exons[4].Strand, byte('-'))

	// Single-exon and two-exon transcripts have no internal exons.
	expect.False(t, exons[6].Internal)
	expect.False(t, exons[7].Internal)
	expect.False(t, exons[8].Internal)
}

func TestExonThreePrimeEnd(t *testing.T) {
	plus := Exon{Chrom: "chr1", Start: 300, Stop: 400, Strand: '+'}
	minus := Exon{Chrom: "chr1", Start: 300, Stop: 400, Strand: '-'}
	expect.EQ(t, plus.ThreePrimeEnd(), 400)
	expect.EQ(t, minus.ThreePrimeEnd(), 300)
}

func TestExonDownstream(t *testing.T) {
	plus := Exon{Key: ExonKey{"tx1", 3}, Strand: '+'}
	minus := Exon{Key: ExonKey{"tx2", 3}, Strand: '-'}
	expect.EQ(t, plus.Downstream(), ExonKey{"tx1", 4})
	expect.EQ(t, minus.Downstream(), ExonKey{"tx2", 2})
}

func TestExonRecord(t *testing.T) {
	ex := Exon{Key: ExonKey{"tx1", 1}, Chrom: "chr1", Start: 300, Stop: 400, Strand: '-'}
	rec := ex.Record()
	expect.EQ(t, rec.String(), "chr1\t300\t400\ttx1#1\t0\t-")
}
