package fasta

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alejandrogzi/isopipe/encoding/bed"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

const genomeData = ">chr1 assembled\n" +
	"AAAACCCCGG\n" +
	"GGTTTTACGT\n" +
	"ACGTACGT\n" +
	">chr2\n" +
	"acgtnACGTN\n"

func mustNew(t *testing.T, data string) Fasta {
	t.Helper()
	f, err := New(strings.NewReader(data))
	assert.NoError(t, err)
	return f
}

func TestGet(t *testing.T) {
	f := mustNew(t, genomeData)
	tests := []struct {
		seq        string
		start, end int
		want       string
		wantErr    bool
	}{
		{"chr1", 0, 4, "AAAA", false},
		{"chr1", 8, 12, "GGGG", false}, // spans a line wrap
		{"chr1", 0, 28, "AAAACCCCGGGGTTTTACGTACGTACGT", false},
		{"chr1", 27, 28, "T", false},
		{"chr2", 0, 10, "acgtnACGTN", false},
		{"chr3", 0, 1, "", true},
		{"chr1", 5, 5, "", true},
		{"chr1", 5, 4, "", true},
		{"chr1", -1, 4, "", true},
		{"chr1", 20, 29, "", true},
	}
	for _, tt := range tests {
		got, err := f.Get(tt.seq, tt.start, tt.end)
		if tt.wantErr {
			assert.NotNil(t, err, "%s[%d:%d]", tt.seq, tt.start, tt.end)
			continue
		}
		assert.NoError(t, err, "%s[%d:%d]", tt.seq, tt.start, tt.end)
		expect.EQ(t, got, tt.want)
	}
}

func TestLenSeqNames(t *testing.T) {
	f := mustNew(t, genomeData)
	expect.EQ(t, f.SeqNames(), []string{"chr1", "chr2"})
	n, err := f.Len("chr1")
	assert.NoError(t, err)
	expect.EQ(t, n, 28)
	_, err = f.Len("chrX")
	assert.NotNil(t, err)
}

func TestNewMalformed(t *testing.T) {
	for _, data := range []string{
		"ACGT\n",           // data before header
		">\nACGT\n",        // empty name
		">a\nAC\n>a\nGT\n", // duplicate
	} {
		_, err := New(strings.NewReader(data))
		assert.NotNil(t, err, "data=%q", data)
	}
	// A trailing header with no sequence lines still registers.
	f := mustNew(t, ">a\nACGT\n>b\n")
	n, err := f.Len("b")
	assert.NoError(t, err)
	expect.EQ(t, n, 0)
}

func TestNewFromPath(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "fasta")
	defer cleanup()
	path := filepath.Join(tmpDir, "genome.fa")
	assert.NoError(t, ioutil.WriteFile(path, []byte(genomeData), 0644))
	f, err := NewFromPath(path)
	assert.NoError(t, err)
	got, err := f.Get("chr1", 0, 4)
	assert.NoError(t, err)
	expect.EQ(t, got, "AAAA")
}

func TestExtract(t *testing.T) {
	f := mustNew(t, genomeData)
	// chr1: AAAACCCCGGGGTTTTACGTACGTACGT
	//           ^^^^        ^^^^            blocks [4,8) and [16,20)
	plus, err := bed.ParseRecord("chr1\t4\t20\ttx\t0\t+\t4\t20\t0\t2\t4,4\t0,12")
	assert.NoError(t, err)
	seq, err := Extract(f, plus)
	assert.NoError(t, err)
	expect.EQ(t, seq, "CCCCACGT")

	minus, err := bed.ParseRecord("chr1\t4\t20\ttx\t0\t-\t4\t20\t0\t2\t4,4\t0,12")
	assert.NoError(t, err)
	seq, err = Extract(f, minus)
	assert.NoError(t, err)
	expect.EQ(t, seq, "ACGTGGGG")

	// Ungapped record: plain slice of the chromosome.
	simple := bed.New("chr2", 0, 5, "s", "0", '+')
	seq, err = Extract(f, simple)
	assert.NoError(t, err)
	expect.EQ(t, seq, "acgtn")

	// Blocks outside the chromosome propagate the lookup error.
	bad := bed.New("chr2", 5, 15, "bad", "0", '+')
	_, err = Extract(f, bad)
	assert.NotNil(t, err)
}

func TestReverseComplement(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"A", "T"},
		{"ACGT", "ACGT"},
		{"AAGG", "CCTT"},
		{"acgtN", "Nacgt"},
		{"ACGTn", "nACGT"},
		{"ARYGT", "ACNNT"}, // ambiguity codes degrade to N
	}
	for _, tt := range tests {
		expect.EQ(t, ReverseComplement(tt.in), tt.want, "in=%q", tt.in)
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	assert.NoError(t, w.Write("seq1", "ACGT"))
	assert.NoError(t, w.Write("seq2", "GGCC"))
	assert.NoError(t, w.Flush())
	expect.EQ(t, buf.String(), ">seq1\nACGT\n>seq2\nGGCC\n")

	f, err := New(bytes.NewReader(buf.Bytes()))
	assert.NoError(t, err)
	got, err := f.Get("seq2", 0, 4)
	assert.NoError(t, err)
	expect.EQ(t, got, "GGCC")
}
