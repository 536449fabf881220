package cigar

import (
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func mustParse(t *testing.T, s string) *Editor {
	t.Helper()
	e, err := Parse(s)
	assert.NoError(t, err)
	return e
}

func TestParseRoundTrip(t *testing.T) {
	for _, s := range []string{
		"76M24S",
		"10M5N66M24S",
		"15S61M24S",
		"8S13M1D2M1I70M",
		"100M",
		"3S10M1000N20M5=2X7S",
	} {
		expect.EQ(t, mustParse(t, s).String(), s)
	}
}

func TestParseErrors(t *testing.T) {
	for _, s := range []string{"", "*", "0M5S", "10M0S"} {
		_, err := Parse(s)
		if !IsInvalid(err) {
			t.Errorf("Parse(%q): got %v, want InvalidCigarError", s, err)
		}
	}
}

func TestInsert(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{-1, "10M5N66M1N24S"}, // before the last op
		{0, "1N10M5N66M24S"},
		{1, "10M1N5N66M24S"},
		{4, "10M5N66M24S1N"},
		{99, "10M5N66M24S1N"},  // past the end clamps to append
		{-99, "1N10M5N66M24S"}, // past the start clamps to prepend
	}
	for _, tt := range tests {
		e := mustParse(t, "10M5N66M24S")
		e.Insert(tt.index, sam.NewCigarOp(sam.CigarSkipped, 1))
		expect.EQ(t, e.String(), tt.want, "index=%d", tt.index)
	}
}

func TestResize(t *testing.T) {
	e := mustParse(t, "10M5N66M24S")
	assert.NoError(t, e.Resize(-2, 61))
	assert.NoError(t, e.Resize(0, 12))
	expect.EQ(t, e.String(), "12M5N61M24S")

	expect.True(t, IsInvalid(e.Resize(1, 0)))
	expect.True(t, IsInvalid(e.Resize(-1, -4)))
	expect.True(t, IsInvalid(e.Resize(7, 10)))
	// Failed resizes leave the sequence untouched.
	expect.EQ(t, e.String(), "12M5N61M24S")
}

func TestGrow(t *testing.T) {
	e := mustParse(t, "10M5N66M24S")
	assert.NoError(t, e.Grow(-2, -6))
	assert.NoError(t, e.Grow(-1, 2))
	expect.EQ(t, e.String(), "10M5N60M26S")
	expect.True(t, IsInvalid(e.Grow(0, -10)))
	expect.EQ(t, e.String(), "10M5N60M26S")
}

func TestOp(t *testing.T) {
	e := mustParse(t, "10M5N66M24S")
	expect.EQ(t, e.Len(), 4)
	expect.EQ(t, e.Op(-1).Type(), sam.CigarSoftClipped)
	expect.EQ(t, e.Op(-1).Len(), 24)
	expect.EQ(t, e.Op(0).Type(), sam.CigarMatch)
	expect.EQ(t, e.Op(-3).Len(), 5)
}

func TestRefLen(t *testing.T) {
	tests := []struct {
		cigar string
		want  int
	}{
		{"76M24S", 76},
		{"10M5N66M24S", 81},
		{"8S13M1D2M1I70M", 86},
		{"20S30M", 30},
		{"5=2X3M", 10},
	}
	for _, tt := range tests {
		e := mustParse(t, tt.cigar)
		expect.EQ(t, e.RefLen(), tt.want, "cigar=%s", tt.cigar)
		expect.EQ(t, RefLen(e.Ops()), tt.want, "cigar=%s", tt.cigar)
	}
}

// The exon-splice rewrite applied to a '+'-strand read: shrink the match
// before the trailing clip, insert an intron skip and an equal-match, shrink
// the clip by what moved out of it.
func TestSpliceRewriteShape(t *testing.T) {
	e := mustParse(t, "76M24S")
	assert.NoError(t, e.Grow(-2, -1))
	e.Insert(-1, sam.NewCigarOp(sam.CigarSkipped, 301))
	e.Insert(-1, sam.NewCigarOp(sam.CigarEqual, 5))
	assert.NoError(t, e.Grow(-1, -4))
	expect.EQ(t, e.String(), "75M301N5=20S")
}
