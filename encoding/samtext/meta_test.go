package samtext

import (
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestParseMeta(t *testing.T) {
	tests := []struct {
		name        string
		clip, polyA int
	}{
		{"m64012/101/ccs_PolyA18_3Clip4", 4, 18},
		{"m64012/102/ccs_3Clip7", 7, 0},
		{"m64012/103/ccs", -1, 0},
		{"m64012/104/ccs_PolyA12", -1, 12},
		// PolyARead is a marker, not a length token.
		{"m64012/105/ccs_PolyARead_3Clip3", 3, 0},
		{"m64012/106/ccs_3Clip0", 0, 0},
		// Repeated tokens: last one wins.
		{"m64012/107/ccs_3Clip2_3Clip9", 9, 0},
	}
	for _, test := range tests {
		m, err := ParseMeta(test.name)
		assert.NoError(t, err, test.name)
		expect.EQ(t, m.Clip, test.clip, test.name)
		expect.EQ(t, m.PolyA, test.polyA, test.name)
	}
}

func TestParseMetaMalformed(t *testing.T) {
	for _, name := range []string{
		"r1_3Clipx",
		"r1_3Clip",
		"r1_PolyAzz_3Clip2",
	} {
		_, err := ParseMeta(name)
		expect.NotNil(t, err, name)
	}
}

func TestZeroClip(t *testing.T) {
	expect.EQ(t, ZeroClip("m64012/101/ccs_PolyA18_3Clip4"),
		"m64012/101/ccs_PolyA18_3Clip0")
	expect.EQ(t, ZeroClip("m64012/103/ccs"), "m64012/103/ccs")
	expect.EQ(t, ZeroClip("r_3Clip2_x_3Clip5"), "r_3Clip0_x_3Clip0")
}
