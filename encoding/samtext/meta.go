package samtext

import (
	"fmt"
	"strconv"
	"strings"
)

// Token prefixes the upstream trimming stages encode into read names.
const (
	clipPrefix  = "3Clip"
	polyAPrefix = "PolyA"
	// PolyARead is a marker token, not a length token.
	polyAMarker = "PolyARead"
)

// Meta is the pipeline metadata carried by a read name as
// underscore-separated tokens.
type Meta struct {
	// Clip is the 3' soft-clip length recorded by the upstream trimmer,
	// -1 when the name carries no 3Clip token.
	Clip int
	// PolyA is the trimmed poly-A tail length, 0 when absent.
	PolyA int
}

// ParseMeta scans the underscore-separated tokens of a read name for
// 3Clip<N> and PolyA<N>. When the same token appears more than once the
// last occurrence wins. A token whose numeric part does not parse is an
// error; the caller decides whether to warn and skip the read.
func ParseMeta(name string) (Meta, error) {
	m := Meta{Clip: -1}
	for _, tok := range strings.Split(name, "_") {
		switch {
		case strings.HasPrefix(tok, clipPrefix):
			n, err := strconv.Atoi(tok[len(clipPrefix):])
			if err != nil {
				return m, fmt.Errorf("read %q: bad clip token %q", name, tok)
			}
			m.Clip = n
		case strings.HasPrefix(tok, polyAMarker):
			// marker only
		case strings.HasPrefix(tok, polyAPrefix):
			n, err := strconv.Atoi(tok[len(polyAPrefix):])
			if err != nil {
				return m, fmt.Errorf("read %q: bad polyA token %q", name, tok)
			}
			m.PolyA = n
		}
	}
	return m, nil
}

// ZeroClip rewrites every 3Clip token of name to 3Clip0, marking the clip
// as consumed by a correction.
func ZeroClip(name string) string {
	toks := strings.Split(name, "_")
	for i, tok := range toks {
		if strings.HasPrefix(tok, clipPrefix) {
			toks[i] = clipPrefix + "0"
		}
	}
	return strings.Join(toks, "_")
}
