// Package cigar edits SAM CIGAR operation sequences in place.
//
// The aligner-produced CIGAR of a spliced read is rewritten when its
// trailing soft-clip turns out to belong to the next exon: an intron skip
// and a sequence-match operation are spliced in next to the clip, and the
// neighboring operations shrink to compensate. Editor provides the
// positional operations this rewrite needs, with negative indices counted
// from the end since the edit sites are anchored to the ends of the
// sequence. Operations are grailbio/hts/sam packed CigarOps.
package cigar

import (
	"fmt"

	"github.com/grailbio/hts/sam"
)

// InvalidCigarError reports a CIGAR that cannot be parsed or an edit that
// would produce a non-positive operation length. It is fatal to the single
// alignment being edited, never to a whole batch.
type InvalidCigarError struct {
	Msg string
}

func (e *InvalidCigarError) Error() string { return e.Msg }

func invalidf(format string, args ...interface{}) error {
	return &InvalidCigarError{Msg: fmt.Sprintf(format, args...)}
}

// IsInvalid reports whether err is an InvalidCigarError.
func IsInvalid(err error) bool {
	_, ok := err.(*InvalidCigarError)
	return ok
}

// RefLen returns the number of reference bases the operations consume
// (M/D/N/=/X), i.e. the alignment's span on the reference.
func RefLen(c sam.Cigar) int {
	n := 0
	for _, op := range c {
		n += op.Len() * op.Type().Consumes().Reference
	}
	return n
}

// Editor is an ordered, editable sequence of CIGAR operations. Negative
// index arguments count from the end, so -1 addresses the last operation.
type Editor struct {
	ops sam.Cigar
}

// Parse builds an Editor from a CIGAR string. Empty or "*" strings and
// zero-length operations are rejected with InvalidCigarError.
func Parse(s string) (*Editor, error) {
	ops, err := sam.ParseCigar([]byte(s))
	if err != nil {
		return nil, invalidf("cigar: %v", err)
	}
	if len(ops) == 0 {
		return nil, invalidf("cigar: empty cigar %q", s)
	}
	for i, op := range ops {
		if op.Len() <= 0 {
			return nil, invalidf("cigar: zero-length operation %d in %q", i, s)
		}
	}
	return &Editor{ops: ops}, nil
}

// Len returns the number of operations.
func (e *Editor) Len() int { return len(e.ops) }

// Ops returns the underlying operation sequence.
func (e *Editor) Ops() sam.Cigar { return e.ops }

// RefLen returns the reference span of the current operations.
func (e *Editor) RefLen() int { return RefLen(e.ops) }

// index resolves a possibly-negative index. ok is false when it falls
// outside the sequence.
func (e *Editor) index(i int) (int, bool) {
	if i < 0 {
		i += len(e.ops)
	}
	return i, i >= 0 && i < len(e.ops)
}

// Op returns the operation at i.
func (e *Editor) Op(i int) sam.CigarOp {
	j, ok := e.index(i)
	if !ok {
		panic(fmt.Sprintf("cigar: index %d out of range (%d ops)", i, len(e.ops)))
	}
	return e.ops[j]
}

// Insert places op at index i, shifting later operations right. A negative
// i counts from the end (-1 inserts just before the last operation) and
// out-of-bounds values clamp to the ends.
func (e *Editor) Insert(i int, op sam.CigarOp) {
	if i < 0 {
		i += len(e.ops)
		if i < 0 {
			i = 0
		}
	} else if i > len(e.ops) {
		i = len(e.ops)
	}
	e.ops = append(e.ops, 0)
	copy(e.ops[i+1:], e.ops[i:])
	e.ops[i] = op
}

// Resize sets the length of the operation at i, keeping its type. Lengths
// <= 0 fail with InvalidCigarError and leave the sequence unchanged.
func (e *Editor) Resize(i, n int) error {
	j, ok := e.index(i)
	if !ok {
		return invalidf("cigar: resize index %d out of range (%d ops)", i, len(e.ops))
	}
	if n <= 0 {
		return invalidf("cigar: operation %d (%s) resized to %d", j, e.ops[j].Type(), n)
	}
	e.ops[j] = sam.NewCigarOp(e.ops[j].Type(), n)
	return nil
}

// Grow adds delta to the length of the operation at i. Shrinking to zero or
// below fails with InvalidCigarError.
func (e *Editor) Grow(i, delta int) error {
	j, ok := e.index(i)
	if !ok {
		return invalidf("cigar: grow index %d out of range (%d ops)", i, len(e.ops))
	}
	return e.Resize(j, e.ops[j].Len()+delta)
}

// String serializes the operations as concatenated {length}{op} tokens.
func (e *Editor) String() string {
	return e.ops.String()
}
