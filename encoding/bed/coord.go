package bed

// This file implements conversion among the record's position spaces:
//
//   genomic   absolute 0-based chromosome position
//   block     (index, remainder) within one exon block
//   walked    0-based offset across the concatenated blocks, always counted
//             in genomic direction regardless of strand
//   sequence  walked offset counted from the transcript's 5' end, so on '-'
//             records it runs opposite to the walk
//
// Every conversion funnels through the genomic-direction block walk; strand
// enters only when translating to or from sequence space. A position exactly
// on a block's end boundary belongs to that block with remainder equal to
// the block length, which keeps trims that land on an exon edge cutting at
// the edge instead of inside the next intron.

// TotalBlockLen returns the summed length of all blocks (the spliced
// transcript length).
func (r *Record) TotalBlockLen() int {
	total := 0
	for _, l := range r.BlockLens {
		total += l
	}
	return total
}

// WalkedToBlock locates the block containing the walked offset, returning
// the block index and the remainder within it. Offsets outside
// [0, TotalBlockLen()] fail with OutOfRangeError.
func (r *Record) WalkedToBlock(walked int) (block, remainder int, err error) {
	if walked < 0 {
		return 0, 0, &OutOfRangeError{ID: r.ID, Pos: walked}
	}
	cur := 0
	for i, l := range r.BlockLens {
		if cur+l < walked {
			cur += l
			continue
		}
		return i, walked - cur, nil
	}
	return 0, 0, &OutOfRangeError{ID: r.ID, Pos: walked}
}

// GenomicToBlock converts a genomic position to (block index, remainder).
// Positions outside [start, stop] or inside an intron fail with
// OutOfRangeError.
func (r *Record) GenomicToBlock(pos int) (block, remainder int, err error) {
	if pos < r.Start || pos > r.Stop {
		return 0, 0, &OutOfRangeError{ID: r.ID, Pos: pos}
	}
	for i := range r.BlockLens {
		if r.Start+r.BlockStarts[i]+r.BlockLens[i] < pos {
			continue
		}
		delta := pos - r.Start - r.BlockStarts[i]
		if delta < 0 {
			// Before this block's start: pos is in the preceding intron.
			return 0, 0, &OutOfRangeError{ID: r.ID, Pos: pos}
		}
		return i, delta, nil
	}
	return 0, 0, &OutOfRangeError{ID: r.ID, Pos: pos}
}

// BlockToGenomic converts (block index, remainder) back to a genomic
// position. The index must be a valid block index.
func (r *Record) BlockToGenomic(block, remainder int) int {
	return r.Start + r.BlockStarts[block] + remainder
}

// WalkedToGenomic converts a walked offset to a genomic position.
func (r *Record) WalkedToGenomic(walked int) (int, error) {
	block, remainder, err := r.WalkedToBlock(walked)
	if err != nil {
		return 0, err
	}
	return r.BlockToGenomic(block, remainder), nil
}

// GenomicToWalked converts a genomic position to its walked offset.
func (r *Record) GenomicToWalked(pos int) (int, error) {
	block, remainder, err := r.GenomicToBlock(pos)
	if err != nil {
		return 0, err
	}
	walked := remainder
	for i := 0; i < block; i++ {
		walked += r.BlockLens[i]
	}
	return walked, nil
}

// GenomicToSequence converts a genomic position to a sequence position
// counted from the transcript's 5' end.
func (r *Record) GenomicToSequence(pos int) (int, error) {
	walked, err := r.GenomicToWalked(pos)
	if err != nil {
		return 0, err
	}
	if r.Strand == '-' {
		return r.TotalBlockLen() - walked, nil
	}
	return walked, nil
}

// SequenceToGenomic converts a 5'-anchored sequence position back to a
// genomic position.
func (r *Record) SequenceToGenomic(seqPos int) (int, error) {
	walked := seqPos
	if r.Strand == '-' {
		walked = r.TotalBlockLen() - seqPos
	}
	return r.WalkedToGenomic(walked)
}

// InBlock reports whether pos falls inside [start, stop] and, for blocked
// records, inside an exon block. With requireThick, pos must additionally
// fall inside [thickStart, thickStop].
func (r *Record) InBlock(pos int, requireThick bool) bool {
	if requireThick && (pos < r.ThickStart || pos > r.ThickStop) {
		return false
	}
	if pos < r.Start || pos > r.Stop {
		return false
	}
	if r.ncols < 12 {
		return true
	}
	_, _, err := r.GenomicToBlock(pos)
	return err == nil
}
