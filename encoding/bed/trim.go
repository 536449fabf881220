package bed

// Destructive trims. "Upstream" and "downstream" are transcription-direction
// terms: with invertOnMinus set (the normal mode), trimming downstream on a
// '-' record removes bases at the genomic start, and vice versa. Each trim
// either fully applies or returns before mutating anything, so a failed trim
// never leaves a record with inconsistent blocks.

// TrimDownstream removes bp bases from the 3' end. With invertOnMinus, a '-'
// record delegates to TrimUpstream so the cut happens at the genomic start.
// bp <= 0 is a no-op. Trimming the whole record (bp >= total block length)
// fails with InvalidTrimError.
func (r *Record) TrimDownstream(bp int, invertOnMinus bool) error {
	if bp <= 0 {
		return nil
	}
	if r.Strand == '-' && invertOnMinus {
		return r.TrimUpstream(bp, false)
	}
	total := r.TotalBlockLen()
	if bp >= total {
		return &InvalidTrimError{ID: r.ID, Bp: bp, Total: total}
	}
	block, remainder, err := r.WalkedToBlock(total - bp)
	if err != nil {
		return err
	}
	r.BlockLens = r.BlockLens[:block+1]
	r.BlockStarts = r.BlockStarts[:block+1]
	r.BlockLens[block] = remainder
	r.BlockCount = block + 1
	r.Stop = r.Start + r.BlockStarts[block] + remainder
	if r.ThickStop > r.Stop {
		r.ThickStop = r.Stop
	}
	if r.ThickStart > r.ThickStop {
		r.ThickStart = r.ThickStop
	}
	return nil
}

// TrimUpstream removes bp bases from the 5' end. With invertOnMinus, a '-'
// record delegates to TrimDownstream so the cut happens at the genomic stop.
// bp <= 0 is a no-op. Trimming the whole record fails with InvalidTrimError.
func (r *Record) TrimUpstream(bp int, invertOnMinus bool) error {
	if bp <= 0 {
		return nil
	}
	if r.Strand == '-' && invertOnMinus {
		return r.TrimDownstream(bp, false)
	}
	total := r.TotalBlockLen()
	if bp >= total {
		return &InvalidTrimError{ID: r.ID, Bp: bp, Total: total}
	}
	block, remainder, err := r.WalkedToBlock(bp)
	if err != nil {
		return err
	}
	r.BlockLens = r.BlockLens[block:]
	r.BlockStarts = r.BlockStarts[block:]
	r.BlockLens[0] -= remainder
	r.BlockStarts[0] += remainder
	r.BlockCount = len(r.BlockLens)
	r.renormalize()
	// A trim landing exactly on a block edge leaves a zero-length leading
	// block; drop it (and any run of them) so the first block is real.
	for r.BlockLens[0] == 0 {
		r.BlockLens = r.BlockLens[1:]
		r.BlockStarts = r.BlockStarts[1:]
		r.BlockCount = len(r.BlockLens)
		r.renormalize()
	}
	return nil
}

// renormalize rebases block offsets so the first retained block sits at
// offset 0, advancing start by the shift and clamping the thick span into
// the new extent.
func (r *Record) renormalize() {
	shift := r.BlockStarts[0]
	r.Start += shift
	if shift != 0 {
		for i := range r.BlockStarts {
			r.BlockStarts[i] -= shift
		}
	}
	if r.ThickStart < r.Start {
		r.ThickStart = r.Start
	}
	if r.ThickStop < r.ThickStart {
		r.ThickStop = r.ThickStart
	}
}

// TrimToGenomicUpstream cuts the record so its transcription-direction 5'
// end sits at pos. The position must fall inside a block.
func (r *Record) TrimToGenomicUpstream(pos int) error {
	walked, err := r.GenomicToWalked(pos)
	if err != nil {
		return err
	}
	if r.Strand == '-' {
		return r.TrimUpstream(r.TotalBlockLen()-walked, true)
	}
	return r.TrimUpstream(walked, true)
}

// TrimToGenomicDownstream cuts the record so its transcription-direction 3'
// end sits at pos. The position must fall inside a block.
func (r *Record) TrimToGenomicDownstream(pos int) error {
	walked, err := r.GenomicToWalked(pos)
	if err != nil {
		return err
	}
	if r.Strand == '+' {
		return r.TrimDownstream(r.TotalBlockLen()-walked, true)
	}
	return r.TrimDownstream(walked, true)
}
