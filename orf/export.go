package orf

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/alejandrogzi/isopipe/encoding/bed"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
)

// Export pairs a candidate with the BED record cut out for it.
type Export struct {
	Candidate *Candidate
	Record    *bed.Record
}

// ExportORFs cuts each candidate's span out of its source transcript. The
// returned records keep the transcript's block structure across the ORF,
// with thick bounds covering the full cut and ids composed from the
// transcript and a per-transcript ordinal. Candidates whose transcript is
// missing or whose span does not trim cleanly (a boundary inside an intron,
// or a cut that would consume the record) are dropped with a count.
func ExportORFs(cands []*Candidate, transcripts map[string]*bed.Record) ([]Export, int) {
	var out []Export
	dropped := 0
	ordinal := make(map[string]int)
	for _, c := range cands {
		tx, ok := transcripts[c.Transcript]
		if !ok {
			log.Debug.Printf("orf: transcript %s not in annotation; candidate dropped", c.Transcript)
			dropped++
			continue
		}
		rec, err := exportSpan(tx, c.Span)
		if err != nil {
			log.Debug.Printf("orf: %s: %v; candidate dropped", c.Transcript, err)
			dropped++
			continue
		}
		rec.ID = fmt.Sprintf("%s_orf%d", c.Transcript, ordinal[c.Transcript])
		ordinal[c.Transcript]++
		out = append(out, Export{Candidate: c, Record: rec})
	}
	return out, dropped
}

func exportSpan(tx *bed.Record, span Span) (*bed.Record, error) {
	rec := tx.Clone()
	var err error
	switch span.Strand {
	case '+':
		if err = rec.TrimToGenomicUpstream(span.Start); err == nil {
			err = rec.TrimToGenomicDownstream(span.Stop)
		}
	case '-':
		if err = rec.TrimToGenomicUpstream(span.Stop); err == nil {
			err = rec.TrimToGenomicDownstream(span.Start)
		}
	default:
		err = fmt.Errorf("bad strand %q", string(span.Strand))
	}
	if err != nil {
		return nil, err
	}
	rec.ThickStart = rec.Start
	rec.ThickStop = rec.Stop
	return rec, nil
}

// CDSCall is one ORF-finder prediction in transcript sequence space.
type CDSCall struct {
	ID     string // <transcript>.p<N>
	Start  int    // start within the transcript sequence
	Stop   int    // exclusive stop within the transcript sequence
	Strand byte   // frame strand, relative to the transcript
}

// ReadCDSCalls reads ORF-finder BED output: the transcript id in column 1,
// transcript-space coordinates, and an ID=<tx>_ORF.<n> tag in column 4. The
// tag is normalized to the <tx>.p<N> form used everywhere downstream. Later
// rows for the same id replace earlier ones.
func ReadCDSCalls(path string) (map[string]CDSCall, error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	calls := make(map[string]CDSCall)
	scanner := bufio.NewScanner(in.Reader(ctx))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		cols := strings.Split(text, "\t")
		if len(cols) < 6 {
			return nil, fmt.Errorf("%s:%d: ORF call row has %d columns, want >= 6", path, line, len(cols))
		}
		tag := strings.SplitN(cols[3], ";", 2)[0]
		tag = strings.TrimPrefix(tag, "ID=")
		id := strings.Replace(tag, "_ORF.", ".p", 1)
		start, err := strconv.Atoi(cols[1])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad start: %v", path, line, err)
		}
		stop, err := strconv.Atoi(cols[2])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad stop: %v", path, line, err)
		}
		if cols[5] == "" {
			return nil, fmt.Errorf("%s:%d: empty strand", path, line)
		}
		calls[id] = CDSCall{ID: id, Start: start, Stop: stop, Strand: cols[5][0]}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return calls, nil
}

// ExportCDS cuts ORF-finder calls out of their transcripts. Calls follow the
// .p<N> id convention: predictions for transcript tx are named tx.p1, tx.p2
// and so on, and are consumed in order until the first missing index. The
// call's strand is relative to the transcript, so reverse-frame calls are
// skipped. Start positions of 0 or 1 are kept untrimmed; the call otherwise
// bounds the record to [Start, Stop) in sequence space. Calls that do not
// trim cleanly are dropped with a count.
func ExportCDS(transcripts []*bed.Record, calls map[string]CDSCall) ([]*bed.Record, int) {
	var out []*bed.Record
	dropped := 0
	for _, tx := range transcripts {
		for x := 1; ; x++ {
			call, ok := calls[tx.ID+".p"+strconv.Itoa(x)]
			if !ok {
				break
			}
			if call.Strand != '+' {
				continue
			}
			rec := tx.Clone()
			total := rec.TotalBlockLen()
			var err error
			if call.Start > 1 {
				err = rec.TrimUpstream(call.Start, true)
			}
			if err == nil {
				err = rec.TrimDownstream(total-call.Stop, true)
			}
			if err != nil {
				log.Debug.Printf("orf: %s: %v; call dropped", call.ID, err)
				dropped++
				continue
			}
			rec.ID = call.ID
			rec.ThickStart = rec.Start
			out = append(out, rec)
		}
	}
	return out, dropped
}

// NestedORF is one row of the nested-start report: an alternative in-frame
// start site within an exported CDS, offset in amino acids from the parent
// start.
type NestedORF struct {
	Base   string // parent record id, <tx>.p<N>
	Label  string // ORF<n> tag of the alternative start
	Offset int    // amino acids from the parent start
	Raw    string // original header token, kept for drop accounting
}

// ReadNestedORFs reads the nested-start TSV: a FASTA-style header token in
// column 1 and the amino-acid offset in column 2. The header token carries
// the parent id in ORF-finder form plus an _ORF<n> suffix; bracketed
// coordinate tails are stripped.
func ReadNestedORFs(path string) ([]NestedORF, error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	var out []NestedORF
	scanner := bufio.NewScanner(in.Reader(ctx))
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		cols := strings.Split(text, "\t")
		if len(cols) < 2 {
			return nil, fmt.Errorf("%s:%d: nested ORF row has %d columns, want >= 2", path, line, len(cols))
		}
		raw := strings.TrimPrefix(cols[0], ">")
		base := strings.SplitN(raw, "_[", 2)[0]
		base = strings.Replace(base, "_ORF.", ".p", 1)
		fields := strings.Split(raw, "_")
		offset, err := strconv.Atoi(strings.TrimSpace(cols[1]))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad offset: %v", path, line, err)
		}
		out = append(out, NestedORF{
			Base:   base,
			Label:  fields[len(fields)-1],
			Offset: offset,
			Raw:    raw,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportNested derives records for alternative in-frame start sites inside
// exported CDS records. Offset-zero rows re-emit their parent, once. Other
// rows trim the parent down to the nested start (offset codons plus one
// base) and then grow the 5' block back by that base, so the nested record
// begins exactly offset codons into the parent; the id gains the _ORF<n>
// suffix.
//
// Rows whose parent was never exported are dropped: silently when the header
// marks a reverse-frame peptide, counted otherwise. Offsets at or past the
// parent's length are counted too.
func ExportNested(exported []*bed.Record, nested []NestedORF) ([]*bed.Record, int) {
	parents := make(map[string]*bed.Record, len(exported))
	for _, rec := range exported {
		parents[rec.ID] = rec
	}
	var out []*bed.Record
	emitted := make(map[string]bool)
	dropped := 0
	for _, n := range nested {
		parent, ok := parents[n.Base]
		if !ok {
			if !strings.Contains(n.Raw, "(-)") {
				log.Debug.Printf("orf: nested start %s has no exported parent %s", n.Raw, n.Base)
				dropped++
			}
			continue
		}
		rec := parent.Clone()
		if n.Offset == 0 {
			if emitted[rec.ID] {
				continue
			}
			if rec.Stop < rec.Start {
				dropped++
				continue
			}
			emitted[rec.ID] = true
			out = append(out, rec)
			continue
		}
		rec.ID = n.Base + "_" + n.Label
		bp := n.Offset*3 + 1
		if bp >= rec.TotalBlockLen() {
			dropped++
			continue
		}
		if err := rec.TrimUpstream(bp, true); err != nil {
			log.Debug.Printf("orf: %s: %v; nested start dropped", rec.ID, err)
			dropped++
			continue
		}
		growFivePrime(rec)
		rec.ThickStart = rec.Start
		rec.ThickStop = rec.Stop
		out = append(out, rec)
	}
	return out, dropped
}

// growFivePrime extends the record's 5' block by one base, undoing the extra
// base the nested-start trim removed.
func growFivePrime(r *bed.Record) {
	if r.Strand == '-' {
		r.Stop++
		r.BlockLens[len(r.BlockLens)-1]++
		return
	}
	r.Start--
	r.BlockLens[0]++
	for i := 1; i < len(r.BlockStarts); i++ {
		r.BlockStarts[i]++
	}
}
