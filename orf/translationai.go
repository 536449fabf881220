package orf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alejandrogzi/isopipe/encoding/bed"
	"github.com/alejandrogzi/isopipe/encoding/fasta"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/pkg/errors"
)

// Prediction is one start/stop call from the translation predictor: a
// variant index within its transcript, sequence-space ORF bounds, and the
// start/stop site scores.
type Prediction struct {
	Transcript string
	Index      int // 0 for the primary variant
	Start      int
	Stop       int
	StartScore float64
	StopScore  float64
}

// Score returns the BED score for the prediction: the mean of the two site
// scores scaled to 1000.
func (p Prediction) Score() int {
	return int((p.StartScore + p.StopScore) / 2 * 1000)
}

// FormatForTranslationAI writes each record's spliced sequence in the
// predictor's expected FASTA form, with headers carrying the genomic span,
// strand and record id:
//
//	>chr3:1000-4000(+)(tx1)(0,0, )
//
// A record missing from the genome fails the whole export; a partial input
// would silently truncate the predictor's output downstream.
func FormatForTranslationAI(path string, genome fasta.Fasta, recs []*bed.Record) (err error) {
	ctx := vcontext.Background()
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := fasta.NewWriter(out.Writer(ctx))
	for _, rec := range recs {
		seq, err := fasta.Extract(genome, rec)
		if err != nil {
			return errors.Wrapf(err, "orf: transcript %s", rec.ID)
		}
		header := fmt.Sprintf("%s:%d-%d(%c)(%s)(0,0, )", rec.Chrom, rec.Start, rec.Stop, rec.Strand, rec.ID)
		if err := w.Write(header, seq); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ParsePredictions reads raw predictor output: one line per transcript, the
// formatted header in the first column followed by one comma-separated
// variant per extra column (start, stop, start score, stop score). The
// transcript id is recovered from the second parenthesized header group.
// The primary variant's stop is advanced past the stop codon; secondary
// variants are kept as called. Malformed variants are skipped with a
// warning.
func ParsePredictions(r io.Reader) ([]Prediction, error) {
	var out []Prediction
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), 4<<20)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		cols := strings.Split(text, "\t")
		groups := strings.Split(cols[0], "(")
		if len(groups) < 3 {
			return nil, fmt.Errorf("line %d: header %q lacks an id group", line, cols[0])
		}
		id := strings.SplitN(groups[2], ")", 2)[0]
		for i, variant := range cols[1:] {
			p, err := parseVariant(id, i, variant)
			if err != nil {
				log.Error.Printf("orf: line %d: %v; variant skipped", line, err)
				continue
			}
			out = append(out, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseVariant(id string, index int, s string) (Prediction, error) {
	fields := strings.Split(strings.TrimSpace(s), ",")
	if len(fields) < 4 {
		return Prediction{}, fmt.Errorf("variant %q has %d fields, want 4", s, len(fields))
	}
	start, err := strconv.Atoi(fields[0])
	if err != nil {
		return Prediction{}, fmt.Errorf("variant %q: %v", s, err)
	}
	stop, err := strconv.Atoi(fields[1])
	if err != nil {
		return Prediction{}, fmt.Errorf("variant %q: %v", s, err)
	}
	startScore, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Prediction{}, fmt.Errorf("variant %q: %v", s, err)
	}
	stopScore, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return Prediction{}, fmt.Errorf("variant %q: %v", s, err)
	}
	if index == 0 {
		// The primary call reports the last codon of the frame; keep the
		// stop codon inside the trimmed model.
		stop += 3
	}
	return Prediction{
		Transcript: id,
		Index:      index,
		Start:      start,
		Stop:       stop,
		StartScore: startScore,
		StopScore:  stopScore,
	}, nil
}

// ReadPredictions reads predictor output from a file.
func ReadPredictions(path string) (preds []Prediction, err error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	preds, err = ParsePredictions(in.Reader(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "orf: read %s", path)
	}
	return preds, nil
}

// TrimToPrediction returns a copy of tx cut down to the prediction's
// sequence-space bounds, scored with the prediction's mean site score and
// renamed <id>_<index>.
func TrimToPrediction(tx *bed.Record, p Prediction) (*bed.Record, error) {
	rec := tx.Clone()
	total := rec.TotalBlockLen()
	if err := rec.TrimUpstream(p.Start, true); err != nil {
		return nil, err
	}
	if err := rec.TrimDownstream(total-p.Stop, true); err != nil {
		return nil, err
	}
	rec.Score = strconv.Itoa(p.Score())
	rec.ID = fmt.Sprintf("%s_%d", rec.ID, p.Index)
	return rec, nil
}

// TrimPredictions cuts transcript models down to predicted ORFs, one record
// per prediction. Predictions whose transcript is missing or whose bounds do
// not trim cleanly are dropped with a count.
func TrimPredictions(transcripts map[string]*bed.Record, preds []Prediction) ([]*bed.Record, int) {
	var out []*bed.Record
	dropped := 0
	for _, p := range preds {
		tx, ok := transcripts[p.Transcript]
		if !ok {
			log.Debug.Printf("orf: transcript %s not in annotation; prediction dropped", p.Transcript)
			dropped++
			continue
		}
		rec, err := TrimToPrediction(tx, p)
		if err != nil {
			log.Debug.Printf("orf: %s variant %d: %v; prediction dropped", p.Transcript, p.Index, err)
			dropped++
			continue
		}
		out = append(out, rec)
	}
	if dropped > 0 {
		log.Printf("orf: dropped %d of %d predicted variants", dropped, len(preds))
	}
	return out, dropped
}
