package orf

import (
	"io"
	"math"
	"sort"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/base/vcontext"
	"github.com/pkg/errors"
)

const (
	// DefaultThreshold is the default coding-probability floor.
	DefaultThreshold = 0.03
	// ScoreWindow is how far below its group's best probability a
	// candidate may sit and still survive as a secondary ORF.
	ScoreWindow = 0.025
	// OverlapFraction is the reciprocal span-overlap requirement for
	// matching candidates against projections.
	OverlapFraction = 0.8
)

// FeatureNames is the classifier's feature-column order: homology-search
// evidence, projection evidence, then predictor ORF bounds.
var FeatureNames = []string{
	"blast_pid",
	"blast_evalue",
	"blast_offset",
	"blast_aligned_fraction",
	"toga_pid",
	"toga_blosum",
	"toga_overlap_bp",
	"orf_start",
	"orf_stop",
}

// Classifier scores feature vectors with a coding probability. The
// production model is trained elsewhere; it appears here only as an opaque
// probability function.
type Classifier interface {
	// Probabilities returns the coding-class probability for each feature
	// vector.
	Probabilities(features [][]float64) ([]float64, error)
}

// Classify fills in each candidate's probability.
func Classify(cands []*Candidate, model Classifier) error {
	features := make([][]float64, len(cands))
	for i, c := range cands {
		features[i] = c.Features
	}
	probs, err := model.Probabilities(features)
	if err != nil {
		return err
	}
	if len(probs) != len(cands) {
		return errors.Errorf("orf: classifier returned %d probabilities for %d candidates", len(probs), len(cands))
	}
	for i, c := range cands {
		c.Probability = probs[i]
	}
	return nil
}

// LogisticModel is a linear scorer behind the Classifier interface: the dot
// product of weights and features plus the bias, through the logistic
// function.
type LogisticModel struct {
	Weights []float64 // one per FeatureNames entry
	Bias    float64
}

// Probabilities implements Classifier.
func (m *LogisticModel) Probabilities(features [][]float64) ([]float64, error) {
	probs := make([]float64, len(features))
	for i, f := range features {
		if len(f) != len(m.Weights) {
			return nil, errors.Errorf("orf: feature vector %d has %d values, model wants %d", i, len(f), len(m.Weights))
		}
		z := m.Bias
		for j, w := range m.Weights {
			z += w * f[j]
		}
		probs[i] = 1 / (1 + math.Exp(-z))
	}
	return probs, nil
}

// ReadLogisticModel reads a headerless name/weight TSV into a model. Names
// must come from FeatureNames, plus "bias" for the intercept; unnamed
// features keep weight zero.
func ReadLogisticModel(path string) (model *LogisticModel, err error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	index := make(map[string]int, len(FeatureNames))
	for i, name := range FeatureNames {
		index[name] = i
	}
	model = &LogisticModel{Weights: make([]float64, len(FeatureNames))}
	r := tsv.NewReader(in.Reader(ctx))
	var row struct {
		Name   string
		Weight float64
	}
	for {
		if err := r.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "orf: read %s", path)
		}
		if row.Name == "bias" {
			model.Bias = row.Weight
			continue
		}
		i, ok := index[row.Name]
		if !ok {
			return nil, errors.Errorf("orf: %s: unknown feature %q", path, row.Name)
		}
		model.Weights[i] = row.Weight
	}
	return model, nil
}

// ReadCandidates reads a candidate feature table: a header row, then one row
// per candidate with the transcript id, the ORF span in chrom|start|stop|strand
// form, and one column per FeatureNames entry, in order.
func ReadCandidates(path string) (cands []*Candidate, err error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	r := tsv.NewReader(in.Reader(ctx))
	r.HasHeaderRow = true
	var row struct {
		Transcript     string
		Span           string
		BlastPID       float64
		BlastEValue    float64
		BlastOffset    float64
		BlastAlignedFr float64
		TogaPID        float64
		TogaBlosum     float64
		TogaOverlapBP  float64
		ORFStart       float64
		ORFStop        float64
	}
	for {
		if err := r.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "orf: read %s", path)
		}
		span, err := ParseSpan(row.Span)
		if err != nil {
			return nil, errors.Wrapf(err, "orf: read %s", path)
		}
		cands = append(cands, &Candidate{
			Transcript: row.Transcript,
			Span:       span,
			Features: []float64{
				row.BlastPID, row.BlastEValue, row.BlastOffset, row.BlastAlignedFr,
				row.TogaPID, row.TogaBlosum, row.TogaOverlapBP,
				row.ORFStart, row.ORFStop,
			},
		})
	}
	return cands, nil
}

// FilterByThreshold keeps candidates at or above the probability floor.
// Overruled candidates survive regardless.
func FilterByThreshold(cands []*Candidate, threshold float64) []*Candidate {
	var out []*Candidate
	for _, c := range cands {
		if c.Probability >= threshold || c.Overruled {
			out = append(out, c)
		}
	}
	return out
}

// FilterByRelativeScore keeps, within each transcript's group, the
// candidates within window of the group's best probability. Input order is
// preserved.
func FilterByRelativeScore(cands []*Candidate, window float64) []*Candidate {
	best := make(map[string]float64)
	for _, c := range cands {
		if b, ok := best[c.Transcript]; !ok || c.Probability > b {
			best[c.Transcript] = c.Probability
		}
	}
	var out []*Candidate
	for _, c := range cands {
		if c.Probability >= best[c.Transcript]-window {
			out = append(out, c)
		}
	}
	return out
}

// Dedup keeps the best-probability candidate per (transcript, span). The
// result is grouped by transcript, best first within each group; ties keep
// input order.
func Dedup(cands []*Candidate) []*Candidate {
	sorted := append([]*Candidate(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Transcript != sorted[j].Transcript {
			return sorted[i].Transcript < sorted[j].Transcript
		}
		return sorted[i].Probability > sorted[j].Probability
	})
	type key struct {
		transcript string
		span       Span
	}
	seen := make(map[key]bool)
	var out []*Candidate
	for _, c := range sorted {
		k := key{c.Transcript, c.Span}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}
