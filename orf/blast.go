package orf

import (
	"fmt"
	"io"
	"strings"

	"github.com/alejandrogzi/isopipe/encoding/fasta"
	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/base/vcontext"
	"github.com/pkg/errors"
)

// Group is one deduplicated sequence and the record ids that share it.
type Group struct {
	Key     string // sequence_<i>
	Seq     string
	Members []string
}

// Multiplex collapses identical sequences ahead of an external alignment
// pass, preserving first-seen order. Sequences are bucketed by 64-bit
// fingerprint with an exact comparison inside each bucket, so fingerprint
// collisions cannot merge distinct sequences.
func Multiplex(f fasta.Fasta) ([]Group, error) {
	var groups []Group
	buckets := make(map[uint64][]int)
	for _, name := range f.SeqNames() {
		n, err := f.Len(name)
		if err != nil {
			return nil, err
		}
		var seq string
		if n > 0 {
			if seq, err = f.Get(name, 0, n); err != nil {
				return nil, err
			}
		}
		fp := farm.Fingerprint64([]byte(seq))
		found := -1
		for _, gi := range buckets[fp] {
			if groups[gi].Seq == seq {
				found = gi
				break
			}
		}
		if found >= 0 {
			groups[found].Members = append(groups[found].Members, name)
			continue
		}
		buckets[fp] = append(buckets[fp], len(groups))
		groups = append(groups, Group{
			Key:     fmt.Sprintf("sequence_%d", len(groups)),
			Seq:     seq,
			Members: []string{name},
		})
	}
	return groups, nil
}

// WriteMultiplex writes the collapsed FASTA and the key-to-members index
// that Demultiplex consumes. Member ids are comma-joined in the index.
func WriteMultiplex(fastaPath, indexPath string, groups []Group) error {
	if err := writeMultiplexFasta(fastaPath, groups); err != nil {
		return err
	}
	return writeMultiplexIndex(indexPath, groups)
}

func writeMultiplexFasta(path string, groups []Group) (err error) {
	ctx := vcontext.Background()
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := fasta.NewWriter(out.Writer(ctx))
	for _, g := range groups {
		if err := w.Write(g.Key, g.Seq); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeMultiplexIndex(path string, groups []Group) (err error) {
	ctx := vcontext.Background()
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := tsv.NewWriter(out.Writer(ctx))
	w.WriteString("key\tmembers")
	if err := w.EndLine(); err != nil {
		return err
	}
	for _, g := range groups {
		w.WriteString(g.Key)
		w.WriteString(strings.Join(g.Members, ","))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadMultiplexIndex reads a WriteMultiplex index back into a key-to-members
// map.
func ReadMultiplexIndex(path string) (index map[string][]string, err error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	r := tsv.NewReader(in.Reader(ctx))
	r.HasHeaderRow = true
	var row struct {
		Key     string
		Members string
	}
	index = make(map[string][]string)
	for {
		if err := r.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "orf: read %s", path)
		}
		index[row.Key] = strings.Split(row.Members, ",")
	}
	return index, nil
}

// Demultiplex expands collapsed query ids in first-column-keyed tabular
// results back to their member ids, one output row per member. Rows whose
// key is not in the index are dropped with a warning.
func Demultiplex(index map[string][]string, resultsPath, outPath string) (err error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, resultsPath)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, in, &err)
	out, err := file.Create(ctx, outPath)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := out.Writer(ctx)
	return forEachLine(in.Reader(ctx), func(line int, text string) error {
		cols := strings.SplitN(text, "\t", 2)
		members, ok := index[cols[0]]
		if !ok {
			log.Error.Printf("orf: %s:%d: key %s not in index; row dropped", resultsPath, line, cols[0])
			return nil
		}
		rest := ""
		if len(cols) == 2 {
			rest = "\t" + cols[1]
		}
		for _, id := range members {
			if _, err := io.WriteString(w, id+rest+"\n"); err != nil {
				return err
			}
		}
		return nil
	})
}

// Hit is the best tabular-format alignment for one query.
type Hit struct {
	Query   string
	Subject string
	PID     float64
	EValue  float64
	// FrameOffset is subject start minus query start, the frame evidence
	// column.
	FrameOffset int
	// AlignedLen is the aligned query span in residues.
	AlignedLen int
}

// AlignedFraction returns the share of a query of queryLen residues covered
// by the hit.
func (h Hit) AlignedFraction(queryLen int) float64 {
	if queryLen <= 0 {
		return 0
	}
	return float64(h.AlignedLen) / float64(queryLen)
}

// PeptideLength returns the residue count of a translated sequence, ignoring
// a trailing stop symbol.
func PeptideLength(seq string) int {
	return len(strings.TrimSuffix(seq, "*"))
}

// ReadTabular6 reads BLAST/DIAMOND tabular output (outfmt 6: qseqid sseqid
// pident length mismatch gapopen qstart qend sstart send evalue bitscore).
// Tabular output ranks hits best-first, so rows after the first per query
// are ignored.
func ReadTabular6(path string) (hits map[string]Hit, err error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	r := tsv.NewReader(in.Reader(ctx))
	var row struct {
		QSeqID   string
		SSeqID   string
		PIdent   float64
		Length   int
		Mismatch int
		GapOpen  int
		QStart   int
		QEnd     int
		SStart   int
		SEnd     int
		EValue   float64
		BitScore float64
	}
	hits = make(map[string]Hit)
	for {
		if err := r.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "orf: read %s", path)
		}
		if _, ok := hits[row.QSeqID]; ok {
			continue
		}
		hits[row.QSeqID] = Hit{
			Query:       row.QSeqID,
			Subject:     row.SSeqID,
			PID:         row.PIdent,
			EValue:      row.EValue,
			FrameOffset: row.SStart - row.QStart,
			AlignedLen:  row.QEnd - row.QStart + 1,
		}
	}
	return hits, nil
}
