package orf

import (
	"fmt"
	"path/filepath"

	"github.com/alejandrogzi/isopipe/encoding/bed"
	"github.com/alejandrogzi/isopipe/encoding/fasta"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
)

// ChunkRecords splits recs into consecutive chunks of at most size records,
// the final chunk holding the remainder. size < 1 yields a single chunk.
func ChunkRecords(recs []*bed.Record, size int) [][]*bed.Record {
	if len(recs) == 0 {
		return nil
	}
	if size < 1 {
		size = len(recs)
	}
	var chunks [][]*bed.Record
	for start := 0; start < len(recs); start += size {
		end := start + size
		if end > len(recs) {
			end = len(recs)
		}
		chunks = append(chunks, recs[start:end])
	}
	return chunks
}

// WriteRecordChunks writes recs into files of at most size rows under dir.
// pattern must contain one %d verb for the 0-based chunk number. Returns the
// number of chunks written.
func WriteRecordChunks(dir, pattern string, recs []*bed.Record, size int) (int, error) {
	chunks := ChunkRecords(recs, size)
	for i, chunk := range chunks {
		path := filepath.Join(dir, fmt.Sprintf(pattern, i))
		if err := bed.WriteRecords(path, chunk); err != nil {
			return i, err
		}
	}
	return len(chunks), nil
}

// ChunkFasta splits the sequence names of f into consecutive chunks of at
// most size names, in file order. size < 1 yields a single chunk.
func ChunkFasta(f fasta.Fasta, size int) [][]string {
	names := f.SeqNames()
	if len(names) == 0 {
		return nil
	}
	if size < 1 {
		size = len(names)
	}
	var chunks [][]string
	for start := 0; start < len(names); start += size {
		end := start + size
		if end > len(names) {
			end = len(names)
		}
		chunks = append(chunks, names[start:end])
	}
	return chunks
}

// WriteFastaChunks writes the sequences of f into files of at most size
// records under dir. pattern must contain one %d verb for the 0-based chunk
// number. Returns the number of chunks written.
func WriteFastaChunks(dir, pattern string, f fasta.Fasta, size int) (int, error) {
	chunks := ChunkFasta(f, size)
	for i, chunk := range chunks {
		path := filepath.Join(dir, fmt.Sprintf(pattern, i))
		if err := writeFastaChunk(path, f, chunk); err != nil {
			return i, err
		}
	}
	return len(chunks), nil
}

func writeFastaChunk(path string, f fasta.Fasta, names []string) (err error) {
	ctx := vcontext.Background()
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := fasta.NewWriter(out.Writer(ctx))
	for _, name := range names {
		n, err := f.Len(name)
		if err != nil {
			return err
		}
		var seq string
		if n > 0 {
			if seq, err = f.Get(name, 0, n); err != nil {
				return err
			}
		}
		if err := w.Write(name, seq); err != nil {
			return err
		}
	}
	return w.Flush()
}
