package cmd

import (
	"fmt"

	"github.com/alejandrogzi/isopipe/encoding/bed"
	"github.com/alejandrogzi/isopipe/encoding/fasta"
	"github.com/alejandrogzi/isopipe/orf"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"v.io/x/lib/cmdline"
)

func newCmdMultiplex() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "multiplex",
		Short:    "Collapse identical sequences ahead of a homology search",
		ArgsName: "in.fa out.fa index.tsv",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 3 {
			return fmt.Errorf("multiplex takes in.fa out.fa index.tsv, but got %v", argv)
		}
		f, err := fasta.NewFromPath(argv[0])
		if err != nil {
			return err
		}
		groups, err := orf.Multiplex(f)
		if err != nil {
			return err
		}
		if err := orf.WriteMultiplex(argv[1], argv[2], groups); err != nil {
			return err
		}
		log.Printf("multiplex: %d sequences collapsed into %d groups", len(f.SeqNames()), len(groups))
		return nil
	})
	return cmd
}

func newCmdDemultiplex() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "demultiplex",
		Short:    "Expand collapsed query ids in tabular search results",
		ArgsName: "index.tsv results.tsv out.tsv",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 3 {
			return fmt.Errorf("demultiplex takes index.tsv results.tsv out.tsv, but got %v", argv)
		}
		index, err := orf.ReadMultiplexIndex(argv[0])
		if err != nil {
			return err
		}
		return orf.Demultiplex(index, argv[1], argv[2])
	})
	return cmd
}

func newCmdChunkBed() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "chunk-bed",
		Short:    "Split a BED file into fixed-size chunks",
		ArgsName: "in.bed outdir",
	}
	sizeFlag := cmd.Flags.Int("size", 1000, "Records per chunk.")
	patternFlag := cmd.Flags.String("pattern", "chunk_%d.bed", "Chunk filename pattern with one %d verb.")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("chunk-bed takes in.bed outdir, but got %v", argv)
		}
		recs, err := bed.ReadRecords(argv[0])
		if err != nil {
			return err
		}
		n, err := orf.WriteRecordChunks(argv[1], *patternFlag, recs, *sizeFlag)
		if err != nil {
			return err
		}
		log.Printf("chunk-bed: %d records into %d chunks", len(recs), n)
		return nil
	})
	return cmd
}

func newCmdChunkFasta() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "chunk-fasta",
		Short:    "Split a FASTA file into fixed-size chunks",
		ArgsName: "in.fa outdir",
	}
	sizeFlag := cmd.Flags.Int("size", 1000, "Sequences per chunk.")
	patternFlag := cmd.Flags.String("pattern", "chunk_%d.fa", "Chunk filename pattern with one %d verb.")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("chunk-fasta takes in.fa outdir, but got %v", argv)
		}
		f, err := fasta.NewFromPath(argv[0])
		if err != nil {
			return err
		}
		n, err := orf.WriteFastaChunks(argv[1], *patternFlag, f, *sizeFlag)
		if err != nil {
			return err
		}
		log.Printf("chunk-fasta: %d sequences into %d chunks", len(f.SeqNames()), n)
		return nil
	})
	return cmd
}
