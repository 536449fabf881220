package main

// correct-minimap rescues spliced long-read alignments whose 3' ends were
// soft-clipped at an internal exon boundary. Reads whose recorded clip
// matches the start of the downstream exon get their alignment extended
// across the junction; everything else passes through unchanged.
//
// Example:
//
//	correct-minimap -annotation ann.bed -genome hg38.fa \
//	    -sam aligned.sam -out corrected.sam

import (
	"flag"

	"github.com/alejandrogzi/isopipe/clipcorrect"
	"github.com/alejandrogzi/isopipe/encoding/fasta"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
)

type correctFlags struct {
	annotationPath string
	genomePath     string
	samPath        string
	outPath        string
}

func main() {
	opts := clipcorrect.DefaultOpts
	flags := correctFlags{}
	flag.StringVar(&flags.annotationPath, "annotation", "", "Transcript annotation BED the reads were aligned against.")
	flag.StringVar(&flags.genomePath, "genome", "", "Genome FASTA for the clip-to-exon sequence comparison.")
	flag.StringVar(&flags.samPath, "sam", "", "Input SAM with clip metadata in the read names.")
	flag.StringVar(&flags.outPath, "out", "", "Corrected SAM output path.")
	flag.IntVar(&opts.ClipCutoff, "clip-cutoff", clipcorrect.DefaultOpts.ClipCutoff, "Minimum recorded 3' clip length for a read to be considered.")
	flag.IntVar(&opts.Wiggle, "wiggle", clipcorrect.DefaultOpts.Wiggle, "Boundary match tolerance in bp around internal exon 3' ends.")
	flag.BoolVar(&opts.Debug, "debug", false, "Write per-stage debug artifacts under -debug-dir.")
	flag.StringVar(&opts.DebugDir, "debug-dir", "", "Directory for -debug artifacts.")

	cleanup := grail.Init()
	defer cleanup()

	if flags.annotationPath == "" || flags.genomePath == "" || flags.samPath == "" || flags.outPath == "" {
		log.Fatal("-annotation, -genome, -sam and -out are all required")
	}
	if opts.Debug && opts.DebugDir == "" {
		log.Fatal("-debug requires -debug-dir")
	}
	genome, err := fasta.NewFromPath(flags.genomePath)
	if err != nil {
		log.Fatalf("read genome %s: %v", flags.genomePath, err)
	}
	stats, err := clipcorrect.Correct(flags.annotationPath, flags.samPath, flags.outPath, genome, opts)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Stats: %+v", stats)
	log.Printf("All done")
}
