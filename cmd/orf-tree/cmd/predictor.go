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

func newCmdPredictorFasta() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "predictor-fasta",
		Short:    "Write spliced transcript sequences for the translation predictor",
		ArgsName: "annotation.bed genome.fa out.fa",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 3 {
			return fmt.Errorf("predictor-fasta takes annotation.bed genome.fa out.fa, but got %v", argv)
		}
		recs, err := bed.ReadRecords(argv[0])
		if err != nil {
			return err
		}
		genome, err := fasta.NewFromPath(argv[1])
		if err != nil {
			return err
		}
		if err := orf.FormatForTranslationAI(argv[2], genome, recs); err != nil {
			return err
		}
		log.Printf("predictor-fasta: %d sequences written", len(recs))
		return nil
	})
	return cmd
}

func newCmdPredictorTrim() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "predictor-trim",
		Short:    "Trim transcripts to predicted ORFs, one record per variant",
		ArgsName: "predictions.tsv annotation.bed out.bed",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 3 {
			return fmt.Errorf("predictor-trim takes predictions.tsv annotation.bed out.bed, but got %v", argv)
		}
		preds, err := orf.ReadPredictions(argv[0])
		if err != nil {
			return err
		}
		byID, err := readAnnotationByID(argv[1])
		if err != nil {
			return err
		}
		out, dropped := orf.TrimPredictions(byID, preds)
		if err := bed.WriteRecords(argv[2], out); err != nil {
			return err
		}
		log.Printf("predictor-trim: %d records written, %d dropped", len(out), dropped)
		return nil
	})
	return cmd
}
