package cmd

import (
	"fmt"

	"github.com/alejandrogzi/isopipe/encoding/bed"
	"github.com/alejandrogzi/isopipe/orf"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"v.io/x/lib/cmdline"
)

func newCmdClassify() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "classify",
		Short:    "Score candidates and write the coding verdict track",
		ArgsName: "candidates.tsv model.tsv out.bed",
	}
	thresholdFlag := cmd.Flags.Float64("threshold", orf.DefaultThreshold, "Coding-probability floor.")
	windowFlag := cmd.Flags.Float64("window", orf.ScoreWindow, "How far below its transcript's best probability a candidate may sit and survive.")
	annotationFlag := cmd.Flags.String("annotation", "", "Transcript annotation; required with -coding and -noncoding.")
	codingFlag := cmd.Flags.String("coding", "", "Per-kept-candidate transcript rows, thick bounds moved to the ORF.")
	noncodingFlag := cmd.Flags.String("noncoding", "", "Transcript rows with no kept candidate, unchanged.")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 3 {
			return fmt.Errorf("classify takes candidates.tsv model.tsv out.bed, but got %v", argv)
		}
		cands, err := orf.ReadCandidates(argv[0])
		if err != nil {
			return err
		}
		model, err := orf.ReadLogisticModel(argv[1])
		if err != nil {
			return err
		}
		if err := orf.Classify(cands, model); err != nil {
			return err
		}
		kept := orf.FilterByThreshold(cands, *thresholdFlag)
		kept = orf.FilterByRelativeScore(kept, *windowFlag)
		kept = orf.Dedup(kept)
		if _, err := orf.WriteResults(argv[2], kept, *thresholdFlag); err != nil {
			return err
		}
		log.Printf("classify: %d of %d candidates kept", len(kept), len(cands))
		if *codingFlag == "" && *noncodingFlag == "" {
			return nil
		}
		if *annotationFlag == "" || *codingFlag == "" || *noncodingFlag == "" {
			return fmt.Errorf("-annotation, -coding and -noncoding must be set together")
		}
		transcripts, err := bed.ReadRecords(*annotationFlag)
		if err != nil {
			return err
		}
		return orf.WriteCodingSplit(*codingFlag, *noncodingFlag, transcripts, kept)
	})
	return cmd
}
