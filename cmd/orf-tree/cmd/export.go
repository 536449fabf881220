package cmd

import (
	"fmt"

	"github.com/alejandrogzi/isopipe/encoding/bed"
	"github.com/alejandrogzi/isopipe/orf"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"v.io/x/lib/cmdline"
)

func readAnnotationByID(path string) (map[string]*bed.Record, error) {
	recs, err := bed.ReadRecords(path)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*bed.Record, len(recs))
	for _, r := range recs {
		byID[r.ID] = r
	}
	return byID, nil
}

func newCmdExport() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "export",
		Short:    "Cut candidate ORF spans out of their transcripts",
		ArgsName: "candidates.tsv annotation.bed out.bed",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 3 {
			return fmt.Errorf("export takes candidates.tsv annotation.bed out.bed, but got %v", argv)
		}
		cands, err := orf.ReadCandidates(argv[0])
		if err != nil {
			return err
		}
		byID, err := readAnnotationByID(argv[1])
		if err != nil {
			return err
		}
		exports, dropped := orf.ExportORFs(cands, byID)
		recs := make([]*bed.Record, len(exports))
		for i, e := range exports {
			recs[i] = e.Record
		}
		if err := bed.WriteRecords(argv[2], recs); err != nil {
			return err
		}
		log.Printf("export: %d ORFs written, %d dropped", len(recs), dropped)
		return nil
	})
	return cmd
}

func newCmdExportCDS() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "export-cds",
		Short:    "Export ORF-finder calls as genomic BED records",
		ArgsName: "annotation.bed calls.bed out.bed",
	}
	nestedFlag := cmd.Flags.String("nested", "", `Nested-start report. When set, the output holds one record per
nested start (offset-zero rows re-emit their parent call) instead of one
record per call.`)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 3 {
			return fmt.Errorf("export-cds takes annotation.bed calls.bed out.bed, but got %v", argv)
		}
		transcripts, err := bed.ReadRecords(argv[0])
		if err != nil {
			return err
		}
		calls, err := orf.ReadCDSCalls(argv[1])
		if err != nil {
			return err
		}
		recs, dropped := orf.ExportCDS(transcripts, calls)
		if *nestedFlag != "" {
			nested, err := orf.ReadNestedORFs(*nestedFlag)
			if err != nil {
				return err
			}
			var droppedNested int
			recs, droppedNested = orf.ExportNested(recs, nested)
			dropped += droppedNested
		}
		if err := bed.WriteRecords(argv[2], recs); err != nil {
			return err
		}
		log.Printf("export-cds: %d records written, %d dropped", len(recs), dropped)
		return nil
	})
	return cmd
}
