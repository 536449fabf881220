package cmd

import (
	"fmt"
	"strconv"

	"github.com/alejandrogzi/isopipe/encoding/bed"
	"github.com/alejandrogzi/isopipe/orf"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"
)

func newCmdOverlap() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "overlap",
		Short:    "Report reciprocal span overlaps between two BED files",
		ArgsName: "a.bed b.bed out.tsv",
	}
	fracFlag := cmd.Flags.Float64("frac", orf.OverlapFraction, "Span fraction both records of a pair must reach.")
	projFlag := cmd.Flags.String("projections", "", "Projection classification table; joins label, pid and blosum columns on the b-record id.")
	maskedFlag := cmd.Flags.String("masked", "", "Masked-codon table adding the masked column; requires -projections.")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 3 {
			return fmt.Errorf("overlap takes a.bed b.bed out.tsv, but got %v", argv)
		}
		a, err := bed.ReadRecords(argv[0])
		if err != nil {
			return err
		}
		b, err := bed.ReadRecords(argv[1])
		if err != nil {
			return err
		}
		var projs map[string]*orf.Projection
		if *projFlag != "" {
			if projs, err = orf.ReadProjections(*projFlag, *maskedFlag); err != nil {
				return err
			}
		} else if *maskedFlag != "" {
			return fmt.Errorf("-masked requires -projections")
		}
		overlaps := orf.ReciprocalOverlap(a, b, *fracFlag)
		if err := writeOverlaps(argv[2], overlaps, projs); err != nil {
			return err
		}
		log.Printf("overlap: %d pairs written", len(overlaps))
		return nil
	})
	return cmd
}

func writeOverlaps(path string, overlaps []orf.Overlap, projs map[string]*orf.Projection) (err error) {
	ctx := vcontext.Background()
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := tsv.NewWriter(out.Writer(ctx))
	header := "a\tb\toverlap_bp"
	if projs != nil {
		header += "\tlabel\tpid\tblosum\tmasked"
	}
	w.WriteString(header)
	if err := w.EndLine(); err != nil {
		return err
	}
	for _, ov := range overlaps {
		w.WriteString(ov.A.ID)
		w.WriteString(ov.B.ID)
		w.WriteInt64(int64(ov.BP))
		if projs != nil {
			p := projs[ov.B.ID]
			if p == nil {
				p = &orf.Projection{}
			}
			w.WriteString(p.Label)
			w.WriteString(strconv.FormatFloat(p.PID, 'g', -1, 64))
			w.WriteString(strconv.FormatFloat(p.Blosum, 'g', -1, 64))
			w.WriteString(strconv.FormatBool(p.Masked))
		}
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}
