// Package cmd implements the orf-tree subcommands: the coordinate plumbing
// around the pipeline's external ORF evidence tools (ORF finder, translation
// predictor, homology search, orthology projections) and the final
// classification pass that calls each transcript coding or noncoding.
package cmd

import (
	"log"

	"v.io/x/lib/cmdline"
)

func Run() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "orf-tree",
			Short:    "Classify transcript ORF candidates as coding or noncoding",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdExport(),
				newCmdExportCDS(),
				newCmdPredictorFasta(),
				newCmdPredictorTrim(),
				newCmdOverlap(),
				newCmdMultiplex(),
				newCmdDemultiplex(),
				newCmdChunkBed(),
				newCmdChunkFasta(),
				newCmdClassify(),
			},
		})
}
