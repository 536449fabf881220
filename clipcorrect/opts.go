package clipcorrect

// Opts configures a correction run.
type Opts struct {
	// ClipCutoff is the minimum recorded 3' clip length for an alignment
	// to be considered for correction.
	ClipCutoff int
	// Wiggle is the boundary-matching tolerance in bp: a read end within
	// [-Wiggle, Wiggle] of an internal exon 3' end is a candidate.
	Wiggle int
	// Debug writes per-stage artifacts under DebugDir: the corrected-only,
	// discarded and collapsed SAM subsets, the per-candidate comparison
	// report, and the nonzero-offset match report.
	Debug bool
	// DebugDir receives the Debug artifacts.
	DebugDir string
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	ClipCutoff: 2, // -clip-cutoff
	Wiggle:     2, // -wiggle
}
