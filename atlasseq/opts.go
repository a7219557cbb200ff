package atlasseq

import "runtime"

// Opts are tuning knobs for the pipeline, separate from the run description
// in Config.
type Opts struct {
	// Mapq drops alignments below this mapping quality.
	Mapq int
	// MinReadLen drops reads shorter than this after trimming.
	MinReadLen int
	// TrimErrorRate is cutadapt's allowed error rate for adapter matches.
	TrimErrorRate float64
	// MergeDistance clusters junctions within this many bases (same strand)
	// into one insertion call.
	MergeDistance int
	// MinReads is the minimum read support for a reported insertion.
	MinReads int
	// DownsampleRate, when in (0, 1), randomly subsamples the input reads
	// before trimming.  1 (or 0) disables.
	DownsampleRate float64
	// Seed seeds downsampling.
	Seed int64
	// KeepDups skips the duplicate-removal stage.
	KeepDups bool
	// Force recomputes stage outputs even when they already exist.
	Force bool
	// Parallelism bounds concurrent per-sample work; 0 means NumCPU.
	Parallelism int
	// OutDir receives all outputs; empty means the current directory.
	OutDir string
	// TempDir receives sort scratch; empty means os.TempDir().
	TempDir string
}

// DefaultOpts are the defaults used by cmd/atlas-call.
var DefaultOpts = Opts{
	Mapq:          20,
	MinReadLen:    25,
	TrimErrorRate: 0.1,
	MergeDistance: 100,
	MinReads:      3,
	Seed:          1,
}

func (o *Opts) parallelism() int {
	if o.Parallelism > 0 {
		return o.Parallelism
	}
	return runtime.NumCPU()
}
