package main

/*
atlas-call runs the ATLAS-seq insertion-calling pipeline for every sample in
a TOML run configuration: demultiplexing, adapter trimming (cutadapt),
alignment (bwa aln/samse), duplicate removal (picard) and junction
clustering.  Outputs are named <prefix>.<sample>.<suffix> under -out-dir;
per-sample read counts land in <prefix>.stats.tsv.
*/

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/atlas-seq/atlas/atlasseq"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
)

var (
	mapq           = flag.Int("mapq", atlasseq.DefaultOpts.Mapq, "Alignments with MAPQ below this level are skipped")
	minReadLen     = flag.Int("min-read-len", atlasseq.DefaultOpts.MinReadLen, "Reads shorter than this after trimming are discarded")
	trimErrorRate  = flag.Float64("trim-error-rate", atlasseq.DefaultOpts.TrimErrorRate, "Allowed adapter-match error rate passed to cutadapt")
	mergeDistance  = flag.Int("merge-distance", atlasseq.DefaultOpts.MergeDistance, "Junctions within this many bases on the same strand form one insertion call")
	minReads       = flag.Int("min-reads", atlasseq.DefaultOpts.MinReads, "Minimum read support for a reported insertion")
	downsampleRate = flag.Float64("downsample", 0, "Randomly keep this fraction of reads before alignment; 0 or 1 disables")
	seed           = flag.Int64("seed", atlasseq.DefaultOpts.Seed, "Random seed for downsampling")
	keepDups       = flag.Bool("keep-dups", false, "Skip picard duplicate removal")
	force          = flag.Bool("force", false, "Recompute stage outputs even when they already exist")
	parallelism    = flag.Int("parallelism", 0, "Maximum number of samples processed simultaneously; 0 = runtime.NumCPU()")
	outDir         = flag.String("out-dir", ".", "Directory to write outputs to")
	tempDir        = flag.String("temp-dir", "", "Directory to write sort scratch to (default os.TempDir())")
)

func atlasCallUsage() {
	fmt.Printf("Usage: %s [OPTIONS] configpath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = atlasCallUsage
	shutdown := grail.Init()
	defer shutdown()

	positionalArgs := flag.Args()
	if len(positionalArgs) != 1 {
		log.Fatalf("Expected one positional argument (configpath); please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
	}
	ctx := vcontext.Background()

	cfg, err := atlasseq.LoadConfig(positionalArgs[0])
	if err != nil {
		log.Fatalf("%v", err)
	}
	opts := atlasseq.Opts{
		Mapq:           *mapq,
		MinReadLen:     *minReadLen,
		TrimErrorRate:  *trimErrorRate,
		MergeDistance:  *mergeDistance,
		MinReads:       *minReads,
		DownsampleRate: *downsampleRate,
		Seed:           *seed,
		KeepDups:       *keepDups,
		Force:          *force,
		Parallelism:    *parallelism,
		OutDir:         *outDir,
		TempDir:        *tempDir,
	}
	pipeline, err := atlasseq.NewPipeline(cfg, opts)
	if err != nil {
		log.Fatalf("%v", err)
	}
	metrics, err := pipeline.Run(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}
	for _, m := range metrics {
		log.Printf("%s: %d reads, %d trimmed, %d aligned, %d unique, %d insertions",
			m.Sample, m.TotalReads, m.Trimmed, m.Aligned, m.Unique, m.Insertions)
	}
	log.Debug.Printf("exiting")
}
