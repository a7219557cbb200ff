package main

/*
atlas-mrc generates matched random controls: random genomic intervals whose
GC-content and strand distribution match a set of target intervals, avoiding
an optional exclusion mask.  The controls are used as a null model when
testing insertion sites for positional biases.
*/

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/atlas-seq/atlas/encoding/bed"
	"github.com/atlas-seq/atlas/encoding/fasta"
	"github.com/atlas-seq/atlas/interval"
	"github.com/atlas-seq/atlas/mrc"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
)

var (
	binWidth    = flag.Int("bin-width", mrc.DefaultOpts.BinWidth, "GC-percent bin width used when matching target composition")
	length      = flag.Int("length", mrc.DefaultOpts.Length, "Control interval length; 0 = median target length")
	replicates  = flag.Int("replicates", mrc.DefaultOpts.Replicates, "Number of disjoint control sets to generate")
	seed        = flag.Int64("seed", mrc.DefaultOpts.Seed, "Random seed")
	maxAttempts = flag.Int("max-attempts", mrc.DefaultOpts.MaxAttemptsPerInterval, "Sampling attempt budget per requested interval")
	maxNFrac    = flag.Float64("max-n-fraction", mrc.DefaultOpts.MaxNFraction, "Candidates with a higher fraction of N bases are rejected")
	excludePath = flag.String("exclude", "", "BED of regions controls must not overlap (assembly gaps, blacklists)")
	includePath = flag.String("include", "", "BED of allowed regions; controls are confined to them (mutually exclusive with -exclude)")
	oneBased    = flag.Bool("one-based", false, "Treat -exclude/-include coordinates as 1-based")
	outPrefix   = flag.String("out", "atlas-mrc", "Output path prefix")
)

func atlasMRCUsage() {
	fmt.Printf("Usage: %s [OPTIONS] fapath bedpath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = atlasMRCUsage
	shutdown := grail.Init()
	defer shutdown()

	positionalArgs := flag.Args()
	if len(positionalArgs) != 2 {
		log.Fatalf("Expected positional arguments fapath and bedpath; please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
	}
	faPath, bedPath := positionalArgs[0], positionalArgs[1]
	ctx := vcontext.Background()

	faFile, err := os.Open(faPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer faFile.Close()
	faiPath := faPath + ".fai"
	if _, err := os.Stat(faiPath); os.IsNotExist(err) {
		log.Printf("%s not found, generating", faiPath)
		if err := fasta.GenerateIndexFromPath(faPath); err != nil {
			log.Fatalf("%v", err)
		}
	}
	faiFile, err := os.Open(faiPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer faiFile.Close()
	fa, err := fasta.NewIndexed(faFile, faiFile)
	if err != nil {
		log.Fatalf("%v", err)
	}

	targets, err := bed.ReadAllFromPath(bedPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	var exclude *interval.BEDUnion
	switch {
	case *excludePath != "" && *includePath != "":
		log.Fatalf("-exclude and -include are mutually exclusive")
	case *excludePath != "":
		u, err := interval.NewBEDUnionFromPath(*excludePath, interval.NewBEDOpts{OneBasedInput: *oneBased})
		if err != nil {
			log.Fatalf("%v", err)
		}
		exclude = &u
	case *includePath != "":
		// Inverting the allowed regions turns them into the mask the
		// sampler rejects against.
		u, err := interval.NewBEDUnionFromPath(*includePath, interval.NewBEDOpts{Invert: true, OneBasedInput: *oneBased})
		if err != nil {
			log.Fatalf("%v", err)
		}
		exclude = &u
	}

	opts := mrc.Opts{
		BinWidth:               *binWidth,
		Length:                 *length,
		Replicates:             *replicates,
		Seed:                   *seed,
		MaxAttemptsPerInterval: *maxAttempts,
		MaxNFraction:           *maxNFrac,
	}
	controls, stats, err := mrc.Generate(ctx, fa, targets, exclude, opts)
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("%s", stats.String())
	for i, entries := range controls {
		path := fmt.Sprintf("%s.bed", *outPrefix)
		if len(controls) > 1 {
			path = fmt.Sprintf("%s.rep%d.bed", *outPrefix, i+1)
		}
		if err := bed.WriteAllToPath(path, entries); err != nil {
			log.Fatalf("%v", err)
		}
		log.Printf("wrote %d control intervals to %s", len(entries), path)
	}
	log.Debug.Printf("exiting")
}
