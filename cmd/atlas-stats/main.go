package main

/*
atlas-stats merges per-run stats tables produced by atlas-call into one TSV,
for comparing read yields across runs and samples.
*/

import (
	"flag"
	"fmt"
	"os"

	"github.com/atlas-seq/atlas/atlasseq"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
)

var outPath = flag.String("out", "", "Output TSV path; stdout when empty")

func atlasStatsUsage() {
	fmt.Printf("Usage: %s [OPTIONS] statspath...\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = atlasStatsUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() == 0 {
		log.Fatalf("Expected at least one stats file")
	}
	inputs := make([][]atlasseq.Metrics, 0, flag.NArg())
	for _, path := range flag.Args() {
		rows, err := atlasseq.ReadStatsFromPath(path)
		if err != nil {
			log.Fatalf("%v", err)
		}
		inputs = append(inputs, rows)
	}
	merged := atlasseq.MergeStats(inputs)
	if *outPath == "" {
		if err := atlasseq.WriteStats(os.Stdout, merged); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}
	if err := atlasseq.WriteStatsToPath(*outPath, merged); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("wrote %d rows to %s", len(merged), *outPath)
}
