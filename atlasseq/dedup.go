package atlasseq

import (
	"context"

	"github.com/atlas-seq/atlas/exttool"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// Dedup removes PCR duplicates from a sorted BAM with picard MarkDuplicates
// and indexes the result.  Returns the number of alignments remaining.
func Dedup(ctx context.Context, picard, samtools exttool.Tool, bamPath, outPath, metricsPath string) (int, error) {
	err := picard.Run(ctx,
		"MarkDuplicates",
		"INPUT="+bamPath,
		"OUTPUT="+outPath,
		"METRICS_FILE="+metricsPath,
		"REMOVE_DUPLICATES=true",
		"VALIDATION_STRINGENCY=LENIENT",
	)
	if err != nil {
		return 0, errors.Wrapf(err, "atlasseq: deduplicating %s", bamPath)
	}
	if err := samtools.Run(ctx, "index", outPath); err != nil {
		return 0, errors.Wrapf(err, "atlasseq: indexing %s", outPath)
	}
	n, err := CountAlignments(ctx, samtools, outPath)
	if err != nil {
		return 0, err
	}
	log.Printf("dedup: %s: %d unique alignments", bamPath, n)
	return n, nil
}
