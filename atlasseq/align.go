package atlasseq

import (
	"context"
	"strconv"
	"strings"

	"github.com/atlas-seq/atlas/exttool"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// Align maps one sample's trimmed reads with bwa aln/samse and writes a
// coordinate-sorted BAM restricted to mappings at or above opts.Mapq.  The
// pipeline mirrors
//
//	bwa aln ref reads.fastq.gz | bwa samse ref - reads.fastq.gz |
//	samtools view -b -u -q MAPQ - | samtools sort -o out.bam -
//
// and returns the number of alignments kept.
func Align(ctx context.Context, bwa, samtools exttool.Tool, fastqPath, bamPath string, cfg *Config, opts *Opts) (int, error) {
	aln := bwa.Command(ctx, "aln", "-t", strconv.Itoa(opts.parallelism()), cfg.BWAIndex, fastqPath)
	samse := bwa.Command(ctx, "samse", cfg.BWAIndex, "-", fastqPath)
	view := samtools.Command(ctx, "view", "-b", "-u", "-q", strconv.Itoa(opts.Mapq), "-")
	sort := samtools.Command(ctx, "sort", "-o", bamPath, "-")
	if opts.TempDir != "" {
		sort = samtools.Command(ctx, "sort", "-T", opts.TempDir, "-o", bamPath, "-")
	}

	p := exttool.NewPipeline(aln, samse, view, sort)
	if err := p.Run(); err != nil {
		return 0, errors.Wrapf(err, "atlasseq: aligning %s", fastqPath)
	}
	if err := samtools.Run(ctx, "index", bamPath); err != nil {
		return 0, errors.Wrapf(err, "atlasseq: indexing %s", bamPath)
	}
	n, err := CountAlignments(ctx, samtools, bamPath)
	if err != nil {
		return 0, err
	}
	log.Printf("align: %s: %d alignments at MAPQ >= %d", fastqPath, n, opts.Mapq)
	return n, nil
}

// CountAlignments returns the number of records in a BAM via samtools view -c.
func CountAlignments(ctx context.Context, samtools exttool.Tool, bamPath string) (int, error) {
	out, err := samtools.Output(ctx, "view", "-c", bamPath)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, errors.Wrapf(err, "atlasseq: parsing read count of %s", bamPath)
	}
	return n, nil
}
