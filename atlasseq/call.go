package atlasseq

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/atlas-seq/atlas/encoding/bed"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// Junction is one candidate insertion junction extracted from an alignment.
// Pos is the 0-based genomic coordinate of the read base adjacent to the
// insertion: the leftmost aligned base for forward reads and the rightmost
// for reverse reads.
type Junction struct {
	Chrom  string
	Pos    int
	Strand byte
}

// junctionFromRecord extracts the junction for one alignment, returning
// false for records that do not qualify (unmapped, secondary, supplementary,
// duplicate, or below the MAPQ cutoff).
func junctionFromRecord(rec *sam.Record, mapq int) (Junction, bool) {
	const skip = sam.Unmapped | sam.Secondary | sam.Supplementary | sam.Duplicate
	if rec.Flags&skip != 0 || int(rec.MapQ) < mapq || rec.Ref == nil {
		return Junction{}, false
	}
	j := Junction{Chrom: rec.Ref.Name(), Strand: '+'}
	if rec.Flags&sam.Reverse != 0 {
		j.Strand = '-'
		j.Pos = rec.End() - 1
	} else {
		j.Pos = rec.Start()
	}
	return j, true
}

// ScanJunctions reads a BAM and extracts one junction per qualifying
// alignment.
func ScanJunctions(ctx context.Context, bamPath string, mapq int) ([]Junction, error) {
	in, err := os.Open(bamPath)
	if err != nil {
		return nil, err
	}
	defer in.Close() // nolint: errcheck
	reader, err := bam.NewReader(in, 1)
	if err != nil {
		return nil, errors.Wrapf(err, "atlasseq: opening %s", bamPath)
	}
	defer reader.Close() // nolint: errcheck
	var junctions []Junction
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "atlasseq: reading %s", bamPath)
		}
		if j, ok := junctionFromRecord(rec, mapq); ok {
			junctions = append(junctions, j)
		}
	}
	return junctions, nil
}

// Cluster groups junctions on the same chromosome and strand that lie within
// mergeDistance of each other, and reports each group with at least minReads
// members as one insertion.  The returned entries are coordinate sorted;
// Start..End spans the member junctions (half open), Score is the member
// count.
func Cluster(junctions []Junction, mergeDistance, minReads int) []bed.Entry {
	sorted := make([]Junction, len(junctions))
	copy(sorted, junctions)
	sort.Slice(sorted, func(i, j int) bool {
		ji, jj := sorted[i], sorted[j]
		if ji.Chrom != jj.Chrom {
			return ji.Chrom < jj.Chrom
		}
		if ji.Strand != jj.Strand {
			return ji.Strand < jj.Strand
		}
		return ji.Pos < jj.Pos
	})

	var entries []bed.Entry
	flush := func(first, last, count int, chrom string, strand byte) {
		if count < minReads {
			return
		}
		entries = append(entries, bed.Entry{
			Chrom:  chrom,
			Start:  first,
			End:    last + 1,
			Score:  count,
			Strand: strand,
			NCols:  6,
		})
	}
	for i := 0; i < len(sorted); {
		first := sorted[i]
		last := first.Pos
		count := 1
		j := i + 1
		for ; j < len(sorted); j++ {
			cur := sorted[j]
			if cur.Chrom != first.Chrom || cur.Strand != first.Strand || cur.Pos-last > mergeDistance {
				break
			}
			last = cur.Pos
			count++
		}
		flush(first.Pos, last, count, first.Chrom, first.Strand)
		i = j
	}
	bed.Sort(entries)
	for i := range entries {
		entries[i].Name = fmt.Sprintf("ins_%d", i+1)
	}
	return entries
}

// Call extracts junctions from a deduplicated BAM and clusters them into
// insertion calls.  Returns the calls and the number of junctions seen.
func Call(ctx context.Context, bamPath string, opts *Opts) ([]bed.Entry, int, error) {
	junctions, err := ScanJunctions(ctx, bamPath, opts.Mapq)
	if err != nil {
		return nil, 0, err
	}
	entries := Cluster(junctions, opts.MergeDistance, opts.MinReads)
	log.Printf("call: %s: %d junctions, %d insertions", bamPath, len(junctions), len(entries))
	return entries, len(junctions), nil
}
