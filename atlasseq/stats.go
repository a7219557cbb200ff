package atlasseq

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/pkg/errors"
)

// Metrics tracks read counts through the pipeline stages for one sample.
type Metrics struct {
	// Sample is the sample name.
	Sample string

	// TotalReads is the number of reads assigned to the sample (after
	// demultiplexing for multiplexed runs, the full input otherwise).
	TotalReads int

	// Trimmed is the number of reads surviving linker/primer trimming and
	// the length filter.
	Trimmed int

	// Aligned is the number of reads aligned at or above the MAPQ cutoff.
	Aligned int

	// Unique is the number of reads remaining after duplicate removal.
	Unique int

	// Junctions is the number of junction coordinates extracted from the
	// deduplicated alignments.
	Junctions int

	// Insertions is the number of reported insertion clusters.
	Insertions int
}

// statsHeader is the first line of every stats TSV.
const statsHeader = "sample\ttotal_reads\ttrimmed\taligned\tunique\tjunctions\tinsertions"

// Row returns the metrics as one stats-TSV row.
func (m *Metrics) Row() string {
	return fmt.Sprintf("%s\t%d\t%d\t%d\t%d\t%d\t%d",
		m.Sample, m.TotalReads, m.Trimmed, m.Aligned, m.Unique, m.Junctions, m.Insertions)
}

// WriteStats writes a stats TSV with one row per metrics entry.
func WriteStats(w io.Writer, metrics []*Metrics) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, statsHeader); err != nil {
		return err
	}
	for _, m := range metrics {
		if _, err := fmt.Fprintln(bw, m.Row()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteStatsToPath is a path-taking wrapper for WriteStats.
func WriteStatsToPath(path string, metrics []*Metrics) (err error) {
	ctx := vcontext.Background()
	var out file.File
	if out, err = file.Create(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := out.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return WriteStats(out.Writer(ctx), metrics)
}

// ReadStats parses a stats TSV produced by WriteStats.
func ReadStats(r io.Reader) ([]Metrics, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("atlasseq: empty stats file")
	}
	if scanner.Text() != statsHeader {
		return nil, errors.Errorf("atlasseq: unexpected stats header %q", scanner.Text())
	}
	var out []Metrics
	lineIdx := 1
	for scanner.Scan() {
		lineIdx++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			return nil, errors.Errorf("atlasseq: stats line %d has %d fields, expected 7", lineIdx, len(fields))
		}
		var m Metrics
		m.Sample = fields[0]
		for i, dst := range []*int{&m.TotalReads, &m.Trimmed, &m.Aligned, &m.Unique, &m.Junctions, &m.Insertions} {
			v, err := strconv.Atoi(fields[i+1])
			if err != nil {
				return nil, errors.Wrapf(err, "atlasseq: stats line %d field %d", lineIdx, i+2)
			}
			*dst = v
		}
		out = append(out, m)
	}
	return out, scanner.Err()
}

// ReadStatsFromPath is a path-taking wrapper for ReadStats.
func ReadStatsFromPath(path string) (metrics []Metrics, err error) {
	ctx := vcontext.Background()
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return ReadStats(in.Reader(ctx))
}

// MergeStats concatenates per-run stats tables into one, preserving row
// order.  Rows are not summed; one row per sample per input.
func MergeStats(inputs [][]Metrics) []*Metrics {
	var out []*Metrics
	for _, rows := range inputs {
		for i := range rows {
			m := rows[i]
			out = append(out, &m)
		}
	}
	return out
}
