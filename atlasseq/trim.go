package atlasseq

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/atlas-seq/atlas/barcode"
	"github.com/atlas-seq/atlas/encoding/fastq"
	"github.com/atlas-seq/atlas/exttool"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
)

// demuxOutput is one per-sample output stream of Demultiplex.
type demuxOutput struct {
	f  *os.File
	gz *pgzip.Writer
	w  *fastq.Writer
}

func newDemuxOutput(path string) (*demuxOutput, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	gz := pgzip.NewWriter(f)
	return &demuxOutput{f: f, gz: gz, w: fastq.NewWriter(gz)}, nil
}

func (o *demuxOutput) close() error {
	err := o.w.Flush()
	if cerr := o.gz.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if cerr := o.f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Demultiplex splits a multiplexed FASTQ stream into one gzipped FASTQ file
// per sample, keyed by the 5' barcode at the start of each read.  Barcodes
// with sequencing errors are snapped to the closest known barcode when that
// barcode is unambiguous.  The barcode bases are removed from the reads that
// are written.  outPaths maps sample name to output path; every sample in cfg
// must have an entry.  The returned map contains the number of reads assigned
// to each sample.
func Demultiplex(ctx context.Context, r io.Reader, cfg *Config, outPaths map[string]string) (map[string]int, error) {
	corrector := barcode.NewSnapCorrector(cfg.BarcodeList())
	k := corrector.Len()

	bySample := map[string]*demuxOutput{}
	byBarcode := map[string]*demuxOutput{}
	counts := map[string]int{}
	defer func() {
		for _, o := range bySample {
			if o != nil {
				o.close() // nolint: errcheck
			}
		}
	}()
	for _, s := range cfg.Samples {
		path, ok := outPaths[s.Name]
		if !ok {
			return nil, errors.Errorf("atlasseq: no output path for sample %s", s.Name)
		}
		o, err := newDemuxOutput(path)
		if err != nil {
			return nil, err
		}
		bySample[s.Name] = o
		// Correct returns barcodes upper-cased; key the same way so a
		// lower-case configured barcode still receives its reads.
		byBarcode[strings.ToUpper(s.Barcode)] = o
		counts[s.Name] = 0
	}
	barcodeToSample := map[string]string{}
	for _, s := range cfg.Samples {
		barcodeToSample[strings.ToUpper(s.Barcode)] = s.Name
	}

	scanner := fastq.NewScanner(r, fastq.All)
	var read fastq.Read
	nTotal, nUnassigned := 0, 0
	for scanner.Scan(&read) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		nTotal++
		if len(read.Seq) < k || !validBarcodeBases(read.Seq[:k]) {
			nUnassigned++
			continue
		}
		bc, edits, _ := corrector.Correct(read.Seq[:k])
		if edits < 0 {
			nUnassigned++
			continue
		}
		o, ok := byBarcode[bc]
		if !ok {
			nUnassigned++
			continue
		}
		trimmed := read
		trimmed.TrimLeft(k)
		if err := o.w.Write(&trimmed); err != nil {
			return nil, err
		}
		counts[barcodeToSample[bc]]++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for name, o := range bySample {
		if err := o.close(); err != nil {
			return nil, err
		}
		bySample[name] = nil
	}
	log.Printf("demultiplex: %d reads, %d unassigned", nTotal, nUnassigned)
	return counts, nil
}

// validBarcodeBases reports whether s contains only bases the corrector
// accepts (ACGTN, either case).
func validBarcodeBases(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'A', 'C', 'G', 'T', 'N', 'a', 'c', 'g', 't', 'n':
		default:
			return false
		}
	}
	return true
}

// DemultiplexPath is a path-taking wrapper for Demultiplex.  The input may be
// gzip-compressed.
func DemultiplexPath(ctx context.Context, fastqPath string, cfg *Config, outPaths map[string]string) (map[string]int, error) {
	in, err := os.Open(fastqPath)
	if err != nil {
		return nil, err
	}
	defer in.Close() // nolint: errcheck
	var r io.Reader = in
	if fileio.DetermineType(fastqPath) == fileio.Gzip {
		gz, err := gzip.NewReader(in)
		if err != nil {
			return nil, err
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	return Demultiplex(ctx, r, cfg, outPaths)
}

// Trim runs cutadapt on one sample's FASTQ, removing the 5' amplification
// primer and the 3' linker and discarding reads shorter than
// opts.MinReadLen after trimming.  Returns the number of reads written.
func Trim(ctx context.Context, cutadapt exttool.Tool, fastqPath, outPath string, cfg *Config, opts *Opts) (int, error) {
	args := []string{}
	if cfg.Primer != "" {
		// Reads without the primer did not come from an ATLAS amplicon.
		args = append(args, "-g", cfg.Primer, "--discard-untrimmed")
	}
	if cfg.Linker != "" {
		args = append(args, "-a", cfg.Linker)
	}
	args = append(args,
		"-e", strconv.FormatFloat(opts.TrimErrorRate, 'g', -1, 64),
		"-m", strconv.Itoa(opts.MinReadLen),
		"-o", outPath,
		fastqPath,
	)
	if err := cutadapt.Run(ctx, args...); err != nil {
		return 0, errors.Wrapf(err, "atlasseq: cutadapt on %s", fastqPath)
	}
	return CountReads(outPath)
}

// Downsample randomly keeps a fraction of the reads in a gzipped FASTQ file,
// writing the result to outPath.  It is used to equalize sequencing depth
// between samples before alignment.
func Downsample(rate float64, seed int64, fastqPath, outPath string) error {
	in, err := os.Open(fastqPath)
	if err != nil {
		return err
	}
	defer in.Close() // nolint: errcheck
	var r io.Reader = in
	if fileio.DetermineType(fastqPath) == fileio.Gzip {
		gz, err := gzip.NewReader(in)
		if err != nil {
			return err
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	gzw := pgzip.NewWriter(out)
	if err := fastq.Downsample(rate, seed, r, gzw); err != nil {
		out.Close() // nolint: errcheck
		return err
	}
	if err := gzw.Close(); err != nil {
		out.Close() // nolint: errcheck
		return err
	}
	return out.Close()
}

// writeGzip writes data to path, gzip-compressed.
func writeGzip(path string, data []byte) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	gz := pgzip.NewWriter(out)
	if _, err := gz.Write(data); err != nil {
		out.Close() // nolint: errcheck
		return err
	}
	if err := gz.Close(); err != nil {
		out.Close() // nolint: errcheck
		return err
	}
	return out.Close()
}

// CountReads returns the number of FASTQ records in a file, which may be
// gzip-compressed.
func CountReads(path string) (int, error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer in.Close() // nolint: errcheck
	var r io.Reader = in
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(in)
		if err != nil {
			return 0, err
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	scanner := fastq.NewScanner(r, 0)
	var read fastq.Read
	n := 0
	for scanner.Scan(&read) {
		n++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("count reads %s: %v", path, err)
	}
	return n, nil
}
