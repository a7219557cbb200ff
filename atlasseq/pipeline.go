package atlasseq

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/atlas-seq/atlas/encoding/bed"
	"github.com/atlas-seq/atlas/exttool"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/pkg/errors"
)

// Toolset holds the resolved external tools for one run.  Optional stages
// leave their tool zero valued.
type Toolset struct {
	BWA      exttool.Tool
	Samtools exttool.Tool
	Cutadapt exttool.Tool
	Bedtools exttool.Tool
	Seqtk    exttool.Tool
	Picard   exttool.Tool
}

// FindTools resolves the external tools a run needs.  bwa, samtools and
// cutadapt are always required; picard only when duplicates are removed,
// bedtools only when cfg.KnownTE is set, seqtk only when downsampling.
func FindTools(cfg *Config, opts *Opts) (Toolset, error) {
	var (
		ts  Toolset
		err error
	)
	if ts.BWA, err = exttool.Find("bwa", cfg.Tools.BWA); err != nil {
		return ts, err
	}
	if ts.Samtools, err = exttool.Find("samtools", cfg.Tools.Samtools); err != nil {
		return ts, err
	}
	if ts.Cutadapt, err = exttool.Find("cutadapt", cfg.Tools.Cutadapt); err != nil {
		return ts, err
	}
	if !opts.KeepDups {
		if ts.Picard, err = exttool.FindJava("picard", cfg.Tools.PicardJar, cfg.Tools.Java); err != nil {
			return ts, err
		}
	}
	if cfg.KnownTE != "" {
		if ts.Bedtools, err = exttool.Find("bedtools", cfg.Tools.Bedtools); err != nil {
			return ts, err
		}
	}
	if opts.DownsampleRate > 0 && opts.DownsampleRate < 1 && cfg.Tools.Seqtk != "" {
		if ts.Seqtk, err = exttool.Find("seqtk", cfg.Tools.Seqtk); err != nil {
			return ts, err
		}
	}
	return ts, nil
}

// Pipeline runs the ATLAS-seq stages for every sample in a config.
type Pipeline struct {
	cfg   *Config
	opts  Opts
	tools Toolset
}

// NewPipeline builds a pipeline over cfg.  Tools are resolved up front so a
// missing executable fails the run before any work starts.
func NewPipeline(cfg *Config, opts Opts) (*Pipeline, error) {
	tools, err := FindTools(cfg, &opts)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, opts: opts, tools: tools}, nil
}

// path returns <outdir>/<prefix>.<sample>.<suffix>, the naming scheme for
// every per-sample output.
func (p *Pipeline) path(sample, suffix string) string {
	return filepath.Join(p.opts.OutDir, fmt.Sprintf("%s.%s.%s", p.cfg.Prefix, sample, suffix))
}

// runPath returns <outdir>/<prefix>.<suffix> for run-level outputs.
func (p *Pipeline) runPath(suffix string) string {
	return filepath.Join(p.opts.OutDir, fmt.Sprintf("%s.%s", p.cfg.Prefix, suffix))
}

// logToolVersions records which tool builds produced a run's outputs.
func (p *Pipeline) logToolVersions(ctx context.Context) {
	for _, t := range []exttool.Tool{
		p.tools.BWA, p.tools.Samtools, p.tools.Cutadapt,
		p.tools.Bedtools, p.tools.Seqtk, p.tools.Picard,
	} {
		if t.Path == "" {
			continue
		}
		if v := t.Version(ctx); v != "" {
			log.Printf("%s: %s", t.Name, v)
		} else {
			log.Printf("%s: %s (version unknown)", t.Name, t.Path)
		}
	}
}

// done reports whether a stage output already exists and may be reused.
func (p *Pipeline) done(path string) bool {
	if p.opts.Force {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// Run executes the pipeline for all samples and writes
// <prefix>.stats.tsv.  Per-sample work runs concurrently, bounded by
// opts.Parallelism.
func (p *Pipeline) Run(ctx context.Context) ([]*Metrics, error) {
	if p.opts.OutDir != "" {
		if err := os.MkdirAll(p.opts.OutDir, 0775); err != nil {
			return nil, err
		}
	}
	p.logToolVersions(ctx)

	demuxCounts, err := p.demultiplex(ctx)
	if err != nil {
		return nil, err
	}

	metrics := make([]*Metrics, len(p.cfg.Samples))
	sampleCh := make(chan int, len(p.cfg.Samples))
	for i := range p.cfg.Samples {
		sampleCh <- i
	}
	close(sampleCh)
	parallelism := p.opts.parallelism()
	if parallelism > len(p.cfg.Samples) {
		parallelism = len(p.cfg.Samples)
	}
	err = traverse.Each(parallelism, func(_ int) error {
		for i := range sampleCh {
			m, err := p.runSample(ctx, &p.cfg.Samples[i], demuxCounts)
			if err != nil {
				return err
			}
			metrics[i] = m
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	statsPath := p.runPath("stats.tsv")
	if err := WriteStatsToPath(statsPath, metrics); err != nil {
		return nil, err
	}
	log.Printf("run complete: stats written to %s", statsPath)
	return metrics, nil
}

// demultiplex splits the multiplexed input, if any, into per-sample FASTQs.
// Returns per-sample read counts, or nil for per-sample-FASTQ runs.
func (p *Pipeline) demultiplex(ctx context.Context) (map[string]int, error) {
	if p.cfg.Fastq == "" {
		return nil, nil
	}
	outPaths := map[string]string{}
	allDone := true
	for i := range p.cfg.Samples {
		path := p.path(p.cfg.Samples[i].Name, "fastq.gz")
		outPaths[p.cfg.Samples[i].Name] = path
		if !p.done(path) {
			allDone = false
		}
	}
	if allDone {
		log.Printf("demultiplex: outputs exist, skipping")
		counts := map[string]int{}
		for name, path := range outPaths {
			n, err := CountReads(path)
			if err != nil {
				return nil, err
			}
			counts[name] = n
		}
		return counts, nil
	}
	return DemultiplexPath(ctx, p.cfg.Fastq, p.cfg, outPaths)
}

// sampleFastq returns the path to a sample's raw (post-demux) FASTQ.
func (p *Pipeline) sampleFastq(s *Sample) string {
	if p.cfg.Fastq != "" {
		return p.path(s.Name, "fastq.gz")
	}
	return s.Fastq
}

func (p *Pipeline) runSample(ctx context.Context, s *Sample, demuxCounts map[string]int) (*Metrics, error) {
	m := &Metrics{Sample: s.Name}
	fastqPath := p.sampleFastq(s)
	if n, ok := demuxCounts[s.Name]; ok {
		m.TotalReads = n
	} else {
		n, err := CountReads(fastqPath)
		if err != nil {
			return nil, err
		}
		m.TotalReads = n
	}

	trimmedPath := p.path(s.Name, "trimmed.fastq.gz")
	if p.done(trimmedPath) {
		log.Printf("%s: %s exists, skipping trim", s.Name, trimmedPath)
		n, err := CountReads(trimmedPath)
		if err != nil {
			return nil, err
		}
		m.Trimmed = n
	} else {
		n, err := Trim(ctx, p.tools.Cutadapt, fastqPath, trimmedPath, p.cfg, &p.opts)
		if err != nil {
			return nil, err
		}
		m.Trimmed = n
	}

	alignInput := trimmedPath
	if p.opts.DownsampleRate > 0 && p.opts.DownsampleRate < 1 {
		downPath := p.path(s.Name, "downsampled.fastq.gz")
		if !p.done(downPath) {
			if err := p.downsample(ctx, trimmedPath, downPath); err != nil {
				return nil, err
			}
		}
		alignInput = downPath
	}

	bamPath := p.path(s.Name, "sorted.bam")
	if p.done(bamPath) {
		log.Printf("%s: %s exists, skipping alignment", s.Name, bamPath)
		n, err := CountAlignments(ctx, p.tools.Samtools, bamPath)
		if err != nil {
			return nil, err
		}
		m.Aligned = n
	} else {
		n, err := Align(ctx, p.tools.BWA, p.tools.Samtools, alignInput, bamPath, p.cfg, &p.opts)
		if err != nil {
			return nil, err
		}
		m.Aligned = n
	}

	callInput := bamPath
	if p.opts.KeepDups {
		m.Unique = m.Aligned
	} else {
		dedupPath := p.path(s.Name, "dedup.bam")
		if p.done(dedupPath) {
			log.Printf("%s: %s exists, skipping dedup", s.Name, dedupPath)
			n, err := CountAlignments(ctx, p.tools.Samtools, dedupPath)
			if err != nil {
				return nil, err
			}
			m.Unique = n
		} else {
			n, err := Dedup(ctx, p.tools.Picard, p.tools.Samtools, bamPath, dedupPath, p.path(s.Name, "dedup.metrics.txt"))
			if err != nil {
				return nil, err
			}
			m.Unique = n
		}
		callInput = dedupPath
	}

	calls, nJunctions, err := Call(ctx, callInput, &p.opts)
	if err != nil {
		return nil, err
	}
	m.Junctions = nJunctions
	m.Insertions = len(calls)
	callsPath := p.path(s.Name, "insertions.bed")
	if err := bed.WriteAllToPath(callsPath, calls); err != nil {
		return nil, err
	}

	if p.cfg.KnownTE != "" {
		known, novel, err := Annotate(ctx, p.tools.Bedtools, callsPath, p.cfg.KnownTE)
		if err != nil {
			return nil, err
		}
		if err := bed.WriteAllToPath(p.path(s.Name, "known.bed"), known); err != nil {
			return nil, err
		}
		if err := bed.WriteAllToPath(p.path(s.Name, "novel.bed"), novel); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// downsample subsamples a trimmed FASTQ, via seqtk when configured and the
// native sampler otherwise.
func (p *Pipeline) downsample(ctx context.Context, in, out string) error {
	if p.tools.Seqtk.Path == "" {
		return Downsample(p.opts.DownsampleRate, p.opts.Seed, in, out)
	}
	sampled, err := p.tools.Seqtk.Output(ctx, "sample",
		"-s", strconv.FormatInt(p.opts.Seed, 10),
		in, strconv.FormatFloat(p.opts.DownsampleRate, 'g', -1, 64))
	if err != nil {
		return errors.Wrapf(err, "atlasseq: downsampling %s", in)
	}
	return writeGzip(out, sampled)
}
