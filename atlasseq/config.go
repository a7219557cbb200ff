// Package atlasseq sequences the ATLAS-seq read-processing pipeline:
// demultiplexing and trimming, alignment, duplicate removal, and
// transposable-element insertion calling.  Alignment and duplicate marking
// are delegated to bwa and picard; this package runs them in order, tracks
// per-stage read counts, and turns the deduplicated alignments into
// insertion calls.
package atlasseq

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Sample is one multiplexed library within a run.
type Sample struct {
	// Name identifies the sample in output file names and stats.
	Name string `toml:"name"`
	// Barcode is the 5' sample barcode.
	Barcode string `toml:"barcode"`
	// Fastq is the input FASTQ path.  When every sample shares one
	// multiplexed FASTQ, set Config.Fastq instead and leave this empty.
	Fastq string `toml:"fastq"`
}

// ToolPaths optionally pins external tool locations.  Empty fields fall
// back to $PATH lookup.
type ToolPaths struct {
	BWA      string `toml:"bwa"`
	Samtools string `toml:"samtools"`
	Cutadapt string `toml:"cutadapt"`
	Bedtools string `toml:"bedtools"`
	Seqtk    string `toml:"seqtk"`
	// PicardJar is the path to picard.jar; Java must be on $PATH (or set
	// via Java).
	PicardJar string `toml:"picard_jar"`
	Java      string `toml:"java"`
}

// Config is the TOML run configuration for atlas-call.
type Config struct {
	// Prefix names every output file: <prefix>.<sample>.<suffix>.
	Prefix string `toml:"prefix"`
	// Reference is the reference FASTA (with a .fai next to it).
	Reference string `toml:"reference"`
	// BWAIndex is the bwa index prefix; defaults to Reference.
	BWAIndex string `toml:"bwa_index"`
	// Fastq is the multiplexed input FASTQ shared by all samples.  Mutually
	// exclusive with per-sample Fastq fields.
	Fastq string `toml:"fastq"`
	// Linker is the 3' linker sequence ligated during library prep.
	Linker string `toml:"linker"`
	// Primer is the 5' ATLAS primer sequence (L1-specific).
	Primer string `toml:"primer"`
	// KnownTE optionally points at a BED of annotated TE loci; calls
	// overlapping it are labeled "known" instead of "novel".
	KnownTE string `toml:"known_te"`

	Tools   ToolPaths `toml:"tools"`
	Samples []Sample  `toml:"samples"`
}

// LoadConfig reads and validates a TOML run configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrapf(err, "atlasseq: reading config %s", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrapf(err, "atlasseq: config %s", path)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Prefix == "" {
		return errors.New("prefix is required")
	}
	if c.Reference == "" {
		return errors.New("reference is required")
	}
	if len(c.Samples) == 0 {
		return errors.New("at least one sample is required")
	}
	if c.BWAIndex == "" {
		c.BWAIndex = c.Reference
	}
	multiplexed := c.Fastq != ""
	barcodeLen := -1
	seen := map[string]bool{}
	for i := range c.Samples {
		s := &c.Samples[i]
		if s.Name == "" {
			return errors.Errorf("sample %d has no name", i+1)
		}
		if seen[s.Name] {
			return errors.Errorf("duplicate sample name %q", s.Name)
		}
		seen[s.Name] = true
		if multiplexed {
			if s.Fastq != "" {
				return errors.Errorf("sample %q sets fastq but the run is multiplexed", s.Name)
			}
			if s.Barcode == "" {
				return errors.Errorf("sample %q needs a barcode in a multiplexed run", s.Name)
			}
		} else if s.Fastq == "" {
			return errors.Errorf("sample %q has no fastq", s.Name)
		}
		if s.Barcode != "" {
			// Demultiplexing compares barcodes upper-cased, so normalize
			// here and reject bases the corrector cannot represent.
			s.Barcode = strings.ToUpper(s.Barcode)
			for j := 0; j < len(s.Barcode); j++ {
				switch s.Barcode[j] {
				case 'A', 'C', 'G', 'T':
				default:
					return errors.Errorf("sample %q barcode %q contains invalid base %q",
						s.Name, s.Barcode, s.Barcode[j])
				}
			}
			if barcodeLen == -1 {
				barcodeLen = len(s.Barcode)
			} else if len(s.Barcode) != barcodeLen {
				return errors.Errorf("sample %q barcode length differs from previous samples", s.Name)
			}
		}
	}
	return nil
}

// BarcodeList returns the sample barcodes, one per line, in the format
// barcode.NewSnapCorrector expects.  Empty when the run is not barcoded.
func (c *Config) BarcodeList() []byte {
	var out []byte
	for i := range c.Samples {
		if c.Samples[i].Barcode == "" {
			continue
		}
		out = append(out, c.Samples[i].Barcode...)
		out = append(out, '\n')
	}
	return out
}
