// Package mrc generates matched random controls: random genomic intervals
// whose GC-content and strand distribution match a set of target intervals
// (typically transposable-element insertion sites), drawn from allowed
// genomic space by rejection sampling.
package mrc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atlas-seq/atlas/encoding/bed"
	"github.com/atlas-seq/atlas/encoding/fasta"
	"github.com/grailbio/base/traverse"
	"github.com/pkg/errors"
)

// Bin identifies one slot of the target profile: a GC-percent bin together
// with a strand.
type Bin struct {
	// GCBin is floor(gc * 100 / binWidth).
	GCBin int
	// Strand is '+' or '-'.
	Strand byte
}

// Profile is a multiset of (GC-bin, strand) counts.  The sampler draws
// candidates until every count reaches zero.
type Profile map[Bin]int

// Total returns the number of intervals the profile demands.
func (p Profile) Total() int {
	n := 0
	for _, count := range p {
		n += count
	}
	return n
}

// Clone returns an independent copy of the profile.
func (p Profile) Clone() Profile {
	q := make(Profile, len(p))
	for bin, count := range p {
		q[bin] = count
	}
	return q
}

// String renders the profile sorted by bin, for logs and error messages.
func (p Profile) String() string {
	bins := make([]Bin, 0, len(p))
	for bin := range p {
		bins = append(bins, bin)
	}
	sort.Slice(bins, func(i, j int) bool {
		if bins[i].GCBin != bins[j].GCBin {
			return bins[i].GCBin < bins[j].GCBin
		}
		return bins[i].Strand < bins[j].Strand
	})
	parts := make([]string, 0, len(bins))
	for _, bin := range bins {
		parts = append(parts, fmt.Sprintf("gc%d%c:%d", bin.GCBin, bin.Strand, p[bin]))
	}
	return strings.Join(parts, " ")
}

// BuildProfile computes the (GC-bin, strand) profile of the target
// intervals.  Entries without a strand column count as '+'.  binWidth is in
// GC percentage points and must divide into sensible bins (1-50).
func BuildProfile(fa fasta.Fasta, targets []bed.Entry, binWidth int) (Profile, error) {
	if binWidth < 1 || binWidth > 50 {
		return nil, errors.Errorf("mrc: bin width %d out of range [1, 50]", binWidth)
	}
	gcs := make([]float64, len(targets))
	err := traverse.Each(len(targets), func(i int) error {
		entry := &targets[i]
		if entry.End <= entry.Start {
			return errors.Errorf("mrc: empty target interval %s:%d-%d", entry.Chrom, entry.Start, entry.End)
		}
		gc, _, err := fasta.GC(fa, entry.Chrom, uint64(entry.Start), uint64(entry.End))
		if err != nil {
			return errors.Wrapf(err, "mrc: target %s:%d-%d", entry.Chrom, entry.Start, entry.End)
		}
		gcs[i] = gc
		return nil
	})
	if err != nil {
		return nil, err
	}
	profile := make(Profile)
	for i := range targets {
		strand := targets[i].Strand
		if strand != '-' {
			strand = '+'
		}
		profile[Bin{GCBin: gcBin(gcs[i], binWidth), Strand: strand}]++
	}
	return profile, nil
}

// gcBin assigns a GC fraction to its bin.  gc == 1.0 lands in the top bin
// rather than one past it.
func gcBin(gc float64, binWidth int) int {
	bin := int(gc * 100 / float64(binWidth))
	maxBin := (100 - 1) / binWidth
	if bin > maxBin {
		bin = maxBin
	}
	return bin
}
