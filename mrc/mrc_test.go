package mrc_test

import (
	"context"
	"strings"
	"testing"

	"github.com/atlas-seq/atlas/encoding/bed"
	"github.com/atlas-seq/atlas/encoding/fasta"
	"github.com/atlas-seq/atlas/interval"
	"github.com/atlas-seq/atlas/mrc"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

// testFasta builds a two-chromosome reference: chrGC is all G/C (GC = 1.0),
// chrAT is all A/T (GC = 0.0).  Each is 10kb.
func testFasta(t testing.TB) fasta.Fasta {
	gc := strings.Repeat("GC", 5000)
	at := strings.Repeat("AT", 5000)
	f, err := fasta.New(strings.NewReader(">chrGC\n" + gc + "\n>chrAT\n" + at + "\n"))
	require.NoError(t, err)
	return f
}

func TestBuildProfile(t *testing.T) {
	fa := testFasta(t)
	targets := []bed.Entry{
		{Chrom: "chrGC", Start: 0, End: 100, Strand: '+'},
		{Chrom: "chrGC", Start: 500, End: 600, Strand: '+'},
		{Chrom: "chrAT", Start: 100, End: 200, Strand: '-'},
		{Chrom: "chrAT", Start: 300, End: 400}, // no strand -> '+'
	}
	profile, err := mrc.BuildProfile(fa, targets, 5)
	require.NoError(t, err)
	// GC 1.0 lands in the top bin (19 for width 5), not one past it.
	expect.EQ(t, profile[mrc.Bin{GCBin: 19, Strand: '+'}], 2)
	expect.EQ(t, profile[mrc.Bin{GCBin: 0, Strand: '-'}], 1)
	expect.EQ(t, profile[mrc.Bin{GCBin: 0, Strand: '+'}], 1)
	expect.EQ(t, profile.Total(), 4)
}

func TestBuildProfileBadBinWidth(t *testing.T) {
	fa := testFasta(t)
	_, err := mrc.BuildProfile(fa, []bed.Entry{{Chrom: "chrGC", Start: 0, End: 10}}, 0)
	expect.NotNil(t, err)
	_, err = mrc.BuildProfile(fa, []bed.Entry{{Chrom: "chrGC", Start: 0, End: 10}}, 60)
	expect.NotNil(t, err)
}

func TestGenerateMatchesProfile(t *testing.T) {
	fa := testFasta(t)
	targets := []bed.Entry{
		{Chrom: "chrGC", Start: 1000, End: 1100, Strand: '+'},
		{Chrom: "chrGC", Start: 3000, End: 3100, Strand: '-'},
		{Chrom: "chrAT", Start: 2000, End: 2100, Strand: '+'},
	}
	opts := mrc.DefaultOpts
	opts.Seed = 7
	sets, stats, err := mrc.Generate(context.Background(), fa, targets, nil, opts)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	controls := sets[0]
	require.Len(t, controls, len(targets))

	// The controls must reproduce the target (GC-bin, strand) profile.
	wantProfile, err := mrc.BuildProfile(fa, targets, opts.BinWidth)
	require.NoError(t, err)
	gotProfile, err := mrc.BuildProfile(fa, controls, opts.BinWidth)
	require.NoError(t, err)
	expect.EQ(t, gotProfile, wantProfile)

	// No two accepted controls may overlap.
	for i := range controls {
		for j := i + 1; j < len(controls); j++ {
			if controls[i].Chrom != controls[j].Chrom {
				continue
			}
			disjoint := controls[i].End <= controls[j].Start || controls[j].End <= controls[i].Start
			expect.True(t, disjoint, "controls %v and %v overlap", controls[i], controls[j])
		}
	}
	expect.EQ(t, stats.Accepted, len(targets))
	expect.True(t, stats.Attempts >= stats.Accepted)
}

func TestGenerateDeterministic(t *testing.T) {
	fa := testFasta(t)
	targets := []bed.Entry{
		{Chrom: "chrGC", Start: 1000, End: 1100, Strand: '+'},
		{Chrom: "chrAT", Start: 2000, End: 2100, Strand: '-'},
	}
	opts := mrc.DefaultOpts
	opts.Seed = 99
	sets1, _, err := mrc.Generate(context.Background(), fa, targets, nil, opts)
	require.NoError(t, err)
	sets2, _, err := mrc.Generate(context.Background(), fa, targets, nil, opts)
	require.NoError(t, err)
	expect.EQ(t, sets1, sets2)
}

func TestGenerateRespectsExclusion(t *testing.T) {
	fa := testFasta(t)
	// Mask everything on chrGC outside [4000, 6000).
	mask, err := interval.NewBEDUnionFromEntries([]bed.Entry{
		{Chrom: "chrGC", Start: 0, End: 4000},
		{Chrom: "chrGC", Start: 6000, End: 10000},
	}, interval.NewBEDOpts{})
	require.NoError(t, err)

	targets := []bed.Entry{
		{Chrom: "chrGC", Start: 100, End: 200, Strand: '+'},
		{Chrom: "chrGC", Start: 300, End: 400, Strand: '+'},
	}
	opts := mrc.DefaultOpts
	opts.Seed = 3
	sets, _, err := mrc.Generate(context.Background(), fa, targets, &mask, opts)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	for _, c := range sets[0] {
		if c.Chrom == "chrGC" {
			expect.True(t, c.Start >= 4000 && c.End <= 6000, "control %v escaped allowed window", c)
		}
	}
}

func TestGenerateAllowedRegions(t *testing.T) {
	fa := testFasta(t)
	// Inverting an allowed-regions BED yields the mask: controls on chrGC
	// must land inside [4000, 6000).
	mask, err := interval.NewBEDUnionFromEntries([]bed.Entry{
		{Chrom: "chrAT", Start: 0, End: 10000},
		{Chrom: "chrGC", Start: 4000, End: 6000},
	}, interval.NewBEDOpts{Invert: true})
	require.NoError(t, err)

	targets := []bed.Entry{
		{Chrom: "chrGC", Start: 100, End: 200, Strand: '+'},
		{Chrom: "chrGC", Start: 300, End: 400, Strand: '+'},
	}
	opts := mrc.DefaultOpts
	opts.Seed = 7
	sets, _, err := mrc.Generate(context.Background(), fa, targets, &mask, opts)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	require.Len(t, sets[0], 2)
	for _, c := range sets[0] {
		if c.Chrom == "chrGC" {
			expect.True(t, c.Start >= 4000 && c.End <= 6000, "control %v escaped allowed regions", c)
		}
	}
}

func TestGenerateCountsMaskedTargets(t *testing.T) {
	fa := testFasta(t)
	mask, err := interval.NewBEDUnionFromEntries([]bed.Entry{
		{Chrom: "chrGC", Start: 0, End: 500},
	}, interval.NewBEDOpts{})
	require.NoError(t, err)
	targets := []bed.Entry{
		// Starts inside the mask.
		{Chrom: "chrGC", Start: 100, End: 200, Strand: '+'},
		// Clear of it.
		{Chrom: "chrGC", Start: 800, End: 900, Strand: '+'},
	}
	opts := mrc.DefaultOpts
	opts.Seed = 9
	_, stats, err := mrc.Generate(context.Background(), fa, targets, &mask, opts)
	require.NoError(t, err)
	expect.EQ(t, stats.MaskedTargets, 1)
}

func TestGenerateReplicatesDisjoint(t *testing.T) {
	fa := testFasta(t)
	targets := []bed.Entry{
		{Chrom: "chrGC", Start: 1000, End: 1100, Strand: '+'},
	}
	opts := mrc.DefaultOpts
	opts.Seed = 11
	opts.Replicates = 3
	sets, _, err := mrc.Generate(context.Background(), fa, targets, nil, opts)
	require.NoError(t, err)
	require.Len(t, sets, 3)
	var all []bed.Entry
	for _, set := range sets {
		require.Len(t, set, 1)
		all = append(all, set...)
	}
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[i].Chrom != all[j].Chrom {
				continue
			}
			disjoint := all[i].End <= all[j].Start || all[j].End <= all[i].Start
			expect.True(t, disjoint, "replicate controls %v and %v overlap", all[i], all[j])
		}
	}
}

func TestGenerateEmptyTargets(t *testing.T) {
	fa := testFasta(t)
	sets, stats, err := mrc.Generate(context.Background(), fa, nil, nil, mrc.DefaultOpts)
	expect.NoError(t, err)
	expect.EQ(t, len(sets), 0)
	expect.EQ(t, stats.Attempts, 0)
}

func TestGenerateLengthTooLong(t *testing.T) {
	fa := testFasta(t)
	targets := []bed.Entry{{Chrom: "chrGC", Start: 0, End: 100, Strand: '+'}}
	opts := mrc.DefaultOpts
	opts.Length = 1 << 20 // longer than every chromosome
	_, _, err := mrc.Generate(context.Background(), fa, targets, nil, opts)
	expect.NotNil(t, err)
}

func TestGenerateBudgetExhaustion(t *testing.T) {
	fa := testFasta(t)
	// chrAT targets on '+' only; mask all of chrAT so no candidate can ever
	// be accepted, and keep the budget tiny.
	mask, err := interval.NewBEDUnionFromEntries([]bed.Entry{
		{Chrom: "chrAT", Start: 0, End: 10000},
		{Chrom: "chrGC", Start: 0, End: 10000},
	}, interval.NewBEDOpts{})
	require.NoError(t, err)
	targets := []bed.Entry{{Chrom: "chrAT", Start: 0, End: 100, Strand: '+'}}
	opts := mrc.DefaultOpts
	opts.Seed = 5
	opts.MaxAttemptsPerInterval = 50
	_, _, err = mrc.Generate(context.Background(), fa, targets, &mask, opts)
	require.Error(t, err)
	expect.HasSubstr(t, err.Error(), "attempt budget")
}
