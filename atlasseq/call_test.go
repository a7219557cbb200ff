package atlasseq

import (
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/expect"
)

var testRef, _ = sam.NewReference("chr1", "", "", 10000, nil, nil)

func newTestRecord(name string, pos int, flags sam.Flags, mapq byte) *sam.Record {
	return &sam.Record{
		Name:  name,
		Ref:   testRef,
		Pos:   pos,
		MapQ:  mapq,
		Flags: flags,
		Cigar: sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 50)},
	}
}

func TestJunctionFromRecord(t *testing.T) {
	j, ok := junctionFromRecord(newTestRecord("fwd", 100, 0, 37), 20)
	expect.True(t, ok)
	expect.EQ(t, j, Junction{Chrom: "chr1", Pos: 100, Strand: '+'})

	// Reverse reads report the rightmost aligned base.
	j, ok = junctionFromRecord(newTestRecord("rev", 100, sam.Reverse, 37), 20)
	expect.True(t, ok)
	expect.EQ(t, j, Junction{Chrom: "chr1", Pos: 149, Strand: '-'})

	for _, flags := range []sam.Flags{sam.Unmapped, sam.Secondary, sam.Supplementary, sam.Duplicate} {
		_, ok := junctionFromRecord(newTestRecord("skip", 100, flags, 37), 20)
		expect.False(t, ok)
	}

	_, ok = junctionFromRecord(newTestRecord("lowq", 100, 0, 5), 20)
	expect.False(t, ok)
}

func TestCluster(t *testing.T) {
	junctions := []Junction{
		// Five reads supporting one insertion near chr1:1000 (+).
		{"chr1", 1000, '+'},
		{"chr1", 1003, '+'},
		{"chr1", 1001, '+'},
		{"chr1", 1050, '+'},
		{"chr1", 1000, '+'},
		// Opposite strand at the same locus clusters separately.
		{"chr1", 1002, '-'},
		{"chr1", 1004, '-'},
		{"chr1", 1001, '-'},
		// Two reads only: below the support cutoff.
		{"chr1", 5000, '+'},
		{"chr1", 5010, '+'},
		// A second chromosome.
		{"chr2", 300, '+'},
		{"chr2", 310, '+'},
		{"chr2", 305, '+'},
	}
	entries := Cluster(junctions, 100, 3)
	expect.EQ(t, len(entries), 3)

	expect.EQ(t, entries[0].Chrom, "chr1")
	expect.EQ(t, entries[0].Start, 1000)
	expect.EQ(t, entries[0].End, 1051)
	expect.EQ(t, entries[0].Score, 5)
	expect.EQ(t, entries[0].Strand, byte('+'))
	expect.EQ(t, entries[0].Name, "ins_1")

	expect.EQ(t, entries[1].Strand, byte('-'))
	expect.EQ(t, entries[1].Score, 3)
	expect.EQ(t, entries[1].Name, "ins_2")

	expect.EQ(t, entries[2].Chrom, "chr2")
	expect.EQ(t, entries[2].Score, 3)
	expect.EQ(t, entries[2].Name, "ins_3")
}

func TestClusterMergeDistance(t *testing.T) {
	junctions := []Junction{
		{"chr1", 100, '+'},
		{"chr1", 200, '+'},
		{"chr1", 301, '+'},
	}
	// Gaps of exactly mergeDistance chain; the 101-base gap breaks the
	// chain.
	entries := Cluster(junctions, 100, 1)
	expect.EQ(t, len(entries), 2)
	expect.EQ(t, entries[0].Score, 2)
	expect.EQ(t, entries[1].Score, 1)

	entries = Cluster(junctions, 101, 1)
	expect.EQ(t, len(entries), 1)
	expect.EQ(t, entries[0].Score, 3)
}

func TestClusterEmpty(t *testing.T) {
	expect.EQ(t, len(Cluster(nil, 100, 3)), 0)
}
