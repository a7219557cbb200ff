package interval

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/atlas-seq/atlas/encoding/bed"
	"github.com/grailbio/testutil/expect"
)

func TestNewBEDUnion(t *testing.T) {
	tests := []struct {
		bedText               string
		invert, oneBasedInput bool
		want                  map[string]([]PosType)
	}{
		{
			"chr1\t100\t200\n" +
				"chr1\t150\t300\n" +
				"chr1\t500\t600\n" +
				"chr2\t10\t20\n",
			false,
			false,
			map[string]([]PosType){
				"chr1": []PosType{100, 300, 500, 600},
				"chr2": []PosType{10, 20},
			},
		},
		{
			"chr1\t101\t200\n" +
				"chr1\t301\t400\n",
			false,
			true,
			map[string]([]PosType){
				"chr1": []PosType{100, 200, 300, 400},
			},
		},
		{
			"chr1\t100\t200\n",
			true,
			false,
			map[string]([]PosType){
				"chr1": []PosType{-1, 100, 200, math.MaxInt32},
			},
		},
	}
	for _, tt := range tests {
		result, err := NewBEDUnion(
			strings.NewReader(tt.bedText),
			NewBEDOpts{
				Invert:        tt.invert,
				OneBasedInput: tt.oneBasedInput,
			},
		)
		expect.NoError(t, err)
		if !reflect.DeepEqual(result.nameMap, tt.want) {
			t.Errorf("Wanted: %v  Got: %v", tt.want, result.nameMap)
		}
	}
}

func TestContainsAndOverlaps(t *testing.T) {
	entries := []bed.Entry{
		{Chrom: "chr1", Start: 100, End: 200},
		{Chrom: "chr1", Start: 500, End: 600},
		{Chrom: "chr3", Start: 0, End: 50},
	}
	u, err := NewBEDUnionFromEntries(entries, NewBEDOpts{})
	expect.NoError(t, err)

	expect.False(t, u.ContainsByName("chr1", 99))
	expect.True(t, u.ContainsByName("chr1", 100))
	expect.True(t, u.ContainsByName("chr1", 199))
	expect.False(t, u.ContainsByName("chr1", 200))
	expect.True(t, u.ContainsByName("chr1", 599))
	expect.False(t, u.ContainsByName("chr2", 100))
	expect.True(t, u.ContainsByName("chr3", 0))

	expect.True(t, u.OverlapsByName("chr1", 0, 101))
	expect.False(t, u.OverlapsByName("chr1", 0, 100))
	expect.True(t, u.OverlapsByName("chr1", 199, 500))
	expect.False(t, u.OverlapsByName("chr1", 200, 500))
	expect.True(t, u.OverlapsByName("chr1", 550, 560))
	expect.False(t, u.OverlapsByName("chr1", 600, 700))
	expect.False(t, u.OverlapsByName("chr2", 0, 1000))

	expect.EQ(t, int64(250), u.TotalBases())
	expect.EQ(t, []string{"chr1", "chr3"}, u.ChrNames())
}

func TestEntriesRoundTrip(t *testing.T) {
	entries := []bed.Entry{
		{Chrom: "chr1", Start: 100, End: 300},
		{Chrom: "chr2", Start: 10, End: 20},
	}
	u, err := NewBEDUnionFromEntries(entries, NewBEDOpts{})
	expect.NoError(t, err)
	expect.EQ(t, entries, u.Entries())
}

func TestUnsortedInput(t *testing.T) {
	entries := []bed.Entry{
		{Chrom: "chr1", Start: 500, End: 600},
		{Chrom: "chr1", Start: 100, End: 200},
	}
	_, err := NewBEDUnionFromEntries(entries, NewBEDOpts{})
	expect.NotNil(t, err)
}
