package util

import (
	"testing"

	"github.com/antzucaro/matchr"
	"github.com/grailbio/testutil/expect"
)

func TestMoveSetHas(t *testing.T) {
	s := moveSet{moveDiag, moveAcross}
	expect.True(t, s.has(moveDiag))
	expect.True(t, s.has(moveAcross))
	expect.False(t, s.has(moveDown))
	expect.False(t, moveSet(nil).has(moveDiag))
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		name     string
		bc1, bc2 string
		tail1    string
		tail2    string
		want     int
	}{
		// Deleting the second base of bc1 pulls the first downstream
		// base (X) into the barcode window, so the sequenced windows
		// ACGGTX align at distance 1.
		{"deletion pulls in downstream base", "ATCGGT", "ACGGTX", "XYZ", "", 1},
		{"same, sides swapped", "ACGGTX", "ATCGGT", "", "XYZ", 1},
		{"substitutions only", "ACAATTGG", "AXAAXTGX", "", "", 3},
		{"run of deletions", "ATATACGGT", "ACGGTHIJK", "HIJKLMN", "", 4},
		{"adapter context at both ends", "CTCAGCGGCT", "AGCCTAACTC",
			"ACACTCTTTCCCTACACGACGCTCTTCCGATCT", "GTGACTGGAGTTCAGACGTGTGCTCTTCCGATC", 8},
	}
	for _, test := range tests {
		got := Levenshtein(test.bc1, test.bc2, test.tail1, test.tail2)
		expect.EQ(t, got, test.want, "case: %s", test.name)

		// Without downstream context the distance must agree with the
		// textbook computation.
		plain := Levenshtein(test.bc1, test.bc2, "", "")
		expect.EQ(t, plain, matchr.Levenshtein(test.bc1, test.bc2), "case: %s", test.name)
	}
}

func TestLevenshteinUnequalLengths(t *testing.T) {
	defer func() {
		expect.NotNil(t, recover())
	}()
	Levenshtein("ACGT", "ACG", "", "")
}
