// Package barcode implements sample-barcode correction for demultiplexing.
// ATLAS-seq libraries are multiplexed with short 5' barcodes; sequencing
// errors in the barcode would otherwise discard the read.
package barcode

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/atlas-seq/atlas/util"
	"github.com/grailbio/base/log"
)

var (
	alphabetMap = map[byte]bool{
		'A': true,
		'C': true,
		'G': true,
		'T': true,
	}

	alphabetWithN    = []byte{'A', 'C', 'G', 'T', 'N'}
	alphabetWithNMap = map[byte]bool{
		'A': true,
		'C': true,
		'G': true,
		'T': true,
		'N': true,
	}
)

func levenshteinCostFn(s1, s2 string) int {
	return util.Levenshtein(s1, s2, "", "")
}

type snapCorrectorEntry struct {
	knownBarcode string
	edits        int
}

// SnapCorrector implements "snap" correction of barcodes.  A barcode B is
// snappable if there is a known barcode B1 that is closer to B than all
// other known barcodes, in terms of Levenshtein edit distance.
type SnapCorrector struct {
	knownBarcodes []string
	k             int

	// correctionTable contains a mapping from all snappable k-mers (k is the
	// length of the barcode) to the known barcode they should snap to.
	correctionTable map[string]snapCorrectorEntry
}

// NewSnapCorrector creates a new snap corrector.  knownBarcodes is a
// \n-separated list of barcodes (identical to the file content of a barcode
// list, where each line contains one barcode).  Each barcode should consist
// of characters ACGTN and all of them must share one length.
func NewSnapCorrector(knownBarcodes []byte) *SnapCorrector {
	log.Debug.Printf("Building snappable barcode correction table")
	reader := bytes.NewBuffer(knownBarcodes)
	scanner := bufio.NewScanner(reader)
	known := []string{}
	k := -1
	for scanner.Scan() {
		barcode := strings.ToUpper(scanner.Text())
		if barcode == "" {
			continue
		}
		if k < 0 {
			k = len(barcode)
		}
		if len(barcode) != k {
			panic(fmt.Sprintf("barcode %s has length %d, other barcodes have length %d", barcode, len(barcode), k))
		}
		validateBarcode(barcode, false)

		known = append(known, barcode)
	}
	if k < 0 {
		panic("no barcodes in input")
	}

	// Initialize the cost table.
	costTable := map[string][][]string{}
	all := allKmers(k, alphabetWithN)
	for _, s := range all {
		costTable[s] = make([][]string, k+1)
	}

	// Populate the cost table.
	for _, kmer := range all {
		for _, knownBarcode := range known {
			cost := levenshteinCostFn(kmer, knownBarcode)
			if costTable[kmer][cost] == nil {
				costTable[kmer][cost] = make([]string, 0)
			}
			costTable[kmer][cost] = append(costTable[kmer][cost], knownBarcode)
		}
	}

	// Find barcodes that can be snapped to a known barcode, and save them to
	// correctionTable.
	correctionTable := map[string]snapCorrectorEntry{}
	for kmer, costList := range costTable {
		for cost, knownList := range costList {
			if len(knownList) == 1 {
				log.Debug.Printf("%s snaps to %s with cost %d", kmer, knownList[0], cost)
				correctionTable[kmer] = snapCorrectorEntry{knownList[0], cost}
			}
			if len(knownList) > 0 {
				break
			}
		}
	}
	log.Debug.Printf("Done building snappable barcode correction table")

	return &SnapCorrector{
		knownBarcodes:   known,
		k:               k,
		correctionTable: correctionTable,
	}
}

// Len returns the barcode length handled by the corrector.
func (c *SnapCorrector) Len() int { return c.k }

// Correct returns a corrected barcode, the number of edits to the corrected
// barcode, and true if there is exactly one known barcode that is closest to
// the original with respect to Levenshtein edit distance.  Otherwise, it
// returns the original barcode, -1, and false.
func (c *SnapCorrector) Correct(barcode string) (correctedBarcode string, edits int, corrected bool) {
	barcode = strings.ToUpper(barcode)
	validateBarcode(barcode, true)
	entry, corrected := c.correctionTable[barcode]
	if corrected {
		return entry.knownBarcode, entry.edits, entry.knownBarcode != barcode
	}
	return barcode, -1, false
}

func validateBarcode(barcode string, allowN bool) {
	for _, c := range barcode {
		if (allowN && !alphabetWithNMap[byte(c)]) || (!allowN && !alphabetMap[byte(c)]) {
			panic(fmt.Sprintf("invalid base %c in barcode %v", c, barcode))
		}
	}
}

// returns a slice of all possible kmers with the given alphabet.
func allKmers(k int, alphabet []byte) []string {
	var fn func(partial string, length int) []string
	fn = func(partial string, length int) []string {
		if len(partial) == length {
			return []string{partial}
		}

		kmers := []string{}
		for _, c := range alphabet {
			newPartial := append([]byte(partial), c)
			kmers = append(kmers, fn(string(newPartial), length)...)
		}
		return kmers
	}

	return fn("", k)
}
