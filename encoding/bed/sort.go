package bed

import "sort"

// Sort orders entries by (chrom, start, end).  Chromosomes compare
// lexicographically, matching the "sort -k1,1 -k2,2n" convention most
// downstream tools expect.
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Chrom != entries[j].Chrom {
			return entries[i].Chrom < entries[j].Chrom
		}
		if entries[i].Start != entries[j].Start {
			return entries[i].Start < entries[j].Start
		}
		return entries[i].End < entries[j].End
	})
}

// IsSorted reports whether entries are ordered by (chrom, start, end).
func IsSorted(entries []Entry) bool {
	return sort.SliceIsSorted(entries, func(i, j int) bool {
		if entries[i].Chrom != entries[j].Chrom {
			return entries[i].Chrom < entries[j].Chrom
		}
		if entries[i].Start != entries[j].Start {
			return entries[i].Start < entries[j].Start
		}
		return entries[i].End < entries[j].End
	})
}
