package interval

import (
	"io"
	"math"
	"sort"

	"github.com/atlas-seq/atlas/encoding/bed"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// NewBEDOpts defines behavior of this package's BED-loading function(s).
type NewBEDOpts struct {
	// Invert causes the complement of the interval-union to be returned.  The
	// complement extends down to position -1 at the beginning of each
	// chromosome, and currently 2^31 - 2 inclusive at the end.  Only the
	// chromosomes mentioned in the BED file are included.  (A single empty
	// interval qualifies as a "mention" for the latter purpose.)
	Invert bool
	// OneBasedInput interprets the BED interval boundaries as one-based [start,
	// end] instead of the usual zero-based [start, end).
	OneBasedInput bool
}

// PosType is BEDUnion's coordinate type.
type PosType int32

const posTypeMax = math.MaxInt32

// searchPosType returns the index of x in a[], or the position where x would
// be inserted if x isn't in a (this could be len(a)).  It's exactly the same
// as sort.SearchInt(), except for PosType.
func searchPosType(a []PosType, x PosType) int {
	return sort.Search(len(a), func(i int) bool { return a[i] >= x })
}

// fwdsearchPosType checks a[idx], then a[idx + 1], then a[idx + 3], then
// a[idx + 7], etc., and then uses binary search to finish the job.  It's
// usually a better choice than searchPosType when iterating.
func fwdsearchPosType(a []PosType, x PosType, idx int) int {
	nextIncr := 1
	startIdx := idx
	endIdx := len(a)
	for idx < endIdx {
		if a[idx] >= x {
			endIdx = idx
			break
		}
		startIdx = idx + 1
		idx += nextIncr
		nextIncr *= 2
	}
	for startIdx < endIdx {
		midIdx := int(uint(startIdx+endIdx) >> 1)
		if a[midIdx] >= x {
			endIdx = midIdx
		} else {
			startIdx = midIdx + 1
		}
	}
	return startIdx
}

// BEDUnion is a chromosome-keyed set of disjoint intervals.  Each
// chromosome's intervals are stored as a length-2N sequence, where N is the
// number of intervals, the (0-based) start position of interval #k (numbering
// from zero) is in element [2k] and the end position is in element [2k+1],
// and the intervals are stored in increasing order.  Advantages of this
// representation over a length-N sequence of {start, end} structs include
// simpler inversion code and reuse of standard []int32 binary-search
// algorithms.
type BEDUnion struct {
	// nameMap is a chromosome-keyed map with disjoint-interval-set values.
	// Always initialized.
	nameMap map[string]([]PosType)
	// lastChrIntervals points to the disjoint-interval-set for the most
	// recently queried chromosome.  This is a minor performance optimization.
	lastChrIntervals []PosType
	// lastChrName is the name of the last queried chromosome.  If it's
	// nonempty, it must be in sync with lastChrIntervals.
	lastChrName string
	// lastPosPlus1 is 1 plus the last spot-queried position.
	lastPosPlus1 PosType
	// lastIdx is searchPosType(lastChrIntervals, lastPosPlus1).  Cached to
	// accelerate sequential queries.
	lastIdx int
	// isSequential is true if all queries since the last chromosome change
	// have been in order of nondecreasing position.
	isSequential bool
}

// ContainsByName checks whether the (0-based) interval [pos, pos+1) is
// contained within the BEDUnion, where chromosome is specified by name.
func (u *BEDUnion) ContainsByName(chrName string, pos PosType) bool {
	posPlus1 := pos + 1
	if chrName != u.lastChrName {
		u.lastChrName = chrName
		u.lastChrIntervals = u.nameMap[chrName]
		// Force use of searchPosType() on the first query for a contig.
		if u.lastChrIntervals == nil {
			return false
		}
		u.lastIdx = searchPosType(u.lastChrIntervals, posPlus1)
		u.lastPosPlus1 = posPlus1
		u.isSequential = true
		return u.lastIdx&1 == 1
	}
	if u.lastChrIntervals == nil {
		return false
	}
	if u.isSequential {
		if posPlus1 >= u.lastPosPlus1 {
			u.lastIdx = fwdsearchPosType(u.lastChrIntervals, posPlus1, u.lastIdx)
			u.lastPosPlus1 = posPlus1
			return u.lastIdx&1 == 1
		}
		u.isSequential = false
	}
	return searchPosType(u.lastChrIntervals, posPlus1)&1 == 1
}

// OverlapsByName checks whether the (0-based, half-open) interval
// [start, end) on the named chromosome intersects the interval set.  It
// panics if end <= start.
func (u *BEDUnion) OverlapsByName(chrName string, start, end PosType) bool {
	if end <= start {
		panic("internal error: BEDUnion.OverlapsByName requires end > start")
	}
	chrIntervals := u.nameMap[chrName]
	if chrIntervals == nil {
		return false
	}
	idxStart := searchPosType(chrIntervals, start+1)
	if idxStart&1 == 1 {
		return true
	}
	return (idxStart != len(chrIntervals)) && (end > chrIntervals[idxStart])
}

// ChrNames returns the names of all chromosomes mentioned by the set, in
// lexicographic order.
func (u *BEDUnion) ChrNames() []string {
	names := make([]string, 0, len(u.nameMap))
	for name := range u.nameMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TotalBases returns the number of bases covered by the set.  It should not
// be called on an inverted union (the sentinel endpoints make the count
// meaningless there).
func (u *BEDUnion) TotalBases() int64 {
	var tot int64
	for _, chrIntervals := range u.nameMap {
		for i := 0; i < len(chrIntervals); i += 2 {
			tot += int64(chrIntervals[i+1] - chrIntervals[i])
		}
	}
	return tot
}

// Entries flattens the set back into sorted BED entries.
func (u *BEDUnion) Entries() []bed.Entry {
	var entries []bed.Entry
	for _, name := range u.ChrNames() {
		chrIntervals := u.nameMap[name]
		for i := 0; i < len(chrIntervals); i += 2 {
			entries = append(entries, bed.Entry{
				Chrom: name,
				Start: int(chrIntervals[i]),
				End:   int(chrIntervals[i+1]),
			})
		}
	}
	return entries
}

func initBEDUnion() (bedUnion BEDUnion) {
	bedUnion.nameMap = make(map[string]([]PosType))
	bedUnion.lastChrName = ""
	return
}

// NewBEDUnionFromEntries initializes a BEDUnion from a sorted []bed.Entry,
// merging touching/overlapping intervals and eliminating empty ones in the
// process.  This ignores opts.OneBasedInput, since bed.Entry coordinates are
// defined to be zero-based.
func NewBEDUnionFromEntries(entries []bed.Entry, opts NewBEDOpts) (bedUnion BEDUnion, err error) {
	bedUnion = initBEDUnion()
	prevChr := ""
	var prevStart, prevEnd PosType
	var chrIntervals []PosType
	for i := range entries {
		entry := &entries[i]
		if entry.Start < 0 {
			err = errors.New("interval.NewBEDUnionFromEntries: negative start coordinate")
			return
		}
		if (entry.End < entry.Start) || (entry.End >= posTypeMax) {
			err = errors.Errorf("interval.NewBEDUnionFromEntries: invalid coordinate pair [%d, %d)", entry.Start, entry.End)
			return
		}
		start := PosType(entry.Start)
		end := PosType(entry.End)
		if prevChr != entry.Chrom {
			if prevChr != "" {
				// Save last interval, add to map.
				if prevEnd != -1 {
					chrIntervals = append(chrIntervals, prevStart, prevEnd)
				}
				if opts.Invert {
					chrIntervals = append(chrIntervals, posTypeMax)
				}
				bedUnion.nameMap[prevChr] = chrIntervals
			}
			prevChr = entry.Chrom
			if _, found := bedUnion.nameMap[prevChr]; found {
				err = errors.Errorf("interval.NewBEDUnionFromEntries: unsorted input (split chromosome %v)", entry.Chrom)
				return
			}
			chrIntervals = []PosType{}
			if opts.Invert {
				chrIntervals = append(chrIntervals, -1)
			}
			if end == start {
				// Distinguish between 'mentioned' chromosomes without any
				// overlapping bases and unmentioned chromosomes.
				prevStart = -1
				prevEnd = -1
				continue
			}
			prevStart = start
			prevEnd = end
			continue
		}
		if end == start {
			continue
		}
		if start > prevEnd {
			// New interval doesn't overlap previous one, so we can save the
			// previous one.
			if prevEnd != -1 {
				chrIntervals = append(chrIntervals, prevStart, prevEnd)
			}
			prevStart = start
			prevEnd = end
		} else {
			if start < prevStart {
				err = errors.New("interval.NewBEDUnionFromEntries: unsorted input")
				return
			}
			// Intervals overlap, merge them.
			if end > prevEnd {
				prevEnd = end
			}
		}
	}
	if prevChr != "" {
		if prevEnd != -1 {
			chrIntervals = append(chrIntervals, prevStart, prevEnd)
		}
		if opts.Invert {
			chrIntervals = append(chrIntervals, posTypeMax)
		}
		bedUnion.nameMap[prevChr] = chrIntervals
	}
	return
}

func shiftOneBased(entries []bed.Entry) error {
	for i := range entries {
		if entries[i].Start == 0 {
			return errors.New("interval: one-based input with zero start coordinate")
		}
		entries[i].Start--
	}
	return nil
}

// NewBEDUnion loads just the intervals from a sorted (by first coordinate)
// interval-BED, merging touching/overlapping intervals and eliminating empty
// ones in the process.  A BEDUnion is returned.
func NewBEDUnion(reader io.Reader, opts NewBEDOpts) (bedUnion BEDUnion, err error) {
	var entries []bed.Entry
	if entries, err = bed.ReadAll(reader); err != nil {
		return
	}
	if opts.OneBasedInput {
		if err = shiftOneBased(entries); err != nil {
			return
		}
	}
	if bedUnion, err = NewBEDUnionFromEntries(entries, opts); err != nil {
		return
	}
	log.Printf("BED loaded, %d base(s) covered.\n", bedUnion.TotalBases())
	return
}

// NewBEDUnionFromPath is a wrapper for NewBEDUnion that takes a path instead
// of an io.Reader.
func NewBEDUnionFromPath(path string, opts NewBEDOpts) (bedUnion BEDUnion, err error) {
	var entries []bed.Entry
	if entries, err = bed.ReadAllFromPath(path); err != nil {
		return
	}
	if opts.OneBasedInput {
		if err = shiftOneBased(entries); err != nil {
			return
		}
	}
	return NewBEDUnionFromEntries(entries, opts)
}

// Clone returns a new BEDUnion which shares the interval set, but has its own
// search state.
func (u *BEDUnion) Clone() (bedUnion BEDUnion) {
	bedUnion.nameMap = u.nameMap
	bedUnion.lastChrIntervals = nil
	bedUnion.lastChrName = ""
	return
}
