package mrc

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/atlas-seq/atlas/encoding/bed"
	"github.com/atlas-seq/atlas/encoding/fasta"
	"github.com/atlas-seq/atlas/interval"
	"github.com/grailbio/base/log"
	itree "github.com/biogo/store/interval"
	"github.com/pkg/errors"
)

// Opts control the rejection sampler.
type Opts struct {
	// BinWidth is the GC bin width, in percentage points.
	BinWidth int
	// Length is the control interval length.  Zero means "use the median
	// target interval length".
	Length int
	// Replicates is the number of disjoint control sets to generate, each
	// matching the full target profile.
	Replicates int
	// Seed seeds the random number generator; runs with equal inputs and
	// seeds produce identical output.
	Seed int64
	// MaxAttemptsPerInterval bounds the sampling loop: the total attempt
	// budget is this value times the number of requested intervals.
	MaxAttemptsPerInterval int
	// MaxNFraction rejects candidates whose window contains more than this
	// fraction of ambiguous (non-ACGT) bases.
	MaxNFraction float64
}

// DefaultOpts are the defaults used by cmd/atlas-mrc.
var DefaultOpts = Opts{
	BinWidth:               5,
	Length:                 0,
	Replicates:             1,
	Seed:                   1,
	MaxAttemptsPerInterval: 1000,
	MaxNFraction:           0.1,
}

// Stats reports what the sampling loop did.
type Stats struct {
	Attempts          int
	Accepted          int
	RejectedMasked    int // candidate intersected the exclusion mask
	RejectedOverlap   int // candidate overlapped an already accepted control
	RejectedAmbiguous int // too many N bases
	RejectedBinFull   int // (GC-bin, strand) slot already filled
	// MaskedTargets counts target intervals that start inside the exclusion
	// mask.  Such targets still contribute to the profile; a high count
	// usually means targets and mask were called on different assemblies.
	MaskedTargets int
}

// String renders the stats as a one-line summary.
func (s *Stats) String() string {
	return fmt.Sprintf("attempts=%d accepted=%d rej_masked=%d rej_overlap=%d rej_ambiguous=%d rej_binfull=%d masked_targets=%d",
		s.Attempts, s.Accepted, s.RejectedMasked, s.RejectedOverlap, s.RejectedAmbiguous, s.RejectedBinFull, s.MaskedTargets)
}

// countMaskedTargets reports how many targets start inside mask.  Queries
// run on a clone in sorted order: the union's point-query cache is
// stateful, and sorted sequential queries are its fast path.
func countMaskedTargets(mask *interval.BEDUnion, targets []bed.Entry) int {
	sorted := append([]bed.Entry{}, targets...)
	bed.Sort(sorted)
	m := mask.Clone()
	n := 0
	for i := range sorted {
		if m.ContainsByName(sorted[i].Chrom, interval.PosType(sorted[i].Start)) {
			n++
		}
	}
	return n
}

// acceptedIval adapts an accepted control to biogo's interval tree.
type acceptedIval struct {
	id         uintptr
	start, end int
}

func (i acceptedIval) Overlap(b itree.IntRange) bool {
	return i.start < b.End && b.Start < i.end
}
func (i acceptedIval) ID() uintptr { return i.id }
func (i acceptedIval) Range() itree.IntRange {
	return itree.IntRange{Start: i.start, End: i.end}
}

type chromSpace struct {
	name   string
	length int64
	// cum is the cumulative length of allowed space up to and including this
	// chromosome; used for length-weighted chromosome choice.
	cum int64
}

// Generator holds the state of one control-generation run.
type Generator struct {
	fa      fasta.Fasta
	exclude *interval.BEDUnion
	opts    Opts

	rng     *rand.Rand
	chroms  []chromSpace
	tot     int64
	trees   map[string]*itree.IntTree
	nextID  uintptr
	length  int
}

// NewGenerator prepares a sampler over the reference fa.  exclude may be nil
// when no regions are masked.  length is the control interval length; every
// chromosome shorter than it is removed from the sampling space, and an
// error is returned if none remains.
func NewGenerator(fa fasta.Fasta, exclude *interval.BEDUnion, length int, opts Opts) (*Generator, error) {
	if length <= 0 {
		return nil, errors.Errorf("mrc: invalid control length %d", length)
	}
	g := &Generator{
		fa:      fa,
		exclude: exclude,
		opts:    opts,
		rng:     rand.New(rand.NewSource(opts.Seed)),
		trees:   make(map[string]*itree.IntTree),
		length:  length,
	}
	names := append([]string{}, fa.SeqNames()...)
	sort.Strings(names)
	var cum int64
	for _, name := range names {
		n, err := fa.Len(name)
		if err != nil {
			return nil, err
		}
		if int64(n) < int64(length) {
			continue
		}
		cum += int64(n) - int64(length) + 1
		g.chroms = append(g.chroms, chromSpace{name: name, length: int64(n), cum: cum})
	}
	g.tot = cum
	if g.tot <= 0 {
		return nil, errors.Errorf("mrc: control length %d exceeds every chromosome", length)
	}
	return g, nil
}

// draw picks a uniformly random candidate interval over the sampling space,
// with a uniformly random strand.
func (g *Generator) draw() bed.Entry {
	r := g.rng.Int63n(g.tot)
	idx := sort.Search(len(g.chroms), func(i int) bool { return g.chroms[i].cum > r })
	c := &g.chroms[idx]
	offset := r
	if idx > 0 {
		offset -= g.chroms[idx-1].cum
	}
	strand := byte('+')
	if g.rng.Intn(2) == 1 {
		strand = '-'
	}
	return bed.Entry{
		Chrom:  c.name,
		Start:  int(offset),
		End:    int(offset) + g.length,
		Strand: strand,
	}
}

// overlapsAccepted reports whether the candidate overlaps a previously
// accepted control.
func (g *Generator) overlapsAccepted(e *bed.Entry) bool {
	tree := g.trees[e.Chrom]
	if tree == nil {
		return false
	}
	return len(tree.Get(acceptedIval{start: e.Start, end: e.End})) > 0
}

func (g *Generator) accept(e *bed.Entry) error {
	tree := g.trees[e.Chrom]
	if tree == nil {
		tree = &itree.IntTree{}
		g.trees[e.Chrom] = tree
	}
	g.nextID++
	return tree.Insert(acceptedIval{id: g.nextID, start: e.Start, end: e.End}, false)
}

// Fill runs the rejection loop until the profile is exhausted or the attempt
// budget is spent.  The returned entries are in acceptance order; callers
// usually bed.Sort them before writing.  Fill may be called once per
// replicate: accepted controls from earlier calls stay in the exclusion
// state, keeping replicate sets disjoint.
func (g *Generator) Fill(ctx context.Context, profile Profile, stats *Stats) ([]bed.Entry, error) {
	remaining := profile.Clone()
	want := remaining.Total()
	if want == 0 {
		return nil, nil
	}
	budget := g.opts.MaxAttemptsPerInterval * want
	var accepted []bed.Entry
	for attempts := 0; len(accepted) < want; attempts++ {
		if attempts >= budget {
			return nil, errors.Errorf(
				"mrc: attempt budget %d exhausted with %d interval(s) unfilled (remaining: %s)",
				budget, want-len(accepted), remaining.String())
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats.Attempts++
		cand := g.draw()
		if g.exclude != nil && g.exclude.OverlapsByName(cand.Chrom, interval.PosType(cand.Start), interval.PosType(cand.End)) {
			stats.RejectedMasked++
			continue
		}
		if g.overlapsAccepted(&cand) {
			stats.RejectedOverlap++
			continue
		}
		gc, nFrac, err := fasta.GC(g.fa, cand.Chrom, uint64(cand.Start), uint64(cand.End))
		if err != nil {
			return nil, err
		}
		if nFrac > g.opts.MaxNFraction {
			stats.RejectedAmbiguous++
			continue
		}
		bin := Bin{GCBin: gcBin(gc, g.opts.BinWidth), Strand: cand.Strand}
		if remaining[bin] == 0 {
			stats.RejectedBinFull++
			continue
		}
		remaining[bin]--
		if err := g.accept(&cand); err != nil {
			return nil, errors.Wrap(err, "mrc: recording accepted interval")
		}
		cand.Name = fmt.Sprintf("mrc_%d", len(accepted)+1)
		cand.Score = int(gc*100 + 0.5)
		cand.NCols = 6
		accepted = append(accepted, cand)
		stats.Accepted++
	}
	return accepted, nil
}

// Generate builds the target profile from targets and fills it
// opts.Replicates times.  The returned slice holds one sorted entry set per
// replicate.
func Generate(ctx context.Context, fa fasta.Fasta, targets []bed.Entry, exclude *interval.BEDUnion, opts Opts) ([][]bed.Entry, *Stats, error) {
	if len(targets) == 0 {
		return nil, &Stats{}, nil
	}
	if opts.Replicates < 1 {
		return nil, nil, errors.Errorf("mrc: invalid replicate count %d", opts.Replicates)
	}
	length := opts.Length
	if length == 0 {
		length = medianLength(targets)
	}
	profile, err := BuildProfile(fa, targets, opts.BinWidth)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("mrc: target profile (%d intervals, length %d): %s", profile.Total(), length, profile.String())
	g, err := NewGenerator(fa, exclude, length, opts)
	if err != nil {
		return nil, nil, err
	}
	stats := &Stats{}
	if exclude != nil {
		stats.MaskedTargets = countMaskedTargets(exclude, targets)
		if stats.MaskedTargets > 0 {
			log.Printf("mrc: %d of %d target interval(s) start inside the exclusion mask", stats.MaskedTargets, len(targets))
		}
	}
	sets := make([][]bed.Entry, 0, opts.Replicates)
	for rep := 0; rep < opts.Replicates; rep++ {
		set, err := g.Fill(ctx, profile, stats)
		if err != nil {
			return nil, stats, errors.Wrapf(err, "mrc: replicate %d", rep+1)
		}
		bed.Sort(set)
		sets = append(sets, set)
		log.Printf("mrc: replicate %d/%d done, %s", rep+1, opts.Replicates, stats.String())
	}
	return sets, stats, nil
}

func medianLength(entries []bed.Entry) int {
	lengths := make([]int, len(entries))
	for i := range entries {
		lengths[i] = entries[i].Length()
	}
	sort.Ints(lengths)
	return lengths[len(lengths)/2]
}
