package fasta

// Composition holds base counts for a stretch of sequence.  Lowercase
// (soft-masked) bases count the same as their uppercase equivalents.
type Composition struct {
	A, C, G, T, N int
	// Other counts IUPAC ambiguity codes and anything else unexpected.
	Other int
}

// Count tallies the base composition of seq.
func Count(seq string) Composition {
	var c Composition
	for i := 0; i < len(seq); i++ {
		switch seq[i] {
		case 'A', 'a':
			c.A++
		case 'C', 'c':
			c.C++
		case 'G', 'g':
			c.G++
		case 'T', 't':
			c.T++
		case 'N', 'n':
			c.N++
		default:
			c.Other++
		}
	}
	return c
}

// Total returns the number of counted bases.
func (c Composition) Total() int {
	return c.A + c.C + c.G + c.T + c.N + c.Other
}

// GC returns the G+C fraction of the unambiguous (ACGT) bases, or 0 when
// there are none.
func (c Composition) GC() float64 {
	acgt := c.A + c.C + c.G + c.T
	if acgt == 0 {
		return 0
	}
	return float64(c.C+c.G) / float64(acgt)
}

// NFraction returns the fraction of bases that are not unambiguous ACGT.
func (c Composition) NFraction() float64 {
	tot := c.Total()
	if tot == 0 {
		return 0
	}
	return float64(c.N+c.Other) / float64(tot)
}

// GC returns the G+C fraction of the [start, end) slice of the named
// sequence, along with the fraction of ambiguous bases in the window.
func GC(f Fasta, seqName string, start, end uint64) (gc, nFrac float64, err error) {
	var seq string
	if seq, err = f.Get(seqName, start, end); err != nil {
		return
	}
	c := Count(seq)
	return c.GC(), c.NFraction(), nil
}
