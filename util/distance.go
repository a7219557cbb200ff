// Package util holds small helpers shared across packages.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// editMatrix is the dynamic-programming table for an edit distance
// computation, stored row-major.
type editMatrix struct {
	nRow, nCol int
	data       []int
}

func newEditMatrix(nRow, nCol int) editMatrix {
	return editMatrix{
		nRow: nRow,
		nCol: nCol,
		data: make([]int, nRow*nCol),
	}
}

// String renders the table for debugging.
func (m editMatrix) String() string {
	width := 0
	for _, d := range m.data {
		if l := len(strconv.Itoa(d)); l > width {
			width = l
		}
	}
	lines := []string{"\n"}
	for i := 0; i < m.nRow; i++ {
		var cells []string
		for j := 0; j < m.nCol; j++ {
			cells = append(cells, fmt.Sprintf("%0*s", width, strconv.Itoa(m.data[i*m.nCol+j])))
		}
		lines = append(lines, strings.Join(cells, " | "))
	}
	return strings.Join(lines, "\n")
}

// move names one of the three table traversals that can produce a cell's
// value: moveDiag consumes a base from both sequences (match or
// substitution), moveAcross consumes only from the second sequence
// (insertion), and moveDown consumes only from the first (deletion).
type move uint8

const (
	moveDiag move = iota
	moveAcross
	moveDown
)

type moveSet []move

func (s moveSet) has(m move) bool {
	for _, x := range s {
		if x == m {
			return true
		}
	}
	return false
}

// fillRow fills row i up to and including column col.
func (m editMatrix) fillRow(i, col int, b1, b2 []byte) {
	for j := 0; j <= col; j++ {
		m.fill(i, j, b1, b2)
	}
}

// fillCol fills column j up to and including row row.
func (m editMatrix) fillCol(j, row int, b1, b2 []byte) {
	for i := 0; i <= row; i++ {
		m.fill(i, j, b1, b2)
	}
}

// fill computes cell (i, j) and returns the set of moves that achieve its
// value.
func (m editMatrix) fill(i, j int, b1, b2 []byte) moveSet {
	switch {
	case i == 0:
		m.data[j] = j
		return nil
	case j == 0:
		m.data[i*m.nCol] = i
		return nil
	case b1[i-1] == b2[j-1]:
		m.data[i*m.nCol+j] = m.data[(i-1)*m.nCol+(j-1)]
		return moveSet{moveDiag}
	}

	del := m.data[(i-1)*m.nCol+j] + 1
	sub := m.data[(i-1)*m.nCol+(j-1)] + 1
	ins := m.data[i*m.nCol+(j-1)] + 1

	best := del
	if sub < best {
		best = sub
	}
	if ins < best {
		best = ins
	}
	m.data[i*m.nCol+j] = best

	var moves moveSet
	if del == best {
		moves = append(moves, moveDown)
	}
	if sub == best {
		moves = append(moves, moveDiag)
	}
	if ins == best {
		moves = append(moves, moveAcross)
	}
	return moves
}

// Levenshtein returns the edit distance between two sample barcodes: the
// number of substitutions, insertions, and deletions needed to turn bc1
// into bc2.  The sequencer reads a fixed number of barcode cycles, so a
// deletion within a barcode pulls the first bases of the downstream read
// into the barcode window.  tail1 and tail2 supply those downstream bases
// so deletions are costed against what would actually be sequenced; pass
// empty strings for a plain comparison.  bc1 and bc2 must have the same
// length.
func Levenshtein(bc1, bc2, tail1, tail2 string) int {
	if len(bc1) != len(bc2) {
		panic(fmt.Sprintf("barcodes must have equal length: '%s', '%s'", bc1, bc2))
	}

	b1 := []byte(bc1)
	b2 := []byte(bc2)
	rows := len(b1)
	cols := len(b2)

	// The table is sized up front for the worst case in which every
	// downstream base gets pulled in.
	m := newEditMatrix(rows+len(tail1)+1, cols+len(tail2)+1)

	i, iEnd := 1, rows
	j, jEnd := 1, cols
	for {
		if i <= iEnd {
			m.fillRow(i, j-1, b1, b2)
		}
		if j <= jEnd {
			m.fillCol(j, i-1, b1, b2)
		}
		moves := m.fill(i, j, b1, b2)

		if i < rows {
			i++
			j++
			continue
		}

		// Past the barcode proper: extend a sequence with its next
		// downstream base whenever the optimal path ended in the
		// corresponding indel, and stop once neither side grows.
		grew := false
		if moves.has(moveDown) && len(tail2) > 0 {
			b2 = append(b2, tail2[0])
			tail2 = tail2[1:]
			j++
			jEnd++
			grew = true
		}
		if moves.has(moveAcross) && len(tail1) > 0 {
			b1 = append(b1, tail1[0])
			tail1 = tail1[1:]
			i++
			iEnd++
			grew = true
		}
		if !grew {
			if plain := m.data[rows*m.nCol+cols]; plain <= m.data[i*m.nCol+j] {
				return plain
			}
			return m.data[i*m.nCol+j]
		}
	}
}
