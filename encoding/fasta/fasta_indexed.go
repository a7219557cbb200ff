package fasta

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
)

// faiRecord is one line of a samtools .fai index: sequence length, byte
// offset of the first base, and the line geometry of the FASTA body.
type faiRecord struct {
	bases        uint64
	byteOffset   uint64
	basesPerLine uint64
	bytesPerLine uint64
}

// indexedReader serves Get from an open FASTA file using its .fai index,
// seeking instead of loading sequences into memory.  A small window of the
// file is cached between calls, which makes sequential window queries (the
// GC profile scan) cheap.  Safe for concurrent use.
type indexedReader struct {
	index map[string]faiRecord
	// names holds sequence names in file order.
	names []string
	r     io.ReadSeeker
	// win caches file bytes starting at winOff.
	winOff int64
	win    []byte
	// seqBuf is scratch for newline-stripped output.
	seqBuf []byte
	mu     sync.Mutex
}

// NewIndexed returns a Fasta backed by fasta and its .fai index.  This is
// the implementation of choice for whole reference genomes.
func NewIndexed(fasta io.ReadSeeker, fai io.Reader) (Fasta, error) {
	f := &indexedReader{index: make(map[string]faiRecord), r: fasta}
	scanner := bufio.NewScanner(fai)
	for scanner.Scan() {
		matches := indexRegExp.FindStringSubmatch(scanner.Text())
		if len(matches) != 6 {
			return nil, fmt.Errorf("invalid index line: %s", scanner.Text())
		}
		var rec faiRecord
		rec.bases, _ = strconv.ParseUint(matches[2], 10, 64)
		rec.byteOffset, _ = strconv.ParseUint(matches[3], 10, 64)
		rec.basesPerLine, _ = strconv.ParseUint(matches[4], 10, 64)
		rec.bytesPerLine, _ = strconv.ParseUint(matches[5], 10, 64)
		f.index[matches[1]] = rec
		f.names = append(f.names, matches[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(f.names, func(i, j int) bool {
		return f.index[f.names[i]].byteOffset < f.index[f.names[j]].byteOffset
	})
	return f, nil
}

// FaiToReferenceLengths reads a .fai index and returns sequence name to
// length, without touching the FASTA itself.
func FaiToReferenceLengths(fai io.Reader) (map[string]uint64, error) {
	f, err := NewIndexed(nil, fai)
	if err != nil {
		return nil, err
	}
	lengths := make(map[string]uint64)
	for _, name := range f.SeqNames() {
		n, err := f.Len(name)
		if err != nil {
			return nil, err
		}
		lengths[name] = n
	}
	return lengths, nil
}

// Len implements Fasta.Len().
func (f *indexedReader) Len(seqName string) (uint64, error) {
	rec, ok := f.index[seqName]
	if !ok {
		return 0, fmt.Errorf("sequence not found in index: %s", seqName)
	}
	return rec.bases, nil
}

// SeqNames implements Fasta.SeqNames().
func (f *indexedReader) SeqNames() []string {
	return f.names
}

// window returns file bytes [off, off+n), refilling the cache when the
// range falls outside it.
func (f *indexedReader) window(off int64, n int) ([]byte, error) {
	limit := off + int64(n)
	if off < f.winOff || limit > f.winOff+int64(len(f.win)) {
		if pos, err := f.r.Seek(off, io.SeekStart); err != nil || pos != off {
			return nil, fmt.Errorf("failed to seek to offset %d: %d, %v", off, pos, err)
		}
		size := 8192
		if size < n {
			size = n
		}
		f.win = grow(f.win, size)
		nRead, err := f.r.Read(f.win)
		if nRead < n {
			return nil, fmt.Errorf("encountered unexpected end of file (bad index? file doesn't end in newline?)")
		}
		if err != nil && err != io.EOF {
			return nil, err
		}
		f.winOff = off
		f.win = f.win[:nRead]
	}
	return f.win[off-f.winOff : limit-f.winOff], nil
}

func grow(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}

// Get implements Fasta.Get().
func (f *indexedReader) Get(seqName string, start, end uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if end <= start {
		return "", fmt.Errorf("start must be less than end")
	}
	rec, ok := f.index[seqName]
	if !ok {
		return "", fmt.Errorf("sequence not found in index: %s", seqName)
	}
	if end > rec.bases {
		return "", fmt.Errorf("end is past end of sequence %s: %d", seqName, rec.bases)
	}

	// Byte offset of base `start`, accounting for the newline bytes on
	// every full line before it.
	sepBytes := rec.bytesPerLine - rec.basesPerLine
	offset := rec.byteOffset + start + sepBytes*(start/rec.basesPerLine)

	// Bytes to read: the requested bases plus the newlines interleaved
	// with them.
	firstLineBases := rec.basesPerLine - (start % rec.basesPerLine)
	newlines := uint64(0)
	if end-start > firstLineBases {
		newlines = 1 + (end-start-firstLineBases)/rec.basesPerLine
	}
	raw, err := f.window(int64(offset), int(end-start+newlines*sepBytes))
	if err != nil && err != io.EOF {
		return "", err
	}

	// Strip the newlines.
	f.seqBuf = grow(f.seqBuf, int(end-start))
	linePos := (offset - rec.byteOffset) % rec.bytesPerLine
	out := 0
	for i := range raw {
		if linePos < rec.basesPerLine {
			f.seqBuf[out] = raw[i]
			out++
		}
		linePos++
		if linePos == rec.bytesPerLine {
			linePos = 0
		}
	}
	return string(f.seqBuf), nil
}
