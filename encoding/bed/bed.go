// Package bed reads and writes BED records.  Coordinates are 0-based,
// half-open, per the UCSC BED convention.  Only the first six columns
// (chrom, start, end, name, score, strand) are interpreted; a record
// may carry three, four, five or six of them.
package bed

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Entry is a single BED record.  Name, Score and Strand are only
// meaningful when NCols indicates they were present in the input.
type Entry struct {
	Chrom  string
	Start  int
	End    int
	Name   string
	Score  int
	Strand byte
	// NCols is the number of columns seen on the input line (3-6).
	// Entries constructed in code may leave it zero; writers treat
	// zero as "write all populated columns".
	NCols int
}

// Length returns End - Start.
func (e *Entry) Length() int { return e.End - e.Start }

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// headerLine reports whether tokens form a UCSC track or browser header
// rather than a record.  A chromosome literally named "track" is kept as
// a record as long as its coordinates parse.
func headerLine(tokens [][]byte) bool {
	t0 := string(tokens[0])
	if t0 != "track" && t0 != "browser" {
		return false
	}
	if len(tokens) < 3 {
		return true
	}
	if _, err := strconv.Atoi(string(tokens[1])); err != nil {
		return true
	}
	if _, err := strconv.Atoi(string(tokens[2])); err != nil {
		return true
	}
	return false
}

// Scanner reads BED records one at a time.  Blank lines and lines
// starting with '#' are skipped; 'track' and 'browser' headers are
// skipped too, unless the line parses as a record.
type Scanner struct {
	b       *bufio.Scanner
	err     error
	lineIdx int
}

// NewScanner constructs a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{b: bufio.NewScanner(r)}
}

// Scan reads the next record into entry, returning false at EOF or on
// error.  Check Err after Scan returns false.
func (s *Scanner) Scan(entry *Entry) bool {
	if s.err != nil {
		return false
	}
	var tokens [6][]byte
	for s.b.Scan() {
		s.lineIdx++
		line := s.b.Bytes()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		nToken := getTokens(tokens[:], line)
		if nToken == 0 || headerLine(tokens[:nToken]) {
			continue
		}
		if nToken < 3 {
			s.err = errors.Errorf("bed: line %d has %d column(s), expected at least 3", s.lineIdx, nToken)
			return false
		}
		entry.Chrom = string(tokens[0])
		var start, end int
		var err error
		if start, err = strconv.Atoi(string(tokens[1])); err != nil {
			s.err = errors.Wrapf(err, "bed: bad start coordinate on line %d", s.lineIdx)
			return false
		}
		if end, err = strconv.Atoi(string(tokens[2])); err != nil {
			s.err = errors.Wrapf(err, "bed: bad end coordinate on line %d", s.lineIdx)
			return false
		}
		if start < 0 || end < start {
			s.err = errors.Errorf("bed: invalid interval [%d, %d) on line %d", start, end, s.lineIdx)
			return false
		}
		entry.Start = start
		entry.End = end
		entry.Name = ""
		entry.Score = 0
		entry.Strand = 0
		entry.NCols = nToken
		if nToken > 3 {
			entry.Name = string(tokens[3])
		}
		if nToken > 4 {
			// Score need not be numeric in the wild ('.'); treat
			// unparseable scores as zero rather than failing.
			entry.Score, _ = strconv.Atoi(string(tokens[4]))
		}
		if nToken > 5 {
			strand := tokens[5]
			if len(strand) != 1 || (strand[0] != '+' && strand[0] != '-' && strand[0] != '.') {
				s.err = errors.Errorf("bed: invalid strand %q on line %d", strand, s.lineIdx)
				return false
			}
			entry.Strand = strand[0]
		}
		return true
	}
	s.err = s.b.Err()
	return false
}

// Err returns the first error encountered, or nil at clean EOF.
func (s *Scanner) Err() error { return s.err }

// ReadAll reads every record from r.
func ReadAll(r io.Reader) ([]Entry, error) {
	var (
		entries []Entry
		entry   Entry
		sc      = NewScanner(r)
	)
	for sc.Scan(&entry) {
		entries = append(entries, entry)
	}
	return entries, sc.Err()
}

// ReadAllFromPath reads every record from the BED at path, transparently
// decompressing .gz inputs.
func ReadAllFromPath(path string) (entries []Entry, err error) {
	ctx := vcontext.Background()
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return ReadAll(reader)
}

// Writer writes BED records.
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter constructs a Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write writes one record.  The number of columns written follows
// entry.NCols when set, otherwise all populated columns are written.
func (w *Writer) Write(entry *Entry) error {
	if w.err != nil {
		return w.err
	}
	nCols := entry.NCols
	if nCols == 0 {
		nCols = 3
		if entry.Strand != 0 {
			nCols = 6
		} else if entry.Score != 0 {
			nCols = 5
		} else if entry.Name != "" {
			nCols = 4
		}
	}
	switch nCols {
	case 3:
		_, w.err = fmt.Fprintf(w.w, "%s\t%d\t%d\n", entry.Chrom, entry.Start, entry.End)
	case 4:
		_, w.err = fmt.Fprintf(w.w, "%s\t%d\t%d\t%s\n", entry.Chrom, entry.Start, entry.End, entry.Name)
	case 5:
		_, w.err = fmt.Fprintf(w.w, "%s\t%d\t%d\t%s\t%d\n", entry.Chrom, entry.Start, entry.End, entry.Name, entry.Score)
	case 6:
		strand := entry.Strand
		if strand == 0 {
			strand = '.'
		}
		name := entry.Name
		if name == "" {
			name = "."
		}
		_, w.err = fmt.Fprintf(w.w, "%s\t%d\t%d\t%s\t%d\t%c\n", entry.Chrom, entry.Start, entry.End, name, entry.Score, strand)
	default:
		w.err = errors.Errorf("bed: cannot write %d columns", nCols)
	}
	return w.err
}

// Flush flushes buffered output.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

// WriteAllToPath writes entries to a BED file at path, gzip-compressing
// when the path ends in .gz.
func WriteAllToPath(path string, entries []Entry) (err error) {
	ctx := vcontext.Background()
	var out file.File
	if out, err = file.Create(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := out.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	writer := io.Writer(out.Writer(ctx))
	var gz *gzip.Writer
	if fileio.DetermineType(path) == fileio.Gzip {
		gz = gzip.NewWriter(writer)
		writer = gz
	}
	w := NewWriter(writer)
	for i := range entries {
		if err = w.Write(&entries[i]); err != nil {
			return
		}
	}
	if err = w.Flush(); err != nil {
		return
	}
	if gz != nil {
		err = gz.Close()
	}
	return
}
