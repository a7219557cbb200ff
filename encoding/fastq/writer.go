package fastq

import (
	"bufio"
	"io"
)

// Writer writes reads in FASTQ format.  Output is buffered; callers must
// Flush before closing the underlying writer.
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter returns a Writer emitting FASTQ to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write writes the four lines of read r.  The first error encountered is
// sticky: it is returned here and by every subsequent Write and Flush.
func (w *Writer) Write(r *Read) error {
	w.writeLine(r.ID)
	w.writeLine(r.Seq)
	w.writeLine(r.Unk)
	w.writeLine(r.Qual)
	return w.err
}

// Flush writes buffered output to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.w.Flush()
	return w.err
}

func (w *Writer) writeLine(s string) {
	if w.err != nil {
		return
	}
	if _, w.err = w.w.WriteString(s); w.err != nil {
		return
	}
	w.err = w.w.WriteByte('\n')
}
