package fastq

import (
	"bytes"
	"strings"
	"testing"
)

// Single-end reads as they come off a barcoded amplicon run: a 4 base
// sample barcode, then genomic sequence running into the 3' linker.
const fq = `@M00528:21:000000000-A3JC3:1:1101:15589:1342 1:N:0:1
ACGTGGGAGATATACCTAATGCTAGATGACACAGATCGGAAGAGC
+
CCCCCGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGFFFF
@M00528:21:000000000-A3JC3:1:1101:17528:1364 1:N:0:1
TGCAAATGGCAGTATTCATTCACAATTTTAAAGATCGGAAGAGC
+
BBBBBFFFFFGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGG
@M00528:21:000000000-A3JC3:1:1101:12390:1401 1:N:0:1
ACGTNCTCAGGGAATAAGCCATACTGTAACT
+
CCCCC#GGGGGGGGGGGGGGGGGGGGGGGGG
`

func scanAll(t *testing.T, in string, fields Field) []Read {
	t.Helper()
	var (
		s     = NewScanner(strings.NewReader(in), fields)
		reads []Read
		r     Read
	)
	for s.Scan(&r) {
		reads = append(reads, r)
	}
	if err := s.Err(); err != nil {
		t.Fatal(err)
	}
	return reads
}

func TestScan(t *testing.T) {
	reads := scanAll(t, fq, All)
	if got, want := len(reads), 3; got != want {
		t.Fatalf("got %v reads, want %v", got, want)
	}
	want := Read{
		ID:   "@M00528:21:000000000-A3JC3:1:1101:15589:1342 1:N:0:1",
		Seq:  "ACGTGGGAGATATACCTAATGCTAGATGACACAGATCGGAAGAGC",
		Unk:  "+",
		Qual: "CCCCCGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGFFFF",
	}
	if got := reads[0]; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := reads[2].Seq, "ACGTNCTCAGGGAATAAGCCATACTGTAACT"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestScanFields(t *testing.T) {
	reads := scanAll(t, fq, ID|Seq)
	for _, r := range reads {
		if r.ID == "" || r.Seq == "" {
			t.Errorf("missing requested field in %v", r)
		}
		if r.Unk != "" || r.Qual != "" {
			t.Errorf("unrequested field filled in %v", r)
		}
	}
}

func TestScanErrors(t *testing.T) {
	scanErr := func(in string) error {
		var (
			s = NewScanner(strings.NewReader(in), All)
			r Read
		)
		for s.Scan(&r) {
		}
		return s.Err()
	}
	if got, want := scanErr("ACGT\n"), ErrInvalid; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := scanErr("@r1\nACGT\nFFFF\nFFFF\n"), ErrInvalid; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := scanErr("@r1\nACGT\n+"), ErrShort; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if err := scanErr(""); err != nil {
		t.Errorf("empty input: %v", err)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	var (
		s = NewScanner(strings.NewReader(fq), All)
		b = new(bytes.Buffer)
		w = NewWriter(b)
		r Read
	)
	for s.Scan(&r) {
		if err := w.Write(&r); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Err(); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if got, want := b.String(), fq; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
