package atlasseq

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atlas-seq/atlas/encoding/fastq"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

func demuxConfig() *Config {
	return &Config{
		Prefix:    "test",
		Reference: "/ref.fa",
		Fastq:     "all.fastq",
		Samples: []Sample{
			{Name: "s1", Barcode: "ACGT"},
			{Name: "s2", Barcode: "TGCA"},
		},
	}
}

func readGzFastq(t *testing.T, path string) []fastq.Read {
	in, err := os.Open(path)
	assert.NoError(t, err)
	defer in.Close()
	gz, err := gzip.NewReader(in)
	assert.NoError(t, err)
	var (
		reads []fastq.Read
		read  fastq.Read
	)
	scanner := fastq.NewScanner(gz, fastq.All)
	for scanner.Scan(&read) {
		reads = append(reads, read)
	}
	assert.NoError(t, scanner.Err())
	return reads
}

func TestDemultiplex(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	input := strings.Join([]string{
		"@r1", "ACGTAAAACCCC", "+", "FFFFFFFFFFFF",
		"@r2", "TGCAGGGGTTTT", "+", "FFFFFFFFFFFF",
		// One sequencing error in the barcode, still snaps to ACGT.
		"@r3", "NCGTAAAAGGGG", "+", "FFFFFFFFFFFF",
		// No known barcode within reach.
		"@r4", "GGGGAAAAAAAA", "+", "FFFFFFFFFFFF",
		// Too short to carry a barcode.
		"@r5", "ACG", "+", "FFF",
	}, "\n") + "\n"

	cfg := demuxConfig()
	outPaths := map[string]string{
		"s1": filepath.Join(tempDir, "test.s1.fastq.gz"),
		"s2": filepath.Join(tempDir, "test.s2.fastq.gz"),
	}
	counts, err := Demultiplex(context.Background(), strings.NewReader(input), cfg, outPaths)
	assert.NoError(t, err)
	expect.EQ(t, counts["s1"], 2)
	expect.EQ(t, counts["s2"], 1)

	s1 := readGzFastq(t, outPaths["s1"])
	expect.EQ(t, len(s1), 2)
	expect.EQ(t, s1[0].ID, "@r1")
	expect.EQ(t, s1[0].Seq, "AAAACCCC")
	expect.EQ(t, s1[0].Qual, "FFFFFFFF")
	expect.EQ(t, s1[1].ID, "@r3")
	expect.EQ(t, s1[1].Seq, "AAAAGGGG")

	s2 := readGzFastq(t, outPaths["s2"])
	expect.EQ(t, len(s2), 1)
	expect.EQ(t, s2[0].Seq, "GGGGTTTT")

	n, err := CountReads(outPaths["s1"])
	assert.NoError(t, err)
	expect.EQ(t, n, 2)
}

func TestDemultiplexLowerCaseBarcode(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	// A barcode configured in lower case must still collect its reads: the
	// corrector reports matches upper-cased.
	cfg := demuxConfig()
	cfg.Samples[0].Barcode = "acgt"
	input := strings.Join([]string{
		"@r1", "ACGTAAAACCCC", "+", "FFFFFFFFFFFF",
		"@r2", "acgtGGGGTTTT", "+", "FFFFFFFFFFFF",
	}, "\n") + "\n"
	outPaths := map[string]string{
		"s1": filepath.Join(tempDir, "test.s1.fastq.gz"),
		"s2": filepath.Join(tempDir, "test.s2.fastq.gz"),
	}
	counts, err := Demultiplex(context.Background(), strings.NewReader(input), cfg, outPaths)
	assert.NoError(t, err)
	expect.EQ(t, counts["s1"], 2)
	expect.EQ(t, counts["s2"], 0)
}

func TestDemultiplexMissingOutPath(t *testing.T) {
	cfg := demuxConfig()
	_, err := Demultiplex(context.Background(), strings.NewReader(""), cfg, map[string]string{})
	expect.NotNil(t, err)
}

func TestWriteGzip(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tempDir, "out.gz")
	assert.NoError(t, writeGzip(path, []byte("@r1\nACGT\n+\nFFFF\n")))
	n, err := CountReads(path)
	assert.NoError(t, err)
	expect.EQ(t, n, 1)
}
