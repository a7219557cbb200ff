package atlasseq

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestPipelinePaths(t *testing.T) {
	p := &Pipeline{cfg: demuxConfig(), opts: Opts{OutDir: "/out"}}
	expect.EQ(t, p.path("s1", "sorted.bam"), "/out/test.s1.sorted.bam")
	expect.EQ(t, p.runPath("stats.tsv"), "/out/test.stats.tsv")
}

func TestPipelineDone(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	p := &Pipeline{cfg: demuxConfig(), opts: Opts{OutDir: tempDir}}
	missing := filepath.Join(tempDir, "missing.bam")
	expect.False(t, p.done(missing))

	empty := filepath.Join(tempDir, "empty.bam")
	assert.NoError(t, ioutil.WriteFile(empty, nil, 0644))
	expect.False(t, p.done(empty))

	full := filepath.Join(tempDir, "full.bam")
	assert.NoError(t, ioutil.WriteFile(full, []byte("BAM"), 0644))
	expect.True(t, p.done(full))

	p.opts.Force = true
	expect.False(t, p.done(full))
}

func TestDemultiplexResume(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	// The multiplexed input does not exist; demultiplex must not need it
	// when every per-sample output is already on disk.
	cfg := demuxConfig()
	cfg.Fastq = filepath.Join(tempDir, "no-such-input.fastq")
	p := &Pipeline{cfg: cfg, opts: Opts{OutDir: tempDir}}

	assert.NoError(t, writeGzip(p.path("s1", "fastq.gz"),
		[]byte("@r1\nAAAACCCC\n+\nFFFFFFFF\n@r2\nGGGGTTTT\n+\nFFFFFFFF\n")))
	assert.NoError(t, writeGzip(p.path("s2", "fastq.gz"),
		[]byte("@r3\nACACACAC\n+\nFFFFFFFF\n")))

	counts, err := p.demultiplex(context.Background())
	assert.NoError(t, err)
	expect.EQ(t, counts["s1"], 2)
	expect.EQ(t, counts["s2"], 1)

	// Force recomputes, which fails here because the input is gone.
	p.opts.Force = true
	_, err = p.demultiplex(context.Background())
	expect.NotNil(t, err)
}

func TestDemultiplexResumePartial(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	// One output missing forces a fresh demultiplex of the whole input.
	cfg := demuxConfig()
	cfg.Fastq = filepath.Join(tempDir, "all.fastq")
	assert.NoError(t, ioutil.WriteFile(cfg.Fastq,
		[]byte("@r1\nACGTAAAACCCC\n+\nFFFFFFFFFFFF\n@r2\nTGCAGGGGTTTT\n+\nFFFFFFFFFFFF\n"), 0644))
	p := &Pipeline{cfg: cfg, opts: Opts{OutDir: tempDir}}
	assert.NoError(t, writeGzip(p.path("s1", "fastq.gz"),
		[]byte("@stale\nAAAA\n+\nFFFF\n")))

	counts, err := p.demultiplex(context.Background())
	assert.NoError(t, err)
	expect.EQ(t, counts["s1"], 1)
	expect.EQ(t, counts["s2"], 1)

	// The stale output was rewritten, not reused.
	reads := readGzFastq(t, p.path("s1", "fastq.gz"))
	expect.EQ(t, len(reads), 1)
	expect.EQ(t, reads[0].ID, "@r1")
	expect.EQ(t, reads[0].Seq, "AAAACCCC")
}
