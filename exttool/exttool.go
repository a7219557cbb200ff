// Package exttool locates and runs the external bioinformatics tools the
// pipelines delegate to (bedtools, bwa, cutadapt, picard, samtools, seqtk).
// Alignment, interval arithmetic and duplicate marking stay in those tools;
// this package only builds argv vectors, wires pipes and reports failures.
package exttool

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// Tool is an external executable, possibly with fixed leading arguments
// (e.g. "java -jar picard.jar").
type Tool struct {
	// Name is the logical tool name ("bwa", "samtools", ...).
	Name string
	// Path is the resolved executable path.
	Path string
	// PrefixArgs are inserted before per-invocation arguments.
	PrefixArgs []string
}

// Find resolves a tool by name.  If override is nonempty it is used as the
// executable path (still checked against $PATH when not absolute); otherwise
// name itself is looked up.
func Find(name, override string) (Tool, error) {
	lookup := name
	if override != "" {
		lookup = override
	}
	path, err := exec.LookPath(lookup)
	if err != nil {
		return Tool{}, errors.Wrapf(err, "exttool: %s not found", name)
	}
	return Tool{Name: name, Path: path}, nil
}

// FindJava resolves a tool distributed as a jar (picard).  jarPath must point
// at the jar; javaOverride optionally overrides the java executable.
func FindJava(name, jarPath, javaOverride string) (Tool, error) {
	if jarPath == "" {
		return Tool{}, errors.Errorf("exttool: no jar path configured for %s", name)
	}
	if _, err := os.Stat(jarPath); err != nil {
		return Tool{}, errors.Wrapf(err, "exttool: %s jar not found", name)
	}
	java := "java"
	if javaOverride != "" {
		java = javaOverride
	}
	path, err := exec.LookPath(java)
	if err != nil {
		return Tool{}, errors.Wrapf(err, "exttool: java not found for %s", name)
	}
	return Tool{Name: name, Path: path, PrefixArgs: []string{"-jar", jarPath}}, nil
}

// Command builds an *exec.Cmd for one invocation.  Stderr is passed through
// to the parent process; callers set Stdin/Stdout as needed.
func (t Tool) Command(ctx context.Context, args ...string) *exec.Cmd {
	argv := append(append([]string{}, t.PrefixArgs...), args...)
	cmd := exec.CommandContext(ctx, t.Path, argv...)
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr
	log.Debug.Printf("exttool: %s %s", t.Path, strings.Join(argv, " "))
	return cmd
}

// Run runs one invocation to completion.
func (t Tool) Run(ctx context.Context, args ...string) error {
	cmd := t.Command(ctx, args...)
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "exttool: %s %s", t.Name, strings.Join(args, " "))
	}
	return nil
}

// Output runs one invocation and returns its stdout.
func (t Tool) Output(ctx context.Context, args ...string) ([]byte, error) {
	cmd := t.Command(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "exttool: %s %s", t.Name, strings.Join(args, " "))
	}
	return out.Bytes(), nil
}

// Version probes the tool's version string, best effort.  Tools disagree on
// the flag ("--version", "-version", no flag at all for bwa), so the first
// nonempty output wins.  Returns "" when nothing could be extracted.
func (t Tool) Version(ctx context.Context) string {
	for _, flag := range []string{"--version", "-version", "version"} {
		cmd := t.Command(ctx, flag)
		var out bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &out
		_ = cmd.Run()
		if line := firstLine(out.String()); line != "" {
			return line
		}
	}
	// bwa prints usage (with a Version: line) when run without arguments.
	cmd := t.Command(ctx)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	_ = cmd.Run()
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "Version:") {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
