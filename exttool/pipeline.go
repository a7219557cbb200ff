package exttool

import (
	"io"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Pipeline chains commands stdout-to-stdin, like a shell pipe.  Commands are
// started left to right and waited on in the same order, so an early-stage
// failure surfaces rather than a downstream EPIPE.
type Pipeline struct {
	cmds []*exec.Cmd
}

// NewPipeline builds a pipeline over cmds.  At least one command is
// required.
func NewPipeline(cmds ...*exec.Cmd) *Pipeline {
	if len(cmds) == 0 {
		panic("exttool: empty pipeline")
	}
	return &Pipeline{cmds: cmds}
}

// SetStdin sets the first command's stdin.
func (p *Pipeline) SetStdin(r io.Reader) { p.cmds[0].Stdin = r }

// SetStdout sets the last command's stdout.
func (p *Pipeline) SetStdout(w io.Writer) { p.cmds[len(p.cmds)-1].Stdout = w }

// Run wires the pipe chain, starts every stage, and waits for all of them.
// The first stage error wins; later stages are still waited on so no zombies
// are left behind.
func (p *Pipeline) Run() error {
	for i := 1; i < len(p.cmds); i++ {
		stdout, err := p.cmds[i-1].StdoutPipe()
		if err != nil {
			return errors.Wrap(err, "exttool: pipeline plumbing")
		}
		p.cmds[i].Stdin = stdout
	}
	for _, cmd := range p.cmds {
		if err := cmd.Start(); err != nil {
			return errors.Wrapf(err, "exttool: starting %s", cmd.Path)
		}
	}
	var firstErr error
	for _, cmd := range p.cmds {
		if err := cmd.Wait(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "exttool: %s", strings.Join(cmd.Args, " "))
		}
	}
	return firstErr
}
