// Package lammps runs coarse-grained LAMMPS simulations with a tabulated
// pair potential.
package lammps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"text/template"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrEmptyTrajectory indicates a run that exited cleanly without
	// producing any trajectory output.
	ErrEmptyTrajectory = errors.New("lammps: trajectory missing or empty")
)

// Params is the parameter bundle of one simulation. Paths are relative to
// the runner directory unless absolute.
type Params struct {
	K         float64 // bond constant, kcal/mol/Å²
	R0        float64 // bond length, Å
	T         float64 // K
	NProc     int
	Data      string
	Dump      string
	Iteration int

	TablePath   string
	TableKey    string
	TablePoints int
	Cutoff      float64 // Å

	Steps     int
	DumpEvery int
	Timestep  float64 // fs
	Seed      int
}

// RunError reports a failed LAMMPS process.
type RunError struct {
	Tag      string
	ExitCode int
	Wrapped  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("lammps run %s failed (exit %d): %v", e.Tag, e.ExitCode, e.Wrapped)
}

func (e *RunError) Unwrap() error {
	return e.Wrapped
}

const scriptText = `# coarse-grained run, iteration {{.Iteration}}
units           real
atom_style      bond
boundary        p p p
read_data       {{.Data}}

bond_style      harmonic
bond_coeff      * {{g .K}} {{g .R0}}
special_bonds   lj 0.0 1.0 1.0

pair_style      table linear {{.TablePoints}}
pair_coeff      * * {{.TablePath}} {{.TableKey}} {{g .Cutoff}}
neighbor        2.0 bin
neigh_modify    every 1 delay 0 check yes

velocity        all create {{g .T}} {{.Seed}} dist gaussian
fix             1 all nvt temp {{g .T}} {{g .T}} {{g .Damping}}
timestep        {{g .Timestep}}
thermo          {{.DumpEvery}}
dump            1 all custom {{.DumpEvery}} {{.Dump}} id type xu yu zu
run             {{.Steps}}
`

var script = template.Must(template.New("in").Funcs(template.FuncMap{
	"g": func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) },
}).Parse(scriptText))

type scriptData struct {
	Params
	Damping float64
}

// Runner launches LAMMPS, optionally under an MPI launcher, in Dir.
type Runner struct {
	Binary  string
	MPI     string
	Dir     string
	Timeout time.Duration
}

func NewRunner(binary, mpi, dir string, timeout time.Duration) *Runner {
	return &Runner{Binary: binary, MPI: mpi, Dir: dir, Timeout: timeout}
}

// Script renders the input script for p.
func Script(p Params) ([]byte, error) {
	if p.TablePoints <= 0 {
		return nil, fmt.Errorf("lammps: table points must be positive, got %d", p.TablePoints)
	}
	if p.DumpEvery <= 0 || p.Steps <= 0 {
		return nil, fmt.Errorf("lammps: steps (%d) and dump interval (%d) must be positive", p.Steps, p.DumpEvery)
	}
	if p.Seed <= 0 {
		p.Seed = 4928459 + p.Iteration
	}
	var buf bytes.Buffer
	if err := script.Execute(&buf, scriptData{Params: p, Damping: 100 * p.Timestep}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Args returns the command line for an input script named tag.in.
func (r *Runner) Args(tag string, nproc int) []string {
	lmp := []string{r.Binary, "-in", tag + ".in", "-log", tag + ".log"}
	if nproc <= 1 || r.MPI == "" {
		return lmp
	}
	return append([]string{r.MPI, "-np", strconv.Itoa(nproc)}, lmp...)
}

func (r *Runner) path(p string) string {
	if filepath.IsAbs(p) || r.Dir == "" {
		return p
	}
	return filepath.Join(r.Dir, p)
}

// Run writes tag.in and runs the simulation to completion. It succeeds only
// when the process exits cleanly and the trajectory is non-empty.
func (r *Runner) Run(ctx context.Context, tag string, p Params) error {
	in, err := Script(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(r.path(tag+".in"), in, 0644); err != nil {
		return err
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	out, err := os.Create(r.path(tag + ".out"))
	if err != nil {
		return err
	}
	defer out.Close()

	args := r.Args(tag, p.NProc)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = r.Dir
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = 5 * time.Second

	logrus.Infof("running %v", args)
	start := time.Now()
	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(err, ctxErr)
		}
		return &RunError{Tag: tag, ExitCode: code, Wrapped: err}
	}
	logrus.Infof("run %s finished in %s", tag, time.Since(start).Round(time.Millisecond))

	info, err := os.Stat(r.path(p.Dump))
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyTrajectory, p.Dump)
	}
	return nil
}
