package lammps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logrus.SetLevel(logrus.WarnLevel)
	os.Exit(m.Run())
}

func testParams() Params {
	return Params{
		K: 0.25924, R0: 4.862605, T: 300, NProc: 1,
		Data: "cg.data", Dump: "cg-00.lammpstrj", Iteration: 0,
		TablePath: "pair.table.0", TableKey: "SS", TablePoints: 1000, Cutoff: 15,
		Steps: 100, DumpEvery: 10, Timestep: 10,
	}
}

func TestScript(t *testing.T) {
	in, err := Script(testParams())
	require.NoError(t, err)
	s := string(in)

	assert.Contains(t, s, "read_data       cg.data")
	assert.Contains(t, s, "bond_coeff      * 0.25924 4.862605")
	assert.Contains(t, s, "pair_coeff      * * pair.table.0 SS 15")
	assert.Contains(t, s, "dump            1 all custom 10 cg-00.lammpstrj id type xu yu zu")
	assert.Contains(t, s, "fix             1 all nvt temp 300 300 1000")
}

func TestScriptRejectsBadParams(t *testing.T) {
	p := testParams()
	p.TablePoints = 0
	_, err := Script(p)
	assert.Error(t, err)

	p = testParams()
	p.DumpEvery = 0
	_, err = Script(p)
	assert.Error(t, err)
}

func TestArgs(t *testing.T) {
	r := NewRunner("lmp", "mpirun", "", 0)
	assert.Equal(t, []string{"lmp", "-in", "cg-01.in", "-log", "cg-01.log"}, r.Args("cg-01", 1))
	assert.Equal(t,
		[]string{"mpirun", "-np", "4", "lmp", "-in", "cg-01.in", "-log", "cg-01.log"},
		r.Args("cg-01", 4))

	r.MPI = ""
	assert.Equal(t, "lmp", r.Args("cg-01", 4)[0])
}

// fakeLAMMPS writes an executable shell script standing in for the binary.
func fakeLAMMPS(t *testing.T, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	path := filepath.Join(dir, "fake-lmp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestRunSuccess(t *testing.T) {
	dir := t.TempDir()
	bin := fakeLAMMPS(t, dir, `echo "ITEM: TIMESTEP" > cg-00.lammpstrj`)

	r := NewRunner(bin, "mpirun", dir, 0)
	require.NoError(t, r.Run(context.Background(), "cg-00", testParams()))

	in, err := os.ReadFile(filepath.Join(dir, "cg-00.in"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(in), "# coarse-grained run"))
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, err error)
	}{
		{
			name: "nonzero exit",
			body: "exit 3",
			check: func(t *testing.T, err error) {
				var re *RunError
				require.True(t, errors.As(err, &re))
				assert.Equal(t, 3, re.ExitCode)
			},
		},
		{
			name: "no trajectory",
			body: "exit 0",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyTrajectory)
			},
		},
		{
			name: "empty trajectory",
			body: ": > cg-00.lammpstrj",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyTrajectory)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			r := NewRunner(fakeLAMMPS(t, dir, tt.body), "", dir, 0)
			err := r.Run(context.Background(), "cg-00", testParams())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestRunTimeout(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(fakeLAMMPS(t, dir, "exec sleep 5"), "", dir, 50*time.Millisecond)

	start := time.Now()
	err := r.Run(context.Background(), "cg-00", testParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 4*time.Second)
}
