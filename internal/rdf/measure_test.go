package rdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dataFile = `LAMMPS data file

3 atoms
1 bonds
1 atom types
1 bond types

0.0 10.0 xlo xhi
0.0 10.0 ylo yhi
0.0 10.0 zlo zhi

Masses

1 1.0

Atoms # bond

1 1 1 1.0 1.0 1.0
2 1 1 2.0 1.0 1.0
3 2 1 4.0 1.0 1.0

Bonds

1 1 1 2
`

func writeFrame(w io.Writer, step int, header string, rows []string) {
	fmt.Fprintf(w, "ITEM: TIMESTEP\n%d\nITEM: NUMBER OF ATOMS\n%d\n", step, len(rows))
	fmt.Fprintf(w, "ITEM: BOX BOUNDS pp pp pp\n0.0 10.0\n0.0 10.0\n0.0 10.0\n")
	fmt.Fprintf(w, "ITEM: ATOMS %s\n", header)
	for _, r := range rows {
		fmt.Fprintln(w, r)
	}
}

func TestReadTopology(t *testing.T) {
	top, err := ReadTopology(strings.NewReader(dataFile))
	require.NoError(t, err)
	assert.Equal(t, 3, top.Atoms)
	assert.Equal(t, [][2]int{{1, 2}}, top.Bonds)
}

func TestReadTopologyCountMismatch(t *testing.T) {
	in := strings.Replace(dataFile, "1 bonds", "2 bonds", 1)
	_, err := ReadTopology(strings.NewReader(in))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestTrajectoryReaderScaledAndUnwrapped(t *testing.T) {
	var buf bytes.Buffer
	writeFrame(&buf, 0, "id type xs ys zs", []string{"1 1 0.1 0.2 0.3", "2 1 0.5 0.5 0.5"})
	writeFrame(&buf, 100, "id type xu yu zu", []string{"2 1 5 5 5", "1 1 1 2 3"})

	tr := NewTrajectoryReader(&buf)
	f1, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(0), f1.Timestep)
	assert.InDelta(t, 1.0, f1.Pos[0][0], 1e-12)
	assert.InDelta(t, 3.0, f1.Pos[0][2], 1e-12)
	assert.InDelta(t, 1000.0, f1.Volume(), 1e-9)

	f2, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, f2.IDs)

	_, err = tr.Next()
	assert.Equal(t, io.EOF, err)
}

func TestTrajectoryReaderMissingColumns(t *testing.T) {
	var buf bytes.Buffer
	writeFrame(&buf, 0, "id type vx vy vz", []string{"1 1 0 0 0"})
	_, err := NewTrajectoryReader(&buf).Next()
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestMeasureAll(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "system.lammps")
	traj := filepath.Join(dir, "cg-00.lammpstrj")
	require.NoError(t, os.WriteFile(data, []byte(dataFile), 0644))

	var buf bytes.Buffer
	rows := []string{"1 1 1.0 1.0 1.0", "2 1 2.0 1.0 1.0", "3 1 4.0 1.0 1.0"}
	writeFrame(&buf, 0, "id type x y z", rows)
	writeFrame(&buf, 10, "id type x y z", rows)
	require.NoError(t, os.WriteFile(traj, buf.Bytes(), 0644))

	req := Request{
		DataFile:   data,
		Trajectory: traj,
		Tag:        "cg-00",
		OutDir:     dir,
		Pair:       Range{Min: 0.0, Max: 5.0, Bin: 0.5},
		Bond:       Range{Min: 0.0, Max: 5.0, Bin: 0.5},
		Angle:      Range{Min: 0.0, Max: 180.0, Bin: 10.0},
	}
	res, err := NewMeasurer().MeasureAll(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Frames)
	assert.Len(t, res.Pair.R, 10)

	// Non-bonded pairs sit at 2.0 (2-3) and 3.0 (1-3).
	for i, r := range res.Pair.R {
		if math.Abs(r-2.25) < 1e-9 || math.Abs(r-3.25) < 1e-9 {
			assert.Greater(t, res.Pair.G[i], 0.0, "bin at %f", r)
		} else {
			assert.Equal(t, 0.0, res.Pair.G[i], "bin at %f", r)
		}
	}

	// The single bond has length 1.0, so all bond density is in [1.0, 1.5).
	assert.InDelta(t, 2.0, res.Bond.G[2], 1e-9)

	for _, ext := range []string{".rdf", ".bond", ".angle"} {
		_, err := os.Stat(filepath.Join(dir, "cg-00"+ext))
		assert.NoError(t, err, ext)
	}
}

func TestMeasureCanceled(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "system.lammps")
	traj := filepath.Join(dir, "cg-00.lammpstrj")
	require.NoError(t, os.WriteFile(data, []byte(dataFile), 0644))

	var buf bytes.Buffer
	writeFrame(&buf, 0, "id type x y z", []string{"1 1 1 1 1"})
	require.NoError(t, os.WriteFile(traj, buf.Bytes(), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMeasurer().Measure(ctx, Request{
		DataFile: data, Trajectory: traj,
		Pair: Range{0, 5, 0.5}, Bond: Range{0, 5, 0.5}, Angle: Range{0, 180, 1},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
