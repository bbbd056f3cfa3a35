package rdf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Frame is one configuration of a LAMMPS trajectory.
type Frame struct {
	Timestep int64
	Box      [3][2]float64
	IDs      []int
	Pos      [][3]float64
}

// Lengths returns the box edge lengths.
func (f *Frame) Lengths() [3]float64 {
	var l [3]float64
	for k := 0; k < 3; k++ {
		l[k] = f.Box[k][1] - f.Box[k][0]
	}
	return l
}

func (f *Frame) Volume() float64 {
	l := f.Lengths()
	return l[0] * l[1] * l[2]
}

// TrajectoryReader reads frames from a LAMMPS dump in text (.lammpstrj)
// format. The ATOMS header must carry an id column and one of the
// coordinate triplets x y z, xu yu zu or xs ys zs.
type TrajectoryReader struct {
	r    *bufio.Reader
	line int
}

func NewTrajectoryReader(r io.Reader) *TrajectoryReader {
	return &TrajectoryReader{r: bufio.NewReader(r)}
}

func (t *TrajectoryReader) readLine() (string, error) {
	l, err := t.r.ReadString('\n')
	if err != nil && !(err == io.EOF && l != "") {
		return "", err
	}
	t.line++
	return strings.TrimSpace(l), nil
}

func (t *TrajectoryReader) expect(prefix string) error {
	l, err := t.readLine()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(l, prefix) {
		return fmt.Errorf("%w: line %d: expected %q, got %q", ErrMalformed, t.line, prefix, l)
	}
	return nil
}

// Next returns the next frame, or io.EOF when the trajectory is exhausted.
func (t *TrajectoryReader) Next() (*Frame, error) {
	// Skip blank lines between frames.
	var head string
	for {
		l, err := t.readLine()
		if err != nil {
			return nil, err
		}
		if l != "" {
			head = l
			break
		}
	}
	if !strings.HasPrefix(head, "ITEM: TIMESTEP") {
		return nil, fmt.Errorf("%w: line %d: expected ITEM: TIMESTEP", ErrMalformed, t.line)
	}

	f := &Frame{}
	l, err := t.readLine()
	if err != nil {
		return nil, err
	}
	if f.Timestep, err = strconv.ParseInt(l, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: timestep: %v", ErrMalformed, err)
	}

	if err := t.expect("ITEM: NUMBER OF ATOMS"); err != nil {
		return nil, err
	}
	l, err = t.readLine()
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(l)
	if err != nil {
		return nil, fmt.Errorf("%w: atom count: %v", ErrMalformed, err)
	}

	if err := t.expect("ITEM: BOX BOUNDS"); err != nil {
		return nil, err
	}
	for k := 0; k < 3; k++ {
		l, err := t.readLine()
		if err != nil {
			return nil, err
		}
		fields := strings.Fields(l)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: line %d: unable to get the size of the box", ErrMalformed, t.line)
		}
		lo, err1 := strconv.ParseFloat(fields[0], 64)
		hi, err2 := strconv.ParseFloat(fields[1], 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%w: line %d: box bounds", ErrMalformed, t.line)
		}
		f.Box[k] = [2]float64{lo, hi}
	}

	l, err = t.readLine()
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(l)
	if len(fields) <= 2 || fields[1] != "ATOMS" {
		return nil, fmt.Errorf("%w: line %d: not enough columns", ErrMalformed, t.line)
	}
	fields = fields[2:] // Omission of ITEM: ATOMS
	idCol, cols, scaled, err := atomColumns(fields)
	if err != nil {
		return nil, err
	}

	lengths := f.Lengths()
	f.IDs = make([]int, n)
	f.Pos = make([][3]float64, n)
	for a := 0; a < n; a++ {
		l, err := t.readLine()
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("%w: truncated frame at timestep %d", ErrMalformed, f.Timestep)
			}
			return nil, err
		}
		vals := strings.Fields(l)
		if len(vals) != len(fields) {
			return nil, fmt.Errorf("%w: line %d: number of columns don't match", ErrMalformed, t.line)
		}
		if f.IDs[a], err = strconv.Atoi(vals[idCol]); err != nil {
			return nil, fmt.Errorf("%w: line %d: atom id: %v", ErrMalformed, t.line, err)
		}
		for k := 0; k < 3; k++ {
			v, err := strconv.ParseFloat(vals[cols[k]], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: coordinate: %v", ErrMalformed, t.line, err)
			}
			if scaled {
				v = f.Box[k][0] + v*lengths[k]
			}
			f.Pos[a][k] = v
		}
	}
	return f, nil
}

func atomColumns(fields []string) (idCol int, cols [3]int, scaled bool, err error) {
	idCol = -1
	found := map[string]int{}
	for k, v := range fields {
		if v == "id" {
			idCol = k
		}
		found[v] = k
	}
	if idCol < 0 {
		err = fmt.Errorf("%w: cannot find the id column", ErrMalformed)
		return
	}
	for _, set := range []struct {
		names  [3]string
		scaled bool
	}{
		{[3]string{"x", "y", "z"}, false},
		{[3]string{"xu", "yu", "zu"}, false},
		{[3]string{"xs", "ys", "zs"}, true},
	} {
		ok := true
		for k, name := range set.names {
			c, has := found[name]
			if !has {
				ok = false
				break
			}
			cols[k] = c
		}
		if ok {
			return idCol, cols, set.scaled, nil
		}
	}
	err = fmt.Errorf("%w: cannot find the columns x y z, xu yu zu or xs ys zs", ErrMalformed)
	return
}
