package pairtable

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WriteLAMMPS writes e as a LAMMPS pair_style table section named key.
// Rows are numbered from 0.
func WriteLAMMPS(w io.Writer, key string, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	n := e.Len()
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n", key)
	fmt.Fprintf(bw, "N %d R %f %f\n\n", n, e.Distance[0], e.Distance[n-1])
	for i := 0; i < n; i++ {
		fmt.Fprintf(bw, "%d %.6f %.10g %.10g\n", i, e.Distance[i], e.Energy[i], e.Force[i])
	}
	return bw.Flush()
}

// ReadLAMMPS reads the first table section of r and returns its key.
func ReadLAMMPS(r io.Reader) (string, Entry, error) {
	sc := bufio.NewScanner(r)
	var key string
	n := -1
	var e Entry
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		switch {
		case key == "":
			key = fields[0]
		case n < 0:
			if len(fields) < 2 || fields[0] != "N" {
				return "", Entry{}, fmt.Errorf("pairtable: line %d: expected N parameter line", line)
			}
			v, err := strconv.Atoi(fields[1])
			if err != nil || v < 2 {
				return "", Entry{}, fmt.Errorf("pairtable: line %d: bad point count %q", line, fields[1])
			}
			n = v
			e = Entry{
				Distance: make([]float64, 0, n),
				Force:    make([]float64, 0, n),
				Energy:   make([]float64, 0, n),
			}
		default:
			if len(fields) < 4 {
				return "", Entry{}, fmt.Errorf("pairtable: line %d: expected 4 columns", line)
			}
			var vals [3]float64
			for j := range vals {
				v, err := strconv.ParseFloat(fields[j+1], 64)
				if err != nil {
					return "", Entry{}, fmt.Errorf("pairtable: line %d: %w", line, err)
				}
				vals[j] = v
			}
			e.Distance = append(e.Distance, vals[0])
			e.Energy = append(e.Energy, vals[1])
			e.Force = append(e.Force, vals[2])
			if e.Len() == n {
				return key, e, e.Validate()
			}
		}
	}
	if err := sc.Err(); err != nil {
		return "", Entry{}, err
	}
	return "", Entry{}, fmt.Errorf("pairtable: truncated table %q: %d of %d rows", key, e.Len(), n)
}

// WriteFile writes the table atomically through a temporary file in the
// target directory.
func WriteFile(path, key string, e Entry) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if err := WriteLAMMPS(tmp, key, e); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func ReadFile(path string) (string, Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", Entry{}, err
	}
	defer f.Close()
	return ReadLAMMPS(f)
}
