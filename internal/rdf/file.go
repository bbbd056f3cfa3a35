package rdf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Read parses whitespace separated "r g" rows. Blank lines and lines starting
// with '#' are skipped; extra columns are ignored.
func Read(r io.Reader) (Sample, error) {
	var s Sample
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return Sample{}, fmt.Errorf("%w: line %d: expected 2 columns", ErrMalformed, line)
		}
		rv, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return Sample{}, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		gv, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Sample{}, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		s.R = append(s.R, rv)
		s.G = append(s.G, gv)
	}
	if err := sc.Err(); err != nil {
		return Sample{}, err
	}
	if err := s.Validate(); err != nil {
		return Sample{}, err
	}
	return s, nil
}

// Write emits s in the format accepted by Read.
func Write(w io.Writer, s Sample) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# r g(r)")
	for i := range s.R {
		if _, err := fmt.Fprintf(bw, "%.6f %.8f\n", s.R[i], s.G[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func ReadFile(path string) (Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return Sample{}, err
	}
	defer f.Close()

	s, err := Read(f)
	if err != nil {
		return Sample{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func WriteFile(path string, s Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadAverage reads every file matching the glob patterns and averages them.
func ReadAverage(patterns ...string) (Sample, []string, error) {
	var paths []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return Sample{}, nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return Sample{}, nil, fmt.Errorf("%w: no files match %v", ErrEmpty, patterns)
	}
	sort.Strings(paths)

	samples := make([]Sample, len(paths))
	var g errgroup.Group
	g.SetLimit(8)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			s, err := ReadFile(p)
			if err != nil {
				return err
			}
			samples[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Sample{}, nil, err
	}
	avg, err := Average(samples...)
	if err != nil {
		return Sample{}, nil, err
	}
	return avg, paths, nil
}
