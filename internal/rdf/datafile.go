package rdf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Topology is the part of a LAMMPS data file needed to separate bonded from
// non-bonded pairs.
type Topology struct {
	Atoms int
	Bonds [][2]int
}

// ReadTopology parses the atom count and Bonds section of a LAMMPS data file.
func ReadTopology(r io.Reader) (*Topology, error) {
	top := &Topology{}
	nbonds := 0
	sc := bufio.NewScanner(r)
	inBonds := false
	for sc.Scan() {
		text := sc.Text()
		if i := strings.Index(text, "#"); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		if inBonds {
			if len(fields) < 4 {
				inBonds = false
			} else {
				a, err1 := strconv.Atoi(fields[2])
				b, err2 := strconv.Atoi(fields[3])
				if err1 != nil || err2 != nil {
					// A new section header ends the bond list.
					inBonds = false
				} else {
					top.Bonds = append(top.Bonds, [2]int{a, b})
					if len(top.Bonds) == nbonds {
						inBonds = false
					}
					continue
				}
			}
		}

		switch {
		case len(fields) == 2 && fields[1] == "atoms":
			n, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("%w: atom count: %v", ErrMalformed, err)
			}
			top.Atoms = n
		case len(fields) == 2 && fields[1] == "bonds":
			n, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("%w: bond count: %v", ErrMalformed, err)
			}
			nbonds = n
		case fields[0] == "Bonds":
			inBonds = nbonds > 0
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(top.Bonds) != nbonds {
		return nil, fmt.Errorf("%w: header declares %d bonds, found %d", ErrMalformed, nbonds, len(top.Bonds))
	}
	return top, nil
}

func ReadTopologyFile(path string) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	top, err := ReadTopology(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return top, nil
}

type pairKey struct{ a, b int }

func newPairKey(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

func (t *Topology) bondSet() map[pairKey]bool {
	set := make(map[pairKey]bool, len(t.Bonds))
	for _, b := range t.Bonds {
		set[newPairKey(b[0], b[1])] = true
	}
	return set
}

// angles returns every (end, center, end) triplet formed by two bonds
// sharing an atom.
func (t *Topology) angles() [][3]int {
	neighbors := make(map[int][]int)
	for _, b := range t.Bonds {
		neighbors[b[0]] = append(neighbors[b[0]], b[1])
		neighbors[b[1]] = append(neighbors[b[1]], b[0])
	}
	var out [][3]int
	for center, ns := range neighbors {
		for i := 0; i < len(ns); i++ {
			for j := i + 1; j < len(ns); j++ {
				out = append(out, [3]int{ns[i], center, ns[j]})
			}
		}
	}
	return out
}
