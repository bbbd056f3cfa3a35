package pairtable

import (
	"fmt"
	"sync"
)

// Entry is one sampled pair interaction: force and energy over an ascending
// distance grid. Energy is zero at the largest distance.
type Entry struct {
	Distance []float64
	Force    []float64
	Energy   []float64
}

func (e Entry) Len() int { return len(e.Distance) }

func (e Entry) Validate() error {
	if len(e.Distance) == 0 || len(e.Distance) != len(e.Force) || len(e.Distance) != len(e.Energy) {
		return fmt.Errorf("%w: %d/%d/%d", ErrLengthMismatch, len(e.Distance), len(e.Force), len(e.Energy))
	}
	for i := 1; i < len(e.Distance); i++ {
		if e.Distance[i] <= e.Distance[i-1] {
			return fmt.Errorf("pairtable: distance not ascending at index %d", i)
		}
	}
	return nil
}

func (e Entry) Clone() Entry {
	c := Entry{
		Distance: make([]float64, len(e.Distance)),
		Force:    make([]float64, len(e.Force)),
		Energy:   make([]float64, len(e.Energy)),
	}
	copy(c.Distance, e.Distance)
	copy(c.Force, e.Force)
	copy(c.Energy, e.Energy)
	return c
}

// Table is the append-only history of entries, indexed by iteration. Entry 0
// is the reference table derived from the target RDF. Readers always get
// copies, so no caller can observe a partially replaced entry.
type Table struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewTable() *Table {
	return &Table{}
}

// Append stores a copy of e and returns its index.
func (t *Table) Append(e Entry) (int, error) {
	if err := e.Validate(); err != nil {
		return -1, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e.Clone())
	return len(t.entries) - 1, nil
}

// Replace overwrites the entry at index i with a copy of e.
func (t *Table) Replace(i int, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.entries) {
		return fmt.Errorf("%w: %d (have %d)", ErrNoEntry, i, len(t.entries))
	}
	t.entries[i] = e.Clone()
	return nil
}

// Truncate drops every entry from index n on. Entry 0 cannot be dropped.
func (t *Table) Truncate(n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n < 1 || n > len(t.entries) {
		return fmt.Errorf("%w: truncate to %d (have %d)", ErrNoEntry, n, len(t.entries))
	}
	t.entries = t.entries[:n]
	return nil
}

func (t *Table) At(i int) (Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 || i >= len(t.entries) {
		return Entry{}, fmt.Errorf("%w: %d (have %d)", ErrNoEntry, i, len(t.entries))
	}
	return t.entries[i].Clone(), nil
}

func (t *Table) Latest() (Entry, error) {
	t.mu.RLock()
	n := len(t.entries)
	t.mu.RUnlock()
	return t.At(n - 1)
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
