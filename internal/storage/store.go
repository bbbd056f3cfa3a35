package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const iterPrefix = "iteration-"

// Store keeps one directory per iteration under baseDir, each holding
// metadata.json and the pair table as table.csv.
type Store struct {
	baseDir string
	runID   string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, runID: uuid.NewString()}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunID identifies the controller run that wrote a record.
func (s *Store) RunID() string { return s.runID }

type IterationRecord struct {
	RunID      string    `json:"run_id"`
	Iteration  int       `json:"iteration"`
	Timestamp  time.Time `json:"timestamp"`
	Table      string    `json:"table"`
	Trajectory string    `json:"trajectory"`
	Image      string    `json:"image,omitempty"`
	Skipped    bool      `json:"skipped"`
	Deviation  float64   `json:"deviation"`
	// CompareFailed marks a record whose Deviation could not be computed.
	CompareFailed bool    `json:"compare_failed,omitempty"`
	Sigma         float64 `json:"sigma"`
	Epsilon       float64 `json:"epsilon"`
}

// Table is the CSV form of one pair table entry.
type Table struct {
	Distance []float64 `json:"distance"`
	Force    []float64 `json:"force"`
	Energy   []float64 `json:"energy"`
}

func iterDir(i int) string {
	return fmt.Sprintf("%s%d", iterPrefix, i)
}

// Save writes rec and its table, replacing an earlier record of the same
// iteration.
func (s *Store) Save(rec IterationRecord, table Table) error {
	if len(table.Distance) != len(table.Force) || len(table.Distance) != len(table.Energy) {
		return fmt.Errorf("storage: table columns differ in length")
	}
	dir := filepath.Join(s.baseDir, iterDir(rec.Iteration))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if rec.RunID == "" {
		rec.RunID = s.runID
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	metaFile, err := os.Create(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return err
	}

	csvFile, err := os.Create(filepath.Join(dir, "table.csv"))
	if err != nil {
		return err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"r", "force", "energy"}); err != nil {
		return err
	}
	for i := range table.Distance {
		row := []string{
			strconv.FormatFloat(table.Distance[i], 'g', -1, 64),
			strconv.FormatFloat(table.Force[i], 'g', -1, 64),
			strconv.FormatFloat(table.Energy[i], 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable record sorted by iteration.
func (s *Store) List() ([]IterationRecord, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []IterationRecord{}, nil
		}
		return nil, err
	}

	recs := make([]IterationRecord, 0)
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), iterPrefix) {
			continue
		}
		i, err := strconv.Atoi(strings.TrimPrefix(entry.Name(), iterPrefix))
		if err != nil {
			continue
		}
		rec, err := s.Load(i)
		if err != nil {
			continue
		}
		recs = append(recs, *rec)
	}

	sort.Slice(recs, func(a, b int) bool { return recs[a].Iteration < recs[b].Iteration })
	return recs, nil
}

func (s *Store) Load(iteration int) (*IterationRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, iterDir(iteration), "metadata.json"))
	if err != nil {
		return nil, err
	}

	var rec IterationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) LoadTable(iteration int) (Table, error) {
	file, err := os.Open(filepath.Join(s.baseDir, iterDir(iteration), "table.csv"))
	if err != nil {
		return Table{}, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = 3
	records, err := r.ReadAll()
	if err != nil {
		return Table{}, err
	}

	var t Table
	for i := 1; i < len(records); i++ {
		var vals [3]float64
		for j, field := range records[i] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return Table{}, fmt.Errorf("storage: table.csv row %d: %w", i, err)
			}
			vals[j] = v
		}
		t.Distance = append(t.Distance, vals[0])
		t.Force = append(t.Force, vals[1])
		t.Energy = append(t.Energy, vals[2])
	}
	return t, nil
}
