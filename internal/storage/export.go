package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	RunIDs     []string          `json:"run_ids"`
	Iterations []IterationRecord `json:"iterations"`
	Tables     []Table           `json:"tables,omitempty"`
}

// Export writes every record as indented JSON, with the pair tables when
// withTables is set.
func (s *Store) Export(w io.Writer, withTables bool) error {
	recs, err := s.List()
	if err != nil {
		return err
	}

	data := ExportData{Iterations: recs}
	seen := make(map[string]bool)
	for _, r := range recs {
		if !seen[r.RunID] {
			seen[r.RunID] = true
			data.RunIDs = append(data.RunIDs, r.RunID)
		}
		if withTables {
			t, err := s.LoadTable(r.Iteration)
			if err != nil {
				return err
			}
			data.Tables = append(data.Tables, t)
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
