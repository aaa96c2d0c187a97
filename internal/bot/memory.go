package bot

import (
	"encoding/json"
	"log/slog"
	"os"
)

// maxRecords bounds the on-disk ring of recent cycles.
const maxRecords = 10

// CycleRecord captures what happened in a single farmhand cycle.
type CycleRecord struct {
	Day       int     `json:"day"`
	Action    string  `json:"action"`
	OK        bool    `json:"ok"`
	Balance   int64   `json:"balance"`
	Demand    float64 `json:"demand"`
	Pressure  string  `json:"pressure"`
	Rationale string  `json:"rationale,omitempty"`
}

// CycleMemory manages a ring of recent farmhand cycle records.
type CycleMemory struct {
	Records []CycleRecord `json:"records"`
}

// LoadMemory reads the memory file from disk. Returns empty memory if the
// file is missing or corrupted.
func LoadMemory(path string) *CycleMemory {
	data, err := os.ReadFile(path)
	if err != nil {
		return &CycleMemory{}
	}
	var mem CycleMemory
	if err := json.Unmarshal(data, &mem); err != nil {
		slog.Warn("farmhand memory corrupted, starting fresh", "path", path, "error", err)
		return &CycleMemory{}
	}
	return &mem
}

// Save writes the memory to disk.
func (m *CycleMemory) Save(path string) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		slog.Error("failed to marshal farmhand memory", "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		slog.Error("failed to write farmhand memory", "path", path, "error", err)
	}
}

// Record adds a cycle record, trimming to maxRecords.
func (m *CycleMemory) Record(r CycleRecord) {
	m.Records = append(m.Records, r)
	if len(m.Records) > maxRecords {
		m.Records = m.Records[len(m.Records)-maxRecords:]
	}
}

// LastFailed reports whether the most recent cycle tried the given action
// and was refused. Used to back off instead of repeating a doomed command.
func (m *CycleMemory) LastFailed(action string) bool {
	if m == nil || len(m.Records) == 0 {
		return false
	}
	last := m.Records[len(m.Records)-1]
	return last.Action == action && !last.OK
}
