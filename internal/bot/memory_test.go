package bot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTripAndTrim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")

	mem := LoadMemory(path)
	assert.Empty(t, mem.Records, "missing file starts fresh")

	for day := 1; day <= maxRecords+3; day++ {
		mem.Record(CycleRecord{Day: day, Action: "harvest", OK: true})
	}
	mem.Save(path)

	loaded := LoadMemory(path)
	require.Len(t, loaded.Records, maxRecords)
	assert.Equal(t, 4, loaded.Records[0].Day, "oldest records trimmed")
	assert.Equal(t, maxRecords+3, loaded.Records[maxRecords-1].Day)
}

func TestLoadMemoryToleratesCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	mem := LoadMemory(path)
	assert.Empty(t, mem.Records)
}

func TestLastFailedMatchesOnlyMostRecent(t *testing.T) {
	mem := &CycleMemory{}
	assert.False(t, mem.LastFailed("buy_seed"))

	mem.Record(CycleRecord{Action: "buy_seed", OK: false})
	assert.True(t, mem.LastFailed("buy_seed"))
	assert.False(t, mem.LastFailed("buy_animal"))

	mem.Record(CycleRecord{Action: "harvest", OK: true})
	assert.False(t, mem.LastFailed("buy_seed"), "a newer cycle clears the back-off")
}
