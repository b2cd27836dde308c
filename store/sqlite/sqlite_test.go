package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tz5/results-engine/tidy"
)

func memoryStore(t *testing.T) *Store {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func sampleRunLog() *tidy.RunLog {
	log := tidy.NewRunLog(nil)
	log.InputPath = "sessions.json"
	log.InputSHA256 = "ab12"
	log.RecordsKept = 9
	log.DuplicatesResolved = 1
	return log
}

func TestWriteRun_RoundTrip(t *testing.T) {
	db := memoryStore(t)
	log := sampleRunLog()

	saved := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	long := []tidy.LongRow{
		{
			Participant: "p1", Condition: tidy.ConditionA, Phase: tidy.PhasePre,
			Item: "A_1", Value: tidy.ScoreFromInt(6), ItemLabel: "A1 satisfaction",
			Constructs: []tidy.ConstructID{"Agency Index"}, BlockPosition: 1,
			SavedAt: saved, HasSavedAt: true,
		},
		{
			Participant: "p1", Condition: tidy.ConditionA, Phase: tidy.PhasePost,
			Item: "B_5", Value: tidy.NullScore(), IsReverse: true,
		},
	}
	wide := []tidy.WideRow{{
		Participant: "p1", Condition: tidy.ConditionA, BlockPosition: 1,
		Items:      map[tidy.ItemID]tidy.Score{"A_1": tidy.ScoreFromInt(6)},
		Composites: map[tidy.ConstructID]tidy.Score{"Agency Index": tidy.NullScore()},
		Notes:      map[tidy.ItemID]string{"aim": "slow drones"},
	}}
	missing := &tidy.MissingnessReport{Cells: []tidy.MissingCell{
		{Participant: "p1", Condition: tidy.ConditionA, Item: "A_1", Expected: true, Observed: true},
		{Participant: "p1", Condition: tidy.ConditionB, Item: "A_1", Expected: true},
	}}

	require.NoError(t, db.WriteRun(log, long, wide, missing))

	assert.Equal(t, 1, countRows(t, db, "runs"))
	assert.Equal(t, 2, countRows(t, db, "blocks_long"))
	assert.Equal(t, 1, countRows(t, db, "blocks_wide"))
	assert.Equal(t, 2, countRows(t, db, "missingness"))

	// Null score lands as SQL NULL, not the empty string.
	var nulls int
	require.NoError(t, db.db.QueryRow(
		"SELECT COUNT(*) FROM blocks_long WHERE value IS NULL").Scan(&nulls))
	assert.Equal(t, 1, nulls)

	// Wide item columns round-trip through the JSON document.
	var items string
	require.NoError(t, db.db.QueryRow(
		"SELECT items FROM blocks_wide WHERE participant_id = 'p1'").Scan(&items))
	assert.JSONEq(t, `{"A_1":"6"}`, items)
}

func TestWriteRun_AppendOnlyAcrossRuns(t *testing.T) {
	db := memoryStore(t)

	require.NoError(t, db.WriteRun(sampleRunLog(), nil, nil, &tidy.MissingnessReport{}))
	require.NoError(t, db.WriteRun(sampleRunLog(), nil, nil, &tidy.MissingnessReport{}))

	assert.Equal(t, 2, countRows(t, db, "runs"), "re-running appends a new run, never mutates")
}

func TestWriteRun_DuplicateRunIDRejected(t *testing.T) {
	db := memoryStore(t)
	log := sampleRunLog()

	require.NoError(t, db.WriteRun(log, nil, nil, &tidy.MissingnessReport{}))
	err := db.WriteRun(log, nil, nil, &tidy.MissingnessReport{})
	assert.Error(t, err, "run_id is the primary key")
}
