package study_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tz5/results-engine/study"
	"github.com/tz5/results-engine/tidy"
)

func metaRecord(pid string, payload map[string]any) tidy.RawRecord {
	return tidy.RawRecord{
		Participant: tidy.ParticipantID(pid),
		Section:     "meta",
		Payload:     payload,
	}
}

func backgroundRecord(pid string, payload map[string]any) tidy.RawRecord {
	return tidy.RawRecord{
		Participant: tidy.ParticipantID(pid),
		Section:     "background",
		Payload:     payload,
	}
}

func TestParseOrder(t *testing.T) {
	cases := map[string][]tidy.Condition{
		"CAB":     {"C", "A", "B"},
		"B-A-C":   {"B", "A", "C"},
		"A, C, B": {"A", "C", "B"},
		"xyz":     nil,
		"":        nil,
		"AB":      {"A", "B"}, // caller validates length
	}
	for input, want := range cases {
		assert.Equal(t, want, study.ParseOrder(input), "input %q", input)
	}
}

func TestBuildParticipants_MetaWinsOverBackground(t *testing.T) {
	log := tidy.NewRunLog(nil)
	records := []tidy.RawRecord{
		backgroundRecord("p1", map[string]any{"instrument": "guitar", "years": 5.0}),
		metaRecord("p1", map[string]any{"instrument": "modular synth", "order": "BCA"}),
	}

	participants := study.BuildParticipants(records, log)
	require.Len(t, participants, 1)

	p := participants[0]
	assert.Equal(t, "modular synth", p.Fields["instrument"], "meta is the registration record")
	assert.Equal(t, "5", p.Fields["years"])
	assert.Equal(t, []tidy.Condition{"B", "C", "A"}, p.Order)
}

func TestBuildParticipants_MalformedOrderWarned(t *testing.T) {
	log := tidy.NewRunLog(nil)
	records := []tidy.RawRecord{
		metaRecord("p1", map[string]any{"order": "AB"}),
		metaRecord("p2", map[string]any{"order": "ABC"}),
	}

	participants := study.BuildParticipants(records, log)
	require.Len(t, participants, 2)
	assert.Nil(t, participants[0].Order, "two letters is not a full order")
	assert.NotNil(t, participants[1].Order)
	assert.Equal(t, 1, log.WarningCount(tidy.WarnBadOrder))
}

func TestBuildOrderMap_OneBasedPositions(t *testing.T) {
	orders := study.BuildOrderMap([]study.Participant{
		{ID: "p1", Order: []tidy.Condition{"C", "A", "B"}},
		{ID: "p2"}, // no order known
	})

	assert.Equal(t, 1, orders.Position("p1", tidy.ConditionC))
	assert.Equal(t, 2, orders.Position("p1", tidy.ConditionA))
	assert.Equal(t, 3, orders.Position("p1", tidy.ConditionB))
	assert.Equal(t, 0, orders.Position("p2", tidy.ConditionA))
	assert.Equal(t, 0, orders.Position("p9", tidy.ConditionA))
}

func TestBuildParticipants_SortedByID(t *testing.T) {
	log := tidy.NewRunLog(nil)
	records := []tidy.RawRecord{
		metaRecord("p10", map[string]any{}),
		metaRecord("p02", map[string]any{}),
	}

	participants := study.BuildParticipants(records, log)
	require.Len(t, participants, 2)
	assert.Equal(t, tidy.ParticipantID("p02"), participants[0].ID)
}
