package tidy_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tz5/results-engine/tidy"
)

func TestAudit_ExpectedGridIsParticipantsTimesConditionsTimesItems(t *testing.T) {
	// specRegistry has 7 numeric pre+post items. 2 participants x 3
	// conditions x 7 items = 42 expected cells.
	reg := specRegistry(t)
	report := tidy.Audit(nil, []tidy.ParticipantID{"p1", "p2"}, reg)

	require.Len(t, report.Cells, 42)
	assert.Equal(t, 42, report.TotalMissing(), "nothing observed, everything missing")
	require.Len(t, report.PerBlock, 6)
	for _, b := range report.PerBlock {
		assert.Equal(t, 7, b.Expected)
		assert.Equal(t, 7, b.Missing)
		assert.False(t, b.FullyObserved)
	}
}

func TestAudit_ObservedCellsMatchLongRows(t *testing.T) {
	// Every pre/post long row marks exactly its own cell observed, even
	// when its value was nulled by coercion.
	reg := specRegistry(t)
	log := tidy.NewRunLog(nil)
	records := []tidy.RawRecord{
		blockRecord("p1", "block_A_pre", map[string]any{"A1": 5}),
		blockRecord("p1", "block_A_post", map[string]any{"B1": "garbage"}),
	}
	long := tidy.NewMelter(reg, nil, log).Melt(records)
	require.Len(t, long, 2)

	report := tidy.Audit(long, tidy.Participants(records), reg)

	observed := 0
	for _, c := range report.Cells {
		if c.Observed {
			observed++
			assert.True(t, c.Expected)
			assert.Equal(t, tidy.ConditionA, c.Condition)
		}
	}
	assert.Equal(t, len(long), observed, "observed cells reconcile with the long table")
	assert.Equal(t, 3*7-2, report.TotalMissing())
}

func TestAudit_ParticipantKnownOnlyFromMetaStillExpected(t *testing.T) {
	// p2 saved only a background section: no long rows, but the protocol
	// still expected three full blocks from them.
	reg := specRegistry(t)
	log := tidy.NewRunLog(nil)
	records := []tidy.RawRecord{
		blockRecord("p1", "block_A_pre", map[string]any{"A1": 5}),
		blockRecord("p2", "background", map[string]any{"instrument": "cello"}),
	}
	long := tidy.NewMelter(reg, nil, log).Melt(records)

	report := tidy.Audit(long, tidy.Participants(records), reg)

	require.Len(t, report.PerParticipant, 2)
	p2 := report.PerParticipant[1]
	assert.Equal(t, tidy.ParticipantID("p2"), p2.Participant)
	assert.Equal(t, 21, p2.Expected)
	assert.Equal(t, 21, p2.Missing)
}

func TestAudit_FullyObservedBlock(t *testing.T) {
	reg := specRegistry(t)
	log := tidy.NewRunLog(nil)
	records := []tidy.RawRecord{
		blockRecord("p1", "block_A_pre", map[string]any{"A1": 5}),
		blockRecord("p1", "block_A_post", map[string]any{
			"B1": 4, "B2": 4, "B3": 4, "B4": 4, "B5": 4, "B6": 4,
		}),
	}
	long := tidy.NewMelter(reg, nil, log).Melt(records)
	report := tidy.Audit(long, []tidy.ParticipantID{"p1"}, reg)

	require.Len(t, report.PerBlock, 3)
	assert.True(t, report.PerBlock[0].FullyObserved, "block A complete")
	assert.False(t, report.PerBlock[1].FullyObserved, "block B never saved")
}

func TestAudit_PercentMissingPerItem(t *testing.T) {
	// A1 observed in 1 of 3 expected cells -> 66.67%ish, exactly 200/3.
	reg := specRegistry(t)
	log := tidy.NewRunLog(nil)
	records := []tidy.RawRecord{
		blockRecord("p1", "block_A_pre", map[string]any{"A1": 5}),
	}
	long := tidy.NewMelter(reg, nil, log).Melt(records)
	report := tidy.Audit(long, []tidy.ParticipantID{"p1"}, reg)

	require.NotEmpty(t, report.PerItem)
	a1 := report.PerItem[0]
	require.Equal(t, tidy.ItemID("A1"), a1.Item)
	assert.Equal(t, 3, a1.Expected)
	assert.Equal(t, 2, a1.Missing)

	want := decimal.NewFromInt(200).Div(decimal.NewFromInt(3))
	assert.True(t, a1.PercentMissing.Equal(want))
}

func TestAudit_UnexpectedObservationsReportedNotSilentlyDropped(t *testing.T) {
	// A long row for an item the protocol does not expect in blocks (here:
	// manufactured directly) still reconciles into the cell set.
	reg := specRegistry(t)
	long := []tidy.LongRow{{
		Participant: "p1", Condition: tidy.ConditionDyad,
		Phase: tidy.PhasePre, Item: "A1", Value: tidy.ScoreFromInt(3),
	}}

	report := tidy.Audit(long, []tidy.ParticipantID{"p1"}, reg)

	var extras []tidy.MissingCell
	for _, c := range report.Cells {
		if !c.Expected {
			extras = append(extras, c)
		}
	}
	require.Len(t, extras, 1)
	assert.Equal(t, tidy.ConditionDyad, extras[0].Condition)
	assert.True(t, extras[0].Observed)
}
