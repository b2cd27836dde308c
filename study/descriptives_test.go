package study_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tz5/results-engine/study"
	"github.com/tz5/results-engine/tidy"
)

func likertRow(pid string, cond tidy.Condition, item string, v int) tidy.LongRow {
	return tidy.LongRow{
		Participant: tidy.ParticipantID(pid),
		Condition:   cond,
		Phase:       tidy.PhasePost,
		Item:        tidy.ItemID(item),
		Value:       tidy.ScoreFromInt(v),
	}
}

func TestBuildItemDescriptives_OddN(t *testing.T) {
	reg, err := study.DefaultRegistry()
	require.NoError(t, err)

	long := []tidy.LongRow{
		likertRow("p1", tidy.ConditionA, "B_1", 2),
		likertRow("p2", tidy.ConditionA, "B_1", 4),
		likertRow("p3", tidy.ConditionA, "B_1", 7),
	}

	out := study.BuildItemDescriptives(long, reg)
	require.Len(t, out, 1)

	d := out[0]
	assert.Equal(t, 3, d.N)
	assert.True(t, d.Median.Equal(decimal.NewFromInt(4)))
	assert.True(t, d.Q1.Equal(decimal.NewFromInt(3)), "0.25*(3-1)=0.5 between 2 and 4")
	assert.True(t, d.Q3.Equal(decimal.RequireFromString("5.5")), "0.75*2=1.5 between 4 and 7")
}

func TestBuildItemDescriptives_EvenN(t *testing.T) {
	reg, err := study.DefaultRegistry()
	require.NoError(t, err)

	long := []tidy.LongRow{
		likertRow("p1", tidy.ConditionB, "B_2", 1),
		likertRow("p2", tidy.ConditionB, "B_2", 2),
		likertRow("p3", tidy.ConditionB, "B_2", 3),
		likertRow("p4", tidy.ConditionB, "B_2", 4),
	}

	out := study.BuildItemDescriptives(long, reg)
	require.Len(t, out, 1)
	assert.True(t, out[0].Median.Equal(decimal.RequireFromString("2.5")))
}

func TestBuildItemDescriptives_SkipsNullsAndOrdersCanonically(t *testing.T) {
	reg, err := study.DefaultRegistry()
	require.NoError(t, err)

	null := tidy.LongRow{
		Participant: "p9", Condition: tidy.ConditionA,
		Phase: tidy.PhasePost, Item: "B_1", Value: tidy.NullScore(),
	}
	long := []tidy.LongRow{
		likertRow("p1", tidy.ConditionA, "B_3", 5),
		likertRow("p1", tidy.ConditionA, "A_1", 6),
		null,
		likertRow("p1", tidy.ConditionA, "B_1", 2),
	}
	long[1].Phase = tidy.PhasePre

	out := study.BuildItemDescriptives(long, reg)
	require.Len(t, out, 3)

	// Canonical instrument order, not input order.
	assert.Equal(t, tidy.ItemID("A_1"), out[0].Item)
	assert.Equal(t, tidy.ItemID("B_1"), out[1].Item)
	assert.Equal(t, tidy.ItemID("B_3"), out[2].Item)

	assert.Equal(t, 1, out[1].N, "the nulled B_1 response contributes nothing")
}

func TestBuildItemDescriptives_SingleValue(t *testing.T) {
	reg, err := study.DefaultRegistry()
	require.NoError(t, err)

	out := study.BuildItemDescriptives([]tidy.LongRow{
		likertRow("p1", tidy.ConditionC, "B_4", 6),
	}, reg)
	require.Len(t, out, 1)
	assert.True(t, out[0].Median.Equal(decimal.NewFromInt(6)))
	assert.True(t, out[0].Q1.Equal(decimal.NewFromInt(6)))
	assert.True(t, out[0].Q3.Equal(decimal.NewFromInt(6)))
}
