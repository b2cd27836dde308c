package tidy_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tz5/results-engine/tidy"
)

func wideBlock(items map[string]int) []tidy.WideRow {
	w := tidy.WideRow{
		Participant: "p1",
		Condition:   tidy.ConditionA,
		Items:       make(map[tidy.ItemID]tidy.Score),
		Composites:  make(map[tidy.ConstructID]tidy.Score),
		Notes:       make(map[tidy.ItemID]string),
	}
	for id, v := range items {
		w.Items[tidy.ItemID(id)] = tidy.ScoreFromInt(v)
	}
	return []tidy.WideRow{w}
}

func TestComputeComposites_MeanOfAdjustedValues(t *testing.T) {
	// Coherence = mean(B1, reverse(B5)). B1=3, B5=1 -> mean(3, 7) = 5.
	reg := specRegistry(t)
	log := tidy.NewRunLog(nil)
	rows := wideBlock(map[string]int{
		"B1": 3, "B2": 4, "B3": 4, "B4": 4, "B5": 1, "B6": 4,
	})

	tidy.ComputeComposites(rows, reg, log)
	assert.True(t, rows[0].Composites["Coherence"].Equal(tidy.ScoreFromInt(5)))
}

func TestComputeComposites_MeanMinusMeanSubgroups(t *testing.T) {
	// Intermediality = mean(B1..B4) - mean(rev(B5), rev(B6)).
	// B1..B4 = 7,5,6,6 -> 6. B5=B6=3 -> rev 5,5 -> 5. Result 1.
	reg := specRegistry(t)
	log := tidy.NewRunLog(nil)
	rows := wideBlock(map[string]int{
		"B1": 7, "B2": 5, "B3": 6, "B4": 6, "B5": 3, "B6": 3,
	})

	tidy.ComputeComposites(rows, reg, log)
	assert.True(t, rows[0].Composites["Intermediality"].Equal(tidy.ScoreFromInt(1)))
}

func TestComputeComposites_ExactThirdsNoFloatDrift(t *testing.T) {
	// mean of 1,2,2 is 5/3; decimal arithmetic keeps it printable and
	// comparable without binary float noise.
	items := []tidy.ItemDefinition{
		{ID: "X1", Label: "X1", Phase: tidy.PhasePost, Domain: tidy.DomainLikert},
		{ID: "X2", Label: "X2", Phase: tidy.PhasePost, Domain: tidy.DomainLikert},
		{ID: "X3", Label: "X3", Phase: tidy.PhasePost, Domain: tidy.DomainLikert},
	}
	constructs := []tidy.ConstructDefinition{{
		ID: "Thirds", Formula: tidy.FormulaMean,
		Members: []tidy.ConstructMember{{Item: "X1"}, {Item: "X2"}, {Item: "X3"}},
	}}
	reg, err := tidy.NewRegistry(items, constructs)
	require.NoError(t, err)

	log := tidy.NewRunLog(nil)
	rows := wideBlock(map[string]int{"X1": 1, "X2": 2, "X3": 2})
	tidy.ComputeComposites(rows, reg, log)

	want := decimal.NewFromInt(5).Div(decimal.NewFromInt(3))
	assert.True(t, rows[0].Composites["Thirds"].Value.Equal(want))
}

func TestComputeComposites_WeightedSum(t *testing.T) {
	items := []tidy.ItemDefinition{
		{ID: "X1", Label: "X1", Phase: tidy.PhasePost, Domain: tidy.DomainLikert},
		{ID: "X2", Label: "X2", Phase: tidy.PhasePost, Domain: tidy.DomainLikert},
	}
	constructs := []tidy.ConstructDefinition{{
		ID: "Load", Formula: tidy.FormulaWeightedSum,
		Members: []tidy.ConstructMember{
			{Item: "X1", Weight: decimal.NewFromFloat(0.5)},
			{Item: "X2"}, // zero weight defaults to 1
		},
	}}
	reg, err := tidy.NewRegistry(items, constructs)
	require.NoError(t, err)

	log := tidy.NewRunLog(nil)
	rows := wideBlock(map[string]int{"X1": 4, "X2": 3})
	tidy.ComputeComposites(rows, reg, log)

	// 0.5*4 + 1*3 = 5
	assert.True(t, rows[0].Composites["Load"].Equal(tidy.ScoreFromInt(5)))
}

func TestComputeComposites_NullMemberUndefinesOnlyAffectedConstructs(t *testing.T) {
	reg := specRegistry(t)
	log := tidy.NewRunLog(nil)
	rows := wideBlock(map[string]int{
		"B1": 4, "B3": 4, "B4": 4, "B5": 4, "B6": 4, // B2 absent
	})

	tidy.ComputeComposites(rows, reg, log)

	assert.False(t, rows[0].Composites["Intermediality"].Valid, "B2 is a member")
	assert.True(t, rows[0].Composites["Coherence"].Valid, "B2 is not a member")

	warnings := log.Warnings
	require.Len(t, warnings, 1)
	assert.Equal(t, tidy.WarnUndefinedComposite, warnings[0].Kind)
	assert.Equal(t, tidy.ItemID("B2"), warnings[0].Item, "locator names the missing member")
}

func TestComputeComposites_ExplicitNullCountsAsMissing(t *testing.T) {
	// A garbage response was nulled during melt; the composite treats it
	// the same as an absent response.
	reg := specRegistry(t)
	log := tidy.NewRunLog(nil)
	rows := wideBlock(map[string]int{
		"B1": 4, "B2": 4, "B3": 4, "B4": 4, "B5": 4, "B6": 4,
	})
	rows[0].Items["B6"] = tidy.NullScore()

	tidy.ComputeComposites(rows, reg, log)
	assert.False(t, rows[0].Composites["Intermediality"].Valid)
}
