package study_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tz5/results-engine/study"
	"github.com/tz5/results-engine/tidy"
)

func TestDefaultRegistry_Valid(t *testing.T) {
	reg, err := study.DefaultRegistry()
	require.NoError(t, err, "the built-in instrument must always validate")
	assert.Len(t, reg.Constructs(), 3)
}

func TestDefaultRegistry_RegisteredReversals(t *testing.T) {
	// The analysis plan reverse-codes B5, B6 (Intermediality) and A6
	// (Agency). No other item enters any index reversed.
	reg, err := study.DefaultRegistry()
	require.NoError(t, err)

	reversed := map[tidy.ItemID]bool{"A_6": true, "B_5": true, "B_6": true}
	for _, id := range reg.CanonicalItems() {
		assert.Equal(t, reversed[id], reg.IsReversed(id), "item %s", id)
	}
}

func TestDefaultRegistry_NegativePolarityTracksReversal(t *testing.T) {
	// Every reverse-coded member is also a negatively-worded item; the two
	// encodings must not drift apart when the instrument is edited.
	reg, err := study.DefaultRegistry()
	require.NoError(t, err)

	for _, id := range reg.CanonicalItems() {
		if reg.IsReversed(id) {
			assert.Equal(t, tidy.PolarityNegative, reg.PolarityOf(id),
				"reversed item %s should be negatively worded", id)
		}
	}
}

func TestDefaultRegistry_PhaseItemCounts(t *testing.T) {
	reg, err := study.DefaultRegistry()
	require.NoError(t, err)

	assert.Len(t, reg.ItemsForPhase(tidy.PhasePre, true), 7, "A1..A7")
	assert.Len(t, reg.ItemsForPhase(tidy.PhasePost, true), 12, "B1..B12")
	assert.Len(t, reg.ItemsForPhase(tidy.PhasePre, false), 10, "plus aim/strategy/preset_id")
}

func TestDefaultRegistry_ConstructMembership(t *testing.T) {
	reg, err := study.DefaultRegistry()
	require.NoError(t, err)

	inter, ok := reg.Construct(study.ConstructIntermediality)
	require.True(t, ok)
	assert.Len(t, inter.Members, 6)

	agency, ok := reg.Construct(study.ConstructAgency)
	require.True(t, ok)
	assert.Len(t, agency.Members, 4)

	assert.ElementsMatch(t,
		[]tidy.ConstructID{study.ConstructMismatch},
		reg.ConstructsContaining("B_7"))
}

func TestConditionLabels_CoverAllBlockConditions(t *testing.T) {
	for _, cond := range tidy.BlockConditions {
		assert.NotEmpty(t, study.ConditionLabels[cond], "condition %s", cond)
	}
}
