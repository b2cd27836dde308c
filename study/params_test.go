package study_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tz5/results-engine/study"
	"github.com/tz5/results-engine/tidy"
)

func TestNormalizeParamList_ObservedShapes(t *testing.T) {
	cases := map[string][]string{
		"Rate, Scale":             {"Rate", "Scale"},
		"['Rate', 'Loop On/Off']": {"Rate", "Loop On/Off"},
		`["Rate","Scale"]`:        {"Rate", "Scale"},
		"  Rate  ":                {"Rate"},
		"":                        nil,
		"[]":                      nil,
	}
	for input, want := range cases {
		assert.Equal(t, want, study.NormalizeParamList(input), "input %q", input)
	}
}

func noteRow(cond tidy.Condition, notes map[tidy.ItemID]string) tidy.WideRow {
	return tidy.WideRow{Participant: "p1", Condition: cond, Notes: notes}
}

func TestBuildParamCounts_TalliesPerCondition(t *testing.T) {
	wide := []tidy.WideRow{
		noteRow(tidy.ConditionA, map[tidy.ItemID]string{"param_influence": "Rate, Scale"}),
		noteRow(tidy.ConditionA, map[tidy.ItemID]string{"param_influence": "Rate"}),
		noteRow(tidy.ConditionB, map[tidy.ItemID]string{"param_influence": "Scale"}),
	}

	counts := study.BuildParamCounts(wide)
	require.Len(t, counts, 3)

	// Ordered by condition then parameter.
	assert.Equal(t, "Rate", counts[0].Parameter)
	assert.Equal(t, tidy.ConditionA, counts[0].Condition)
	assert.Equal(t, 2, counts[0].Count)

	// Rate is 2 of 3 condition-A nominations.
	want := decimal.NewFromInt(200).Div(decimal.NewFromInt(3))
	assert.True(t, counts[0].Percent.Equal(want))

	assert.Equal(t, "Scale", counts[2].Parameter)
	assert.Equal(t, tidy.ConditionB, counts[2].Condition)
}

func TestBuildParamCounts_ParamOtherCountsAsOther(t *testing.T) {
	wide := []tidy.WideRow{
		noteRow(tidy.ConditionC, map[tidy.ItemID]string{
			"param_influence": "Rate",
			"param_other":     "the room acoustics",
		}),
	}

	counts := study.BuildParamCounts(wide)
	require.Len(t, counts, 2)
	assert.Equal(t, "Other", counts[0].Parameter)
	assert.Equal(t, 1, counts[0].Count)
}

func TestFindUnknownParams(t *testing.T) {
	counts := []study.ParamCount{
		{Condition: tidy.ConditionA, Parameter: "Rate"},
		{Condition: tidy.ConditionA, Parameter: "Reverb"},
		{Condition: tidy.ConditionB, Parameter: "Reverb"},
		{Condition: tidy.ConditionB, Parameter: "Other"},
		{Condition: tidy.ConditionC, Parameter: "Delay"},
	}

	unknown := study.FindUnknownParams(counts)
	assert.Equal(t, []string{"Delay", "Reverb"}, unknown,
		"sorted, deduplicated, vocabulary and Other excluded")
}
