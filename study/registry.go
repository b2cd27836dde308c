/*
Package study provides the TZ5 intermediality study's concrete configuration
and study-specific derivations.

PURPOSE:
  The tidy engine is study-agnostic; this package binds it to the actual
  instrument: the A1-A7 pre-reveal items, B1-B12 post-reveal items,
  end-of-session outcomes, the three composite indices, condition labels,
  and the known parameter vocabulary. It also derives the study-specific
  tables that sit outside the core transform: participant overview,
  parameter-influence counts, and per-item descriptives.

CONFIGURATION:
  DefaultRegistry() returns the built-in definitions matching the
  registered analysis plan. A YAML override file (config.go) can replace
  item membership or reversal flags without code changes, which is the
  supported way to resolve the Intermediality membership question if the
  plan is amended.

USAGE:
  reg, err := study.DefaultRegistry()
  orders := study.BuildOrderMap(participants)

SEE ALSO:
  - config.go: YAML registry override
  - order.go: Condition-order parsing and block positions
  - params.go: Parameter-influence nominations
*/
package study

import "github.com/tz5/results-engine/tidy"

// Condition display labels for captions and reports.
var ConditionLabels = map[tidy.Condition]string{
	tidy.ConditionA: "Visual Only",
	tidy.ConditionB: "Audio Only",
	tidy.ConditionC: "Audiovisual",
}

// Construct ids for the three registered composite indices.
const (
	ConstructIntermediality tidy.ConstructID = "Intermediality Index"
	ConstructAgency         tidy.ConstructID = "Agency Index"
	ConstructMismatch       tidy.ConstructID = "Mismatch Index"
)

// DefaultItems returns the instrument's item definitions in canonical
// column order: pre items, pre text fields, post items, post text fields,
// then end-of-session outcomes.
func DefaultItems() []tidy.ItemDefinition {
	likert := func(id, label string, phase tidy.Phase, pol tidy.Polarity) tidy.ItemDefinition {
		return tidy.ItemDefinition{
			ID: tidy.ItemID(id), Label: label, Phase: phase,
			Polarity: pol, Domain: tidy.DomainLikert, ScaleMin: 1, ScaleMax: 7,
		}
	}
	text := func(id, label string, phase tidy.Phase) tidy.ItemDefinition {
		return tidy.ItemDefinition{
			ID: tidy.ItemID(id), Label: label, Phase: phase,
			Polarity: tidy.PolarityPositive, Domain: tidy.DomainFreeText,
		}
	}

	pos := tidy.PolarityPositive
	neg := tidy.PolarityNegative

	return []tidy.ItemDefinition{
		// Part A: pre-reveal block questionnaire.
		likert("A_1", "A1 satisfaction", tidy.PhasePre, pos),
		likert("A_2", "A2 intention clarity", tidy.PhasePre, pos),
		likert("A_3", "A3 steerability", tidy.PhasePre, pos),
		likert("A_4", "A4 interface workable", tidy.PhasePre, pos),
		likert("A_5", "A5 useful surprise", tidy.PhasePre, pos),
		likert("A_6", "A6 frustrating unpredictability", tidy.PhasePre, neg),
		likert("A_7", "A7 others would find interesting", tidy.PhasePre, pos),
		text("aim", "Stated aim for the block", tidy.PhasePre),
		text("strategy", "Stated strategy for the block", tidy.PhasePre),
		text("preset_id", "Preset identifier", tidy.PhasePre),

		// Part B: post-reveal block questionnaire.
		likert("B_1", "B1 same-process", tidy.PhasePost, pos),
		likert("B_2", "B2 balanced modalities", tidy.PhasePost, pos),
		likert("B_3", "B3 coherent/legible relationship", tidy.PhasePost, pos),
		likert("B_4", "B4 constructive interference", tidy.PhasePost, pos),
		likert("B_5", "B5 destructive interference", tidy.PhasePost, neg),
		likert("B_6", "B6 overload", tidy.PhasePost, neg),
		likert("B_7", "B7 expectation match", tidy.PhasePost, pos),
		likert("B_8", "B8 interpretation change", tidy.PhasePost, pos),
		likert("B_9", "B9 plausible causal story", tidy.PhasePost, pos),
		likert("B_10", "B10 system autonomy", tidy.PhasePost, pos),
		likert("B_11", "B11 relied on visual cues", tidy.PhasePost, pos),
		likert("B_12", "B12 relied on theory cues", tidy.PhasePost, pos),
		{
			ID: "param_influence", Label: "Parameters nominated as influential",
			Phase: tidy.PhasePost, Polarity: pos, Domain: tidy.DomainMultiSelect,
		},
		text("param_other", "Other influential parameter", tidy.PhasePost),
		text("expectation_vs_outcome", "Expectation vs outcome notes", tidy.PhasePost),
		text("interference_notes", "Interference notes", tidy.PhasePost),

		// End-of-session outcomes.
		{
			ID: "rank", Label: "Preference rank (1=best)", Phase: tidy.PhaseEnd,
			Polarity: pos, Domain: tidy.DomainRank, ScaleMin: 1, ScaleMax: 3,
		},
		{
			ID: "most_intermedial", Label: "Most intermedial", Phase: tidy.PhaseEnd,
			Polarity: pos, Domain: tidy.DomainConditionChoice,
		},
		{
			ID: "biggest_mismatch", Label: "Biggest mismatch", Phase: tidy.PhaseEnd,
			Polarity: pos, Domain: tidy.DomainConditionChoice,
		},
	}
}

// DefaultConstructs returns the registered composite definitions. B5/B6
// and A6 enter their indices reverse-coded; membership is configuration,
// not code, and a YAML override may redefine it.
func DefaultConstructs() []tidy.ConstructDefinition {
	member := func(id string, reversed bool) tidy.ConstructMember {
		return tidy.ConstructMember{Item: tidy.ItemID(id), Reversed: reversed}
	}
	return []tidy.ConstructDefinition{
		{
			ID:      ConstructIntermediality,
			Formula: tidy.FormulaMean,
			Members: []tidy.ConstructMember{
				member("B_1", false), member("B_2", false), member("B_3", false),
				member("B_4", false), member("B_5", true), member("B_6", true),
			},
			Interpretation: "Higher values indicate stronger intermedial coherence",
		},
		{
			ID:      ConstructAgency,
			Formula: tidy.FormulaMean,
			Members: []tidy.ConstructMember{
				member("A_2", false), member("A_3", false),
				member("A_4", false), member("A_6", true),
			},
			Interpretation: "Higher values indicate stronger perceived agency",
		},
		{
			ID:      ConstructMismatch,
			Formula: tidy.FormulaMean,
			Members: []tidy.ConstructMember{
				member("B_7", false), member("B_8", false),
			},
			Interpretation: "Higher values indicate stronger expectation shifts",
		},
	}
}

// DefaultRegistry builds the built-in registry.
func DefaultRegistry() (*tidy.Registry, error) {
	return tidy.NewRegistry(DefaultItems(), DefaultConstructs())
}
