/*
params.go - Parameter-influence nominations

PURPOSE:
  The post-reveal questionnaire asks which synthesis parameters the
  participant felt were influential. The field arrives in several shapes
  (a proper list, a bracketed string, a comma-separated string); this
  normalizes all of them, counts nominations per condition, and flags
  nominations outside the known parameter vocabulary so questionnaire
  drift is caught rather than silently tabulated.

SEE ALSO:
  - registry.go: param_influence / param_other item definitions
  - tidy/pivot.go: Carries the raw field into the wide table's notes
*/
package study

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tz5/results-engine/tidy"
)

// KnownParams is the synthesis-parameter vocabulary offered by the
// instrument. Nominations outside this set (other than the free-text
// "Other") are warned.
var KnownParams = []string{
	"Rate",
	"Loop On/Off",
	"Loop Length",
	"Life Length",
	"Min Population",
	"Max Population",
	"Neighbourhood (Local/Extended)",
	"Min Neighbours",
	"Max Neighbours",
	"Scale",
}

// ParamCount is one (condition, parameter) nomination tally.
type ParamCount struct {
	Condition tidy.Condition
	Parameter string
	Count     int
	Percent   decimal.Decimal // of all nominations within the condition
}

// NormalizeParamList accepts the field's observed shapes and returns the
// cleaned nomination list.
func NormalizeParamList(raw string) []string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		s = strings.ReplaceAll(s, "'", "")
		s = strings.ReplaceAll(s, `"`, "")
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// BuildParamCounts tallies nominations per condition from the wide table.
// A non-empty param_other field counts as an "Other" nomination. Output is
// ordered by condition then parameter name.
func BuildParamCounts(wide []tidy.WideRow) []ParamCount {
	type key struct {
		Condition tidy.Condition
		Parameter string
	}
	counts := make(map[key]int)
	totals := make(map[tidy.Condition]int)

	for _, w := range wide {
		params := NormalizeParamList(w.Notes["param_influence"])
		if strings.TrimSpace(w.Notes["param_other"]) != "" {
			params = append(params, "Other")
		}
		for _, p := range params {
			counts[key{w.Condition, p}]++
			totals[w.Condition]++
		}
	}

	keys := make([]key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Condition != keys[j].Condition {
			return keys[i].Condition < keys[j].Condition
		}
		return keys[i].Parameter < keys[j].Parameter
	})

	out := make([]ParamCount, 0, len(keys))
	for _, k := range keys {
		pc := ParamCount{Condition: k.Condition, Parameter: k.Parameter, Count: counts[k]}
		if total := totals[k.Condition]; total > 0 {
			pc.Percent = decimal.NewFromInt(int64(pc.Count)).
				Mul(decimal.NewFromInt(100)).
				Div(decimal.NewFromInt(int64(total)))
		}
		out = append(out, pc)
	}
	return out
}

// FindUnknownParams returns nominated parameter names outside the known
// vocabulary, sorted, "Other" excluded.
func FindUnknownParams(counts []ParamCount) []string {
	known := make(map[string]bool, len(KnownParams)+1)
	for _, p := range KnownParams {
		known[p] = true
	}
	known["Other"] = true

	seen := make(map[string]bool)
	var out []string
	for _, c := range counts {
		if !known[c.Parameter] && !seen[c.Parameter] {
			seen[c.Parameter] = true
			out = append(out, c.Parameter)
		}
	}
	sort.Strings(out)
	return out
}
