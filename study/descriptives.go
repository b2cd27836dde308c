/*
descriptives.go - Per-item descriptive statistics

PURPOSE:
  Median and quartile summaries per item and condition, feeding the
  Likert summary tables. Quantiles use linear interpolation between
  order statistics (the same convention the registered tables used),
  computed in decimal so repeated runs are byte-stable.

SEE ALSO:
  - tidy/melt.go: Produces the long rows summarized here
*/
package study

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tz5/results-engine/tidy"
)

// ItemDescriptive summarizes one item under one condition.
type ItemDescriptive struct {
	Item      tidy.ItemID
	Condition tidy.Condition
	N         int
	Median    decimal.Decimal
	Q1        decimal.Decimal
	Q3        decimal.Decimal
}

// BuildItemDescriptives computes N/median/Q1/Q3 per (item, condition) over
// non-null pre/post values. Output order: canonical item order, then
// condition.
func BuildItemDescriptives(long []tidy.LongRow, reg *tidy.Registry) []ItemDescriptive {
	type key struct {
		Item      tidy.ItemID
		Condition tidy.Condition
	}
	values := make(map[key][]decimal.Decimal)

	for _, row := range long {
		if row.Phase != tidy.PhasePre && row.Phase != tidy.PhasePost {
			continue
		}
		if !row.Value.Valid {
			continue
		}
		k := key{row.Item, row.Condition}
		values[k] = append(values[k], row.Value.Value)
	}

	items := append(reg.ItemsForPhase(tidy.PhasePre, true), reg.ItemsForPhase(tidy.PhasePost, true)...)

	var out []ItemDescriptive
	for _, item := range items {
		for _, cond := range tidy.BlockConditions {
			vals, ok := values[key{item, cond}]
			if !ok {
				continue
			}
			sort.Slice(vals, func(i, j int) bool { return vals[i].LessThan(vals[j]) })
			out = append(out, ItemDescriptive{
				Item:      item,
				Condition: cond,
				N:         len(vals),
				Median:    quantile(vals, decimal.NewFromFloat(0.5)),
				Q1:        quantile(vals, decimal.NewFromFloat(0.25)),
				Q3:        quantile(vals, decimal.NewFromFloat(0.75)),
			})
		}
	}
	return out
}

// quantile interpolates linearly between order statistics of a sorted,
// non-empty slice: position p*(n-1), fractional part weighting the upper
// neighbor.
func quantile(sorted []decimal.Decimal, p decimal.Decimal) decimal.Decimal {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p.Mul(decimal.NewFromInt(int64(n - 1)))
	idx := pos.IntPart()
	frac := pos.Sub(decimal.NewFromInt(idx))
	lower := sorted[idx]
	if frac.IsZero() || int(idx)+1 >= n {
		return lower
	}
	upper := sorted[idx+1]
	return lower.Add(upper.Sub(lower).Mul(frac))
}
