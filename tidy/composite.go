/*
composite.go - Reverse coding and composite index computation

PURPOSE:
  Computes every construct column of the wide table from item columns.
  Reversal is applied to a shadow value used only inside the formula;
  the raw item columns stay unreversed for transparency, so an auditor
  can re-derive any composite by hand from the published wide table.

REVERSAL:
  On a [min, max] response scale, reversing v yields (max + min) - v.
  For the usual 1..7 items that is 8 - v: a raw 6 enters a reversed
  member as 2.

UNDEFINED POLICY:
  A construct is fully observed or undefined. If any member item is null
  or absent for a block, the composite for that block is null - no
  partial-mean imputation, which would silently bias composites computed
  from incomplete blocks.

RE-DERIVABILITY:
  Composite columns are recomputed from item columns on every run and are
  never stored independently. Changing a construct's membership or
  reversal flags in the registry changes every report deterministically
  without touching raw data.

SEE ALSO:
  - registry.go: Formula and member definitions
  - pivot.go: Produces the rows this augments
*/
package tidy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ComputeComposites fills the Composites map of every wide row in place.
// Undefined composites are recorded as warnings with a locator.
func ComputeComposites(rows []WideRow, reg *Registry, log *RunLog) {
	for i := range rows {
		for _, c := range reg.Constructs() {
			score, missing := computeConstruct(&rows[i], c, reg)
			rows[i].Composites[c.ID] = score
			if missing != "" {
				log.Warn(Warning{
					Kind:        WarnUndefinedComposite,
					Participant: rows[i].Participant,
					Item:        missing,
					Detail: fmt.Sprintf("construct %s undefined for condition %s: member missing",
						c.ID, rows[i].Condition),
				})
			}
		}
	}
}

// computeConstruct evaluates one construct for one block. Returns the
// composite and, when undefined, the first missing member's id.
func computeConstruct(w *WideRow, c ConstructDefinition, reg *Registry) (Score, ItemID) {
	adjusted := make([]decimal.Decimal, len(c.Members))
	for i, m := range c.Members {
		v := w.Item(m.Item)
		if !v.Valid {
			return NullScore(), m.Item
		}
		if m.Reversed {
			min, max := reg.Scale(m.Item)
			v = v.Reversed(min, max)
		}
		adjusted[i] = v.Value
	}

	switch c.Formula {
	case FormulaMeanMinusMean:
		return meanMinusMean(c.Members, adjusted), ""
	case FormulaWeightedSum:
		return weightedSum(c.Members, adjusted), ""
	default:
		return mean(adjusted), ""
	}
}

func mean(values []decimal.Decimal) Score {
	if len(values) == 0 {
		return NullScore()
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return NewScore(sum.Div(decimal.NewFromInt(int64(len(values)))))
}

// meanMinusMean: mean of the forward subgroup minus mean of the negated
// subgroup. An empty subgroup contributes zero, matching the degenerate
// one-sided definition.
func meanMinusMean(members []ConstructMember, adjusted []decimal.Decimal) Score {
	var forward, negated []decimal.Decimal
	for i, m := range members {
		if m.Negated {
			negated = append(negated, adjusted[i])
		} else {
			forward = append(forward, adjusted[i])
		}
	}
	result := decimal.Zero
	if s := mean(forward); s.Valid {
		result = s.Value
	}
	if s := mean(negated); s.Valid {
		result = result.Sub(s.Value)
	}
	return NewScore(result)
}

func weightedSum(members []ConstructMember, adjusted []decimal.Decimal) Score {
	sum := decimal.Zero
	for i, m := range members {
		weight := m.Weight
		if weight.IsZero() {
			weight = decimal.NewFromInt(1)
		}
		sum = sum.Add(adjusted[i].Mul(weight))
	}
	return NewScore(sum)
}
