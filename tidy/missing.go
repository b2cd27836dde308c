/*
missing.go - Missingness auditor

PURPOSE:
  Cross-tabulates expected against observed (participant x condition x
  item) cells. The protocol expects every participant to complete all
  three block conditions with every pre- and post-phase item; the audit
  is the authoritative source for completeness claims ("N participants x
  M conditions = K expected blocks, X% missing"), which must be derived,
  never hand-typed.

INPUTS:
  Works from the long table and the full known-participant set - not from
  the wide table's nulls, which would make completeness circularly depend
  on pivot behavior. A participant known only from a meta section still
  generates expected cells, so an entirely absent block is visible.

OBSERVED:
  A cell is observed iff a long row exists for its key. A row whose value
  was nulled by coercion still counts as observed: the response happened,
  it was just unusable, and the non-numeric warning accounts for it.

SEE ALSO:
  - melt.go: Produces the observed rows
  - types.go: MissingCell and the summary types
*/
package tidy

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type cellKey struct {
	Participant ParticipantID
	Condition   Condition
	Item        ItemID
}

// Audit produces the full missingness report for pre/post block cells.
// participants is the complete known set (from extraction), not just
// those with block rows. Cell order is deterministic: participant,
// condition, then canonical item order.
func Audit(long []LongRow, participants []ParticipantID, reg *Registry) *MissingnessReport {
	observed := make(map[cellKey]bool)
	for _, row := range long {
		if row.Phase != PhasePre && row.Phase != PhasePost {
			continue
		}
		observed[cellKey{row.Participant, row.Condition, row.Item}] = true
	}

	items := append(reg.ItemsForPhase(PhasePre, true), reg.ItemsForPhase(PhasePost, true)...)

	report := &MissingnessReport{}
	itemAgg := make(map[ItemID]*ItemMissingSummary)
	pidAgg := make(map[ParticipantID]*ParticipantMissingSummary)

	for _, pid := range participants {
		for _, cond := range BlockConditions {
			block := BlockMissingSummary{Participant: pid, Condition: cond}
			for _, item := range items {
				cell := MissingCell{
					Participant: pid,
					Condition:   cond,
					Item:        item,
					Expected:    true,
					Observed:    observed[cellKey{pid, cond, item}],
				}
				report.Cells = append(report.Cells, cell)
				tally(&block, itemAgg, pidAgg, cell)
			}
			block.FullyObserved = block.Missing == 0
			report.PerBlock = append(report.PerBlock, block)
		}
	}

	// Observed-but-unexpected rows (dyad items, unexpected conditions that
	// slipped through) are reported too, expected=false, so the cell set
	// reconciles exactly with the long table.
	extras := make([]MissingCell, 0)
	expected := make(map[cellKey]bool, len(report.Cells))
	for _, c := range report.Cells {
		expected[cellKey{c.Participant, c.Condition, c.Item}] = true
	}
	for key := range observed {
		if !expected[key] {
			extras = append(extras, MissingCell{
				Participant: key.Participant,
				Condition:   key.Condition,
				Item:        key.Item,
				Observed:    true,
			})
		}
	}
	sort.Slice(extras, func(i, j int) bool {
		if extras[i].Participant != extras[j].Participant {
			return extras[i].Participant < extras[j].Participant
		}
		if extras[i].Condition != extras[j].Condition {
			return extras[i].Condition < extras[j].Condition
		}
		return extras[i].Item < extras[j].Item
	})
	report.Cells = append(report.Cells, extras...)

	report.PerItem = itemSummaries(items, itemAgg)
	report.PerParticipant = participantSummaries(participants, pidAgg)
	return report
}

func tally(block *BlockMissingSummary, itemAgg map[ItemID]*ItemMissingSummary, pidAgg map[ParticipantID]*ParticipantMissingSummary, cell MissingCell) {
	block.Expected++
	ia, ok := itemAgg[cell.Item]
	if !ok {
		ia = &ItemMissingSummary{Item: cell.Item}
		itemAgg[cell.Item] = ia
	}
	pa, ok := pidAgg[cell.Participant]
	if !ok {
		pa = &ParticipantMissingSummary{Participant: cell.Participant}
		pidAgg[cell.Participant] = pa
	}
	ia.Expected++
	pa.Expected++
	if cell.Observed {
		block.Observed++
		ia.Observed++
		pa.Observed++
	} else {
		block.Missing++
		ia.Missing++
		pa.Missing++
	}
}

func itemSummaries(order []ItemID, agg map[ItemID]*ItemMissingSummary) []ItemMissingSummary {
	out := make([]ItemMissingSummary, 0, len(order))
	for _, id := range order {
		s, ok := agg[id]
		if !ok {
			continue
		}
		if s.Expected > 0 {
			s.PercentMissing = decimal.NewFromInt(int64(s.Missing)).
				Mul(hundred).
				Div(decimal.NewFromInt(int64(s.Expected)))
		}
		out = append(out, *s)
	}
	return out
}

func participantSummaries(order []ParticipantID, agg map[ParticipantID]*ParticipantMissingSummary) []ParticipantMissingSummary {
	out := make([]ParticipantMissingSummary, 0, len(order))
	for _, pid := range order {
		if s, ok := agg[pid]; ok {
			out = append(out, *s)
		}
	}
	return out
}
