/*
melt.go - Long-form melter

PURPOSE:
  Expands each authoritative record into one LongRow per observed item
  response, attaching label, polarity-driven reversal flag, construct
  membership, and block position from the registry and order map. The
  long table is the audit backbone: the wide table, the missingness
  report, and every descriptive statistic derive from it or from the
  same record set.

WHAT COUNTS AS OBSERVED:
  A row is emitted only for payload keys actually present in the record.
  Absent items produce no row - absence is the missingness auditor's
  signal, not the melter's. A present-but-garbage Likert value is still
  emitted (value null) so the block remains auditable.

END SECTION:
  The end-of-session questionnaire addresses conditions indirectly:
  rank items arrive as per-condition keys (rank_A, rank_B, rank_C),
  and condition-choice items (most intermedial, biggest mismatch) name
  the chosen condition as their value. Both melt into per-condition rows
  so end outcomes line up with block rows.

SEE ALSO:
  - extract.go: Produces the record set and phase/condition resolution
  - pivot.go: Groups these rows into blocks
  - missing.go: Cross-tabulates these rows against the protocol
*/
package tidy

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// OrderMap gives each participant's 1-based block position per condition,
// parsed from the meta section's order string by the study package.
type OrderMap map[ParticipantID]map[Condition]int

// Position returns the block position, 0 if unknown.
func (o OrderMap) Position(pid ParticipantID, cond Condition) int {
	if m, ok := o[pid]; ok {
		return m[cond]
	}
	return 0
}

// Melter turns authoritative records into long rows.
type Melter struct {
	reg    *Registry
	orders OrderMap
	log    *RunLog
}

func NewMelter(reg *Registry, orders OrderMap, log *RunLog) *Melter {
	return &Melter{reg: reg, orders: orders, log: log}
}

// Melt emits long rows for every block, dyad, and end record. Sections
// without a phase (meta, background, addendum) are not item-bearing and
// are skipped here. Row order follows record order and canonical item
// order, so output is deterministic.
func (m *Melter) Melt(records []RawRecord) []LongRow {
	var rows []LongRow
	for _, rec := range records {
		switch rec.Phase {
		case PhasePre, PhasePost, PhaseDyad:
			rows = append(rows, m.meltBlock(rec)...)
		case PhaseEnd:
			rows = append(rows, m.meltEnd(rec)...)
		}
	}
	return rows
}

// meltBlock handles pre/post/dyad sections: plain item keys, one row per
// present numeric item. Free-text and multi-select items are known to the
// registry but belong to the wide table only.
func (m *Melter) meltBlock(rec RawRecord) []LongRow {
	var rows []LongRow
	claimed := make(map[string]bool)

	for _, id := range m.reg.ItemsForPhase(rec.Phase, false) {
		key := string(id)
		raw, present := rec.Payload[key]
		if !present {
			continue
		}
		claimed[key] = true

		def, _ := m.reg.Item(id)
		if !def.Domain.Numeric() {
			continue
		}
		rows = append(rows, m.row(rec, rec.Condition, id, m.coerce(rec, id, raw)))
	}

	m.warnUnknownKeys(rec, claimed)
	return rows
}

// meltEnd handles the end section's indirect condition addressing.
func (m *Melter) meltEnd(rec RawRecord) []LongRow {
	var rows []LongRow
	claimed := make(map[string]bool)

	for _, id := range m.reg.ItemsForPhase(PhaseEnd, false) {
		def, _ := m.reg.Item(id)
		switch def.Domain {
		case DomainRank:
			for _, cond := range BlockConditions {
				key := fmt.Sprintf("%s_%s", id, cond)
				raw, present := rec.Payload[key]
				if !present {
					continue
				}
				claimed[key] = true
				rows = append(rows, m.row(rec, cond, id, m.coerce(rec, id, raw)))
			}

		case DomainConditionChoice:
			key := string(id)
			raw, present := rec.Payload[key]
			if !present {
				continue
			}
			claimed[key] = true
			chosen, ok := asCondition(raw)
			if !ok {
				m.log.Warn(Warning{
					Kind:        WarnUnknownCondition,
					Participant: rec.Participant,
					Section:     rec.Section,
					Item:        id,
					Detail:      fmt.Sprintf("value %v is not a condition code", raw),
				})
				continue
			}
			// Indicator row: the chosen condition scores 1.
			rows = append(rows, m.row(rec, chosen, id, ScoreFromInt(1)))

		default:
			key := string(id)
			raw, present := rec.Payload[key]
			if !present {
				continue
			}
			claimed[key] = true
			if def.Domain.Numeric() {
				rows = append(rows, m.row(rec, rec.Condition, id, m.coerce(rec, id, raw)))
			}
		}
	}

	m.warnUnknownKeys(rec, claimed)
	return rows
}

func (m *Melter) row(rec RawRecord, cond Condition, id ItemID, value Score) LongRow {
	return LongRow{
		Participant:   rec.Participant,
		Condition:     cond,
		Phase:         rec.Phase,
		Item:          id,
		Value:         value,
		ItemLabel:     m.reg.Label(id),
		IsReverse:     m.reg.IsReversed(id),
		Constructs:    m.reg.ConstructsContaining(id),
		BlockPosition: m.orders.Position(rec.Participant, cond),
		SavedAt:       rec.SavedAt,
		HasSavedAt:    rec.HasSavedAt,
	}
}

// coerce enforces the item's declared integer domain. Failures null the
// value and warn; the row is still emitted for auditing.
func (m *Melter) coerce(rec RawRecord, id ItemID, raw any) Score {
	score, ok := coerceOrdinal(raw, m.reg, id)
	if !ok {
		m.log.Warn(Warning{
			Kind:        WarnNonNumericLikert,
			Participant: rec.Participant,
			Section:     rec.Section,
			Item:        id,
			Detail:      fmt.Sprintf("value %v outside declared domain", raw),
		})
	}
	return score
}

// warnUnknownKeys flags payload keys no registry item claims. The record
// is still processed; only the unknown entries are excluded.
func (m *Melter) warnUnknownKeys(rec RawRecord, claimed map[string]bool) {
	var unknown []string
	for key := range rec.Payload {
		if claimed[key] {
			continue
		}
		if _, known := m.reg.Item(ItemID(key)); known {
			// Known item of another phase placed in this section: tolerated,
			// not emitted, not warned. The exporter has shuffled fields before.
			continue
		}
		unknown = append(unknown, key)
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		m.log.Warn(Warning{
			Kind:        WarnUnknownItem,
			Participant: rec.Participant,
			Section:     rec.Section,
			Item:        ItemID(key),
			Detail:      "payload key has no item definition",
		})
	}
}

// =============================================================================
// VALUE COERCION
// =============================================================================

// coerceOrdinal converts a raw payload value into an integer Score within
// the item's declared scale. Returns (NullScore, true) for absent-like
// values (nil, empty string): missing is not an error. Returns
// (NullScore, false) for garbage: free text in a numeric field, fractional
// numbers, out-of-range integers.
func coerceOrdinal(raw any, reg *Registry, id ItemID) (Score, bool) {
	min, max := reg.Scale(id)

	var n int
	switch v := raw.(type) {
	case nil:
		return NullScore(), true
	case int:
		n = v
	case float64:
		n = int(v)
		if float64(n) != v {
			return NullScore(), false
		}
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return NullScore(), true
		}
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return NullScore(), false
		}
		n = parsed
	default:
		return NullScore(), false
	}

	if n < min || n > max {
		return NullScore(), false
	}
	return ScoreFromInt(n), true
}

func asCondition(raw any) (Condition, bool) {
	s, ok := raw.(string)
	if !ok {
		return ConditionNone, false
	}
	c := Condition(strings.TrimSpace(s))
	for _, known := range BlockConditions {
		if c == known {
			return c, true
		}
	}
	return ConditionNone, false
}
