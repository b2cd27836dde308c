/*
pivot.go - Wide-form pivoter

PURPOSE:
  Reshapes the long table into one row per (participant, condition) block
  with one column per canonical item. Column membership is uniform across
  the whole dataset and ordered by the registry, not by first-seen order,
  so repeated runs produce byte-identical layouts even when some blocks
  completed fewer items.

EDGE CASES:
  - A block with zero long rows is omitted entirely, not emitted all-null.
    Absence from the wide table is itself a signal; the missingness
    auditor works from the long table directly rather than re-deriving
    completeness from wide-table nulls.
  - Free-text and multi-select payload fields (aim, strategy, parameter
    nominations) are attached as Notes from the record set, since they
    never pass through the long table.

SEE ALSO:
  - composite.go: Adds construct columns to these rows
  - pipeline/output.go: Projects the uniform column layout into CSV
*/
package tidy

import (
	"sort"
	"strconv"
)

type blockKey struct {
	Participant ParticipantID
	Condition   Condition
}

// Pivot groups pre/post long rows into wide blocks and attaches free-text
// notes and section timestamps from the authoritative records. Composites
// are not computed here; see ComputeComposites.
func Pivot(long []LongRow, records []RawRecord, reg *Registry) []WideRow {
	blocks := make(map[blockKey]*WideRow)
	var order []blockKey

	for _, row := range long {
		if row.Phase != PhasePre && row.Phase != PhasePost {
			continue
		}
		key := blockKey{row.Participant, row.Condition}
		w, ok := blocks[key]
		if !ok {
			w = &WideRow{
				Participant: row.Participant,
				Condition:   row.Condition,
				Items:       make(map[ItemID]Score),
				Composites:  make(map[ConstructID]Score),
				Notes:       make(map[ItemID]string),
			}
			blocks[key] = w
			order = append(order, key)
		}
		w.Items[row.Item] = row.Value
		if row.BlockPosition != 0 {
			w.BlockPosition = row.BlockPosition
		}
	}

	attachRecordFields(blocks, records, reg)

	sort.Slice(order, func(i, j int) bool {
		if order[i].Participant != order[j].Participant {
			return order[i].Participant < order[j].Participant
		}
		return order[i].Condition < order[j].Condition
	})

	out := make([]WideRow, 0, len(order))
	for _, key := range order {
		out = append(out, *blocks[key])
	}
	return out
}

// attachRecordFields copies text fields and save timestamps onto existing
// blocks. Blocks absent from the long table stay absent: a record carrying
// only free text does not create a wide row.
func attachRecordFields(blocks map[blockKey]*WideRow, records []RawRecord, reg *Registry) {
	for _, rec := range records {
		if rec.Phase != PhasePre && rec.Phase != PhasePost {
			continue
		}
		w, ok := blocks[blockKey{rec.Participant, rec.Condition}]
		if !ok {
			continue
		}

		if rec.Phase == PhasePre {
			w.SavedAtPre, w.HasSavedAtPre = rec.SavedAt, rec.HasSavedAt
		} else {
			w.SavedAtPost, w.HasSavedAtPost = rec.SavedAt, rec.HasSavedAt
		}

		for _, id := range reg.ItemsForPhase(rec.Phase, false) {
			def, _ := reg.Item(id)
			if def.Domain != DomainFreeText && def.Domain != DomainMultiSelect {
				continue
			}
			if raw, present := rec.Payload[string(id)]; present {
				if text := noteText(raw); text != "" {
					w.Notes[id] = text
				}
			}
		}
	}
}

// noteText renders a free-text or multi-select payload value for the wide
// table. Multi-select lists join with "; " to stay single-column.
func noteText(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case []any:
		out := ""
		for i, e := range v {
			if i > 0 {
				out += "; "
			}
			if s, ok := e.(string); ok {
				out += s
			}
		}
		return out
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
