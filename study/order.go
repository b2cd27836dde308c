/*
order.go - Participant overview and condition-order parsing

PURPOSE:
  Builds the per-participant overview by merging the background and meta
  section payloads, and parses the counterbalanced condition order
  ("CAB", "B-A-C", ...) into 1-based block positions. Positions travel
  onto long and wide rows so order effects stay analyzable.

SEE ALSO:
  - tidy/melt.go: Consumes the order map as block positions
  - registry.go: The rest of the study configuration
*/
package study

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/tz5/results-engine/tidy"
)

// Participant is one row of the participant overview: merged background
// and meta fields, plus the parsed condition order.
type Participant struct {
	ID     tidy.ParticipantID
	Fields map[string]string
	Order  []tidy.Condition
}

var orderLetterRe = regexp.MustCompile(`[ABC]`)

// ParseOrder extracts condition letters from a free-form order string.
// Separators and case noise are ignored; only A/B/C letters count.
func ParseOrder(s string) []tidy.Condition {
	var out []tidy.Condition
	for _, letter := range orderLetterRe.FindAllString(s, -1) {
		out = append(out, tidy.Condition(letter))
	}
	return out
}

// BuildParticipants merges background and meta payloads per participant.
// Meta fields win on key collisions since meta is the registration record.
// A malformed order string (not exactly three letters) is warned, and its
// positions are left unknown.
func BuildParticipants(records []tidy.RawRecord, log *tidy.RunLog) []Participant {
	merged := make(map[tidy.ParticipantID]map[string]string)
	order := make([]tidy.ParticipantID, 0)

	collect := func(section tidy.SectionKey) {
		for _, rec := range records {
			if rec.Section != section {
				continue
			}
			fields, ok := merged[rec.Participant]
			if !ok {
				fields = make(map[string]string)
				merged[rec.Participant] = fields
				order = append(order, rec.Participant)
			}
			for key, raw := range rec.Payload {
				if s := payloadString(raw); s != "" {
					fields[key] = s
				}
			}
		}
	}
	collect("background")
	collect("meta")

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out := make([]Participant, 0, len(order))
	for _, pid := range order {
		p := Participant{ID: pid, Fields: merged[pid]}
		if raw, ok := p.Fields["order"]; ok {
			letters := ParseOrder(raw)
			if len(letters) == len(tidy.BlockConditions) {
				p.Order = letters
			} else {
				log.Warn(tidy.Warning{
					Kind:        tidy.WarnBadOrder,
					Participant: pid,
					Section:     "meta",
					Detail:      fmt.Sprintf("unexpected order value %q", raw),
				})
			}
		}
		out = append(out, p)
	}
	return out
}

// BuildOrderMap converts parsed orders into 1-based block positions.
func BuildOrderMap(participants []Participant) tidy.OrderMap {
	orders := make(tidy.OrderMap, len(participants))
	for _, p := range participants {
		if len(p.Order) == 0 {
			continue
		}
		positions := make(map[tidy.Condition]int, len(p.Order))
		for i, cond := range p.Order {
			positions[cond] = i + 1
		}
		orders[p.ID] = positions
	}
	return orders
}

func payloadString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%v", v)
	case bool:
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}
