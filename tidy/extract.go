/*
extract.go - Schema-tolerant record extraction and latest-wins selection

PURPOSE:
  Reads the raw session export and produces exactly one authoritative
  RawRecord per (participant, section) pair. The exporter's shape has
  drifted between sessions, so tolerance is a first-class requirement:
  known top-level shapes are tried in order, per-record field access is
  defensive, and a record that cannot be placed is dropped with a
  warning, never a crash.

ACCEPTED TOP-LEVEL SHAPES:
  1. A flat JSON array of records
  2. An object wrapping the array under "data", "records", or "rows"
  3. An object mapping participant_id to an array of section records
  Anything else is fatal (ErrUnrecognizedShape).

FIELD ALIASES:
  Exports have used several spellings per field; the first match wins:
    participant: participant_id, participantId, participant_code,
                 participantCode, pid, code
    section:     section_key, sectionKey, section, section_id, sectionId,
                 page, step, form
    payload:     payload, data, answers
    timestamp:   updated_at, updatedAt, created_at, createdAt, timestamp,
                 saved_at, savedAt, time (ISO-8601 or epoch seconds)

LATEST-WINS:
  Multiple saves for one (participant, section) key are expected: each
  form save supersedes the previous one. The record with the latest
  timestamp is authoritative; equal or absent timestamps resolve to the
  last record seen in input order, which keeps re-ingestion of the same
  file deterministic and idempotent.

SEE ALSO:
  - melt.go: Consumes the authoritative record set
  - runlog.go: Receives drop warnings and duplicate notices
*/
package tidy

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	participantAliases = []string{"participant_id", "participantId", "participant_code", "participantCode", "pid", "code"}
	sectionAliases     = []string{"section_key", "sectionKey", "section", "section_id", "sectionId", "page", "step", "form"}
	payloadAliases     = []string{"payload", "data", "answers"}
	timestampAliases   = []string{"updated_at", "updatedAt", "created_at", "createdAt", "timestamp", "saved_at", "savedAt", "time"}

	wrapperKeys = []string{"data", "records", "rows"}
)

var blockSectionRe = regexp.MustCompile(`^block_([ABC])_(pre|post)$`)

// SectionPhase resolves the questionnaire phase from a section key.
func SectionPhase(section SectionKey) Phase {
	s := string(section)
	if m := blockSectionRe.FindStringSubmatch(s); m != nil {
		if m[2] == "pre" {
			return PhasePre
		}
		return PhasePost
	}
	if s == "end" {
		return PhaseEnd
	}
	if strings.HasPrefix(s, "dyad") {
		return PhaseDyad
	}
	return PhaseNone
}

// SectionCondition resolves the condition code from a section key.
func SectionCondition(section SectionKey) Condition {
	s := string(section)
	if m := blockSectionRe.FindStringSubmatch(s); m != nil {
		return Condition(m[1])
	}
	if strings.HasPrefix(s, "dyad") {
		return ConditionDyad
	}
	return ConditionNone
}

// =============================================================================
// EXTRACTION
// =============================================================================

// ExtractRecords parses the input document, normalizes its shape, drops
// malformed records with warnings, and resolves duplicates latest-wins.
// The result is sorted by (participant, section) so downstream output is
// independent of input ordering.
func ExtractRecords(doc []byte, log *RunLog) ([]RawRecord, error) {
	var top any
	if err := json.Unmarshal(doc, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	var raw []RawRecord
	seq := 0

	appendRecord := func(v any, fallbackPID string) {
		rec, ok := decodeRecord(v, fallbackPID, log)
		if !ok {
			return
		}
		rec.seq = seq
		seq++
		raw = append(raw, rec)
	}

	switch t := top.(type) {
	case []any:
		for _, v := range t {
			appendRecord(v, "")
		}

	case map[string]any:
		if list, ok := wrappedList(t); ok {
			for _, v := range list {
				appendRecord(v, "")
			}
			break
		}
		if !allValuesAreLists(t) {
			return nil, &ShapeError{Found: "object without record list"}
		}
		// Participant-keyed map. Keys are iterated sorted so the seq
		// tie-break stays deterministic.
		pids := make([]string, 0, len(t))
		for pid := range t {
			pids = append(pids, pid)
		}
		sort.Strings(pids)
		for _, pid := range pids {
			for _, v := range t[pid].([]any) {
				appendRecord(v, pid)
			}
		}

	default:
		return nil, &ShapeError{Found: jsonKind(top)}
	}

	log.RecordsSeen = seq + log.DroppedRecords
	kept := selectLatest(raw, log)
	log.RecordsKept = len(kept)
	return kept, nil
}

// wrappedList unwraps {"data": [...]} and friends.
func wrappedList(obj map[string]any) ([]any, bool) {
	for _, k := range wrapperKeys {
		if v, ok := obj[k]; ok {
			if list, isList := v.([]any); isList {
				return list, true
			}
		}
	}
	return nil, false
}

func allValuesAreLists(obj map[string]any) bool {
	if len(obj) == 0 {
		return false
	}
	for _, v := range obj {
		if _, ok := v.([]any); !ok {
			return false
		}
	}
	return true
}

func jsonKind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return "unknown"
	}
}

// decodeRecord pulls the required fields out of one record object.
// A record missing participant or section, or whose payload is not an
// object, is dropped with a warning.
func decodeRecord(v any, fallbackPID string, log *RunLog) (RawRecord, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		log.Warn(Warning{Kind: WarnDroppedRecord, Detail: "record is not an object"})
		return RawRecord{}, false
	}

	pid := firstString(obj, participantAliases)
	if pid == "" {
		pid = fallbackPID
	}
	section := firstString(obj, sectionAliases)

	if pid == "" || section == "" {
		log.Warn(Warning{
			Kind:        WarnDroppedRecord,
			Participant: ParticipantID(pid),
			Section:     SectionKey(section),
			Detail:      "missing participant_id or section_key",
		})
		return RawRecord{}, false
	}

	var payload map[string]any
	found := false
	for _, k := range payloadAliases {
		if pv, ok := obj[k]; ok {
			payload, ok = pv.(map[string]any)
			if !ok {
				log.Warn(Warning{
					Kind:        WarnDroppedRecord,
					Participant: ParticipantID(pid),
					Section:     SectionKey(section),
					Detail:      "payload is not an object",
				})
				return RawRecord{}, false
			}
			found = true
			break
		}
	}
	if !found {
		payload = map[string]any{}
	}

	rec := RawRecord{
		Participant: ParticipantID(pid),
		Section:     SectionKey(section),
		Condition:   SectionCondition(SectionKey(section)),
		Phase:       SectionPhase(SectionKey(section)),
		Payload:     payload,
	}
	rec.SavedAt, rec.HasSavedAt = recordTimestamp(obj)
	return rec, true
}

func firstString(obj map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			switch s := v.(type) {
			case string:
				if strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			case float64:
				// Some exports carried numeric participant codes.
				return strings.TrimSuffix(fmt.Sprintf("%v", s), ".0")
			}
		}
	}
	return ""
}

// =============================================================================
// TIMESTAMPS
// =============================================================================

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func recordTimestamp(obj map[string]any) (time.Time, bool) {
	for _, k := range timestampAliases {
		v, ok := obj[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			sec := int64(t)
			nsec := int64((t - float64(sec)) * 1e9)
			return time.Unix(sec, nsec).UTC(), true
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				continue
			}
			for _, layout := range timestampLayouts {
				if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
					return ts.UTC(), true
				}
			}
		}
	}
	return time.Time{}, false
}

// =============================================================================
// LATEST-WINS SELECTION
// =============================================================================

type recordKey struct {
	Participant ParticipantID
	Section     SectionKey
}

// selectLatest keeps one record per (participant, section): the one with
// the latest timestamp. An incoming record replaces the held one unless
// both carry timestamps and the incoming one is strictly older. Because
// input order is preserved into seq, equal timestamps resolve last-seen-wins
// for any permutation-stable input.
func selectLatest(records []RawRecord, log *RunLog) []RawRecord {
	latest := make(map[recordKey]RawRecord)
	for _, rec := range records {
		key := recordKey{rec.Participant, rec.Section}
		held, exists := latest[key]
		if !exists {
			latest[key] = rec
			continue
		}
		log.Duplicate(rec.Participant, rec.Section)
		if held.HasSavedAt && rec.HasSavedAt && rec.SavedAt.Before(held.SavedAt) {
			continue
		}
		latest[key] = rec
	}

	out := make([]RawRecord, 0, len(latest))
	for _, rec := range latest {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Participant != out[j].Participant {
			return out[i].Participant < out[j].Participant
		}
		return out[i].Section < out[j].Section
	})
	return out
}

// Participants returns the distinct participant ids across records, sorted.
// Any section counts: a participant who only saved "meta" is still known
// to the missingness auditor.
func Participants(records []RawRecord) []ParticipantID {
	seen := make(map[ParticipantID]bool)
	var out []ParticipantID
	for _, rec := range records {
		if !seen[rec.Participant] {
			seen[rec.Participant] = true
			out = append(out, rec.Participant)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
