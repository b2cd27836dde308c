/*
Package tidy provides the core survey tidy-transform engine.

PURPOSE:
  This package contains study-agnostic types and algorithms for turning raw
  questionnaire session exports into canonical long/wide tables with derived
  composite indices and a missingness audit. Whether the instrument is the
  TZ5 intermediality questionnaire or any other multi-block Likert survey,
  the same engine handles record deduplication, melting, pivoting,
  reverse coding, and completeness accounting.

KEY CONCEPTS IN THIS FILE (types.go):
  - RawRecord: One section submission (immutable, superseded by later saves)
  - Score: A nullable Likert-domain value backed by decimal.Decimal
  - LongRow: One row per observed item response
  - WideRow: One row per (participant, condition) block
  - Participant/Item/Construct IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Raw records are never mutated, only superseded
  2. Precision: Uses decimal.Decimal so composites are byte-stable across runs
  3. Type Safety: Strong typing for IDs prevents mixing participants/items
  4. Re-derivability: Every derived table is a pure function of
     (records, registry) and is rebuilt from scratch on each run

USAGE:
  records, err := tidy.ExtractRecords(doc, runlog)
  long := tidy.NewMelter(reg, orders, runlog).Melt(records)
  wide := tidy.Pivot(long, records, reg)
  tidy.ComputeComposites(wide, reg, runlog)

SEE ALSO:
  - registry.go: Item and construct definitions
  - extract.go: Schema-tolerant ingestion and latest-wins selection
  - composite.go: Reverse coding and composite formulas
*/
package tidy

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SCORE - Nullable numeric response value
// =============================================================================

// Score is a survey response value that may be missing. Missing values are
// first-class: a non-coercible Likert entry becomes a null Score, never a
// zero, so composites cannot silently absorb bad data.
type Score struct {
	Value decimal.Decimal
	Valid bool
}

func NewScore(v decimal.Decimal) Score { return Score{Value: v, Valid: true} }
func ScoreFromInt(n int) Score         { return Score{Value: decimal.NewFromInt(int64(n)), Valid: true} }
func NullScore() Score                 { return Score{} }

// Reversed returns the reverse-coded value on a [min, max] response scale:
// (max + min) - v. Reversing a null Score yields a null Score.
func (s Score) Reversed(scaleMin, scaleMax int) Score {
	if !s.Valid {
		return NullScore()
	}
	span := decimal.NewFromInt(int64(scaleMax + scaleMin))
	return NewScore(span.Sub(s.Value))
}

// String renders the value for CSV output. Null scores render as empty.
func (s Score) String() string {
	if !s.Valid {
		return ""
	}
	return s.Value.String()
}

func (s Score) Equal(o Score) bool {
	if s.Valid != o.Valid {
		return false
	}
	if !s.Valid {
		return true
	}
	return s.Value.Equal(o.Value)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ParticipantID string
type ItemID string
type ConstructID string
type SectionKey string

// Condition is one of the modality-access manipulations a block ran under.
type Condition string

const (
	ConditionA    Condition = "A"
	ConditionB    Condition = "B"
	ConditionC    Condition = "C"
	ConditionDyad Condition = "dyad"
	ConditionNone Condition = ""
)

// BlockConditions is the fixed within-participant condition set. Every
// participant is expected to complete one block per condition.
var BlockConditions = []Condition{ConditionA, ConditionB, ConditionC}

// Phase identifies which questionnaire part a response belongs to.
type Phase string

const (
	PhasePre  Phase = "pre"  // pre-reveal block questionnaire
	PhasePost Phase = "post" // post-reveal block questionnaire
	PhaseEnd  Phase = "end"  // end-of-session questionnaire
	PhaseDyad Phase = "dyad" // dyad session questionnaire
	PhaseNone Phase = ""     // meta/background sections carry no phase
)

// =============================================================================
// RAW RECORD - One section submission
// =============================================================================

// RawRecord is one form save for a (participant, section) pair. Multiple
// saves may share the key; only the latest is authoritative (extract.go).
type RawRecord struct {
	Participant ParticipantID
	Section     SectionKey
	Condition   Condition
	Phase       Phase
	Payload     map[string]any
	SavedAt     time.Time
	HasSavedAt  bool

	// seq is the record's position in the input document, used as the
	// deterministic latest-wins tie-break when timestamps are equal.
	seq int
}

// =============================================================================
// LONG ROW - One observed item response
// =============================================================================

// LongRow is one (participant, condition, phase, item) observation with
// registry metadata attached. The long table is regenerated fully on each
// run; consumers must not depend on row order.
type LongRow struct {
	Participant   ParticipantID
	Condition     Condition
	Phase         Phase
	Item          ItemID
	Value         Score
	ItemLabel     string
	IsReverse     bool
	Constructs    []ConstructID
	BlockPosition int // 1-based position in the participant's order, 0 unknown
	SavedAt       time.Time
	HasSavedAt    bool
}

// =============================================================================
// WIDE ROW - One (participant, condition) block
// =============================================================================

// WideRow is the pivoted form of a block: every canonical item as a column,
// composite indices alongside, and free-text fields carried for audit.
// Raw item values stay unreversed here; reversal happens only inside
// composite formulas.
type WideRow struct {
	Participant   ParticipantID
	Condition     Condition
	BlockPosition int

	Items      map[ItemID]Score
	Composites map[ConstructID]Score

	// Notes holds free-text and multi-select payload fields (aim, strategy,
	// parameter nominations, ...) keyed by item id.
	Notes map[ItemID]string

	SavedAtPre     time.Time
	HasSavedAtPre  bool
	SavedAtPost    time.Time
	HasSavedAtPost bool
}

// Item returns the raw (unreversed) value for an item, null if absent.
func (w *WideRow) Item(id ItemID) Score {
	if s, ok := w.Items[id]; ok {
		return s
	}
	return NullScore()
}

// =============================================================================
// MISSINGNESS - Expected vs observed cells
// =============================================================================

// MissingCell records whether one (participant, condition, item) response
// was expected under the protocol and whether it was observed in the input.
type MissingCell struct {
	Participant ParticipantID
	Condition   Condition
	Item        ItemID
	Expected    bool
	Observed    bool
}

// ItemMissingSummary aggregates completeness for a single item.
type ItemMissingSummary struct {
	Item           ItemID
	Expected       int
	Observed       int
	Missing        int
	PercentMissing decimal.Decimal
}

// ParticipantMissingSummary aggregates completeness for a participant.
type ParticipantMissingSummary struct {
	Participant ParticipantID
	Expected    int
	Observed    int
	Missing     int
}

// BlockMissingSummary aggregates completeness for one block.
type BlockMissingSummary struct {
	Participant   ParticipantID
	Condition     Condition
	Expected      int
	Observed      int
	Missing       int
	FullyObserved bool
}

// MissingnessReport is the auditor's full output: per-cell detail plus the
// aggregates that back any "N x M = K expected blocks, X% missing" claim.
type MissingnessReport struct {
	Cells          []MissingCell
	PerItem        []ItemMissingSummary
	PerParticipant []ParticipantMissingSummary
	PerBlock       []BlockMissingSummary
}

// TotalMissing returns the count of expected-but-unobserved cells.
func (r *MissingnessReport) TotalMissing() int {
	n := 0
	for _, c := range r.Cells {
		if c.Expected && !c.Observed {
			n++
		}
	}
	return n
}
