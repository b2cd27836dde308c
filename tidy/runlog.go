/*
runlog.go - Machine-readable run log

PURPOSE:
  Every recoverable problem encountered during a run is accumulated here
  instead of raised: the pipeline's promise is that per-record damage
  never aborts a run, it only gets documented. The finished log carries
  enough detail (participant, section, item) to locate every skipped or
  adjusted record, plus the input hash and final row counts that back
  reproducibility claims in the paper.

SEVERITIES:
  - Warning:       Record excluded or value nulled; counted per kind
  - Informational: Expected events kept for traceability (latest-wins
                   duplicate resolution), not counted as warnings

MIRRORING:
  Warnings are simultaneously emitted to the structured logger (zap) so an
  interactive run shows problems as they happen, and written into the log
  document so a later reader can audit the run without console scrollback.

SEE ALSO:
  - extract.go, melt.go, composite.go: Producers of warnings
  - pipeline/output.go: Serializes the finished log to run_log.json
*/
package tidy

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// WARNING TAXONOMY
// =============================================================================

type WarningKind string

const (
	WarnDroppedRecord      WarningKind = "dropped_record"       // missing pid/section or bad payload
	WarnUnknownItem        WarningKind = "unknown_item"         // payload key with no registry entry
	WarnUnknownCondition   WarningKind = "unknown_condition"    // condition code outside the protocol
	WarnNonNumericLikert   WarningKind = "non_numeric_likert"   // declared-numeric field with garbage
	WarnUndefinedComposite WarningKind = "undefined_composite"  // construct left null for a block
	WarnBadOrder           WarningKind = "bad_order"            // malformed condition-order string
	WarnUnknownParameter   WarningKind = "unknown_parameter"    // nomination outside the known set
	WarnBlockCountMismatch WarningKind = "block_count_mismatch" // expected vs actual block totals
)

// Warning locates one recoverable problem.
type Warning struct {
	Kind        WarningKind   `json:"kind"`
	Participant ParticipantID `json:"participant_id,omitempty"`
	Section     SectionKey    `json:"section_key,omitempty"`
	Item        ItemID        `json:"item_key,omitempty"`
	Detail      string        `json:"detail,omitempty"`
}

// =============================================================================
// RUN LOG
// =============================================================================

// RunLog accumulates everything a run wants to say about itself. The
// pipeline is single-threaded, so no locking is needed.
type RunLog struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`

	InputPath   string `json:"input_path,omitempty"`
	InputSHA256 string `json:"input_sha256,omitempty"`

	RecordsSeen        int `json:"records_seen"`
	RecordsKept        int `json:"records_kept"`
	DroppedRecords     int `json:"dropped_records"`
	DuplicatesResolved int `json:"duplicates_resolved"`
	Participants       int `json:"participants"`
	MissingCells       int `json:"missing_cells"`

	Warnings      []Warning           `json:"warnings,omitempty"`
	WarningCounts map[WarningKind]int `json:"warning_counts,omitempty"`
	TableRows     map[string]int      `json:"table_rows,omitempty"`

	Fatal string `json:"fatal,omitempty"`

	logger *zap.Logger
}

// NewRunLog creates a run log mirroring onto the given logger.
// A nil logger is replaced with a no-op one.
func NewRunLog(logger *zap.Logger) *RunLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunLog{
		RunID:         uuid.NewString(),
		StartedAt:     time.Now().UTC(),
		WarningCounts: make(map[WarningKind]int),
		TableRows:     make(map[string]int),
		logger:        logger,
	}
}

// Warn records a recoverable problem and mirrors it to the logger.
func (l *RunLog) Warn(w Warning) {
	l.Warnings = append(l.Warnings, w)
	l.WarningCounts[w.Kind]++
	if w.Kind == WarnDroppedRecord {
		l.DroppedRecords++
	}
	l.logger.Warn(string(w.Kind),
		zap.String("participant_id", string(w.Participant)),
		zap.String("section_key", string(w.Section)),
		zap.String("item_key", string(w.Item)),
		zap.String("detail", w.Detail),
	)
}

// Duplicate records a latest-wins resolution. Expected behavior, logged at
// a lower severity for traceability only.
func (l *RunLog) Duplicate(pid ParticipantID, section SectionKey) {
	l.DuplicatesResolved++
	l.logger.Info("duplicate_resolved",
		zap.String("participant_id", string(pid)),
		zap.String("section_key", string(section)),
	)
}

// CountRows records the final row count of an output table.
func (l *RunLog) CountRows(table string, n int) {
	l.TableRows[table] = n
	l.logger.Info("table_rows", zap.String("table", table), zap.Int("rows", n))
}

// WarningCount returns how many warnings of a kind were recorded.
func (l *RunLog) WarningCount(kind WarningKind) int {
	return l.WarningCounts[kind]
}
