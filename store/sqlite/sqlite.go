/*
Package sqlite provides an optional SQLite sink for the audit tables.

PURPOSE:
  The CSV set is the canonical published output; this sink additionally
  lands the same tables in a SQLite database for ad-hoc SQL inspection
  (joining long rows against missingness, filtering by participant)
  without loading CSVs into a notebook first.

WRITE MODEL:
  One run writes atomically: the run header and all table rows go into a
  single transaction, so the database never holds a partially-written
  run. Runs are append-only and keyed by run id; re-running the pipeline
  adds a new run rather than mutating an old one, keeping the database a
  faithful log of what each run produced.

KEY TABLES:
  runs:        One row per pipeline run (input hash, counts)
  blocks_long: Long-form item responses per run
  blocks_wide: Wide blocks per run; item/composite/note columns are
               stored as JSON documents since the column set is
               registry-driven, not fixed
  missingness: Expected/observed cells per run

WAL MODE:
  Opened with WAL so a reader poking at the database mid-run is never
  blocked by the writer.

USAGE:
  db, err := sqlite.New("./audit.db")
  if err != nil { ... }
  defer db.Close()
  err = db.WriteRun(runlog, long, wide, missing)

SEE ALSO:
  - pipeline/output.go: Decides when the sink runs
*/
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tz5/results-engine/tidy"
)

// Store is a SQLite-backed audit sink.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database and ensures the schema.
// Use ":memory:" for an in-memory database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id              TEXT PRIMARY KEY,
		started_at          TEXT NOT NULL,
		input_path          TEXT,
		input_sha256        TEXT,
		records_kept        INTEGER NOT NULL,
		dropped_records     INTEGER NOT NULL,
		duplicates_resolved INTEGER NOT NULL,
		warning_count       INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS blocks_long (
		run_id         TEXT NOT NULL REFERENCES runs(run_id),
		participant_id TEXT NOT NULL,
		condition      TEXT NOT NULL,
		phase          TEXT NOT NULL,
		item           TEXT NOT NULL,
		value          TEXT,
		item_label     TEXT,
		is_reverse     INTEGER NOT NULL,
		construct      TEXT,
		block_position INTEGER,
		saved_at       TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_long_run_participant
		ON blocks_long(run_id, participant_id, condition);
	CREATE INDEX IF NOT EXISTS idx_long_run_item
		ON blocks_long(run_id, item);

	CREATE TABLE IF NOT EXISTS blocks_wide (
		run_id         TEXT NOT NULL REFERENCES runs(run_id),
		participant_id TEXT NOT NULL,
		condition      TEXT NOT NULL,
		block_position INTEGER,
		items          TEXT NOT NULL,
		composites     TEXT NOT NULL,
		notes          TEXT NOT NULL,
		PRIMARY KEY (run_id, participant_id, condition)
	);

	CREATE TABLE IF NOT EXISTS missingness (
		run_id         TEXT NOT NULL REFERENCES runs(run_id),
		participant_id TEXT NOT NULL,
		condition      TEXT NOT NULL,
		item_id        TEXT NOT NULL,
		expected       INTEGER NOT NULL,
		observed       INTEGER NOT NULL,
		PRIMARY KEY (run_id, participant_id, condition, item_id)
	);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// WriteRun lands one complete run in a single transaction.
func (s *Store) WriteRun(log *tidy.RunLog, long []tidy.LongRow, wide []tidy.WideRow, missing *tidy.MissingnessReport) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO runs (run_id, started_at, input_path, input_sha256,
			records_kept, dropped_records, duplicates_resolved, warning_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.RunID,
		log.StartedAt.UTC().Format(time.RFC3339),
		log.InputPath,
		log.InputSHA256,
		log.RecordsKept,
		log.DroppedRecords,
		log.DuplicatesResolved,
		len(log.Warnings),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if err := insertLong(tx, log.RunID, long); err != nil {
		return err
	}
	if err := insertWide(tx, log.RunID, wide); err != nil {
		return err
	}
	if err := insertMissing(tx, log.RunID, missing); err != nil {
		return err
	}

	return tx.Commit()
}

func insertLong(tx *sql.Tx, runID string, rows []tidy.LongRow) error {
	stmt, err := tx.Prepare(
		`INSERT INTO blocks_long (run_id, participant_id, condition, phase, item,
			value, item_label, is_reverse, construct, block_position, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		var value any
		if row.Value.Valid {
			value = row.Value.Value.String()
		}
		var savedAt any
		if row.HasSavedAt {
			savedAt = row.SavedAt.UTC().Format(time.RFC3339)
		}
		constructs := ""
		for i, c := range row.Constructs {
			if i > 0 {
				constructs += ";"
			}
			constructs += string(c)
		}
		if _, err := stmt.Exec(
			runID, string(row.Participant), string(row.Condition), string(row.Phase),
			string(row.Item), value, row.ItemLabel, row.IsReverse, constructs,
			nullablePosition(row.BlockPosition), savedAt,
		); err != nil {
			return fmt.Errorf("insert long row: %w", err)
		}
	}
	return nil
}

func insertWide(tx *sql.Tx, runID string, rows []tidy.WideRow) error {
	stmt, err := tx.Prepare(
		`INSERT INTO blocks_wide (run_id, participant_id, condition, block_position,
			items, composites, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		items, err := scoreDoc(itemKeys(row.Items))
		if err != nil {
			return err
		}
		composites, err := scoreDoc(constructKeys(row.Composites))
		if err != nil {
			return err
		}
		notes, err := json.Marshal(noteDoc(row.Notes))
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(
			runID, string(row.Participant), string(row.Condition),
			nullablePosition(row.BlockPosition), string(items), string(composites), string(notes),
		); err != nil {
			return fmt.Errorf("insert wide row: %w", err)
		}
	}
	return nil
}

func insertMissing(tx *sql.Tx, runID string, missing *tidy.MissingnessReport) error {
	stmt, err := tx.Prepare(
		`INSERT INTO missingness (run_id, participant_id, condition, item_id, expected, observed)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range missing.Cells {
		if _, err := stmt.Exec(
			runID, string(c.Participant), string(c.Condition), string(c.Item),
			c.Expected, c.Observed,
		); err != nil {
			return fmt.Errorf("insert missingness cell: %w", err)
		}
	}
	return nil
}

// scoreDoc renders scores as a JSON object; nulls stay JSON null so
// json_extract sees real missing values.
func scoreDoc(scores map[string]tidy.Score) ([]byte, error) {
	doc := make(map[string]*string, len(scores))
	for id, s := range scores {
		if s.Valid {
			v := s.Value.String()
			doc[id] = &v
		} else {
			doc[id] = nil
		}
	}
	return json.Marshal(doc)
}

func itemKeys(m map[tidy.ItemID]tidy.Score) map[string]tidy.Score {
	out := make(map[string]tidy.Score, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func constructKeys(m map[tidy.ConstructID]tidy.Score) map[string]tidy.Score {
	out := make(map[string]tidy.Score, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func noteDoc(m map[tidy.ItemID]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func nullablePosition(p int) any {
	if p == 0 {
		return nil
	}
	return p
}
