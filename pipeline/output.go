/*
output.go - CSV projection and atomic publishing

PURPOSE:
  Projects the in-memory result tables into the published CSV set and the
  machine-readable run log. All tables are staged in a scratch directory
  and renamed into place in one step, so consumers either see the
  complete new table set or the complete old one, never a mixture.

COLUMN LAYOUTS:
  Column order is fixed by the registry's canonical item order, never by
  first-seen order, so re-runs are byte-identical. Null scores render as
  empty cells; booleans as true/false; timestamps as RFC 3339 UTC.

SEE ALSO:
  - pipeline.go: Produces the Result this serializes
  - store/sqlite: The optional database sink fed from the same Result
*/
package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/tz5/results-engine/store/sqlite"
	"github.com/tz5/results-engine/study"
	"github.com/tz5/results-engine/tidy"
)

// Published table names (basename without extension).
const (
	TableLong         = "Audit_blocks_long"
	TableWide         = "Audit_blocks_wide"
	TableMissingness  = "Audit_missingness_report"
	TableMissSummary  = "Audit_missingness_summary"
	TableDescriptives = "Audit_item_descriptives"
	TableParamCounts  = "Audit_param_influence_counts"
	TableParticipants = "Audit_participants"

	RunLogName = "run_log.json"
	TablesDir  = "tables"
)

// Publish writes every output table under opts.OutDir/tables plus the run
// log at opts.OutDir/run_log.json. Nothing is visible at the final paths
// until the whole set has been written.
func Publish(opts Options, res *Result) error {
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return err
	}
	stage, err := os.MkdirTemp(opts.OutDir, ".stage-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(stage)

	if err := writeTables(stage, opts, res); err != nil {
		return err
	}

	final := filepath.Join(opts.OutDir, TablesDir)
	if err := os.RemoveAll(final); err != nil {
		return err
	}
	if err := os.Rename(stage, final); err != nil {
		return err
	}

	if opts.DBPath != "" {
		if err := sinkToDatabase(opts.DBPath, res); err != nil {
			return err
		}
	}

	return writeRunLog(filepath.Join(opts.OutDir, RunLogName), res.Log)
}

func writeTables(dir string, opts Options, res *Result) error {
	tables := map[string]func(*csv.Writer, *Result) error{
		TableLong:        writeLong,
		TableWide:        writeWide,
		TableMissingness: writeMissingness,
		TableMissSummary: writeMissingnessSummary,
	}
	if opts.PaperMode {
		tables[TableDescriptives] = writeDescriptives
		tables[TableParamCounts] = writeParamCounts
		tables[TableParticipants] = writeParticipants
	}

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := writeCSV(filepath.Join(dir, name+".csv"), res, tables[name]); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func writeCSV(path string, res *Result, fill func(*csv.Writer, *Result) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := fill(w, res); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeRunLog(path string, log *tidy.RunLog) error {
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// =============================================================================
// TABLE PROJECTIONS
// =============================================================================

func writeLong(w *csv.Writer, res *Result) error {
	if err := w.Write([]string{
		"participant_id", "condition", "phase", "item", "value",
		"item_label", "is_reverse", "construct", "block_position", "timestamp",
	}); err != nil {
		return err
	}
	for _, row := range res.Long {
		constructs := ""
		for i, c := range row.Constructs {
			if i > 0 {
				constructs += ";"
			}
			constructs += string(c)
		}
		if err := w.Write([]string{
			string(row.Participant),
			string(row.Condition),
			string(row.Phase),
			string(row.Item),
			row.Value.String(),
			row.ItemLabel,
			strconv.FormatBool(row.IsReverse),
			constructs,
			position(row.BlockPosition),
			timestamp(row.SavedAt, row.HasSavedAt),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeWide(w *csv.Writer, res *Result) error {
	reg := res.Registry
	items := append(reg.ItemsForPhase(tidy.PhasePre, true), reg.ItemsForPhase(tidy.PhasePost, true)...)
	notes := noteItems(reg)
	constructs := reg.Constructs()

	header := []string{"participant_id", "condition", "condition_label", "block_position"}
	for _, id := range items {
		header = append(header, string(id))
	}
	for _, c := range constructs {
		header = append(header, string(c.ID))
	}
	for _, id := range notes {
		header = append(header, string(id))
	}
	header = append(header, "timestamp_pre", "timestamp_post")
	if err := w.Write(header); err != nil {
		return err
	}

	for _, row := range res.Wide {
		rec := []string{
			string(row.Participant),
			string(row.Condition),
			study.ConditionLabels[row.Condition],
			position(row.BlockPosition),
		}
		for _, id := range items {
			rec = append(rec, row.Item(id).String())
		}
		for _, c := range constructs {
			rec = append(rec, row.Composites[c.ID].String())
		}
		for _, id := range notes {
			rec = append(rec, row.Notes[id])
		}
		rec = append(rec,
			timestamp(row.SavedAtPre, row.HasSavedAtPre),
			timestamp(row.SavedAtPost, row.HasSavedAtPost),
		)
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func writeMissingness(w *csv.Writer, res *Result) error {
	if err := w.Write([]string{"participant_id", "condition", "item_id", "expected", "observed"}); err != nil {
		return err
	}
	for _, c := range res.Missing.Cells {
		if err := w.Write([]string{
			string(c.Participant),
			string(c.Condition),
			string(c.Item),
			strconv.FormatBool(c.Expected),
			strconv.FormatBool(c.Observed),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeMissingnessSummary(w *csv.Writer, res *Result) error {
	if err := w.Write([]string{
		"scope", "id", "condition", "expected", "observed", "missing",
		"percent_missing", "fully_observed",
	}); err != nil {
		return err
	}
	for _, s := range res.Missing.PerItem {
		if err := w.Write([]string{
			"item", string(s.Item), "",
			strconv.Itoa(s.Expected), strconv.Itoa(s.Observed), strconv.Itoa(s.Missing),
			s.PercentMissing.String(), "",
		}); err != nil {
			return err
		}
	}
	for _, s := range res.Missing.PerParticipant {
		if err := w.Write([]string{
			"participant", string(s.Participant), "",
			strconv.Itoa(s.Expected), strconv.Itoa(s.Observed), strconv.Itoa(s.Missing),
			"", "",
		}); err != nil {
			return err
		}
	}
	for _, s := range res.Missing.PerBlock {
		if err := w.Write([]string{
			"block", string(s.Participant), string(s.Condition),
			strconv.Itoa(s.Expected), strconv.Itoa(s.Observed), strconv.Itoa(s.Missing),
			"", strconv.FormatBool(s.FullyObserved),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeDescriptives(w *csv.Writer, res *Result) error {
	if err := w.Write([]string{"item", "condition", "n", "median", "q1", "q3"}); err != nil {
		return err
	}
	for _, d := range res.Descriptives {
		if err := w.Write([]string{
			string(d.Item), string(d.Condition), strconv.Itoa(d.N),
			d.Median.String(), d.Q1.String(), d.Q3.String(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeParamCounts(w *csv.Writer, res *Result) error {
	if err := w.Write([]string{"condition", "parameter", "count", "percent"}); err != nil {
		return err
	}
	for _, c := range res.ParamCounts {
		if err := w.Write([]string{
			string(c.Condition), c.Parameter, strconv.Itoa(c.Count), c.Percent.String(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeParticipants(w *csv.Writer, res *Result) error {
	// Column set is the sorted union of observed field keys, so the
	// overview survives questionnaire drift without code changes.
	fieldSet := make(map[string]bool)
	for _, p := range res.Participants {
		for k := range p.Fields {
			fieldSet[k] = true
		}
	}
	fields := make([]string, 0, len(fieldSet))
	for k := range fieldSet {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	header := append([]string{"participant_id"}, fields...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, p := range res.Participants {
		rec := []string{string(p.ID)}
		for _, k := range fields {
			rec = append(rec, p.Fields[k])
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SINK + RENDER HELPERS
// =============================================================================

func sinkToDatabase(path string, res *Result) error {
	db, err := sqlite.New(path)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.WriteRun(res.Log, res.Long, res.Wide, res.Missing)
}

func noteItems(reg *tidy.Registry) []tidy.ItemID {
	var out []tidy.ItemID
	for _, id := range reg.CanonicalItems() {
		def, _ := reg.Item(id)
		if def.Domain == tidy.DomainFreeText || def.Domain == tidy.DomainMultiSelect {
			out = append(out, id)
		}
	}
	return out
}

func position(p int) string {
	if p == 0 {
		return ""
	}
	return strconv.Itoa(p)
}

func timestamp(t time.Time, ok bool) string {
	if !ok {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
