/*
handlers.go - HTTP handlers for the report API

PURPOSE:
  Serves the published output tables, the run log, and the registry's
  construct documentation to the reporting collaborator. Strictly
  read-only: the server never recomputes or mutates anything; it exposes
  whatever the last successful pipeline run published.

ENDPOINTS:
  GET /api/tables                 List published tables
  GET /api/tables/{name}          One table as CSV
  GET /api/runlog                 The last run's machine-readable log
  GET /api/registry/items         Item documentation
  GET /api/registry/constructs    Construct mapping documentation
  GET /api/health                 Liveness probe

SEE ALSO:
  - server.go: Router wiring
  - pipeline/output.go: Writes what this serves
*/
package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tz5/results-engine/tidy"
)

// Handler serves a published output directory.
type Handler struct {
	outDir   string
	registry *tidy.Registry
}

// NewHandler creates a handler rooted at the pipeline's output directory.
func NewHandler(outDir string, registry *tidy.Registry) *Handler {
	return &Handler{outDir: outDir, registry: registry}
}

// ListTables returns the CSV tables currently published.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(filepath.Join(h.outDir, "tables"))
	if err != nil {
		writeError(w, http.StatusNotFound, "no published tables")
		return
	}
	tables := make([]TableDTO, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		stem := strings.TrimSuffix(name, ".csv")
		tables = append(tables, TableDTO{Name: stem, Path: "/api/tables/" + stem})
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	writeJSON(w, http.StatusOK, tables)
}

// GetTable streams one published CSV. The name is restricted to a single
// path element so the handler can only ever read inside the tables dir.
func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		writeError(w, http.StatusBadRequest, "invalid table name")
		return
	}
	path := filepath.Join(h.outDir, "tables", name+".csv")
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "table not published")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	http.ServeFile(w, r, path)
}

// GetRunLog returns the last published run log.
func (h *Handler) GetRunLog(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(h.outDir, "run_log.json")
	data, err := os.ReadFile(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "no run log published")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ListItems returns item documentation in canonical order.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	out := make([]ItemDTO, 0)
	for _, id := range h.registry.CanonicalItems() {
		def, _ := h.registry.Item(id)
		out = append(out, itemDTO(def))
	}
	writeJSON(w, http.StatusOK, out)
}

// ListConstructs returns the construct mapping documentation.
func (h *Handler) ListConstructs(w http.ResponseWriter, r *http.Request) {
	out := make([]ConstructDTO, 0)
	for _, def := range h.registry.Constructs() {
		out = append(out, constructDTO(def))
	}
	writeJSON(w, http.StatusOK, out)
}

// Health is a liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
