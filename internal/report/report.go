// Package report writes pipeline and per-pass summaries to files, grounded
// on the teacher's internal/output.WriteSnapshotJSON/writeJSON: same
// os.MkdirAll + json.NewEncoder(f).SetIndent pattern, same file-per-kind
// layout.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"threadtear/internal/diag"
	"threadtear/internal/passes"
	"threadtear/internal/universe"
)

// Summary is the top-level pipeline run report written to report.json
// (spec.md §4.1's "summary": which passes ran, what changed, what failed).
type Summary struct {
	Passes     []passes.PassReport `json:"passes"`
	AnyChanged bool                `json:"any_changed"`
	ClassCount int                 `json:"class_count"`
	DiagCount  int                 `json:"diag_count"`
}

// WriteSummary writes report.json to dir, summarizing a pipeline Report
// against the final state of u.
func WriteSummary(dir string, r passes.Report, u *universe.U) error {
	s := Summary{
		Passes:     r.Passes,
		AnyChanged: r.AnyChanged(),
		ClassCount: u.Len(),
	}
	u.Each(func(rec *universe.ClassRecord) {
		s.DiagCount += rec.Failures.Len()
	})
	return writeJSON(filepath.Join(dir, "report.json"), s)
}

// WriteDiags writes every class's accumulated diag.Diag entries to
// diags.json, keyed by internal class name — the detail report.json's
// DiagCount only counts.
func WriteDiags(dir string, u *universe.U) error {
	out := map[string][]diag.Diag{}
	u.Each(func(rec *universe.ClassRecord) {
		if rec.Failures.Len() > 0 {
			out[rec.Node.Name] = rec.Failures.Items()
		}
	})
	return writeJSON(filepath.Join(dir, "diags.json"), out)
}

// WritePassReport writes one pass's PassReport to passes/<id>.json, for
// callers that want per-pass files alongside the aggregate report.json
// (mirrors the teacher's WriteASM/WriteBin's asm/<name> grouping).
func WritePassReport(dir string, pr passes.PassReport) error {
	path := filepath.Join(dir, "passes", pr.ID+".json")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("report: mkdir passes: %w", err)
	}
	return writeJSON(path, pr)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("report: encode %s: %w", path, err)
	}
	return nil
}
