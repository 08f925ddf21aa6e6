package excel

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"gobfda/domain/bfda"
)

const summarySheet = "Summary"

// ExportAnalysis writes a design analysis to path: a Summary sheet with the
// operating characteristics and an Endpoints sheet with one row per trajectory.
func ExportAnalysis(path string, s *bfda.AnalysisSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]interface{}{
		{"simulation", s.SimulationID.String()},
		{"hypothesis", string(s.Hypothesis)},
		{"design", string(s.Config.Design)},
		{"boundary.lower", s.Config.Boundary.Lower},
		{"boundary.upper", s.Config.Boundary.Upper},
	}
	if s.Config.Design == bfda.AnalysisFixed {
		rows = append(rows, []interface{}{"n", s.Config.N})
	} else {
		rows = append(rows, []interface{}{"n.min", s.Config.NMin}, []interface{}{"n.max", s.Config.NMax})
	}
	rows = append(rows,
		[]interface{}{"n.valid", s.Valid},
		[]interface{}{"n.failed", s.Failed},
		[]interface{}{"ASN", s.ASN},
		[]interface{}{"upper.hit.frac", s.UpperHitFrac},
		[]interface{}{"lower.hit.frac", s.LowerHitFrac},
		[]interface{}{"n.max.hit.frac", s.NMaxHitFrac},
		[]interface{}{"inconclusive.toward.h1.frac", s.InconclusiveTowardH1Frac},
		[]interface{}{"inconclusive.toward.h0.frac", s.InconclusiveTowardH0Frac},
		[]interface{}{"boundary.hit.ASN", s.BoundaryHitASN},
	)
	for _, q := range s.Quantiles {
		rows = append(rows, []interface{}{fmt.Sprintf("endpoint.n.q%g", q.Percent), q.N})
	}
	for _, w := range s.Warnings {
		rows = append(rows, []interface{}{"warning", w})
	}
	if err := writeSummary(f, rows); err != nil {
		return err
	}

	endpoints := make([][]interface{}, 0, len(s.Endpoints))
	for _, e := range s.Endpoints {
		endpoints = append(endpoints, []interface{}{e.Trajectory, e.N, e.LogBF10, bf10Cell(e.LogBF10), string(e.Outcome)})
	}
	if err := writeTable(f, "Endpoints", []interface{}{"id", "n", "log_bf10", "bf10", "outcome"}, endpoints); err != nil {
		return err
	}
	return save(f, path)
}

// ExportSSD writes a sample-size search to path: a Summary sheet and a
// Candidates sheet with one row per candidate n.
func ExportSSD(path string, r *bfda.SSDResult) error {
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]interface{}{
		{"simulation", r.SimulationID.String()},
		{"hypothesis", string(r.Hypothesis)},
		{"design", string(r.Config.Design)},
		{"boundary.lower", r.Config.Boundary.Lower},
		{"boundary.upper", r.Config.Boundary.Upper},
		{"power", r.Config.Power},
		{"alpha", r.Config.Alpha},
		{"found", r.Found},
	}
	if r.Found {
		rows = append(rows, []interface{}{"n", r.N})
	}
	for _, w := range r.Warnings {
		rows = append(rows, []interface{}{"warning", w})
	}
	if err := writeSummary(f, rows); err != nil {
		return err
	}

	candidates := make([][]interface{}, 0, len(r.Rows))
	for _, row := range r.Rows {
		candidates = append(candidates, []interface{}{row.N, row.UpperHitFrac, row.LowerHitFrac, row.InconclusiveFrac, row.ASN, row.Meets})
	}
	header := []interface{}{"n", "upper.hit.frac", "lower.hit.frac", "n.max.hit.frac", "ASN", "meets_target"}
	if err := writeTable(f, "Candidates", header, candidates); err != nil {
		return err
	}
	return save(f, path)
}

func writeSummary(f *excelize.File, rows [][]interface{}) error {
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}
	return f.SetColWidth(summarySheet, "A", "A", 28)
}

func writeTable(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

// bf10Cell returns BF10 as a number, or as text when it overflows a float.
func bf10Cell(logBF float64) interface{} {
	bf := math.Exp(logBF)
	if math.IsInf(bf, 0) {
		return fmt.Sprintf("exp(%g)", logBF)
	}
	return bf
}

func save(f *excelize.File, path string) error {
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	logger.Info("workbook written to %s", path)
	return nil
}
