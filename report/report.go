// Package report writes scored patients to an Excel workbook.  The first
// seven columns are the loader's input columns, so an exported workbook can be
// loaded again.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/intervention-engine/patientcard/plugin"
)

const SheetName = "Patients"

var Header = []string{
	"patient_id",
	"name",
	"room",
	"weight_kg",
	"bmi",
	"hba1c",
	"last_med_hours",
	"score",
	"percent",
	"band",
	"drivers",
	"alerts",
	"plan",
	"provenance",
}

var columnWidths = []float64{12, 22, 10, 11, 8, 8, 15, 10, 9, 9, 50, 40, 60, 12}

// Build renders results into a new workbook.  The caller closes it.
func Build(results []plugin.PatientRisk) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(Header), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, r := range results {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := rowValues(r)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row for %s: %w", r.ID(), err)
		}
	}
	return f, nil
}

func rowValues(r plugin.PatientRisk) []interface{} {
	return []interface{}{
		r.Features.PatientID,
		r.Features.Name,
		r.Features.Room,
		r.Features.WeightKg,
		r.Features.BMI,
		r.Features.HbA1c,
		r.Features.LastMedHours,
		r.Result.Score,
		plugin.FormatPercent(r.Result.Score),
		r.Result.Band.String(),
		strings.Join(r.Result.Drivers, "; "),
		strings.Join(r.Result.Alerts, "; "),
		r.Result.Plan,
		string(r.Result.Provenance),
	}
}

// WriteFile saves results as an .xlsx workbook at path.
func WriteFile(path string, results []plugin.PatientRisk) error {
	f, err := Build(results)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// Write streams the workbook to w.
func Write(w io.Writer, results []plugin.PatientRisk) error {
	f, err := Build(results)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
