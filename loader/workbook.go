package loader

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/intervention-engine/patientcard/plugin"
)

// LoadWorkbook loads the first sheet of an .xlsx workbook.  Rows follow the
// same rules as the CSV source: a header row, seven or more columns, trimmed
// cells and finite numbers, with the same fallback when nothing usable is
// found.
func (l *Loader) LoadWorkbook(path string) []plugin.PatientRisk {
	if path == "" {
		return l.fallback("no workbook configured")
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn().Str("path", path).Msg("workbook not found, using fallback demo data")
		} else {
			l.logger.Warn().Err(err).Str("path", path).Msg("could not read workbook, using fallback demo data")
		}
		return Fallback()
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return l.fallback("workbook has no sheets")
	}
	cells, err := f.GetRows(sheets[0])
	if err != nil {
		l.logger.Warn().Err(err).Str("path", path).Str("sheet", sheets[0]).Msg("could not read sheet, using fallback demo data")
		return Fallback()
	}

	var rows []row
	for i, cols := range cells {
		trimmed := make([]string, len(cols))
		blank := true
		for j := range cols {
			trimmed[j] = strings.TrimSpace(cols[j])
			if trimmed[j] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		rows = append(rows, row{line: i + 1, raw: strings.Join(cols, ","), cols: trimmed})
	}
	return l.score(rows)
}
