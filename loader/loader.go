// Package loader turns the demo data file into scored patients.
//
// The source is a comma-separated table whose first line is a header.  Each
// following line carries at least seven columns:
//
//	patient_id, name, room, weight_kg, bmi, hba1c, last_med_hours, ...
//
// Extra columns are ignored.  Quoting is not supported, so a value that
// contains a comma shifts every column after it.  Rows whose numeric columns
// do not parse are logged and dropped.  When the source is missing,
// unreadable, or yields no valid rows, the fixed fallback dataset is returned
// instead, so a load always produces at least one patient.
package loader

import (
	"errors"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"

	"github.com/intervention-engine/patientcard/assessments"
	"github.com/intervention-engine/patientcard/plugin"
)

// MinColumns is the number of columns a data row must carry.
const MinColumns = 7

// Loader reads feature rows and scores them with a plugin.
type Loader struct {
	plugin plugin.RiskServicePlugin
	logger zerolog.Logger
}

// New returns a loader that scores rows with p.
func New(p plugin.RiskServicePlugin, logger zerolog.Logger) *Loader {
	return &Loader{plugin: p, logger: logger.With().Str("component", "loader").Logger()}
}

// Load reads r with the diabetes readmission plugin and no logging.
func Load(r io.Reader) []plugin.PatientRisk {
	return New(assessments.NewDiabetesReadmissionPlugin(), zerolog.Nop()).Load(r)
}

// Load reads the whole of r and scores every valid row, preserving input
// order.  A nil reader counts as an absent source.
func (l *Loader) Load(r io.Reader) []plugin.PatientRisk {
	if r == nil {
		return l.fallback("no data source provided")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		l.logger.Warn().Err(err).Msg("could not read data source, using fallback demo data")
		return Fallback()
	}
	return l.score(splitLines(string(data)))
}

// LoadFile loads the CSV file at path.
func (l *Loader) LoadFile(path string) []plugin.PatientRisk {
	if path == "" {
		return l.fallback("no data file configured")
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn().Str("path", path).Msg("data file not found, using fallback demo data")
		} else {
			l.logger.Warn().Err(err).Str("path", path).Msg("could not read data file, using fallback demo data")
		}
		return Fallback()
	}
	defer f.Close()
	return l.Load(f)
}

// LoadSource picks the reader for path by its extension: .xlsx files are read
// as workbooks, anything else as CSV.
func (l *Loader) LoadSource(path string) []plugin.PatientRisk {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return l.LoadWorkbook(path)
	}
	return l.LoadFile(path)
}

func (l *Loader) fallback(reason string) []plugin.PatientRisk {
	l.logger.Warn().Msg(reason + ", using fallback demo data")
	return Fallback()
}

// row is one non-blank line of the source, split into trimmed columns.
type row struct {
	line int
	raw  string
	cols []string
}

func splitLines(data string) []row {
	var rows []row
	for i, line := range strings.Split(data, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, ",")
		for j := range cols {
			cols[j] = strings.TrimSpace(cols[j])
		}
		rows = append(rows, row{line: i + 1, raw: strings.TrimRight(line, "\r"), cols: cols})
	}
	return rows
}

// score skips the header row, parses the rest and runs the plugin over every
// valid record.
func (l *Loader) score(rows []row) []plugin.PatientRisk {
	if len(rows) > 0 {
		rows = rows[1:]
	}

	var results []plugin.PatientRisk
	for _, r := range rows {
		f, err := parseRow(r.cols)
		if err != nil {
			l.logger.Warn().
				Err(err).
				Int("line", r.line).
				Str("row", r.raw).
				Func(func(e *zerolog.Event) {
					if l.logger.GetLevel() <= zerolog.DebugLevel {
						e.Str("columns", spew.Sdump(r.cols))
					}
				}).
				Msg("could not parse row")
			continue
		}
		result, err := l.plugin.Calculate(f)
		if err != nil {
			var na plugin.NotApplicableError
			if errors.As(err, &na) {
				l.logger.Info().Str("patient_id", f.PatientID).Msg(na.Error())
			} else {
				l.logger.Error().Err(err).Str("patient_id", f.PatientID).Msg("risk calculation failed")
			}
			continue
		}
		results = append(results, plugin.PatientRisk{Features: f, Result: result})
	}

	if len(results) == 0 {
		return l.fallback("no valid rows parsed")
	}
	l.logger.Debug().Int("patients", len(results)).Msg("loaded patients")
	return results
}

var errTooFewColumns = errors.New("row has fewer than 7 columns")

func parseRow(cols []string) (plugin.FeatureRecord, error) {
	if len(cols) < MinColumns {
		return plugin.FeatureRecord{}, errTooFewColumns
	}
	var nums [4]float64
	for i := range nums {
		v, err := parseDecimal(cols[3+i])
		if err != nil {
			return plugin.FeatureRecord{}, err
		}
		nums[i] = v
	}
	return plugin.FeatureRecord{
		PatientID:    cols[0],
		Name:         cols[1],
		Room:         cols[2],
		WeightKg:     nums[0],
		BMI:          nums[1],
		HbA1c:        nums[2],
		LastMedHours: nums[3],
	}, nil
}

func parseDecimal(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, &strconv.NumError{Func: "ParseFloat", Num: s, Err: errors.New("value is not finite")}
	}
	return v, nil
}
