package assessments

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/intervention-engine/patientcard/fhir"
	"github.com/intervention-engine/patientcard/plugin"
)

// MaxPoints normalizes the raw point total into a 0..1 score.
const MaxPoints = 12.0

// Pie slice names, one per scoring category.
const (
	HbA1cSlice      = "HbA1c"
	BMISlice        = "BMI"
	MedicationSlice = "Medication Timing"
	WeightSlice     = "Body Weight"
)

const (
	HighRiskAlert     = "High readmission risk (demo)"
	ModerateRiskAlert = "Moderate readmission risk (demo)"
)

const (
	HighRiskPlan   = "Follow-up ≤ 7 days; meds reconciliation; diabetes teach-back."
	MediumRiskPlan = "Clinic call in 3–5 days; glucose log review; reinforce meds."
	LowRiskPlan    = "Standard follow-up; diet + activity handouts; PCP in 2–3 weeks."
)

// DiabetesReadmissionPlugin is a toy 30-day readmission score for diabetic
// inpatients based on HbA1c, BMI, time since the last medication dose and body
// weight.  It is for DEMONSTRATION only and must NOT be used in any real
// clinical setting.
type DiabetesReadmissionPlugin struct {
}

// NewDiabetesReadmissionPlugin returns a new DiabetesReadmissionPlugin
func NewDiabetesReadmissionPlugin() *DiabetesReadmissionPlugin {
	return &DiabetesReadmissionPlugin{}
}

// Config provides the configuration parameters for the DiabetesReadmissionPlugin
func (d *DiabetesReadmissionPlugin) Config() plugin.RiskServicePluginConfig {
	return plugin.RiskServicePluginConfig{
		Name: "Diabetes Readmission (demo)",
		Method: fhir.CodeableConcept{
			Coding: []fhir.Coding{{System: "http://interventionengine.org/risk-assessments", Code: "DiabetesReadmission"}},
			Text:   "Diabetes Readmission (demo)",
		},
		PredictedOutcome: fhir.CodeableConcept{Text: "Hospital readmission within 30 days"},
		DefaultPieSlices: []plugin.Slice{
			{Name: HbA1cSlice, Weight: 36, MaxValue: 4},
			{Name: BMISlice, Weight: 27, MaxValue: 3},
			{Name: MedicationSlice, Weight: 27, MaxValue: 3},
			{Name: WeightSlice, Weight: 10, MaxValue: 1},
		},
	}
}

// Calculate scores the record and attaches the pie explaining the score.
func (d *DiabetesReadmissionPlugin) Calculate(f plugin.FeatureRecord) (plugin.RiskServiceCalculationResult, error) {
	points, _ := tally(f)

	pie := plugin.NewPie(f.PatientID)
	pie.Slices = d.Config().DefaultPieSlices
	pie.UpdateSliceValue(HbA1cSlice, points.hba1c)
	pie.UpdateSliceValue(BMISlice, points.bmi)
	pie.UpdateSliceValue(MedicationSlice, points.medication)
	pie.UpdateSliceValue(WeightSlice, points.weight)

	return plugin.RiskServiceCalculationResult{
		Risk: Score(f),
		AsOf: time.Now(),
		Pie:  pie,
	}, nil
}

// Score maps a patient's features to a risk.  It is pure and total: every
// input, however extreme, yields a result with a score in [0, 1].
func Score(f plugin.FeatureRecord) plugin.Risk {
	points, drivers := tally(f)

	score := math.Min(float64(points.total())/MaxPoints, 1.0)
	band := plugin.BandForScore(score)

	alerts := []string{}
	switch band {
	case plugin.BandHigh:
		alerts = append(alerts, HighRiskAlert)
	case plugin.BandMedium:
		alerts = append(alerts, ModerateRiskAlert)
	}

	return plugin.Risk{
		Score:      score,
		Band:       band,
		Drivers:    drivers,
		Alerts:     alerts,
		Plan:       PlanFor(band),
		Provenance: plugin.ProvenanceComputed,
	}
}

// PlanFor returns the English follow-up plan for a band.
func PlanFor(band plugin.Band) string {
	switch band {
	case plugin.BandHigh:
		return HighRiskPlan
	case plugin.BandMedium:
		return MediumRiskPlan
	default:
		return LowRiskPlan
	}
}

type categoryPoints struct {
	hba1c, bmi, medication, weight int
}

func (p categoryPoints) total() int {
	return p.hba1c + p.bmi + p.medication + p.weight
}

// tally evaluates the categories in their fixed order: HbA1c, BMI, medication
// timing, weight.  Each category contributes at most one driver.
func tally(f plugin.FeatureRecord) (categoryPoints, []string) {
	var p categoryPoints
	drivers := []string{}

	switch {
	case f.HbA1c >= 9.0:
		p.hba1c = 4
		drivers = append(drivers, "HbA1c very high ("+formatValue(f.HbA1c)+")")
	case f.HbA1c >= 7.5:
		p.hba1c = 3
		drivers = append(drivers, "HbA1c elevated ("+formatValue(f.HbA1c)+")")
	case f.HbA1c >= 7.0:
		p.hba1c = 2
		drivers = append(drivers, "HbA1c borderline ("+formatValue(f.HbA1c)+")")
	}

	switch {
	case f.BMI >= 35:
		p.bmi = 3
		drivers = append(drivers, "BMI ≥ 35")
	case f.BMI >= 30:
		p.bmi = 2
		drivers = append(drivers, "BMI ≥ 30")
	}

	switch {
	case f.LastMedHours >= 36:
		p.medication = 3
		drivers = append(drivers, "Long time since meds ("+formatHours(f.LastMedHours)+"h)")
	case f.LastMedHours >= 24:
		p.medication = 2
		drivers = append(drivers, "Meds > 24h ago")
	}

	if f.WeightKg >= 90 {
		p.weight = 1
		drivers = append(drivers, "Higher body weight")
	}

	return p, drivers
}

// formatValue prints the shortest decimal that round-trips, always with a
// fractional part: 9 -> "9.0", 9.2 -> "9.2".
func formatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if math.IsInf(v, 0) || math.IsNaN(v) || strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}

// formatHours truncates toward zero for display.
func formatHours(h float64) string {
	if math.IsInf(h, 0) {
		return strconv.FormatFloat(h, 'f', -1, 64)
	}
	return strconv.FormatFloat(math.Trunc(h), 'f', 0, 64)
}
