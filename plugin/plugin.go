package plugin

import (
	"time"

	"github.com/intervention-engine/patientcard/fhir"
)

// RiskServicePlugin provides the interface that risk plugins adhere to.  A
// plugin scores one patient's features at a time; the service takes care of
// loading the features, storing pies and publishing results.
type RiskServicePlugin interface {
	// Config returns the configuration information for the risk service plugin
	Config() RiskServicePluginConfig
	// Calculate scores one patient.  Plugins that cannot score the record
	// return a NotApplicableError.
	Calculate(f FeatureRecord) (RiskServiceCalculationResult, error)
}

// RiskServicePluginConfig represents key information about the risk service plugin.
type RiskServicePluginConfig struct {
	Name             string
	Method           fhir.CodeableConcept
	PredictedOutcome fhir.CodeableConcept
	DefaultPieSlices []Slice
}

// Risk is the outcome of scoring one patient: the 0..1 score, its band, the
// reasons behind it, any alerts and the follow-up plan.
type Risk struct {
	Score      float64    `json:"score"`
	Band       Band       `json:"band"`
	Drivers    []string   `json:"drivers"`
	Alerts     []string   `json:"alerts"`
	Plan       string     `json:"plan"`
	Provenance Provenance `json:"provenance"`
}

// RiskServiceCalculationResult represents a risk assessment for a given point
// in time along with the pie that explains it.  Fallback results have no pie.
type RiskServiceCalculationResult struct {
	Risk
	AsOf time.Time `json:"asOf"`
	Pie  *Pie      `json:"pie,omitempty"`
}

// IsFallback reports whether the result was authored rather than computed.
func (r *RiskServiceCalculationResult) IsFallback() bool {
	return r.Provenance == ProvenanceFallback
}

// ToRiskAssessment converts the RiskServiceCalculationResult to a FHIR RiskAssessment.
func (r *RiskServiceCalculationResult) ToRiskAssessment(patientID string, basisPieURL string, config RiskServicePluginConfig) *fhir.RiskAssessment {
	score := r.Score
	method := config.Method
	outcome := config.PredictedOutcome
	ra := fhir.NewRiskAssessment()
	ra.Subject = &fhir.Reference{Reference: fhir.PatientReference(patientID)}
	ra.Method = &method
	ra.Occurrence = fhir.FormatDateTime(r.AsOf)
	ra.Prediction = []fhir.RiskAssessmentPredictionComponent{
		{
			Outcome:            &outcome,
			ProbabilityDecimal: &score,
			QualitativeRisk:    &fhir.CodeableConcept{Text: r.Band.String()},
		},
	}
	ra.Mitigation = r.Plan
	for _, driver := range r.Drivers {
		ra.Note = append(ra.Note, fhir.Annotation{Text: driver})
	}
	if r.Pie != nil && basisPieURL != "" {
		ra.Basis = []fhir.Reference{{Reference: fhir.PieUrl(basisPieURL, r.Pie.Id.Hex())}}
	}
	ra.Meta = &fhir.Meta{
		Tag: []fhir.Coding{{System: "http://interventionengine.org/tags/", Code: string(r.Provenance)}},
	}
	return ra
}

// NotApplicableError indicates that the given algorithm is not applicable
// for the requested patient.  It would be inappropriate to return a score.
type NotApplicableError struct {
	msg string
}

// NewNotApplicableError returns a new NotApplicableError with the given
// message.
func NewNotApplicableError(msg string) NotApplicableError {
	return NotApplicableError{msg: msg}
}

func (e NotApplicableError) Error() string { return e.msg }
