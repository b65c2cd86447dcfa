package fhir

import "time"

// The handful of FHIR STU3 structures the patient card service needs to
// publish its risk assessments.  Only the fields that are populated by this
// service are modeled.

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Display   string `json:"display,omitempty"`
}

type Meta struct {
	Tag []Coding `json:"tag,omitempty"`
}

type Annotation struct {
	Text string `json:"text"`
}

type RiskAssessmentPredictionComponent struct {
	Outcome            *CodeableConcept `json:"outcome,omitempty"`
	ProbabilityDecimal *float64         `json:"probabilityDecimal,omitempty"`
	QualitativeRisk    *CodeableConcept `json:"qualitativeRisk,omitempty"`
}

type RiskAssessment struct {
	ResourceType string                              `json:"resourceType"`
	Id           string                              `json:"id,omitempty"`
	Meta         *Meta                               `json:"meta,omitempty"`
	Status       string                              `json:"status"`
	Subject      *Reference                          `json:"subject,omitempty"`
	Method       *CodeableConcept                    `json:"method,omitempty"`
	Occurrence   string                              `json:"occurrenceDateTime,omitempty"`
	Basis        []Reference                         `json:"basis,omitempty"`
	Prediction   []RiskAssessmentPredictionComponent `json:"prediction,omitempty"`
	Mitigation   string                              `json:"mitigation,omitempty"`
	Note         []Annotation                        `json:"note,omitempty"`
}

// NewRiskAssessment returns a final RiskAssessment with its resource type set.
func NewRiskAssessment() *RiskAssessment {
	return &RiskAssessment{ResourceType: "RiskAssessment", Status: "final"}
}

type BundleEntryRequestComponent struct {
	Method string `json:"method"`
	Url    string `json:"url"`
}

type BundleEntryComponent struct {
	Resource interface{}                  `json:"resource,omitempty"`
	Request  *BundleEntryRequestComponent `json:"request,omitempty"`
}

type Bundle struct {
	ResourceType string                 `json:"resourceType"`
	Type         string                 `json:"type"`
	Entry        []BundleEntryComponent `json:"entry"`
}

// NewTransactionBundle returns an empty transaction bundle.
func NewTransactionBundle() *Bundle {
	return &Bundle{ResourceType: "Bundle", Type: "transaction", Entry: []BundleEntryComponent{}}
}

// FormatDateTime renders t the way FHIR dateTime elements expect.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
