package plugin

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/intervention-engine/patientcard/fhir"

	. "gopkg.in/check.v1"
)

type PluginSuite struct{}

func Test(t *testing.T) { TestingT(t) }

var _ = Suite(&PluginSuite{})

func (p *PluginSuite) TestBandForScore(c *C) {
	tests := []struct {
		score  float64
		expect Band
	}{
		{0, BandLow},
		{0.39, BandLow},
		{0.4, BandMedium},
		{0.5, BandMedium},
		{0.69, BandMedium},
		{0.7, BandHigh},
		{1, BandHigh},
	}
	for _, t := range tests {
		c.Assert(BandForScore(t.score), Equals, t.expect, Commentf("score %v", t.score))
	}
}

func (p *PluginSuite) TestBandLabels(c *C) {
	c.Assert(BandMedium.String(), Equals, "Medium")
	c.Assert(BandMedium.Short(), Equals, "Med")
	c.Assert(BandHigh.Short(), Equals, "High")

	for _, label := range []string{"Med", "medium", " MEDIUM "} {
		b, err := ParseBand(label)
		c.Assert(err, IsNil)
		c.Assert(b, Equals, BandMedium)
	}
	_, err := ParseBand("severe")
	c.Assert(err, NotNil)
}

func (p *PluginSuite) TestRiskJSON(c *C) {
	r := Risk{Score: 0.5, Band: BandMedium, Drivers: []string{"BMI ≥ 30"}, Alerts: []string{}, Provenance: ProvenanceComputed}
	data, err := json.Marshal(r)
	c.Assert(err, IsNil)

	var decoded Risk
	c.Assert(json.Unmarshal(data, &decoded), IsNil)
	c.Assert(decoded, DeepEquals, r)
	c.Assert(string(data), Matches, `.*"band":"Medium".*`)
}

func (p *PluginSuite) TestFormatPercent(c *C) {
	c.Assert(FormatPercent(10.0/12.0), Equals, "83%")
	c.Assert(FormatPercent(0), Equals, "0%")
	c.Assert(FormatPercent(1), Equals, "100%")
}

func (p *PluginSuite) TestToRiskAssessment(c *C) {
	config := RiskServicePluginConfig{
		Name: "Test Risk Assessment",
		Method: fhir.CodeableConcept{
			Coding: []fhir.Coding{{System: "http://interventionengine.org/risk-assessments", Code: "Test"}},
			Text:   "Test Risk Assessment",
		},
		PredictedOutcome: fhir.CodeableConcept{Text: "Readmission"},
	}
	result := RiskServiceCalculationResult{
		Risk: Risk{
			Score:      0.75,
			Band:       BandHigh,
			Drivers:    []string{"BMI ≥ 35", "Higher body weight"},
			Plan:       "Follow up",
			Provenance: ProvenanceComputed,
		},
		AsOf: time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC),
		Pie:  NewPie("abc"),
	}

	ra := result.ToRiskAssessment("abc", "http://foo.org/pies", config)
	score := 0.75
	expected := &fhir.RiskAssessment{
		ResourceType: "RiskAssessment",
		Status:       "final",
		Meta:         &fhir.Meta{Tag: []fhir.Coding{{System: "http://interventionengine.org/tags/", Code: "computed"}}},
		Subject:      &fhir.Reference{Reference: "Patient/abc"},
		Method:       &config.Method,
		Occurrence:   "2026-01-02T03:04:05Z",
		Basis:        []fhir.Reference{{Reference: "http://foo.org/pies/" + result.Pie.Id.Hex()}},
		Prediction: []fhir.RiskAssessmentPredictionComponent{
			{
				Outcome:            &fhir.CodeableConcept{Text: "Readmission"},
				ProbabilityDecimal: &score,
				QualitativeRisk:    &fhir.CodeableConcept{Text: "High"},
			},
		},
		Mitigation: "Follow up",
		Note:       []fhir.Annotation{{Text: "BMI ≥ 35"}, {Text: "Higher body weight"}},
	}
	c.Assert(ra, DeepEquals, expected)

	// Fallback results carry no pie and are tagged as such
	result.Pie = nil
	result.Provenance = ProvenanceFallback
	ra = result.ToRiskAssessment("abc", "http://foo.org/pies", config)
	c.Assert(ra.Basis, IsNil)
	c.Assert(ra.Meta.Tag[0].Code, Equals, "fallback")
	c.Assert(result.IsFallback(), Equals, true)
}

func (p *PluginSuite) TestNewNotApplicableError(c *C) {
	err := NewNotApplicableError("Foo is not applicable")
	c.Assert(err.Error(), Equals, "Foo is not applicable")
}
