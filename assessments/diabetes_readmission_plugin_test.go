package assessments

import (
	"math"
	"testing"
	"time"

	"github.com/intervention-engine/patientcard/plugin"
	. "gopkg.in/check.v1"
)

func Test(t *testing.T) { TestingT(t) }

type DiabetesReadmissionSuite struct {
	Plugin *DiabetesReadmissionPlugin
}

var _ = Suite(&DiabetesReadmissionSuite{})

func (s *DiabetesReadmissionSuite) SetUpSuite(c *C) {
	s.Plugin = NewDiabetesReadmissionPlugin()
}

func features(hba1c, bmi, lastMedHours, weightKg float64) plugin.FeatureRecord {
	return plugin.FeatureRecord{
		PatientID:    "p100",
		Name:         "Test Patient",
		Room:         "1A-01",
		HbA1c:        hba1c,
		BMI:          bmi,
		LastMedHours: lastMedHours,
		WeightKg:     weightKg,
	}
}

func (s *DiabetesReadmissionSuite) TestHighRiskPatient(c *C) {
	r := Score(features(9.2, 31, 40, 95))
	c.Assert(r.Score, Equals, 10.0/12.0)
	c.Assert(r.Band, Equals, plugin.BandHigh)
	c.Assert(r.Alerts, DeepEquals, []string{"High readmission risk (demo)"})
	c.Assert(r.Plan, Equals, "Follow-up ≤ 7 days; meds reconciliation; diabetes teach-back.")
	c.Assert(r.Drivers, DeepEquals, []string{
		"HbA1c very high (9.2)",
		"BMI ≥ 30",
		"Long time since meds (40h)",
		"Higher body weight",
	})
	c.Assert(r.Provenance, Equals, plugin.ProvenanceComputed)
}

func (s *DiabetesReadmissionSuite) TestLowRiskPatient(c *C) {
	r := Score(features(6.0, 24, 5, 70))
	c.Assert(r.Score, Equals, 0.0)
	c.Assert(r.Band, Equals, plugin.BandLow)
	c.Assert(r.Alerts, HasLen, 0)
	c.Assert(r.Drivers, HasLen, 0)
	c.Assert(r.Plan, Equals, "Standard follow-up; diet + activity handouts; PCP in 2–3 weeks.")
}

func (s *DiabetesReadmissionSuite) TestMediumRiskPatient(c *C) {
	// 3 (HbA1c elevated) + 2 (BMI) = 5 points
	r := Score(features(7.5, 30, 10, 60))
	c.Assert(r.Score, Equals, 5.0/12.0)
	c.Assert(r.Band, Equals, plugin.BandMedium)
	c.Assert(r.Alerts, DeepEquals, []string{"Moderate readmission risk (demo)"})
	c.Assert(r.Plan, Equals, "Clinic call in 3–5 days; glucose log review; reinforce meds.")
	c.Assert(r.Drivers, DeepEquals, []string{"HbA1c elevated (7.5)", "BMI ≥ 30"})
}

func (s *DiabetesReadmissionSuite) TestTierBoundaries(c *C) {
	tests := []struct {
		f       plugin.FeatureRecord
		points  float64
		drivers []string
	}{
		{features(9.0, 0, 0, 0), 4, []string{"HbA1c very high (9.0)"}},
		{features(8.99, 0, 0, 0), 3, []string{"HbA1c elevated (8.99)"}},
		{features(7.0, 0, 0, 0), 2, []string{"HbA1c borderline (7.0)"}},
		{features(6.99, 0, 0, 0), 0, []string{}},
		{features(0, 35, 0, 0), 3, []string{"BMI ≥ 35"}},
		{features(0, 34.9, 0, 0), 2, []string{"BMI ≥ 30"}},
		{features(0, 29.9, 0, 0), 0, []string{}},
		{features(0, 0, 36, 0), 3, []string{"Long time since meds (36h)"}},
		{features(0, 0, 47.9, 0), 3, []string{"Long time since meds (47h)"}},
		{features(0, 0, 24, 0), 2, []string{"Meds > 24h ago"}},
		{features(0, 0, 23.9, 0), 0, []string{}},
		{features(0, 0, 0, 90), 1, []string{"Higher body weight"}},
		{features(0, 0, 0, 89.9), 0, []string{}},
	}
	for _, t := range tests {
		r := Score(t.f)
		c.Assert(r.Score, Equals, t.points/12.0, Commentf("%+v", t.f))
		c.Assert(r.Drivers, DeepEquals, t.drivers, Commentf("%+v", t.f))
	}
}

func (s *DiabetesReadmissionSuite) TestMaximumPoints(c *C) {
	// The rubric tops out at 11 points, below the normalization ceiling
	r := Score(features(12, 45, 72, 130))
	c.Assert(r.Score, Equals, 11.0/12.0)
	c.Assert(r.Drivers, DeepEquals, []string{
		"HbA1c very high (12.0)",
		"BMI ≥ 35",
		"Long time since meds (72h)",
		"Higher body weight",
	})
}

func (s *DiabetesReadmissionSuite) TestScoreInvariants(c *C) {
	values := []float64{
		math.Inf(-1), -1e308, -50, -1, 0, 6.5, 7, 7.5, 9, 23.5, 24, 29.99, 30, 35, 36, 89, 90, 200, 1e308,
		math.Inf(1), math.NaN(),
	}
	for _, hba1c := range values {
		for _, bmi := range values {
			for _, hours := range []float64{-10, 0, 24, 36, 1e9, math.NaN()} {
				for _, weight := range []float64{-80, 0, 90, 500, math.Inf(1)} {
					f := features(hba1c, bmi, hours, weight)
					r := Score(f)
					comment := Commentf("%+v", f)
					c.Assert(r.Score >= 0 && r.Score <= 1, Equals, true, comment)
					c.Assert(r.Score >= 0.7, Equals, r.Band == plugin.BandHigh, comment)
					c.Assert(r.Score >= 0.4 && r.Score < 0.7, Equals, r.Band == plugin.BandMedium, comment)
					c.Assert(r.Score < 0.4, Equals, r.Band == plugin.BandLow, comment)
					c.Assert(len(r.Alerts) <= 1, Equals, true, comment)
					c.Assert(len(r.Drivers) <= 4, Equals, true, comment)
					c.Assert(Score(f), DeepEquals, r, comment)
				}
			}
		}
	}
}

func (s *DiabetesReadmissionSuite) TestFormatting(c *C) {
	c.Assert(formatValue(9), Equals, "9.0")
	c.Assert(formatValue(9.25), Equals, "9.25")
	c.Assert(formatValue(10), Equals, "10.0")
	c.Assert(formatValue(math.Inf(1)), Equals, "+Inf")
	c.Assert(formatHours(40.99), Equals, "40")
	c.Assert(formatHours(36), Equals, "36")
}

func (s *DiabetesReadmissionSuite) TestCalculate(c *C) {
	f := features(9.2, 31, 40, 95)
	result, err := s.Plugin.Calculate(f)
	c.Assert(err, IsNil)
	c.Assert(result.Risk, DeepEquals, Score(f))
	c.Assert(time.Since(result.AsOf) < time.Minute, Equals, true)

	c.Assert(result.Pie, NotNil)
	c.Assert(result.Pie.Patient, Equals, "p100")
	c.Assert(result.Pie.Slices, DeepEquals, []plugin.Slice{
		{Name: HbA1cSlice, Weight: 36, MaxValue: 4, Value: 4},
		{Name: BMISlice, Weight: 27, MaxValue: 3, Value: 2},
		{Name: MedicationSlice, Weight: 27, MaxValue: 3, Value: 3},
		{Name: WeightSlice, Weight: 10, MaxValue: 1, Value: 1},
	})
	c.Assert(float64(result.Pie.TotalValues())/MaxPoints, Equals, result.Score)

	// Each calculation gets its own pie
	again, _ := s.Plugin.Calculate(f)
	c.Assert(again.Pie.Id, Not(Equals), result.Pie.Id)
}

func (s *DiabetesReadmissionSuite) TestConfig(c *C) {
	config := s.Plugin.Config()
	c.Assert(config.Method.Coding, HasLen, 1)
	total := 0
	for _, slice := range config.DefaultPieSlices {
		total += slice.Weight
	}
	c.Assert(total, Equals, 100)
}

func (s *DiabetesReadmissionSuite) TestLocalizedPlan(c *C) {
	r := Score(features(9.2, 31, 40, 95))
	c.Assert(LocalizedPlan(r, "en"), Equals, r.Plan)
	c.Assert(LocalizedPlan(r, ""), Equals, r.Plan)
	c.Assert(LocalizedPlan(r, "fr"), Equals, r.Plan)
	c.Assert(LocalizedPlan(r, "ES"), Equals, "Seguimiento ≤ 7 días; reconciliación de medicamentos; enseñanza de diabetes.")

	authored := plugin.Risk{Band: plugin.BandMedium, Plan: "Call clinic in 3 days; CGM refresher; renal dose check."}
	c.Assert(LocalizedPlan(authored, "en"), Equals, authored.Plan)
	c.Assert(LocalizedPlan(authored, "es"), Equals,
		"Llamada a clínica en 3–5 días; revisión de registro de glucosa; reforzar medicamentos.")
}
