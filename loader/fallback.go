package loader

import (
	"time"

	"github.com/intervention-engine/patientcard/plugin"
)

// The features attached to every fallback patient.  They are placeholders:
// the authored risks below were not derived from them.
const (
	fallbackWeightKg     = 80
	fallbackBMI          = 30
	fallbackHbA1c        = 8.0
	fallbackLastMedHours = 24
)

type demoPatient struct {
	id, name, room string
	risk           plugin.Risk
}

var demoPatients = []demoPatient{
	{"p001", "Ana Gomez", "4A-12", plugin.Risk{
		Score:   0.78,
		Band:    plugin.BandHigh,
		Drivers: []string{"HbA1c uncontrolled", "LOS > 7 days", "Polypharmacy"},
		Alerts:  []string{"Recent transfer", "10+ medications"},
		Plan:    "Follow-up in 7 days; medication reconciliation; insulin teach-back.",
	}},
	{"p002", "James Lin", "3B-05", plugin.Risk{
		Score:   0.42,
		Band:    plugin.BandMedium,
		Drivers: []string{"CKD stage 3", "History of hypoglycemia"},
		Alerts:  []string{"Recent sepsis"},
		Plan:    "Call clinic in 3 days; CGM refresher; renal dose check.",
	}},
	{"p003", "Maya Patel", "2C-09", plugin.Risk{
		Score:   0.21,
		Band:    plugin.BandLow,
		Drivers: []string{"New diagnosis", "Short LOS"},
		Alerts:  []string{},
		Plan:    "Pharmacist call in 48h; dietitian handout; PCP in 2 weeks.",
	}},
	{"p004", "Luis Rivera", "5D-02", plugin.Risk{
		Score:   0.63,
		Band:    plugin.BandMedium,
		Drivers: []string{"Multiple ER visits", "A1c trend rising"},
		Alerts:  []string{"Missed insulin doses"},
		Plan:    "Nurse call in 72h; insulin pen demo; transport support.",
	}},
}

// Fallback returns the fixed demo dataset used whenever no usable source is
// available.  The risks are hand-authored and bypass scoring entirely; every
// result is tagged with plugin.ProvenanceFallback.  A fresh copy is returned
// on each call.
func Fallback() []plugin.PatientRisk {
	now := time.Now()
	results := make([]plugin.PatientRisk, 0, len(demoPatients))
	for _, p := range demoPatients {
		risk := p.risk
		risk.Drivers = append([]string{}, p.risk.Drivers...)
		risk.Alerts = append([]string{}, p.risk.Alerts...)
		risk.Provenance = plugin.ProvenanceFallback
		results = append(results, plugin.PatientRisk{
			Features: plugin.FeatureRecord{
				PatientID:    p.id,
				Name:         p.name,
				Room:         p.room,
				WeightKg:     fallbackWeightKg,
				BMI:          fallbackBMI,
				HbA1c:        fallbackHbA1c,
				LastMedHours: fallbackLastMedHours,
			},
			Result: plugin.RiskServiceCalculationResult{Risk: risk, AsOf: now},
		})
	}
	return results
}
