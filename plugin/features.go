package plugin

// FeatureRecord holds the per-patient inputs to a risk calculation, as read
// from one row of the demo data file.
type FeatureRecord struct {
	PatientID    string  `json:"patientId" bson:"patientId"`
	Name         string  `json:"name" bson:"name"`
	Room         string  `json:"room" bson:"room"`
	WeightKg     float64 `json:"weightKg" bson:"weightKg"`
	BMI          float64 `json:"bmi" bson:"bmi"`
	HbA1c        float64 `json:"hba1c" bson:"hba1c"`
	LastMedHours float64 `json:"lastMedHours" bson:"lastMedHours"`
}

// PatientRisk pairs a patient's features with the risk computed (or authored)
// for them.  It is the unit handed to every consumer of the service.
type PatientRisk struct {
	Features FeatureRecord                `json:"features"`
	Result   RiskServiceCalculationResult `json:"result"`
}

// ID returns the patient identifier.
func (p PatientRisk) ID() string {
	return p.Features.PatientID
}
