package fhir

import (
	"fmt"
	"net/url"
	"strings"
)

func PatientReference(patientID string) string {
	return fmt.Sprintf("Patient/%s", patientID)
}

func PatientUrl(fhirEndpointUrl, patientID string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(fhirEndpointUrl, "/"), PatientReference(patientID))
}

func PieUrl(basePieUrl, pieID string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(basePieUrl, "/"), pieID)
}

// RiskAssessmentDeleteUrl identifies all risk assessments for a given patient
// that were produced by the given method.  This is used to delete the old
// assessments before adding the new set.
func RiskAssessmentDeleteUrl(method CodeableConcept, patientID string) string {
	params := url.Values{}
	if len(method.Coding) > 0 {
		params.Set("method", fmt.Sprintf("%s|%s", method.Coding[0].System, method.Coding[0].Code))
	}
	params.Set("patient", patientID)
	return fmt.Sprintf("RiskAssessment?%s", params.Encode())
}
