package service

import (
	"context"
	"errors"

	"github.com/intervention-engine/patientcard/fhir"
	"github.com/intervention-engine/patientcard/plugin"
)

// TransactionPoster submits a FHIR transaction bundle.
type TransactionPoster interface {
	PostTransaction(ctx context.Context, bundle *fhir.Bundle) error
}

// Publish replaces each patient's risk assessments on the FHIR server with the
// ones from the current snapshot, in a single transaction.
func (rs *ReferenceRiskService) Publish(ctx context.Context, poster TransactionPoster, basisPieURL string) error {
	s := rs.current.Load()
	if s == nil {
		return errors.New("no patients loaded")
	}
	bundle := BuildRiskAssessmentBundle(s.Results, basisPieURL, rs.plugin.Config())
	if err := poster.PostTransaction(ctx, bundle); err != nil {
		return err
	}
	rs.logger.Info().Int("patients", len(s.Results)).Msg("risk assessments published")
	return nil
}

// BuildRiskAssessmentBundle builds a transaction that, per patient, deletes
// the assessments previously produced by the plugin's method and posts the
// new one.
func BuildRiskAssessmentBundle(results []plugin.PatientRisk, basisPieURL string, config plugin.RiskServicePluginConfig) *fhir.Bundle {
	bundle := fhir.NewTransactionBundle()
	for i := range results {
		patientID := results[i].ID()
		bundle.Entry = append(bundle.Entry,
			fhir.BundleEntryComponent{
				Request: &fhir.BundleEntryRequestComponent{
					Method: "DELETE",
					Url:    fhir.RiskAssessmentDeleteUrl(config.Method, patientID),
				},
			},
			fhir.BundleEntryComponent{
				Request: &fhir.BundleEntryRequestComponent{
					Method: "POST",
					Url:    "RiskAssessment",
				},
				Resource: results[i].Result.ToRiskAssessment(patientID, basisPieURL, config),
			},
		)
	}
	return bundle
}
