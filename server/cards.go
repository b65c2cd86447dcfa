package server

import (
	"time"

	"github.com/intervention-engine/patientcard/fhir"
	"github.com/intervention-engine/patientcard/plugin"
)

// PatientCard is the JSON view of one scored patient, carrying the display
// strings a card needs next to the raw values.
type PatientCard struct {
	Features   plugin.FeatureRecord `json:"features"`
	Score      float64              `json:"score"`
	Percent    string               `json:"percent"`
	Band       plugin.Band          `json:"band"`
	BandLabel  string               `json:"bandLabel"`
	Drivers    []string             `json:"drivers"`
	Alerts     []string             `json:"alerts"`
	Plan       string               `json:"plan"`
	Provenance plugin.Provenance    `json:"provenance"`
	AsOf       time.Time            `json:"asOf"`
	PieURL     string               `json:"pieUrl,omitempty"`
}

func NewPatientCard(r plugin.PatientRisk, basePieURL string) PatientCard {
	card := PatientCard{
		Features:   r.Features,
		Score:      r.Result.Score,
		Percent:    plugin.FormatPercent(r.Result.Score),
		Band:       r.Result.Band,
		BandLabel:  r.Result.Band.Short(),
		Drivers:    r.Result.Drivers,
		Alerts:     r.Result.Alerts,
		Plan:       r.Result.Plan,
		Provenance: r.Result.Provenance,
		AsOf:       r.Result.AsOf,
	}
	if card.Drivers == nil {
		card.Drivers = []string{}
	}
	if card.Alerts == nil {
		card.Alerts = []string{}
	}
	if r.Result.Pie != nil && basePieURL != "" {
		card.PieURL = fhir.PieUrl(basePieURL, r.Result.Pie.Id.Hex())
	}
	return card
}

func newPatientCards(results []plugin.PatientRisk, basePieURL string) []PatientCard {
	cards := make([]PatientCard, 0, len(results))
	for _, r := range results {
		cards = append(cards, NewPatientCard(r, basePieURL))
	}
	return cards
}
