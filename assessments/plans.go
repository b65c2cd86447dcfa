package assessments

import (
	"strings"

	"github.com/intervention-engine/patientcard/plugin"
)

var spanishPlans = map[plugin.Band]string{
	plugin.BandHigh:   "Seguimiento ≤ 7 días; reconciliación de medicamentos; enseñanza de diabetes.",
	plugin.BandMedium: "Llamada a clínica en 3–5 días; revisión de registro de glucosa; reforzar medicamentos.",
	plugin.BandLow:    "Seguimiento estándar; materiales de dieta y actividad; médico de cabecera en 2–3 semanas.",
}

// SupportedLanguages lists the plan languages understood by LocalizedPlan.
var SupportedLanguages = []string{"en", "es"}

// LocalizedPlan renders the care plan of r in the requested language.  English
// returns the plan carried by the result itself, so authored fallback plans
// are preserved; Spanish is selected by band.  Unknown languages fall back to
// English.
func LocalizedPlan(r plugin.Risk, lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "es":
		return spanishPlans[r.Band]
	default:
		return r.Plan
	}
}
