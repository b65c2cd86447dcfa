package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/intervention-engine/patientcard/assessments"
	"github.com/intervention-engine/patientcard/plugin"
	"github.com/intervention-engine/patientcard/report"
	"github.com/intervention-engine/patientcard/service"
)

const MIMEApplicationXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type handlers struct {
	svc        service.RiskService
	basePieURL string
	delayer    *FunctionDelayer
	reloadKey  string
	logger     zerolog.Logger
}

// RegisterRoutes sets up the http request handlers with Echo.  Reload
// requests are debounced through fnDelayer under reloadKey, normally the path
// of the data file, so that a watcher on the same file shares the timer.
func RegisterRoutes(e *echo.Echo, svc service.RiskService, basePieURL string, fnDelayer *FunctionDelayer, reloadKey string, logger zerolog.Logger) {
	h := &handlers{
		svc:        svc,
		basePieURL: basePieURL,
		delayer:    fnDelayer,
		reloadKey:  reloadKey,
		logger:     logger.With().Str("component", "server").Logger(),
	}

	e.GET("/patients", h.listPatients)
	e.GET("/patients/select", h.selectPatient)
	e.GET("/patients/:id", h.getPatient)
	e.GET("/patients/:id/plan", h.getPlan)
	e.GET("/patients/:id/fhir", h.getRiskAssessment)
	e.GET("/pies/:id", h.getPie)
	e.GET("/summary", h.getSummary)
	e.GET("/export", h.export)
	e.POST("/score", h.score)
	e.POST("/reload", h.reload)
}

func (h *handlers) listPatients(c echo.Context) error {
	return c.JSON(http.StatusOK, newPatientCards(h.svc.Patients(c.QueryParam("q")), h.basePieURL))
}

func (h *handlers) selectPatient(c echo.Context) error {
	name, room := c.QueryParam("name"), c.QueryParam("room")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	r, ok := h.svc.SelectBy(name, room)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no patient named "+name+" in room "+room)
	}
	return c.JSON(http.StatusOK, NewPatientCard(r, h.basePieURL))
}

func (h *handlers) patient(c echo.Context) (plugin.PatientRisk, error) {
	id := c.Param("id")
	r, ok := h.svc.Patient(id)
	if !ok {
		return r, echo.NewHTTPError(http.StatusNotFound, "patient "+id+" not found")
	}
	return r, nil
}

func (h *handlers) getPatient(c echo.Context) error {
	r, err := h.patient(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NewPatientCard(r, h.basePieURL))
}

type planResponse struct {
	PatientID string `json:"patientId"`
	Lang      string `json:"lang"`
	Plan      string `json:"plan"`
}

func (h *handlers) getPlan(c echo.Context) error {
	r, err := h.patient(c)
	if err != nil {
		return err
	}
	lang := strings.ToLower(strings.TrimSpace(c.QueryParam("lang")))
	if lang == "" {
		lang = "en"
	}
	if !supportedLanguage(lang) {
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported language "+lang+", use one of "+strings.Join(assessments.SupportedLanguages, ", "))
	}
	return c.JSON(http.StatusOK, planResponse{
		PatientID: r.ID(),
		Lang:      lang,
		Plan:      assessments.LocalizedPlan(r.Result.Risk, lang),
	})
}

func supportedLanguage(lang string) bool {
	for _, l := range assessments.SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

func (h *handlers) getRiskAssessment(c echo.Context) error {
	r, err := h.patient(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r.Result.ToRiskAssessment(r.ID(), h.basePieURL, h.svc.Config()))
}

func (h *handlers) getPie(c echo.Context) error {
	pie, err := h.svc.Pie(c.Request().Context(), c.Param("id"))
	switch {
	case errors.Is(err, service.ErrInvalidPieID):
		return echo.NewHTTPError(http.StatusBadRequest, "Bad ID format for requested Pie. Should be a BSON Id")
	case errors.Is(err, service.ErrPieNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "pie not found")
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, pie)
}

func (h *handlers) getSummary(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Summary())
}

func (h *handlers) export(c echo.Context) error {
	var buf bytes.Buffer
	if err := report.Write(&buf, h.svc.Patients(c.QueryParam("q"))); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="patients.xlsx"`)
	return c.Blob(http.StatusOK, MIMEApplicationXLSX, buf.Bytes())
}

func (h *handlers) score(c echo.Context) error {
	var f plugin.FeatureRecord
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid feature record")
	}
	r, err := h.svc.Score(c.Request().Context(), f)
	var notApplicable plugin.NotApplicableError
	if errors.As(err, &notApplicable) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, notApplicable.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NewPatientCard(r, h.basePieURL))
}

type reloadResponse struct {
	Source    string `json:"source"`
	Scheduled bool   `json:"scheduled"`
}

// reload answers right away; the load itself happens once requests stop
// arriving for the delayer's duration.
func (h *handlers) reload(c echo.Context) error {
	scheduled := ScheduleReload(h.delayer, h.reloadKey, h.svc, h.logger)
	return c.JSON(http.StatusAccepted, reloadResponse{Source: h.reloadKey, Scheduled: scheduled})
}

// ScheduleReload debounces a reload of svc under key.  It reports whether a
// new reload was scheduled rather than an existing one pushed back.
func ScheduleReload(fnDelayer *FunctionDelayer, key string, svc service.RiskService, logger zerolog.Logger) bool {
	return fnDelayer.Delay(key, func() {
		if _, err := svc.Reload(context.Background()); err != nil {
			logger.Error().Err(err).Str("source", key).Msg("reload failed")
		}
	})
}
