package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/intervention-engine/patientcard/loader"
	"github.com/intervention-engine/patientcard/plugin"
)

// RiskService is the interface served over HTTP by the patient card server.
type RiskService interface {
	Patients(query string) []plugin.PatientRisk
	Patient(id string) (plugin.PatientRisk, bool)
	SelectBy(name, room string) (plugin.PatientRisk, bool)
	Score(ctx context.Context, f plugin.FeatureRecord) (plugin.PatientRisk, error)
	Pie(ctx context.Context, id string) (*plugin.Pie, error)
	Summary() Summary
	Reload(ctx context.Context) (*Snapshot, error)
	Config() plugin.RiskServicePluginConfig
}

// Snapshot is one complete load of the data source.  Snapshots are never
// modified once published.
type Snapshot struct {
	ID       uuid.UUID            `json:"id"`
	Source   string               `json:"source"`
	LoadedAt time.Time            `json:"loadedAt"`
	Results  []plugin.PatientRisk `json:"results"`
}

// Summary counts the patients of the current snapshot.
type Summary struct {
	SnapshotID uuid.UUID      `json:"snapshotId"`
	LoadedAt   time.Time      `json:"loadedAt"`
	Total      int            `json:"total"`
	Computed   int            `json:"computed"`
	Fallback   int            `json:"fallback"`
	ByBand     map[string]int `json:"byBand"`
}

// ReferenceRiskService loads the patient data file with a risk plugin, keeps
// the latest load in memory and stores each patient's pie.  Ad-hoc scores are
// cached by their features.
type ReferenceRiskService struct {
	plugin  plugin.RiskServicePlugin
	loader  *loader.Loader
	source  string
	pies    PieStore
	cache   ResultCache
	logger  zerolog.Logger
	current atomic.Pointer[Snapshot]
}

// NewReferenceRiskService creates a service reading source.  A nil pie store
// keeps pies in memory; a nil cache disables caching.  Nothing is loaded until
// Reload is called.
func NewReferenceRiskService(p plugin.RiskServicePlugin, source string, pies PieStore, cache ResultCache, logger zerolog.Logger) *ReferenceRiskService {
	if pies == nil {
		pies = NewMemoryPieStore()
	}
	if cache == nil {
		cache = NopResultCache{}
	}
	logger = logger.With().Str("component", "service").Logger()
	return &ReferenceRiskService{
		plugin: p,
		loader: loader.New(p, logger),
		source: source,
		pies:   pies,
		cache:  cache,
		logger: logger,
	}
}

func (rs *ReferenceRiskService) Config() plugin.RiskServicePluginConfig {
	return rs.plugin.Config()
}

// Source is the path of the data file.
func (rs *ReferenceRiskService) Source() string {
	return rs.source
}

// Reload reads the data source again and publishes the result as the current
// snapshot.  The snapshot is published even when storing pies fails; those
// errors are returned together.
func (rs *ReferenceRiskService) Reload(ctx context.Context) (*Snapshot, error) {
	snapshot := &Snapshot{
		ID:       uuid.New(),
		Source:   rs.source,
		LoadedAt: time.Now(),
		Results:  rs.loader.LoadSource(rs.source),
	}
	rs.current.Store(snapshot)

	var errs []error
	for _, r := range snapshot.Results {
		if r.Result.Pie != nil {
			if err := rs.pies.Replace(ctx, SnapshotPies, r.Result.Pie); err != nil {
				errs = append(errs, err)
			}
		}
	}

	rs.logger.Info().
		Str("snapshot_id", snapshot.ID.String()).
		Str("source", rs.source).
		Int("patients", len(snapshot.Results)).
		Msg("patients loaded")
	if err := errors.Join(errs...); err != nil {
		return snapshot, fmt.Errorf("store pies: %w", err)
	}
	return snapshot, nil
}

// Snapshot returns the current snapshot, or nil before the first load.
func (rs *ReferenceRiskService) Snapshot() *Snapshot {
	return rs.current.Load()
}

func (rs *ReferenceRiskService) results() []plugin.PatientRisk {
	if s := rs.current.Load(); s != nil {
		return s.Results
	}
	return nil
}

// Patients returns the patients whose name, room or id contains query,
// ignoring case, in load order.  An empty query matches everyone.
func (rs *ReferenceRiskService) Patients(query string) []plugin.PatientRisk {
	return Search(rs.results(), query)
}

// Patient returns the first patient with the given id.
func (rs *ReferenceRiskService) Patient(id string) (plugin.PatientRisk, bool) {
	for _, r := range rs.results() {
		if r.ID() == id {
			return r, true
		}
	}
	return plugin.PatientRisk{}, false
}

// SelectBy finds the patient with the given name (ignoring case) in the given
// room.
func (rs *ReferenceRiskService) SelectBy(name, room string) (plugin.PatientRisk, bool) {
	for _, r := range rs.results() {
		if strings.EqualFold(r.Features.Name, name) && r.Features.Room == room {
			return r, true
		}
	}
	return plugin.PatientRisk{}, false
}

// Score scores an ad-hoc record without going through the loader.  Its pie is
// kept apart from the loaded patients' pies; only the pie of the latest score
// for a patient id is stored, so a cached result stores its pie again.
func (rs *ReferenceRiskService) Score(ctx context.Context, f plugin.FeatureRecord) (plugin.PatientRisk, error) {
	key := featuresKey(f)
	cached, ok, err := rs.cache.Get(ctx, key)
	if err != nil {
		rs.logger.Warn().Err(err).Str("patient_id", f.PatientID).Msg("result cache unavailable")
	} else if ok {
		if cached.Result.Pie != nil {
			if err := rs.pies.Replace(ctx, ScoredPies, cached.Result.Pie); err != nil {
				return cached, fmt.Errorf("store pie: %w", err)
			}
		}
		return cached, nil
	}

	result, err := rs.plugin.Calculate(f)
	if err != nil {
		return plugin.PatientRisk{}, err
	}
	scored := plugin.PatientRisk{Features: f, Result: result}
	if result.Pie != nil {
		if err := rs.pies.Replace(ctx, ScoredPies, result.Pie); err != nil {
			return scored, fmt.Errorf("store pie: %w", err)
		}
	}
	if err := rs.cache.Put(ctx, key, scored); err != nil {
		rs.logger.Warn().Err(err).Str("patient_id", f.PatientID).Msg("could not cache result")
	}
	return scored, nil
}

func (rs *ReferenceRiskService) Pie(ctx context.Context, id string) (*plugin.Pie, error) {
	return rs.pies.Get(ctx, id)
}

func (rs *ReferenceRiskService) Summary() Summary {
	summary := Summary{ByBand: map[string]int{
		plugin.BandLow.String():    0,
		plugin.BandMedium.String(): 0,
		plugin.BandHigh.String():   0,
	}}
	s := rs.current.Load()
	if s == nil {
		return summary
	}
	summary.SnapshotID = s.ID
	summary.LoadedAt = s.LoadedAt
	for _, r := range s.Results {
		summary.Total++
		summary.ByBand[r.Result.Band.String()]++
		if r.Result.IsFallback() {
			summary.Fallback++
		} else {
			summary.Computed++
		}
	}
	return summary
}

// Search filters results by a case-insensitive substring of name, room or
// patient id.  The query is used as given, so whitespace is significant.
func Search(results []plugin.PatientRisk, query string) []plugin.PatientRisk {
	query = strings.ToLower(query)
	if query == "" {
		return results
	}
	var matches []plugin.PatientRisk
	for _, r := range results {
		if strings.Contains(strings.ToLower(r.Features.Name), query) ||
			strings.Contains(strings.ToLower(r.Features.Room), query) ||
			strings.Contains(strings.ToLower(r.Features.PatientID), query) {
			matches = append(matches, r)
		}
	}
	return matches
}

func featuresKey(f plugin.FeatureRecord) string {
	nums := []float64{f.WeightKg, f.BMI, f.HbA1c, f.LastMedHours}
	parts := []string{"score", f.PatientID, f.Name, f.Room}
	for _, n := range nums {
		parts = append(parts, strconv.FormatFloat(n, 'g', -1, 64))
	}
	return strings.Join(parts, "|")
}
