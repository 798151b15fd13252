package engine

import (
	"context"
	"log"
	"time"

	"github.com/IgorGolubovski01/Police-CAD-front/internal/api"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/metrics"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/model"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/store"
)

// LocationSource abstracts position acquisition, which is an external
// collaborator. The binary wires a config-seeded static source.
type LocationSource interface {
	Current(ctx context.Context) (lat, lon float64, err error)
}

type StaticLocation struct {
	Lat float64
	Lon float64
}

func (s StaticLocation) Current(context.Context) (float64, float64, error) {
	return s.Lat, s.Lon, nil
}

// Engine runs the fetch-and-apply cycles. Every collection refresh is
// fail-soft: on error it logs, counts, and leaves the store untouched, so a
// partial feed failure never clears previously known data.
type Engine struct {
	api     *api.Client
	store   *store.Store
	metrics *metrics.Metrics
	user    model.ActiveUser
	loc     LocationSource
}

func New(client *api.Client, st *store.Store, m *metrics.Metrics, user model.ActiveUser, loc LocationSource) *Engine {
	return &Engine{api: client, store: st, metrics: m, user: user, loc: loc}
}

// observe records the outcome of one collection fetch and reports whether
// the apply should proceed.
func (e *Engine) observe(collection string, start time.Time, err error) bool {
	e.metrics.FetchDuration.WithLabelValues(collection).Observe(time.Since(start).Seconds())
	if err != nil {
		e.metrics.FetchTotal.WithLabelValues(collection, "error").Inc()
		log.Printf("fetch %s: %v", collection, err)
		return false
	}
	e.metrics.FetchTotal.WithLabelValues(collection, "ok").Inc()
	e.metrics.LastSuccess.WithLabelValues(collection).Set(float64(time.Now().Unix()))
	return true
}

func (e *Engine) RefreshUnits(ctx context.Context) {
	start := time.Now()
	units, err := e.api.Units(ctx)
	if !e.observe(string(store.Units), start, err) {
		return
	}
	e.store.ReplaceUnits(units)
}

func (e *Engine) RefreshIncidents(ctx context.Context) {
	start := time.Now()
	incidents, err := e.api.Incidents(ctx)
	if !e.observe(string(store.Incidents), start, err) {
		return
	}
	e.store.ReplaceIncidents(incidents)
}

func (e *Engine) RefreshRelations(ctx context.Context) {
	start := time.Now()
	rels, err := e.api.Relations(ctx)
	if !e.observe(string(store.Relations), start, err) {
		return
	}
	e.store.ApplyRelations(rels)
}

func (e *Engine) RefreshAvailableOfficers(ctx context.Context) {
	start := time.Now()
	officers, err := e.api.AvailableOfficers(ctx)
	if !e.observe(string(store.AvailableOfficers), start, err) {
		return
	}
	e.store.ReplaceAvailableOfficers(officers)
}

func (e *Engine) RefreshUnitOfficers(ctx context.Context, unitID int64) {
	start := time.Now()
	officers, err := e.api.UnitOfficers(ctx, unitID)
	if !e.observe("unit_officers", start, err) {
		return
	}
	e.store.SetUnitOfficers(unitID, officers)
}

func (e *Engine) RefreshIncidentUnits(ctx context.Context, incidentID int64) {
	start := time.Now()
	units, err := e.api.IncidentAssignedUnits(ctx, incidentID)
	if !e.observe("incident_units", start, err) {
		return
	}
	e.store.SetIncidentUnits(incidentID, units)
}

// RefreshRecords fetches the record set visible to the session's role: the
// full civilian registry for dispatchers, the unit's own inbox otherwise.
func (e *Engine) RefreshRecords(ctx context.Context) {
	start := time.Now()
	var (
		records []model.Record
		err     error
	)
	if e.user.Role == model.RoleUnit {
		records, err = e.api.UnitRecords(ctx, e.user.ID)
	} else {
		records, err = e.api.AllRecords(ctx)
	}
	if !e.observe(string(store.Records), start, err) {
		return
	}
	e.store.ReplaceRecords(records)
}

// SlowTick refreshes the full lists.
func (e *Engine) SlowTick(ctx context.Context) {
	e.RefreshUnits(ctx)
	e.RefreshIncidents(ctx)
	e.RefreshRecords(ctx)
}

// FastTick refreshes the live relation and officer state. Rosters are
// re-fetched for every known unit so counts converge quickly after
// deployments and disengagements.
func (e *Engine) FastTick(ctx context.Context) {
	e.RefreshRelations(ctx)
	e.RefreshAvailableOfficers(ctx)
	for _, u := range e.store.Snapshot().Units {
		e.RefreshUnitOfficers(ctx, u.ID)
	}
}

// ReportLocation posts the unit's own position. Failures are logged and
// swallowed; the location loop must never stall on a bad report.
func (e *Engine) ReportLocation(ctx context.Context) {
	lat, lon, err := e.loc.Current(ctx)
	if err != nil {
		log.Printf("location source: %v", err)
		return
	}
	if err := e.api.ReportLocation(ctx, e.user.ID, lat, lon); err != nil {
		log.Printf("%v", err)
	}
}
