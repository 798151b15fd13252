package view

import (
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/IgorGolubovski01/Police-CAD-front/internal/metrics"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/model"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/store"
)

type Kind string

const (
	KindUnit     Kind = "unit"
	KindIncident Kind = "incident"
)

// Status classes mirror the map styling hooks.
const (
	ClassUnitSafe   = "unit-status-safe"
	ClassUnitAction = "unit-status-action"
	ClassIncident   = "incident"
)

// Marker is one render-ready map entity. Action is an opaque click-target
// token consumed by whatever drives the mutation coordinator; it carries no
// map-library specifics.
type Marker struct {
	ID     string  `json:"id"`
	Kind   Kind    `json:"kind"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Label  string  `json:"label"`
	Class  string  `json:"class"`
	Popup  string  `json:"popup,omitempty"`
	Action string  `json:"action,omitempty"`
}

// MarkerSet is keyed by marker id so identity survives refetch reordering.
type MarkerSet map[string]Marker

func (m MarkerSet) Equal(other MarkerSet) bool {
	if len(m) != len(other) {
		return false
	}
	for id, mk := range m {
		if other[id] != mk {
			return false
		}
	}
	return true
}

// Project converts a snapshot into its marker set. It is a pure function of
// the snapshot: projecting the same snapshot twice yields equal sets.
func Project(snap store.Snapshot) MarkerSet {
	set, _ := project(snap)
	return set
}

func project(snap store.Snapshot) (MarkerSet, int) {
	out := make(MarkerSet, len(snap.Units)+len(snap.Incidents))
	dropped := 0

	for _, u := range snap.Units {
		class := ClassUnitSafe
		if u.Status == model.UnitInAction {
			class = ClassUnitAction
		}
		label := u.CallSign
		if incidentID, ok := snap.ActiveIncident(u.ID); ok {
			label = fmt.Sprintf("%s [incident %d]", u.CallSign, incidentID)
		}
		id := fmt.Sprintf("unit-%d", u.ID)
		out[id] = Marker{
			ID:    id,
			Kind:  KindUnit,
			Lat:   u.Lat,
			Lon:   u.Lon,
			Label: label,
			Class: class,
			Popup: u.CallSign,
		}
	}

	for _, in := range snap.Incidents {
		if in.Resolved() {
			continue
		}
		lat, latErr := strconv.ParseFloat(in.Lat, 64)
		lon, lonErr := strconv.ParseFloat(in.Lon, 64)
		if latErr != nil || lonErr != nil {
			// Malformed coordinates drop the incident from this projection
			// only; the stored collection keeps it.
			log.Printf("projector: incident %d has unparseable coordinates (%q, %q), skipped", in.ID, in.Lat, in.Lon)
			dropped++
			continue
		}
		id := fmt.Sprintf("incident-%d", in.ID)
		out[id] = Marker{
			ID:     id,
			Kind:   KindIncident,
			Lat:    lat,
			Lon:    lon,
			Label:  fmt.Sprintf("%s #%d", in.IncidentType, in.ID),
			Class:  ClassIncident,
			Popup:  fmt.Sprintf("%s\n%s\n%s", in.IncidentType, in.Description, in.Address),
			Action: fmt.Sprintf("assign-unit:%d", in.ID),
		}
	}
	return out, dropped
}

// Projector caches the last projection so the render target is only told to
// rebuild when the marker set actually changed.
type Projector struct {
	metrics *metrics.Metrics

	mu          sync.Mutex
	last        MarkerSet
	lastVersion uint64
}

func NewProjector(m *metrics.Metrics) *Projector {
	return &Projector{metrics: m}
}

// Refresh projects the snapshot and reports whether the set changed since
// the previous call. Unchanged store versions short-circuit the projection
// entirely.
func (p *Projector) Refresh(snap store.Snapshot) (MarkerSet, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last != nil && snap.Version == p.lastVersion {
		return p.last, false
	}
	set, dropped := project(snap)
	if dropped > 0 {
		p.metrics.MarkersDropped.Add(float64(dropped))
	}
	p.lastVersion = snap.Version
	if p.last != nil && set.Equal(p.last) {
		p.last = set
		return set, false
	}
	p.last = set
	p.metrics.MapRebuilds.Inc()
	return set, true
}
