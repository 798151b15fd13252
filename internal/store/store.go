package store

import (
	"sync"

	"github.com/IgorGolubovski01/Police-CAD-front/internal/model"
)

// Collection names the independently fetched entity sets.
type Collection string

const (
	Units             Collection = "units"
	Incidents         Collection = "incidents"
	Records           Collection = "records"
	AvailableOfficers Collection = "available_officers"
	Relations         Collection = "relations"
)

// Store holds the latest known snapshot of every collection plus the derived
// indexes built from the relation and roster feeds. It is the only shared
// mutable state in the client; everything goes through the mutex.
//
// Collections use full-replacement semantics: the service has no partial
// updates, so a deletion is visible only as absence from a later fetch.
// Callers that failed to fetch simply do not call Replace*, which is what
// keeps a read fault from corrupting the previous value.
type Store struct {
	mu     sync.RWMutex
	closed bool

	units             []model.Unit
	incidents         []model.Incident
	records           []model.Record
	availableOfficers []model.Officer

	activeIncidentByUnit map[int64]int64
	officersByUnit       map[int64][]model.Officer
	unitsByIncident      map[int64][]model.Unit
	loaded               map[Collection]bool
	version              uint64
}

func New() *Store {
	return &Store{
		activeIncidentByUnit: make(map[int64]int64),
		officersByUnit:       make(map[int64][]model.Officer),
		unitsByIncident:      make(map[int64][]model.Unit),
		loaded:               make(map[Collection]bool),
	}
}

// Close marks the store torn down. Later applies are silent no-ops; poll
// completions that raced teardown land here harmlessly.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Store) ReplaceUnits(units []model.Unit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if unitsChanged(s.units, units) {
		s.version++
	}
	s.units = append([]model.Unit(nil), units...)
	s.loaded[Units] = true
}

func (s *Store) ReplaceIncidents(incidents []model.Incident) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if incidentsChanged(s.incidents, incidents) {
		s.version++
	}
	s.incidents = append([]model.Incident(nil), incidents...)
	s.loaded[Incidents] = true
}

func (s *Store) ReplaceRecords(records []model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.records = append([]model.Record(nil), records...)
	s.loaded[Records] = true
}

func (s *Store) ReplaceAvailableOfficers(officers []model.Officer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.availableOfficers = append([]model.Officer(nil), officers...)
	s.loaded[AvailableOfficers] = true
}

// ApplyRelations rebuilds the unit->incident active index from scratch, in
// feed order. Later entries for the same unit win; an inactive relation
// clears any earlier active one in the same batch.
func (s *Store) ApplyRelations(rels []model.Relation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	idx := make(map[int64]int64, len(rels))
	for _, r := range rels {
		if r.Active {
			idx[r.UnitID] = r.IncidentID
		} else {
			delete(idx, r.UnitID)
		}
	}
	if !int64MapsEqual(s.activeIncidentByUnit, idx) {
		s.version++
	}
	s.activeIncidentByUnit = idx
	s.loaded[Relations] = true
}

// SetUnitOfficers overwrites one unit's roster with the authoritative fetch.
// Overwrite, never merge: optimistic local officer changes are expected to
// be clobbered here.
func (s *Store) SetUnitOfficers(unitID int64, officers []model.Officer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if len(s.officersByUnit[unitID]) != len(officers) {
		s.version++
	}
	s.officersByUnit[unitID] = append([]model.Officer(nil), officers...)
}

// SetIncidentUnits overwrites the assigned-units view for one incident.
func (s *Store) SetIncidentUnits(incidentID int64, units []model.Unit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.unitsByIncident[incidentID] = append([]model.Unit(nil), units...)
}

func (s *Store) Loaded(c Collection) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded[c]
}

func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Change detection is a cheap field comparison over identity-relevant data,
// not a deep diff. It only drives the "does the map need a rebuild" signal,
// so false positives are tolerable and false negatives are not.

func unitsChanged(old, new []model.Unit) bool {
	if len(old) != len(new) {
		return true
	}
	byID := make(map[int64]model.Unit, len(old))
	for _, u := range old {
		byID[u.ID] = u
	}
	for _, u := range new {
		prev, ok := byID[u.ID]
		if !ok || prev.Lat != u.Lat || prev.Lon != u.Lon || prev.Status != u.Status || prev.CallSign != u.CallSign {
			return true
		}
	}
	return false
}

func incidentsChanged(old, new []model.Incident) bool {
	if len(old) != len(new) {
		return true
	}
	byID := make(map[int64]model.Incident, len(old))
	for _, in := range old {
		byID[in.ID] = in
	}
	for _, in := range new {
		prev, ok := byID[in.ID]
		if !ok || prev.Lat != in.Lat || prev.Lon != in.Lon || prev.Resolved() != in.Resolved() {
			return true
		}
	}
	return false
}

func int64MapsEqual(a, b map[int64]int64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
