package store

import (
	"strings"

	"github.com/IgorGolubovski01/Police-CAD-front/internal/model"
)

// Snapshot is a consistent copy of the store at one point in time. It is
// safe to read without holding the store's lock.
type Snapshot struct {
	Units             []model.Unit
	Incidents         []model.Incident
	Records           []model.Record
	AvailableOfficers []model.Officer

	ActiveIncidentByUnit map[int64]int64
	OfficersByUnit       map[int64][]model.Officer
	UnitsByIncident      map[int64][]model.Unit
	LoadedSet            map[Collection]bool

	Version uint64
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Units:                append([]model.Unit(nil), s.units...),
		Incidents:            append([]model.Incident(nil), s.incidents...),
		Records:              append([]model.Record(nil), s.records...),
		AvailableOfficers:    append([]model.Officer(nil), s.availableOfficers...),
		ActiveIncidentByUnit: make(map[int64]int64, len(s.activeIncidentByUnit)),
		OfficersByUnit:       make(map[int64][]model.Officer, len(s.officersByUnit)),
		UnitsByIncident:      make(map[int64][]model.Unit, len(s.unitsByIncident)),
		LoadedSet:            make(map[Collection]bool, len(s.loaded)),
		Version:              s.version,
	}
	for k, v := range s.activeIncidentByUnit {
		snap.ActiveIncidentByUnit[k] = v
	}
	for k, v := range s.officersByUnit {
		snap.OfficersByUnit[k] = append([]model.Officer(nil), v...)
	}
	for k, v := range s.unitsByIncident {
		snap.UnitsByIncident[k] = append([]model.Unit(nil), v...)
	}
	for k, v := range s.loaded {
		snap.LoadedSet[k] = v
	}
	return snap
}

// Loaded distinguishes "legitimately empty" from "never fetched".
func (s Snapshot) Loaded(c Collection) bool { return s.LoadedSet[c] }

// ActiveIncident resolves the derived unit->incident index.
func (s Snapshot) ActiveIncident(unitID int64) (int64, bool) {
	id, ok := s.ActiveIncidentByUnit[unitID]
	return id, ok
}

func (s Snapshot) OfficerCount(unitID int64) int {
	return len(s.OfficersByUnit[unitID])
}

// AvailableUnits are dispatchable: SAFE with at least one officer aboard.
func (s Snapshot) AvailableUnits() []model.Unit {
	out := make([]model.Unit, 0, len(s.Units))
	for _, u := range s.Units {
		if u.Status == model.UnitSafe && s.OfficerCount(u.ID) > 0 {
			out = append(out, u)
		}
	}
	return out
}

func (s Snapshot) InActionUnits() []model.Unit {
	out := make([]model.Unit, 0, len(s.Units))
	for _, u := range s.Units {
		if u.Status == model.UnitInAction {
			out = append(out, u)
		}
	}
	return out
}

// SearchRecords filters records by a case-insensitive substring match on
// full name or address. An empty query matches nothing.
func (s Snapshot) SearchRecords(query string) []model.Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	out := make([]model.Record, 0)
	for _, r := range s.Records {
		if strings.Contains(strings.ToLower(r.FullName), q) || strings.Contains(strings.ToLower(r.Address), q) {
			out = append(out, r)
		}
	}
	return out
}
