package mutate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IgorGolubovski01/Police-CAD-front/internal/api"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/config"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/engine"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/metrics"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/model"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// fakeCAD is a minimal stateful dispatch service: assignments flip unit
// status and grow the relation feed, disengagements move officers back to
// the availability pool.
type fakeCAD struct {
	mu        sync.Mutex
	units     map[int64]*model.Unit
	incidents map[int64]*model.Incident
	relations []model.Relation
	rosters   map[int64][]model.Officer
	available []model.Officer

	failWrites bool
	onWrite    func() // optional hook, called with the lock held
}

func (f *fakeCAD) handler() http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("/unit/getAllUnits", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := make([]model.Unit, 0, len(f.units))
		for _, u := range f.units {
			out = append(out, *u)
		}
		writeJSON(w, out)
	})
	mux.HandleFunc("/dispatcher/getAllIncidents", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := make([]model.Incident, 0, len(f.incidents))
		for _, in := range f.incidents {
			out = append(out, *in)
		}
		writeJSON(w, out)
	})
	mux.HandleFunc("/dispatcher/getUnitIncidentRelations", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		type flat struct {
			UnitID     int64 `json:"unitId"`
			IncidentID int64 `json:"incidentId"`
			Active     bool  `json:"active"`
		}
		out := make([]flat, 0, len(f.relations))
		for _, rel := range f.relations {
			out = append(out, flat{rel.UnitID, rel.IncidentID, rel.Active})
		}
		writeJSON(w, out)
	})
	mux.HandleFunc("/dispatcher/getAvailableOfficers", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, f.available)
	})
	mux.HandleFunc("/dispatcher/getUnitOfficers/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		unitID, _ := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/dispatcher/getUnitOfficers/"), 10, 64)
		writeJSON(w, f.rosters[unitID])
	})
	mux.HandleFunc("/dispatcher/getIncidentAssignedUnits/incident/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []model.Unit{})
	})
	mux.HandleFunc("/dispatcher/getAllRecords", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []model.Record{})
	})
	mux.HandleFunc("/dispatcher/unit/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.onWrite != nil {
			f.onWrite()
		}
		if f.failWrites {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/dispatcher/unit/"), "/")
		if len(parts) == 3 && parts[1] == "incident" {
			unitID, _ := strconv.ParseInt(parts[0], 10, 64)
			incidentID, _ := strconv.ParseInt(parts[2], 10, 64)
			f.units[unitID].Status = model.UnitInAction
			f.relations = append(f.relations, model.Relation{UnitID: unitID, IncidentID: incidentID, Active: true})
		}
		writeJSON(w, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/dispatcher/disengageOfficer/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failWrites {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		officerID, _ := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/dispatcher/disengageOfficer/"), 10, 64)
		for unitID, roster := range f.rosters {
			kept := roster[:0]
			for _, o := range roster {
				if o.ID == officerID {
					f.available = append(f.available, o)
					continue
				}
				kept = append(kept, o)
			}
			f.rosters[unitID] = kept
		}
		writeJSON(w, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/dispatcher/createIncident", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failWrites {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		in := &model.Incident{ID: int64(len(f.incidents) + 100), Lat: "44.81", Lon: "20.46"}
		f.incidents[in.ID] = in
		writeJSON(w, in)
	})
	return mux
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	errs  []error
}

func (n *recordingNotifier) Notify(kind Kind, correlation string, err error, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, string(kind)+": "+msg)
	n.errs = append(n.errs, err)
}

func setup(t *testing.T, f *fakeCAD) (*Coordinator, *store.Store, *engine.Engine, *recordingNotifier) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	client := api.New(config.API{BaseURL: srv.URL, Timeout: 2 * time.Second, MaxRetries: 1}, "disp1", "secret")
	st := store.New()
	eng := engine.New(client, st, metrics.New(prometheus.NewRegistry()),
		model.ActiveUser{ID: 9, Role: model.RoleDispatcher}, engine.StaticLocation{})
	notifier := &recordingNotifier{}
	return NewCoordinator(client, eng, metrics.New(prometheus.NewRegistry()), notifier), st, eng, notifier
}

func dispatchFake() *fakeCAD {
	return &fakeCAD{
		units: map[int64]*model.Unit{
			1: {ID: 1, CallSign: "Alpha-1", Lat: 44.8, Lon: 20.4, Status: model.UnitSafe},
		},
		incidents: map[int64]*model.Incident{
			7: {ID: 7, IncidentType: "ROBBERY", Lat: "44.81", Lon: "20.46"},
		},
		rosters: map[int64][]model.Officer{
			1: {{ID: 3, Name: "Reed"}, {ID: 4, Name: "Malloy"}},
		},
	}
}

func TestAssignUnitEndToEnd(t *testing.T) {
	f := dispatchFake()
	coord, st, eng, _ := setup(t, f)
	ctx := context.Background()

	eng.SlowTick(ctx)
	eng.FastTick(ctx)

	avail := st.Snapshot().AvailableUnits()
	if len(avail) != 1 || avail[0].ID != 1 {
		t.Fatalf("precondition: unit 1 should be available, got %+v", avail)
	}

	if err := coord.AssignUnitToIncident(ctx, 1, 7); err != nil {
		t.Fatalf("assign: %v", err)
	}

	snap := st.Snapshot()
	var u1 model.Unit
	for _, u := range snap.Units {
		if u.ID == 1 {
			u1 = u
		}
	}
	if u1.Status != model.UnitInAction {
		t.Errorf("targeted refresh did not pick up status flip: %s", u1.Status)
	}
	if id, ok := snap.ActiveIncident(1); !ok || id != 7 {
		t.Errorf("derived index should map unit 1 -> incident 7, got %d ok=%v", id, ok)
	}
	if len(snap.AvailableUnits()) != 0 {
		t.Errorf("assigned unit still listed as available: %+v", snap.AvailableUnits())
	}
}

func TestDisengageLastOfficerZeroesCount(t *testing.T) {
	f := dispatchFake()
	f.rosters[1] = []model.Officer{{ID: 3, Name: "Reed"}}
	f.units[1].Status = model.UnitInAction
	coord, st, eng, _ := setup(t, f)
	ctx := context.Background()

	eng.SlowTick(ctx)
	eng.FastTick(ctx)
	if st.Snapshot().OfficerCount(1) != 1 {
		t.Fatal("precondition: unit 1 should have one officer")
	}

	if err := coord.DisengageOfficer(ctx, 3); err != nil {
		t.Fatalf("disengage: %v", err)
	}

	snap := st.Snapshot()
	if snap.OfficerCount(1) != 0 {
		t.Errorf("officer count should drop to 0, got %d", snap.OfficerCount(1))
	}
	if len(snap.AvailableUnits()) != 0 {
		t.Error("unit with no officers must not appear in officer-count>0 views")
	}
	found := false
	for _, o := range snap.AvailableOfficers {
		if o.ID == 3 {
			found = true
		}
	}
	if !found {
		t.Error("disengaged officer should be back in the availability pool")
	}
}

func TestWriteFailureLeavesStoreUntouched(t *testing.T) {
	f := dispatchFake()
	coord, st, eng, notifier := setup(t, f)
	ctx := context.Background()
	eng.SlowTick(ctx)
	before := st.Version()

	f.mu.Lock()
	f.failWrites = true
	f.mu.Unlock()

	err := coord.AssignUnitToIncident(ctx, 1, 7)
	if err == nil {
		t.Fatal("expected write failure")
	}
	if errors.Is(err, ErrBusy) {
		t.Fatal("failure must not masquerade as busy")
	}
	if st.Version() != before {
		t.Error("failed mutation changed the store")
	}
	if len(notifier.calls) != 1 || notifier.errs[0] == nil {
		t.Errorf("expected exactly one failure notification, got %v", notifier.calls)
	}
	if coord.Phase(KindAssignUnit) != PhaseIdle {
		t.Error("machine did not return to idle after failure")
	}
}

func TestSameKindSingleFlight(t *testing.T) {
	f := dispatchFake()
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.onWrite = func() {
		once.Do(func() { close(entered) })
		f.mu.Unlock()
		<-release
		f.mu.Lock()
	}
	coord, _, _, _ := setup(t, f)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- coord.AssignUnitToIncident(ctx, 1, 7) }()
	<-entered

	if err := coord.AssignUnitToIncident(ctx, 1, 7); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent same-kind submission should be rejected, got %v", err)
	}
	// A different kind is independent.
	if err := coord.CreateIncident(ctx, model.IncidentDraft{Description: "x", Address: "y", IncidentType: "ASSAULT"}); err != nil {
		t.Errorf("different kind should not be blocked: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	if coord.Phase(KindAssignUnit) != PhaseIdle {
		t.Error("machine not idle after completion")
	}
}

func TestCreateIncidentRefreshesIncidents(t *testing.T) {
	f := dispatchFake()
	coord, st, eng, notifier := setup(t, f)
	ctx := context.Background()
	eng.SlowTick(ctx)
	if len(st.Snapshot().Incidents) != 1 {
		t.Fatal("precondition: one seeded incident")
	}

	draft := model.IncidentDraft{Description: "break-in", Address: "Main St 5", IncidentType: "BURGLARY"}
	if err := coord.CreateIncident(ctx, draft); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(st.Snapshot().Incidents) != 2 {
		t.Error("targeted refresh after create did not land")
	}
	if len(notifier.calls) != 1 || notifier.errs[0] != nil {
		t.Errorf("expected one success notification, got %v", notifier.calls)
	}
}
