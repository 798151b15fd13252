package mutate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/IgorGolubovski01/Police-CAD-front/internal/api"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/engine"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/metrics"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/model"
)

// Kind identifies one mutation shape. Each kind is single-flight: a second
// submission while one is pending is rejected, not queued.
type Kind string

const (
	KindCreateIncident   Kind = "create_incident"
	KindAssignUnit       Kind = "assign_unit"
	KindAssignOfficer    Kind = "assign_officer"
	KindDisengageOfficer Kind = "disengage_officer"
	KindResolveIncident  Kind = "resolve_incident"
	KindSendRecord       Kind = "send_record"
)

// Phase tracks the per-kind state machine:
// IDLE -> SUBMITTING -> {REFRESHING -> IDLE} | IDLE.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseRefreshing
)

var ErrBusy = errors.New("mutation already in flight")

// Notifier receives the single user-facing outcome of each mutation.
type Notifier interface {
	Notify(kind Kind, correlation string, err error, msg string)
}

type LogNotifier struct{}

func (LogNotifier) Notify(kind Kind, correlation string, err error, msg string) {
	if err != nil {
		log.Printf("mutation %s [%s]: %s: %v", kind, correlation, msg, err)
		return
	}
	log.Printf("mutation %s [%s]: %s", kind, correlation, msg)
}

// Coordinator executes every user-initiated state change as a
// write-then-targeted-refresh pair. No optimistic local state is ever
// applied: on failure the store is untouched, on success the affected
// collections are re-fetched before control returns, so the view never
// shows a stale frame between the mutation and the next scheduled poll.
type Coordinator struct {
	api     *api.Client
	engine  *engine.Engine
	metrics *metrics.Metrics
	notify  Notifier

	mu    sync.Mutex
	phase map[Kind]Phase
}

func NewCoordinator(client *api.Client, eng *engine.Engine, m *metrics.Metrics, notify Notifier) *Coordinator {
	if notify == nil {
		notify = LogNotifier{}
	}
	return &Coordinator{
		api:     client,
		engine:  eng,
		metrics: m,
		notify:  notify,
		phase:   make(map[Kind]Phase),
	}
}

// Phase reports the current state for one kind; UIs use it to disable the
// corresponding control while a submission is pending.
func (c *Coordinator) Phase(k Kind) Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase[k]
}

func (c *Coordinator) begin(k Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase[k] != PhaseIdle {
		return ErrBusy
	}
	c.phase[k] = PhaseSubmitting
	return nil
}

func (c *Coordinator) setPhase(k Kind, p Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase[k] = p
}

func (c *Coordinator) run(ctx context.Context, k Kind, failMsg, okMsg string, write func(context.Context) error, refresh func(context.Context)) error {
	if err := c.begin(k); err != nil {
		return err
	}
	defer c.setPhase(k, PhaseIdle)

	correlation := uuid.NewString()
	if err := write(ctx); err != nil {
		c.metrics.Mutations.WithLabelValues(string(k), "error").Inc()
		c.notify.Notify(k, correlation, err, failMsg)
		return fmt.Errorf("%s: %w", failMsg, err)
	}

	c.setPhase(k, PhaseRefreshing)
	refresh(ctx)
	c.metrics.Mutations.WithLabelValues(string(k), "ok").Inc()
	c.notify.Notify(k, correlation, nil, okMsg)
	return nil
}

func (c *Coordinator) CreateIncident(ctx context.Context, draft model.IncidentDraft) error {
	return c.run(ctx, KindCreateIncident,
		"address could not be resolved",
		"incident created",
		func(ctx context.Context) error {
			_, err := c.api.CreateIncident(ctx, draft)
			return err
		},
		func(ctx context.Context) {
			c.engine.RefreshIncidents(ctx)
		})
}

func (c *Coordinator) AssignUnitToIncident(ctx context.Context, unitID, incidentID int64) error {
	return c.run(ctx, KindAssignUnit,
		"could not assign unit to incident",
		fmt.Sprintf("unit %d assigned to incident %d", unitID, incidentID),
		func(ctx context.Context) error {
			return c.api.AssignUnitToIncident(ctx, unitID, incidentID)
		},
		func(ctx context.Context) {
			c.engine.RefreshIncidents(ctx)
			c.engine.RefreshUnits(ctx)
			c.engine.RefreshRelations(ctx)
			c.engine.RefreshUnitOfficers(ctx, unitID)
			c.engine.RefreshIncidentUnits(ctx, incidentID)
		})
}

func (c *Coordinator) AssignOfficerToUnit(ctx context.Context, officerID, unitID int64) error {
	return c.run(ctx, KindAssignOfficer,
		"could not assign officer to unit",
		fmt.Sprintf("officer %d assigned to unit %d", officerID, unitID),
		func(ctx context.Context) error {
			return c.api.AssignOfficerToUnit(ctx, officerID, unitID)
		},
		func(ctx context.Context) {
			c.engine.RefreshAvailableOfficers(ctx)
			c.engine.RefreshUnitOfficers(ctx, unitID)
			c.engine.RefreshUnits(ctx)
		})
}

// DisengageOfficer does not know which unit the officer leaves, so every
// known roster is re-fetched along with the availability pool.
func (c *Coordinator) DisengageOfficer(ctx context.Context, officerID int64) error {
	return c.run(ctx, KindDisengageOfficer,
		"could not disengage officer",
		fmt.Sprintf("officer %d disengaged", officerID),
		func(ctx context.Context) error {
			return c.api.DisengageOfficer(ctx, officerID)
		},
		func(ctx context.Context) {
			c.engine.RefreshAvailableOfficers(ctx)
			c.engine.FastTick(ctx)
		})
}

func (c *Coordinator) ResolveIncident(ctx context.Context, incidentID, unitID int64, report string) error {
	return c.run(ctx, KindResolveIncident,
		"could not resolve incident",
		fmt.Sprintf("incident %d resolved", incidentID),
		func(ctx context.Context) error {
			return c.api.ResolveIncident(ctx, incidentID, unitID, report)
		},
		func(ctx context.Context) {
			c.engine.RefreshIncidents(ctx)
			c.engine.RefreshUnits(ctx)
			c.engine.RefreshRelations(ctx)
		})
}

func (c *Coordinator) SendRecord(ctx context.Context, unitID, recordID int64) error {
	return c.run(ctx, KindSendRecord,
		"could not send record",
		fmt.Sprintf("record %d sent to unit %d", recordID, unitID),
		func(ctx context.Context) error {
			return c.api.SendRecord(ctx, unitID, recordID)
		},
		func(ctx context.Context) {
			c.engine.RefreshRecords(ctx)
		})
}
