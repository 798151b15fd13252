package poll

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IgorGolubovski01/Police-CAD-front/internal/metrics"
)

// Group is one refresh cadence: a named set of collections fetched together.
type Group struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)

	inFlight atomic.Bool
}

// TryTick runs the group once unless a previous run is still in flight, in
// which case the tick is dropped, never queued.
func (g *Group) TryTick(ctx context.Context) bool {
	if !g.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer g.inFlight.Store(false)
	g.Run(ctx)
	return true
}

// Scheduler drives the repeating refresh groups. Start launches one loop per
// group; Stop cancels every loop and waits for them. Runs that were already
// in flight at Stop complete, but their applies hit the store's liveness
// check and are discarded.
type Scheduler struct {
	groups  []*Group
	metrics *metrics.Metrics

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(m *metrics.Metrics, groups ...*Group) *Scheduler {
	return &Scheduler{groups: groups, metrics: m}
}

func (s *Scheduler) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	for _, g := range s.groups {
		s.wg.Add(1)
		go s.loop(ctx, g)
		log.Printf("poll: group %s every %s", g.Name, g.Interval)
	}
}

func (s *Scheduler) loop(ctx context.Context, g *Group) {
	defer s.wg.Done()

	// First cycle right away so the view is not empty for a full interval.
	g.TryTick(ctx)

	t := time.NewTicker(g.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				if ctx.Err() != nil {
					return
				}
				if !g.TryTick(ctx) {
					log.Printf("poll: %s tick skipped, previous still running", g.Name)
					s.metrics.TicksSkipped.WithLabelValues(g.Name).Inc()
				}
			}()
		}
	}
}

func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
