package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IgorGolubovski01/Police-CAD-front/internal/api"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/config"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/engine"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/feed"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/metrics"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/model"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/mutate"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/poll"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/store"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/view"
)

// Version is set at build time via -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	cfgPath := flag.String("config", "config.yml", "path to YAML config")
	flag.Parse()

	log.Printf("dispatch-client %s starting...", Version)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := api.New(cfg.API, cfg.Auth.Username, cfg.Auth.Password)

	loginCtx, loginCancel := context.WithTimeout(ctx, 10*time.Second)
	user, err := client.Login(loginCtx)
	loginCancel()
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	log.Printf("logged in as %s (%s)", user.Username, user.Role)

	m := metrics.New(prometheus.NewRegistry())
	st := store.New()
	eng := engine.New(client, st, m, user, engine.StaticLocation{Lat: cfg.Unit.Lat, Lon: cfg.Unit.Lon})
	proj := view.NewProjector(m)
	coord := mutate.NewCoordinator(client, eng, m, mutate.LogNotifier{})

	// The session role decides which poll groups run: dispatchers watch
	// everything, field units self-report their position, admins only see
	// the slow full lists.
	var groups []*poll.Group
	slow := &poll.Group{Name: "slow", Interval: cfg.Poll.Slow, Run: eng.SlowTick}
	fast := &poll.Group{Name: "fast", Interval: cfg.Poll.Fast, Run: eng.FastTick}
	location := &poll.Group{Name: "location", Interval: cfg.Poll.Location, Run: eng.ReportLocation}
	switch user.Role {
	case model.RoleDispatcher:
		groups = []*poll.Group{slow, fast}
	case model.RoleUnit:
		groups = []*poll.Group{slow, location}
	case model.RoleAdmin:
		groups = []*poll.Group{slow}
	default:
		log.Fatalf("unknown role: %s", user.Role)
	}

	sched := poll.NewScheduler(m, groups...)
	sched.Start(ctx)

	feedSrv := feed.New(cfg.Feed, st, proj, coord)
	go func() {
		log.Printf("feed listening on %s", cfg.Feed.ListenAddress)
		if err := feedSrv.Listen(cfg.Feed.ListenAddress); err != nil {
			log.Printf("feed server: %v", err)
		}
	}()

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.ListenAddress, Handler: mux}
		go func() {
			log.Printf("serving /metrics on %s", cfg.Metrics.ListenAddress)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Println("shutting down...")
	sched.Stop()
	st.Close()
	if err := feedSrv.Shutdown(); err != nil {
		log.Printf("feed shutdown: %v", err)
	}
	if metricsSrv != nil {
		shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsSrv.Shutdown(shutdownCtx)
		cancel2()
	}
}
