package feed

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/IgorGolubovski01/Police-CAD-front/internal/config"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/model"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/mutate"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/store"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/view"
)

// Server is the local render-target boundary: it publishes the projected
// marker set and snapshot views as JSON and forwards click-target actions to
// the mutation coordinator. No map widget or HTML lives here.
type Server struct {
	app   *fiber.App
	store *store.Store
	proj  *view.Projector
	coord *mutate.Coordinator
}

func New(cfg config.Feed, st *store.Store, proj *view.Projector, coord *mutate.Coordinator) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
	})
	s := &Server{app: app, store: st, proj: proj, coord: coord}
	s.routes()
	return s
}

func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }
func (s *Server) Shutdown() error          { return s.app.Shutdown() }

func (s *Server) routes() {
	s.app.Get("/v1/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	s.app.Get("/v1/markers", func(c *fiber.Ctx) error {
		snap := s.store.Snapshot()
		set, changed := s.proj.Refresh(snap)
		return c.JSON(fiber.Map{
			"count":   len(set),
			"changed": changed,
			"markers": set,
		})
	})

	s.app.Get("/v1/units", func(c *fiber.Ctx) error {
		snap := s.store.Snapshot()
		return c.JSON(fiber.Map{
			"loaded": snap.Loaded(store.Units),
			"count":  len(snap.Units),
			"items":  snap.Units,
		})
	})

	s.app.Get("/v1/units/available", func(c *fiber.Ctx) error {
		snap := s.store.Snapshot()
		items := snap.AvailableUnits()
		return c.JSON(fiber.Map{"count": len(items), "items": items})
	})

	s.app.Get("/v1/units/inaction", func(c *fiber.Ctx) error {
		snap := s.store.Snapshot()
		items := snap.InActionUnits()
		return c.JSON(fiber.Map{"count": len(items), "items": items})
	})

	s.app.Get("/v1/incidents", func(c *fiber.Ctx) error {
		snap := s.store.Snapshot()
		return c.JSON(fiber.Map{
			"loaded": snap.Loaded(store.Incidents),
			"count":  len(snap.Incidents),
			"items":  snap.Incidents,
		})
	})

	s.app.Get("/v1/records/search", func(c *fiber.Ctx) error {
		q := c.Query("q")
		items := s.store.Snapshot().SearchRecords(q)
		return c.JSON(fiber.Map{"query": q, "count": len(items), "items": items})
	})

	s.app.Post("/v1/incidents", func(c *fiber.Ctx) error {
		var draft model.IncidentDraft
		if err := c.BodyParser(&draft); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
		}
		if !model.ValidIncidentType(draft.IncidentType) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown incident type"})
		}
		return s.mutation(c, s.coord.CreateIncident(c.Context(), draft))
	})

	s.app.Post("/v1/units/:uid/incident/:iid", func(c *fiber.Ctx) error {
		unitID, err1 := c.ParamsInt("uid")
		incidentID, err2 := c.ParamsInt("iid")
		if err1 != nil || err2 != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad ids"})
		}
		return s.mutation(c, s.coord.AssignUnitToIncident(c.Context(), int64(unitID), int64(incidentID)))
	})

	s.app.Post("/v1/units/:uid/officer/:oid", func(c *fiber.Ctx) error {
		unitID, err1 := c.ParamsInt("uid")
		officerID, err2 := c.ParamsInt("oid")
		if err1 != nil || err2 != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad ids"})
		}
		return s.mutation(c, s.coord.AssignOfficerToUnit(c.Context(), int64(officerID), int64(unitID)))
	})

	s.app.Delete("/v1/officers/:oid", func(c *fiber.Ctx) error {
		officerID, err := c.ParamsInt("oid")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad id"})
		}
		return s.mutation(c, s.coord.DisengageOfficer(c.Context(), int64(officerID)))
	})

	s.app.Post("/v1/incidents/:iid/resolve/:uid", func(c *fiber.Ctx) error {
		incidentID, err1 := c.ParamsInt("iid")
		unitID, err2 := c.ParamsInt("uid")
		if err1 != nil || err2 != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad ids"})
		}
		var body struct {
			FinalReport string `json:"finalReport"`
		}
		if err := c.BodyParser(&body); err != nil || body.FinalReport == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "final report required"})
		}
		return s.mutation(c, s.coord.ResolveIncident(c.Context(), int64(incidentID), int64(unitID), body.FinalReport))
	})

	s.app.Post("/v1/units/:uid/record/:rid", func(c *fiber.Ctx) error {
		unitID, err1 := c.ParamsInt("uid")
		recordID, err2 := c.ParamsInt("rid")
		if err1 != nil || err2 != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad ids"})
		}
		return s.mutation(c, s.coord.SendRecord(c.Context(), int64(unitID), int64(recordID)))
	})
}

func (s *Server) mutation(c *fiber.Ctx, err error) error {
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"status": "ok"})
	case errors.Is(err, mutate.ErrBusy):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
}
