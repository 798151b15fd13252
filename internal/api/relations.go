package api

import (
	"context"

	"github.com/IgorGolubovski01/Police-CAD-front/internal/model"
)

// The relation feed is polymorphic: some deployments return flat
// unitId/incidentId fields, others nest the full entities. Both collapse to
// model.Relation here; the dual shape never crosses this boundary.
type rawRelation struct {
	UnitID     *int64 `json:"unitId"`
	IncidentID *int64 `json:"incidentId"`
	Unit       *idRef `json:"unit"`
	Incident   *idRef `json:"incident"`
	Active     *bool  `json:"active"`
}

type idRef struct {
	ID int64 `json:"id"`
}

func (r rawRelation) normalize() (model.Relation, bool) {
	// A missing active flag means active.
	rel := model.Relation{Active: r.Active == nil || *r.Active}
	switch {
	case r.UnitID != nil:
		rel.UnitID = *r.UnitID
	case r.Unit != nil:
		rel.UnitID = r.Unit.ID
	default:
		return model.Relation{}, false
	}
	switch {
	case r.IncidentID != nil:
		rel.IncidentID = *r.IncidentID
	case r.Incident != nil:
		rel.IncidentID = r.Incident.ID
	default:
		return model.Relation{}, false
	}
	return rel, true
}

// Relations fetches the unit<->incident assignment feed in canonical form,
// preserving feed order. Records without identifiable unit and incident ids
// are skipped.
func (c *Client) Relations(ctx context.Context) ([]model.Relation, error) {
	var raw []rawRelation
	if err := c.getJSON(ctx, "/dispatcher/getUnitIncidentRelations", &raw); err != nil {
		return nil, err
	}
	rels := make([]model.Relation, 0, len(raw))
	for _, r := range raw {
		if rel, ok := r.normalize(); ok {
			rels = append(rels, rel)
		}
	}
	return rels, nil
}
