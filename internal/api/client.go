package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/IgorGolubovski01/Police-CAD-front/internal/config"
	"github.com/IgorGolubovski01/Police-CAD-front/internal/model"
)

// Client is the typed accessor for the Police-CAD service. Collection reads
// return an error which the caller is expected to absorb (fail-soft);
// mutations return an error that must be surfaced (fail-hard).
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string

	username string
	password string

	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
}

func New(cfg config.API, username, password string) *Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		http:       &http.Client{Timeout: cfg.Timeout, Transport: tr},
		userAgent:  cfg.UserAgent,
		username:   username,
		password:   password,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		maxBackoff: cfg.MaxBackoff,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// getJSON retries reads with exponential backoff. Writes go through do
// directly so a flaky network can never double-apply a mutation.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return retry(ctx, c.maxRetries, c.backoff, c.maxBackoff, func() error {
		return c.do(ctx, http.MethodGet, path, nil, out)
	})
}

func retry(ctx context.Context, attempts int, initial, max time.Duration, fn func() error) error {
	if attempts <= 1 {
		return fn()
	}
	d := initial
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
			if d < max {
				d *= 2
				if d > max {
					d = max
				}
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates the configured credentials and returns the session
// actor. The role it carries is immutable for the session.
func (c *Client) Login(ctx context.Context) (model.ActiveUser, error) {
	var user model.ActiveUser
	err := c.do(ctx, http.MethodPost, "/user/login", loginRequest{Username: c.username, Password: c.password}, &user)
	if err != nil {
		return model.ActiveUser{}, fmt.Errorf("login: %w", err)
	}
	return user, nil
}

// Collection reads.

func (c *Client) Units(ctx context.Context) ([]model.Unit, error) {
	var units []model.Unit
	if err := c.getJSON(ctx, "/unit/getAllUnits", &units); err != nil {
		return nil, err
	}
	return units, nil
}

func (c *Client) Incidents(ctx context.Context) ([]model.Incident, error) {
	var incidents []model.Incident
	if err := c.getJSON(ctx, "/dispatcher/getAllIncidents", &incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

func (c *Client) AvailableOfficers(ctx context.Context) ([]model.Officer, error) {
	var officers []model.Officer
	if err := c.getJSON(ctx, "/dispatcher/getAvailableOfficers", &officers); err != nil {
		return nil, err
	}
	return officers, nil
}

func (c *Client) UnitOfficers(ctx context.Context, unitID int64) ([]model.Officer, error) {
	var officers []model.Officer
	if err := c.getJSON(ctx, fmt.Sprintf("/dispatcher/getUnitOfficers/%d", unitID), &officers); err != nil {
		return nil, err
	}
	return officers, nil
}

func (c *Client) AllRecords(ctx context.Context) ([]model.Record, error) {
	var records []model.Record
	if err := c.getJSON(ctx, "/dispatcher/getAllRecords", &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) UnitRecords(ctx context.Context, unitID int64) ([]model.Record, error) {
	var records []model.Record
	if err := c.getJSON(ctx, fmt.Sprintf("/unit/getUnitRecords/%d", unitID), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) IncidentAssignedUnits(ctx context.Context, incidentID int64) ([]model.Unit, error) {
	var units []model.Unit
	if err := c.getJSON(ctx, fmt.Sprintf("/dispatcher/getIncidentAssignedUnits/incident/%d", incidentID), &units); err != nil {
		return nil, err
	}
	return units, nil
}

// Mutations. All fail hard.

func (c *Client) CreateIncident(ctx context.Context, draft model.IncidentDraft) (model.Incident, error) {
	var created model.Incident
	if err := c.do(ctx, http.MethodPost, "/dispatcher/createIncident", draft, &created); err != nil {
		return model.Incident{}, fmt.Errorf("create incident: %w", err)
	}
	return created, nil
}

func (c *Client) AssignUnitToIncident(ctx context.Context, unitID, incidentID int64) error {
	path := fmt.Sprintf("/dispatcher/unit/%d/incident/%d", unitID, incidentID)
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("assign unit %d to incident %d: %w", unitID, incidentID, err)
	}
	return nil
}

func (c *Client) AssignOfficerToUnit(ctx context.Context, officerID, unitID int64) error {
	path := fmt.Sprintf("/dispatcher/unit/%d/officer/%d", unitID, officerID)
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("assign officer %d to unit %d: %w", officerID, unitID, err)
	}
	return nil
}

func (c *Client) DisengageOfficer(ctx context.Context, officerID int64) error {
	path := fmt.Sprintf("/dispatcher/disengageOfficer/%d", officerID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("disengage officer %d: %w", officerID, err)
	}
	return nil
}

type resolveRequest struct {
	FinalReport string `json:"finalReport"`
}

func (c *Client) ResolveIncident(ctx context.Context, incidentID, unitID int64, report string) error {
	path := fmt.Sprintf("/unit/resolveIncident/%d/%d", incidentID, unitID)
	if err := c.do(ctx, http.MethodPost, path, resolveRequest{FinalReport: report}, nil); err != nil {
		return fmt.Errorf("resolve incident %d: %w", incidentID, err)
	}
	return nil
}

func (c *Client) SendRecord(ctx context.Context, unitID, recordID int64) error {
	path := fmt.Sprintf("/dispatcher/unit/%d/record/%d", unitID, recordID)
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("send record %d to unit %d: %w", recordID, unitID, err)
	}
	return nil
}

type locationReport struct {
	UnitID int64   `json:"uId"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// ReportLocation posts the unit's own position. The caller is expected to
// catch and log failures so the location loop keeps running.
func (c *Client) ReportLocation(ctx context.Context, unitID int64, lat, lon float64) error {
	if err := c.do(ctx, http.MethodPost, "/unit/getUnitLocation", locationReport{UnitID: unitID, Lat: lat, Lon: lon}, nil); err != nil {
		return fmt.Errorf("report location for unit %d: %w", unitID, err)
	}
	return nil
}
