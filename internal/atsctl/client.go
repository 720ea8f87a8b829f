package atsctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/autopeer-io/atsinspect/internal/inspection/core/catalog"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/service"
	apihttp "github.com/autopeer-io/atsinspect/internal/inspection/server/http"
)

// Identity is sent with every request in the gateway identity headers.
type Identity struct {
	UserID   string
	Name     string
	Role     string
	CenterID string
}

// APIError is a non-2xx answer of the API server.
type APIError struct {
	StatusCode int
	Kind       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
}

// Client talks to the inspection API.
type Client struct {
	base     string
	identity Identity
	http     *http.Client
}

func NewClient(server string, identity Identity, timeout time.Duration) *Client {
	return &Client{
		base:     strings.TrimSuffix(server, "/"),
		identity: identity,
		http:     &http.Client{Timeout: timeout},
	}
}

// SubmitResult mirrors the submission responses.
type SubmitResult struct {
	Message           string `json:"message"`
	IsCompleted       bool   `json:"isCompleted"`
	InstanceCompleted bool   `json:"instanceCompleted"`
}

func (c *Client) RegisterVehicle(ctx context.Context, in service.VehicleInput) (*model.Vehicle, error) {
	var out model.Vehicle
	body := map[string]string{
		"regnNo":    in.RegnNo,
		"bookingId": in.BookingID,
		"centerId":  in.CenterID,
		"engineNo":  in.EngineNo,
		"chassisNo": in.ChassisNo,
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/vehicles", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Rules(ctx context.Context, category string) ([]catalog.Rule, error) {
	var out []catalog.Rule
	if err := c.do(ctx, http.MethodGet, "/api/v1/rules/"+url.PathEscape(category), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Start(ctx context.Context, regnNo string) (*model.TestInstance, error) {
	var out model.TestInstance
	if err := c.do(ctx, http.MethodPost, "/api/v1/tests/start", map[string]string{"regnNo": regnNo}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitVisual(ctx context.Context, regnNo string, rules map[string]any) (*SubmitResult, error) {
	var out SubmitResult
	body := map[string]any{"regnNo": regnNo, "rules": rules}
	if err := c.do(ctx, http.MethodPost, "/api/v1/tests/visual/submit", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitFunctional(ctx context.Context, regnNo, rule string, value any) (*SubmitResult, error) {
	var out SubmitResult
	body := map[string]any{"regnNo": regnNo, "rule": rule, "value": value}
	if err := c.do(ctx, http.MethodPost, "/api/v1/tests/functional/submit", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PendingVisual(ctx context.Context) ([]string, error) {
	var out struct {
		Pending []string `json:"pending"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/tests/visual/pending", nil, &out); err != nil {
		return nil, err
	}
	return out.Pending, nil
}

func (c *Client) PendingFunctional(ctx context.Context, rule string) ([]string, error) {
	var out struct {
		Pending []string `json:"pending"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/tests/functional/pending/"+url.PathEscape(rule), nil, &out); err != nil {
		return nil, err
	}
	return out.Pending, nil
}

func (c *Client) Status(ctx context.Context, regnNo string) (*service.StatusView, error) {
	var out service.StatusView
	if err := c.do(ctx, http.MethodGet, "/api/v1/tests/"+url.PathEscape(regnNo)+"/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) List(ctx context.Context) ([]service.InstanceSummary, error) {
	var out []service.InstanceSummary
	if err := c.do(ctx, http.MethodGet, "/api/v1/tests/center/all", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Complete(ctx context.Context, regnNo string) (*model.TestInstance, error) {
	var out model.TestInstance
	if err := c.do(ctx, http.MethodPost, "/api/v1/tests/complete", map[string]string{"regnNo": regnNo}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(apihttp.HeaderUserID, c.identity.UserID)
	req.Header.Set(apihttp.HeaderUserName, c.identity.Name)
	req.Header.Set(apihttp.HeaderUserRole, c.identity.Role)
	req.Header.Set(apihttp.HeaderCenter, c.identity.CenterID)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
