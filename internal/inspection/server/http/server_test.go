package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/atsinspect/internal/inspection/core/catalog"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/service"
	"github.com/autopeer-io/atsinspect/internal/inspection/store/memory"
)

type caller struct {
	id, role, center string
}

var (
	technician = caller{"u-1", "TECHNICIAN", "C1"}
	admin      = caller{"a-1", "ATS_ADMIN", "C1"}
)

type apiClient struct {
	t      *testing.T
	router http.Handler
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	return &apiClient{t: t, router: NewRouter(service.New(memory.New(), nil))}
}

func (c *apiClient) do(who *caller, method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if who != nil {
		req.Header.Set(HeaderUserID, who.id)
		req.Header.Set(HeaderUserName, "User "+who.id)
		req.Header.Set(HeaderUserRole, who.role)
		req.Header.Set(HeaderCenter, who.center)
	}

	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (c *apiClient) register(regnNo string) {
	c.t.Helper()
	rec := c.do(&technician, http.MethodPost, "/api/v1/vehicles", map[string]string{
		"regnNo": regnNo, "bookingId": "BK-" + regnNo,
	})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestAuthentication(t *testing.T) {
	api := newAPI(t)

	rec := api.do(nil, http.MethodGet, "/api/v1/tests/center/all", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthenticated", decodeBody[errorResponse](t, rec).Error)

	rec = api.do(&admin, http.MethodPost, "/api/v1/vehicles", map[string]string{"regnNo": "REG-001", "bookingId": "BK-1"})
	assert.Equal(t, http.StatusCreated, rec.Code, "admins may register vehicles")

	rec = api.do(&admin, http.MethodPost, "/api/v1/tests/start", map[string]string{"regnNo": "REG-001"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(&admin, http.MethodGet, "/api/v1/tests/center/all", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "reads are open to any role")
}

func TestInspectionFlow(t *testing.T) {
	api := newAPI(t)
	api.register("REG-001")

	rec := api.do(&technician, http.MethodPost, "/api/v1/tests/start", map[string]string{"regnNo": "REG-001"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inst := decodeBody[model.TestInstance](t, rec)
	assert.Equal(t, model.InstanceInProgress, inst.Status)
	assert.Equal(t, "u-1", inst.SubmittedBy.ID)

	rec = api.do(&technician, http.MethodPost, "/api/v1/tests/start", map[string]string{"regnNo": "REG-001"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(&technician, http.MethodGet, "/api/v1/tests/visual/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"REG-001"}, decodeBody[pendingResponse](t, rec).Pending)

	rec = api.do(&technician, http.MethodPost, "/api/v1/tests/complete", map[string]string{"regnNo": "REG-001"})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	rec = api.do(&technician, http.MethodPost, "/api/v1/tests/visual/submit", map[string]any{
		"regnNo": "REG-001",
		"rules":  map[string]any{"windscreen": "ok", "tyreTreadDepth": 2.4, "unknownRule": "OK"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	visual := decodeBody[submitResponse](t, rec)
	assert.True(t, visual.IsCompleted)
	assert.False(t, visual.InstanceCompleted)

	rules := catalog.FunctionalRules()
	for i, id := range rules {
		rule, ok := catalog.Lookup(catalog.Functional, id)
		require.True(t, ok)

		var value any = "OK"
		if rule.Domain == catalog.Numeric {
			value = 55
		}

		rec = api.do(&technician, http.MethodGet, "/api/v1/tests/functional/pending/"+id, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"REG-001"}, decodeBody[pendingResponse](t, rec).Pending)

		rec = api.do(&technician, http.MethodPost, "/api/v1/tests/functional/submit", map[string]any{
			"regnNo": "REG-001", "rule": id, "value": value,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decodeBody[submitResponse](t, rec)

		last := i == len(rules)-1
		assert.Equal(t, last, res.IsCompleted, id)
		assert.Equal(t, last, res.InstanceCompleted, id)
	}

	rec = api.do(&admin, http.MethodGet, "/api/v1/tests/REG-001/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeBody[service.StatusView](t, rec)
	assert.Equal(t, model.InstanceCompleted, view.Status)
	require.NotNil(t, view.Functional)
	assert.Equal(t, catalog.Value("55"), view.Functional.Results["rule189_4"])
	require.NotNil(t, view.Visual)
	assert.Equal(t, catalog.Value("2.4"), view.Visual.Results["tyreTreadDepth"])
	assert.NotNil(t, view.LaneExitTime)

	rec = api.do(&technician, http.MethodPost, "/api/v1/tests/complete", map[string]string{"regnNo": "REG-001"})
	assert.Equal(t, http.StatusOK, rec.Code, "completing twice returns the completed instance")

	rec = api.do(&technician, http.MethodGet, "/api/v1/tests/center/all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]service.InstanceSummary](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, model.VehicleCompleted, list[0].Vehicle.Status)

	rec = api.do(&technician, http.MethodGet, "/api/v1/vehicles/REG-001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.VehicleCompleted, decodeBody[model.Vehicle](t, rec).Status)
}

func TestErrorMapping(t *testing.T) {
	api := newAPI(t)
	api.register("REG-001")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		kind   string
	}{
		{"unknown vehicle", http.MethodPost, "/api/v1/tests/start", map[string]string{"regnNo": "NOPE"}, http.StatusNotFound, "NotFound"},
		{"no instance", http.MethodGet, "/api/v1/tests/REG-001/status", nil, http.StatusNotFound, "NotFound"},
		{"missing field", http.MethodPost, "/api/v1/tests/start", map[string]string{}, http.StatusBadRequest, "InvalidInput"},
		{"missing value", http.MethodPost, "/api/v1/tests/functional/submit", map[string]string{"regnNo": "REG-001", "rule": "rule189_3"}, http.StatusBadRequest, "InvalidInput"},
		{"bad value", http.MethodPost, "/api/v1/tests/functional/submit", map[string]string{"regnNo": "REG-001", "rule": "rule189_3", "value": "maybe"}, http.StatusBadRequest, "InvalidInput"},
		{"unknown rule", http.MethodGet, "/api/v1/tests/functional/pending/rule999", nil, http.StatusBadRequest, "InvalidInput"},
		{"unknown category", http.MethodGet, "/api/v1/rules/audio", nil, http.StatusBadRequest, "InvalidInput"},
		{"duplicate vehicle", http.MethodPost, "/api/v1/vehicles", map[string]string{"regnNo": "REG-001", "bookingId": "BK-2"}, http.StatusConflict, "Conflict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(&technician, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decodeBody[errorResponse](t, rec)
			assert.Equal(t, tt.kind, body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tests/start", bytes.NewBufferString("{"))
		req.Header.Set(HeaderUserID, technician.id)
		req.Header.Set(HeaderUserRole, technician.role)
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestValidationUsesJSONNames(t *testing.T) {
	api := newAPI(t)
	rec := api.do(&technician, http.MethodPost, "/api/v1/vehicles", map[string]string{"regnNo": "REG-9"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorResponse](t, rec).Message, "bookingId")
}

func TestProbesAndMetrics(t *testing.T) {
	api := newAPI(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := api.do(nil, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := api.do(nil, http.MethodGet, "/metrics", nil)
	assert.Contains(t, rec.Body.String(), "ats_inspections_started_total")
}

func TestRequestID(t *testing.T) {
	api := newAPI(t)

	rec := api.do(nil, http.MethodGet, "/healthz", nil)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(HeaderRequestID))

	ctx := context.WithValue(context.Background(), requestIDKey{}, "req-7")
	assert.Equal(t, "req-7", LogExtractors()["request_id"](ctx))
}
