package atsctl

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/atsinspect/internal/inspection/core/catalog"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/service"
	apihttp "github.com/autopeer-io/atsinspect/internal/inspection/server/http"
	"github.com/autopeer-io/atsinspect/internal/inspection/store/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(apihttp.NewRouter(service.New(memory.New(), nil)))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewCommand(&out)
	cmd.SetArgs(append([]string{"--server", srv.URL, "--user", "u-1", "--name", "Ravi", "--center", "C1"}, args...))
	err := Execute(context.Background(), cmd)
	return out.String(), err
}

func TestInspectionFromTheCommandLine(t *testing.T) {
	srv := newTestServer(t)

	out, err := run(t, srv, "register", "REG-001", "--booking", "BK-1")
	require.NoError(t, err)
	assert.Contains(t, out, "REG-001")

	out, err = run(t, srv, "start", "REG-001")
	require.NoError(t, err)
	assert.Contains(t, out, "IN_PROGRESS")

	out, err = run(t, srv, "pending", "visual")
	require.NoError(t, err)
	assert.Contains(t, out, "REG-001")

	out, err = run(t, srv, "submit", "visual", "REG-001", "windscreen=OK", "tyreTreadDepth=2.5")
	require.NoError(t, err)
	assert.Contains(t, out, "Visual test submitted successfully")

	for _, id := range catalog.FunctionalRules() {
		rule, _ := catalog.Lookup(catalog.Functional, id)
		value := "OK"
		if rule.Domain == catalog.Numeric {
			value = "60"
		}
		out, err = run(t, srv, "submit", "functional", "REG-001", id, value)
		require.NoError(t, err, id)
	}
	assert.Contains(t, out, "Inspection completed.")

	out, err = run(t, srv, "-o", "json", "status", "REG-001")
	require.NoError(t, err)
	var view service.StatusView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, model.InstanceCompleted, view.Status)
	assert.Equal(t, catalog.Value("2.5"), view.Visual.Results["tyreTreadDepth"])

	out, err = run(t, srv, "status", "REG-001")
	require.NoError(t, err)
	assert.Contains(t, out, "done")

	out, err = run(t, srv, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "REG-001")
	assert.Contains(t, out, "COMPLETED")
}

func TestAPIErrors(t *testing.T) {
	srv := newTestServer(t)

	_, err := run(t, srv, "start", "NOPE")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
	assert.Equal(t, "NotFound", apiErr.Kind)

	_, err = run(t, srv, "--role", "ATS_ADMIN", "start", "NOPE")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.StatusCode)

	_, err = run(t, srv, "-o", "yaml", "list")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"windscreen=OK", "tyreTreadDepth=1.6", "horn=NA"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"windscreen": "OK", "tyreTreadDepth": 1.6, "horn": "NA"}, got)

	_, err = parseAssignments([]string{"windscreen"})
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "not started", summarize(nil))

	rec := &model.SubInspection{Results: map[string]catalog.Value{"b": catalog.NotAssessed, "a": catalog.NotAssessed, "c": catalog.Pass}}
	assert.Equal(t, "pending: a, b", summarize(rec))

	rec.IsCompleted = true
	assert.Equal(t, "done", summarize(rec))
}
