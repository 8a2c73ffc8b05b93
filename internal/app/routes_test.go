package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/telemetry"
	"github.com/tallyhq/tally/pkg/client"
	"github.com/tallyhq/tally/pkg/insights"
	"github.com/tallyhq/tally/pkg/invoice"
	"github.com/tallyhq/tally/pkg/project"
	"github.com/tallyhq/tally/pkg/report"
	"github.com/tallyhq/tally/pkg/time_entry"
	"github.com/tallyhq/tally/pkg/user"
)

type routerTest struct {
	router *mux.Router
	deps   *Dependencies
}

func setupRouterTest(t *testing.T) routerTest {
	repos := Repositories{
		Users:       user.NewStubRepository(),
		Clients:     client.NewStubRepository(),
		Projects:    project.NewStubRepository(),
		TimeEntries: time_entry.NewStubRepository(),
	}
	deps := BuildDependencies(repos, config.Defaults(), insights.DisabledGenerator{}, telemetry.NewNoOpRecorder())
	t.Cleanup(func() { deps.Close(context.Background()) })
	return routerTest{router: NewRouter(deps), deps: deps}
}

func (rt routerTest) do(t *testing.T, method, path, uid string, body any) *httptest.ResponseRecorder {
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	if uid != "" {
		req.Header.Set(userIdHeader, uid)
	}
	rr := httptest.NewRecorder()
	rt.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (rt routerTest) registerUser(t *testing.T, username string) string {
	rr := rt.do(t, http.MethodPost, "/api/user", "", user.UserDTO{Username: username})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[user.UserDTO](t, rr)
	require.NotEmpty(t, created.Uid)
	return created.Uid
}

func (rt routerTest) createProject(t *testing.T, uid string, rate float64) project.ProjectDTO {
	rr := rt.do(t, http.MethodPost, "/api/client", uid, client.ClientDTO{Name: "Acme", Email: "billing@acme.com"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	c := decode[client.ClientDTO](t, rr)

	rr = rt.do(t, http.MethodPost, "/api/project", uid, project.ProjectDTO{ClientId: c.Id, Name: "Website", HourlyRate: rate})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[project.ProjectDTO](t, rr)
}

func TestRouter_UserResolution(t *testing.T) {
	t.Run("registration works without a user header", func(t *testing.T) {
		rt := setupRouterTest(t)
		uid := rt.registerUser(t, "anna")

		rr := rt.do(t, http.MethodGet, "/api/user/current", uid, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "anna", decode[user.UserDTO](t, rr).Username)
	})

	t.Run("rejects requests without a user header", func(t *testing.T) {
		rt := setupRouterTest(t)
		rr := rt.do(t, http.MethodGet, "/api/client", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("rejects unknown users", func(t *testing.T) {
		rt := setupRouterTest(t)
		rr := rt.do(t, http.MethodGet, "/api/client", "no-such-uid", nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestRouter_TrackReportAndInvoice(t *testing.T) {
	rt := setupRouterTest(t)
	uid := rt.registerUser(t, "anna")
	p := rt.createProject(t, uid, 50)

	// two manual hours plus a running timer on the same project
	rr := rt.do(t, http.MethodPost, "/api/time-entry/manual", uid, time_entry.ManualEntryRequest{ProjectId: p.Id, Description: "Landing page", DurationHours: 2})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = rt.do(t, http.MethodPost, "/api/timer/start", uid, time_entry.StartTimerRequest{ProjectId: p.Id})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	running := decode[time_entry.TimeEntryDTO](t, rr)
	assert.Nil(t, running.EndTime)

	rr = rt.do(t, http.MethodGet, "/api/timer", uid, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, running.Id, decode[time_entry.TimeEntryDTO](t, rr).Id)

	t.Run("dashboard ignores the running timer", func(t *testing.T) {
		rr := rt.do(t, http.MethodGet, "/api/report/dashboard", uid, nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		dashboard := decode[report.DashboardDTO](t, rr)
		assert.InDelta(t, 2, dashboard.TotalHours, 1e-9)
		assert.InDelta(t, 100, dashboard.TotalEarnings, 1e-6)
		assert.Equal(t, 1, dashboard.ActiveProjects)
		require.NotNil(t, dashboard.ActiveTimer)
		assert.Equal(t, running.Id, dashboard.ActiveTimer.Id)
		assert.Len(t, dashboard.Week, report.DefaultDays)
	})

	t.Run("dashboard as csv", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/report/dashboard", nil)
		req.Header.Set(userIdHeader, uid)
		req.Header.Set("Accept", "text/csv")
		rr := httptest.NewRecorder()
		rt.router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, strings.HasPrefix(rr.Body.String(), "Date,Day,Website,Total"), rr.Body.String())
	})

	t.Run("invoice bills completed entries of the project", func(t *testing.T) {
		rr := rt.do(t, http.MethodGet, fmt.Sprintf("/api/invoice?projectId=%d", p.Id), uid, nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		inv := decode[invoice.InvoiceDTO](t, rr)
		require.Len(t, inv.LineItems, 1)
		assert.Equal(t, "Landing page", inv.LineItems[0].Description)
		assert.InDelta(t, 100, inv.TotalAmount, 1e-6)
		require.NotNil(t, inv.BillTo)
		assert.Equal(t, "Acme", inv.BillTo.Name)
	})

	t.Run("insights fall back when generation is disabled", func(t *testing.T) {
		rr := rt.do(t, http.MethodPost, "/api/insights/productivity", uid, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, insights.ProductivityUnavailable, decode[insights.InsightDTO](t, rr).Text)
	})

	t.Run("stopping completes the running timer", func(t *testing.T) {
		rr := rt.do(t, http.MethodPost, "/api/timer/stop", uid, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.NotNil(t, decode[time_entry.TimeEntryDTO](t, rr).EndTime)

		rr = rt.do(t, http.MethodPost, "/api/timer/stop", uid, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestRouter_UsersAreIsolated(t *testing.T) {
	rt := setupRouterTest(t)
	anna := rt.registerUser(t, "anna")
	bob := rt.registerUser(t, "bob")
	p := rt.createProject(t, anna, 50)

	rr := rt.do(t, http.MethodPost, "/api/timer/start", bob, time_entry.StartTimerRequest{ProjectId: p.Id})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = rt.do(t, http.MethodGet, fmt.Sprintf("/api/project/%d", p.Id), bob, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
