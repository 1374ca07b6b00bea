package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"energyadmin/backend"
	"energyadmin/entity"
	"energyadmin/internal"
	"energyadmin/internal/config"
	"energyadmin/pages"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
)

type logDatabase struct {
	messages []internal.FeatureLogMessage
}

func (d *logDatabase) WriteLogMessage(internal.Data) error { return nil }

func (d *logDatabase) ReadLog(_ context.Context, limit int64) ([]internal.FeatureLogMessage, error) {
	if int64(len(d.messages)) > limit {
		return d.messages[:limit], nil
	}
	return d.messages, nil
}

func (d *logDatabase) GetSubscriptions() ([]entity.Subscription, error) { return nil, nil }

func (d *logDatabase) AddSubscription(*entity.Subscription) error { return nil }

func (d *logDatabase) DeleteSubscription(*entity.Subscription) error { return nil }

func newTestServer(t *testing.T, policy pages.AssignPolicy) (*Server, *backend.Backend) {
	t.Helper()
	store := backend.New(backend.Instant())
	hub := NewHub()
	store.AddEventListener(hub)
	t.Cleanup(hub.Close)
	return NewServer(&config.Config{}, NewPages(store, policy), hub), store
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, request)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &v), recorder.Body.String())
	return v
}

func errorMessage(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorResponse](t, recorder).Error
}

func TestDashboardEndpoint(t *testing.T) {
	s, _ := newTestServer(t, pages.AssignPessimistic)

	recorder := do(t, s, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json; charset=utf-8", recorder.Header().Get("Content-Type"))

	state := decode[pages.DashboardState](t, recorder)
	require.NotNil(t, state.Stats)
	assert.Equal(t, entity.DashboardStats{TotalUsers: 3, OnAPlan: 2, AvgRenewablePercent: 63}, *state.Stats)
	assert.Equal(t, "green", state.FeaturedPlan.Id)
}

func TestTransportErrorIsServiceUnavailable(t *testing.T) {
	s, store := newTestServer(t, pages.AssignPessimistic)
	store.SetPolicy(backend.AlwaysFail())

	recorder := do(t, s, http.MethodGet, "/api/dashboard", "")
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Equal(t, "Network error, please retry", errorMessage(t, recorder))
}

func TestPlanEndpoints(t *testing.T) {
	s, store := newTestServer(t, pages.AssignPessimistic)

	recorder := do(t, s, http.MethodPost, "/api/plans", `{"name":"Eco","price_cents_per_kwh":21,"renewable_percent":80}`)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	state := decode[pages.PlansState](t, recorder)
	require.Len(t, state.Plans, 4)
	assert.Equal(t, "Eco", state.Plans[0].Name)

	recorder = do(t, s, http.MethodPut, "/api/plans/basic", `{"name":"Basic Two","price":"0.30"}`)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	edited := entity.FindPlan(decode[pages.PlansState](t, recorder).Plans, "basic")
	require.NotNil(t, edited)
	assert.Equal(t, "Basic Two", edited.Name)
	assert.Equal(t, 30, edited.PriceCentsPerKwh)

	recorder = do(t, s, http.MethodPost, "/api/plans/night/featured", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	state = decode[pages.PlansState](t, recorder)
	assert.True(t, entity.FindPlan(state.Plans, "night").IsFeatured)
	assert.False(t, entity.FindPlan(state.Plans, "green").IsFeatured)

	recorder = do(t, s, http.MethodDelete, "/api/plans/green", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Nil(t, entity.FindPlan(decode[pages.PlansState](t, recorder).Plans, "green"))

	plans, err := store.ListPlans().Wait(context.Background())
	require.NoError(t, err)
	assert.Len(t, plans, 3)
}

func TestPlanEndpointErrors(t *testing.T) {
	s, _ := newTestServer(t, pages.AssignPessimistic)

	recorder := do(t, s, http.MethodPost, "/api/plans", `{"name":"E","price_cents_per_kwh":21}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "name: must contain at least 2 characters", errorMessage(t, recorder))

	recorder = do(t, s, http.MethodPost, "/api/plans", `{`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = do(t, s, http.MethodPut, "/api/plans/gone", `{"name":"Gone"}`)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "Plan not found", errorMessage(t, recorder))

	recorder = do(t, s, http.MethodPut, "/api/plans/basic", `{"price":"free"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Nil(t, s.pages.Plans.Editing())

	recorder = do(t, s, http.MethodPost, "/api/plans/gone/featured", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestBillingEndpoints(t *testing.T) {
	s, _ := newTestServer(t, pages.AssignPessimistic)

	recorder := do(t, s, http.MethodGet, "/api/billing", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, decode[pages.BillingState](t, recorder).Rows, 3)

	recorder = do(t, s, http.MethodPost, "/api/billing/u_1/pay", `{"amount":"5.00"}`)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	rows := decode[pages.BillingState](t, recorder).Rows
	assert.Equal(t, 745, rows[0].BalanceCents)

	recorder = do(t, s, http.MethodPost, "/api/billing/u_9/pay", `{"amount":"5.00"}`)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "User not found", errorMessage(t, recorder))

	recorder = do(t, s, http.MethodPost, "/api/billing/u_1/pay", `{"amount":"lots"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestBillingExportEndpoint(t *testing.T) {
	s, _ := newTestServer(t, pages.AssignPessimistic)

	recorder := do(t, s, http.MethodGet, "/api/billing/export", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, xlsxContentType, recorder.Header().Get("Content-Type"))

	file, err := xlsx.OpenBinary(recorder.Body.Bytes())
	require.NoError(t, err)
	sheet, ok := file.Sheet["Billing"]
	require.True(t, ok)
	assert.Len(t, sheet.Rows, 4)
}

func TestAdminEndpoints(t *testing.T) {
	s, _ := newTestServer(t, pages.AssignOptimistic)

	recorder := do(t, s, http.MethodPost, "/api/admin/users/u_3/plan", `{"plan_id":"night"}`)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	state := decode[pages.AdminState](t, recorder)
	require.Len(t, state.Users, 3)
	assert.Equal(t, entity.PlanRef("night"), state.Users[2].PlanId)

	recorder = do(t, s, http.MethodPost, "/api/admin/users/u_1/plan", `{"plan_id":null}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Nil(t, decode[pages.AdminState](t, recorder).Users[0].PlanId)

	recorder = do(t, s, http.MethodPost, "/api/admin/users/u_1/plan", `{"plan_id":"gone"}`)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "Plan not found", errorMessage(t, recorder))

	recorder = do(t, s, http.MethodGet, "/api/admin", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, decode[pages.AdminState](t, recorder).Plans, 3)
}

func TestLogEndpoint(t *testing.T) {
	s, _ := newTestServer(t, pages.AssignPessimistic)

	recorder := do(t, s, http.MethodGet, "/api/log", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "log storage is disabled", errorMessage(t, recorder))

	s.SetDatabase(&logDatabase{messages: []internal.FeatureLogMessage{{Feature: "CreatePlan", Subject: "p1", Text: "created"}}})
	recorder = do(t, s, http.MethodGet, "/api/log", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	messages := decode[[]internal.FeatureLogMessage](t, recorder)
	require.Len(t, messages, 1)
	assert.Equal(t, "p1", messages[0].Subject)

	s.SetDatabase(&logDatabase{messages: []internal.FeatureLogMessage{{Subject: "p1"}, {Subject: "p2"}, {Subject: "p3"}}})
	recorder = do(t, s, http.MethodGet, "/api/log?limit=2", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, decode[[]internal.FeatureLogMessage](t, recorder), 2)

	recorder = do(t, s, http.MethodGet, "/api/log?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "limit: must be between 1 and 1000", errorMessage(t, recorder))
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{&entity.ValidationError{Field: "name"}, http.StatusBadRequest},
		{&backend.NotFoundError{Entity: "User"}, http.StatusNotFound},
		{&backend.TransportError{}, http.StatusServiceUnavailable},
		{fmt.Errorf("wrapped: %w", &backend.TransportError{}), http.StatusServiceUnavailable},
		{pages.ErrInactive, http.StatusConflict},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, statusCode(tt.err), tt.err.Error())
	}
}

func TestEventFeed(t *testing.T) {
	s, store := newTestServer(t, pages.AssignPessimistic)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + wsEndpoint
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() {
		_ = conn.Close()
	}()
	require.Eventually(t, func() bool {
		return s.hub.Clients() == 1
	}, 5*time.Second, 10*time.Millisecond)

	_, err = store.AdjustBalance("u_2", -320).Wait(context.Background())
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var envelope struct {
		Type string                `json:"type"`
		Data internal.EventMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Equal(t, internal.EventBalanceAdjusted, envelope.Type)
	assert.Equal(t, "u_2", envelope.Data.UserId)
	assert.Equal(t, -320, envelope.Data.AmountCents)
}

func TestHubClosedRefusesClients(t *testing.T) {
	s, _ := newTestServer(t, pages.AssignPessimistic)
	s.hub.Close()
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + wsEndpoint
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() {
		_ = conn.Close()
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, s.hub.Clients())
}
