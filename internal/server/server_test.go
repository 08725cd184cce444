package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	"github.com/smallbiznis/salesdesk/internal/clock"
	"github.com/smallbiznis/salesdesk/internal/config"
	"github.com/smallbiznis/salesdesk/internal/migration"
	"github.com/smallbiznis/salesdesk/internal/observability"
	obsmetrics "github.com/smallbiznis/salesdesk/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	srv   *Server
	admin agentdomain.Agent
	alice agentdomain.Agent
	bob   agentdomain.Agent
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:server_%d?mode=memory&cache=shared", time.Now().UnixNano())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(context.Background(), db))

	node, err := snowflake.NewNode(21)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))

	var (
		srv      *Server
		agentSvc agentdomain.Service
	)
	app := fxtest.New(t,
		fx.Supply(db, zap.NewNop(), node),
		fx.Supply(config.NewStaticCommissionConfigHolder(config.DefaultCommissionConfig())),
		fx.Supply(observability.Config{}),
		fx.Provide(func() clock.Clock { return fc }),
		fx.Provide(func() *obsmetrics.HTTPMetrics { return nil }),
		serviceModules,
		fx.Provide(registerGin),
		fx.Provide(NewServer),
		fx.Populate(&srv, &agentSvc),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)

	ctx := context.Background()
	admin, err := agentSvc.Create(ctx, agentdomain.CreateAgentRequest{Name: "Morgan", Email: "morgan@example.com", Role: "admin"})
	require.NoError(t, err)
	alice, err := agentSvc.Create(ctx, agentdomain.CreateAgentRequest{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)
	bob, err := agentSvc.Create(ctx, agentdomain.CreateAgentRequest{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	return &testEnv{srv: srv, admin: admin, alice: alice, bob: bob}
}

func (e *testEnv) do(t *testing.T, method, path string, agent *agentdomain.Agent, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if agent != nil {
		req.Header.Set(HeaderAgent, agent.ID.String())
	}
	w := httptest.NewRecorder()
	e.srv.Engine().ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var payload errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload.Error
}

func TestAgentRequired(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decodeError(t, w).Type)

	unknown := agentdomain.Agent{ID: snowflake.ID(42)}
	w = env.do(t, http.MethodGet, "/api/me", &unknown, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/me", &env.alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, env.alice.ID.String(), decodeData(t, w)["id"])
}

func TestAdminRoutesRejectAgents(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, http.MethodPut, "/admin/settings", &env.alice, map[string]any{"standard_commission_cents": 500})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/admin/pay-cycles", &env.alice, map[string]any{"start_date": "2024-03-01", "end_date": "2024-03-31"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPut, "/admin/settings", &env.admin, map[string]any{"standard_commission_cents": 500})
	require.Equal(t, http.StatusOK, w.Code)
	settings := decodeData(t, w)["settings"].(map[string]any)
	assert.EqualValues(t, 500, settings["standard_commission_cents"])
	assert.EqualValues(t, 300, settings["self_commission_cents"])
}

func TestValidationErrors(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, http.MethodPost, "/admin/pay-cycles", &env.admin, map[string]any{"start_date": "2024-03-31", "end_date": "2024-03-01"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	payload := decodeError(t, w)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_cycle_period", payload.Errors[0].Code)

	w = env.do(t, http.MethodPost, "/api/appointments", &env.alice, map[string]any{"name": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/appointments/123", &env.alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAppointmentLifecycle(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, http.MethodPost, "/admin/pay-cycles", &env.admin, map[string]any{"start_date": "2024-03-01", "end_date": "2024-03-31"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/appointments", &env.alice, map[string]any{
		"name":         "Acme Plumbing",
		"phone":        "555-0100",
		"scheduled_at": "2024-03-10T15:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	appt := decodeData(t, w)
	assert.Equal(t, "PENDING", appt["stage"])
	id := appt["id"].(string)

	// onboarding straight from PENDING needs the self-onboard override
	w = env.do(t, http.MethodPost, "/api/appointments/"+id+"/stage", &env.alice, map[string]any{"stage": "ONBOARDED"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", decodeError(t, w).Code)

	// referrals need an onboarded deal
	w = env.do(t, http.MethodPut, "/admin/appointments/"+id+"/referrals", &env.admin, map[string]any{"count": 1})
	require.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/appointments/"+id+"/stage", &env.alice, map[string]any{"stage": "TRANSFERRED", "closer_name": "Dana"})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/api/appointments/"+id+"/stage", &env.alice, map[string]any{"stage": "ONBOARDED"})
	require.Equal(t, http.StatusOK, w.Code)
	appt = decodeData(t, w)
	assert.Equal(t, "ONBOARDED", appt["stage"])
	assert.EqualValues(t, 200, appt["earned_amount_cents"])

	// agents cannot log referral bonuses, even on their own deals
	w = env.do(t, http.MethodPut, "/admin/appointments/"+id+"/referrals", &env.alice, map[string]any{"count": 2})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, http.MethodDelete, "/admin/appointments/"+id+"/referrals/1", &env.alice, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPut, "/admin/appointments/"+id+"/referrals", &env.admin, map[string]any{"count": 2})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeData(t, w)
	incentive := resp["incentive"].(map[string]any)
	assert.EqualValues(t, 400, incentive["amount_cents"])
	assert.Equal(t, env.alice.ID.String(), incentive["user_id"])

	// other agents cannot touch alice's book
	w = env.do(t, http.MethodGet, "/api/appointments/"+id, &env.bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, http.MethodGet, "/api/appointments/"+id, &env.admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/earnings", &env.alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	earnings := decodeData(t, w)
	assert.EqualValues(t, 1000, earnings["lifetime_cents"])
	assert.NotNil(t, earnings["current"])

	w = env.do(t, http.MethodGet, "/api/earnings?scope=team", &env.alice, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, http.MethodGet, "/api/earnings?scope=team", &env.admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/performance", &env.alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	perf := decodeData(t, w)
	assert.EqualValues(t, 1, perf["onboards"])
	assert.EqualValues(t, 2, perf["total_referrals"])
}

func TestListIncentivesHidesOtherAgents(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, http.MethodPost, "/admin/incentives", &env.admin, map[string]any{"user_id": env.bob.ID.String(), "amount_cents": 5000, "label": "Spiff"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(t, http.MethodPost, "/admin/incentives", &env.admin, map[string]any{"user_id": "team", "amount_cents": 1000, "label": "Team lunch"})
	require.Equal(t, http.StatusCreated, w.Code)

	var payload struct {
		Data []map[string]any `json:"data"`
	}
	w = env.do(t, http.MethodGet, "/api/incentives", &env.alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 1)
	assert.Equal(t, "team", payload.Data[0]["user_id"])

	w = env.do(t, http.MethodGet, "/api/incentives", &env.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Len(t, payload.Data, 2)
}

func TestImportWithoutActiveCycle(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, http.MethodPost, "/admin/referrals/import", &env.admin, map[string]any{
		"rows": []map[string]any{{"name": "Acme", "phone": "555", "referral_count": 3}},
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "no_active_cycle", decodeError(t, w).Code)

	w = env.do(t, http.MethodPost, "/admin/referrals/import", &env.admin, map[string]any{"rows": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelfCloseWithRuleAndReferralsLifetime(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, http.MethodPost, "/admin/pay-cycles", &env.admin, map[string]any{"start_date": "2024-03-01", "end_date": "2024-03-31"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(t, http.MethodPut, "/admin/settings", &env.admin, map[string]any{"referral_commission_cents": 500})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/admin/incentive-rules", &env.admin, map[string]any{
		"target": "team", "kind": "PER_DEAL", "value_cents": 100, "label": "Team push",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/appointments", &env.alice, map[string]any{
		"name":          "Acme Plumbing",
		"scheduled_at":  "2024-03-10T15:00:00Z",
		"live_transfer": true,
		"self_close":    true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	appt := decodeData(t, w)
	assert.EqualValues(t, 400, appt["earned_amount_cents"])
	assert.EqualValues(t, 100, appt["rule_bonus_cents"])

	w = env.do(t, http.MethodPut, "/admin/appointments/"+appt["id"].(string)+"/referrals", &env.admin, map[string]any{"count": 2})
	require.Equal(t, http.StatusOK, w.Code)

	// snapshot 400 + 2 referrals at 500, plus the stored rule (100) and referral (1000) incentives
	w = env.do(t, http.MethodGet, "/api/earnings", &env.alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	earnings := decodeData(t, w)
	assert.EqualValues(t, 2500, earnings["lifetime_cents"])
	current := earnings["current"].(map[string]any)
	assert.EqualValues(t, 2500, current["total_cents"])
}
