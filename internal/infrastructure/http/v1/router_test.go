package v1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/app/apptest"
	"buildledger/internal/core/actor"
	"buildledger/internal/infrastructure/auth"
	v1 "buildledger/internal/infrastructure/http/v1"
	"buildledger/internal/infrastructure/http/v1/middleware"
)

type apiClient struct {
	t      *testing.T
	fx     *apptest.Fixture
	server http.Handler
	jwt    *auth.JWTService
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	fx := apptest.New(t)
	jwt := auth.NewJWTService(auth.DefaultJWTConfig("test-secret"))
	router := v1.NewRouter(v1.RouterConfig{
		Services:     fx.Services,
		JWTValidator: jwt,
		Idempotency:  fx.Storage.Idempotency,
	})
	return &apiClient{t: t, fx: fx, server: router, jwt: jwt}
}

func (c *apiClient) token(a actor.Actor) string {
	c.t.Helper()
	tok, _, err := c.jwt.GenerateAccessToken(a.UserID(), a.Role(), a.Name())
	require.NoError(c.t, err)
	return tok
}

func (c *apiClient) do(a *actor.Actor, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a != nil {
		req.Header.Set("Authorization", "Bearer "+c.token(*a))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	c.server.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthLiveNeedsNoToken(t *testing.T) {
	api := newAPI(t)
	w := api.do(nil, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIRejectsMissingToken(t *testing.T) {
	api := newAPI(t)
	w := api.do(nil, http.MethodGet, "/api/v1/sites", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHENTICATED", decode(t, w)["code"])
}

func TestCreateAndGetSite(t *testing.T) {
	api := newAPI(t)
	admin := api.fx.Admin

	w := api.do(&admin, http.MethodPost, "/api/v1/sites", map[string]any{
		"name":     "Riverside",
		"location": "North bank",
		"budget":   "250000",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "planning", created["status"])

	siteID := created["id"].(string)
	w = api.do(&admin, http.MethodGet, "/api/v1/sites/"+siteID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Riverside", decode(t, w)["name"])
}

func TestRoleChecks(t *testing.T) {
	api := newAPI(t)
	viewer := api.fx.Viewer

	w := api.do(&viewer, http.MethodPost, "/api/v1/sites", map[string]any{"name": "Nope", "budget": "1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(&viewer, http.MethodGet, "/api/v1/sites", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidationErrors(t *testing.T) {
	api := newAPI(t)
	accountant := api.fx.Accountant

	w := api.do(&accountant, http.MethodPost, "/api/v1/company/transactions", map[string]any{
		"type":   "incoming",
		"amount": "0",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	details := body["details"].(map[string]any)
	assert.Equal(t, map[string]any{"amount": "money_pos"}, details["fields"])

	w = api.do(&accountant, http.MethodGet, "/api/v1/sites/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdempotentReplay(t *testing.T) {
	api := newAPI(t)
	accountant := api.fx.Accountant
	body := map[string]any{"type": "incoming", "amount": "1000", "description": "capital"}

	first := api.do(&accountant, http.MethodPost, "/api/v1/company/transactions", body,
		middleware.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := api.do(&accountant, http.MethodPost, "/api/v1/company/transactions", body,
		middleware.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, decode(t, first)["id"], decode(t, second)["id"])

	w := api.do(&accountant, http.MethodGet, "/api/v1/company", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1000", decode(t, w)["totalAmount"])
}

func TestTransferFlowOverHTTP(t *testing.T) {
	api := newAPI(t)
	fx := api.fx
	from := fx.Site(t, "From", 10000)
	to := fx.Site(t, "To", 10000)
	manager := fx.Manager

	w := api.do(&manager, http.MethodPost, "/api/v1/stock/receipts", map[string]any{
		"siteId":   from.ID,
		"name":     "Cement",
		"category": "binders",
		"unit":     "bag",
		"quantity": 40,
		"unitCost": "7.5",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	stockID := decode(t, w)["id"].(string)

	w = api.do(&manager, http.MethodPost, "/api/v1/stock-transfers", map[string]any{
		"stockId":    stockID,
		"quantity":   15,
		"fromSiteId": from.ID,
		"toSiteId":   to.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	transfer := decode(t, w)
	assert.Equal(t, "requested", transfer["status"])

	w = api.do(&manager, http.MethodPatch, "/api/v1/stock-transfers/"+transfer["id"].(string)+"/decision", map[string]any{
		"decision": "approve",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "approved", decode(t, w)["status"])

	w = api.do(&manager, http.MethodGet, "/api/v1/stock/"+stockID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode(t, w)
	assert.EqualValues(t, 25, detail["quantity"])
	assert.NotEmpty(t, detail["movements"])
}

func TestSiteEntriesExport(t *testing.T) {
	api := newAPI(t)
	site := api.fx.Site(t, "Export", 500)
	admin := api.fx.Admin

	w := api.do(&admin, http.MethodGet, "/api/v1/sites/"+site.ID.String()+"/entries/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, w.Body.Len())
}
