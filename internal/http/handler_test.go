package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"agro-herders-service/internal/auth"
	"agro-herders-service/internal/config"
	agrodb "agro-herders-service/internal/db"
	"agro-herders-service/internal/geo"
	apihttp "agro-herders-service/internal/http"
	"agro-herders-service/internal/metrics"
	"agro-herders-service/internal/repository"
	"agro-herders-service/internal/service"
	"agro-herders-service/internal/testutil"
)

const corridorA = `{"type":"Polygon","coordinates":[[[7.0,9.0],[7.0,9.5],[7.5,9.5],[7.5,9.0],[7.0,9.0]]]}`

type testAPI struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	token  string
}

func newTestAPI(t *testing.T, loginBurst int) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	db := testutil.NewDB(t)
	opts := testutil.Options()
	opts.Metrics = m
	herders := repository.NewHerderRepository(db, opts)
	routes := repository.NewRouteRepository(db, opts)
	users := repository.NewUserRepository(db, opts)
	audits := repository.NewVerificationRepository(db, opts)

	writer := service.NewAuditWriter(audits, 16, log, m)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testutil.DefaultTestTimeout)
		defer cancel()
		_ = writer.Close(ctx)
	})

	index := geo.NewIndex()
	authSvc := service.NewAuthService(users,
		auth.NewTokenManager("http-test-secret-that-is-long-enough", "agro-herders", time.Hour),
		auth.NewMemoryRevocationStore(), log, m)
	services := apihttp.Services{
		Auth:         authSvc,
		Herders:      service.NewHerderService(herders, log),
		Routes:       service.NewRouteService(routes, index, log, m),
		Verification: service.NewVerificationService(herders, index, writer, service.VerificationOptions{}, log, m),
		Dashboard:    service.NewDashboardService(herders, routes, audits),
	}

	health := func(ctx context.Context) error { return agrodb.Ping(ctx, db) }

	router := apihttp.NewRouter(config.ServerConfig{CORSOrigins: []string{"http://localhost:3000"}}, apihttp.RouterDeps{
		Handler:      apihttp.NewHandler(services, health, log),
		Auth:         apihttp.AuthMiddleware(authSvc, log),
		LoginLimiter: apihttp.LoginRateLimiter(0.001, loginBurst, log),
		Metrics:      m,
	}, log)

	_, err = authSvc.CreateUser(context.Background(), "officer@connexxion.gov", "s3cret-pass", "Officer One", service.RoleOfficer)
	require.NoError(t, err)

	api := &testAPI{t: t, db: db, router: router}
	return api
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) login() {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/auth/login", map[string]string{"email": "officer@connexxion.gov", "password": "s3cret-pass"})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decode(a.t, rec, &res)
	require.Equal(a.t, "bearer", res.TokenType)
	a.token = res.AccessToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	decode(t, rec, &body)
	return body.Detail
}

func TestRootAndHealth(t *testing.T) {
	api := newTestAPI(t, 5)

	rec := api.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Agro-Herders API is running")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = api.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","api":"operational","database":"connected"}`, rec.Body.String())

	sqlDB, err := api.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	rec = api.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthEndpoints(t *testing.T) {
	api := newTestAPI(t, 10)

	rec := api.do(http.MethodGet, "/herders/", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", detailOf(t, rec))

	rec = api.do(http.MethodPost, "/auth/login", map[string]string{"email": "officer@connexxion.gov", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", detailOf(t, rec))

	api.login()
	rec = api.do(http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"officer@connexxion.gov"`)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = api.do(http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate credentials", detailOf(t, rec))
}

func TestLoginRateLimit(t *testing.T) {
	api := newTestAPI(t, 2)
	creds := map[string]string{"email": "officer@connexxion.gov", "password": "wrong"}

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/auth/login", creds).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/auth/login", creds).Code)
	rec := api.do(http.MethodPost, "/auth/login", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestHerderEndpoints(t *testing.T) {
	api := newTestAPI(t, 5)
	api.login()

	rec := api.do(http.MethodPost, "/herders/register", map[string]any{
		"full_name": "Musa Bello", "age": 42, "state_of_origin": "Plateau",
		"face_vector": "FACE_X", "fingerprint_hash": "FINGER_X",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var registered struct {
		Message  string `json:"message"`
		HerderID int64  `json:"herder_id"`
	}
	decode(t, rec, &registered)
	assert.Equal(t, "Herder registered successfully", registered.Message)
	assert.NotZero(t, registered.HerderID)
	assert.NotContains(t, rec.Body.String(), "FACE_X")

	for _, path := range []string{"/herders", "/herders/"} {
		rec = api.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		var list []map[string]any
		decode(t, rec, &list)
		assert.Len(t, list, 1)
	}

	rec = api.do(http.MethodPost, "/herders/livestock", map[string]any{"herder_id": registered.HerderID, "rfid_code": "RFID_1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = api.do(http.MethodPost, "/herders/livestock", map[string]any{"herder_id": registered.HerderID, "rfid_code": "rfid_1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = api.do(http.MethodPost, "/herders/livestock", map[string]any{"herder_id": 999, "rfid_code": "RFID_2"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, "/herders/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var details struct {
		Herder    map[string]any   `json:"herder"`
		Livestock []map[string]any `json:"livestock"`
	}
	decode(t, rec, &details)
	assert.Equal(t, "Musa Bello", details.Herder["full_name"])
	assert.Len(t, details.Livestock, 1)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/herders/abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/herders/999", nil).Code)

	rec = api.do(http.MethodPatch, "/herders/1/status", map[string]string{"status": "inactive"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"inactive"`)

	rec = api.do(http.MethodPost, "/herders/register", map[string]any{"full_name": "No Biometrics", "age": 30, "state_of_origin": "Kano"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "face_vector is required", detailOf(t, rec))
}

func TestRoutesAndVerification(t *testing.T) {
	api := newTestAPI(t, 5)
	api.login()

	rec := api.do(http.MethodPost, "/herders/register", map[string]any{
		"full_name": "Musa Bello", "age": 42, "state_of_origin": "Plateau",
		"face_vector": "FACE_X", "fingerprint_hash": "FINGER_X",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = api.do(http.MethodPost, "/herders/livestock", map[string]any{"herder_id": 1, "rfid_code": "RFID_1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodPost, "/routes/", map[string]any{
		"route_name": "Corridor A", "state": "Plateau", "geojson_data": json.RawMessage(corridorA),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(http.MethodPost, "/routes/", map[string]any{
		"route_name": "Broken", "state": "Plateau", "geojson_data": map[string]any{"type": "Point", "coordinates": []float64{7, 9}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/routes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var routes []struct {
		ID          int64           `json:"id"`
		GeoJSONData json.RawMessage `json:"geojson_data"`
	}
	decode(t, rec, &routes)
	require.Len(t, routes, 1)
	assert.JSONEq(t, corridorA, string(routes[0].GeoJSONData))

	rec = api.do(http.MethodPost, "/routes/check-location", map[string]float64{"latitude": 9.2, "longitude": 7.2})
	require.Equal(t, http.StatusOK, rec.Code)
	var check struct {
		Authorized bool   `json:"authorized"`
		Message    string `json:"message"`
	}
	decode(t, rec, &check)
	assert.True(t, check.Authorized)
	assert.Equal(t, "Location is within 1 authorized route(s)", check.Message)

	rec = api.do(http.MethodPost, "/routes/check-location", map[string]float64{"latitude": 9.2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/verify/full", map[string]any{
		"face_vector": "FACE_X", "fingerprint_hash": "FINGER_X", "rfid_code": "RFID_1",
		"location_lat": 9.2, "location_lng": 7.2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var verdict struct {
		Status    string `json:"status"`
		RiskLevel string `json:"risk_level"`
		Herder    *struct {
			ID int64 `json:"id"`
		} `json:"herder"`
	}
	decode(t, rec, &verdict)
	assert.Equal(t, "verified", verdict.Status)
	assert.Equal(t, "low", verdict.RiskLevel)
	require.NotNil(t, verdict.Herder)
	assert.Equal(t, int64(1), verdict.Herder.ID)

	rec = api.do(http.MethodPost, "/verify/full", map[string]any{"face_vector": "", "fingerprint_hash": "", "rfid_code": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, detailOf(t, rec), "required")

	rec = api.do(http.MethodPost, "/verify/face", map[string]string{"face_vector": "FACE_Z"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"match":false,"herder_id":null,"herder":null}`, rec.Body.String())

	rec = api.do(http.MethodPost, "/verify/rfid", map[string]string{"rfid_code": "RFID_1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"match":true`)

	rec = api.do(http.MethodPatch, "/routes/1/status", map[string]string{"status": "closed"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodPost, "/routes/check-location", map[string]float64{"latitude": 9.2, "longitude": 7.2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No active routes found")
}

func TestDashboardAndMetrics(t *testing.T) {
	api := newTestAPI(t, 5)
	api.login()

	rec := api.do(http.MethodPost, "/verify/rfid", map[string]string{"rfid_code": "RFID_404"})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Eventually(t, func() bool {
		rec := api.do(http.MethodGet, "/dashboard/stats", nil)
		if rec.Code != http.StatusOK {
			return false
		}
		var stats struct {
			TotalVerifications  int64            `json:"total_verifications"`
			RecentVerifications []map[string]any `json:"recent_verifications"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			return false
		}
		return stats.TotalVerifications == 1 && len(stats.RecentVerifications) == 1
	}, testutil.DefaultTestTimeout, 10*time.Millisecond)

	rec = api.do(http.MethodGet, "/dashboard/stats", nil)
	assert.Contains(t, rec.Body.String(), `"users":{"full_name":"Officer One"}`)
	assert.Contains(t, rec.Body.String(), `"herders":null`)

	rec = api.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "agro_verifications_total")
	assert.Contains(t, rec.Body.String(), "agro_login_attempts_total")
}

func TestStoreOutageIsServiceUnavailable(t *testing.T) {
	api := newTestAPI(t, 5)
	api.login()

	sqlDB, err := api.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rec := api.do(http.MethodGet, "/herders/", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "service temporarily unavailable", detailOf(t, rec))
}
