package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiroute/optiroute/internal/api"
	"github.com/optiroute/optiroute/internal/api/models"
	"github.com/optiroute/optiroute/internal/auth"
	"github.com/optiroute/optiroute/internal/cache"
	"github.com/optiroute/optiroute/internal/evaluate"
	"github.com/optiroute/optiroute/internal/geocode"
	"github.com/optiroute/optiroute/internal/matrix"
	"github.com/optiroute/optiroute/internal/optimizer"
	"github.com/optiroute/optiroute/internal/route"
	"github.com/optiroute/optiroute/internal/solver"
)

// fixedGeocoder resolves a fixed address table.
type fixedGeocoder struct {
	points map[string]geocode.Point
}

func (p *fixedGeocoder) Geocode(_ context.Context, address string) (geocode.Point, error) {
	pt, ok := p.points[address]
	if !ok {
		return geocode.Point{}, geocode.ErrAddressNotFound
	}
	return pt, nil
}

func (p *fixedGeocoder) Name() string { return "fixed" }

// testJWTService creates a JWT service for generating test tokens.
func testJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.optiroute.dev",
		Audience:   "optiroute-api",
	})
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zerolog.New(io.Discard)

	geocoder := geocode.NewService(geocode.ServiceConfig{
		Providers: []geocode.Provider{&fixedGeocoder{points: map[string]geocode.Point{
			"depot":  {Lat: -23.5505, Lon: -46.6333},
			"stop a": {Lat: -23.5510, Lon: -46.6340},
			"stop b": {Lat: -23.5520, Lon: -46.6350},
		}}},
		Logger: logger,
	})

	prices := evaluate.NewPriceService(evaluate.PriceServiceConfig{Logger: logger})

	svc := optimizer.NewService(optimizer.ServiceConfig{
		Geocoder:  geocoder,
		Matrices:  matrix.NewBuilder(matrix.BuilderConfig{Logger: logger}),
		Solver:    solver.New(solver.Config{Logger: logger}),
		Evaluator: evaluate.NewEvaluator(evaluate.EvaluatorConfig{Prices: prices, Logger: logger}),
		Janitor:   cache.NewJanitor(logger),
		Logger:    logger,
	})

	routes := route.NewService(route.ServiceConfig{
		Repository: route.NewInMemoryRepository(),
		Optimizer:  svc,
		Logger:     logger,
	})

	return api.NewRouter(api.RouterConfig{
		Version:      "test",
		BuildTime:    "2024-01-01T00:00:00Z",
		Logger:       logger,
		Tokens:       testJWTService(),
		RouteService: routes,
		PriceService: prices,
	})
}

// addAuthHeader adds a valid Bearer token for the given tenant.
func addAuthHeader(t *testing.T, req *http.Request, tenantID string) {
	t.Helper()
	token, _, err := testJWTService().GenerateAccessToken(tenantID)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_SystemStatusRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestRouter_SystemStatusWithAuth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	addAuthHeader(t, req, "tnt_status")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusOK, status.Status)
}

func TestRouter_FuelPrices(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/fuel/prices", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var prices models.FuelPrices
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prices))
	require.Len(t, prices.Items, 4)

	byFuel := map[string]models.FuelPrice{}
	for _, item := range prices.Items {
		byFuel[item.Fuel] = item
	}
	assert.Equal(t, 5.80, byFuel["diesel"].Price)
	assert.Equal(t, "m3", byFuel["cng"].Unit)
	assert.Equal(t, "liter", byFuel["gasoline"].Unit)
}

func TestRouter_RoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/routes", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func createRouteRequest(t *testing.T, tenantID string) *http.Request {
	t.Helper()
	body, err := json.Marshal(models.RouteCreateRequest{
		Name:   "morning run",
		Origin: "depot",
		Deliveries: []models.DeliveryInput{
			{Address: "stop a"},
			{Address: "stop b"},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/routes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req, tenantID)
	return req
}

func TestRouter_CreateRoute(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, createRouteRequest(t, "tnt_create"))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("Location"))

	var created models.Route
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	assert.Contains(t, created.ID, "rt_")
	assert.Equal(t, "completed", created.Status)
	require.NotNil(t, created.Result)
	assert.Len(t, created.Result.Stops, 2)
	assert.Equal(t, "haversine", created.Result.MatrixSource)
	assert.NotEmpty(t, created.Result.MapLink)
}

func TestRouter_CreateRouteFuelPriceOverride(t *testing.T) {
	router := newTestRouter(t)

	body := []byte(`{"origin":"depot","deliveries":[{"address":"stop a"}],` +
		`"vehicle":{"fuel":"diesel","fuelPricePerUnit":9.99}}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/routes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req, "tnt_override")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Route
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotNil(t, created.Result)

	assert.Equal(t, 9.99, created.Result.FuelPricePerUnit)
	assert.Equal(t, "liter", created.Result.FuelUnit)
	assert.InDelta(t, created.Result.FuelConsumed*9.99, created.Result.FuelCost, 1e-9)
}

func TestRouter_CreateRouteRejectsNegativeFuelPrice(t *testing.T) {
	router := newTestRouter(t)

	body := []byte(`{"origin":"depot","deliveries":[{"address":"stop a"}],` +
		`"vehicle":{"fuelPricePerUnit":-1}}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/routes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req, "tnt_override")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	require.NotEmpty(t, problem.Errors)
	assert.Equal(t, "vehicle.fuelPricePerUnit", problem.Errors[0].Field)
}

func TestRouter_CreateRouteValidation(t *testing.T) {
	router := newTestRouter(t)

	body := []byte(`{"name":"no stops","origin":"depot","deliveries":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/routes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req, "tnt_validation")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	require.NotEmpty(t, problem.Errors)
	assert.Equal(t, "deliveries", problem.Errors[0].Field)
}

func TestRouter_CreateRouteUnknownAddress(t *testing.T) {
	router := newTestRouter(t)

	body := []byte(`{"origin":"depot","deliveries":[{"address":"nowhere"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/routes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req, "tnt_badaddr")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Contains(t, problem.Detail, "nowhere")
}

func TestRouter_GetAndDeleteRoute(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, createRouteRequest(t, "tnt_crud"))
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Route
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/routes/%s", created.ID), http.NoBody)
	addAuthHeader(t, req, "tnt_crud")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/v1/routes/%s", created.ID), http.NoBody)
	addAuthHeader(t, req, "tnt_crud")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/routes/%s", created.ID), http.NoBody)
	addAuthHeader(t, req, "tnt_crud")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RoutesAreTenantScoped(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, createRouteRequest(t, "tnt_owner"))
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Route
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// Another tenant cannot see the route.
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/routes/%s", created.ID), http.NoBody)
	addAuthHeader(t, req, "tnt_other")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ListRoutes(t *testing.T) {
	router := newTestRouter(t)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, createRouteRequest(t, "tnt_list"))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/routes", http.NoBody)
	addAuthHeader(t, req, "tnt_list")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var paged models.PagedRoutes
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paged))
	assert.Len(t, paged.Items, 2)
}

func TestRouter_ListRoutesRejectsBadLimit(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/routes?limit=0", http.NoBody)
	addAuthHeader(t, req, "tnt_limit")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_UnknownRouteReturns404(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/nope", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_UpdateRouteStatus(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, createRouteRequest(t, "tnt_patch"))
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Route
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	body := []byte(`{"status":"in_progress"}`)
	req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/v1/routes/%s", created.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req, "tnt_patch")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var updated models.Route
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "in_progress", updated.Status)

	// Unknown status values are rejected at the boundary.
	req = httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/v1/routes/%s", created.ID), bytes.NewReader([]byte(`{"status":"archived"}`)))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req, "tnt_patch")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type recordingQueue struct {
	enqueued []string
}

func (q *recordingQueue) Enqueue(_ context.Context, tenantID, routeID string) error {
	q.enqueued = append(q.enqueued, tenantID+"/"+routeID)
	return nil
}

func TestRouter_CreateRouteAsync(t *testing.T) {
	logger := zerolog.New(io.Discard)
	queue := &recordingQueue{}

	geocoder := geocode.NewService(geocode.ServiceConfig{
		Providers: []geocode.Provider{&fixedGeocoder{points: map[string]geocode.Point{
			"depot":  {Lat: -23.5505, Lon: -46.6333},
			"stop a": {Lat: -23.5510, Lon: -46.6340},
			"stop b": {Lat: -23.5520, Lon: -46.6350},
		}}},
		Logger: logger,
	})
	prices := evaluate.NewPriceService(evaluate.PriceServiceConfig{Logger: logger})
	routes := route.NewService(route.ServiceConfig{
		Repository: route.NewInMemoryRepository(),
		Optimizer: optimizer.NewService(optimizer.ServiceConfig{
			Geocoder:  geocoder,
			Matrices:  matrix.NewBuilder(matrix.BuilderConfig{Logger: logger}),
			Solver:    solver.New(solver.Config{Logger: logger}),
			Evaluator: evaluate.NewEvaluator(evaluate.EvaluatorConfig{Prices: prices, Logger: logger}),
			Janitor:   cache.NewJanitor(logger),
			Logger:    logger,
		}),
		Logger: logger,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:      "test",
		BuildTime:    "2024-01-01T00:00:00Z",
		Logger:       logger,
		Tokens:       testJWTService(),
		RouteService: routes,
		PriceService: prices,
		Queue:        queue,
	})

	body := []byte(`{"origin":"depot","deliveries":[{"address":"stop a"}],"async":true}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/routes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req, "tnt_async")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var accepted models.Route
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	assert.Equal(t, "in_progress", accepted.Status)
	assert.Nil(t, accepted.Result)

	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "tnt_async/"+accepted.ID, queue.enqueued[0])
}
