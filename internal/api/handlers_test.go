package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/baletrack/config"
	"example.com/baletrack/internal/models"
	"example.com/baletrack/internal/notifier"
	"example.com/baletrack/internal/repository"
	"example.com/baletrack/internal/service"
	"example.com/baletrack/internal/tracing"
)

// Mock bale repository for handler tests
type MockBaleRepository struct {
	mock.Mock
}

func (m *MockBaleRepository) CreateBatch(ctx context.Context, bales []*models.Bale) (int, int, error) {
	args := m.Called(ctx, bales)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockBaleRepository) FindByID(ctx context.Context, id string) (*models.Bale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bale), args.Error(1)
}

func (m *MockBaleRepository) FindByTag(ctx context.Context, tag string) (*models.Bale, error) {
	args := m.Called(ctx, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bale), args.Error(1)
}

func (m *MockBaleRepository) List(ctx context.Context, filter repository.ListFilter) ([]models.Bale, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Bale), args.Error(1)
}

func (m *MockBaleRepository) UpdateStatus(ctx context.Context, change repository.StatusChange) (*models.Bale, error) {
	args := m.Called(ctx, change)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bale), args.Error(1)
}

func (m *MockBaleRepository) WipeAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Mock counter repository for handler tests
type MockCounterRepository struct {
	mock.Mock
}

func (m *MockCounterRepository) Get(ctx context.Context, season string) (*models.SeasonCounter, error) {
	args := m.Called(ctx, season)
	return args.Get(0).(*models.SeasonCounter), args.Error(1)
}

func (m *MockCounterRepository) Increment(ctx context.Context, season string, lastNumber, count int) error {
	args := m.Called(ctx, season, lastNumber, count)
	return args.Error(0)
}

func (m *MockCounterRepository) ResetAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type stubCache struct{}

func (stubCache) GetBales(ctx context.Context, key string) ([]models.Bale, error) {
	return nil, redis.Nil
}
func (stubCache) SetBales(ctx context.Context, key string, bales []models.Bale) error { return nil }
func (stubCache) InvalidateBales(ctx context.Context) error                           { return nil }

func newTestRouter(t *testing.T, baleRepo *MockBaleRepository, counterRepo *MockCounterRepository) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tracer, err := tracing.NewTracer(config.TracingConfig{})
	require.NoError(t, err)

	registry := notifier.NewRegistry()
	svc := service.NewBaleService(baleRepo, counterRepo, stubCache{}, registry, tracer)

	router := gin.New()
	NewHandler(svc, registry).RegisterRoutes(router)
	return router
}

func doRequest(router *gin.Engine, method, path string, body interface{}, roles string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if roles != "" {
		req.Header.Set("X-Actor-Id", "op-1")
		req.Header.Set("X-Actor-Roles", roles)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, new(MockBaleRepository), new(MockCounterRepository))

	resp := doRequest(router, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestMissingActorHeaderIsUnauthorized(t *testing.T) {
	router := newTestRouter(t, new(MockBaleRepository), new(MockCounterRepository))

	resp := doRequest(router, http.MethodGet, "/bales", nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreateBatchEndpoint(t *testing.T) {
	baleRepo := new(MockBaleRepository)
	counterRepo := new(MockCounterRepository)
	router := newTestRouter(t, baleRepo, counterRepo)

	counterRepo.On("Get", mock.Anything, "25/26").
		Return(&models.SeasonCounter{Season: "25/26", LastNumber: 0}, nil)
	counterRepo.On("Increment", mock.Anything, "25/26", 0, 2).Return(nil)
	baleRepo.On("CreateBatch", mock.Anything, mock.Anything).Return(2, 0, nil)

	resp := doRequest(router, http.MethodPost, "/bales/batch", models.CreateBatchRequest{
		Season: "25/26", Plot: "T1B", Count: 2,
	}, "field")
	require.Equal(t, http.StatusCreated, resp.Code)

	var result models.CreateBatchResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.Equal(t, 2, result.Created)
	require.Equal(t, []string{"25/26-T1B-00001", "25/26-T1B-00002"}, result.Tags)
}

func TestCreateBatchForbiddenRole(t *testing.T) {
	router := newTestRouter(t, new(MockBaleRepository), new(MockCounterRepository))

	resp := doRequest(router, http.MethodPost, "/bales/batch", models.CreateBatchRequest{
		Season: "25/26", Plot: "T1B", Count: 2,
	}, "transport")
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestTransitionRejectionCarriesCurrentStatus(t *testing.T) {
	baleRepo := new(MockBaleRepository)
	router := newTestRouter(t, baleRepo, new(MockCounterRepository))

	baleRepo.On("FindByID", mock.Anything, "b-1").Return(&models.Bale{
		Base:   models.Base{UUID: "b-1"},
		Status: models.StatusField,
	}, nil)

	resp := doRequest(router, http.MethodPatch, "/bales/b-1/status", models.TransitionRequest{
		TargetStatus: "processed",
	}, "processing")
	require.Equal(t, http.StatusConflict, resp.Code)

	var envelope ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, CodeIllegalTransition, envelope.Code)
	require.Equal(t, "field", envelope.CurrentStatus)
}

func TestTransitionUnknownTargetStatus(t *testing.T) {
	router := newTestRouter(t, new(MockBaleRepository), new(MockCounterRepository))

	resp := doRequest(router, http.MethodPatch, "/bales/b-1/status", models.TransitionRequest{
		TargetStatus: "warehouse",
	}, "transport")
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestWipeRequiresExactConfirmation(t *testing.T) {
	baleRepo := new(MockBaleRepository)
	counterRepo := new(MockCounterRepository)
	router := newTestRouter(t, baleRepo, counterRepo)

	resp := doRequest(router, http.MethodDelete, "/bales", models.WipeRequest{
		Confirm: "please",
	}, "superadmin")
	require.Equal(t, http.StatusBadRequest, resp.Code)

	baleRepo.On("WipeAll", mock.Anything).Return(int64(4), nil)
	counterRepo.On("ResetAll", mock.Anything).Return(nil)

	resp = doRequest(router, http.MethodDelete, "/bales", models.WipeRequest{
		Confirm: service.WipeConfirmation,
	}, "superadmin")
	require.Equal(t, http.StatusOK, resp.Code)

	var result models.WipeResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.Equal(t, int64(4), result.Deleted)
}
