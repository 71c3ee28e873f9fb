package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountHTTP "github.com/allisson/ledger/internal/account/http"
	"github.com/allisson/ledger/internal/account/usecase/mocks"
	"github.com/allisson/ledger/internal/config"
	"github.com/allisson/ledger/internal/metrics"
	outboxUseCase "github.com/allisson/ledger/internal/outbox/usecase"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeBacklog struct {
	backlog *outboxUseCase.Backlog
	err     error
}

func (f fakeBacklog) Backlog(context.Context) (*outboxUseCase.Backlog, error) {
	return f.backlog, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pingableDB(t *testing.T, pingErr error) *Server {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mock.ExpectPing().WillReturnError(pingErr)
	return NewServer(db, "localhost", 8080, discardLogger())
}

func readiness(t *testing.T, server *Server) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

	server.readinessHandler(c)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealthHandler(t *testing.T) {
	server := NewServer(nil, "localhost", 8080, discardLogger())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	server.healthHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	t.Run("nil database", func(t *testing.T) {
		status, body := readiness(t, NewServer(nil, "localhost", 8080, discardLogger()))

		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, "not_ready", body["status"])
		assert.Equal(t, "error", body["components"].(map[string]any)["database"])
	})

	t.Run("ping failure", func(t *testing.T) {
		status, body := readiness(t, pingableDB(t, errors.New("connection refused")))

		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, "not_ready", body["status"])
	})

	t.Run("ready", func(t *testing.T) {
		server := pingableDB(t, nil)
		server.backlog = fakeBacklog{backlog: &outboxUseCase.Backlog{Unpublished: 3, Threshold: 100}}

		status, body := readiness(t, server)

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ready", body["status"])
		outbox := body["components"].(map[string]any)["outbox"].(map[string]any)
		assert.Equal(t, "ok", outbox["status"])
		assert.InDelta(t, 3, outbox["unpublished"], 0)
	})

	t.Run("backlog above threshold is degraded", func(t *testing.T) {
		server := pingableDB(t, nil)
		server.backlog = fakeBacklog{backlog: &outboxUseCase.Backlog{Unpublished: 101, Threshold: 100, Degraded: true}}

		status, body := readiness(t, server)

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "degraded", body["status"])
	})

	t.Run("backlog error keeps the instance ready", func(t *testing.T) {
		server := pingableDB(t, nil)
		server.backlog = fakeBacklog{err: errors.New("timeout")}

		status, body := readiness(t, server)

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "unknown", body["components"].(map[string]any)["outbox"])
	})
}

func TestCustomLoggerMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(discardLogger()))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	_, err := uuid.Parse(w.Header().Get("X-Request-Id"))
	assert.NoError(t, err)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(1, 2, discardLogger()))
	router.GET("/v1/accounts", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/accounts", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Another client has its own bucket.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/accounts", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupRouter_Routes(t *testing.T) {
	accountUC := &mocks.MockAccountUseCase{}
	transactionUC := &mocks.MockTransactionUseCase{}
	logger := discardLogger()

	server := NewServer(nil, "localhost", 8080, logger)
	server.SetupRouter(
		&config.Config{},
		accountHTTP.NewAccountHandler(accountUC, logger),
		accountHTTP.NewTransactionHandler(transactionUC, logger),
		nil,
		nil,
	)

	routes := make(map[string]bool)
	for _, r := range server.router.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /ready",
		"POST /v1/accounts",
		"GET /v1/accounts",
		"GET /v1/accounts/:id",
		"DELETE /v1/accounts/:id",
		"PATCH /v1/accounts/:id/interest-rate",
		"GET /v1/accounts/:id/statement",
		"POST /v1/transactions",
		"POST /v1/transfers",
		"POST /v1/clients/:owner_id/block",
		"POST /v1/clients/:owner_id/unblock",
	} {
		assert.True(t, routes[want], want)
	}

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_ShutdownGracefully(t *testing.T) {
	logger := discardLogger()
	server := NewServer(nil, "localhost", 0, logger)
	server.SetupRouter(
		&config.Config{},
		accountHTTP.NewAccountHandler(&mocks.MockAccountUseCase{}, logger),
		accountHTTP.NewTransactionHandler(&mocks.MockTransactionUseCase{}, logger),
		nil,
		nil,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(context.Background()) }()
	time.Sleep(50 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(shutdownCtx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestMetricsServer_Endpoints(t *testing.T) {
	provider, err := metrics.NewProvider("ledger_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	metricsServer := NewMetricsServer("localhost", 8081, discardLogger(), provider)

	w := httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	w = httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}
