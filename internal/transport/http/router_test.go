package httptransport

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	jwttoken "certwallet/internal/jwt_token"
	"certwallet/internal/platform/health"
	"certwallet/internal/platform/metrics"
	"certwallet/internal/wallet/handler"
	"certwallet/internal/wallet/handler/mocks"
	"certwallet/internal/wallet/service"
)

func newTestRouter(t *testing.T) (http.Handler, *mocks.MockWallet, *jwttoken.AdminTokens) {
	t.Helper()
	ctrl := gomock.NewController(t)
	wallet := mocks.NewMockWallet(ctrl)
	importer := mocks.NewMockImporter(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	tokens := jwttoken.NewAdminTokens("router-test-key", "certwallet")

	router := NewRouter(RouterConfig{
		Logger:         logger,
		Wallet:         handler.New(wallet, importer, logger),
		Health:         health.New("test"),
		AdminTokens:    tokens,
		HTTPMetrics:    metrics.NewWith(reg),
		Gatherer:       reg,
		RequestTimeout: time.Second,
		MaxBodyBytes:   1 << 10,
	})
	return router, wallet, tokens
}

func TestRouterServesWalletRoutes(t *testing.T) {
	router, wallet, _ := newTestRouter(t)
	wallet.EXPECT().List().Return([]service.Entry{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/certificates", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouterGuardsAdminRoutes(t *testing.T) {
	router, wallet, tokens := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/issuers/refresh", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := tokens.Issue("ops", time.Minute)
	require.NoError(t, err)
	wallet.EXPECT().Refresh(gomock.Any(), "").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/issuers/refresh", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterExposesHealthAndMetrics(t *testing.T) {
	router, wallet, _ := newTestRouter(t)
	wallet.EXPECT().List().Return(nil)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/certificates", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "certwallet_http_responses_total")
}

func TestRouterRejectsNonJSONBodies(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/certificates", strings.NewReader("hello"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
