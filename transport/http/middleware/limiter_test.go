package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"hotel/config"
	otelMocks "hotel/infras/otel/mocks"
	cacheMocks "hotel/shared/cache/mocks"
	"hotel/shared/constant"
	"hotel/transport/http/middleware"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name          string
		count         int64
		cacheErr      error
		wantCode      int
		wantRemaining string
	}{
		{name: "first request", count: 1, wantCode: http.StatusOK, wantRemaining: "2"},
		{name: "last allowed", count: 3, wantCode: http.StatusOK, wantRemaining: "0"},
		{name: "over the limit", count: 4, wantCode: http.StatusTooManyRequests, wantRemaining: "0"},
		{name: "cache down lets traffic through", cacheErr: errors.New("redis down"), wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockCache := cacheMocks.NewMockRedisCache(ctrl)

			cfg := &config.Config{}
			cfg.App.RateLimiter.Enable = true
			cfg.App.RateLimiter.MaxRequests = 3
			cfg.App.RateLimiter.WindowSeconds = 60

			mockCache.EXPECT().
				Incr(gomock.Any(), "limiter:10.0.0.7:curl", 60).
				Return(tt.count, tt.cacheErr)

			app := middleware.NewAppMiddleware(otelMocks.NewOtel(), cfg, mockCache)
			handler := app.RateLimit()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/rooms", nil)
			req.RemoteAddr = "10.0.0.7:51234"
			req.Header.Set(constant.RequestHeaderUserAgent, "curl")

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantRemaining, rec.Header().Get(constant.RequestHeaderRateLimitRemaining))
		})
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)

	app := middleware.NewAppMiddleware(otelMocks.NewOtel(), &config.Config{}, mockCache)
	handler := app.RateLimit()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/rooms", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
