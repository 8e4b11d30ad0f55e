package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-show-seat-reservation/internal/config"
)

func serveMetrics(t *testing.T, cfg config.MetricsConfig, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/metrics", func(c echo.Context) error {
		return c.String(http.StatusOK, "metrics")
	}, MetricsBasicAuth(cfg))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestMetricsBasicAuth(t *testing.T) {
	cfg := config.MetricsConfig{User: "testuser", Password: "testpass"}

	t.Run("認証設定がなければ素通し", func(t *testing.T) {
		rec := serveMetrics(t, config.MetricsConfig{}, "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "metrics", rec.Body.String())
	})

	t.Run("片方だけの設定は無効扱い", func(t *testing.T) {
		rec := serveMetrics(t, config.MetricsConfig{User: "testuser"}, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("正しい認証情報", func(t *testing.T) {
		rec := serveMetrics(t, cfg, basic("testuser", "testpass"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("誤った認証情報は401", func(t *testing.T) {
		rec := serveMetrics(t, cfg, basic("wronguser", "wrongpass"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("認証ヘッダーなしは401", func(t *testing.T) {
		rec := serveMetrics(t, cfg, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
