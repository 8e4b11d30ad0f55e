package handler

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-show-seat-reservation/internal/api"
)

const (
	testShowID    = "550e8400-e29b-41d4-a716-446655440000"
	testBookingID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
)

// newTestEcho は本番と同じバリデーターとエラーハンドラーを持つEchoを返す
func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	return e
}

// newJSONContext はJSONボディ付きのリクエストコンテキストを作る
func newJSONContext(e *echo.Echo, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// newIDContext は :id パラメータ付きのリクエストコンテキストを作る
func newIDContext(e *echo.Echo, method, path, id string) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := newJSONContext(e, method, path, "")
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func requireHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, code, he.Code)
}
