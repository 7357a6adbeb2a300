package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"peercart/internal/view"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newErrorEcho(t *testing.T, fail error) *echo.Echo {
	t.Helper()

	renderer, err := view.New()
	require.NoError(t, err)

	e := echo.New()
	e.Renderer = renderer
	e.HTTPErrorHandler = errorHandler(zap.NewNop())
	e.GET("/fail", func(c echo.Context) error { return fail })
	return e
}

func TestErrorHandler(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		method   string
		wantCode int
		wantBody string
		location string
	}{
		{"unauthorized goes to login", echo.NewHTTPError(http.StatusUnauthorized, "login"), http.MethodGet, http.StatusSeeOther, "", "/auth?mode=login"},
		{"forbidden message is shown", echo.NewHTTPError(http.StatusForbidden, "Sellers only"), http.MethodGet, http.StatusForbidden, "Sellers only", ""},
		{"not found has friendly text", echo.NewHTTPError(http.StatusNotFound, "not found"), http.MethodGet, http.StatusNotFound, "We could not find that page", ""},
		{"plain error hides details", errors.New("pq: connection refused"), http.MethodGet, http.StatusInternalServerError, "Something went wrong", ""},
		{"head has no body", echo.NewHTTPError(http.StatusForbidden, "x"), http.MethodHead, http.StatusForbidden, "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newErrorEcho(t, tc.err)
			e.HEAD("/fail", func(c echo.Context) error { return tc.err })

			req := httptest.NewRequest(tc.method, "/fail", nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
			if tc.location != "" {
				assert.Equal(t, tc.location, rec.Header().Get(echo.HeaderLocation))
			}
			if tc.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tc.wantBody)
				assert.NotContains(t, rec.Body.String(), "connection refused")
			}
			if tc.method == http.MethodHead {
				assert.Empty(t, rec.Body.String())
			}
		})
	}
}
