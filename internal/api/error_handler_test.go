package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/meetkit/meetkit/internal/core/domain"
)

func TestResolveError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	log := zerolog.Nop()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid token", domain.ErrTokenInvalid, http.StatusUnauthorized},
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"project not found", domain.ErrProjectNotFound, http.StatusNotFound},
		{"session not found", domain.ErrSessionNotFound, http.StatusNotFound},
		{"user exists", domain.ErrUserExists, http.StatusConflict},
		{"inactive session", domain.ErrInactiveSession, http.StatusConflict},
		{"configuration", domain.ErrConfiguration, http.StatusBadRequest},
		{"device groups", domain.NewInvalidDeviceGroupError([]string{"lab-9"}), http.StatusUnprocessableEntity},
		{"echo error", echo.NewHTTPError(http.StatusTeapot, "teapot"), http.StatusTeapot},
		{"unknown", http.ErrBodyNotAllowed, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := resolveError(tc.err, log, c)
			if code != tc.want {
				t.Fatalf("got %d, want %d", code, tc.want)
			}
		})
	}
}

func TestResolveError_DeviceGroupMessageNamesGroups(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	_, msg := resolveError(domain.NewInvalidDeviceGroupError([]string{"lab-9", "lab-2"}), zerolog.Nop(), c)
	if msg != "unregistered device groups: lab-2, lab-9" {
		t.Fatalf("message: %q", msg)
	}
}
