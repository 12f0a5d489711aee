package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/imadegautama/simple-library/pkg/auth"
	md "github.com/imadegautama/simple-library/pkg/middleware"
)

func signToken(t *testing.T, profile auth.Profile, expiresAt time.Time) string {
	t.Helper()
	claims := auth.Claims{
		Profile: profile,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(auth.JWTKey)
	require.NoError(t, err)
	return token
}

func TestJwtAuthentication(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, auth.Username(c.Request().Context()))
	}, md.JwtAuthentication)

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		token := signToken(t, auth.Profile{Username: "gede", Role: auth.RoleMember, MemberID: 7}, time.Now().Add(time.Hour))

		r := httptest.NewRequest(http.MethodGet, "/whoami", http.NoBody)
		r.Header.Set(md.AuthorizationHeader, "Bearer "+token)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "gede", w.Body.String())
	})

	t.Run("err. no header", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/whoami", http.NoBody)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("err. not bearer", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/whoami", http.NoBody)
		r.Header.Set(md.AuthorizationHeader, "Basic abc")
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("err. expired", func(t *testing.T) {
		t.Parallel()
		token := signToken(t, auth.Profile{Username: "gede"}, time.Now().Add(-time.Hour))

		r := httptest.NewRequest(http.MethodGet, "/whoami", http.NoBody)
		r.Header.Set(md.AuthorizationHeader, "Bearer "+token)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireStaff(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.GET("/admin", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}, md.JwtAuthentication, md.RequireStaff)

	t.Run("staff passes", func(t *testing.T) {
		t.Parallel()
		token := signToken(t, auth.Profile{Username: "admin", Role: auth.RoleStaff}, time.Now().Add(time.Hour))

		r := httptest.NewRequest(http.MethodGet, "/admin", http.NoBody)
		r.Header.Set(md.AuthorizationHeader, "Bearer "+token)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("member is forbidden", func(t *testing.T) {
		t.Parallel()
		token := signToken(t, auth.Profile{Username: "gede", Role: auth.RoleMember, MemberID: 7}, time.Now().Add(time.Hour))

		r := httptest.NewRequest(http.MethodGet, "/admin", http.NoBody)
		r.Header.Set(md.AuthorizationHeader, "Bearer "+token)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusForbidden, w.Code)
	})
}
