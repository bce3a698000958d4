package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func runBearer(t *testing.T, tm *TokenManager, path, header string) (*Identity, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got *Identity
	handler := BearerMiddleware(tm, PublicPaths("/health", "/api/v1/auth/login"))(func(c echo.Context) error {
		got = IdentityFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	})
	return got, handler(c)
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	if he.Code != code {
		t.Errorf("expected %d, got %d", code, he.Code)
	}
}

func TestBearerMiddleware_ValidToken(t *testing.T) {
	tm := NewTokenManager(testSecret, "hms-test", time.Hour)
	token, _, _ := tm.Issue(Identity{AccountID: "USR-7", Email: "r@h.local", Role: RoleReceptionist})

	id, err := runBearer(t, tm, "/api/v1/bills", "Bearer "+token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == nil || id.AccountID != "USR-7" || id.Role != RoleReceptionist {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestBearerMiddleware_MissingHeader(t *testing.T) {
	tm := NewTokenManager(testSecret, "hms-test", time.Hour)
	_, err := runBearer(t, tm, "/api/v1/bills", "")
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestBearerMiddleware_WrongScheme(t *testing.T) {
	tm := NewTokenManager(testSecret, "hms-test", time.Hour)
	token, _, _ := tm.Issue(Identity{AccountID: "USR-7", Role: RoleAdmin})
	_, err := runBearer(t, tm, "/api/v1/bills", "Basic "+token)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestBearerMiddleware_InvalidToken(t *testing.T) {
	tm := NewTokenManager(testSecret, "hms-test", time.Hour)
	_, err := runBearer(t, tm, "/api/v1/bills", "Bearer not.a.jwt")
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestBearerMiddleware_PublicPathSkipped(t *testing.T) {
	tm := NewTokenManager(testSecret, "hms-test", time.Hour)
	for _, p := range []string{"/health", "/api/v1/auth/login"} {
		id, err := runBearer(t, tm, p, "")
		if err != nil {
			t.Errorf("%s: unexpected error: %v", p, err)
		}
		if id != nil {
			t.Errorf("%s: expected no identity on public path", p)
		}
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name string
		role Role
		want int
	}{
		{"allowed", RoleReceptionist, http.StatusOK},
		{"admin passes", RoleAdmin, http.StatusOK},
		{"forbidden", RolePatient, http.StatusForbidden},
		{"anonymous", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.role != "" {
				req = req.WithContext(WithIdentity(req.Context(), &Identity{AccountID: "USR-1", Role: tt.role}))
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := RequireRole(RoleReceptionist, RoleDoctor)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})(c)
			if tt.want == http.StatusOK {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			expectStatus(t, err, tt.want)
		})
	}
}
