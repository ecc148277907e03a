package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return &Service{Secret: []byte("test-secret"), Expiry: time.Hour}
}

func TestTokenRoundTrip(t *testing.T) {
	s := newTestService()
	u := User{ID: 42, Username: "chai", Role: "Admin"}

	signed, err := s.IssueToken(u)
	require.NoError(t, err)

	got, err := s.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	s := newTestService()
	signed, err := s.IssueToken(User{ID: 1, Username: "chai", Role: "user"})
	require.NoError(t, err)

	other := &Service{Secret: []byte("another-secret"), Expiry: time.Hour}
	_, err = other.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	s := &Service{Secret: []byte("test-secret"), Expiry: -time.Minute}
	signed, err := s.IssueToken(User{ID: 1, Username: "chai", Role: "user"})
	require.NoError(t, err)

	_, err = s.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsUnsignedAlg(t *testing.T) {
	s := newTestService()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "1"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = s.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := newTestService().Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := UserFromContext(r.Context())
		w.Header().Set("X-User", u.Username)
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	s := newTestService()
	signed, err := s.IssueToken(User{ID: 7, Username: "chai", Role: "user"})
	require.NoError(t, err)

	h := s.RequireAuth(okHandler())

	cases := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + signed, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

func TestRequireAuthPutsUserInContext(t *testing.T) {
	s := newTestService()
	signed, err := s.IssueToken(User{ID: 7, Username: "chai", Role: "user"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	s.RequireAuth(okHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "chai", rec.Header().Get("X-User"))
}

func TestRequireRole(t *testing.T) {
	s := newTestService()
	adminToken, err := s.IssueToken(User{ID: 1, Username: "root", Role: "Admin"})
	require.NoError(t, err)
	userToken, err := s.IssueToken(User{ID: 2, Username: "chai", Role: "user"})
	require.NoError(t, err)

	h := s.RequireAuth(RequireRole(RoleAdmin)(okHandler()))

	cases := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"admin passes", adminToken, http.StatusOK},
		{"user forbidden", userToken, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tc.token)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

func TestRequireRoleIsCaseInsensitive(t *testing.T) {
	s := newTestService()
	signed, err := s.IssueToken(User{ID: 1, Username: "root", Role: "admin"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	s.RequireAuth(RequireRole(RoleAdmin)(okHandler())).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleWithoutAuthIsUnauthorized(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	RequireRole(RoleAdmin)(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
