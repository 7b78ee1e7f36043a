package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/seoulmarket/marketplace-backend/pkg/auth"
	"github.com/seoulmarket/marketplace-backend/pkg/config"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRejectsNonBearerScheme(t *testing.T) {
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	require.NoError(t, err)

	for _, header := range []string{token, "Basic " + token, "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		resp := httptest.NewRecorder()
		Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code, header)
		require.Contains(t, resp.Header().Get("WWW-Authenticate"), "Bearer")
	}
}

func TestAuthReportsExpiredToken(t *testing.T) {
	token, err := auth.MintAccessToken(testJWT, time.Now().Add(-2*time.Hour), auth.AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, req)

	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Contains(t, resp.Body.String(), "token expired")
}

func TestAuthSeedsPrincipal(t *testing.T) {
	userID := uuid.New()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{UserID: userID, Role: enums.UserRoleSellerActive})
	require.NoError(t, err)

	var gotID uuid.UUID
	var gotRole enums.UserRole
	var gotOK bool
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotRole, gotOK = PrincipalFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, gotOK)
	require.Equal(t, userID, gotID)
	require.Equal(t, enums.UserRoleSellerActive, gotRole)
}

func TestPrincipalFromContextRequiresBoth(t *testing.T) {
	ctx := WithUserID(t.Context(), uuid.NewString())
	_, _, ok := PrincipalFromContext(ctx)
	require.False(t, ok)

	ctx = WithRole(ctx, "BOGUS")
	_, _, ok = PrincipalFromContext(ctx)
	require.False(t, ok)
}

func TestRequireRoles(t *testing.T) {
	tests := []struct {
		name string
		mw   func(http.Handler) http.Handler
		role enums.UserRole
		want int
	}{
		{"admin ok", RequireAdmin(nil), enums.UserRoleAdmin, http.StatusOK},
		{"seller denied admin", RequireAdmin(nil), enums.UserRoleSellerActive, http.StatusForbidden},
		{"pending seller", RequireSeller(nil), enums.UserRoleSellerPending, http.StatusOK},
		{"customer not seller", RequireSeller(nil), enums.UserRoleCustomer, http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithRole(req.Context(), string(tt.role)))
		resp := httptest.NewRecorder()
		tt.mw(okHandler()).ServeHTTP(resp, req)
		require.Equal(t, tt.want, resp.Code, tt.name)
	}
}
