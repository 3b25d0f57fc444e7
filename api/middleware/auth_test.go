package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/gamevault/gamevault-backend/pkg/auth"
	"github.com/gamevault/gamevault-backend/pkg/config"
	"github.com/gamevault/gamevault-backend/pkg/enums"
	pkgerrors "github.com/gamevault/gamevault-backend/pkg/errors"
	"github.com/gamevault/gamevault-backend/pkg/types"
)

var testJWT = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "gamevault",
	ExpirationMinutes: 30,
}

func TestAuthSeedsActorContext(t *testing.T) {
	userID := uuid.New()
	token, err := pkgauth.MintAccessToken(testJWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: userID,
		Role:   enums.UserRoleVendor,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	var gotID uuid.UUID
	var gotRole enums.UserRole
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotID != userID {
		t.Fatalf("expected user %s in context, got %s", userID, gotID)
	}
	if gotRole != enums.UserRoleVendor {
		t.Fatalf("expected vendor role, got %s", gotRole)
	}
}

func TestAuthRejectsMissingAndMalformedTokens(t *testing.T) {
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for name, header := range map[string]string{
		"missing": "",
		"empty":   "Bearer ",
		"garbled": "Bearer not-a-jwt",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, w.Code)
		}
		var envelope types.ErrorEnvelope
		if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
			t.Fatalf("%s: decode envelope: %v", name, err)
		}
		if envelope.Error.Code != string(pkgerrors.CodeUnauthorized) {
			t.Fatalf("%s: unexpected code %s", name, envelope.Error.Code)
		}
	}
}

func TestRequireRoleAllowsAdminEverywhere(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireRole(nil, enums.UserRoleVendor)(next)

	for _, tc := range []struct {
		role enums.UserRole
		want int
	}{
		{enums.UserRoleVendor, http.StatusOK},
		{enums.UserRoleAdmin, http.StatusOK},
		{enums.UserRoleCustomer, http.StatusForbidden},
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/invoices", nil)
		req = req.WithContext(WithActor(req.Context(), uuid.New(), tc.role))
		handler.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("role %s: expected %d, got %d", tc.role, tc.want, w.Code)
		}
	}
}
