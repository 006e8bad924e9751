package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/store/memory"
)

func TestBearerToken(t *testing.T) {
	t.Run("authorization header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/v1/dismissals/active", nil)
		r.Header.Set("Authorization", "Bearer abc123")

		token, ok := BearerToken(r)
		require.True(t, ok)
		require.Equal(t, "abc123", token)
	})

	t.Run("malformed header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Basic abc123")

		_, ok := BearerToken(r)
		require.False(t, ok)
	})

	t.Run("access_token query fallback for websockets", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/v1/events?access_token=abc123", nil)

		token, ok := BearerToken(r)
		require.True(t, ok)
		require.Equal(t, "abc123", token)
	})

	t.Run("query token is ignored off the subscribe endpoint", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/v1/dismissals/active?access_token=abc123", nil)

		_, ok := BearerToken(r)
		require.False(t, ok)
	})

	t.Run("no token", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		_, ok := BearerToken(r)
		require.False(t, ok)
	})
}

func TestMiddleware(t *testing.T) {
	ctx := context.Background()

	privatePEM, publicPEM := generateKeyPair(t)
	verifier, err := NewVerifierFromPEM(publicPEM)
	require.NoError(t, err)

	orgs := memory.NewOrganizationStore()
	principals := memory.NewPrincipalStore()

	trialEnd := time.Now().Add(24 * time.Hour)
	orgID := uuid.Must(uuid.NewV7())
	require.NoError(t, orgs.Create(ctx, &models.Organization{
		OrgID:              orgID,
		Name:               "School",
		Active:             true,
		SubscriptionStatus: models.SubscriptionTrial,
		TrialEndsAt:        &trialEnd,
	}))

	teacher := &models.Principal{
		PrincipalID: uuid.Must(uuid.NewV7()),
		OrgID:       &orgID,
		Role:        models.RoleTeacher,
		Name:        "Teacher",
	}
	require.NoError(t, principals.Create(ctx, teacher))

	suspendedAt := time.Now()
	suspended := &models.Principal{
		PrincipalID: uuid.Must(uuid.NewV7()),
		OrgID:       &orgID,
		Role:        models.RoleTeacher,
		Name:        "Suspended",
		SuspendedAt: &suspendedAt,
	}
	require.NoError(t, principals.Create(ctx, suspended))

	handler := Middleware(verifier, principals, orgs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, ok := TenantFromContext(r.Context())
		require.True(t, ok)
		require.NotNil(t, tc.OrgID)
		require.NotNil(t, PrincipalFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	request := func(token string) *httptest.ResponseRecorder {
		r := httptest.NewRequest("GET", "/v1/dismissals/active", nil)
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	t.Run("valid token passes", func(t *testing.T) {
		token, err := SignToken(privatePEM, teacher.PrincipalID, time.Hour)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, request(token).Code)
	})

	t.Run("missing token denied", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, request("").Code)
	})

	t.Run("unknown principal denied", func(t *testing.T) {
		token, err := SignToken(privatePEM, uuid.Must(uuid.NewV7()), time.Hour)
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, request(token).Code)
	})

	t.Run("suspended principal denied", func(t *testing.T) {
		token, err := SignToken(privatePEM, suspended.PrincipalID, time.Hour)
		require.NoError(t, err)
		require.Equal(t, http.StatusForbidden, request(token).Code)
	})

	t.Run("health endpoint is public", func(t *testing.T) {
		ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
		h := Middleware(verifier, principals, orgs)(ok)

		r := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("inactive subscription denied at the boundary", func(t *testing.T) {
		expiredOrgID := uuid.Must(uuid.NewV7())
		require.NoError(t, orgs.Create(ctx, &models.Organization{
			OrgID:              expiredOrgID,
			Name:               "Expired School",
			Active:             true,
			SubscriptionStatus: models.SubscriptionExpired,
		}))
		p := &models.Principal{
			PrincipalID: uuid.Must(uuid.NewV7()),
			OrgID:       &expiredOrgID,
			Role:        models.RoleTeacher,
			Name:        "Expired Org Teacher",
		}
		require.NoError(t, principals.Create(ctx, p))

		token, err := SignToken(privatePEM, p.PrincipalID, time.Hour)
		require.NoError(t, err)
		require.Equal(t, http.StatusForbidden, request(token).Code)
	})
}
