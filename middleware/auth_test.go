package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kendall-kelly/delivery-admin-api/config"
	"github.com/kendall-kelly/delivery-admin-api/models"
	"github.com/kendall-kelly/delivery-admin-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	admin *models.Admin
	err   error
	calls []string
}

func (f *fakeResolver) Resolve(_ context.Context, subject, accessToken string) (*models.Admin, error) {
	f.calls = append(f.calls, subject+"|"+accessToken)
	return f.admin, f.err
}

func TestGetSubject(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		setupFunc func(*gin.Context)
		want      string
		wantErr   bool
	}{
		{
			name:      "successfully extracts subject",
			setupFunc: func(c *gin.Context) { SetIdentity(c, "auth0|123456", "token") },
			want:      "auth0|123456",
		},
		{
			name:      "subject not found in context",
			setupFunc: func(c *gin.Context) {},
			wantErr:   true,
		},
		{
			name:      "subject is not a string",
			setupFunc: func(c *gin.Context) { c.Set(subjectKey, 12345) },
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			tt.setupFunc(c)

			got, err := GetSubject(c)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, got)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, err := GetClaims(c)
	assert.Error(t, err)

	c.Set(claimsKey, "invalid")
	_, err = GetClaims(c)
	assert.Error(t, err)

	c.Set(claimsKey, &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: "auth0|123456"},
		CustomClaims:     &CustomClaims{Email: "boss@example.com"},
	})
	claims, err := GetClaims(c)
	require.NoError(t, err)
	assert.Equal(t, "auth0|123456", claims.RegisteredClaims.Subject)
}

func runChain(handlers ...gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/test", handlers...)
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	return w
}

func TestLoadAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	admin := &models.Admin{ID: uuid.New(), Email: "boss@example.com", Role: models.RoleSuperAdmin}
	identity := func(c *gin.Context) { SetIdentity(c, "auth0|1", "token-1") }

	t.Run("stores the resolved admin", func(t *testing.T) {
		resolver := &fakeResolver{admin: admin}
		var got *models.Admin
		w := runChain(identity, LoadAdmin(resolver), func(c *gin.Context) {
			got, _ = GetAdmin(c)
		})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, admin, got)
		assert.Equal(t, []string{"auth0|1|token-1"}, resolver.calls)
	})

	t.Run("unknown account is forbidden", func(t *testing.T) {
		resolver := &fakeResolver{err: &services.NotFoundError{Code: "ADMIN_NOT_FOUND", Message: "nope"}}
		w := runChain(identity, LoadAdmin(resolver))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "NOT_AN_ADMIN")
	})

	t.Run("backend failure", func(t *testing.T) {
		resolver := &fakeResolver{err: errors.New("db down")}
		w := runChain(identity, LoadAdmin(resolver))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("missing identity", func(t *testing.T) {
		resolver := &fakeResolver{admin: admin}
		w := runChain(LoadAdmin(resolver))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, resolver.calls)
	})
}

func TestRequireSuperAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	super := &models.Admin{ID: uuid.New(), Role: models.RoleSuperAdmin}
	sub := &models.Admin{ID: uuid.New(), Role: models.RoleSubAdmin}

	w := runChain(func(c *gin.Context) { SetAdmin(c, super) }, RequireSuperAdmin())
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = runChain(func(c *gin.Context) { SetAdmin(c, sub) }, RequireSuperAdmin())
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = runChain(RequireSuperAdmin())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEnsureValidTokenRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, err := EnsureValidToken(&config.Config{Auth0Domain: "example.auth0.com", Auth0Audience: "https://api.example.com"})
	require.NoError(t, err)

	reached := false
	w := runChain(handler, func(c *gin.Context) { reached = true })
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
	assert.False(t, reached)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc"))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken(""))
}

func TestAuthError(t *testing.T) {
	err := &AuthError{Code: "TEST_ERROR", Message: "This is a test error"}
	assert.Equal(t, "This is a test error", err.Error())
}
