package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/delivery-admin-api/config"
	"github.com/kendall-kelly/delivery-admin-api/models"
	"github.com/kendall-kelly/delivery-admin-api/services"
)

const (
	subjectKey     = "auth0_subject"
	accessTokenKey = "access_token"
	claimsKey      = "validated_claims"
	adminKey       = "admin"
)

// CustomClaims contains custom data we want from the token.
type CustomClaims struct {
	Scope string `json:"scope"`
	Email string `json:"email"`
}

// Validate satisfies validator.CustomClaims; no extra checks are needed.
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// EnsureValidToken validates the Auth0 access token on every request and
// stores the subject, raw token and claims in the gin context.
func EnsureValidToken(cfg *config.Config) (gin.HandlerFunc, error) {
	issuerURL, err := url.Parse("https://" + cfg.Auth0Domain + "/")
	if err != nil {
		return nil, fmt.Errorf("parse issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Auth0Audience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("set up jwt validator: %w", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Warn("rejected access token", slog.String("path", r.URL.Path), slog.Any("error", err))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"Failed to validate JWT."}}`)); writeErr != nil {
			slog.Error("failed to write error response", slog.Any("error", writeErr))
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			passed = true
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			SetIdentity(c, token.RegisteredClaims.Subject, bearerToken(r.Header.Get("Authorization")))
			c.Set(claimsKey, token)
			c.Request = r

			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		// the error handler already wrote the 401
		if !passed {
			c.Abort()
		}
	}, nil
}

// SetIdentity stores an authenticated subject the way EnsureValidToken does.
// Tests and alternative authenticators use it.
func SetIdentity(c *gin.Context, subject, accessToken string) {
	c.Set(subjectKey, subject)
	c.Set(accessTokenKey, accessToken)
}

// GetSubject extracts the Auth0 subject from the gin context
func GetSubject(c *gin.Context) (string, error) {
	subject, exists := c.Get(subjectKey)
	if !exists {
		return "", &AuthError{Code: "MISSING_SUBJECT", Message: "Subject not found in context"}
	}

	s, ok := subject.(string)
	if !ok || s == "" {
		return "", &AuthError{Code: "INVALID_SUBJECT", Message: "Subject is not a string"}
	}

	return s, nil
}

// GetClaims extracts the validated JWT claims from the gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(claimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// AdminResolver maps an authenticated subject to an admin row
type AdminResolver interface {
	Resolve(ctx context.Context, subject, accessToken string) (*models.Admin, error)
}

// LoadAdmin resolves the caller to an admin and rejects anyone who is not one.
func LoadAdmin(resolver AdminResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, err := GetSubject(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
			return
		}
		token := c.GetString(accessTokenKey)

		admin, err := resolver.Resolve(c.Request.Context(), subject, token)
		if err != nil {
			var nf *services.NotFoundError
			if errors.As(err, &nf) {
				abortWithError(c, http.StatusForbidden, "NOT_AN_ADMIN", "This account is not registered as an admin")
				return
			}
			slog.Error("failed to resolve admin", slog.String("subject", subject), slog.Any("error", err))
			abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load admin profile")
			return
		}

		c.Set(adminKey, admin)
		c.Next()
	}
}

// GetAdmin returns the admin resolved by LoadAdmin
func GetAdmin(c *gin.Context) (*models.Admin, error) {
	value, exists := c.Get(adminKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_ADMIN", Message: "Admin not found in context"}
	}
	admin, ok := value.(*models.Admin)
	if !ok || admin == nil {
		return nil, &AuthError{Code: "INVALID_ADMIN", Message: "Admin is not in the expected format"}
	}
	return admin, nil
}

// SetAdmin stores admin in the context as LoadAdmin does
func SetAdmin(c *gin.Context, admin *models.Admin) {
	c.Set(adminKey, admin)
}

// RequireSuperAdmin only lets super admins through
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, err := GetAdmin(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Admin profile not loaded")
			return
		}
		if !admin.IsSuperAdmin() {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Only super admins can perform this action")
			return
		}
		c.Next()
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// bearerToken returns the token from an Authorization header, or "".
func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
