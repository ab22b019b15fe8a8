package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/formdesk/backend/internal/config"
	"github.com/formdesk/backend/internal/model"
	"github.com/formdesk/backend/internal/service"
	"github.com/formdesk/backend/internal/token"
)

func newTestRouter(t *testing.T) (*gin.Engine, *token.Authority) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authority, err := token.NewAuthority([]byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("NewAuthority error: %v", err)
	}

	// the verification gate never touches the record store
	svc, err := service.NewAuthService(nil, authority, config.AuthConfig{
		JWTAccessTTL:  "1h",
		JWTRefreshTTL: "720h",
	})
	if err != nil {
		t.Fatalf("NewAuthService error: %v", err)
	}

	router := gin.New()
	protected := router.Group("/protected", AuthMiddleware(svc))
	protected.GET("", func(c *gin.Context) {
		user := GetAuthUser(c)
		c.JSON(http.StatusOK, gin.H{"subject": user.LoginID, "role": user.Role})
	})
	protected.GET("/admin", RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router, authority
}

func doRequest(router *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router, _ := newTestRouter(t)

	if w := doRequest(router, "/protected", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %d", w.Code)
	}
	if w := doRequest(router, "/protected", "Bearer "); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for blank bearer, got %d", w.Code)
	}
	if w := doRequest(router, "/protected", "Basic abc"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-bearer scheme, got %d", w.Code)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	router, _ := newTestRouter(t)

	if w := doRequest(router, "/protected", "Bearer not.a.jwt"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for malformed token, got %d", w.Code)
	}

	foreign, err := token.NewAuthority([]byte("other-secret"), time.Hour)
	if err != nil {
		t.Fatalf("NewAuthority error: %v", err)
	}
	tok, _, err := foreign.Issue("mallory", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if w := doRequest(router, "/protected", "Bearer "+tok); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for foreign-secret token, got %d", w.Code)
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	router, _ := newTestRouter(t)

	expired, err := token.NewAuthority([]byte("test-secret"), -time.Minute)
	if err != nil {
		t.Fatalf("NewAuthority error: %v", err)
	}
	tok, _, err := expired.Issue("alice", model.RoleUser)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if w := doRequest(router, "/protected", "Bearer "+tok); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router, authority := newTestRouter(t)

	tok, _, err := authority.Issue("alice", model.RoleUser)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	w := doRequest(router, "/protected", "Bearer "+tok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	router, authority := newTestRouter(t)

	userTok, _, err := authority.Issue("alice", model.RoleUser)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	adminTok, _, err := authority.Issue("root", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if w := doRequest(router, "/protected/admin", "Bearer "+userTok); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user role, got %d", w.Code)
	}
	if w := doRequest(router, "/protected/admin", "Bearer "+adminTok); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin role, got %d", w.Code)
	}
}
