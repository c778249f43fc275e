package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingChecker struct{}

func (failingChecker) Valid(ctx context.Context, token string) (bool, error) {
	return false, errors.New("redis down")
}

func newGatedRouter(checker TokenChecker) *gin.Engine {
	r := gin.New()
	r.GET("/admin", SessionAuth(checker), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestSessionAuth(t *testing.T) {
	checker := NewStaticTokenChecker([]string{"good-token", "other-token"})

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{
			name:       "valid token",
			authHeader: "Bearer good-token",
			wantStatus: http.StatusOK,
		},
		{
			name:       "second configured token",
			authHeader: "Bearer other-token",
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong token",
			authHeader: "Bearer bad-token",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing header",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "non-bearer scheme",
			authHeader: "Basic Z29vZC10b2tlbg==",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "bearer with empty token",
			authHeader: "Bearer ",
			wantStatus: http.StatusUnauthorized,
		},
	}

	router := newGatedRouter(checker)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestSessionAuthCheckerFailure(t *testing.T) {
	router := newGatedRouter(failingChecker{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer any")

	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d (checker failure is not an auth verdict)", w.Code, http.StatusServiceUnavailable)
	}
}

func TestStaticTokenCheckerEmptyListRejectsAll(t *testing.T) {
	checker := NewStaticTokenChecker(nil)

	ok, err := checker.Valid(context.Background(), "anything")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("empty token list accepted a token")
	}

	checker = NewStaticTokenChecker([]string{""})
	ok, _ = checker.Valid(context.Background(), "")
	if ok {
		t.Error("empty configured token matched an empty presented token")
	}
}
