package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testSessionCookie = "refresh_token"

func csrfRouter() *gin.Engine {
	r := gin.New()
	r.Use(CSRF(testSessionCookie))
	r.GET("/csrf", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.POST("/refresh", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func issueCSRF(t *testing.T, r *gin.Engine) (*http.Cookie, string) {
	t.Helper()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/csrf", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	resp := w.Result()
	defer resp.Body.Close()

	var csrfCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == CSRFCookieName {
			csrfCookie = c
		}
	}
	require.NotNil(t, csrfCookie)
	require.False(t, csrfCookie.HttpOnly)
	token := resp.Header.Get(CSRFHeaderName)
	require.Equal(t, csrfCookie.Value, token)
	return csrfCookie, token
}

func TestCSRFAcceptsValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := csrfRouter()
	csrfCookie, token := issueCSRF(t, r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	req.AddCookie(csrfCookie)
	req.AddCookie(&http.Cookie{Name: testSessionCookie, Value: "bearer"})
	req.Header.Set(CSRFHeaderName, token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestCSRFRejectsCookieRequestWithoutToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := csrfRouter()
	csrfCookie, _ := issueCSRF(t, r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	req.AddCookie(csrfCookie)
	req.AddCookie(&http.Cookie{Name: testSessionCookie, Value: "bearer"})
	req.Header.Set(CSRFHeaderName, "forged")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/refresh", nil)
	req.AddCookie(&http.Cookie{Name: testSessionCookie, Value: "bearer"})
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRFIgnoresRequestsWithoutSessionCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	csrfRouter().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
}
