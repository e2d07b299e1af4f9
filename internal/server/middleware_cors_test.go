package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/config"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blogOrigin = "https://derecksnotes.com"

// newBlogApp serves the API to the blog frontend origin only.
func newBlogApp(t *testing.T) *fiber.App {
	t.Helper()
	srv, err := NewServerWithDeps(&config.Config{
		JWTSecret:      "test_secret_key_at_least_32_chars_long",
		Env:            "test",
		MaxThreadDepth: 5,
		AllowedOrigins: blogOrigin,
	}, testutil.NewDB(t), nil)
	require.NoError(t, err)
	return srv.App()
}

func fromOrigin(t *testing.T, app *fiber.App, method, path, origin string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Origin", origin)
	if method == http.MethodOptions {
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)
		req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestCORS_ThreadReadsFromBlogOrigin(t *testing.T) {
	app := newBlogApp(t)

	resp := fromOrigin(t, app, http.MethodGet, "/api/comments?post=/blog/x", blogOrigin)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, blogOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	resp = fromOrigin(t, app, http.MethodGet, "/api/comments?post=/blog/x", "https://comment-scraper.example")
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORS_ThrottledThreadPollingKeepsHeaders(t *testing.T) {
	app := newBlogApp(t)

	// A reader polling a thread spends the per-IP budget.
	for i := 0; i < 100; i++ {
		resp := fromOrigin(t, app, http.MethodGet, "/api/comments?post=/blog/x", blogOrigin)
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d", i)
	}

	resp := fromOrigin(t, app, http.MethodGet, "/api/comments?post=/blog/x", blogOrigin)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, blogOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	body := decode[models.ErrorResponse](t, resp)
	assert.Contains(t, body.Error, "Too many requests")

	// The reaction preflight is never counted, so the browser still learns it may retry.
	preflight := fromOrigin(t, app, http.MethodOptions, "/api/comments/1/reaction", blogOrigin)
	assert.Equal(t, http.StatusNoContent, preflight.StatusCode)
	assert.Equal(t, blogOrigin, preflight.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, preflight.Header.Get("Access-Control-Allow-Methods"), http.MethodPut)
	assert.Contains(t, preflight.Header.Get("Access-Control-Allow-Headers"), "Authorization")
}
