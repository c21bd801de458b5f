package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiwangfds/snapshare/config"
)

// newPublicRouter 仅装配公开路由所需的最小依赖
func newPublicRouter(t *testing.T) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Display: config.DisplayConfig{Timezone: "Asia/Shanghai"},
		File: config.FileConfig{
			MaxFileSize:       10 << 20,
			AllowedExtensions: []string{".html", ".md"},
		},
	}
	return New(Deps{Cfg: cfg})
}

func TestPublicConfigEndpoint(t *testing.T) {
	r := newPublicRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/config", nil)
	r.GetEngine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Code int `json:"code"`
		Data struct {
			Timezone          string   `json:"timezone"`
			MaxFileSize       int64    `json:"max_file_size"`
			AllowedExtensions []string `json:"allowed_extensions"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Code)
	assert.Equal(t, "Asia/Shanghai", body.Data.Timezone)
	assert.EqualValues(t, 10<<20, body.Data.MaxFileSize)
	assert.Equal(t, []string{".html", ".md"}, body.Data.AllowedExtensions)
}

func TestHealthEndpoint(t *testing.T) {
	r := newPublicRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.GetEngine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
