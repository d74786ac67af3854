package routes

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ecowell/eco-engine-go/internal/application/container"
	"github.com/ecowell/eco-engine-go/pkg/config"
	"github.com/gin-gonic/gin"
)

func TestHealthReachableOnBothPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config.DBPath = filepath.Join(t.TempDir(), "routes-test.db")
	config.LogDirectory = t.TempDir()

	c, err := container.NewContainer()
	if err != nil {
		t.Fatalf("failed to build container: %v", err)
	}
	defer c.Close()

	engine := SetupRoutes(c)

	// The health check lives under the API prefix; the bare path stays as an
	// alias for infrastructure probes.
	for _, path := range []string{"/api/v1/health", "/health"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		engine.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s = %d, want %d", path, w.Code, http.StatusOK)
		}
	}
}
