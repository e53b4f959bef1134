package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SscSPs/recurring_ledger/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupSwaggerRoutes_ServesDocOutsideProduction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	setupSwaggerRoutes(r, &config.Config{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		BasePath string                    `json:"basePath"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "/api/v1", doc.BasePath)
	for path, method := range map[string]string{
		"/accounts":                   "post",
		"/accounts/{accountID}":       "delete",
		"/rules":                      "get",
		"/rules/{ruleID}":             "patch",
		"/rules/{ruleID}/pause":       "post",
		"/rules/{ruleID}/resume":      "post",
		"/rules/{ruleID}/cancel":      "post",
		"/rules/{ruleID}/occurrences": "get",
		"/rules/{ruleID}/upcoming":    "get",
		"/scheduler/run":              "post",
	} {
		assert.Contains(t, doc.Paths[path], method, path)
	}
}

func TestSetupSwaggerRoutes_HiddenInProduction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	setupSwaggerRoutes(r, &config.Config{IsProduction: true})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
