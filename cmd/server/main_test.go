package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarotlab/tarot-reader/internal/cache"
	"github.com/tarotlab/tarot-reader/internal/config"
)

type failingPingCache struct {
	cache.Noop
}

func (failingPingCache) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestHealthHandler_OK(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)

	healthHandler(cache.Noop{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Status   string            `json:"status"`
			Services map[string]string `json:"services"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Data.Status)
	assert.Equal(t, "ok", body.Data.Services["cache"])
}

func TestHealthHandler_Degraded(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)

	healthHandler(failingPingCache{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "DEGRADED", body.Error.Code)
	assert.Equal(t, "degraded", body.Error.Details["cache"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestNewLogger_Formats(t *testing.T) {
	assert.NotNil(t, newLogger(config.LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, newLogger(config.LogConfig{Level: "info", Format: "json"}))
}
