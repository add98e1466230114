package evaluate_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/credpolicy/internal/config"
	"github.com/jwalitptl/credpolicy/internal/dictionary"
	"github.com/jwalitptl/credpolicy/internal/handler/evaluate"
	"github.com/jwalitptl/credpolicy/internal/policy"
	"github.com/jwalitptl/credpolicy/pkg/logger"
	"github.com/jwalitptl/credpolicy/pkg/metrics"
	"github.com/jwalitptl/credpolicy/pkg/security"
)

// One registry-backed instance for the whole test binary; promauto
// panics on duplicate registration.
var testMetrics = metrics.NewMetrics("credpolicy_test", "handler")

var testLogger = logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

type stubDict struct {
	weak bool
	err  error
}

func (s stubDict) IsWeak(context.Context, string) (bool, error) {
	return s.weak, s.err
}

func newEngine(t *testing.T, dict policy.DictionaryGuard) *policy.Engine {
	t.Helper()
	cfg, err := policy.NewConfig(8, 2, 2, 2, 2)
	require.NoError(t, err)
	return policy.NewEngine(policy.NewStore(cfg), security.NewVerifier(), dict, nil)
}

func newRouter(h *evaluate.Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func post(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func evaluateBody(account, secret string) map[string]interface{} {
	return map[string]interface{}{
		"account_name": account,
		"secret": map[string]interface{}{
			"kind":  "plaintext",
			"value": secret,
		},
	}
}

func decodeVerdict(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp struct {
		Status string                 `json:"status"`
		Data   map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "success", resp.Status)
	return resp.Data
}

func TestEvaluateEndpointAccepts(t *testing.T) {
	h := evaluate.NewHandler(newEngine(t, nil), testMetrics, config.FailModeOpen, nil, testLogger)
	r := newRouter(h)

	w := post(r, "/api/v1/evaluate", evaluateBody("alice", "Ab1!Ab1!"))
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeVerdict(t, w)
	assert.Equal(t, true, data["accepted"])
	assert.Nil(t, data["reason"])
}

func TestEvaluateEndpointRejectsWithReason(t *testing.T) {
	h := evaluate.NewHandler(newEngine(t, nil), testMetrics, config.FailModeOpen, nil, testLogger)
	r := newRouter(h)

	w := post(r, "/api/v1/evaluate", evaluateBody("alice", "AAAAaaaa"))
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeVerdict(t, w)
	assert.Equal(t, false, data["accepted"])

	reason, ok := data["reason"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "insufficient_digits", reason["code"])
	assert.Equal(t, float64(2), reason["required"])
	assert.Equal(t, "password must contain at least 2 numeric characters", reason["message"])
}

func TestEvaluateEndpointRejectsMalformedBody(t *testing.T) {
	h := evaluate.NewHandler(newEngine(t, nil), testMetrics, config.FailModeOpen, nil, testLogger)
	r := newRouter(h)

	w := post(r, "/api/v1/evaluate", map[string]interface{}{
		"secret": map[string]interface{}{"kind": "plaintext", "value": "Ab1!Ab1!"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/api/v1/evaluate", map[string]interface{}{
		"account_name": "alice",
		"secret":       map[string]interface{}{"kind": "carrier-pigeon"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluateEndpointPreHashedNeedsSchemeAndDigest(t *testing.T) {
	h := evaluate.NewHandler(newEngine(t, nil), testMetrics, config.FailModeOpen, nil, testLogger)
	r := newRouter(h)

	w := post(r, "/api/v1/evaluate", map[string]interface{}{
		"account_name": "alice",
		"secret":       map[string]interface{}{"kind": "prehashed", "scheme": "md5"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluateEndpointPreHashed(t *testing.T) {
	h := evaluate.NewHandler(newEngine(t, nil), testMetrics, config.FailModeOpen, nil, testLogger)
	r := newRouter(h)

	w := post(r, "/api/v1/evaluate", map[string]interface{}{
		"account_name": "alice",
		"secret": map[string]interface{}{
			"kind":   "prehashed",
			"scheme": "md5",
			"digest": security.EncodeMD5("alice", "alice"),
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeVerdict(t, w)
	assert.Equal(t, false, data["accepted"])
	reason := data["reason"].(map[string]interface{})
	assert.Equal(t, "contains_username", reason["code"])
}

func TestEvaluateEndpointDictionaryUnavailableFailOpen(t *testing.T) {
	dict := stubDict{err: fmt.Errorf("open corpus: %w", dictionary.ErrUnavailable)}
	h := evaluate.NewHandler(newEngine(t, dict), testMetrics, config.FailModeOpen, nil, testLogger)
	r := newRouter(h)

	w := post(r, "/api/v1/evaluate", evaluateBody("alice", "Ab1!Ab1!"))
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeVerdict(t, w)
	assert.Equal(t, true, data["accepted"])
}

func TestEvaluateEndpointDictionaryUnavailableFailClosed(t *testing.T) {
	dict := stubDict{err: fmt.Errorf("open corpus: %w", dictionary.ErrUnavailable)}
	h := evaluate.NewHandler(newEngine(t, dict), testMetrics, config.FailModeClosed, nil, testLogger)
	r := newRouter(h)

	w := post(r, "/api/v1/evaluate", evaluateBody("alice", "Ab1!Ab1!"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetPolicyEndpoint(t *testing.T) {
	h := evaluate.NewHandler(newEngine(t, nil), testMetrics, config.FailModeOpen, nil, testLogger)
	r := newRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/policy", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeVerdict(t, w)
	assert.Equal(t, float64(8), data["min_length"])
	assert.Equal(t, float64(2), data["min_digits"])
}

func TestReloadPolicyEndpoint(t *testing.T) {
	reloaded := false
	h := evaluate.NewHandler(newEngine(t, nil), testMetrics, config.FailModeOpen, func() error {
		reloaded = true
		return nil
	}, testLogger)
	r := newRouter(h)

	w := post(r, "/api/v1/policy/reload", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reloaded)
}

func TestReloadPolicyEndpointConfigError(t *testing.T) {
	h := evaluate.NewHandler(newEngine(t, nil), testMetrics, config.FailModeOpen, func() error {
		return &policy.ConfigError{Code: policy.ConfigInconsistentThresholds, Sum: 9, MinLength: 8}
	}, testLogger)
	r := newRouter(h)

	w := post(r, "/api/v1/policy/reload", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
