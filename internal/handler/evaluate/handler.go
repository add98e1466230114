package evaluate

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/credpolicy/internal/config"
	"github.com/jwalitptl/credpolicy/internal/dictionary"
	"github.com/jwalitptl/credpolicy/internal/handler"
	"github.com/jwalitptl/credpolicy/internal/model"
	"github.com/jwalitptl/credpolicy/internal/policy"
	apperrors "github.com/jwalitptl/credpolicy/pkg/errors"
	"github.com/jwalitptl/credpolicy/pkg/logger"
	"github.com/jwalitptl/credpolicy/pkg/metrics"
)

// ReloadFunc re-reads and re-activates the runtime configuration. It
// must leave the active configuration in force when it returns an error.
type ReloadFunc func() error

type Handler struct {
	engine   *policy.Engine
	metrics  *metrics.Metrics
	failMode string
	reload   ReloadFunc
	log      *logger.Logger
}

func NewHandler(engine *policy.Engine, m *metrics.Metrics, failMode string, reload ReloadFunc, log *logger.Logger) *Handler {
	return &Handler{
		engine:   engine,
		metrics:  m,
		failMode: failMode,
		reload:   reload,
		log:      log,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/evaluate", h.Evaluate)
	r.GET("/policy", h.GetPolicy)
	r.POST("/policy/reload", h.ReloadPolicy)
}

type secretRequest struct {
	Kind   string `json:"kind" binding:"required,oneof=plaintext prehashed"`
	Value  string `json:"value"`
	Scheme string `json:"scheme"`
	Digest string `json:"digest"`
}

type evaluateRequest struct {
	AccountName string        `json:"account_name" binding:"required"`
	Secret      secretRequest `json:"secret" binding:"required"`
	ExpiresAt   *time.Time    `json:"expires_at"`
}

type verdictResponse struct {
	Accepted bool            `json:"accepted"`
	Reason   *reasonResponse `json:"reason,omitempty"`
}

type reasonResponse struct {
	Code     model.ReasonCode `json:"code"`
	Required int              `json:"required,omitempty"`
	Actual   int              `json:"actual,omitempty"`
	Message  string           `json:"message"`
}

func (h *Handler) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if req.Secret.Kind == model.SecretKindPreHashed && (req.Secret.Scheme == "" || req.Secret.Digest == "") {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("prehashed secret requires scheme and digest"))
		return
	}

	change := &model.CredentialChangeRequest{
		AccountName: req.AccountName,
		Secret: model.Secret{
			Kind:   req.Secret.Kind,
			Value:  req.Secret.Value,
			Scheme: req.Secret.Scheme,
			Digest: req.Secret.Digest,
		},
		ExpiresAt: req.ExpiresAt,
	}

	start := time.Now()
	verdict, err := h.engine.Evaluate(c.Request.Context(), change)
	h.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, dictionary.ErrUnavailable) {
			h.metrics.DictionaryLookupFailures.Inc()
			if h.failMode == config.FailModeClosed {
				appErr := apperrors.Unavailable("weak-secret dictionary unavailable", err)
				h.log.Error(appErr, "rejecting evaluation, dictionary fail mode is closed")
				c.JSON(http.StatusServiceUnavailable, handler.NewErrorResponse(appErr.Message))
				return
			}
			// Fail-open: the dictionary is the last stage, so every
			// other rule already passed.
			h.log.Warn("weak-secret dictionary unavailable, skipping check")
			verdict = model.Accept()
		} else {
			appErr := apperrors.Internal(err)
			h.log.Error(appErr, "evaluation failed")
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(appErr.Message))
			return
		}
	}

	h.metrics.RecordVerdict(verdict.Accepted, reasonLabel(verdict))
	c.JSON(http.StatusOK, handler.NewSuccessResponse(toVerdictResponse(verdict)))
}

func (h *Handler) GetPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.engine.Config()))
}

func (h *Handler) ReloadPolicy(c *gin.Context) {
	if err := h.reload(); err != nil {
		var cfgErr *policy.ConfigError
		if errors.As(err, &cfgErr) {
			appErr := apperrors.BadRequest("invalid policy configuration", err)
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse(appErr.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.engine.Config()))
}

func toVerdictResponse(v model.Verdict) verdictResponse {
	resp := verdictResponse{Accepted: v.Accepted}
	if v.Reason != nil {
		resp.Reason = &reasonResponse{
			Code:     v.Reason.Code,
			Required: v.Reason.Required,
			Actual:   v.Reason.Actual,
			Message:  v.Reason.Message(),
		}
	}
	return resp
}

func reasonLabel(v model.Verdict) string {
	if v.Reason == nil {
		return "none"
	}
	return string(v.Reason.Code)
}
