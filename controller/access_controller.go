// api/controller/access_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	pdp_errors "github.com/dev-mohitbeniwal/consentgate/api/errors"
	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
	"github.com/dev-mohitbeniwal/consentgate/api/service"
	"github.com/dev-mohitbeniwal/consentgate/api/util"
)

type AccessController struct {
	accessService service.IAccessService
}

type BatchRequest struct {
	Requests []pdp_model.AccessRequest `json:"requests"`
}

type BatchResponse struct {
	Decisions []*pdp_model.AccessDecision `json:"decisions"`
}

func NewAccessController(accessService service.IAccessService) *AccessController {
	return &AccessController{
		accessService: accessService,
	}
}

// RegisterRoutes registers the decision endpoints used by enforcement points
func (ac *AccessController) RegisterRoutes(r *gin.RouterGroup) {
	access := r.Group("/access")
	{
		access.POST("/evaluate", ac.Evaluate)
		access.POST("/evaluate/batch", ac.EvaluateBatch)
	}
}

// RegisterAdminRoutes registers the cache maintenance endpoints
func (ac *AccessController) RegisterAdminRoutes(r *gin.RouterGroup) {
	cache := r.Group("/access/cache")
	{
		cache.DELETE("", ac.ClearCache)
		cache.GET("/stats", ac.CacheStats)
	}
}

// Evaluate endpoint. Every well-formed body yields a decision, including
// fail-closed ones, so the response is always 200 past JSON binding.
func (ac *AccessController) Evaluate(c *gin.Context) {
	var req pdp_model.AccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid access request", err)
		return
	}

	decision := ac.accessService.Evaluate(c.Request.Context(), req)
	if decision.IsSystemicFault() {
		logger.Warn("Access evaluation failed closed",
			zap.String("requesterID", req.RequesterID),
			zap.String("error", decision.Error))
	}
	c.JSON(http.StatusOK, decision)
}

// EvaluateBatch endpoint
func (ac *AccessController) EvaluateBatch(c *gin.Context) {
	var batch BatchRequest
	if err := c.ShouldBindJSON(&batch); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid batch request", err)
		return
	}

	decisions, err := ac.accessService.EvaluateBatch(c.Request.Context(), batch.Requests)
	if err != nil {
		switch {
		case errors.Is(err, pdp_errors.ErrBatchTooLarge):
			util.RespondWithError(c, http.StatusRequestEntityTooLarge, "Batch too large", err)
		case errors.Is(err, pdp_errors.ErrInvalidAccessRequest):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid batch request", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to evaluate batch", pdp_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, BatchResponse{Decisions: decisions})
}

// ClearCache endpoint
func (ac *AccessController) ClearCache(c *gin.Context) {
	if err := ac.accessService.ClearCache(c.Request.Context()); err != nil {
		if errors.Is(err, pdp_errors.ErrCacheUnavailable) {
			util.RespondWithError(c, http.StatusServiceUnavailable, "Decision cache unavailable", err)
			return
		}
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to clear decision cache", pdp_errors.ErrInternalServer)
		return
	}

	logger.Info("Decision cache cleared", zap.String("userID", util.GetUserIDFromContext(c)))
	c.Status(http.StatusNoContent)
}

// CacheStats endpoint
func (ac *AccessController) CacheStats(c *gin.Context) {
	stats, err := ac.accessService.CacheStats(c.Request.Context())
	if err != nil {
		if errors.Is(err, pdp_errors.ErrCacheUnavailable) {
			util.RespondWithError(c, http.StatusServiceUnavailable, "Decision cache unavailable", err)
			return
		}
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to read cache stats", pdp_errors.ErrInternalServer)
		return
	}

	c.JSON(http.StatusOK, stats)
}
