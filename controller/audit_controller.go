// api/controller/audit_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/consentgate/api/audit"
	pdp_errors "github.com/dev-mohitbeniwal/consentgate/api/errors"
	"github.com/dev-mohitbeniwal/consentgate/api/service"
	"github.com/dev-mohitbeniwal/consentgate/api/util"
	helper_util "github.com/dev-mohitbeniwal/consentgate/api/util/helper"
)

type AuditController struct {
	auditLogService service.IAuditLogService
}

func NewAuditController(auditLogService service.IAuditLogService) *AuditController {
	return &AuditController{
		auditLogService: auditLogService,
	}
}

// RegisterRoutes registers the API routes
func (ac *AuditController) RegisterRoutes(r *gin.RouterGroup) {
	logs := r.Group("/audit")
	{
		logs.GET("/logs", ac.QueryLogs)
	}
}

// QueryLogs endpoint
func (ac *AuditController) QueryLogs(c *gin.Context) {
	from, err := helper_util.ParseOptionalTime(c.Query("from"))
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid 'from' timestamp", err)
		return
	}
	to, err := helper_util.ParseOptionalTime(c.Query("to"))
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid 'to' timestamp", err)
		return
	}
	limit, err := helper_util.GetLimitParam(c, 0)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	query := audit.Query{
		From:        from,
		To:          to,
		RequesterID: c.Query("requester_id"),
		SubjectID:   c.Query("subject_id"),
		Limit:       limit,
	}

	records, err := ac.auditLogService.QueryLogs(c.Request.Context(), query)
	if err != nil {
		switch {
		case errors.Is(err, pdp_errors.ErrInvalidSearchCriteria):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid search criteria", err)
		case errors.Is(err, pdp_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to query audit logs", pdp_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, records)
}
