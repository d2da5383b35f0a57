// api/controller/audit_controller_test.go
package controller_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dev-mohitbeniwal/consentgate/api/audit"
	"github.com/dev-mohitbeniwal/consentgate/api/controller"
	pdp_errors "github.com/dev-mohitbeniwal/consentgate/api/errors"
	mock_service "github.com/dev-mohitbeniwal/consentgate/api/test/service_mock"
)

func TestAuditController(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuditLogService := mock_service.NewMockIAuditLogService(ctrl)
	auditController := controller.NewAuditController(mockAuditLogService)
	router := setupRouter()
	api := router.Group("/")
	auditController.RegisterRoutes(api)

	t.Run("QueryLogs_Success", func(t *testing.T) {
		from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		mockAuditLogService.EXPECT().
			QueryLogs(gomock.Any(), audit.Query{From: from, RequesterID: "dr-1", SubjectID: "p-1", Limit: 20}).
			Return([]audit.AuditRecord{{ID: "a1", RequesterID: "dr-1", SubjectID: "p-1"}}, nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/audit/logs?from=2024-03-01T00:00:00Z&requester_id=dr-1&subject_id=p-1&limit=20", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var records []audit.AuditRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
		require.Len(t, records, 1)
		assert.Equal(t, "a1", records[0].ID)
	})

	t.Run("QueryLogs_InvalidTimestamp", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/audit/logs?from=yesterday", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("QueryLogs_InvalidLimit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/audit/logs?limit=ten", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("QueryLogs_InvalidCriteria", func(t *testing.T) {
		mockAuditLogService.EXPECT().
			QueryLogs(gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("%w: 'to' precedes 'from'", pdp_errors.ErrInvalidSearchCriteria))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/audit/logs?from=2024-03-02T00:00:00Z&to=2024-03-01T00:00:00Z", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("QueryLogs_StoreFailure", func(t *testing.T) {
		mockAuditLogService.EXPECT().
			QueryLogs(gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("%w: es down", pdp_errors.ErrDatabaseOperation))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/audit/logs", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
