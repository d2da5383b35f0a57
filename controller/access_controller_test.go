// api/controller/access_controller_test.go
package controller_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dev-mohitbeniwal/consentgate/api/controller"
	pdp_errors "github.com/dev-mohitbeniwal/consentgate/api/errors"
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
	mock_service "github.com/dev-mohitbeniwal/consentgate/api/test/service_mock"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestAccessController(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAccessService := mock_service.NewMockIAccessService(ctrl)
	accessController := controller.NewAccessController(mockAccessService)
	router := setupRouter()
	api := router.Group("/")
	accessController.RegisterRoutes(api)
	accessController.RegisterAdminRoutes(api)

	t.Run("Evaluate_Success", func(t *testing.T) {
		mockAccessService.EXPECT().
			Evaluate(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, req pdp_model.AccessRequest) *pdp_model.AccessDecision {
				assert.Equal(t, "dr-1", req.RequesterID)
				assert.Equal(t, []string{"lab_results"}, req.Categories)
				return &pdp_model.AccessDecision{
					Allowed:            true,
					ConsentVerified:    true,
					Accessible:         []string{"lab_results"},
					Restricted:         []string{},
					RiskLevel:          pdp_model.RiskLow,
					RestrictionReasons: []string{},
				}
			})

		body := strings.NewReader(`{"requester_id":"dr-1","subject_id":"p-1","categories":["lab_results"],"purpose":"treatment","access_type":"view"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/access/evaluate", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var decision pdp_model.AccessDecision
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
		assert.True(t, decision.Allowed)
		assert.Equal(t, []string{"lab_results"}, decision.Accessible)
	})

	t.Run("Evaluate_FaultStillReturnsDecision", func(t *testing.T) {
		mockAccessService.EXPECT().
			Evaluate(gomock.Any(), gomock.Any()).
			Return(&pdp_model.AccessDecision{
				Accessible: []string{},
				Restricted: []string{"lab_results"},
				RiskLevel:  pdp_model.RiskCritical,
				Error:      "collaborator unavailable",
			})

		body := strings.NewReader(`{"requester_id":"dr-1","subject_id":"p-1","categories":["lab_results"],"access_type":"view"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/access/evaluate", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "collaborator unavailable")
	})

	t.Run("Evaluate_InvalidJSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/access/evaluate", strings.NewReader(`{"requester_id":`))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("EvaluateBatch_Success", func(t *testing.T) {
		mockAccessService.EXPECT().
			EvaluateBatch(gomock.Any(), gomock.Len(2)).
			Return([]*pdp_model.AccessDecision{
				{RiskLevel: pdp_model.RiskLow},
				{RiskLevel: pdp_model.RiskHigh},
			}, nil)

		body := strings.NewReader(`{"requests":[{"requester_id":"a"},{"requester_id":"b"}]}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/access/evaluate/batch", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp controller.BatchResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Decisions, 2)
		assert.Equal(t, pdp_model.RiskHigh, resp.Decisions[1].RiskLevel)
	})

	t.Run("EvaluateBatch_TooLarge", func(t *testing.T) {
		mockAccessService.EXPECT().
			EvaluateBatch(gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("%w: 3 requests, limit is 2", pdp_errors.ErrBatchTooLarge))

		body := strings.NewReader(`{"requests":[{},{},{}]}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/access/evaluate/batch", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("EvaluateBatch_Empty", func(t *testing.T) {
		mockAccessService.EXPECT().
			EvaluateBatch(gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("%w: batch is empty", pdp_errors.ErrInvalidAccessRequest))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/access/evaluate/batch", strings.NewReader(`{"requests":[]}`))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ClearCache_Success", func(t *testing.T) {
		mockAccessService.EXPECT().ClearCache(gomock.Any()).Return(nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodDelete, "/access/cache", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("ClearCache_Unavailable", func(t *testing.T) {
		mockAccessService.EXPECT().
			ClearCache(gomock.Any()).
			Return(fmt.Errorf("%w: connection refused", pdp_errors.ErrCacheUnavailable))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodDelete, "/access/cache", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("CacheStats_Success", func(t *testing.T) {
		mockAccessService.EXPECT().
			CacheStats(gomock.Any()).
			Return(pdp_model.CacheStats{Size: 2, Keys: []string{"a", "b"}}, nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/access/cache/stats", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var stats pdp_model.CacheStats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, 2, stats.Size)
	})
}
