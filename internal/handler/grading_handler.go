package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-performance-api/internal/dto"
	"github.com/noah-isme/sma-performance-api/internal/models"
	"github.com/noah-isme/sma-performance-api/internal/performance"
	appErrors "github.com/noah-isme/sma-performance-api/pkg/errors"
	"github.com/noah-isme/sma-performance-api/pkg/response"
)

type gradingService interface {
	Schemes() []performance.GradingScheme
	Policy(ctx context.Context) (*dto.GradingPolicy, error)
	UpdatePolicy(ctx context.Context, req dto.UpdateGradingPolicyRequest, actor *models.JWTClaims) (*dto.GradingPolicy, error)
}

// GradingHandler exposes grading schemes and the active policy.
type GradingHandler struct {
	service gradingService
}

// NewGradingHandler builds a new handler.
func NewGradingHandler(service gradingService) *GradingHandler {
	return &GradingHandler{service: service}
}

// Schemes godoc
// @Summary List grading schemes
// @Tags Grading
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grading/schemes [get]
func (h *GradingHandler) Schemes(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Schemes())
}

// Policy godoc
// @Summary Active grading policy
// @Tags Grading
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grading/policy [get]
func (h *GradingHandler) Policy(c *gin.Context) {
	policy, err := h.service.Policy(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy)
}

// UpdatePolicy godoc
// @Summary Update grading policy
// @Tags Grading
// @Accept json
// @Produce json
// @Param payload body dto.UpdateGradingPolicyRequest true "Policy payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grading/policy [put]
func (h *GradingHandler) UpdatePolicy(c *gin.Context) {
	var req dto.UpdateGradingPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grading policy payload"))
		return
	}
	policy, err := h.service.UpdatePolicy(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy)
}
