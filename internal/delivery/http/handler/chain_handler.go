package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/gdugdh24/handshake-backend/internal/usecase/chain"
	"github.com/gin-gonic/gin"
)

type ChainHandler struct {
	chainUseCase *chain.ChainUseCase
}

func NewChainHandler(chainUseCase *chain.ChainUseCase) *ChainHandler {
	return &ChainHandler{
		chainUseCase: chainUseCase,
	}
}

type DiscoverRequest struct {
	SeedID string `json:"seed_id"`
}

type DiscoverResponse struct {
	Chains []*domain.MatchChain `json:"chains"`
}

type OfferTermsRequest struct {
	Terms string `json:"terms"`
}

// Discover handles POST /chains/discover
func (h *ChainHandler) Discover(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req DiscoverRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
	}
	if req.SeedID == "" {
		req.SeedID = userID
	}
	if req.SeedID != userID && !isPrivileged(c) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
		return
	}

	chains, err := h.chainUseCase.Discover(c.Request.Context(), req.SeedID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, DiscoverResponse{Chains: chains})
}

// GetChain handles GET /chains/:id
func (h *ChainHandler) GetChain(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	result, err := h.chainUseCase.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !result.HasParticipant(userID) && !isPrivileged(c) {
		writeError(c, domain.ErrNotParticipant)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Confirm handles POST /chains/:id/confirm
func (h *ChainHandler) Confirm(c *gin.Context) {
	h.act(c, h.chainUseCase.Confirm)
}

// Complete handles POST /chains/:id/complete
func (h *ChainHandler) Complete(c *gin.Context) {
	h.act(c, h.chainUseCase.Complete)
}

// Decline handles POST /chains/:id/decline
func (h *ChainHandler) Decline(c *gin.Context) {
	h.act(c, h.chainUseCase.Decline)
}

// Cancel handles POST /chains/:id/cancel
func (h *ChainHandler) Cancel(c *gin.Context) {
	h.act(c, h.chainUseCase.Cancel)
}

// SetOfferTerms handles PUT /chains/:id/links/:position/terms
func (h *ChainHandler) SetOfferTerms(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	position, err := strconv.Atoi(c.Param("position"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid position"})
		return
	}

	var req OfferTermsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.chainUseCase.SetOfferTerms(c.Request.Context(), c.Param("id"), userID, position, req.Terms)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ChainHandler) act(c *gin.Context, action func(ctx context.Context, id, userID string) (*domain.MatchChain, error)) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	result, err := action(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
