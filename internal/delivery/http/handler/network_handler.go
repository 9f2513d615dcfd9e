package handler

import (
	"net/http"

	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/gdugdh24/handshake-backend/internal/graph"
	"github.com/gdugdh24/handshake-backend/internal/usecase/recipient"
	"github.com/gin-gonic/gin"
)

type NetworkHandler struct {
	recipientUseCase *recipient.RecipientUseCase
}

func NewNetworkHandler(recipientUseCase *recipient.RecipientUseCase) *NetworkHandler {
	return &NetworkHandler{
		recipientUseCase: recipientUseCase,
	}
}

// ResolveRecipientsResponse lists reachable users in BFS order.
type ResolveRecipientsResponse struct {
	Recipients []graph.Reach `json:"recipients"`
}

// HelpRequestBody starts the next notification wave for a collection.
type HelpRequestBody struct {
	CollectionID string `json:"collection_id" binding:"required"`
	Type         string `json:"type"`
}

// ResolveRecipients handles POST /network/recipients
// Seed defaults to the caller; only privileged callers may resolve for others.
func (h *NetworkHandler) ResolveRecipients(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req recipient.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.SeedID == "" {
		req.SeedID = userID
	}
	if req.SeedID != userID && !isPrivileged(c) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
		return
	}

	reached, err := h.recipientUseCase.Resolve(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ResolveRecipientsResponse{Recipients: reached})
}

// CreateHelpRequest handles POST /help-requests
func (h *NetworkHandler) CreateHelpRequest(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var body HelpRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.recipientUseCase.DispatchHelpRequest(c.Request.Context(), recipient.HelpRequest{
		CollectionID: body.CollectionID,
		AuthorID:     userID,
		Type:         domain.NotificationType(body.Type),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
