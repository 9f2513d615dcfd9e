package handler

import (
	"net/http"

	"github.com/gdugdh24/handshake-backend/internal/usecase/cluster"
	"github.com/gin-gonic/gin"
)

type ClusterHandler struct {
	clusterUseCase *cluster.ClusterUseCase
}

func NewClusterHandler(clusterUseCase *cluster.ClusterUseCase) *ClusterHandler {
	return &ClusterHandler{
		clusterUseCase: clusterUseCase,
	}
}

// ListClusters handles GET /clusters
func (h *ClusterHandler) ListClusters(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	clusters, err := h.clusterUseCase.List(c.Request.Context(), cluster.Caller{
		UserID:     userID,
		Privileged: isPrivileged(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"clusters": clusters})
}
