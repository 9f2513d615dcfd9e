package http

import (
	"github.com/gdugdh24/handshake-backend/internal/delivery/http/handler"
	"github.com/gdugdh24/handshake-backend/internal/delivery/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Router struct {
	networkHandler *handler.NetworkHandler
	chainHandler   *handler.ChainHandler
	clusterHandler *handler.ClusterHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

func NewRouter(
	networkHandler *handler.NetworkHandler,
	chainHandler *handler.ChainHandler,
	clusterHandler *handler.ClusterHandler,
	authMiddleware *middleware.AuthMiddleware,
	log *zap.Logger,
) *Router {
	return &Router{
		networkHandler: networkHandler,
		chainHandler:   chainHandler,
		clusterHandler: clusterHandler,
		authMiddleware: authMiddleware,
		log:            log,
	}
}

func (r *Router) Setup() *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger(r.log))
	router.Use(gin.Recovery())

	// Health check (supports both GET and HEAD)
	healthHandler := func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(r.authMiddleware.RequireAuth())
	{
		v1.POST("/network/recipients", r.networkHandler.ResolveRecipients)
		v1.POST("/help-requests", r.networkHandler.CreateHelpRequest)

		chains := v1.Group("/chains")
		{
			chains.POST("/discover", r.chainHandler.Discover)
			chains.GET("/:id", r.chainHandler.GetChain)
			chains.POST("/:id/confirm", r.chainHandler.Confirm)
			chains.POST("/:id/complete", r.chainHandler.Complete)
			chains.POST("/:id/decline", r.chainHandler.Decline)
			chains.POST("/:id/cancel", r.chainHandler.Cancel)
			chains.PUT("/:id/links/:position/terms", r.chainHandler.SetOfferTerms)
		}

		v1.GET("/clusters", r.clusterHandler.ListClusters)
	}

	return router
}
