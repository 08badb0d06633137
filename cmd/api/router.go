package api

import (
	"net/http"

	accountDelivery "mailsync-backend/internal/account/delivery"
	accountUsecase "mailsync-backend/internal/account/usecase"
	authDelivery "mailsync-backend/internal/auth/delivery"
	authUsecase "mailsync-backend/internal/auth/usecase"
	emailDelivery "mailsync-backend/internal/email/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, auth authUsecase.AuthUsecase, accounts accountUsecase.AccountUsecase, syncHandler *emailDelivery.SyncHandler) {
	accountHandler := accountDelivery.NewAccountHandler(accounts)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Account routes (protected)
		accountRoutes := api.Group("/accounts")
		accountRoutes.Use(authDelivery.AuthMiddleware(auth))
		{
			accountRoutes.POST("", accountHandler.CreateAccount)
			accountRoutes.GET("", accountHandler.ListAccounts)
			accountRoutes.GET("/:id", accountHandler.GetAccount)
			accountRoutes.PATCH("/:id", accountHandler.UpdateAccount)

			accountRoutes.POST("/:id/sync", syncHandler.TriggerSync)
			accountRoutes.GET("/:id/sync/status", syncHandler.GetSyncStatus)
			accountRoutes.GET("/:id/sync/runs", syncHandler.ListSyncRuns)
			accountRoutes.GET("/:id/threads", syncHandler.ListThreads)
		}

		// Sync routes (protected)
		sync := api.Group("/sync")
		sync.Use(authDelivery.AuthMiddleware(auth))
		{
			sync.POST("/run", syncHandler.SyncAllDue)
		}

		// Thread routes (protected)
		threads := api.Group("/threads")
		threads.Use(authDelivery.AuthMiddleware(auth))
		{
			threads.GET("/:id/messages", syncHandler.GetThreadMessages)
		}
	}
}
