package api

import (
	"context"
	"net/http"

	accountUsecase "mailsync-backend/internal/account/usecase"
	authUsecase "mailsync-backend/internal/auth/usecase"
	emailDelivery "mailsync-backend/internal/email/delivery"

	"github.com/gin-gonic/gin"
)

// Handler owns the HTTP server and its routes.
type Handler struct {
	engine *gin.Engine
	server *http.Server
}

func NewHandler(auth authUsecase.AuthUsecase, accounts accountUsecase.AccountUsecase, syncHandler *emailDelivery.SyncHandler) *Handler {
	engine := gin.New()
	engine.Use(gin.Recovery())

	SetupRoutes(engine, auth, accounts, syncHandler)

	return &Handler{engine: engine}
}

func (h *Handler) Start(addr string) error {
	h.server = &http.Server{
		Addr:    addr,
		Handler: h.engine,
	}
	return h.server.ListenAndServe()
}

func (h *Handler) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}
