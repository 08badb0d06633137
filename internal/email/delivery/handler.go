package delivery

import (
	"errors"
	"net/http"
	"strconv"

	accountusecase "mailsync-backend/internal/account/usecase"
	emaildto "mailsync-backend/internal/email/dto"
	"mailsync-backend/internal/email/repository"
	"mailsync-backend/internal/email/scheduler"
	"mailsync-backend/internal/email/usecase"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	accountUsecase accountusecase.AccountUsecase
	scheduler      *scheduler.Scheduler
	syncRunRepo    repository.SyncRunRepository
	threadRepo     repository.ThreadRepository
	messageRepo    repository.MessageRepository
}

func NewSyncHandler(
	accountUsecase accountusecase.AccountUsecase,
	sched *scheduler.Scheduler,
	syncRunRepo repository.SyncRunRepository,
	threadRepo repository.ThreadRepository,
	messageRepo repository.MessageRepository,
) *SyncHandler {
	return &SyncHandler{
		accountUsecase: accountUsecase,
		scheduler:      sched,
		syncRunRepo:    syncRunRepo,
		threadRepo:     threadRepo,
		messageRepo:    messageRepo,
	}
}

// TriggerSync starts a sync for one account immediately. Returns 409
// when a sync for the account is already running.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	var req emaildto.TriggerSyncRequest
	_ = c.ShouldBindJSON(&req)

	run, err := h.scheduler.TriggerNow(c.Request.Context(), c.Param("id"), req.Full)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrSyncInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, usecase.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, usecase.ErrAccountDisabled):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			// The run record, if any, carries the failure detail.
			if run != nil {
				c.JSON(http.StatusBadGateway, run)
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *SyncHandler) GetSyncStatus(c *gin.Context) {
	account, err := h.accountUsecase.GetAccount(c.Param("id"))
	if err != nil {
		if errors.Is(err, accountusecase.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	latest, err := h.syncRunRepo.LatestByAccount(account.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, emaildto.SyncStatusResponse{
		AccountID:           account.ID,
		Status:              account.Status,
		SyncEnabled:         account.SyncEnabled,
		FullSyncCompleted:   account.FullSyncCompleted,
		TotalMessagesSynced: account.TotalMessagesSynced,
		LastSyncAt:          account.LastSyncAt,
		LastError:           account.LastError,
		LatestRun:           latest,
	})
}

func (h *SyncHandler) ListSyncRuns(c *gin.Context) {
	limit := parsePositive(c.Query("limit"), 20)

	runs, err := h.syncRunRepo.ListRecent(c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, emaildto.SyncRunsResponse{Runs: runs})
}

// SyncAllDue runs one scheduler pass on demand.
func (h *SyncHandler) SyncAllDue(c *gin.Context) {
	summary := h.scheduler.SyncAllDue(c.Request.Context())
	c.JSON(http.StatusOK, summary)
}

func (h *SyncHandler) ListThreads(c *gin.Context) {
	limit := parsePositive(c.Query("limit"), 20)
	offset := 0
	if parsed, err := strconv.Atoi(c.Query("offset")); err == nil && parsed > 0 {
		offset = parsed
	}

	threads, err := h.threadRepo.ListByAccount(c.Param("id"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, emaildto.ThreadsResponse{Threads: threads, Limit: limit, Offset: offset})
}

func (h *SyncHandler) GetThreadMessages(c *gin.Context) {
	thread, err := h.threadRepo.FindByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if thread == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		return
	}

	messages, err := h.messageRepo.ListByThread(thread.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, emaildto.ThreadMessagesResponse{Thread: thread, Messages: messages})
}

func parsePositive(value string, fallback int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return fallback
}
