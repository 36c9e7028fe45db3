package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/elevator-gateway/internal/metrics"
	"github.com/taoyao-code/elevator-gateway/internal/queue"
)

// CommandHandler 命令入口：校验请求后写入命令队列，由网关工作协程异步下发
type CommandHandler struct {
	queue  queue.Queue
	logger *zap.Logger
	m      *metrics.AppMetrics
	now    func() time.Time
}

// NewCommandHandler 创建命令 Handler
func NewCommandHandler(q queue.Queue, logger *zap.Logger, m *metrics.AppMetrics) *CommandHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandHandler{queue: q, logger: logger, m: m, now: time.Now}
}

// OpenDoorRequest 开门请求；door 缺省为 1
type OpenDoorRequest struct {
	Door *int `json:"door"`
}

// AddCardRequest 添加卡请求
type AddCardRequest struct {
	CardID         *int64  `json:"card_id" binding:"required"`
	CardNumber     *int64  `json:"card_number" binding:"required"`
	Floors         *uint64 `json:"floors" binding:"required"`
	Name           *string `json:"name" binding:"required"`
	DoorPermission uint16  `json:"door_permission"`
	Expiry         string  `json:"expiry"` // "2006-01-02 15:04"
}

// CommandResponse 入队成功响应
type CommandResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	CommandID string `json:"command_id"`
}

// OpenDoor POST /api/open-door
func (h *CommandHandler) OpenDoor(c *gin.Context) {
	var req OpenDoorRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, err)
			return
		}
	}
	door := 1
	if req.Door != nil {
		door = *req.Door
	}
	h.submit(c, queue.OpenDoor(door), "open door command queued")
}

// AddCard POST /api/add-card
func (h *CommandHandler) AddCard(c *gin.Context) {
	var req AddCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	info := queue.CardInfo{
		CardID:         *req.CardID,
		CardNumber:     *req.CardNumber,
		Floors:         *req.Floors,
		Name:           *req.Name,
		DoorPermission: req.DoorPermission,
		Expiry:         req.Expiry,
	}
	h.submit(c, queue.AddCard(info), "add card command queued")
}

// DeleteCard DELETE /api/delete-card/:card_id
func (h *CommandHandler) DeleteCard(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("card_id"), 10, 64)
	if err != nil || id <= 0 {
		h.reject(c, http.StatusBadRequest, "invalid", "card_id must be a positive integer")
		return
	}
	h.submit(c, queue.DeleteCard(id), "delete card command queued")
}

// submit 预先构造一次下行帧以拒绝非法参数，然后入队
func (h *CommandHandler) submit(c *gin.Context, cmd queue.Command, msg string) {
	if _, err := cmd.Outbound(); err != nil {
		h.badRequest(c, err)
		return
	}
	cmd.ID = uuid.NewString()
	cmd.EnqueuedAt = h.now()

	if err := h.queue.Enqueue(c.Request.Context(), cmd); err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			h.reject(c, http.StatusServiceUnavailable, "queue_full", "command queue is full")
			return
		}
		h.logger.Error("enqueue command failed", zap.String("action", string(cmd.Action)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "enqueue failed"})
		return
	}

	if h.m != nil {
		h.m.CommandsEnqueued.WithLabelValues(string(cmd.Action)).Inc()
	}
	h.logger.Info("command queued",
		zap.String("id", cmd.ID), zap.String("action", string(cmd.Action)), zap.String("remote_addr", c.ClientIP()))
	c.JSON(http.StatusOK, CommandResponse{Status: "success", Message: msg, CommandID: cmd.ID})
}

func (h *CommandHandler) badRequest(c *gin.Context, err error) {
	h.logger.Debug("command rejected", zap.String("path", c.FullPath()), zap.Error(err))
	h.reject(c, http.StatusBadRequest, "invalid", err.Error())
}

func (h *CommandHandler) reject(c *gin.Context, code int, reason, msg string) {
	if h.m != nil {
		h.m.APIRejected.WithLabelValues(reason).Inc()
	}
	c.JSON(code, gin.H{"status": "error", "message": msg})
}
