package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aiwuxian/realm-chronicle/internal/models"
	"github.com/aiwuxian/realm-chronicle/internal/services"
)

type Handler struct {
	worldService *services.WorldService
	storyService *services.StoryService
	metaService  *services.MetaService
	llmConfig    models.LLMConfig
}

func NewHandler(worldService *services.WorldService, storyService *services.StoryService,
	metaService *services.MetaService, llmConfig models.LLMConfig) *Handler {
	return &Handler{
		worldService: worldService,
		storyService: storyService,
		metaService:  metaService,
		llmConfig:    llmConfig,
	}
}

// Register 注册所有路由
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.HEAD("/health", h.Health)

	// 世界相关
	r.GET("/world/state", h.GetWorldState)
	r.HEAD("/world/state", h.GetWorldState)
	r.POST("/state", h.UpdateState)

	// 行动与事件
	r.POST("/actions", h.ApplyAction)
	r.GET("/events", h.ListEvents)
	r.POST("/events/check", h.CheckEvents)

	// 故事相关
	r.POST("/story/event", h.GenerateStoryEvent)
	r.GET("/story/events", h.ListStoryEvents)
	r.GET("/story/event/:id", h.GetStoryEvent)
	r.GET("/branch/choices", h.BranchChoices)
}

// storyServiceFor 请求头带自定义API配置时使用临时的 StoryService
func (h *Handler) storyServiceFor(c *gin.Context) *services.StoryService {
	apiKey := c.GetHeader("X-Custom-API-Key")
	if apiKey == "" {
		return h.storyService
	}

	config := h.llmConfig
	config.APIKey = apiKey
	if base := c.GetHeader("X-Custom-API-Base"); base != "" {
		config.APIBase = base
	}
	if model := c.GetHeader("X-Custom-API-Model"); model != "" {
		config.Model = model
	}

	return h.storyService.WithLLM(services.NewLLMService(config))
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetWorldState 获取世界快照
func (h *Handler) GetWorldState(c *gin.Context) {
	state, err := h.worldService.GetWorldState(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// UpdateState 覆盖玩家声望与势力力量
func (h *Handler) UpdateState(c *gin.Context) {
	var req models.StateOverride
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	if err := h.metaService.UpdateState(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// ApplyAction 执行玩家行动并推进世界
func (h *Handler) ApplyAction(c *gin.Context) {
	var req struct {
		Action   string `json:"action" binding:"required"`
		Target   int    `json:"target"`
		Value    int    `json:"value"`
		CausedBy string `json:"caused_by"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	action, err := services.ParseAction(req.Action, req.Target, req.Value, req.CausedBy)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.worldService.ApplyAction(c.Request.Context(), action)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListEvents 事件日志，最新在前；limit 为空时返回全部
func (h *Handler) ListEvents(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	events, err := h.worldService.ListEvents(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// CheckEvents 不执行行动，仅生成事件
func (h *Handler) CheckEvents(c *gin.Context) {
	resp, err := h.worldService.CheckEvents(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GenerateStoryEvent LLM生成故事事件
func (h *Handler) GenerateStoryEvent(c *gin.Context) {
	var req struct {
		Context string `json:"context" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "context 不能为空"})
		return
	}

	ev, err := h.storyServiceFor(c).GenerateStoryEvent(c.Request.Context(), req.Context)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ev)
}

// ListStoryEvents 已生成的故事事件，最新在前
func (h *Handler) ListStoryEvents(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	events, err := h.storyService.ListStoryEvents(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"story_events": events})
}

// GetStoryEvent 获取故事事件
func (h *Handler) GetStoryEvent(c *gin.Context) {
	ev, err := h.storyService.GetStoryEvent(c.Request.Context(), c.Param("id"))
	if errors.Is(err, services.ErrInvalidInput) {
		c.JSON(http.StatusNotFound, gin.H{"error": "故事事件不存在"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ev)
}

// BranchChoices 下一步的分支选项
func (h *Handler) BranchChoices(c *gin.Context) {
	choices, err := h.storyServiceFor(c).BranchChoices(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"choices": choices})
}

// queryLimit 解析 ?limit，非法时直接返回 400
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit 必须是非负整数"})
		return 0, false
	}
	return n, true
}

// respondError 按错误类别映射状态码
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNarratorUnavailable):
		status = http.StatusBadGateway
	default:
		log.Printf("❌ %s %s 失败: %v\n", c.Request.Method, c.FullPath(), err)
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
