package transport

import (
	"context"
	"net/http"
	"time"

	"go-inspection-gateway/internal/checklist"
	"go-inspection-gateway/internal/config"
	apperrors "go-inspection-gateway/internal/errors"
	"go-inspection-gateway/internal/extract"
	"go-inspection-gateway/internal/inspection"
	"go-inspection-gateway/internal/logger"
	"go-inspection-gateway/internal/prompt"
	"go-inspection-gateway/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// localChecklistMinItems is the quality floor for the less reliable local
// model; the cloud path accepts any non-empty result.
const localChecklistMinItems = 8

type Handler struct {
	cfg       *config.Config
	assembler *prompt.Assembler
	cloud     *provider.Anthropic
	local     *provider.Ollama
	store     *inspection.Store
}

func NewHandler(cfg *config.Config, assembler *prompt.Assembler, cloud *provider.Anthropic, local *provider.Ollama, store *inspection.Store) http.Handler {
	h := &Handler{
		cfg:       cfg,
		assembler: assembler,
		cloud:     cloud,
		local:     local,
		store:     store,
	}

	r := gin.Default()
	r.Use(
		corsMiddleware(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
	)

	r.GET("/health", healthCheck)
	r.GET("/api/model-config", h.modelConfig)
	r.POST("/api/prompt", h.buildPrompt)
	r.POST("/api/anthropic", h.proxyAnthropic)
	r.POST("/api/ollama", h.analyzeLocal)
	r.POST("/api/parse-checklist", h.parseChecklist)
	r.GET("/api/inspection-types", h.getInspectionTypes)
	r.POST("/api/inspection-types", h.saveInspectionTypes)
	r.DELETE("/api/inspection-types/:typeId", h.deleteInspectionType)

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) modelConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"localModel":     h.cfg.LocalModel,
		"checklistModel": h.cfg.LocalChecklistModel,
	})
}

type promptRequest struct {
	Provider      string `json:"provider"`
	TypeName      string `json:"typeName"`
	ChecklistText string `json:"checklistText"`
}

func (h *Handler) buildPrompt(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationError("provider 參數不正確", err))
		return
	}
	if req.Provider != "cloud" && req.Provider != "local" {
		respondError(c, apperrors.NewValidationError("provider 參數不正確", nil))
		return
	}

	assembled := h.assembler.Assemble(c.Request.Context(), req.Provider, req.TypeName, req.ChecklistText)
	c.JSON(http.StatusOK, gin.H{"prompt": assembled})
}

type anthropicProxyRequest struct {
	APIKey      string                 `json:"apiKey"`
	RequestData map[string]interface{} `json:"requestData"`
}

// proxyAnthropic forwards a caller-built cloud request after conditioning any
// embedded base64 images, passing the upstream status and body through
// verbatim.
func (h *Handler) proxyAnthropic(c *gin.Context) {
	var req anthropicProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationError("無效的請求數據", err))
		return
	}
	if err := provider.ValidateAPIKey(req.APIKey); err != nil {
		respondError(c, err)
		return
	}
	if req.RequestData == nil {
		respondError(c, apperrors.NewValidationError("請求數據是必需的", nil))
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	status, body, err := h.cloud.Forward(ctx, req.APIKey, req.RequestData)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Data(status, "application/json", body)
}

type ollamaRequest struct {
	Prompt    string                 `json:"prompt"`
	ImageData *provider.ImagePayload `json:"imageData"`
}

func (h *Handler) analyzeLocal(c *gin.Context) {
	var req ollamaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationError("Missing prompt for local analysis", err))
		return
	}
	if req.Prompt == "" {
		respondError(c, apperrors.NewValidationError("Missing prompt for local analysis", nil))
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.local.Analyze(ctx, provider.AnalysisRequest{
		Prompt: req.Prompt,
		Image:  req.ImageData,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"provider": result.Provider,
		"content":  []gin.H{{"text": result.Text}},
	})
}

type parseChecklistRequest struct {
	APIKey        string                 `json:"apiKey"`
	ImageData     *provider.ImagePayload `json:"imageData"`
	ChecklistName string                 `json:"checklistName"`
	Provider      string                 `json:"provider"`
	LocalModel    string                 `json:"localModel"`
}

// parseChecklist runs the full pipeline: provider call, text extraction,
// structured-data extraction and normalization.
func (h *Handler) parseChecklist(c *gin.Context) {
	var req parseChecklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationError("檢查表影像數據是必需的", err))
		return
	}
	if req.ImageData == nil || req.ImageData.Base64Data == "" {
		respondError(c, apperrors.NewValidationError("檢查表影像數據是必需的", nil))
		return
	}

	selected := "cloud"
	if req.Provider == "local" {
		selected = "local"
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	checklistReq := provider.ChecklistRequest{
		APIKey:        req.APIKey,
		Image:         *req.ImageData,
		ChecklistName: req.ChecklistName,
		ModelOverride: req.LocalModel,
	}

	var result *provider.ChecklistResult
	var err error
	if selected == "local" {
		result, err = h.local.ParseChecklist(ctx, checklistReq)
	} else {
		result, err = h.cloud.ParseChecklist(ctx, checklistReq)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	parsed := extract.JSON(result.RawText)
	if parsed == nil {
		respondError(c, apperrors.NewExtractionError("無法從模型回應中解析檢查表JSON", result.RawText))
		return
	}

	normalized := checklist.Normalize(parsed, req.ChecklistName, result.ProviderLabel)
	if normalized == nil {
		respondError(c, apperrors.NewExtractionError("模型未產生任何檢查項目，請重新拍攝或改用其他模式", result.RawText))
		return
	}

	if selected == "local" && len(normalized.Items) < localChecklistMinItems {
		respondError(c, apperrors.NewExtractionError("本地模型產生的檢查項目數量不足（少於 8 項），請重新上傳或改用雲端模式", normalized))
		return
	}

	logger.WithFields(logrus.Fields{
		"provider": selected,
		"items":    len(normalized.Items),
	}).Info("Checklist parsed")

	c.JSON(http.StatusOK, gin.H{
		"provider":  selected,
		"checklist": normalized,
	})
}

func (h *Handler) getInspectionTypes(c *gin.Context) {
	doc, err := h.store.Get()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) saveInspectionTypes(c *gin.Context) {
	var doc inspection.TypesDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		respondError(c, apperrors.NewValidationError("無效的請求數據", err))
		return
	}
	if err := h.store.Save(&doc); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "檢查類型數據已儲存"})
}

func (h *Handler) deleteInspectionType(c *gin.Context) {
	typeID := c.Param("typeId")
	if typeID == "" {
		respondError(c, apperrors.NewValidationError("無效的檢查類型ID", nil))
		return
	}
	if _, err := h.store.Delete(typeID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "檢查類型已刪除"})
}

func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func respondError(c *gin.Context, err error) {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		appErr = apperrors.NewInternalError("服務器內部錯誤", err)
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": appErr.StatusCode,
		"type":        appErr.Type,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	body := gin.H{"error": appErr.Message}
	if appErr.Raw != nil {
		body["raw"] = appErr.Raw
	}
	c.AbortWithStatusJSON(appErr.StatusCode, body)
}
