package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "go-inspection-gateway/internal/errors"
	"go-inspection-gateway/internal/extract"
	"go-inspection-gateway/internal/imaging"
)

const (
	// LocalLabel identifies the local backend in generated checklist descriptions.
	LocalLabel = "Ollama 本地"

	analysisPersona = "You are a meticulous construction quality inspector who flags every potential defect and explains the reasoning clearly."

	checklistParsePersona = `你是一位專精於土建工程的品質檢查助理，負責從掃描影像或文件中精準抽取檢查表。
嚴格遵守以下規範：
1. 只能輸出符合指定結構的 JSON，禁止任何額外文字、註解或 markdown。
2. "name" 欄位必須填入文件最上方的正式標題文字（例如「瀝青混凝土鋪築工程自主檢查表」），若文件沒有標題才可使用使用者提供的名稱。
3. "items" 陣列必須完整列出表格中所有檢查項目，不得省略；若影像品質差無法讀取，也要根據資料合理推測列出至少 8 項。
4. 每個項目需包含：emoji 圖示（單一 emoji）、簡潔的項目名稱，以及以繁體中文描述的具體檢查標準。
5. 若文件包含多列表格，須逐列解析並組合為完整的檢查項目列表。`
)

// Ollama calls a local model server's chat endpoint. No credential is needed.
type Ollama struct {
	baseURL        string
	model          string
	checklistModel string
	maxWidth       int
	client         *http.Client
	conditioner    *imaging.Conditioner
}

func NewOllama(baseURL, model, checklistModel string, maxWidth int, conditioner *imaging.Conditioner) *Ollama {
	if strings.TrimSpace(checklistModel) == "" {
		checklistModel = model
	}
	return &Ollama{
		baseURL:        strings.TrimRight(baseURL, "/"),
		model:          model,
		checklistModel: checklistModel,
		maxWidth:       maxWidth,
		client:         &http.Client{},
		conditioner:    conditioner,
	}
}

func (o *Ollama) Name() string {
	return "local"
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Stream   bool            `json:"stream"`
	Messages []ollamaMessage `json:"messages"`
}

func (o *Ollama) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	userMessage := ollamaMessage{Role: "user", Content: req.Prompt}
	if req.Image != nil && strings.TrimSpace(req.Image.Base64Data) != "" {
		data, _ := o.conditionImage(*req.Image)
		// Ollama expects base64 payloads in a dedicated images array
		userMessage.Images = []string{data}
	}

	reply, err := o.chat(ctx, ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Messages: []ollamaMessage{
			{Role: "system", Content: analysisPersona},
			userMessage,
		},
	})
	if err != nil {
		return nil, err
	}

	return &AnalysisResult{
		Provider: "ollama",
		Text:     extract.Text(reply),
		Raw:      reply,
	}, nil
}

func (o *Ollama) ParseChecklist(ctx context.Context, req ChecklistRequest) (*ChecklistResult, error) {
	model := strings.TrimSpace(req.ModelOverride)
	if model == "" {
		model = o.checklistModel
	}

	userMessage := ollamaMessage{Role: "user", Content: localChecklistParsePrompt(req.ChecklistName)}
	if strings.TrimSpace(req.Image.Base64Data) != "" {
		data, _ := o.conditionImage(req.Image)
		userMessage.Images = []string{data}
	}

	reply, err := o.chat(ctx, ollamaChatRequest{
		Model:  model,
		Stream: false,
		Messages: []ollamaMessage{
			{Role: "system", Content: checklistParsePersona},
			userMessage,
		},
	})
	if err != nil {
		return nil, err
	}

	text := extract.Text(reply)
	if text == "" {
		return nil, apperrors.NewExtractionError("無法取得本地模型輸出內容", reply)
	}

	return &ChecklistResult{
		ProviderLabel: LocalLabel,
		RawText:       text,
	}, nil
}

func (o *Ollama) conditionImage(img ImagePayload) (string, string) {
	mediaType := strings.TrimSpace(img.MediaType)
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	return o.conditioner.Condition(imaging.StripDataURI(img.Base64Data), mediaType, o.maxWidth)
}

// chat posts to /api/chat and decodes the reply into its raw map shape so the
// recursive text extractor can walk whatever nesting the server returns.
func (o *Ollama) chat(ctx context.Context, payload ollamaChatRequest) (map[string]interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewInternalError("marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewInternalError("create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamError("本地模型無法連線", http.StatusBadGateway, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewUpstreamError("read local model response", http.StatusBadGateway, err.Error())
	}

	var reply map[string]interface{}
	decodeErr := json.Unmarshal(raw, &reply)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Best-effort error detail: structured error field, else the raw body
		detail := strings.TrimSpace(string(raw))
		if decodeErr == nil {
			if msg, ok := reply["error"].(string); ok && msg != "" {
				detail = msg
			}
		}
		if detail == "" {
			detail = "Local model error"
		}
		return nil, apperrors.NewUpstreamError(detail, resp.StatusCode, string(raw))
	}

	if decodeErr != nil {
		return nil, apperrors.NewExtractionError("本地模型回傳格式無法解析", string(raw))
	}
	return reply, nil
}

func localChecklistParsePrompt(checklistName string) string {
	name := strings.TrimSpace(checklistName)
	if name == "" {
		name = "自訂檢查項目"
	}
	return fmt.Sprintf(`請仔細分析這份品質檢查表，提取出所有的檢查項目和對應的檢查標準。

請按照以下JSON格式回應，不要包含任何其他文字：

{
  "name": "%s",
  "description": "從檢查表中提取的檢查項目",
  "items": [
    {
      "name": "檢查項目名稱",
      "icon": "🔧",
      "standard": "具體的檢查標準或要求"
    }
  ]
}

注意事項：
1. 請提取所有能識別的檢查項目
2. 為每個項目選擇合適的emoji圖標
3. 檢查標準要具體明確，使用繁體中文描述
4. 只回應JSON格式，不要額外說明
5. 若影像資訊有限，仍需根據此類工程常見規範列出所有應檢項目，至少 8 項`, name)
}
