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
	"go-inspection-gateway/internal/imaging"
)

const (
	anthropicVersion   = "2023-06-01"
	anthropicKeyPrefix = "sk-ant-api03-"

	// CloudLabel identifies the cloud backend in generated checklist descriptions.
	CloudLabel = "Claude 雲端"
)

// ValidateAPIKey checks the caller-supplied Anthropic credential format.
func ValidateAPIKey(apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return apperrors.NewValidationError("API密鑰是必需的", nil)
	}
	if !strings.HasPrefix(apiKey, anthropicKeyPrefix) {
		return apperrors.NewValidationError("API密鑰格式不正確", nil)
	}
	return nil
}

// Anthropic calls the cloud Messages API. Credentials are caller-supplied per
// request; the adapter holds no key of its own.
type Anthropic struct {
	baseURL     string
	model       string
	maxWidth    int
	client      *http.Client
	conditioner *imaging.Conditioner
	pool        *imaging.Pool
}

func NewAnthropic(baseURL, model string, maxWidth int, conditioner *imaging.Conditioner, pool *imaging.Pool) *Anthropic {
	return &Anthropic{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		maxWidth:    maxWidth,
		client:      &http.Client{},
		conditioner: conditioner,
		pool:        pool,
	}
}

func (a *Anthropic) Name() string {
	return "cloud"
}

type anthropicTextPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicImagePart struct {
	Type   string               `json:"type"`
	Source anthropicImageSource `json:"source"`
}

type anthropicMessage struct {
	Role    string        `json:"role"`
	Content []interface{} `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Forward proxies a caller-built request body to the Messages API after
// conditioning every embedded base64 image, and returns the upstream status
// and body verbatim. Used by the transparent proxy endpoint.
func (a *Anthropic) Forward(ctx context.Context, apiKey string, requestData map[string]interface{}) (int, []byte, error) {
	if messages, ok := requestData["messages"].([]interface{}); ok {
		a.conditioner.ConditionMessages(a.pool, messages, a.maxWidth)
	}

	body, err := json.Marshal(requestData)
	if err != nil {
		return 0, nil, apperrors.NewInternalError("marshal request", err)
	}

	status, raw, err := a.post(ctx, apiKey, body)
	if err != nil {
		return 0, nil, err
	}
	return status, raw, nil
}

func (a *Anthropic) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	if err := ValidateAPIKey(req.APIKey); err != nil {
		return nil, err
	}

	content := []interface{}{
		anthropicTextPart{Type: "text", Text: req.Prompt},
	}
	if req.Image != nil && strings.TrimSpace(req.Image.Base64Data) != "" {
		data, mediaType := a.conditionImage(*req.Image)
		content = append(content, anthropicImagePart{
			Type:   "image",
			Source: anthropicImageSource{Type: "base64", MediaType: mediaType, Data: data},
		})
	}

	reply, err := a.call(ctx, req.APIKey, content)
	if err != nil {
		return nil, err
	}

	return &AnalysisResult{
		Provider: a.Name(),
		Text:     concatContent(reply),
		Raw:      reply,
	}, nil
}

func (a *Anthropic) ParseChecklist(ctx context.Context, req ChecklistRequest) (*ChecklistResult, error) {
	if err := ValidateAPIKey(req.APIKey); err != nil {
		return nil, err
	}

	data, mediaType := a.conditionImage(req.Image)
	content := []interface{}{
		anthropicTextPart{Type: "text", Text: checklistParsePrompt(req.ChecklistName)},
		anthropicImagePart{
			Type:   "image",
			Source: anthropicImageSource{Type: "base64", MediaType: mediaType, Data: data},
		},
	}

	reply, err := a.call(ctx, req.APIKey, content)
	if err != nil {
		return nil, err
	}

	return &ChecklistResult{
		ProviderLabel: CloudLabel,
		RawText:       concatContent(reply),
	}, nil
}

func (a *Anthropic) conditionImage(img ImagePayload) (string, string) {
	mediaType := strings.TrimSpace(img.MediaType)
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	return a.conditioner.Condition(imaging.StripDataURI(img.Base64Data), mediaType, a.maxWidth)
}

func (a *Anthropic) call(ctx context.Context, apiKey string, content []interface{}) (*anthropicResponse, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:     a.model,
		MaxTokens: 4000,
		Messages:  []anthropicMessage{{Role: "user", Content: content}},
	})
	if err != nil {
		return nil, apperrors.NewInternalError("marshal request", err)
	}

	status, raw, err := a.post(ctx, apiKey, body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		// Forward the provider's status and payload verbatim
		var payload interface{}
		if jsonErr := json.Unmarshal(raw, &payload); jsonErr != nil {
			payload = string(raw)
		}
		return nil, apperrors.NewUpstreamError("cloud provider error", status, payload)
	}

	var reply anthropicResponse
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, apperrors.NewUpstreamError("cloud provider returned malformed response", http.StatusBadGateway, string(raw))
	}
	return &reply, nil
}

func (a *Anthropic) post(ctx context.Context, apiKey string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return 0, nil, apperrors.NewInternalError("create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, nil, apperrors.NewUpstreamError("cloud provider unreachable", http.StatusBadGateway, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, apperrors.NewUpstreamError("read cloud provider response", http.StatusBadGateway, err.Error())
	}
	return resp.StatusCode, raw, nil
}

// concatContent joins the reply's text blocks into one string for downstream
// extraction.
func concatContent(reply *anthropicResponse) string {
	var builder strings.Builder
	for _, block := range reply.Content {
		if block.Text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(block.Text)
	}
	return builder.String()
}

// checklistParsePrompt instructs the model to transcribe a photographed
// checklist into the JSON contract the normalizer expects.
func checklistParsePrompt(checklistName string) string {
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
3. 檢查標準要具體明確
4. 只回應JSON格式，不要額外說明`, name)
}
