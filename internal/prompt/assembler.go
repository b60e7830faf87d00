package prompt

import (
	"context"
	"regexp"
	"strings"

	"go-inspection-gateway/internal/logger"
	"go-inspection-gateway/internal/storage"
)

const (
	// DefaultTypeName labels an analysis when the caller supplies no
	// inspection-type name.
	DefaultTypeName = "施工品質檢查"

	cloudTemplateFile = "cloud_analysis_prompt.txt"
	localTemplateFile = "local_analysis_prompt.txt"
)

var (
	typeNamePlaceholder  = regexp.MustCompile(`(?i)\{\{\s*TYPE_NAME\s*\}\}`)
	checklistPlaceholder = regexp.MustCompile(`(?i)\{\{\s*CHECKLIST\s*\}\}`)
)

// Assembler builds the instruction text sent to a model by substituting the
// type name and checklist into a provider-specific template, falling back to
// the built-in default when no override exists.
type Assembler struct {
	source storage.TemplateSource
}

func NewAssembler(source storage.TemplateSource) *Assembler {
	return &Assembler{source: source}
}

// Assemble produces the final analysis prompt for the given provider.
func (a *Assembler) Assemble(ctx context.Context, provider, typeName, checklistText string) string {
	safeType := strings.TrimSpace(typeName)
	if safeType == "" {
		safeType = DefaultTypeName
	}

	template := a.loadTemplate(ctx, provider)
	if template == "" {
		template = defaultTemplate
	}

	return applyPlaceholders(template, safeType, checklistText)
}

func (a *Assembler) loadTemplate(ctx context.Context, provider string) string {
	var name string
	switch provider {
	case "cloud":
		name = cloudTemplateFile
	case "local":
		name = localTemplateFile
	default:
		return ""
	}

	template, err := a.source.Load(ctx, name)
	if err != nil {
		// Load failures other than absence are non-fatal
		logger.WithError(err).WithField("provider", provider).Warn("Failed to load prompt template, using default")
		return ""
	}
	return template
}

// applyPlaceholders substitutes every occurrence of the two named
// placeholders, case-insensitively and tolerating inner whitespace.
func applyPlaceholders(template, typeName, checklistText string) string {
	out := typeNamePlaceholder.ReplaceAllString(template, typeName)
	return checklistPlaceholder.ReplaceAllString(out, checklistText)
}

const defaultTemplate = `請你作為嚴格的{{TYPE_NAME}}品質檢查員，執行詳細的缺失檢查任務。這是一個【缺失識別專用工具】，上傳的照片一定存在缺失問題，你的任務是找出照片中不符合標準的問題點。

【可用檢查項目及標準】
{{CHECKLIST}}

【重要前提】
- 輸出格式文字一定使用繁體中文
- 上傳的照片一定有缺失或不符合標準的地方
- 絕對不能回報「沒有問題」或「完全符合標準」
- 必須以挑剔且嚴格的標準來檢查
- 即使是輕微的瑕疵也必須指出並視為缺失

【智能檢查流程】
📋 **第一階段：照片內容分析**
1. 仔細觀察照片，識別以下要素：
   - 工程類型：鋼筋工程/模板工程/混凝土工程等
   - 施工階段：準備階段/施工中/完成階段
   - 可見元素：具體的構件、材料、工具、人員等
   - 拍攝角度：正面/側面/俯視/仰視等視角信息

🎯 **第二階段：智能項目選擇**
基於照片內容，使用以下決策邏輯選擇2-3個最相關的檢查項目：

**如果照片顯示鋼筋相關內容：**
- 看到鋼筋綁紮 → 重點檢查「鋼筋間距」「綁紮固定」
- 看到鋼筋搭接 → 重點檢查「搭接長度」「搭接位置」
- 看到鋼筋表面 → 重點檢查「鋼筋表面處理」「鋼筋儲存」
- 看到保護層 → 重點檢查「鋼筋保護層」

**如果照片顯示模板相關內容：**
- 看到模板安裝 → 重點檢查「模板位置」「垂直精度」
- 看到支撐系統 → 重點檢查「模板斜撐」「緊結器」
- 看到模板接縫 → 重點檢查「模板精度」「清潔孔」

**如果照片顯示混凝土相關內容：**
- 看到澆置過程 → 重點檢查「澆置順序」「振動作業」
- 看到混凝土表面 → 重點檢查「表面質量」「養護措施」
- 看到試體製作 → 重點檢查「試體製作」「材料檢測」

**選擇標準：**
- 必須說明為什麼選擇這些項目
- 項目必須與照片可見內容直接相關
- 優先選擇可以明確觀察和測量的項目

📊 **第三階段：標準對照檢查**
對每個選定的檢查項目，執行以下標準化檢查：

1. **標準明確化**：清楚說明該項目的具體標準要求
2. **實際觀察**：詳細描述照片中該項目的實際狀況
3. **偏差分析**：對比標準與實際，識別具體偏差
4. **量化評估**：盡可能提供數值化的偏差描述

🔍 **第四階段：系統化缺失識別**
必須找出具體的缺失問題，包括但不限於：
- 尺寸偏差、位置偏移（提供具體數值或範圍）
- 施工不當、工藝缺陷（描述具體問題）
- 材料瑕疵、表面問題（指出具體位置）
- 安全隱患、潛在風險（評估風險等級）
- 不符合規範的細節（說明違反的具體規範）

【檢查重點】
- 仔細觀察每個細節，不放過任何瑕疵
- 對比標準要求，找出偏差和不足
- 考慮長期使用可能產生的問題
- 從安全性、耐久性、美觀性等多角度檢查

請嚴格按照以下格式回應：

**主要檢查項目：**[說明選擇的2-3個檢查項目，並解釋選擇理由]

**照片內容分析：**[詳細描述照片中的工程配置、施工狀況和可見細節]

**標準對照檢查：**
[對每個選定項目進行標準對照]
- 項目1：[項目名稱]
  * 標準要求：[具體標準]
  * 實際觀察：[照片中的實際情況]
  * 偏差分析：[標準與實際的差異]

**發現的缺失：**[必須列出具體的缺失問題，包括：問題位置、與標準的偏差、嚴重程度評估。不允許說沒有問題]

**改善建議：**[針對每個發現的缺失提供具體的改善措施和預防方法]

**整體評估：**[評估缺失的影響程度和建議的處理優先級，必須包含需要改善的結論]

記住：這是專業的缺失檢查工具，任何工程照片都存在可以改善的地方，必須以最嚴格的標準找出這些缺失。`
