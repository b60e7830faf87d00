package provider

import "context"

// ImagePayload carries a base64 image across the API boundary. A data-URI
// prefix, if present, is stripped before any provider call.
type ImagePayload struct {
	Base64Data string `json:"base64Data"`
	MediaType  string `json:"mediaType,omitempty"`
}

// AnalysisRequest is a single analysis call against one provider.
type AnalysisRequest struct {
	APIKey string
	Prompt string
	Image  *ImagePayload
}

// AnalysisResult carries the provider's free-form analysis text plus the raw
// decoded reply for callers that need the original shape.
type AnalysisResult struct {
	Provider string
	Text     string
	Raw      interface{}
}

// ChecklistRequest asks a provider to read a photographed checklist document.
type ChecklistRequest struct {
	APIKey        string
	Image         ImagePayload
	ChecklistName string
	ModelOverride string
}

// ChecklistResult is the provider's reply before structured extraction: the
// label identifies the producing backend in generated descriptions.
type ChecklistResult struct {
	ProviderLabel string
	RawText       string
}

// Provider is one of the two vision backends. Both implementations share the
// conditioning, extraction and normalization pipeline stages; only the wire
// envelopes differ.
type Provider interface {
	Name() string
	Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error)
	ParseChecklist(ctx context.Context, req ChecklistRequest) (*ChecklistResult, error)
}
