package container

import (
	"fmt"
	"net/http"

	"go-inspection-gateway/internal/config"
	"go-inspection-gateway/internal/imaging"
	"go-inspection-gateway/internal/inspection"
	"go-inspection-gateway/internal/prompt"
	"go-inspection-gateway/internal/provider"
	"go-inspection-gateway/internal/storage"
	"go-inspection-gateway/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config      *config.Config
	conditioner *imaging.Conditioner
	pool        *imaging.Pool
	assembler   *prompt.Assembler
	cloud       *provider.Anthropic
	local       *provider.Ollama
	store       *inspection.Store
	handler     http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	conditioner := imaging.NewConditioner(cfg.ImageQuality)
	pool := imaging.NewPool(0) // Use default CPU count
	pool.Start()

	templates, err := newTemplateSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize template source: %w", err)
	}
	assembler := prompt.NewAssembler(templates)

	cloud := provider.NewAnthropic(cfg.AnthropicBaseURL, cfg.AnthropicModel, cfg.MaxCloudImageWidth, conditioner, pool)
	local := provider.NewOllama(cfg.OllamaBaseURL, cfg.LocalModel, cfg.LocalChecklistModel, cfg.MaxLocalImageWidth, conditioner)

	cache := inspection.NewCache(cfg.CacheTTL)
	store := inspection.NewStore(cfg.InspectionTypesFile, cache)

	handler := transport.NewHandler(cfg, assembler, cloud, local, store)

	return &Container{
		config:      cfg,
		conditioner: conditioner,
		pool:        pool,
		assembler:   assembler,
		cloud:       cloud,
		local:       local,
		store:       store,
		handler:     handler,
	}, nil
}

func newTemplateSource(cfg *config.Config) (storage.TemplateSource, error) {
	if cfg.UseAzureTemplates() {
		return storage.NewAzureTemplateSource(cfg.AzureStorageAccount, cfg.AzureStorageKey, cfg.PromptContainer)
	}
	return storage.NewFileTemplateSource(cfg.PromptsDir), nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases background resources
func (c *Container) Close() {
	c.pool.Close()
}
