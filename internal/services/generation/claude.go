package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/interfaces"
	"github.com/ternarybob/genero/internal/models"
)

// DefaultClaudeMaxTokens caps response length when the request does not set one
const DefaultClaudeMaxTokens = 4096

// ClaudeProvider generates text content through the Anthropic Claude API
type ClaudeProvider struct {
	name   string
	model  string
	client anthropic.Client
	logger arbor.ILogger
}

// NewClaudeProvider creates a Claude-backed provider from its descriptor
func NewClaudeProvider(desc *models.ProviderDescriptor, logger arbor.ILogger) *ClaudeProvider {
	return &ClaudeProvider{
		name:   desc.Name,
		model:  desc.Model,
		client: anthropic.NewClient(option.WithAPIKey(desc.APIKey)),
		logger: logger,
	}
}

// Name returns the registry name
func (p *ClaudeProvider) Name() string {
	return p.name
}

// Generate performs one text generation call against the Claude API
func (p *ClaudeProvider) Generate(ctx context.Context, req *models.GenerationRequest) ([]models.GeneratedAsset, string, error) {
	if req.Type == models.CapabilityImage {
		return nil, "", fmt.Errorf("claude provider does not support image generation")
	}

	model := req.Params.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.Params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultClaudeMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}

	if sys := systemInstruction(req.Params); sys != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: sys},
		}
	}

	if req.OnProgress != nil {
		req.OnProgress(10)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, "", fmt.Errorf("claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, "", fmt.Errorf("empty response from Claude API")
	}

	if req.OnProgress != nil {
		req.OnProgress(90)
	}

	asset := models.NewGeneratedAsset(models.CapabilityText, "text/plain", req.Prompt, []byte(text.String()))
	return []models.GeneratedAsset{*asset}, model, nil
}

// Probe verifies credentials and reachability with a model listing call
func (p *ClaudeProvider) Probe(ctx context.Context) error {
	_, err := p.client.Models.List(ctx, anthropic.ModelListParams{
		Limit: anthropic.Int(1),
	})
	if err != nil {
		return fmt.Errorf("claude probe failed: %w", err)
	}
	return nil
}

// systemInstruction builds a system prompt from the parameter bag
func systemInstruction(params models.GenerationParams) string {
	var parts []string
	if params.Style != "" {
		parts = append(parts, fmt.Sprintf("Write in the following style: %s.", params.Style))
	}
	if params.Quality == "draft" {
		parts = append(parts, "Favor speed over polish; a rough draft is acceptable.")
	}
	return strings.Join(parts, " ")
}

var _ interfaces.Provider = (*ClaudeProvider)(nil)
