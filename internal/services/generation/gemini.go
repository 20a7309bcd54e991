package generation

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/interfaces"
	"github.com/ternarybob/genero/internal/models"
	"google.golang.org/genai"
)

// GeminiProvider generates text and image content through the Google Gemini API
type GeminiProvider struct {
	name       string
	model      string
	imageModel string
	client     *genai.Client
	logger     arbor.ILogger
}

// DefaultGeminiImageModel is used for image requests when the descriptor
// only names a text model
const DefaultGeminiImageModel = "imagen-3.0-generate-002"

// NewGeminiProvider creates a Gemini-backed provider from its descriptor
func NewGeminiProvider(ctx context.Context, desc *models.ProviderDescriptor, logger arbor.ILogger) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  desc.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		name:       desc.Name,
		model:      desc.Model,
		imageModel: DefaultGeminiImageModel,
		client:     client,
		logger:     logger,
	}, nil
}

// Name returns the registry name
func (p *GeminiProvider) Name() string {
	return p.name
}

// Generate dispatches to text or image generation based on the request type
func (p *GeminiProvider) Generate(ctx context.Context, req *models.GenerationRequest) ([]models.GeneratedAsset, string, error) {
	if req.Type == models.CapabilityImage {
		return p.generateImages(ctx, req)
	}
	return p.generateText(ctx, req)
}

func (p *GeminiProvider) generateText(ctx context.Context, req *models.GenerationRequest) ([]models.GeneratedAsset, string, error) {
	model := req.Params.Model
	if model == "" {
		model = p.model
	}

	config := &genai.GenerateContentConfig{}
	if sys := systemInstruction(req.Params); sys != "" {
		config.SystemInstruction = genai.NewContentFromText(sys, genai.RoleUser)
	}

	if req.OnProgress != nil {
		req.OnProgress(10)
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), config)
	if err != nil {
		return nil, "", fmt.Errorf("gemini API call failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, "", fmt.Errorf("empty response from Gemini API")
	}

	text := resp.Text()
	if text == "" {
		return nil, "", fmt.Errorf("empty text in Gemini response")
	}

	if req.OnProgress != nil {
		req.OnProgress(90)
	}

	asset := models.NewGeneratedAsset(models.CapabilityText, "text/plain", req.Prompt, []byte(text))
	return []models.GeneratedAsset{*asset}, model, nil
}

func (p *GeminiProvider) generateImages(ctx context.Context, req *models.GenerationRequest) ([]models.GeneratedAsset, string, error) {
	model := req.Params.Model
	if model == "" {
		model = p.imageModel
	}

	count := req.Params.Iterations
	if count <= 0 {
		count = 1
	}

	config := &genai.GenerateImagesConfig{
		NumberOfImages: int32(count),
	}
	if req.Params.AspectRatio != "" {
		config.AspectRatio = req.Params.AspectRatio
	}

	if req.OnProgress != nil {
		req.OnProgress(10)
	}

	resp, err := p.client.Models.GenerateImages(ctx, model, req.Prompt, config)
	if err != nil {
		return nil, "", fmt.Errorf("gemini image API call failed: %w", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, "", fmt.Errorf("no images in Gemini response")
	}

	assets := make([]models.GeneratedAsset, 0, len(resp.GeneratedImages))
	for _, img := range resp.GeneratedImages {
		if img.Image == nil || len(img.Image.ImageBytes) == 0 {
			continue
		}
		asset := models.NewGeneratedAsset(models.CapabilityImage, "image/png", req.Prompt, img.Image.ImageBytes)
		assets = append(assets, *asset)
	}
	if len(assets) == 0 {
		return nil, "", fmt.Errorf("no image bytes in Gemini response")
	}

	if req.OnProgress != nil {
		req.OnProgress(90)
	}

	return assets, model, nil
}

// Probe verifies credentials and reachability with a token-count call
func (p *GeminiProvider) Probe(ctx context.Context) error {
	_, err := p.client.Models.CountTokens(ctx, p.model, genai.Text("ping"), nil)
	if err != nil {
		return fmt.Errorf("gemini probe failed: %w", err)
	}
	return nil
}

var _ interfaces.Provider = (*GeminiProvider)(nil)
