package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/interfaces"
	"github.com/ternarybob/genero/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultRelayTimeout is the HTTP timeout for relay calls
	DefaultRelayTimeout = 120 * time.Second

	// DefaultRelayRate paces requests to the relay (requests per second)
	DefaultRelayRate = 2
)

// RelayProvider talks to a self-hosted, OpenAI-compatible generation relay
// over HTTP. Used for on-prem model servers that front multiple local
// models behind one endpoint.
type RelayProvider struct {
	name       string
	model      string
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     arbor.ILogger
}

type relayChatRequest struct {
	Model       string             `json:"model,omitempty"`
	Messages    []relayChatMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Temperature float32            `json:"temperature,omitempty"`
	Stream      bool               `json:"stream"`
}

type relayChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type relayChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type relayImageRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
	N      int    `json:"n,omitempty"`
	Size   string `json:"size,omitempty"`
}

type relayImageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// NewRelayProvider creates a relay-backed provider from its descriptor
func NewRelayProvider(desc *models.ProviderDescriptor, logger arbor.ILogger) *RelayProvider {
	return &RelayProvider{
		name:     desc.Name,
		model:    desc.Model,
		endpoint: strings.TrimRight(desc.Endpoint, "/"),
		apiKey:   desc.APIKey,
		httpClient: &http.Client{
			Timeout: DefaultRelayTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRelayRate), DefaultRelayRate),
		logger:  logger,
	}
}

// Name returns the registry name
func (p *RelayProvider) Name() string {
	return p.name
}

// Generate performs one generation call against the relay
func (p *RelayProvider) Generate(ctx context.Context, req *models.GenerationRequest) ([]models.GeneratedAsset, string, error) {
	// Wait for rate limiter
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	if req.OnProgress != nil {
		req.OnProgress(10)
	}

	model := req.Params.Model
	if model == "" {
		model = p.model
	}

	var assets []models.GeneratedAsset
	var err error
	if req.Type == models.CapabilityImage {
		assets, err = p.generateImages(ctx, req, model)
	} else {
		assets, err = p.generateText(ctx, req, model)
	}
	if err != nil {
		return nil, "", err
	}

	if req.OnProgress != nil {
		req.OnProgress(90)
	}

	return assets, model, nil
}

func (p *RelayProvider) generateText(ctx context.Context, req *models.GenerationRequest, model string) ([]models.GeneratedAsset, error) {
	body := relayChatRequest{
		Model:     model,
		MaxTokens: req.Params.MaxTokens,
		Stream:    false,
	}
	if sys := systemInstruction(req.Params); sys != "" {
		body.Messages = append(body.Messages, relayChatMessage{Role: "system", Content: sys})
	}
	body.Messages = append(body.Messages, relayChatMessage{Role: "user", Content: req.Prompt})

	var resp relayChatResponse
	if err := p.post(ctx, "/v1/chat/completions", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("empty response from relay")
	}

	asset := models.NewGeneratedAsset(models.CapabilityText, "text/plain", req.Prompt, []byte(resp.Choices[0].Message.Content))
	return []models.GeneratedAsset{*asset}, nil
}

func (p *RelayProvider) generateImages(ctx context.Context, req *models.GenerationRequest, model string) ([]models.GeneratedAsset, error) {
	count := req.Params.Iterations
	if count <= 0 {
		count = 1
	}

	body := relayImageRequest{
		Model:  model,
		Prompt: req.Prompt,
		N:      count,
		Size:   req.Params.AspectRatio,
	}

	var resp relayImageResponse
	if err := p.post(ctx, "/v1/images/generations", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no images in relay response")
	}

	assets := make([]models.GeneratedAsset, 0, len(resp.Data))
	for _, d := range resp.Data {
		raw, err := base64.StdEncoding.DecodeString(d.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode relay image payload: %w", err)
		}
		asset := models.NewGeneratedAsset(models.CapabilityImage, "image/png", req.Prompt, raw)
		assets = append(assets, *asset)
	}
	return assets, nil
}

// Probe checks the relay's health endpoint
func (p *RelayProvider) Probe(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("relay unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay health returned status %d", resp.StatusCode)
	}
	return nil
}

func (p *RelayProvider) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal relay request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read relay response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode relay response: %w", err)
	}
	return nil
}

var _ interfaces.Provider = (*RelayProvider)(nil)
