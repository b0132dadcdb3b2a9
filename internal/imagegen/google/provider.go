// Package google implements the ImageProvider interface against the Gemini
// image-generation API.
package google

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sahityapandiri3/omnishop/internal/config"
	"github.com/sahityapandiri3/omnishop/pkg/models"
)

const maxResponseBytes = 32 << 20

// Provider calls the Gemini generateContent endpoint with the base image
// inlined and a textual description of the requested transform.
type Provider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewProvider(cfg config.GoogleConfig) *Provider {
	return &Provider{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		// No client-level timeout: the per-attempt deadline arrives on ctx.
		httpClient: &http.Client{},
	}
}

func (p *Provider) Name() string {
	return "google"
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) Generate(ctx context.Context, req models.GenerateRequest) ([]byte, error) {
	if len(req.BaseImage) == 0 {
		return nil, fmt.Errorf("%w: empty base image", models.ErrInvalidInput)
	}

	body, err := json.Marshal(generateContentRequest{
		Contents: []content{{
			Parts: []part{
				{Text: buildPrompt(req)},
				{InlineData: &inlineData{MimeType: "image/png", Data: base64.StdEncoding.EncodeToString(req.BaseImage)}},
			},
		}},
		GenerationConfig: generationConfig{ResponseModalities: []string{"IMAGE"}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL, p.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", models.ErrGenerationTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", models.ErrProviderUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidInput, apiErrorMessage(respBody))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d: %s", models.ErrProviderUnavailable, resp.StatusCode, apiErrorMessage(respBody))
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", models.ErrInvalidResponse, resp.StatusCode)
	}

	var parsed generateContentResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidResponse, err)
	}

	for _, cand := range parsed.Candidates {
		for _, pt := range cand.Content.Parts {
			if pt.InlineData == nil || pt.InlineData.Data == "" {
				continue
			}
			img, err := base64.StdEncoding.DecodeString(pt.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: decode image: %v", models.ErrInvalidResponse, err)
			}
			return img, nil
		}
	}

	return nil, fmt.Errorf("%w: no image in response", models.ErrInvalidResponse)
}

// buildPrompt renders the operation and product placements into the text part
// of the request. The model receives pixel-space coordinates relative to the
// base image along with scale and rotation for each product.
func buildPrompt(req models.GenerateRequest) string {
	var b strings.Builder
	b.WriteString("Edit the attached interior photo. Operation: ")
	b.WriteString(req.Operation)
	b.WriteString(".\n")
	if req.Instructions != "" {
		b.WriteString(req.Instructions)
		b.WriteString("\n")
	}
	for _, pr := range req.Products {
		fmt.Fprintf(&b, "Product %q (%s) at x=%.1f y=%.1f scale=%.2f rotation=%.1f degrees, layer %d.\n",
			pr.Name, pr.ImageURL, pr.Placement.X, pr.Placement.Y,
			pr.Placement.Scale, pr.Placement.RotationDegrees, pr.Placement.ZIndex)
	}
	b.WriteString("Render a photorealistic result that preserves the room's lighting and perspective. Return only the edited image.")
	return b.String()
}

func apiErrorMessage(body []byte) string {
	var parsed generateContentResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		return parsed.Error.Message
	}
	return string(body)
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ models.ImageProvider = (*Provider)(nil)
