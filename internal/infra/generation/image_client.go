// Package generation contains the HTTP clients for the external content
// generation services. Both APIs are plain JSON-over-HTTP; failures surface
// as errors and are never retried here.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"virtual_persona_bot/internal/domain/generation"
)

const defaultImageModel = "gemini-3-pro-image-preview"

type imageAPIRequest struct {
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Category    string `json:"category,omitempty"`
}

type imageAPIResponse struct {
	Images []struct {
		ImageURL string `json:"image_url"`
	} `json:"images"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ImageClient calls the image generation service.
type ImageClient struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewImageClient(apiURL, apiKey string) *ImageClient {
	return &ImageClient{
		apiURL:     apiURL,
		apiKey:     apiKey,
		model:      defaultImageModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// GenerateImage requests one image artifact and returns its URL.
func (c *ImageClient) GenerateImage(ctx context.Context, req generation.ImageRequest) (string, error) {
	reqBody := imageAPIRequest{
		Model:       c.model,
		Prompt:      req.Prompt,
		AspectRatio: "1:1",
		Category:    req.Category,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal image request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create image request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call image API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read image API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image API request failed with status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var apiResp imageAPIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse image API response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("image API error: %s - %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Images) == 0 || apiResp.Images[0].ImageURL == "" {
		return "", fmt.Errorf("no image URL in generation result")
	}

	return apiResp.Images[0].ImageURL, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
