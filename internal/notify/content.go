package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ContentConfig holds configuration for the external content-generation
// service used to draft notification text from alert context.
type ContentConfig struct {
	URL    string
	APIKey string
	Model  string
}

// Validate validates the content-generation configuration.
func (c *ContentConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("content service URL is required")
	}
	return nil
}

// ContentGenerator drafts notification text via an external HTTP service.
type ContentGenerator struct {
	config ContentConfig
	client *http.Client
}

// NewContentGenerator creates a new content generator.
func NewContentGenerator(config ContentConfig) (*ContentGenerator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid content config: %w", err)
	}
	return &ContentGenerator{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Generate produces notification text from the given alert context.
func (g *ContentGenerator) Generate(ctx context.Context, alertContext string) (string, error) {
	if alertContext == "" {
		return "", fmt.Errorf("alert context is required")
	}

	payload, err := json.Marshal(map[string]string{
		"context": alertContext,
		"model":   g.config.Model,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode content request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.URL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build content request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.config.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("content service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read content response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("content service returned %d", resp.StatusCode)
	}

	var out struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode content response: %w", err)
	}
	if out.Content == "" {
		return "", fmt.Errorf("content service returned empty content")
	}
	return out.Content, nil
}
