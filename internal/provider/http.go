package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/studioshot/platform/pkg/logger"
)

// HTTPClient is an ImageGenerator backed by a JSON-over-HTTP service. Images
// travel base64-encoded in request and response bodies.
type HTTPClient struct {
	client   *http.Client
	endpoint string
	apiKey   string
	log      *logger.Logger
}

// NewHTTPClient constructs a client for the given endpoint.
func NewHTTPClient(client *http.Client, endpoint, apiKey string, log *logger.Logger) (*HTTPClient, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("provider endpoint required")
	}
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("provider")
	}
	return &HTTPClient{
		client:   client,
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   strings.TrimSpace(apiKey),
		log:      log,
	}, nil
}

func (c *HTTPClient) RemoveBackground(ctx context.Context, image []byte) ([]byte, error) {
	payload := struct {
		Image string `json:"image"`
	}{Image: base64.StdEncoding.EncodeToString(image)}

	var result struct {
		Image string `json:"image"`
	}
	if err := c.post(ctx, "/v1/remove-background", payload, &result); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(result.Image)
	if err != nil {
		return nil, fmt.Errorf("decode background removal result: %w", err)
	}
	return data, nil
}

func (c *HTTPClient) GenerateHeadshots(ctx context.Context, req GenerateRequest) ([][]byte, error) {
	payload := struct {
		Composite  string `json:"composite"`
		Style      string `json:"style"`
		Background string `json:"background"`
		Clothing   string `json:"clothing"`
		Count      int    `json:"count"`
	}{
		Composite:  base64.StdEncoding.EncodeToString(req.Composite),
		Style:      req.Style,
		Background: req.Background,
		Clothing:   req.Clothing,
		Count:      req.Count,
	}

	var result struct {
		Images []string `json:"images"`
		Error  string   `json:"error"`
	}
	if err := c.post(ctx, "/v1/generate", payload, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("provider: %s", result.Error)
	}
	if len(result.Images) == 0 {
		return nil, fmt.Errorf("provider returned no images")
	}

	images := make([][]byte, 0, len(result.Images))
	for i, encoded := range result.Images {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode image %d: %w", i, err)
		}
		images = append(images, data)
	}
	return images, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode provider request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build provider request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		retry := parseRetryAfter(resp.Header.Get("Retry-After"))
		c.log.WithFields(map[string]interface{}{
			"path":   path,
			"status": resp.StatusCode,
		}).Warn("provider call will be retried")
		return &TransientError{Err: fmt.Errorf("provider status %d", resp.StatusCode), RetryAfter: retry}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
