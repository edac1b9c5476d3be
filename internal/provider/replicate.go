package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.replicate.com/v1"

// ReplicateClient creates a prediction for a hosted model and polls it
// to a terminal state.
type ReplicateClient struct {
	httpClient *http.Client
	token      string
	baseURL    string
}

func NewReplicateClient(token string) *ReplicateClient {
	return &ReplicateClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      token,
		baseURL:    defaultBaseURL,
	}
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

// Run creates a prediction and polls until it succeeds or fails. The
// caller bounds total duration through ctx.
func (c *ReplicateClient) Run(ctx context.Context, model string, input map[string]interface{}) (string, error) {
	p, err := c.createPrediction(ctx, model, input)
	if err != nil {
		return "", err
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		switch p.Status {
		case "succeeded":
			return parseOutput(p.Output)
		case "failed", "canceled":
			if p.Error != "" {
				return "", fmt.Errorf("replicate: prediction %s %s: %s", p.ID, p.Status, p.Error)
			}
			return "", fmt.Errorf("replicate: prediction %s %s", p.ID, p.Status)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		p, err = c.getPrediction(ctx, p.ID)
		if err != nil {
			return "", err
		}
	}
}

func (c *ReplicateClient) createPrediction(ctx context.Context, model string, input map[string]interface{}) (*prediction, error) {
	body, err := json.Marshal(map[string]interface{}{"input": input})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s/predictions", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req)
}

func (c *ReplicateClient) getPrediction(ctx context.Context, id string) (*prediction, error) {
	url := fmt.Sprintf("%s/predictions/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req)
}

func (c *ReplicateClient) do(req *http.Request) (*prediction, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("replicate: %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, data)
	}

	var p prediction
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("replicate: decode response: %w", err)
	}
	return &p, nil
}

// parseOutput handles both output shapes the models return: a single
// URL string or a list of URL strings.
func parseOutput(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0], nil
	}
	return "", fmt.Errorf("replicate: unexpected output shape: %s", raw)
}
