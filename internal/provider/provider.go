// Package provider wraps the hosted generation models behind one small
// interface. The billing engine only cares that a call either returns a
// result URL or fails.
package provider

import "context"

type Provider interface {
	Generate(ctx context.Context, imageURL, prompt string) (string, error)
}

const (
	fluxModel  = "black-forest-labs/flux-kontext-pro"
	klingModel = "kwaivgi/kling-v1.6-pro"
)

// FluxProvider runs image style transfer.
type FluxProvider struct {
	client *ReplicateClient
}

func NewFluxProvider(client *ReplicateClient) *FluxProvider {
	return &FluxProvider{client: client}
}

func (p *FluxProvider) Generate(ctx context.Context, imageURL, prompt string) (string, error) {
	return p.client.Run(ctx, fluxModel, map[string]interface{}{
		"prompt":           prompt,
		"input_image":      imageURL,
		"aspect_ratio":     "match_input_image",
		"output_format":    "jpg",
		"safety_tolerance": 2,
	})
}

// KlingProvider animates a still image into a short video.
type KlingProvider struct {
	client *ReplicateClient
}

func NewKlingProvider(client *ReplicateClient) *KlingProvider {
	return &KlingProvider{client: client}
}

func (p *KlingProvider) Generate(ctx context.Context, imageURL, prompt string) (string, error) {
	return p.client.Run(ctx, klingModel, map[string]interface{}{
		"prompt":      prompt,
		"start_image": imageURL,
		"duration":    5,
		"cfg_scale":   0.5,
	})
}
