package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const clarifaiEndpoint = "https://api.clarifai.com/v2/models/food-item-recognition/outputs"

// ClarifaiProvider recognizes food via the Clarifai food model. Secondary
// provider in the photo chain.
type ClarifaiProvider struct {
	apiKey string
	client *http.Client
}

func NewClarifaiProvider(apiKey string) *ClarifaiProvider {
	return &ClarifaiProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *ClarifaiProvider) Name() string { return "clarifai" }

type clarifaiResponse struct {
	Outputs []struct {
		Data struct {
			Concepts []struct {
				Name  string  `json:"name"`
				Value float64 `json:"value"`
			} `json:"concepts"`
		} `json:"data"`
	} `json:"outputs"`
}

func (c *ClarifaiProvider) Try(ctx context.Context, img ImageRef) ([]Detection, error) {
	if c.apiKey == "" {
		return nil, errors.New("clarifai API key not configured")
	}
	if img.URL == "" {
		return nil, errors.New("image URL not available")
	}

	payload := map[string]any{
		"inputs": []map[string]any{
			{"data": map[string]any{"image": map[string]string{"url": img.URL}}},
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal clarifai payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, clarifaiEndpoint, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to create clarifai request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call clarifai: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read clarifai response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("clarifai API error %d: %s", resp.StatusCode, string(body))
	}

	var cr clarifaiResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("failed to parse clarifai JSON: %w", err)
	}
	if len(cr.Outputs) == 0 {
		return nil, nil
	}

	concepts := cr.Outputs[0].Data.Concepts
	if len(concepts) > 5 {
		concepts = concepts[:5]
	}
	dets := make([]Detection, 0, len(concepts))
	for _, con := range concepts {
		dets = append(dets, Detection{Label: con.Name, Confidence: con.Value})
	}
	return dets, nil
}
