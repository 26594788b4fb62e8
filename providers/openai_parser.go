package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const parsePrompt = `You are a nutrition assistant. Parse meal descriptions into structured JSON.
Return format: {"foods": [{"name": "food name", "quantity": 1, "unit": "serving"}], "meal_type": "breakfast|lunch|dinner|snack"}
Extract all foods, quantities, and estimate the meal type based on context.`

// OpenAIParser parses meal descriptions with an OpenAI-compatible chat API.
// Primary parser in the voice chain.
type OpenAIParser struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewOpenAIParser(apiKey, baseURL, model string) *OpenAIParser {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	return &OpenAIParser{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *OpenAIParser) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type parsedMealJSON struct {
	Foods []struct {
		Name     string  `json:"name"`
		Quantity float64 `json:"quantity"`
		Unit     string  `json:"unit"`
	} `json:"foods"`
	MealType string `json:"meal_type"`
}

func (p *OpenAIParser) Try(ctx context.Context, utterance string) (ParsedMeal, error) {
	if p.apiKey == "" {
		return ParsedMeal{}, errors.New("LLM API key not configured")
	}

	reqBody := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: parsePrompt},
			{Role: "user", Content: utterance},
		},
		Temperature: 0.3,
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return ParsedMeal{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return ParsedMeal{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return ParsedMeal{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ParsedMeal{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ParsedMeal{}, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return ParsedMeal{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return ParsedMeal{}, errors.New("no response choices returned")
	}

	content := strings.TrimSpace(cr.Choices[0].Message.Content)
	var pm parsedMealJSON
	if err := json.Unmarshal([]byte(content), &pm); err != nil {
		return ParsedMeal{}, fmt.Errorf("model returned non-JSON content: %w", err)
	}

	meal := ParsedMeal{MealType: pm.MealType, Confidence: 0.8}
	for _, f := range pm.Foods {
		qty := f.Quantity
		if qty <= 0 {
			qty = 1
		}
		unit := f.Unit
		if unit == "" {
			unit = "serving"
		}
		meal.Foods = append(meal.Foods, ParsedFood{Name: f.Name, Quantity: qty, Unit: unit})
	}
	return meal, nil
}
