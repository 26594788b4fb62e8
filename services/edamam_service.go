package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"backend/models"
)

// EdamamService queries the Edamam food database. It is the external tier of
// the nutrition resolver and backs the manual food search endpoint.
type EdamamService struct {
	appID  string
	appKey string
	client *http.Client
}

func NewEdamamService(appID, appKey string) *EdamamService {
	return &EdamamService{
		appID:  appID,
		appKey: appKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// FoodHit is one match from the Edamam parser endpoint.
type FoodHit struct {
	FoodID   string        `json:"food_id"`
	Label    string        `json:"label"`
	Category string        `json:"category"`
	Macros   models.Macros `json:"macros"`
}

type foodParserResponse struct {
	Hints []struct {
		Food struct {
			FoodID    string `json:"foodId"`
			Label     string `json:"label"`
			Category  string `json:"category"`
			Nutrients struct {
				Energy  float64 `json:"ENERC_KCAL"`
				Protein float64 `json:"PROCNT"`
				Fat     float64 `json:"FAT"`
				Carbs   float64 `json:"CHOCDF"`
			} `json:"nutrients"`
		} `json:"food"`
	} `json:"hints"`
}

// SearchFoods calls the Edamam Food Database parser endpoint.
func (s *EdamamService) SearchFoods(ctx context.Context, query string) ([]FoodHit, error) {
	u := fmt.Sprintf(
		"https://api.edamam.com/api/food-database/v2/parser?ingr=%s&app_id=%s&app_key=%s",
		url.QueryEscape(query), s.appID, s.appKey,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Edamam request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Edamam parser: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Edamam parser response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("edamam parser API error %d: %s", resp.StatusCode, string(body))
	}

	var pr foodParserResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("failed to parse Edamam parser JSON: %w", err)
	}

	results := make([]FoodHit, 0, len(pr.Hints))
	for _, h := range pr.Hints {
		results = append(results, FoodHit{
			FoodID:   h.Food.FoodID,
			Label:    h.Food.Label,
			Category: h.Food.Category,
			Macros: models.Macros{
				Calories: h.Food.Nutrients.Energy,
				Protein:  h.Food.Nutrients.Protein,
				Carbs:    h.Food.Nutrients.Carbs,
				Fats:     h.Food.Nutrients.Fat,
			},
		})
	}
	return results, nil
}

// LookupMacros returns the macro profile of the best match for a free-text
// food name, or nil when Edamam has no match.
func (s *EdamamService) LookupMacros(ctx context.Context, name string) (*models.Macros, error) {
	hits, err := s.SearchFoods(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}
	m := hits[0].Macros
	return &m, nil
}
