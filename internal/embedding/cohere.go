package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"vision-rag/internal/config"
	"vision-rag/internal/models"
)

const defaultCohereURL = "https://api.cohere.com"

// CohereClient calls the Cohere v2 embed endpoint for both question text and
// page images, so queries and indexed pages share one vector space.
type CohereClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type cohereEmbedRequest struct {
	Model          string   `json:"model"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
	Texts          []string `json:"texts,omitempty"`
	Images         []string `json:"images,omitempty"`
}

type cohereEmbedResponse struct {
	Embeddings struct {
		Float [][]float32 `json:"float"`
	} `json:"embeddings"`
	Message string `json:"message,omitempty"`
}

func NewCohereClient(cfg *config.LLMConfig) (*CohereClient, error) {
	key := cfg.Key()
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultCohereURL
	}
	model := cfg.Model
	if model == "" {
		model = "embed-v4.0"
	}
	return &CohereClient{
		baseURL: base,
		apiKey:  key,
		model:   model,
		client:  newHTTPClient(cfg.TimeoutSecs),
	}, nil
}

// EmbedQuery embeds text with the search_query input type.
func (c *CohereClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, cohereEmbedRequest{
		Model:          c.model,
		InputType:      models.SearchQueryInput,
		EmbeddingTypes: []string{"float"},
		Texts:          []string{text},
	})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("cohere embed returned %d vectors for 1 text", len(vectors))
	}
	return vectors[0], nil
}

// EmbedImages embeds each image separately; the endpoint accepts one image per call.
func (c *CohereClient) EmbedImages(ctx context.Context, dataURIs []string) ([][]float32, error) {
	out := make([][]float32, 0, len(dataURIs))
	for i, uri := range dataURIs {
		vectors, err := c.embed(ctx, cohereEmbedRequest{
			Model:          c.model,
			InputType:      models.ImageInput,
			EmbeddingTypes: []string{"float"},
			Images:         []string{uri},
		})
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		if len(vectors) != 1 {
			return nil, fmt.Errorf("image %d: cohere embed returned %d vectors", i, len(vectors))
		}
		out = append(out, vectors[0])
	}
	return out, nil
}

func (c *CohereClient) embed(ctx context.Context, body cohereEmbedRequest) ([][]float32, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/embed", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cohere embed request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var out cohereEmbedResponse
	if resp.StatusCode >= 300 {
		if json.Unmarshal(payload, &out) == nil && out.Message != "" {
			return nil, fmt.Errorf("cohere embed failed: %s: %s", resp.Status, out.Message)
		}
		return nil, fmt.Errorf("cohere embed failed: %s", resp.Status)
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("failed to decode cohere response: %w", err)
	}
	if len(out.Embeddings.Float) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return out.Embeddings.Float, nil
}
