package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pantry-planner/internal/config"
	"pantry-planner/internal/shared"
)

const (
	groqAPIURL = "https://api.groq.com/openai/v1/chat/completions"
	groqModel  = "llama-3.3-70b-versatile"
)

// groqClient is a client for the Groq API.
type groqClient struct {
	apiKey       string
	url          string
	instructions string
	httpClient   *http.Client
}

// NewGroqClient creates a new Groq API client. instructions is sent as the
// system message of every request.
func NewGroqClient(cfg *config.Config, instructions string) TextGenerator {
	return newGroqClient(cfg.GroqAPIKey, groqAPIURL, instructions)
}

func newGroqClient(apiKey, url, instructions string) *groqClient {
	return &groqClient{
		apiKey:       apiKey,
		url:          url,
		instructions: instructions,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GenerateContent sends a prompt to the Groq model and returns the generated text.
func (c *groqClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	messages := []map[string]string{}
	if c.instructions != "" {
		messages = append(messages, map[string]string{"role": "system", "content": c.instructions})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})

	reqBody := map[string]interface{}{
		"model":       groqModel,
		"messages":    messages,
		"temperature": 0.7,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Provider: "groq", Status: resp.StatusCode, Message: string(bodyBytes)}

		var errBody struct {
			Error struct {
				Message string `json:"message"`
				Code    string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(bodyBytes, &errBody) == nil && errBody.Error.Message != "" {
			apiErr.Message = errBody.Error.Message
			apiErr.Code = errBody.Error.Code
		}
		return ContentResponse{}, apiErr
	}

	var groqResp struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&groqResp); err != nil {
		return ContentResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(groqResp.Choices) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	model := groqResp.Model
	if model == "" {
		model = groqModel
	}

	return ContentResponse{
		Content: groqResp.Choices[0].Message.Content,
		Usage: shared.TokenUsage{
			PromptTokens:     groqResp.Usage.PromptTokens,
			CompletionTokens: groqResp.Usage.CompletionTokens,
			TotalTokens:      groqResp.Usage.TotalTokens,
			Model:            model,
		},
	}, nil
}
