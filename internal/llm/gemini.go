package llm

import (
	"context"
	"errors"
	"fmt"

	"pantry-planner/internal/config"
	"pantry-planner/internal/shared"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const geminiModel = "gemini-1.5-flash"

// GeminiClient is a client for the Google Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiClient creates a new Gemini API client. instructions becomes the
// model's system instruction.
func NewGeminiClient(ctx context.Context, cfg *config.Config, instructions string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := client.GenerativeModel(geminiModel)
	if instructions != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(instructions))
	}
	return &GeminiClient{client: client, model: model}, nil
}

// GenerateContent sends a prompt to the Gemini model and returns the generated text.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return ContentResponse{}, &APIError{Provider: "gemini", Status: gerr.Code, Message: gerr.Message}
		}
		return ContentResponse{}, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return ContentResponse{}, fmt.Errorf("generated content is not text")
	}

	usage := shared.TokenUsage{Model: geminiModel}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return ContentResponse{Content: string(text), Usage: usage}, nil
}

// Close closes the underlying Gemini client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}
