package llm

import (
	"context"
	"fmt"

	"pantry-planner/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// APIError is a non-success answer from a model provider.
type APIError struct {
	Provider string
	Status   int
	Code     string
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error: status=%d code=%s message=%s", e.Provider, e.Status, e.Code, e.Message)
}
