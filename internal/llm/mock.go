package llm

import (
	"context"

	"pantry-planner/internal/shared"
)

// MockAnswer is the canned reply of MockGenerator.
const MockAnswer = "Here’s a quick idea: pan-sear chicken with garlic, toss with rice, peas, and lemon. 15 minutes."

// MockGenerator answers every prompt with MockAnswer without calling a model.
type MockGenerator struct{}

func (MockGenerator) GenerateContent(context.Context, string) (ContentResponse, error) {
	return ContentResponse{Content: MockAnswer, Usage: shared.TokenUsage{Model: "mock"}}, nil
}
