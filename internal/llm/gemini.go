package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini is a reasoning client backed by the Google GenAI API.
type Gemini struct {
	model *genai.GenerativeModel
}

// NewGemini creates a new Gemini client with JSON output enforced at the
// model level.
func NewGemini(ctx context.Context, model, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	generativeModel := client.GenerativeModel(model)
	generativeModel.ResponseMIMEType = "application/json"

	return &Gemini{model: generativeModel}, nil
}

// CompleteJSON sends the prompt and returns the concatenated text parts of
// the first candidate.
func (g *Gemini) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("candidate contained no text parts")
	}
	return sb.String(), nil
}
