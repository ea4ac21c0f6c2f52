package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"memoria/internal/llm"
	"memoria/internal/models"
)

// extractionPrompt instructs the model to isolate atomic facts worth
// remembering. The model answers with a JSON object holding a "facts" array
// of strings; an empty array means the input carried nothing memorable.
const extractionPrompt = `You are a personal information organizer. Extract the facts worth remembering from the input below.

Guidelines:
1. Extract personal characteristics, preferences, plans, goals, relationships, health details, and other actionable statements about the speaker.
2. Each fact must be a single, self-contained statement that is understandable without the original input.
3. Do not extract greetings, questions, filler, or anything with no factual content. If nothing qualifies, return an empty list.
4. Record facts in the same language as the input.
5. Do not invent facts that are not stated in the input.

Return your answer strictly as JSON in this format:
{"facts": ["fact 1", "fact 2"]}

Input:
%s`

// LLMExtractor is an Extractor backed by a reasoning model.
type LLMExtractor struct {
	llm llm.Client
}

// NewLLMExtractor creates a new LLMExtractor.
func NewLLMExtractor(client llm.Client) *LLMExtractor {
	return &LLMExtractor{llm: client}
}

// Extract asks the model for the atomic facts contained in text. A failure
// of the model, or output that does not conform to the fact-list schema, is
// reported as an ExtractionError.
func (e *LLMExtractor) Extract(ctx context.Context, text string) ([]models.Fact, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	raw, err := e.llm.CompleteJSON(ctx, fmt.Sprintf(extractionPrompt, text))
	if err != nil {
		return nil, &models.ExtractionError{Err: err}
	}

	facts, err := parseFacts(llm.ExtractJSON(raw))
	if err != nil {
		return nil, &models.ExtractionError{Err: err}
	}
	return facts, nil
}

// parseFacts decodes the model answer. The canonical shape is
// {"facts": [...]}; a bare JSON array of strings is accepted too, since some
// models flatten single-key objects.
func parseFacts(raw string) ([]models.Fact, error) {
	var wrapped struct {
		Facts []string `json:"facts"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil {
		return toFacts(wrapped.Facts), nil
	}

	var bare []string
	if err := json.Unmarshal([]byte(raw), &bare); err == nil {
		return toFacts(bare), nil
	}

	return nil, fmt.Errorf("model output is not a fact list: %q", raw)
}

func toFacts(items []string) []models.Fact {
	facts := make([]models.Fact, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		facts = append(facts, models.Fact(item))
	}
	return facts
}
