package llm

import (
	"context"
	"fmt"
	"strings"

	"memoria/internal/config"
)

// Client is the reasoning collaborator. CompleteJSON sends a prompt with the
// provider's JSON output mode enabled and returns the raw model text; callers
// unmarshal it into their expected schema and must treat non-conforming
// output as a failure, never as a best-effort fallback.
type Client interface {
	CompleteJSON(ctx context.Context, prompt string) (string, error)
}

// NewClient is a factory that builds the configured reasoning provider.
func NewClient(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg.OpenAI.Model, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	case "gemini":
		return NewGemini(ctx, cfg.Gemini.Model, cfg.Gemini.APIKey)
	case "ollama":
		return NewOllama(cfg.Ollama.Model, cfg.Ollama.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// ExtractJSON trims markdown code fences and any prose surrounding the first
// JSON value in s. Models in JSON mode occasionally still wrap their answer
// in ```json fences; the JSON itself is untouched.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	objStart := strings.IndexAny(s, "{[")
	if objStart < 0 {
		return s
	}
	var objEnd int
	if s[objStart] == '{' {
		objEnd = strings.LastIndex(s, "}")
	} else {
		objEnd = strings.LastIndex(s, "]")
	}
	if objEnd <= objStart {
		return s
	}
	return s[objStart : objEnd+1]
}
