package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"memoria/internal/llm"
	"memoria/internal/models"
)

// resolutionPrompt instructs the model to reconcile new facts against the
// candidate memories. The model must answer with exactly one action per
// fact, in fact order, using only the listed memory ids for UPDATE and
// DELETE.
const resolutionPrompt = `You are a smart memory manager. You compare newly observed facts against a user's existing memories and decide, for each fact, exactly one of four operations:

- ADD: the fact contains new information not present in any existing memory. Leave "id" empty and put the fact in "text".
- UPDATE: the fact refines or supersedes one existing memory. Put that memory's id in "id", the merged up-to-date statement in "text", and the memory's previous content in "old_memory". When a fact both confirms part of a memory and adds detail, prefer UPDATE over ADD so the knowledge base keeps one memory per topic.
- DELETE: the fact contradicts or revokes one existing memory. Put that memory's id in "id".
- NONE: the fact is already fully captured by the existing memories. No change.

Rules:
1. Return exactly one action per fact, in the same order as the facts are listed.
2. "id" must be one of the existing memory ids below. Never invent an id.
3. Do not modify memories that no fact is about.

Existing memories:
%s

New facts:
%s

Return your answer strictly as JSON in this format:
{"memory": [{"event": "ADD|UPDATE|DELETE|NONE", "id": "", "text": "", "old_memory": ""}]}`

// resolver turns facts plus candidates into a validated action list.
type resolver struct {
	llm llm.Client
}

// resolve asks the model for one consolidation action per fact and enforces
// the structural invariants before anything touches storage: full coverage
// in fact order, known events, and UPDATE/DELETE ids drawn from the
// candidate set. Any violation discards the whole action set.
func (r *resolver) resolve(ctx context.Context, facts []models.Fact, candidates []*models.Memory) ([]models.ConsolidationAction, error) {
	prompt, err := buildResolutionPrompt(facts, candidates)
	if err != nil {
		return nil, &models.ConsolidationError{Reason: "build prompt", Err: err}
	}

	raw, err := r.llm.CompleteJSON(ctx, prompt)
	if err != nil {
		return nil, &models.ConsolidationError{Reason: "reasoning service failed", Err: err}
	}

	var parsed struct {
		Memory []models.ConsolidationAction `json:"memory"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &parsed); err != nil {
		return nil, &models.ConsolidationError{Reason: "non-conforming model output", Err: err}
	}

	if err := validateActions(parsed.Memory, facts, candidates); err != nil {
		return nil, err
	}
	return parsed.Memory, nil
}

func buildResolutionPrompt(facts []models.Fact, candidates []*models.Memory) (string, error) {
	type candidateView struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	views := make([]candidateView, 0, len(candidates))
	for _, c := range candidates {
		views = append(views, candidateView{ID: c.ID, Text: c.Content})
	}
	candidateJSON, err := json.Marshal(views)
	if err != nil {
		return "", err
	}

	factTexts := make([]string, 0, len(facts))
	for _, f := range facts {
		factTexts = append(factTexts, string(f))
	}
	factJSON, err := json.Marshal(factTexts)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(resolutionPrompt, candidateJSON, factJSON), nil
}

func validateActions(actions []models.ConsolidationAction, facts []models.Fact, candidates []*models.Memory) error {
	if len(actions) != len(facts) {
		return &models.ConsolidationError{
			Reason: fmt.Sprintf("expected %d actions (one per fact), got %d", len(facts), len(actions)),
		}
	}

	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.ID] = true
	}

	for i, action := range actions {
		switch action.Event {
		case models.ActionAdd:
			if strings.TrimSpace(action.Text) == "" {
				return &models.ConsolidationError{
					Reason: fmt.Sprintf("action %d: ADD with empty text", i),
				}
			}
		case models.ActionUpdate:
			if strings.TrimSpace(action.Text) == "" {
				return &models.ConsolidationError{
					Reason: fmt.Sprintf("action %d: UPDATE with empty text", i),
				}
			}
			if !known[action.ID] {
				return &models.ConsolidationError{
					Reason: fmt.Sprintf("action %d: UPDATE names unknown memory %q", i, action.ID),
				}
			}
		case models.ActionDelete:
			if !known[action.ID] {
				return &models.ConsolidationError{
					Reason: fmt.Sprintf("action %d: DELETE names unknown memory %q", i, action.ID),
				}
			}
		case models.ActionNone:
			// no-op, nothing to validate
		default:
			return &models.ConsolidationError{
				Reason: fmt.Sprintf("action %d: unknown event %q", i, action.Event),
			}
		}
	}
	return nil
}
