package models

import "time"

// Fact is an atomic, self-contained factual statement extracted from input
// text. Facts are ephemeral: they exist only for the duration of one
// Remember call and are never stored directly, only as the content of a
// Memory once a consolidation action materializes them.
type Fact string

// Memory is the durable unit of the knowledge base. A memory belongs to
// exactly one user; its ID is immutable once assigned and UpdatedAt is
// never earlier than CreatedAt.
type Memory struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Score is the similarity score attached by search operations.
	// It is zero outside of search results.
	Score float32 `json:"score,omitempty"`
}

// ActionEvent is the kind of a consolidation decision.
type ActionEvent string

const (
	ActionAdd    ActionEvent = "ADD"    // create a new memory from the fact
	ActionUpdate ActionEvent = "UPDATE" // replace an existing memory's content with the fact
	ActionDelete ActionEvent = "DELETE" // remove an existing memory contradicted by the fact
	ActionNone   ActionEvent = "NONE"   // the fact is already fully captured; no change
)

// ConsolidationAction is the resolver's decision for one input fact.
// ID names an existing memory and is required for UPDATE and DELETE.
type ConsolidationAction struct {
	Event     ActionEvent `json:"event"`
	ID        string      `json:"id,omitempty"`
	Text      string      `json:"text"`
	OldMemory string      `json:"old_memory,omitempty"`
}

// IngestEvent is the message consumed from the ingestion topic. Each event
// carries one utterance to be remembered for one user.
type IngestEvent struct {
	User       string    `json:"user"`
	Text       string    `json:"text"`
	CreateTime time.Time `json:"createTime,omitempty"`
}
