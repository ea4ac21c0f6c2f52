package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"memoria/internal/config"
	"memoria/internal/memory/history"
	"memoria/internal/models"
	"memoria/pkg/logger"
)

// --- fakes ---

type fakeExtractor struct {
	facts map[string][]models.Fact
	err   error
}

func (f *fakeExtractor) Extract(ctx context.Context, text string) ([]models.Fact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.facts[text], nil
}

// fakeEmbedder returns pre-registered vectors per text. Unregistered texts
// get a default unit vector so point operations don't need registration.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   int
	err     error
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: make(map[string][]float32)}
}

func (f *fakeEmbedder) set(text string, vector []float32) {
	f.vectors[text] = vector
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// fakeLLM answers scripted responses in order and captures the prompts it
// was given.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
	err       error
}

func (f *fakeLLM) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("fakeLLM: no scripted response left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

// fakeStore is an in-memory Store with real cosine ranking, so tests steer
// candidate retrieval by choosing the vectors they register on the embedder.
type fakeStore struct {
	mu        sync.Mutex
	memories  map[string]*models.Memory
	writes    int
	failAfter int // fail Upsert once writes reaches this count; 0 disables

	// inPipeline tracks concurrent Search..Upsert windows for the
	// serialization test.
	inPipeline    int32
	maxInPipeline int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{memories: make(map[string]*models.Memory), failAfter: -1}
}

func (f *fakeStore) Upsert(ctx context.Context, mem *models.Memory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAfter >= 0 && f.writes >= f.failAfter {
		return errors.New("storage unavailable")
	}
	f.writes++
	cp := *mem
	cp.Embedding = append([]float32(nil), mem.Embedding...)
	f.memories[mem.ID] = &cp
	return nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*models.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mem, ok := f.memories[id]
	if !ok {
		return nil, nil
	}
	cp := *mem
	return &cp, nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	delete(f.memories, id)
	return nil
}

func (f *fakeStore) DeleteByUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, mem := range f.memories {
		if mem.UserID == userID {
			delete(f.memories, id)
		}
	}
	return nil
}

func (f *fakeStore) Search(ctx context.Context, userID string, vector []float32, limit int, minScore float32) ([]*models.Memory, error) {
	cur := atomic.AddInt32(&f.inPipeline, 1)
	for {
		max := atomic.LoadInt32(&f.maxInPipeline)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxInPipeline, max, cur) {
			break
		}
	}
	defer atomic.AddInt32(&f.inPipeline, -1)
	time.Sleep(time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	var hits []*models.Memory
	for _, mem := range f.memories {
		if mem.UserID != userID {
			continue
		}
		score := cosine(vector, mem.Embedding)
		if score < minScore {
			continue
		}
		cp := *mem
		cp.Score = score
		hits = append(hits, &cp)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeStore) ListByTimeRange(ctx context.Context, userID string, start, end time.Time, limit int) ([]*models.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Memory
	for _, mem := range f.memories {
		if mem.UserID != userID || mem.CreatedAt.Before(start) || mem.CreatedAt.After(end) {
			continue
		}
		cp := *mem
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []*history.Entry
	err     error
}

func (f *fakeHistory) Record(ctx context.Context, entry *history.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeHistory) ListByMemory(ctx context.Context, memoryID string) ([]*history.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*history.Entry
	for _, e := range f.entries {
		if e.MemoryID == memoryID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeHistory) ListByUser(ctx context.Context, userID string, limit int) ([]*history.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*history.Entry
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// --- harness ---

type harness struct {
	engine    *Engine
	extractor *fakeExtractor
	embedder  *fakeEmbedder
	llm       *fakeLLM
	store     *fakeStore
	history   *fakeHistory
}

func newHarness() *harness {
	h := &harness{
		extractor: &fakeExtractor{facts: make(map[string][]models.Fact)},
		embedder:  newFakeEmbedder(),
		llm:       &fakeLLM{},
		store:     newFakeStore(),
		history:   &fakeHistory{},
	}
	h.engine = NewEngine(
		h.extractor,
		h.embedder,
		h.llm,
		h.store,
		h.history,
		logger.New("test", "", ""),
		config.ConsolidationConfig{TopK: 5, MinScore: 0.5, MaxConcurrentEmbeds: 4},
	)
	return h
}

// seed inserts an existing memory directly into the store.
func (h *harness) seed(id, userID, content string, vector []float32, createdAt time.Time) {
	h.store.memories[id] = &models.Memory{
		ID:        id,
		UserID:    userID,
		Content:   content,
		Embedding: vector,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func actionsJSON(actions ...string) string {
	return fmt.Sprintf(`{"memory": [%s]}`, strings.Join(actions, ","))
}

// --- tests ---

func TestRememberAddsNewMemories(t *testing.T) {
	h := newHarness()
	h.extractor.facts["input"] = []models.Fact{"Name is John", "Works as an engineer"}
	h.embedder.set("Name is John", []float32{1, 0, 0})
	h.embedder.set("Works as an engineer", []float32{0, 1, 0})
	h.llm.responses = []string{actionsJSON(
		`{"event": "ADD", "text": "Name is John"}`,
		`{"event": "ADD", "text": "Works as an engineer"}`,
	)}

	actions, err := h.engine.Remember(context.Background(), "alice", "input")
	if err != nil {
		t.Fatalf("Remember failed: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}
	if len(h.store.memories) != 2 {
		t.Fatalf("expected 2 stored memories, got %d", len(h.store.memories))
	}
	for _, mem := range h.store.memories {
		if mem.UserID != "alice" {
			t.Errorf("memory %s has user %q, want alice", mem.ID, mem.UserID)
		}
		if !mem.CreatedAt.Equal(mem.UpdatedAt) {
			t.Errorf("new memory %s has CreatedAt != UpdatedAt", mem.ID)
		}
		if len(mem.Embedding) == 0 {
			t.Errorf("memory %s stored without embedding", mem.ID)
		}
	}
	if len(h.history.entries) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(h.history.entries))
	}
}

func TestRememberNoFactsIsNoOp(t *testing.T) {
	h := newHarness()
	h.extractor.facts["smalltalk"] = nil
	h.llm.err = errors.New("resolver must not be called")

	actions, err := h.engine.Remember(context.Background(), "alice", "smalltalk")
	if err != nil {
		t.Fatalf("Remember failed: %v", err)
	}
	if len(actions) != 0 {
		t.Errorf("expected no actions, got %v", actions)
	}
	if len(h.store.memories) != 0 || h.store.writes != 0 {
		t.Errorf("store was mutated on a no-op input")
	}
	if h.embedder.calls != 0 {
		t.Errorf("embedder was called on a no-op input")
	}
}

func TestRememberExtractionFailureAborts(t *testing.T) {
	h := newHarness()
	h.extractor.err = &models.ExtractionError{Err: errors.New("model down")}

	_, err := h.engine.Remember(context.Background(), "alice", "input")
	var extErr *models.ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if h.store.writes != 0 {
		t.Errorf("store was mutated after extraction failure")
	}
}

func TestRememberUpdateMergesMemory(t *testing.T) {
	h := newHarness()
	createdAt := time.Now().Add(-24 * time.Hour).Truncate(time.Millisecond)
	h.seed("mem-1", "alice", "Has 3 years of experience as a UX designer", []float32{1, 0.1, 0}, createdAt)

	fact := "Has 5 years of experience as a UX designer and uses Figma"
	h.extractor.facts["input"] = []models.Fact{models.Fact(fact)}
	h.embedder.set(fact, []float32{1, 0, 0})
	h.llm.responses = []string{actionsJSON(
		`{"event": "UPDATE", "id": "mem-1", "text": "Has 5 years of experience as a UX designer and uses Figma", "old_memory": "Has 3 years of experience as a UX designer"}`,
	)}

	if _, err := h.engine.Remember(context.Background(), "alice", "input"); err != nil {
		t.Fatalf("Remember failed: %v", err)
	}

	if len(h.store.memories) != 1 {
		t.Fatalf("expected 1 memory after update, got %d", len(h.store.memories))
	}
	mem := h.store.memories["mem-1"]
	if mem == nil {
		t.Fatal("memory mem-1 disappeared")
	}
	if mem.Content != fact {
		t.Errorf("content = %q, want %q", mem.Content, fact)
	}
	if !mem.CreatedAt.Equal(createdAt) {
		t.Errorf("CreatedAt changed on update")
	}
	if !mem.UpdatedAt.After(createdAt) {
		t.Errorf("UpdatedAt was not bumped")
	}
	if len(h.history.entries) != 1 || h.history.entries[0].Event != models.ActionUpdate {
		t.Fatalf("expected one UPDATE history entry, got %+v", h.history.entries)
	}
	if h.history.entries[0].OldContent != "Has 3 years of experience as a UX designer" {
		t.Errorf("history old content = %q", h.history.entries[0].OldContent)
	}
}

func TestRememberUnrelatedFactLeavesOthersUntouched(t *testing.T) {
	h := newHarness()
	createdAt := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
	h.seed("mem-1", "alice", "Works as a UX designer", []float32{1, 0, 0}, createdAt)

	fact := "Is planning a trip to Japan in November"
	h.extractor.facts["input"] = []models.Fact{models.Fact(fact)}
	h.embedder.set(fact, []float32{0, 1, 0}) // orthogonal: no candidates retrieved
	h.llm.responses = []string{actionsJSON(
		`{"event": "ADD", "text": "Is planning a trip to Japan in November"}`,
	)}

	if _, err := h.engine.Remember(context.Background(), "alice", "input"); err != nil {
		t.Fatalf("Remember failed: %v", err)
	}

	if len(h.store.memories) != 2 {
		t.Fatalf("expected 2 memories, got %d", len(h.store.memories))
	}
	designer := h.store.memories["mem-1"]
	if designer.Content != "Works as a UX designer" || !designer.UpdatedAt.Equal(createdAt) {
		t.Errorf("unrelated memory was modified: %+v", designer)
	}
}

func TestRememberRejectsUnknownActionID(t *testing.T) {
	h := newHarness()
	h.extractor.facts["input"] = []models.Fact{"Likes coffee"}
	h.llm.responses = []string{actionsJSON(
		`{"event": "UPDATE", "id": "no-such-memory", "text": "Likes coffee"}`,
	)}

	_, err := h.engine.Remember(context.Background(), "alice", "input")
	var consErr *models.ConsolidationError
	if !errors.As(err, &consErr) {
		t.Fatalf("expected ConsolidationError, got %v", err)
	}
	if h.store.writes != 0 {
		t.Errorf("store was mutated by a rejected action set")
	}
}

func TestRememberRejectsIncompleteCoverage(t *testing.T) {
	h := newHarness()
	h.extractor.facts["input"] = []models.Fact{"Likes coffee", "Likes tea"}
	h.llm.responses = []string{actionsJSON(
		`{"event": "ADD", "text": "Likes coffee"}`,
	)}

	_, err := h.engine.Remember(context.Background(), "alice", "input")
	var consErr *models.ConsolidationError
	if !errors.As(err, &consErr) {
		t.Fatalf("expected ConsolidationError, got %v", err)
	}
	if h.store.writes != 0 {
		t.Errorf("store was mutated by a rejected action set")
	}
}

func TestRememberNoneIsIdempotent(t *testing.T) {
	h := newHarness()
	createdAt := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
	h.seed("mem-1", "alice", "Likes coffee", []float32{1, 0, 0}, createdAt)

	h.extractor.facts["input"] = []models.Fact{"Likes coffee"}
	h.embedder.set("Likes coffee", []float32{1, 0, 0})
	h.llm.responses = []string{actionsJSON(`{"event": "NONE", "text": "Likes coffee"}`)}

	if _, err := h.engine.Remember(context.Background(), "alice", "input"); err != nil {
		t.Fatalf("Remember failed: %v", err)
	}

	if h.store.writes != 0 {
		t.Errorf("NONE action caused %d writes", h.store.writes)
	}
	mem := h.store.memories["mem-1"]
	if !mem.UpdatedAt.Equal(createdAt) {
		t.Errorf("NONE action bumped UpdatedAt")
	}
	if len(h.history.entries) != 0 {
		t.Errorf("NONE action recorded history: %+v", h.history.entries)
	}
}

func TestRememberApplyFailsFast(t *testing.T) {
	h := newHarness()
	h.extractor.facts["input"] = []models.Fact{"Fact one", "Fact two", "Fact three"}
	h.llm.responses = []string{actionsJSON(
		`{"event": "ADD", "text": "Fact one"}`,
		`{"event": "ADD", "text": "Fact two"}`,
		`{"event": "ADD", "text": "Fact three"}`,
	)}
	h.store.failAfter = 1 // first write succeeds, second fails

	_, err := h.engine.Remember(context.Background(), "alice", "input")
	var applyErr *models.ApplyError
	if !errors.As(err, &applyErr) {
		t.Fatalf("expected ApplyError, got %v", err)
	}
	if applyErr.Index != 1 {
		t.Errorf("ApplyError.Index = %d, want 1", applyErr.Index)
	}
	if applyErr.Action.Event != models.ActionAdd {
		t.Errorf("ApplyError.Action.Event = %s, want ADD", applyErr.Action.Event)
	}
	if len(h.store.memories) != 1 {
		t.Errorf("expected exactly the first action to be durable, have %d memories", len(h.store.memories))
	}
}

func TestRememberUnionsCandidatesAcrossFacts(t *testing.T) {
	h := newHarness()
	h.seed("mem-1", "alice", "Enjoys hiking in the mountains", []float32{1, 0.2, 0}, time.Now())

	// Both facts are similar to the same memory; it must appear in the
	// resolver prompt exactly once.
	h.extractor.facts["input"] = []models.Fact{"Went hiking last weekend", "Plans a hiking trip"}
	h.embedder.set("Went hiking last weekend", []float32{1, 0, 0})
	h.embedder.set("Plans a hiking trip", []float32{1, 0.4, 0})
	h.llm.responses = []string{actionsJSON(
		`{"event": "NONE", "text": "Went hiking last weekend"}`,
		`{"event": "NONE", "text": "Plans a hiking trip"}`,
	)}

	if _, err := h.engine.Remember(context.Background(), "alice", "input"); err != nil {
		t.Fatalf("Remember failed: %v", err)
	}

	if len(h.llm.prompts) != 1 {
		t.Fatalf("expected 1 resolver prompt, got %d", len(h.llm.prompts))
	}
	if n := strings.Count(h.llm.prompts[0], `"mem-1"`); n != 1 {
		t.Errorf("candidate mem-1 appears %d times in the prompt, want 1", n)
	}
}

func TestRememberIsolatesUsers(t *testing.T) {
	h := newHarness()
	h.seed("mem-bob", "bob", "Likes coffee", []float32{1, 0, 0}, time.Now())

	h.extractor.facts["input"] = []models.Fact{"Likes coffee"}
	h.embedder.set("Likes coffee", []float32{1, 0, 0})
	h.llm.responses = []string{actionsJSON(`{"event": "ADD", "text": "Likes coffee"}`)}

	if _, err := h.engine.Remember(context.Background(), "alice", "input"); err != nil {
		t.Fatalf("Remember failed: %v", err)
	}

	// Bob's identical memory must not surface as a candidate, so the
	// resolver saw an empty candidate list and the fact became an ADD.
	if n := strings.Count(h.llm.prompts[0], `"mem-bob"`); n != 0 {
		t.Errorf("another user's memory leaked into the candidate set")
	}
	if len(h.store.memories) != 2 {
		t.Errorf("expected bob's and alice's memories, got %d", len(h.store.memories))
	}
}

func TestRememberSerializesSameUser(t *testing.T) {
	h := newHarness()
	h.extractor.facts["input"] = []models.Fact{"Fact"}
	h.llm.responses = []string{
		actionsJSON(`{"event": "ADD", "text": "Fact"}`),
		actionsJSON(`{"event": "ADD", "text": "Fact"}`),
		actionsJSON(`{"event": "ADD", "text": "Fact"}`),
		actionsJSON(`{"event": "ADD", "text": "Fact"}`),
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.engine.Remember(context.Background(), "alice", "input"); err != nil {
				t.Errorf("Remember failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if max := atomic.LoadInt32(&h.store.maxInPipeline); max > 1 {
		t.Errorf("pipeline sections for one user overlapped: max concurrency %d", max)
	}
}

func TestRememberHistoryFailureIsNonFatal(t *testing.T) {
	h := newHarness()
	h.history.err = errors.New("mongo down")
	h.extractor.facts["input"] = []models.Fact{"Likes coffee"}
	h.llm.responses = []string{actionsJSON(`{"event": "ADD", "text": "Likes coffee"}`)}

	if _, err := h.engine.Remember(context.Background(), "alice", "input"); err != nil {
		t.Fatalf("Remember failed despite history being best-effort: %v", err)
	}
	if len(h.store.memories) != 1 {
		t.Errorf("memory was not persisted")
	}
}

func TestRecallRanksBySimilarity(t *testing.T) {
	h := newHarness()
	h.seed("mem-1", "alice", "Works as a UX designer", []float32{1, 0, 0}, time.Now())
	h.seed("mem-2", "alice", "Plans a trip to Japan", []float32{0, 1, 0}, time.Now())
	h.embedder.set("design work", []float32{1, 0.1, 0})

	memories, err := h.engine.Recall(context.Background(), "alice", "design work", 10)
	if err != nil {
		t.Fatalf("Recall failed: %v", err)
	}
	if len(memories) == 0 || memories[0].ID != "mem-1" {
		t.Fatalf("expected mem-1 ranked first, got %+v", memories)
	}
}

func TestFetchMissingReturnsNil(t *testing.T) {
	h := newHarness()
	mem, err := h.engine.Fetch(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if mem != nil {
		t.Errorf("expected nil for a missing memory, got %+v", mem)
	}
}

func TestRenameMemory(t *testing.T) {
	h := newHarness()
	createdAt := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
	h.seed("mem-1", "alice", "Old content", []float32{1, 0, 0}, createdAt)
	h.embedder.set("New content", []float32{0, 1, 0})

	mem, err := h.engine.Rename(context.Background(), "mem-1", "New content")
	if err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if mem.Content != "New content" {
		t.Errorf("content = %q", mem.Content)
	}
	if !mem.CreatedAt.Equal(createdAt) {
		t.Errorf("CreatedAt changed on rename")
	}
	if !mem.UpdatedAt.After(createdAt) {
		t.Errorf("UpdatedAt was not bumped")
	}
	stored := h.store.memories["mem-1"]
	if stored.Content != "New content" || cosine(stored.Embedding, []float32{0, 1, 0}) < 0.99 {
		t.Errorf("stored memory not re-embedded: %+v", stored)
	}
}

func TestRenameMissingMemory(t *testing.T) {
	h := newHarness()
	_, err := h.engine.Rename(context.Background(), "no-such-id", "content")
	if !errors.Is(err, models.ErrMemoryNotFound) {
		t.Fatalf("expected ErrMemoryNotFound, got %v", err)
	}
}

func TestForgetMemory(t *testing.T) {
	h := newHarness()
	h.seed("mem-1", "alice", "Old content", []float32{1, 0, 0}, time.Now())

	if err := h.engine.Forget(context.Background(), "mem-1"); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}
	if _, ok := h.store.memories["mem-1"]; ok {
		t.Errorf("memory still present after Forget")
	}
	if len(h.history.entries) != 1 || h.history.entries[0].Event != models.ActionDelete {
		t.Errorf("expected a DELETE history entry, got %+v", h.history.entries)
	}

	if err := h.engine.Forget(context.Background(), "mem-1"); !errors.Is(err, models.ErrMemoryNotFound) {
		t.Errorf("expected ErrMemoryNotFound on second Forget, got %v", err)
	}
}

func TestListByTimeRange(t *testing.T) {
	h := newHarness()
	base := time.Now().Add(-10 * time.Hour).Truncate(time.Millisecond)
	h.seed("mem-1", "alice", "first", []float32{1, 0, 0}, base)
	h.seed("mem-2", "alice", "second", []float32{1, 0, 0}, base.Add(2*time.Hour))
	h.seed("mem-3", "alice", "third", []float32{1, 0, 0}, base.Add(4*time.Hour))

	memories, err := h.engine.ListByTimeRange(context.Background(), "alice", base.Add(time.Hour), base.Add(3*time.Hour), 10)
	if err != nil {
		t.Fatalf("ListByTimeRange failed: %v", err)
	}
	if len(memories) != 1 || memories[0].ID != "mem-2" {
		t.Fatalf("expected only mem-2, got %+v", memories)
	}
}

func TestPurgeUser(t *testing.T) {
	h := newHarness()
	h.seed("mem-1", "alice", "a", []float32{1, 0, 0}, time.Now())
	h.seed("mem-2", "bob", "b", []float32{1, 0, 0}, time.Now())

	if err := h.engine.PurgeUser(context.Background(), "alice"); err != nil {
		t.Fatalf("PurgeUser failed: %v", err)
	}
	if _, ok := h.store.memories["mem-1"]; ok {
		t.Errorf("alice's memory survived the purge")
	}
	if _, ok := h.store.memories["mem-2"]; !ok {
		t.Errorf("bob's memory was purged")
	}
}
