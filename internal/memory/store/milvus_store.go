package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"memoria/internal/database/milvus"
	"memoria/internal/models"
)

// scalarFields are the output fields returned by lookups and searches. The
// embedding column is excluded: readers never need the raw vector back.
var scalarFields = []string{
	milvus.FieldID,
	milvus.FieldUserID,
	milvus.FieldContent,
	milvus.FieldCreatedAt,
	milvus.FieldUpdatedAt,
}

// MilvusStore is a Store implementation backed by a Milvus collection.
type MilvusStore struct {
	client *milvus.MilvusClient
}

// NewMilvusStore creates a new MilvusStore.
func NewMilvusStore(client *milvus.MilvusClient) *MilvusStore {
	return &MilvusStore{client: client}
}

// Upsert inserts or replaces the memory row.
func (s *MilvusStore) Upsert(ctx context.Context, mem *models.Memory) error {
	dim := len(mem.Embedding)
	if dim == 0 {
		return fmt.Errorf("memory %s has no embedding", mem.ID)
	}

	return s.client.Upsert(ctx,
		entity.NewColumnVarChar(milvus.FieldID, []string{mem.ID}),
		entity.NewColumnVarChar(milvus.FieldUserID, []string{mem.UserID}),
		entity.NewColumnVarChar(milvus.FieldContent, []string{mem.Content}),
		entity.NewColumnInt64(milvus.FieldCreatedAt, []int64{mem.CreatedAt.UnixMilli()}),
		entity.NewColumnInt64(milvus.FieldUpdatedAt, []int64{mem.UpdatedAt.UnixMilli()}),
		entity.NewColumnFloatVector(milvus.FieldEmbedding, dim, [][]float32{mem.Embedding}),
	)
}

// Get returns the memory with the given ID, or nil if it does not exist.
func (s *MilvusStore) Get(ctx context.Context, id string) (*models.Memory, error) {
	expr := fmt.Sprintf("%s == %s", milvus.FieldID, quote(id))
	rs, err := s.client.Query(ctx, expr, scalarFields, 1)
	if err != nil {
		return nil, err
	}

	memories, err := decodeResultSet(rs)
	if err != nil {
		return nil, err
	}
	if len(memories) == 0 {
		return nil, nil
	}
	return memories[0], nil
}

// Delete removes the memory with the given ID.
func (s *MilvusStore) Delete(ctx context.Context, id string) error {
	expr := fmt.Sprintf("%s == %s", milvus.FieldID, quote(id))
	return s.client.Delete(ctx, expr)
}

// DeleteByUser removes all memories owned by the given user.
func (s *MilvusStore) DeleteByUser(ctx context.Context, userID string) error {
	expr := fmt.Sprintf("%s == %s", milvus.FieldUserID, quote(userID))
	return s.client.Delete(ctx, expr)
}

// Search returns the user's memories ranked by similarity to vector.
func (s *MilvusStore) Search(ctx context.Context, userID string, vector []float32, limit int, minScore float32) ([]*models.Memory, error) {
	expr := fmt.Sprintf("%s == %s", milvus.FieldUserID, quote(userID))
	results, err := s.client.Search(ctx, expr, vector, limit, scalarFields)
	if err != nil {
		return nil, err
	}

	var memories []*models.Memory
	for _, result := range results {
		decoded, err := decodeResultSet(result.Fields)
		if err != nil {
			return nil, err
		}
		for i, mem := range decoded {
			if i < len(result.Scores) {
				mem.Score = result.Scores[i]
			}
			if mem.Score < minScore {
				continue
			}
			memories = append(memories, mem)
		}
	}
	return memories, nil
}

// ListByTimeRange returns the user's memories created within [start, end].
func (s *MilvusStore) ListByTimeRange(ctx context.Context, userID string, start, end time.Time, limit int) ([]*models.Memory, error) {
	expr := fmt.Sprintf("%s == %s and %s >= %d and %s <= %d",
		milvus.FieldUserID, quote(userID),
		milvus.FieldCreatedAt, start.UnixMilli(),
		milvus.FieldCreatedAt, end.UnixMilli(),
	)
	rs, err := s.client.Query(ctx, expr, scalarFields, int64(limit))
	if err != nil {
		return nil, err
	}
	return decodeResultSet(rs)
}

// decodeResultSet converts Milvus output columns into Memory records.
func decodeResultSet(rs client.ResultSet) ([]*models.Memory, error) {
	idCol := rs.GetColumn(milvus.FieldID)
	if idCol == nil || idCol.Len() == 0 {
		return nil, nil
	}
	userCol := rs.GetColumn(milvus.FieldUserID)
	contentCol := rs.GetColumn(milvus.FieldContent)
	createdCol := rs.GetColumn(milvus.FieldCreatedAt)
	updatedCol := rs.GetColumn(milvus.FieldUpdatedAt)
	if userCol == nil || contentCol == nil || createdCol == nil || updatedCol == nil {
		return nil, fmt.Errorf("result set missing expected columns")
	}

	memories := make([]*models.Memory, 0, idCol.Len())
	for i := 0; i < idCol.Len(); i++ {
		id, err := idCol.GetAsString(i)
		if err != nil {
			return nil, fmt.Errorf("decode id at row %d: %w", i, err)
		}
		userID, err := userCol.GetAsString(i)
		if err != nil {
			return nil, fmt.Errorf("decode user_id at row %d: %w", i, err)
		}
		content, err := contentCol.GetAsString(i)
		if err != nil {
			return nil, fmt.Errorf("decode content at row %d: %w", i, err)
		}
		createdAt, err := createdCol.GetAsInt64(i)
		if err != nil {
			return nil, fmt.Errorf("decode created_at at row %d: %w", i, err)
		}
		updatedAt, err := updatedCol.GetAsInt64(i)
		if err != nil {
			return nil, fmt.Errorf("decode updated_at at row %d: %w", i, err)
		}

		memories = append(memories, &models.Memory{
			ID:        id,
			UserID:    userID,
			Content:   content,
			CreatedAt: time.UnixMilli(createdAt),
			UpdatedAt: time.UnixMilli(updatedAt),
		})
	}
	return memories, nil
}

// quote renders s as a double-quoted Milvus expression literal, escaping
// any embedded quotes so user-supplied identifiers cannot break the filter.
func quote(s string) string {
	return strconv.Quote(s)
}
