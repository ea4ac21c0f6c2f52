package milvus

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"memoria/internal/config"
)

// Field names of the memories collection. The schema is fixed; only the
// vector dimensionality and index come from configuration.
const (
	FieldID        = "id"
	FieldUserID    = "user_id"
	FieldContent   = "content"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldEmbedding = "embedding"
)

var (
	instance *MilvusClient
	once     sync.Once
	initErr  error
)

// MilvusClient wraps the Milvus SDK client together with its configuration.
type MilvusClient struct {
	Client client.Client
	Config *config.MilvusConfig
}

// GetClient creates and returns a Milvus client instance using the
// singleton pattern, so the connection is established once per process.
func GetClient(ctx context.Context, cfg *config.MilvusConfig) (*MilvusClient, error) {
	once.Do(func() {
		c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
		if err != nil {
			initErr = fmt.Errorf("failed to connect to Milvus: %w", err)
			return
		}
		log.Println("connected to Milvus")
		instance = &MilvusClient{Client: c, Config: cfg}
	})
	return instance, initErr
}

// Close safely closes the Milvus connection.
func (c *MilvusClient) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

// HealthCheck verifies the Milvus connection.
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("milvus client is nil")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("milvus health check failed: %w", err)
	}
	return nil
}

// EnsureCollection creates the memories collection and its vector index if
// they do not exist yet, then loads the collection for querying.
func (c *MilvusClient) EnsureCollection(ctx context.Context) error {
	collName := c.Config.CollectionName
	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(collName).
			WithDescription("per-user memories with content embeddings").
			WithField(entity.NewField().WithName(FieldID).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(FieldUserID).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(256)).
			WithField(entity.NewField().WithName(FieldContent).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(8192)).
			WithField(entity.NewField().WithName(FieldCreatedAt).
				WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldUpdatedAt).
				WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldEmbedding).
				WithDataType(entity.FieldTypeFloatVector).WithDim(int64(c.Config.VectorDim)))

		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection %q: %w", collName, err)
		}

		idx, err := c.buildIndexFromConfig()
		if err != nil {
			return err
		}
		if err := c.Client.CreateIndex(ctx, collName, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("failed to create index on %q: %w", FieldEmbedding, err)
		}
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("failed to load collection %q: %w", collName, err)
	}
	return nil
}

// Upsert writes the given columns into the memories collection. Rows whose
// primary key already exists are replaced.
func (c *MilvusClient) Upsert(ctx context.Context, columns ...entity.Column) error {
	if _, err := c.Client.Upsert(ctx, c.Config.CollectionName, "", columns...); err != nil {
		return fmt.Errorf("failed to upsert into Milvus: %w", err)
	}
	return nil
}

// Query runs a scalar-filter query and returns the requested output fields.
// limit of 0 means no limit option is applied.
func (c *MilvusClient) Query(ctx context.Context, expr string, outputFields []string, limit int64) (client.ResultSet, error) {
	opts := []client.SearchQueryOptionFunc{}
	if limit > 0 {
		opts = append(opts, client.WithLimit(limit))
	}
	rs, err := c.Client.Query(ctx, c.Config.CollectionName, nil, expr, outputFields, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query Milvus: %w", err)
	}
	return rs, nil
}

// Delete removes all rows matching expr.
func (c *MilvusClient) Delete(ctx context.Context, expr string) error {
	if err := c.Client.Delete(ctx, c.Config.CollectionName, "", expr); err != nil {
		return fmt.Errorf("failed to delete from Milvus: %w", err)
	}
	return nil
}

// Search runs a vector similarity search restricted by expr and returns the
// ranked results with scores.
func (c *MilvusClient) Search(ctx context.Context, expr string, vector []float32, topK int, outputFields []string) ([]client.SearchResult, error) {
	sp, err := c.searchParamFromConfig()
	if err != nil {
		return nil, err
	}

	results, err := c.Client.Search(
		ctx,
		c.Config.CollectionName,
		nil,
		expr,
		outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		FieldEmbedding,
		entity.MetricType(c.Config.MetricType),
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search Milvus: %w", err)
	}
	return results, nil
}

// Flush forces buffered writes to be persisted. Called during shutdown so
// recent upserts are not lost with the process.
func (c *MilvusClient) Flush(ctx context.Context) error {
	if err := c.Client.Flush(ctx, c.Config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	return nil
}

func (c *MilvusClient) buildIndexFromConfig() (entity.Index, error) {
	metricType := entity.MetricType(c.Config.MetricType)
	nlist := c.Config.Nlist
	if nlist <= 0 {
		nlist = 128
	}

	switch c.Config.IndexType {
	case "IVF_FLAT":
		return entity.NewIndexIvfFlat(metricType, nlist)
	case "HNSW":
		return entity.NewIndexHNSW(metricType, 8, 96)
	case "AUTOINDEX":
		return entity.NewIndexAUTOINDEX(metricType)
	default:
		return nil, fmt.Errorf("unsupported index type: %s", c.Config.IndexType)
	}
}

func (c *MilvusClient) searchParamFromConfig() (entity.SearchParam, error) {
	switch c.Config.IndexType {
	case "IVF_FLAT":
		return entity.NewIndexIvfFlatSearchParam(10)
	case "HNSW":
		return entity.NewIndexHNSWSearchParam(64)
	case "AUTOINDEX":
		return entity.NewIndexAUTOINDEXSearchParam(1)
	default:
		return nil, fmt.Errorf("unsupported index type: %s", c.Config.IndexType)
	}
}
