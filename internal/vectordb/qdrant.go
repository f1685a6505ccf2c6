package vectordb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantStore implements Backend for a Qdrant server over gRPC.
type QdrantStore struct {
	client  *qdrant.Client
	timeout time.Duration
}

// pointNamespace derives Qdrant point UUIDs from document IDs.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("news-rag/documents"))

// Payload keys
const (
	payloadDocID   = "doc_id"
	payloadContent = "content"
)

// NewQdrantStore connects to Qdrant's gRPC port. The connection is lazy;
// use Health to check reachability.
func NewQdrantStore(cfg Config) (*QdrantStore, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	qcfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	}
	if !cfg.UseTLS {
		qcfg.GrpcOptions = []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		}
	}

	client, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantStore{client: client, timeout: timeout}, nil
}

// OpenCollection checks for the collection and creates it when the vector
// size is known. Otherwise creation waits for the first upsert.
func (s *QdrantStore) OpenCollection(ctx context.Context, name string, dims int) (RawCollection, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}

	c := &qdrantCollection{store: s, name: name, exists: exists}
	if !exists && dims > 0 {
		if err := c.create(ctx, dims); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Health checks if Qdrant is available.
func (s *QdrantStore) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

type qdrantCollection struct {
	store *QdrantStore
	name  string

	mu     sync.Mutex
	exists bool
}

func (c *qdrantCollection) Name() string {
	return c.name
}

func (c *qdrantCollection) create(ctx context.Context, dims int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exists {
		return nil
	}

	err := c.store.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: c.name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", c.name, err)
	}
	c.exists = true
	return nil
}

func (c *qdrantCollection) created() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exists
}

func (c *qdrantCollection) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.store.timeout)
	defer cancel()

	if err := c.create(ctx, len(docs[0].Embedding)); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(doc.ID)),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: qdrant.NewValueMap(toPayload(doc)),
		}
	}

	_, err := c.store.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.name,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	return err
}

func (c *qdrantCollection) Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	if !c.created() {
		return []SearchResult{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.store.timeout)
	defer cancel()

	points, err := c.store.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, len(points))
	for i, p := range points {
		results[i] = fromPayload(p.GetPayload(), p.GetScore())
	}
	return results, nil
}

func (c *qdrantCollection) Count(ctx context.Context) (int, error) {
	if !c.created() {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.store.timeout)
	defer cancel()

	n, err := c.store.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: c.name,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// VerifyDimensions compares the collection's configured vector size.
func (c *qdrantCollection) VerifyDimensions(ctx context.Context, dims int) error {
	if !c.created() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.store.timeout)
	defer cancel()

	info, err := c.store.client.GetCollectionInfo(ctx, c.name)
	if err != nil {
		return err
	}
	size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size != 0 && int(size) != dims {
		return fmt.Errorf("%w: collection %s is %d-dimensional", ErrDimensionMismatch, c.name, size)
	}
	return nil
}

// PointID converts a document ID to the deterministic UUID Qdrant stores it under.
// Qdrant only accepts UUIDs or integers as point IDs.
func PointID(docID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(docID)).String()
}

func toPayload(doc Document) map[string]any {
	payload := make(map[string]any, len(doc.Metadata)+2)
	for k, v := range doc.Metadata {
		payload[k] = v
	}
	payload[payloadDocID] = doc.ID
	payload[payloadContent] = doc.Content
	return payload
}

func fromPayload(payload map[string]*qdrant.Value, score float32) SearchResult {
	r := SearchResult{Similarity: score}
	for k, v := range payload {
		switch k {
		case payloadDocID:
			r.ID = v.GetStringValue()
		case payloadContent:
			r.Content = v.GetStringValue()
		default:
			if r.Metadata == nil {
				r.Metadata = make(map[string]string)
			}
			r.Metadata[k] = v.GetStringValue()
		}
	}
	return r
}
