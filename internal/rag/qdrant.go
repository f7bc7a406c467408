package rag

import (
	"context"
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// Payload keys reserved by the store. Metadata keys are written next to them
// as top-level payload fields.
const (
	payloadContent = "content"
	payloadSource  = "source"
)

// qdrantUpsertBatch keeps each gRPC upsert well below the default 32MiB
// message limit for 3072-dimension vectors.
const qdrantUpsertBatch = 128

// QdrantConfig holds connection parameters for a Qdrant instance. Zero
// values fall back to localhost:6334 and the "lawglance" collection.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	// VectorSize must match the embedder's output dimension. An existing
	// collection with a different size is rejected.
	VectorSize uint64
	APIKey     string
	UseTLS     bool
}

// QdrantStore implements VectorStore on a Qdrant collection using cosine
// distance, so scores fall in [-1, 1] and are comparable with PostgresStore.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	vectorSize uint64
}

// NewQdrantStore connects to Qdrant and prepares the collection, creating it
// together with a keyword index on the source field when it is missing.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	host, port, collection := cfg.Host, cfg.Port, cfg.Collection
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = 6334
	}
	if collection == "" {
		collection = "lawglance"
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	s := &QdrantStore{client: client, collection: collection, vectorSize: cfg.VectorSize}
	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// Ping reports whether Qdrant answers its health RPC and still holds the
// collection. A dropped collection means every question would go
// unanswered, so it fails readiness.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("qdrant: collection %q not found", s.collection)
	}
	return nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return s.checkVectorSize(ctx)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.collection, err)
	}

	wait := true
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		Wait:           &wait,
		FieldName:      payloadSource,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to index %q on %q: %w", payloadSource, s.collection, err)
	}
	return nil
}

// checkVectorSize rejects a collection built for a different embedding
// model. Named-vector collections are not created by this store and are
// left unchecked.
func (s *QdrantStore) checkVectorSize(ctx context.Context) error {
	if s.vectorSize == 0 {
		return nil
	}
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to read collection %q: %w", s.collection, err)
	}
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return nil
	}
	if got := params.GetSize(); got != s.vectorSize {
		return fmt.Errorf("qdrant: collection %q holds %d-dimension vectors but the embedder produces %d; re-ingest into a new collection",
			s.collection, got, s.vectorSize)
	}
	return nil
}

// Upsert writes docs in batches of qdrantUpsertBatch points. embeddings[i]
// is the vector for docs[i].
func (s *QdrantStore) Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("qdrant: upsert: %d documents but %d embeddings", len(docs), len(embeddings))
	}

	wait := true
	for start := 0; start < len(docs); start += qdrantUpsertBatch {
		end := min(start+qdrantUpsertBatch, len(docs))
		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(docs[i].ID),
				Vectors: qdrant.NewVectors(embeddings[i]...),
				Payload: qdrant.NewValueMap(pointPayload(docs[i])),
			})
		}
		if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Wait:           &wait,
			Points:         points,
		}); err != nil {
			return fmt.Errorf("qdrant: upsert points %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

// pointPayload flattens a document into a Qdrant payload. Reserved keys win
// over metadata keys of the same name.
func pointPayload(doc Document) map[string]any {
	payload := make(map[string]any, len(doc.Metadata)+2)
	for k, v := range doc.Metadata {
		payload[k] = v
	}
	payload[payloadContent] = doc.Content
	payload[payloadSource] = doc.Source
	return payload
}

// Search returns at most topK points with a score of at least
// scoreThreshold, best first.
func (s *QdrantStore) Search(ctx context.Context, queryEmbedding []float32, topK int, scoreThreshold float32) ([]Document, error) {
	if topK <= 0 {
		return []Document{}, nil
	}
	limit := uint64(topK)
	req := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if scoreThreshold > 0 {
		req.ScoreThreshold = &scoreThreshold
	}

	points, err := s.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	docs := make([]Document, 0, len(points))
	for _, p := range points {
		docs = append(docs, documentFromPayload(p.GetId().GetUuid(), p.GetScore(), p.GetPayload()))
	}
	return docs, nil
}

func documentFromPayload(id string, score float32, payload map[string]*qdrant.Value) Document {
	doc := Document{ID: id, Score: score, Metadata: make(map[string]string, len(payload))}
	for k, v := range payload {
		switch k {
		case payloadContent:
			doc.Content = v.GetStringValue()
		case payloadSource:
			doc.Source = v.GetStringValue()
		default:
			if str, ok := payloadString(v); ok {
				doc.Metadata[k] = str
			}
		}
	}
	return doc
}

// payloadString renders scalar payload values as strings. Page numbers
// written by other tools arrive as integers or doubles.
func payloadString(v *qdrant.Value) (string, bool) {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue, true
	case *qdrant.Value_IntegerValue:
		return strconv.FormatInt(k.IntegerValue, 10), true
	case *qdrant.Value_DoubleValue:
		return strconv.FormatFloat(k.DoubleValue, 'f', -1, 64), true
	case *qdrant.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue), true
	default:
		return "", false
	}
}

// DeleteSource removes every point whose source payload equals source.
func (s *QdrantStore) DeleteSource(ctx context.Context, source string) error {
	wait := true
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(payloadSource, source)},
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete source %q: %w", source, err)
	}
	return nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
