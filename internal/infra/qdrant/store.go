// Package qdrant implements the vector store gateway over Qdrant's gRPC API.
package qdrant

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/google/uuid"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"careerpilot/internal/config"
	"careerpilot/internal/domain/model"
	"careerpilot/internal/domain/ports/repository"
)

var _ repository.VectorStore = (*Store)(nil)

// Store talks to one Qdrant collection. Search results are ordered by
// descending similarity score as reported by the index; ordering among
// equal scores follows the index's native order and is not deterministic.
type Store struct {
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
	collection  string
	vectorSize  uint64
	log         *zerolog.Logger
}

// NewStore connects to Qdrant and creates the collection if it does not
// exist yet (cosine distance).
func NewStore(ctx context.Context, cfg *config.QdrantConfig, log *zerolog.Logger) (*Store, error) {
	conn, err := grpc.Dial(cfg.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}
	s := &Store{
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
		collection:  cfg.Collection,
		vectorSize:  cfg.VectorSize,
		log:         log,
	}
	if err := s.ensureCollection(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ensure collection %s: %w", cfg.Collection, err)
	}
	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context) error {
	resp, err := s.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return err
	}
	for _, c := range resp.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}
	s.log.Info().Str("collection", s.collection).Uint64("size", s.vectorSize).Msg("creating qdrant collection")
	_, err = s.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     s.vectorSize,
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	return err
}

func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]model.ContextChunk, error) {
	resp, err := s.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Include{
				Include: &qdrantclient.PayloadIncludeSelector{
					Fields: []string{"text", "source"},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	chunks := make([]model.ContextChunk, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		chunk := model.ContextChunk{Score: p.GetScore()}
		if v, ok := p.GetPayload()["text"]; ok {
			chunk.Text = v.GetStringValue()
		}
		if v, ok := p.GetPayload()["source"]; ok {
			chunk.Source = v.GetStringValue()
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Upsert indexes a document under an identity derived from its text, so
// re-upserting the same passage replaces the prior point instead of
// duplicating it.
func (s *Store) Upsert(ctx context.Context, doc repository.Document) error {
	point := &qdrantclient.PointStruct{
		Id: &qdrantclient.PointId{
			PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: PointID(doc.Text)},
		},
		Vectors: &qdrantclient.Vectors{
			VectorsOptions: &qdrantclient.Vectors_Vector{
				Vector: &qdrantclient.Vector{Data: doc.Embedding},
			},
		},
		Payload: map[string]*qdrantclient.Value{
			"text":   {Kind: &qdrantclient.Value_StringValue{StringValue: doc.Text}},
			"source": {Kind: &qdrantclient.Value_StringValue{StringValue: doc.Source}},
		},
	}
	_, err := s.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: s.collection,
		Points:         []*qdrantclient.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.conn.Close() }

// PointID derives a stable UUID from document text. Identical text maps to
// the same point across runs and processes.
func PointID(text string) string {
	sum := sha256.Sum256([]byte(text))
	u, _ := uuid.FromBytes(sum[:16])
	return u.String()
}
