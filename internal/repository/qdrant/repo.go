// Package qdrant implements the chunk index on a Qdrant collection with
// cosine distance. Metadata filters become qdrant Must conditions.
package qdrant

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"github.com/kailas-cloud/evidex/internal/domain"
	domcorpus "github.com/kailas-cloud/evidex/internal/domain/corpus"
	"github.com/kailas-cloud/evidex/internal/domain/metadata"
	"github.com/kailas-cloud/evidex/internal/domain/search/filter"
)

// pointNamespace scopes the deterministic point ids derived from chunk ids.
var pointNamespace = uuid.MustParse("6f1c2a0e-5b7d-4c39-9f0a-3e8d2b6a41c7")

const maxMessageSize = 32 << 20

// client is the consumer interface for qdrant (ISP).
type client interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	CreateFieldIndex(ctx context.Context, req *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error)
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Delete(ctx context.Context, req *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Count(ctx context.Context, req *qdrant.CountPoints) (uint64, error)
	Scroll(ctx context.Context, req *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, error)
}

// Config selects the server and collection.
type Config struct {
	Host       string
	Port       int
	UseTLS     bool
	APIKey     string
	Collection string
	Dimensions int
}

// Repo implements corpus.Index.
type Repo struct {
	client     client
	collection string
	dim        int
}

var _ domcorpus.Index = (*Repo)(nil)

// Dial connects to qdrant over gRPC. The returned close func releases the
// connection.
func Dial(cfg Config) (*Repo, func() error, error) {
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(maxMessageSize),
				grpc.MaxCallSendMsgSize(maxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to qdrant %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return New(c, cfg.Collection, cfg.Dimensions), c.Close, nil
}

// New wraps an existing client.
func New(c client, collection string, dim int) *Repo {
	return &Repo{client: c, collection: collection, dim: dim}
}

// Ping checks that the server answers and the collection exists.
func (r *Repo) Ping(ctx context.Context) error {
	exists, err := r.client.CollectionExists(ctx, r.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", r.collection, err)
	}
	if !exists {
		return fmt.Errorf("collection %s: %w", r.collection, domain.ErrNotFound)
	}
	return nil
}

// Ensure creates the collection and its payload indexes when missing.
func (r *Repo) Ensure(ctx context.Context) error {
	exists, err := r.client.CollectionExists(ctx, r.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", r.collection, err)
	}
	if exists {
		return nil
	}

	err = r.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(r.dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", r.collection, err)
	}

	for _, f := range metadata.Fields() {
		var ft qdrant.FieldType
		switch f.Kind {
		case metadata.KindTag:
			ft = qdrant.FieldType_FieldTypeKeyword
		case metadata.KindNumeric:
			ft = qdrant.FieldType_FieldTypeFloat
		default:
			continue
		}
		_, err := r.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: r.collection,
			FieldName:      f.Name,
			FieldType:      ft.Enum(),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("creating payload index %s: %w", f.Name, err)
		}
	}
	return nil
}

// Add validates every entry, then upserts them in one request.
func (r *Repo) Add(ctx context.Context, entries []domcorpus.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := domcorpus.ValidateEntries(entries, r.dim); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(entries))
	for i, e := range entries {
		points[i] = &qdrant.PointStruct{
			Id:      PointID(e.ID()),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: toPayload(e.Record),
		}
	}
	_, err := r.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: r.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	return nil
}

// Query runs a filtered nearest-neighbor query.
func (r *Repo) Query(ctx context.Context, q domcorpus.Query) ([]domcorpus.Hit, error) {
	if q.K <= 0 {
		return nil, nil
	}
	if len(q.Vector) != r.dim {
		return nil, fmt.Errorf("query has %d dimensions, want %d: %w", len(q.Vector), r.dim, domain.ErrVectorDimMismatch)
	}

	points, err := r.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: r.collection,
		Query:          qdrant.NewQuery(q.Vector...),
		Filter:         buildFilter(q.Filter),
		Limit:          qdrant.PtrOf(uint64(q.K)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", r.collection, err)
	}

	hits := make([]domcorpus.Hit, len(points))
	for i, p := range points {
		hits[i] = domcorpus.Hit{
			Record:     fromPayload(p.GetPayload()),
			Similarity: min(1, max(0, float64(p.GetScore()))),
		}
	}
	return hits, nil
}

// DeleteDocument removes every point of a document.
func (r *Repo) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	f := &qdrant.Filter{Must: []*qdrant.Condition{
		qdrant.NewMatch(metadata.FieldDocumentID, documentID),
	}}
	n, err := r.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: r.collection,
		Filter:         f,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting chunks of %s: %w", documentID, err)
	}
	if n == 0 {
		return 0, nil
	}

	_, err = r.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: r.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(f),
	})
	if err != nil {
		return 0, fmt.Errorf("deleting chunks of %s: %w", documentID, err)
	}
	return int(n), nil
}

// ListChunks scrolls every matching point and pages by chunk id.
func (r *Repo) ListChunks(ctx context.Context, f filter.Expression, offset, limit int) (domcorpus.Page, error) {
	total, err := r.Count(ctx, f)
	if err != nil {
		return domcorpus.Page{}, err
	}
	page := domcorpus.Page{Total: total}
	if total == 0 || offset >= total {
		return page, nil
	}

	points, err := r.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: r.collection,
		Filter:         buildFilter(f),
		Limit:          qdrant.PtrOf(uint32(total)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return domcorpus.Page{}, fmt.Errorf("scrolling %s: %w", r.collection, err)
	}

	records := make([]metadata.Record, len(points))
	for i, p := range points {
		records[i] = fromPayload(p.GetPayload())
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i][metadata.FieldChunkID] < records[j][metadata.FieldChunkID]
	})

	if offset >= len(records) {
		return page, nil
	}
	end := len(records)
	if limit > 0 {
		end = min(end, offset+limit)
	}
	page.Records = records[offset:end]
	return page, nil
}

// Count returns the exact number of points matching f.
func (r *Repo) Count(ctx context.Context, f filter.Expression) (int, error) {
	n, err := r.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: r.collection,
		Filter:         buildFilter(f),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", r.collection, err)
	}
	return int(n), nil
}

// PointID maps a chunk id to a stable UUIDv5 point id.
func PointID(chunkID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(pointNamespace, []byte(chunkID)).String())
}
