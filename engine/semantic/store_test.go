package semantic

import (
	"context"
	"errors"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

// --- Mocks ---

type mockPoints struct {
	upsertResp *pb.PointsOperationResponse
	upsertErr  error
	lastUpsert *pb.UpsertPoints
	searchResp *pb.SearchResponse
	searchErr  error
	countResp  *pb.CountResponse
	countErr   error
}

func (m *mockPoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	m.lastUpsert = in
	return m.upsertResp, m.upsertErr
}
func (m *mockPoints) Search(_ context.Context, _ *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	return m.searchResp, m.searchErr
}
func (m *mockPoints) Count(_ context.Context, _ *pb.CountPoints, _ ...grpc.CallOption) (*pb.CountResponse, error) {
	return m.countResp, m.countErr
}

type mockCollections struct {
	listResp   *pb.ListCollectionsResponse
	listErr    error
	createResp *pb.CollectionOperationResponse
	createErr  error
	created    *pb.CreateCollection
	deleteResp *pb.CollectionOperationResponse
	deleteErr  error
}

func (m *mockCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	return m.listResp, m.listErr
}
func (m *mockCollections) Create(_ context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.created = in
	return m.createResp, m.createErr
}
func (m *mockCollections) Delete(_ context.Context, _ *pb.DeleteCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	return m.deleteResp, m.deleteErr
}

// --- Tests ---

func TestNewWithClients(t *testing.T) {
	s := NewWithClients(&mockPoints{}, &mockCollections{}, "test")
	if s == nil {
		t.Fatal("expected non-nil")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestEnsureCollection_AlreadyExists(t *testing.T) {
	cols := &mockCollections{
		listResp: &pb.ListCollectionsResponse{
			Collections: []*pb.CollectionDescription{{Name: "test"}},
		},
	}
	s := NewWithClients(&mockPoints{}, cols, "test")
	if err := s.EnsureCollection(context.Background(), 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.created != nil {
		t.Fatal("should not create an existing collection")
	}
}

func TestEnsureCollection_Creates(t *testing.T) {
	cols := &mockCollections{
		listResp:   &pb.ListCollectionsResponse{Collections: []*pb.CollectionDescription{{Name: "other"}}},
		createResp: &pb.CollectionOperationResponse{Result: true},
	}
	s := NewWithClients(&mockPoints{}, cols, "test")
	if err := s.EnsureCollection(context.Background(), 1536); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.created == nil {
		t.Fatal("expected create call")
	}
	params := cols.created.GetVectorsConfig().GetParams()
	if params.GetSize() != 1536 {
		t.Fatalf("wrong dims: %d", params.GetSize())
	}
	if params.GetDistance() != pb.Distance_Cosine {
		t.Fatalf("wrong distance: %v", params.GetDistance())
	}
}

func TestEnsureCollection_ListError(t *testing.T) {
	cols := &mockCollections{listErr: errors.New("rpc fail")}
	s := NewWithClients(&mockPoints{}, cols, "test")
	if err := s.EnsureCollection(context.Background(), 4); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnsureCollection_CreateError(t *testing.T) {
	cols := &mockCollections{
		listResp:  &pb.ListCollectionsResponse{},
		createErr: errors.New("create fail"),
	}
	s := NewWithClients(&mockPoints{}, cols, "test")
	if err := s.EnsureCollection(context.Background(), 4); err == nil {
		t.Fatal("expected error")
	}
}

func TestReset(t *testing.T) {
	cols := &mockCollections{deleteResp: &pb.CollectionOperationResponse{Result: true}}
	s := NewWithClients(&mockPoints{}, cols, "test")
	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := NewWithClients(&mockPoints{}, &mockCollections{deleteErr: errors.New("fail")}, "test")
	if err := bad.Reset(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestUpsert_Empty(t *testing.T) {
	pts := &mockPoints{}
	s := NewWithClients(pts, &mockCollections{}, "test")
	if err := s.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pts.lastUpsert != nil {
		t.Fatal("empty upsert should not call the store")
	}
}

func TestUpsert_Success(t *testing.T) {
	pts := &mockPoints{upsertResp: &pb.PointsOperationResponse{}}
	s := NewWithClients(pts, &mockCollections{}, "test")

	records := []Record{
		{ID: "chunk_0", Vector: []float32{1, 0, 0, 0}, Text: "first passage", Ordinal: 0},
		{ID: "chunk_1", Vector: []float32{0, 1, 0, 0}, Text: "second passage", Ordinal: 1},
	}
	if err := s.Upsert(context.Background(), records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := pts.lastUpsert
	if got == nil || len(got.GetPoints()) != 2 {
		t.Fatal("expected 2 points in one write")
	}
	if got.GetWait() != true {
		t.Fatal("upsert should wait for the write")
	}
	p := got.GetPoints()[0]
	if p.GetPayload()["chunk_id"].GetStringValue() != "chunk_0" {
		t.Fatal("missing chunk_id payload")
	}
	if p.GetPayload()["text"].GetStringValue() != "first passage" {
		t.Fatal("missing text payload")
	}
	if p.GetPayload()["ordinal"].GetIntegerValue() != 0 {
		t.Fatal("missing ordinal payload")
	}
}

func TestUpsert_DeterministicPointIDs(t *testing.T) {
	pts := &mockPoints{upsertResp: &pb.PointsOperationResponse{}}
	s := NewWithClients(pts, &mockCollections{}, "test")

	rec := []Record{{ID: "chunk_7", Vector: []float32{1}, Text: "t", Ordinal: 7}}
	_ = s.Upsert(context.Background(), rec)
	first := pts.lastUpsert.GetPoints()[0].GetId().GetUuid()

	_ = s.Upsert(context.Background(), rec)
	second := pts.lastUpsert.GetPoints()[0].GetId().GetUuid()

	if first == "" || first != second {
		t.Fatalf("point id must be stable, got %q then %q", first, second)
	}

	other := []Record{{ID: "chunk_8", Vector: []float32{1}, Text: "t", Ordinal: 8}}
	_ = s.Upsert(context.Background(), other)
	if pts.lastUpsert.GetPoints()[0].GetId().GetUuid() == first {
		t.Fatal("different logical ids must map to different points")
	}
}

func TestUpsert_Error(t *testing.T) {
	pts := &mockPoints{upsertErr: errors.New("fail")}
	s := NewWithClients(pts, &mockCollections{}, "test")
	err := s.Upsert(context.Background(), []Record{{ID: "chunk_0", Vector: []float32{1, 0}}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestQuery_Success(t *testing.T) {
	pts := &mockPoints{
		searchResp: &pb.SearchResponse{
			Result: []*pb.ScoredPoint{
				{
					Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "u1"}},
					Score: 0.95,
					Payload: map[string]*pb.Value{
						"chunk_id": {Kind: &pb.Value_StringValue{StringValue: "chunk_3"}},
						"text":     {Kind: &pb.Value_StringValue{StringValue: "warranty terms"}},
						"ordinal":  {Kind: &pb.Value_IntegerValue{IntegerValue: 3}},
					},
				},
			},
		},
	}
	s := NewWithClients(pts, &mockCollections{}, "test")
	hits, err := s.Query(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1, got %d", len(hits))
	}
	h := hits[0]
	if h.ID != "chunk_3" || h.Text != "warranty terms" || h.Ordinal != 3 {
		t.Fatalf("wrong hit: %+v", h)
	}
	if h.Score != 0.95 {
		t.Fatalf("wrong score: %f", h.Score)
	}
}

func TestQuery_FallsBackToPointID(t *testing.T) {
	pts := &mockPoints{
		searchResp: &pb.SearchResponse{
			Result: []*pb.ScoredPoint{
				{
					Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "u9"}},
					Score:   0.5,
					Payload: map[string]*pb.Value{},
				},
			},
		},
	}
	s := NewWithClients(pts, &mockCollections{}, "test")
	hits, err := s.Query(context.Background(), []float32{1}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits[0].ID != "u9" {
		t.Fatalf("expected uuid fallback, got %q", hits[0].ID)
	}
}

func TestQuery_Error(t *testing.T) {
	pts := &mockPoints{searchErr: errors.New("fail")}
	s := NewWithClients(pts, &mockCollections{}, "test")
	if _, err := s.Query(context.Background(), []float32{1}, 5); err == nil {
		t.Fatal("expected error")
	}
}

func TestQuery_EmptyResults(t *testing.T) {
	pts := &mockPoints{searchResp: &pb.SearchResponse{}}
	s := NewWithClients(pts, &mockCollections{}, "test")
	hits, err := s.Query(context.Background(), []float32{1}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected 0, got %d", len(hits))
	}
}

func TestCount(t *testing.T) {
	pts := &mockPoints{countResp: &pb.CountResponse{Result: &pb.CountResult{Count: 42}}}
	s := NewWithClients(pts, &mockCollections{}, "test")
	n, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 42 {
		t.Fatalf("expected 42, got %d", n)
	}

	bad := NewWithClients(&mockPoints{countErr: errors.New("fail")}, &mockCollections{}, "test")
	if _, err := bad.Count(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
