package ragdex

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragdex/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/ragdex/internal/usecase/query"
)

// --- ingestUseCase mock ---

type mockIngestUC struct {
	batchFn  func(ctx context.Context, sourceURIs []string, opts ingestuc.Options) ingestuc.Summary
	getFn    func(ctx context.Context, id string) (domdoc.Document, error)
	chunksFn func(ctx context.Context, id string) (domdoc.Document, []chunk.Chunk, error)
	listFn   func(ctx context.Context, cursor string, limit int) ([]domdoc.Document, string, error)
	countFn  func(ctx context.Context) (int, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockIngestUC) IngestBatch(
	ctx context.Context, sourceURIs []string, opts ingestuc.Options,
) ingestuc.Summary {
	return m.batchFn(ctx, sourceURIs, opts)
}

func (m *mockIngestUC) Get(ctx context.Context, id string) (domdoc.Document, error) {
	return m.getFn(ctx, id)
}

func (m *mockIngestUC) Chunks(ctx context.Context, id string) (domdoc.Document, []chunk.Chunk, error) {
	return m.chunksFn(ctx, id)
}

func (m *mockIngestUC) List(
	ctx context.Context, cursor string, limit int,
) ([]domdoc.Document, string, error) {
	return m.listFn(ctx, cursor, limit)
}

func (m *mockIngestUC) Count(ctx context.Context) (int, error) {
	return m.countFn(ctx)
}

func (m *mockIngestUC) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

// --- queryUseCase mock ---

type mockQueryUC struct {
	searchFn func(ctx context.Context, req *request.Request) (*queryuc.Response, error)
}

func (m *mockQueryUC) Search(ctx context.Context, req *request.Request) (*queryuc.Response, error) {
	return m.searchFn(ctx, req)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report {
	return m.report
}

// --- helpers ---

func testClient(ingestSvc ingestUseCase, querySvc queryUseCase, healthSvc healthUseCase) *Client {
	return &Client{
		ingestSvc: ingestSvc,
		querySvc:  querySvc,
		healthSvc: healthSvc,
	}
}
