package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-wiki/internal/runtime"
	"github.com/custodia-labs/sercha-wiki/internal/worker"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pageRef(space, page, lang string) domain.ContentRef {
	return domain.ContentRef{Type: domain.UnitTypePage, Wiki: "xwiki", Space: space, Page: page, Language: lang}
}

func pageUnit(space, page, lang, content string) *domain.ContentUnit {
	return &domain.ContentUnit{
		Ref:     pageRef(space, page, lang),
		Title:   page + " title",
		Content: content,
		Syntax:  "text/plain",
		Author:  "XWiki.Admin",
		Version: "1.1",
		Date:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestMapper() *FieldMapper {
	return NewFieldMapper(FieldMapperConfig{
		Renderer:        &mocks.MockRenderer{},
		Extractor:       &mocks.MockTextExtractor{},
		DefaultLanguage: "en",
		Logger:          discardLogger(),
	})
}

func staticEngines(engine driven.IndexEngine) *runtime.EngineRegistry {
	return runtime.NewEngineRegistry("mock", func(ctx context.Context) (driven.IndexEngine, error) {
		return engine, nil
	})
}

type indexerFixture struct {
	engine   *mocks.MockIndexEngine
	store    *mocks.MockContentStore
	jobs     *mocks.MockJobStore
	mapper   *FieldMapper
	indexer  *BatchIndexer
	registry *runtime.EngineRegistry
}

func newIndexerFixture(t *testing.T, batchSize int) *indexerFixture {
	t.Helper()

	f := &indexerFixture{
		engine: mocks.NewMockIndexEngine(),
		store:  mocks.NewMockContentStore(),
		jobs:   mocks.NewMockJobStore(),
		mapper: newTestMapper(),
	}
	f.registry = staticEngines(f.engine)
	f.indexer = NewBatchIndexer(BatchIndexerConfig{
		Engines:      f.registry,
		ContentStore: f.store,
		Mapper:       f.mapper,
		JobStore:     f.jobs,
		Pool:         worker.NewPool(worker.PoolConfig{Concurrency: 1, QueueSize: 8, Logger: discardLogger()}),
		BatchSize:    batchSize,
		Logger:       discardLogger(),
	})
	if err := f.indexer.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(f.indexer.Stop)
	return f
}

func waitJob(t *testing.T, h *JobHandle) domain.ProgressState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := h.Wait(ctx)
	if err != nil {
		t.Fatalf("job %s did not finish: %v", h.ID(), err)
	}
	return state
}
