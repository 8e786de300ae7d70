package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driving"
)

// Ensure eventListener implements EventListener
var _ driving.EventListener = (*eventListener)(nil)

// eventListener keeps the index in step with host content changes.
type eventListener struct {
	indexing driving.IndexingService
	store    driven.ContentStore
	engines  EngineSource
	mapper   *FieldMapper
	logger   *slog.Logger
}

// EventListenerConfig holds dependencies for the event listener.
type EventListenerConfig struct {
	Indexing     driving.IndexingService
	ContentStore driven.ContentStore
	Engines      EngineSource
	Mapper       *FieldMapper
	Logger       *slog.Logger
}

// NewEventListener creates a new EventListener
func NewEventListener(cfg EventListenerConfig) driving.EventListener {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &eventListener{
		indexing: cfg.Indexing,
		store:    cfg.ContentStore,
		engines:  cfg.Engines,
		mapper:   cfg.Mapper,
		logger:   logger,
	}
}

// OnCreated indexes a new unit; a new page brings its dependents along
func (l *eventListener) OnCreated(ctx context.Context, ref domain.ContentRef) error {
	return l.reindex(ctx, ref)
}

// OnUpdated reindexes a unit; an updated page brings its dependents along
func (l *eventListener) OnUpdated(ctx context.Context, ref domain.ContentRef) error {
	return l.reindex(ctx, ref)
}

// OnDeleted removes a unit. Removing a page also removes every entry that
// references it in the same language.
func (l *eventListener) OnDeleted(ctx context.Context, ref domain.ContentRef) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if ref.Type != domain.UnitTypePage {
		return l.indexing.DeleteIndex(ctx, ref)
	}

	engine, err := l.engines.Engine(ctx)
	if err != nil {
		return err
	}
	lang := l.mapper.Language(ref.Language)
	filter := map[string]string{
		domain.FieldWiki: ref.Wiki,
		domain.LocalizedField(domain.FieldDocRef, lang): ref.DocRef(),
	}
	if err := engine.DeleteByFilter(ctx, filter); err != nil {
		return engineError(err)
	}
	l.logger.Info("removed deleted page from index", "unit", ref.String())
	return nil
}

// OnAttachmentChanged reindexes the attachment alone
func (l *eventListener) OnAttachmentChanged(ctx context.Context, ref domain.ContentRef) error {
	if ref.Type != domain.UnitTypeAttachment {
		return fmt.Errorf("%w: %s is not an attachment", domain.ErrInvalidInput, ref)
	}
	_, err := l.indexing.IndexUnits(ctx, []domain.ContentRef{ref})
	return err
}

// Handle dispatches event to the matching handler
func (l *eventListener) Handle(ctx context.Context, event domain.ContentEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	l.logger.Debug("content event", "kind", event.Kind, "unit", event.Ref.String())

	switch event.Kind {
	case domain.EventCreated:
		return l.OnCreated(ctx, event.Ref)
	case domain.EventUpdated:
		return l.OnUpdated(ctx, event.Ref)
	case domain.EventDeleted:
		return l.OnDeleted(ctx, event.Ref)
	default:
		return l.OnAttachmentChanged(ctx, event.Ref)
	}
}

func (l *eventListener) reindex(ctx context.Context, ref domain.ContentRef) error {
	if err := ref.Validate(); err != nil {
		return err
	}

	refs := []domain.ContentRef{ref}
	if ref.Type == domain.UnitTypePage {
		deps, err := l.store.Dependents(ctx, ref)
		if err != nil {
			l.logger.Warn("failed to list page dependents", "unit", ref.String(), "error", err)
		}
		refs = append(refs, deps...)
	}

	_, err := l.indexing.IndexUnits(ctx, refs)
	return err
}
