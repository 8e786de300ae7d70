package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driving"
)

func newTestListener(f *indexingFixture) driving.EventListener {
	return NewEventListener(EventListenerConfig{
		Indexing:     f.service,
		ContentStore: f.store,
		Engines:      f.registry,
		Mapper:       f.mapper,
		Logger:       discardLogger(),
	})
}

func (f *indexingFixture) waitAll(t *testing.T) {
	t.Helper()
	for _, s := range f.indexer.Jobs() {
		f.wait(t, s.JobID)
	}
}

func TestEventListener_UpdatedPageBringsDependents(t *testing.T) {
	f := newIndexingFixture(t)
	l := newTestListener(f)

	page := pageUnit("Main", "WebHome", "en", "hello")
	attachment := &domain.ContentUnit{
		Ref:      domain.ContentRef{Type: domain.UnitTypeAttachment, Wiki: "xwiki", Space: "Main", Page: "WebHome", Filename: "notes.txt"},
		MimeType: "text/plain",
		Data:     []byte("notes"),
	}
	object := &domain.ContentUnit{
		Ref:        domain.ContentRef{Type: domain.UnitTypeObject, Wiki: "xwiki", Space: "Main", Page: "WebHome", ObjectType: "XWiki.TagClass"},
		Properties: []domain.Property{{Name: "tags", Value: "news"}},
	}
	f.store.Put(page, attachment, object)

	require.NoError(t, l.Handle(context.Background(), domain.ContentEvent{Kind: domain.EventUpdated, Ref: page.Ref}))
	f.waitAll(t)

	assert.Equal(t, 3, f.engine.Len())
	_, ok := f.engine.Record("xwiki.main.webhome.en.file.notes\\.txt")
	assert.True(t, ok)
}

func TestEventListener_DeletedPageRemovesEntries(t *testing.T) {
	f := newIndexingFixture(t)
	l := newTestListener(f)

	en := pageUnit("Main", "WebHome", "en", "hello")
	fr := pageUnit("Main", "WebHome", "fr", "bonjour")
	attachment := &domain.ContentUnit{
		Ref:      domain.ContentRef{Type: domain.UnitTypeAttachment, Wiki: "xwiki", Space: "Main", Page: "WebHome", Filename: "a.txt"},
		MimeType: "text/plain",
		Data:     []byte("a"),
	}
	f.store.Put(en, fr, attachment)

	require.NoError(t, l.OnCreated(context.Background(), en.Ref))
	require.NoError(t, l.OnCreated(context.Background(), fr.Ref))
	f.waitAll(t)
	require.Equal(t, 3, f.engine.Len())

	require.NoError(t, l.Handle(context.Background(), domain.ContentEvent{Kind: domain.EventDeleted, Ref: en.Ref}))

	assert.Equal(t, 1, f.engine.Len(), "only the french translation remains")
	_, ok := f.engine.Record("xwiki.main.webhome.fr")
	assert.True(t, ok)
}

func TestEventListener_DeletedAttachment(t *testing.T) {
	f := newIndexingFixture(t)
	l := newTestListener(f)

	attachment := &domain.ContentUnit{
		Ref:      domain.ContentRef{Type: domain.UnitTypeAttachment, Wiki: "xwiki", Space: "Main", Page: "WebHome", Filename: "a.txt"},
		MimeType: "text/plain",
		Data:     []byte("a"),
	}
	f.store.Put(attachment)

	require.NoError(t, l.OnAttachmentChanged(context.Background(), attachment.Ref))
	f.waitAll(t)
	require.Equal(t, 1, f.engine.Len())

	require.NoError(t, l.OnDeleted(context.Background(), attachment.Ref))
	assert.Equal(t, 0, f.engine.Len())
}

func TestEventListener_RejectsInvalidEvents(t *testing.T) {
	f := newIndexingFixture(t)
	l := newTestListener(f)

	err := l.Handle(context.Background(), domain.ContentEvent{Kind: "renamed", Ref: pageRef("Main", "WebHome", "en")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = l.OnAttachmentChanged(context.Background(), pageRef("Main", "WebHome", "en"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = l.OnDeleted(context.Background(), domain.ContentRef{Type: domain.UnitTypePage})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
