package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-labs/sercha-wiki/internal/config"
	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// fakeIndexing records submissions and replays job states.
type fakeIndexing struct {
	mu        sync.Mutex
	states    []*domain.ProgressState
	calls     int
	scope     domain.Scope
	cancelled string
	indexAll  bool
}

func (f *fakeIndexing) IndexUnits(ctx context.Context, refs []domain.ContentRef) (string, error) {
	return "job-units", nil
}

func (f *fakeIndexing) IndexUnitsInScope(ctx context.Context, scope domain.Scope, refs []domain.ContentRef) (string, error) {
	f.scope = scope
	return "job-scope", nil
}

func (f *fakeIndexing) IndexAll(ctx context.Context) (string, error) {
	f.indexAll = true
	return "job-all", nil
}

func (f *fakeIndexing) Status(ctx context.Context) ([]*domain.ProgressState, error) {
	return f.states, nil
}

func (f *fakeIndexing) JobStatus(ctx context.Context, jobID string) (*domain.ProgressState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) == 0 {
		return nil, domain.ErrJobNotFound
	}
	i := f.calls
	if i >= len(f.states) {
		i = len(f.states) - 1
	}
	f.calls++
	return f.states[i], nil
}

func (f *fakeIndexing) StatusJSON(ctx context.Context) ([]byte, error) { return []byte("[]"), nil }

func (f *fakeIndexing) CancelJob(ctx context.Context, jobID string) error {
	f.cancelled = jobID
	return nil
}

func (f *fakeIndexing) DeleteIndex(ctx context.Context, ref domain.ContentRef) error { return nil }
func (f *fakeIndexing) DeleteScope(ctx context.Context, scope domain.Scope) error    { return nil }
func (f *fakeIndexing) DeleteEntireIndex(ctx context.Context) error                  { return nil }

func TestEngineFactory(t *testing.T) {
	t.Run("bleve in memory", func(t *testing.T) {
		c := config.Default()
		c.Engine.BlevePath = ""

		factory, err := engineFactory(c, nil)
		require.NoError(t, err)

		engine, err := factory(context.Background())
		require.NoError(t, err)
		defer engine.Close()

		count, err := engine.Count(context.Background())
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("vespa with bad endpoint", func(t *testing.T) {
		c := config.Default()
		c.Engine.Backend = config.BackendVespa
		c.Engine.VespaURL = "not a url"

		factory, err := engineFactory(c, nil)
		require.NoError(t, err)

		engine, err := factory(context.Background())
		assert.Error(t, err)
		assert.Nil(t, engine)
	})

	t.Run("unknown backend", func(t *testing.T) {
		c := config.Default()
		c.Engine.Backend = "solr"

		_, err := engineFactory(c, nil)
		assert.ErrorIs(t, err, domain.ErrUnsupportedBackend)
	})
}

func TestSearchOptions_Request(t *testing.T) {
	opts := searchOptions{
		languages: []string{"fr"},
		rows:      5,
		start:     10,
		wiki:      "xwiki",
		space:     "Sandbox",
		filters:   map[string]string{"type": "DOCUMENT"},
		params:    map[string]string{"sort": "date desc"},
	}

	req, err := opts.request("release notes")
	require.NoError(t, err)

	assert.Equal(t, "release notes", req.Query)
	assert.Equal(t, []string{"fr"}, req.Languages)
	assert.Equal(t, "5", req.Params[domain.ParamRows])
	assert.Equal(t, "10", req.Params[domain.ParamStart])
	assert.Equal(t, "date desc", req.Params["sort"])
	assert.Equal(t, "DOCUMENT", req.Filters["type"])
	require.NotNil(t, req.Scope)
	assert.Equal(t, domain.Scope{Wiki: "xwiki", Space: "Sandbox"}, *req.Scope)

	_, err = searchOptions{space: "Sandbox"}.request("q")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchOptions_Requester(t *testing.T) {
	assert.True(t, searchOptions{}.requester().IsGuest())

	r := searchOptions{user: "XWiki.Alice", groups: []string{"XWiki.Editors"}}.requester()
	assert.Equal(t, "XWiki.Alice", r.UserID)
	assert.Equal(t, []string{"XWiki.Editors"}, r.Groups)
	assert.False(t, r.Admin)

	admin := searchOptions{admin: true}.requester()
	assert.True(t, admin.Admin)
	assert.False(t, admin.IsGuest())
}

func TestSubmitReindex(t *testing.T) {
	ctx := context.Background()

	all := &fakeIndexing{}
	id, err := submitReindex(ctx, all, "", "")
	require.NoError(t, err)
	assert.Equal(t, "job-all", id)
	assert.True(t, all.indexAll)

	scoped := &fakeIndexing{}
	id, err = submitReindex(ctx, scoped, "xwiki", "Sandbox")
	require.NoError(t, err)
	assert.Equal(t, "job-scope", id)
	assert.Equal(t, domain.Scope{Wiki: "xwiki", Space: "Sandbox"}, scoped.scope)

	_, err = submitReindex(ctx, &fakeIndexing{}, "", "Sandbox")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWaitForJob(t *testing.T) {
	ctx := context.Background()

	t.Run("completes", func(t *testing.T) {
		f := &fakeIndexing{states: []*domain.ProgressState{
			{JobID: "j1", Status: domain.JobStatusRunning, TotalCount: 4, IndexedCount: 1},
			{JobID: "j1", Status: domain.JobStatusRunning, TotalCount: 4, IndexedCount: 1},
			{JobID: "j1", Status: domain.JobStatusCompleted, TotalCount: 4, IndexedCount: 3, SkippedCount: 1},
		}}
		var out bytes.Buffer

		err := waitForJob(ctx, &out, f, "j1", time.Millisecond)
		require.NoError(t, err)

		lines := strings.Split(out.String(), "\n")
		assert.Equal(t, "[running] 25% 1/4 units", lines[0])
		assert.Equal(t, "[completed] 75% 3/4 units", lines[1], "unchanged states are printed once")
		assert.Contains(t, out.String(), "Units skipped:  1")
	})

	t.Run("failed", func(t *testing.T) {
		f := &fakeIndexing{states: []*domain.ProgressState{
			{JobID: "j2", Status: domain.JobStatusFailed, Error: "engine unavailable"},
		}}
		err := waitForJob(ctx, &bytes.Buffer{}, f, "j2", time.Millisecond)
		assert.EqualError(t, err, "engine unavailable")
	})

	t.Run("unknown job", func(t *testing.T) {
		err := waitForJob(ctx, &bytes.Buffer{}, &fakeIndexing{}, "nope", time.Millisecond)
		assert.True(t, errors.Is(err, domain.ErrJobNotFound))
	})
}

func TestProgressModel(t *testing.T) {
	m := newProgressModel(&fakeIndexing{}, "j1")
	assert.Equal(t, "Loading job status...\n", m.renderContent())

	next, _ := m.Update(jobUpdateMsg{job: &domain.ProgressState{
		JobID: "j1", Status: domain.JobStatusRunning, TotalCount: 10, IndexedCount: 5, EstimatedCompletion: "5s",
	}})
	m = next.(progressModel)
	assert.False(t, m.done)
	assert.Contains(t, m.renderContent(), "5/10 units")
	assert.Contains(t, m.renderContent(), "eta 5s")

	next, _ = m.Update(jobUpdateMsg{job: &domain.ProgressState{
		JobID: "j1", Status: domain.JobStatusCancelled, TotalCount: 10, IndexedCount: 6,
	}})
	m = next.(progressModel)
	assert.True(t, m.done)
	assert.EqualError(t, m.err, "job j1 cancelled")

	next, _ = newProgressModel(&fakeIndexing{}, "j2").Update(jobUpdateMsg{err: domain.ErrJobNotFound})
	assert.ErrorIs(t, next.(progressModel).err, domain.ErrJobNotFound)
}

func TestPrintResults(t *testing.T) {
	var out bytes.Buffer
	printResults(&out, &domain.SearchResponse{Query: "nothing"})
	assert.Equal(t, "No results for \"nothing\"\n", out.String())

	out.Reset()
	printResults(&out, &domain.SearchResponse{
		Query:        "roadmap",
		Language:     "en",
		TotalCount:   3,
		VisibleCount: 1,
		Results: []domain.SearchResult{{
			Type:        domain.UnitTypeAttachment,
			Wiki:        "xwiki",
			FullName:    "Main.Roadmap",
			Language:    "en",
			Filename:    "plan.pdf",
			Score:       1.5,
			DownloadURL: "http://wiki/download/Main/Roadmap/plan.pdf",
		}},
	})
	assert.Contains(t, out.String(), "1 visible of 3 matches")
	assert.Contains(t, out.String(), "1. Main.Roadmap [attachment] 1.500")
	assert.Contains(t, out.String(), "http://wiki/download/Main/Roadmap/plan.pdf")
}

func TestHashKeyCmd(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"hash-key", "--cost", "4", "wiki-webhook-key"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("wiki-webhook-key")))
}
