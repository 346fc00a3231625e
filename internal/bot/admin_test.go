package bot

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMovieFullWorkflow(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	b.handleMessage(ctx, privateMsg(adminAlice, "/addmovie"))
	assert.Contains(t, api.lastText(), "Send the movie title")

	b.handleMessage(ctx, privateMsg(adminAlice, "Inception (2010)"))
	assert.Contains(t, api.lastText(), "forward the movie message")

	b.handleMessage(ctx, forwardedMsg(adminAlice, testChannelID, 77))
	assert.Contains(t, api.lastText(), "Is this correct?")
	require.NotNil(t, api.sent[len(api.sent)-1].markup)

	b.handleCallback(ctx, callback(adminAlice, adminAlice, "add:confirm"))
	assert.Contains(t, api.lastEdit(), "✅ Inception (2010) has been added with ID 1.")

	records, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Inception", records[0].Title)
	assert.Equal(t, 2010, records[0].Year)
	assert.Equal(t, "inception", records[0].SearchKey)
	assert.Equal(t, int64(testChannelID), records[0].Source.ChatID)
	assert.Equal(t, 77, records[0].Source.MessageID)
	assert.Equal(t, int64(adminAlice), records[0].AddedBy)

	assert.Nil(t, b.sessions.get(adminAlice), "session must be cleared after confirm")
}

func TestAddMovieWithInlineTitleSkipsTitleStep(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()

	b.handleMessage(ctx, privateMsg(adminAlice, "/addmovie The Matrix (1999)"))
	assert.Contains(t, api.lastText(), "Adding The Matrix (1999).")

	s := b.sessions.get(adminAlice)
	require.NotNil(t, s)
	assert.Equal(t, stateAwaitingReference, s.state)
}

func TestAddMovieRejectedInGroup(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.handleMessage(context.Background(), groupMsg(adminAlice, "/addmovie"))

	assert.Contains(t, api.lastText(), "in private")
	assert.Nil(t, b.sessions.get(adminAlice))
}

func TestAddMovieEmptyTitleKeepsState(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()

	b.handleMessage(ctx, privateMsg(adminAlice, "/addmovie"))
	b.handleMessage(ctx, privateMsg(adminAlice, "   "))

	assert.Contains(t, api.lastText(), "Title cannot be empty")
	s := b.sessions.get(adminAlice)
	require.NotNil(t, s)
	assert.Equal(t, stateAwaitingTitle, s.state)
}

func TestAddMovieNonForwardRejected(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()

	b.handleMessage(ctx, privateMsg(adminAlice, "/addmovie Dune (2021)"))
	b.handleMessage(ctx, privateMsg(adminAlice, "here is the movie I promise"))

	assert.Contains(t, api.lastText(), "not a forwarded message")
	assert.Equal(t, stateAwaitingReference, b.sessions.get(adminAlice).state)
}

func TestAddMovieForwardFromWrongChannelRejected(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()

	b.handleMessage(ctx, privateMsg(adminAlice, "/addmovie Dune (2021)"))
	b.handleMessage(ctx, forwardedMsg(adminAlice, -100999, 5))

	assert.Contains(t, api.lastText(), "not from the source channel")
	assert.Equal(t, stateAwaitingReference, b.sessions.get(adminAlice).state)
}

func TestAddMovieCancelButtonSavesNothing(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	b.handleMessage(ctx, privateMsg(adminAlice, "/addmovie Dune (2021)"))
	b.handleMessage(ctx, forwardedMsg(adminAlice, testChannelID, 5))
	b.handleCallback(ctx, callback(adminAlice, adminAlice, "add:cancel"))

	assert.Contains(t, api.lastEdit(), "cancelled")
	records, err := store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Nil(t, b.sessions.get(adminAlice))
}

func TestCancelCommandAbortsSession(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()

	b.handleMessage(ctx, privateMsg(adminAlice, "/addmovie"))
	b.handleMessage(ctx, privateMsg(adminAlice, "/cancel"))

	assert.Contains(t, api.lastText(), "Operation cancelled.")
	assert.Nil(t, b.sessions.get(adminAlice))
}

func TestAddMovieRestartReplacesSession(t *testing.T) {
	b, _, _ := newTestBot(t)
	ctx := context.Background()

	b.handleMessage(ctx, privateMsg(adminAlice, "/addmovie Dune (2021)"))
	b.handleMessage(ctx, privateMsg(adminAlice, "/addmovie"))

	s := b.sessions.get(adminAlice)
	require.NotNil(t, s)
	assert.Equal(t, stateAwaitingTitle, s.state)
	assert.Empty(t, s.title)
}

func TestAddDecisionWithoutSessionReportsExpired(t *testing.T) {
	b, api, store := newTestBot(t)

	b.handleCallback(context.Background(), callback(adminAlice, adminAlice, "add:confirm"))

	assert.Contains(t, api.lastEdit(), "expired")
	records, err := store.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestConcurrentAdminSessionsIsolated(t *testing.T) {
	b, _, store := newTestBot(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, tc := range []struct {
		admin     int64
		title     string
		messageID int
	}{
		{adminAlice, "Alien (1979)", 41},
		{adminBob, "Blade Runner (1982)", 42},
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.handleMessage(ctx, privateMsg(tc.admin, "/addmovie "+tc.title))
			b.handleMessage(ctx, forwardedMsg(tc.admin, testChannelID, tc.messageID))
			b.handleCallback(ctx, callback(tc.admin, tc.admin, "add:confirm"))
		}()
	}
	wg.Wait()

	records, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	byTitle := map[string]int{}
	for _, rec := range records {
		byTitle[rec.Title] = rec.Source.MessageID
	}
	assert.Equal(t, 41, byTitle["Alien"])
	assert.Equal(t, 42, byTitle["Blade Runner"])
}

func TestAdminCommandRejectedForNonAdmin(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.handleMessage(context.Background(), privateMsg(plainUser, "/addmovie"))

	assert.Contains(t, api.lastText(), "only admins")
	assert.Nil(t, b.sessions.get(plainUser))
}

func TestDeleteMovieMissingIDLeavesCatalog(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()
	seedMovie(t, store, "Dune", 2021, 10)
	seedMovie(t, store, "Alien", 1979, 11)

	b.handleMessage(ctx, privateMsg(adminAlice, "/deletemovie 99"))

	assert.Contains(t, api.lastText(), "No movie found with ID 99.")
	records, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestDeleteMovieRemovesRecord(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()
	seedMovie(t, store, "Dune", 2021, 10)

	b.handleMessage(ctx, privateMsg(adminAlice, "/deletemovie 1"))

	assert.Contains(t, api.lastText(), "Movie Dune (2021) has been deleted.")
	records, err := store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeleteMovieUsage(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.handleMessage(context.Background(), privateMsg(adminAlice, "/deletemovie"))

	assert.Contains(t, api.lastText(), "Usage: /deletemovie <id>")
}

func TestListMoviesIdempotent(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()
	seedMovie(t, store, "Dune", 2021, 10)
	seedMovie(t, store, "Alien", 1979, 11)

	b.handleMessage(ctx, privateMsg(adminAlice, "/listmovies"))
	first := api.lastText()
	b.handleMessage(ctx, privateMsg(adminAlice, "/listmovies"))
	second := api.lastText()

	assert.Equal(t, first, second)
	assert.Contains(t, first, "1. Dune (2021)")
	assert.Contains(t, first, "2. Alien (1979)")
}

func TestListMoviesEmptyCatalog(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.handleMessage(context.Background(), privateMsg(adminAlice, "/listmovies"))

	assert.Contains(t, api.lastText(), "No movies in the database yet.")
}

func TestListMoviesPagination(t *testing.T) {
	b, api, store := newTestBot(t)
	b.cfg.ListPageSize = 2
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		seedMovie(t, store, fmt.Sprintf("Movie %d", i), 2000+i, 100+i)
	}

	b.handleMessage(ctx, privateMsg(adminAlice, "/listmovies"))

	require.Len(t, api.sent, 1)
	assert.Contains(t, api.sent[0].text, "page 1/3")
	assert.Contains(t, api.sent[0].text, "1. Movie 1 (2001)")
	assert.Contains(t, api.sent[0].text, "2. Movie 2 (2002)")
	assert.NotContains(t, api.sent[0].text, "Movie 3")
	require.NotNil(t, api.sent[0].markup)

	b.handleCallback(ctx, callback(adminAlice, adminAlice, "list:3"))

	require.Len(t, api.edits, 1)
	assert.Contains(t, api.edits[0].text, "page 3/3")
	assert.Contains(t, api.edits[0].text, "5. Movie 5 (2005)")
}

func TestListMoviesPageClamped(t *testing.T) {
	b, api, store := newTestBot(t)
	seedMovie(t, store, "Dune", 2021, 10)

	b.handleMessage(context.Background(), privateMsg(adminAlice, "/listmovies 42"))

	assert.Contains(t, api.lastText(), "page 1/1")
}

func TestStatsReport(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()
	seedMovie(t, store, "Dune", 2021, 10)
	require.NoError(t, store.UpsertUser(ctx, plainUser))
	require.NoError(t, store.LogRequest(ctx, plainUser, 1, testGroupID))

	b.handleMessage(ctx, privateMsg(adminAlice, "/stats"))

	last := api.lastText()
	assert.Contains(t, last, "Movies: 1")
	assert.Contains(t, last, "Known users: 1")
	assert.Contains(t, last, "Requests served: 1")
}
