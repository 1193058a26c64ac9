package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"today-dashboard-api/internal/domain"
	"today-dashboard-api/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// fakeTokenSource returns a canned token or error per user id.
type fakeTokenSource struct {
	mu     sync.Mutex
	tokens map[domain.UserID]*oauth2.Token
	errs   map[domain.UserID]error
	calls  map[domain.UserID]int
}

func (f *fakeTokenSource) ValidToken(_ context.Context, userID domain.UserID) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.calls == nil {
		f.calls = make(map[domain.UserID]int)
	}
	f.calls[userID]++

	if err := f.errs[userID]; err != nil {
		return nil, err
	}
	return f.tokens[userID], nil
}

// fakeFetcher returns canned events, or an error for the users listed in
// failFor.
type fakeFetcher struct {
	events  []domain.CalendarEvent
	failFor map[string]bool
}

func (f *fakeFetcher) TodayEvents(_ context.Context, token *oauth2.Token) ([]domain.CalendarEvent, error) {
	if f.failFor[token.AccessToken] {
		return nil, errors.New("upstream unavailable")
	}
	return f.events, nil
}

func newTestStore(t *testing.T) *store.FileStore {
	t.Helper()
	t.Setenv("ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	s, err := store.NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestNewWorker_NilDependencies(t *testing.T) {
	st := newTestStore(t)

	_, err := NewWorker(st, nil, &fakeFetcher{}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewWorker(st, &fakeTokenSource{}, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestNextDelay_Bounds(t *testing.T) {
	for i := 0; i < 1000; i++ {
		d := nextDelay()
		assert.GreaterOrEqual(t, d, 50*time.Second)
		assert.LessOrEqual(t, d, 70*time.Second)
	}
}

func TestRunCycle_RefreshesEveryUserOnce(t *testing.T) {
	st := newTestStore(t)
	st.PutProfile(domain.UserProfile{ID: "alice"})
	st.PutProfile(domain.UserProfile{ID: "bob"})

	tokens := &fakeTokenSource{tokens: map[domain.UserID]*oauth2.Token{
		"alice": {AccessToken: "tok-alice"},
		"bob":   {AccessToken: "tok-bob"},
	}}
	fetcher := &fakeFetcher{events: []domain.CalendarEvent{{ID: "e1", Subject: "Standup"}}}

	w, err := NewWorker(st, tokens, fetcher, zap.NewNop())
	require.NoError(t, err)

	w.runCycle()

	assert.Equal(t, 1, tokens.calls["alice"])
	assert.Equal(t, 1, tokens.calls["bob"])

	for _, id := range []domain.UserID{"alice", "bob"} {
		set, ok := st.GetEvents(id)
		require.True(t, ok, "expected cached events for %s", id)
		assert.Len(t, set.Events, 1)
		assert.True(t, st.EventsFresh(id, store.DefaultEventMaxAge))
	}
}

func TestRunCycle_FailureDoesNotBlockOtherUsers(t *testing.T) {
	st := newTestStore(t)
	st.PutProfile(domain.UserProfile{ID: "alice"})
	st.PutProfile(domain.UserProfile{ID: "bob"})

	// Alice has no usable token; Bob's fetch succeeds.
	tokens := &fakeTokenSource{
		tokens: map[domain.UserID]*oauth2.Token{"bob": {AccessToken: "tok-bob"}},
		errs:   map[domain.UserID]error{"alice": errors.New("no usable credential")},
	}
	fetcher := &fakeFetcher{events: []domain.CalendarEvent{{ID: "e1"}}}

	w, err := NewWorker(st, tokens, fetcher, zap.NewNop())
	require.NoError(t, err)

	w.runCycle()

	_, ok := st.GetEvents("alice")
	assert.False(t, ok)

	set, ok := st.GetEvents("bob")
	require.True(t, ok)
	assert.Len(t, set.Events, 1)
}

func TestRunCycle_FetchFailureLeavesCacheUntouched(t *testing.T) {
	st := newTestStore(t)
	st.PutProfile(domain.UserProfile{ID: "alice"})
	st.PutEvents("alice", []domain.CalendarEvent{{ID: "old"}})

	tokens := &fakeTokenSource{tokens: map[domain.UserID]*oauth2.Token{
		"alice": {AccessToken: "tok-alice"},
	}}
	fetcher := &fakeFetcher{failFor: map[string]bool{"tok-alice": true}}

	w, err := NewWorker(st, tokens, fetcher, zap.NewNop())
	require.NoError(t, err)

	w.runCycle()

	// The previous cache survives a failed fetch.
	set, ok := st.GetEvents("alice")
	require.True(t, ok)
	assert.Equal(t, "old", set.Events[0].ID)
}

func TestRunCycle_NoUsers(t *testing.T) {
	st := newTestStore(t)

	w, err := NewWorker(st, &fakeTokenSource{}, &fakeFetcher{}, zap.NewNop())
	require.NoError(t, err)

	// Must simply do nothing.
	w.runCycle()
}

func TestStartStop(t *testing.T) {
	st := newTestStore(t)

	w, err := NewWorker(st, &fakeTokenSource{}, &fakeFetcher{}, zap.NewNop())
	require.NoError(t, err)

	w.Start()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop in time")
	}
}
