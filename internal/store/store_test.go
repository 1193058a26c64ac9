package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"today-dashboard-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	t.Setenv("ENCRYPTION_KEY", testKey)

	s, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestPutGetRemoveToken(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.GetToken("alice")
	assert.False(t, ok)

	rec := domain.TokenRecord{
		AccessToken:  "A1",
		RefreshToken: "R1",
		Expiry:       time.Now().Add(time.Hour),
		TokenType:    "Bearer",
	}
	s.PutToken("alice", rec)

	got, ok := s.GetToken("alice")
	assert.True(t, ok)
	assert.Equal(t, rec, got)

	s.RemoveToken("alice")
	_, ok = s.GetToken("alice")
	assert.False(t, ok)
}

func TestTokenExpired(t *testing.T) {
	s := newTestStore(t)

	// No record: not expired.
	assert.False(t, s.TokenExpired("alice"))

	// Zero expiry: treated as never-expiring.
	s.PutToken("alice", domain.TokenRecord{AccessToken: "A1"})
	assert.False(t, s.TokenExpired("alice"))

	// Future expiry.
	s.PutToken("alice", domain.TokenRecord{AccessToken: "A1", Expiry: time.Now().Add(time.Hour)})
	assert.False(t, s.TokenExpired("alice"))

	// Past expiry.
	s.PutToken("alice", domain.TokenRecord{AccessToken: "A1", Expiry: time.Now().Add(-time.Second)})
	assert.True(t, s.TokenExpired("alice"))
}

func TestProfiles(t *testing.T) {
	s := newTestStore(t)

	assert.Empty(t, s.ListProfiles())
	assert.Empty(t, s.ListUserIDs())

	s.PutProfile(domain.UserProfile{ID: "bob", Name: "Bob", Email: "bob@example.com"})
	s.PutProfile(domain.UserProfile{ID: "alice", Name: "Alice", Email: "alice@example.com"})

	p, ok := s.GetProfile("alice")
	assert.True(t, ok)
	assert.Equal(t, "Alice", p.Name)

	// Listing is ordered by user id.
	ids := s.ListUserIDs()
	assert.Equal(t, []domain.UserID{"alice", "bob"}, ids)

	profiles := s.ListProfiles()
	require.Len(t, profiles, 2)
	assert.Equal(t, domain.UserID("alice"), profiles[0].ID)
	assert.Equal(t, domain.UserID("bob"), profiles[1].ID)
}

func TestEventsFreshness(t *testing.T) {
	s := newTestStore(t)

	// Empty cache: never fresh, no events.
	assert.False(t, s.EventsFresh("alice", DefaultEventMaxAge))
	_, ok := s.GetEvents("alice")
	assert.False(t, ok)

	events := []domain.CalendarEvent{{ID: "e1", Subject: "Standup"}}
	s.PutEvents("alice", events)

	// Fresh immediately after put.
	assert.True(t, s.EventsFresh("alice", DefaultEventMaxAge))

	set, ok := s.GetEvents("alice")
	assert.True(t, ok)
	assert.Equal(t, domain.UserID("alice"), set.UserID)
	assert.Equal(t, events, set.Events)
	assert.WithinDuration(t, time.Now(), set.FetchedAt, time.Second)

	// Backdate the fetch time past the max age.
	s.mu.Lock()
	stale := s.events["alice"]
	stale.FetchedAt = time.Now().Add(-DefaultEventMaxAge)
	s.events["alice"] = stale
	s.mu.Unlock()

	assert.False(t, s.EventsFresh("alice", DefaultEventMaxAge))
}

func TestRemoveEvents(t *testing.T) {
	s := newTestStore(t)

	s.PutEvents("alice", []domain.CalendarEvent{{ID: "e1"}})
	s.RemoveEvents("alice")

	_, ok := s.GetEvents("alice")
	assert.False(t, ok)
}

func TestPersistenceRoundTrip(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", testKey)
	dir := t.TempDir()

	s1, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	s1.PutToken("alice", domain.TokenRecord{
		AccessToken:  "A1",
		RefreshToken: "R1",
		Expiry:       expiry,
		TokenType:    "Bearer",
	})
	s1.PutProfile(domain.UserProfile{ID: "alice", Name: "Alice", Email: "alice@example.com"})
	s1.PutEvents("alice", []domain.CalendarEvent{{ID: "e1", Subject: "Standup"}})
	require.NoError(t, s1.Close())

	// A second store on the same directory sees everything back.
	s2, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)

	rec, ok := s2.GetToken("alice")
	require.True(t, ok)
	assert.Equal(t, "A1", rec.AccessToken)
	assert.Equal(t, "R1", rec.RefreshToken)
	assert.Equal(t, "Bearer", rec.TokenType)
	assert.WithinDuration(t, expiry, rec.Expiry, time.Second)

	p, ok := s2.GetProfile("alice")
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", p.Email)

	set, ok := s2.GetEvents("alice")
	require.True(t, ok)
	require.Len(t, set.Events, 1)
	assert.Equal(t, "Standup", set.Events[0].Subject)
}

func TestTokensEncryptedAtRest(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", testKey)
	dir := t.TempDir()

	s, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)

	s.PutToken("alice", domain.TokenRecord{AccessToken: "super-secret-access-token"})

	data, err := os.ReadFile(filepath.Join(dir, tokensFile))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "super-secret-access-token")
}

func TestLoadSkipsUndecryptableTokens(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", testKey)
	dir := t.TempDir()

	s1, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)
	s1.PutToken("alice", domain.TokenRecord{AccessToken: "A1"})

	// A different key makes the record undecryptable.
	t.Setenv("ENCRYPTION_KEY", "ffffffffffffffffffffffffffffffff")

	s2, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)
	_, ok := s2.GetToken("alice")
	assert.False(t, ok)
}

func TestCorruptTableStartsEmpty(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", testKey)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, profilesFile), []byte("{not json"), 0o600))

	s, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, s.ListProfiles())
}

func TestPersistenceFailureIsSwallowed(t *testing.T) {
	// Without a usable key the token table cannot be written; the
	// mutation must still land in memory.
	t.Setenv("ENCRYPTION_KEY", testKey)
	s, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	t.Setenv("ENCRYPTION_KEY", "short")
	s.PutToken("alice", domain.TokenRecord{AccessToken: "A1"})

	rec, ok := s.GetToken("alice")
	assert.True(t, ok)
	assert.Equal(t, "A1", rec.AccessToken)
}

func TestWriteTableIsAtomic(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", testKey)
	dir := t.TempDir()

	s, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)

	s.PutProfile(domain.UserProfile{ID: "alice"})

	// No tmp file left behind, and the table is valid JSON.
	_, err = os.Stat(filepath.Join(dir, profilesFile+".tmp"))
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(dir, profilesFile))
	require.NoError(t, err)
	var table map[domain.UserID]domain.UserProfile
	assert.NoError(t, json.Unmarshal(data, &table))
	assert.Contains(t, table, domain.UserID("alice"))
}
