package store

import (
	"time"

	"today-dashboard-api/internal/domain"
)

// DefaultEventMaxAge is how long a cached event set counts as fresh.
const DefaultEventMaxAge = 5 * time.Minute

// PutEvents replaces a user's cached event set wholesale and stamps the
// fetch time.
func (s *FileStore) PutEvents(userID domain.UserID, events []domain.CalendarEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[userID] = domain.CachedEventSet{
		UserID:    userID,
		Events:    events,
		FetchedAt: time.Now(),
	}
	s.persist(eventsFile, s.events)
}

// GetEvents returns the last cached event set for a user, if any.
func (s *FileStore) GetEvents(userID domain.UserID) (domain.CachedEventSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.events[userID]
	return set, ok
}

// EventsFresh reports whether the cached event set is younger than maxAge.
// An empty cache is never fresh.
func (s *FileStore) EventsFresh(userID domain.UserID, maxAge time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.events[userID]
	if !ok {
		return false
	}
	return time.Since(set.FetchedAt) < maxAge
}

// RemoveEvents drops a user's cached events (logout).
func (s *FileStore) RemoveEvents(userID domain.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.events, userID)
	s.persist(eventsFile, s.events)
}
