package store

import (
	"sort"

	"today-dashboard-api/internal/domain"
)

// PutProfile upserts a user profile. The auth flow only calls this on
// first login, so a profile is effectively immutable once written.
func (s *FileStore) PutProfile(profile domain.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[profile.ID] = profile
	s.persist(profilesFile, s.profiles)
}

// GetProfile returns the stored profile for a user, if any.
func (s *FileStore) GetProfile(userID domain.UserID) (domain.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	return p, ok
}

// ListProfiles returns all known profiles, ordered by user id so callers
// get a stable listing.
func (s *FileStore) ListProfiles() []domain.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := make([]domain.UserProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })

	return profiles
}

// ListUserIDs returns the ids of all known users. This is what the
// background worker enumerates each cycle.
func (s *FileStore) ListUserIDs() []domain.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]domain.UserID, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}
