package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"today-dashboard-api/internal/domain"

	"go.uber.org/zap"
)

// Storer is the interface for the process-wide cache of tokens, profiles
// and events. There is exactly one implementation per process; the API
// server and the worker share it.
type Storer interface {
	PutToken(userID domain.UserID, rec domain.TokenRecord)
	GetToken(userID domain.UserID) (domain.TokenRecord, bool)
	TokenExpired(userID domain.UserID) bool
	RemoveToken(userID domain.UserID)

	PutProfile(profile domain.UserProfile)
	GetProfile(userID domain.UserID) (domain.UserProfile, bool)
	ListProfiles() []domain.UserProfile
	ListUserIDs() []domain.UserID

	PutEvents(userID domain.UserID, events []domain.CalendarEvent)
	GetEvents(userID domain.UserID) (domain.CachedEventSet, bool)
	EventsFresh(userID domain.UserID, maxAge time.Duration) bool
	RemoveEvents(userID domain.UserID)

	Close() error
}

const (
	tokensFile   = "tokens.json"
	profilesFile = "profiles.json"
	eventsFile   = "events.json"
)

// FileStore keeps the three tables in memory and rewrites the affected
// table to disk wholesale after every mutation. Persistence is best
// effort: a failed write is logged and the in-memory state stays
// authoritative. The single mutex covers both the maps and the table
// rewrite, so there is never more than one writer per file.
type FileStore struct {
	mu     sync.Mutex
	dir    string
	logger *zap.Logger

	tokens   map[domain.UserID]domain.TokenRecord
	profiles map[domain.UserID]domain.UserProfile
	events   map[domain.UserID]domain.CachedEventSet
}

// NewFileStore loads the persisted tables from dir, creating it when
// missing. Records that cannot be read back (corrupt file, undecryptable
// token) are skipped with a warning rather than failing startup.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create data directory %s: %w", dir, err)
	}

	s := &FileStore{
		dir:      dir,
		logger:   logger,
		tokens:   make(map[domain.UserID]domain.TokenRecord),
		profiles: make(map[domain.UserID]domain.UserProfile),
		events:   make(map[domain.UserID]domain.CachedEventSet),
	}

	s.loadTokens()
	s.loadTable(profilesFile, &s.profiles)
	s.loadTable(eventsFile, &s.events)

	return s, nil
}

// Close flushes all three tables one last time.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return errors.Join(
		s.writeTokensLocked(),
		s.writeTable(profilesFile, s.profiles),
		s.writeTable(eventsFile, s.events),
	)
}

// writeTable serializes one table wholesale via tmp+rename, so readers
// never observe a partial file. Caller must hold s.mu.
func (s *FileStore) writeTable(name string, table any) error {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("could not write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("could not replace %s: %w", name, err)
	}

	return nil
}

// persist is writeTable with the best-effort policy applied: failures are
// logged, never propagated to the mutating caller.
func (s *FileStore) persist(name string, table any) {
	if err := s.writeTable(name, table); err != nil {
		s.logger.Error("persistence failed, in-memory state remains authoritative",
			zap.Error(err),
			zap.String("table", name),
			zap.String("component", "store"),
		)
	}
}

func (s *FileStore) loadTable(name string, into any) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("could not read persisted table, starting empty",
				zap.Error(err), zap.String("table", name), zap.String("component", "store"))
		}
		return
	}

	if err := json.Unmarshal(data, into); err != nil {
		s.logger.Warn("persisted table is corrupt, starting empty",
			zap.Error(err), zap.String("table", name), zap.String("component", "store"))
	}
}
