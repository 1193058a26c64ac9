package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"today-dashboard-api/internal/crypto"
	"today-dashboard-api/internal/domain"

	"go.uber.org/zap"
)

// diskTokenRecord is the at-rest shape of a token record: the credential
// material is AES-GCM encrypted before it touches disk.
type diskTokenRecord struct {
	AccessToken  []byte    `json:"access_token"`
	RefreshToken []byte    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
	TokenType    string    `json:"token_type,omitempty"`
}

// PutToken upserts the token record for a user and rewrites the token
// table to disk.
func (s *FileStore) PutToken(userID domain.UserID, rec domain.TokenRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[userID] = rec
	s.persistTokensLocked()
}

// GetToken returns the token record for a user, if any.
func (s *FileStore) GetToken(userID domain.UserID) (domain.TokenRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[userID]
	return rec, ok
}

// TokenExpired reports whether the stored access token has expired.
// A missing record or a zero expiry counts as not expired.
func (s *FileStore) TokenExpired(userID domain.UserID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[userID]
	if !ok || rec.Expiry.IsZero() {
		return false
	}
	return !time.Now().Before(rec.Expiry)
}

// RemoveToken deletes a user's token record (logout).
func (s *FileStore) RemoveToken(userID domain.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, userID)
	s.persistTokensLocked()
}

func (s *FileStore) persistTokensLocked() {
	if err := s.writeTokensLocked(); err != nil {
		s.logger.Error("persistence failed, in-memory state remains authoritative",
			zap.Error(err),
			zap.String("table", tokensFile),
			zap.String("component", "store"),
		)
	}
}

func (s *FileStore) writeTokensLocked() error {
	disk := make(map[domain.UserID]diskTokenRecord, len(s.tokens))
	for id, rec := range s.tokens {
		encAccess, err := crypto.Encrypt([]byte(rec.AccessToken))
		if err != nil {
			return err
		}

		var encRefresh []byte
		if rec.RefreshToken != "" {
			if encRefresh, err = crypto.Encrypt([]byte(rec.RefreshToken)); err != nil {
				return err
			}
		}

		disk[id] = diskTokenRecord{
			AccessToken:  encAccess,
			RefreshToken: encRefresh,
			Expiry:       rec.Expiry,
			TokenType:    rec.TokenType,
		}
	}

	return s.writeTable(tokensFile, disk)
}

func (s *FileStore) loadTokens() {
	data, err := os.ReadFile(filepath.Join(s.dir, tokensFile))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("could not read persisted tokens, starting empty",
				zap.Error(err), zap.String("component", "store"))
		}
		return
	}

	var disk map[domain.UserID]diskTokenRecord
	if err := json.Unmarshal(data, &disk); err != nil {
		s.logger.Warn("persisted token table is corrupt, starting empty",
			zap.Error(err), zap.String("component", "store"))
		return
	}

	for id, rec := range disk {
		access, err := crypto.Decrypt(rec.AccessToken)
		if err != nil {
			s.logger.Warn("skipping undecryptable token record",
				zap.Error(err), zap.String("user_id", string(id)), zap.String("component", "store"))
			continue
		}

		var refresh []byte
		if len(rec.RefreshToken) > 0 {
			if refresh, err = crypto.Decrypt(rec.RefreshToken); err != nil {
				s.logger.Warn("skipping undecryptable token record",
					zap.Error(err), zap.String("user_id", string(id)), zap.String("component", "store"))
				continue
			}
		}

		s.tokens[id] = domain.TokenRecord{
			AccessToken:  string(access),
			RefreshToken: string(refresh),
			Expiry:       rec.Expiry,
			TokenType:    rec.TokenType,
		}
	}
}
