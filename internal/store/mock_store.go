package store

import (
	"time"

	"today-dashboard-api/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of the Storer interface for testing
type MockStore struct {
	mock.Mock
}

func (m *MockStore) PutToken(userID domain.UserID, rec domain.TokenRecord) {
	m.Called(userID, rec)
}

func (m *MockStore) GetToken(userID domain.UserID) (domain.TokenRecord, bool) {
	args := m.Called(userID)
	return args.Get(0).(domain.TokenRecord), args.Bool(1)
}

func (m *MockStore) TokenExpired(userID domain.UserID) bool {
	args := m.Called(userID)
	return args.Bool(0)
}

func (m *MockStore) RemoveToken(userID domain.UserID) {
	m.Called(userID)
}

func (m *MockStore) PutProfile(profile domain.UserProfile) {
	m.Called(profile)
}

func (m *MockStore) GetProfile(userID domain.UserID) (domain.UserProfile, bool) {
	args := m.Called(userID)
	return args.Get(0).(domain.UserProfile), args.Bool(1)
}

func (m *MockStore) ListProfiles() []domain.UserProfile {
	args := m.Called()
	return args.Get(0).([]domain.UserProfile)
}

func (m *MockStore) ListUserIDs() []domain.UserID {
	args := m.Called()
	return args.Get(0).([]domain.UserID)
}

func (m *MockStore) PutEvents(userID domain.UserID, events []domain.CalendarEvent) {
	m.Called(userID, events)
}

func (m *MockStore) GetEvents(userID domain.UserID) (domain.CachedEventSet, bool) {
	args := m.Called(userID)
	return args.Get(0).(domain.CachedEventSet), args.Bool(1)
}

func (m *MockStore) EventsFresh(userID domain.UserID, maxAge time.Duration) bool {
	args := m.Called(userID, maxAge)
	return args.Bool(0)
}

func (m *MockStore) RemoveEvents(userID domain.UserID) {
	m.Called(userID)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
