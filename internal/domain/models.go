package domain

import "time"

// UserID is the opaque provider user id. It is the key of every table in
// the store: tokens, profiles and cached events are all keyed by it.
type UserID string

// TokenRecord holds one user's OAuth2 credentials.
// A zero Expiry means the token is treated as never-expiring.
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
	TokenType    string    `json:"token_type,omitempty"`
}

// UserProfile is written once at first login and never refreshed upstream.
type UserProfile struct {
	ID    UserID `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// EventTime is a point in time plus the timezone it was scheduled in.
type EventTime struct {
	DateTime time.Time `json:"dateTime"`
	TimeZone string    `json:"timeZone,omitempty"`
}

// CalendarEvent is the upstream event shape, passed through to the UI.
type CalendarEvent struct {
	ID            string    `json:"id"`
	Subject       string    `json:"subject"`
	Start         EventTime `json:"start"`
	End           EventTime `json:"end"`
	Location      string    `json:"location,omitempty"`
	Organizer     string    `json:"organizer,omitempty"`
	OnlineMeeting bool      `json:"isOnlineMeeting"`
	MeetingURL    string    `json:"meetingUrl,omitempty"`
}

// CachedEventSet is the last fetched event list for one user. It is
// replaced wholesale on every successful fetch, never merged.
type CachedEventSet struct {
	UserID    UserID          `json:"user_id"`
	Events    []CalendarEvent `json:"events"`
	FetchedAt time.Time       `json:"fetched_at"`
}
