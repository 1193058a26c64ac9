package calendar

import (
	"context"
	"fmt"
	"time"

	"today-dashboard-api/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const (
	defaultFetchTimeout = 20 * time.Second
	maxEventsPerDay     = 100
)

// Client talks to the Google Calendar and Userinfo APIs on behalf of a
// user token and maps the results into the domain shapes.
type Client struct {
	logger  *zap.Logger
	timeout time.Duration
	opts    []option.ClientOption // extra options; tests point these at a fake API
}

// NewClient ...
func NewClient(logger *zap.Logger, opts ...option.ClientOption) *Client {
	return &Client{
		logger:  logger,
		timeout: defaultFetchTimeout,
		opts:    opts,
	}
}

func (c *Client) clientOptions(ctx context.Context, token *oauth2.Token) []option.ClientOption {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	return append([]option.ClientOption{option.WithHTTPClient(httpClient)}, c.opts...)
}

// TodayEvents fetches the user's primary-calendar events between local
// midnight and midnight tomorrow, ordered by start time.
func (c *Client) TodayEvents(ctx context.Context, token *oauth2.Token) ([]domain.CalendarEvent, error) {
	if token == nil {
		return nil, fmt.Errorf("token must not be nil")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	srv, err := gcal.NewService(ctx, c.clientOptions(ctx, token)...)
	if err != nil {
		return nil, fmt.Errorf("could not create calendar service: %w", err)
	}

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	res, err := srv.Events.List("primary").
		TimeMin(dayStart.Format(time.RFC3339)).
		TimeMax(dayEnd.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxEventsPerDay).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("could not fetch calendar events: %w", err)
	}

	events := make([]domain.CalendarEvent, 0, len(res.Items))
	for _, item := range res.Items {
		events = append(events, mapEvent(item))
	}

	return events, nil
}

// Profile fetches the user's id, display name and primary email.
func (c *Client) Profile(ctx context.Context, token *oauth2.Token) (domain.UserProfile, error) {
	if token == nil {
		return domain.UserProfile{}, fmt.Errorf("token must not be nil")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	srv, err := oauth2v2.NewService(ctx, c.clientOptions(ctx, token)...)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("could not create userinfo service: %w", err)
	}

	info, err := srv.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("could not fetch userinfo: %w", err)
	}

	return domain.UserProfile{
		ID:    domain.UserID(info.Id),
		Name:  info.Name,
		Email: info.Email,
	}, nil
}

// mapEvent converts a Google event into the shape the dashboard serves.
func mapEvent(e *gcal.Event) domain.CalendarEvent {
	event := domain.CalendarEvent{
		ID:       e.Id,
		Subject:  e.Summary,
		Start:    mapEventTime(e.Start),
		End:      mapEventTime(e.End),
		Location: e.Location,
	}

	if e.Organizer != nil {
		event.Organizer = e.Organizer.DisplayName
		if event.Organizer == "" {
			event.Organizer = e.Organizer.Email
		}
	}

	if url := meetingURL(e); url != "" {
		event.OnlineMeeting = true
		event.MeetingURL = url
	}

	return event
}

func mapEventTime(t *gcal.EventDateTime) domain.EventTime {
	if t == nil {
		return domain.EventTime{}
	}

	et := domain.EventTime{TimeZone: t.TimeZone}
	if t.DateTime != "" {
		if parsed, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
			et.DateTime = parsed
		}
		return et
	}

	// All-day events only carry a date.
	if parsed, err := time.Parse("2006-01-02", t.Date); err == nil {
		et.DateTime = parsed
	}
	return et
}

func meetingURL(e *gcal.Event) string {
	if e.HangoutLink != "" {
		return e.HangoutLink
	}

	if e.ConferenceData == nil {
		return ""
	}
	for _, ep := range e.ConferenceData.EntryPoints {
		if ep.EntryPointType == "video" && ep.Uri != "" {
			return ep.Uri
		}
	}
	return ""
}
