package events

import (
	"context"
	"net/http"

	"today-dashboard-api/internal/api/common"
	"today-dashboard-api/internal/domain"
	"today-dashboard-api/internal/store"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// TokenSource hands out a currently-valid token for a user.
type TokenSource interface {
	ValidToken(ctx context.Context, userID domain.UserID) (*oauth2.Token, error)
}

// Fetcher fetches today's events from the upstream calendar.
type Fetcher interface {
	TodayEvents(ctx context.Context, token *oauth2.Token) ([]domain.CalendarEvent, error)
}

// HandleGetUserEvents serves today's events for a user. A fresh cache is
// served as-is; otherwise the events are fetched live and written back to
// the cache, falling back to the stale cache when the fetch fails.
func HandleGetUserEvents(storer store.Storer, tokens TokenSource, fetcher Fetcher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := domain.UserID(chi.URLParam(r, "userId"))
		if userID == "" {
			common.WriteJSONError(w, http.StatusBadRequest, "Missing userId parameter", log)
			return
		}

		if storer.EventsFresh(userID, store.DefaultEventMaxAge) {
			if set, ok := storer.GetEvents(userID); ok {
				common.WriteJSON(w, http.StatusOK, set, log)
				return
			}
		}

		tok, err := tokens.ValidToken(r.Context(), userID)
		if err != nil {
			// NoCredential, expired-without-refresh and a failed refresh
			// all read as "not authenticated" to the browser.
			common.WriteJSONError(w, http.StatusUnauthorized, "Not authenticated", log)
			return
		}

		events, err := fetcher.TodayEvents(r.Context(), tok)
		if err != nil {
			// Fall back to the last cached set when we have one.
			if set, ok := storer.GetEvents(userID); ok {
				log.Warn("serving stale events after fetch failure",
					zap.Error(err), zap.String("user_id", string(userID)), zap.String("component", "api"))
				common.WriteJSON(w, http.StatusOK, set, log)
				return
			}

			log.Error("could not fetch events and no cache to fall back on",
				zap.Error(err), zap.String("user_id", string(userID)), zap.String("component", "api"))
			common.WriteJSONError(w, http.StatusInternalServerError, "Could not fetch events", log)
			return
		}

		storer.PutEvents(userID, events)
		set, _ := storer.GetEvents(userID)
		common.WriteJSON(w, http.StatusOK, set, log)
	}
}
