package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"today-dashboard-api/internal/api/common"
	"today-dashboard-api/internal/domain"
	"today-dashboard-api/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const oauthStateCookieName = "oauthstate"

// Provider is what the callback needs from the upstream API: the profile
// of the freshly logged-in user and an initial event fetch to warm the
// cache.
type Provider interface {
	Profile(ctx context.Context, token *oauth2.Token) (domain.UserProfile, error)
	TodayEvents(ctx context.Context, token *oauth2.Token) ([]domain.CalendarEvent, error)
}

// GenerateJWT creates a new session JWT for a user.
func GenerateJWT(userID domain.UserID) (string, error) {
	jwtKey := []byte(os.Getenv("JWT_SECRET_KEY"))
	if len(jwtKey) == 0 {
		return "", fmt.Errorf("JWT_SECRET_KEY is not set")
	}

	claims := jwt.MapClaims{
		"user_id": string(userID),
		"iss":     "today-dashboard-api",
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(time.Hour * 24 * 7).Unix(), // 7 days
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtKey)
	if err != nil {
		return "", fmt.Errorf("could not sign session token: %w", err)
	}

	return tokenString, nil
}

// HandleGoogleLogin starts the OAuth flow to Google.
func HandleGoogleLogin(oauthConfig *oauth2.Config, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := uuid.NewString()

		cookie := &http.Cookie{
			Name:     oauthStateCookieName,
			Value:    state,
			Path:     "/",
			HttpOnly: true,
			MaxAge:   60 * 10,
		}
		http.SetCookie(w, cookie)

		authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	}
}

// HandleGoogleCallback handles the callback from Google after login: it
// exchanges the code, stores profile and token, warms the event cache and
// hands the browser a session JWT.
func HandleGoogleCallback(storer store.Storer, oauthConfig *oauth2.Config, provider Provider, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		stateCookie, err := r.Cookie(oauthStateCookieName)
		if err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, "Missing state cookie", log)
			return
		}
		if r.URL.Query().Get("state") != stateCookie.Value {
			common.WriteJSONError(w, http.StatusBadRequest, "Invalid state token", log)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			common.WriteJSONError(w, http.StatusBadRequest, "Missing code parameter", log)
			return
		}

		token, err := oauthConfig.Exchange(ctx, code)
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Could not exchange code: %s", err.Error()), log)
			return
		}
		if token.RefreshToken == "" {
			common.WriteJSONError(w, http.StatusBadRequest,
				"No refresh token received. Please try again.", log)
			return
		}

		profile, err := provider.Profile(ctx, token)
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Could not fetch user info: %s", err.Error()), log)
			return
		}

		// The profile is written once; a re-login never overwrites it.
		if _, ok := storer.GetProfile(profile.ID); !ok {
			storer.PutProfile(profile)
		}

		storer.PutToken(profile.ID, domain.TokenRecord{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			Expiry:       token.Expiry,
			TokenType:    token.TokenType,
		})

		log.Info("user logged in",
			zap.String("user_id", string(profile.ID)),
			zap.String("component", "api"),
		)

		// Warm the event cache so the dashboard is populated right after
		// the redirect. Best effort; the worker retries soon anyway.
		if events, err := provider.TodayEvents(ctx, token); err != nil {
			log.Warn("could not prefetch events after login",
				zap.Error(err), zap.String("user_id", string(profile.ID)), zap.String("component", "api"))
		} else {
			storer.PutEvents(profile.ID, events)
		}

		jwtString, err := GenerateJWT(profile.ID)
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Could not generate session token: %s", err.Error()), log)
			return
		}

		redirectURL := fmt.Sprintf("%s/dashboard?token=%s", os.Getenv("CLIENT_BASE_URL"), jwtString)
		http.Redirect(w, r, redirectURL, http.StatusSeeOther)
	}
}

// HandleLogout clears a user's token and cached events. The profile is
// kept so a later re-login still finds the user's history. Users can only
// log themselves out.
func HandleLogout(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionUser, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		userID := domain.UserID(chi.URLParam(r, "userId"))
		if userID == "" {
			common.WriteJSONError(w, http.StatusBadRequest, "Missing userId parameter", log)
			return
		}
		if userID != sessionUser {
			common.WriteJSONError(w, http.StatusForbidden, "Cannot log out another user", log)
			return
		}

		storer.RemoveToken(userID)
		storer.RemoveEvents(userID)

		log.Info("user logged out",
			zap.String("user_id", string(userID)), zap.String("component", "api"))

		common.WriteJSON(w, http.StatusNoContent, nil, log)
	}
}
