package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"today-dashboard-api/internal/domain"
	"today-dashboard-api/internal/store"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ErrNoCredential means there is no usable credential for the user: no
// record at all, or an expired access token without a refresh token.
var ErrNoCredential = errors.New("no usable credential for user")

// ErrRefreshFailed means the refresh-token exchange with the identity
// provider failed. The stale record is left in place.
var ErrRefreshFailed = errors.New("token refresh failed")

const defaultRefreshTimeout = 15 * time.Second

// Refresher hands out currently-valid access tokens, refreshing them
// against the identity provider on demand. Refresh is lazy: checked at
// the point of use instead of on its own timer, so a failure stays local
// to the caller that needed the token.
type Refresher struct {
	store   store.Storer
	config  *oauth2.Config
	logger  *zap.Logger
	timeout time.Duration
}

// NewRefresher ...
func NewRefresher(s store.Storer, oauthCfg *oauth2.Config, logger *zap.Logger) (*Refresher, error) {
	if oauthCfg == nil {
		return nil, fmt.Errorf("oauth config must not be nil")
	}

	return &Refresher{
		store:   s,
		config:  oauthCfg,
		logger:  logger,
		timeout: defaultRefreshTimeout,
	}, nil
}

// ValidToken returns a currently-valid token for the user, refreshing the
// stored one first when it has expired. Callers distinguish "no
// credential" from "refresh failed" via errors.Is.
func (r *Refresher) ValidToken(ctx context.Context, userID domain.UserID) (*oauth2.Token, error) {
	rec, ok := r.store.GetToken(userID)
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNoCredential)
	}

	tok := &oauth2.Token{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		Expiry:       rec.Expiry,
		TokenType:    rec.TokenType,
	}

	// Fast path: an unexpired (or never-expiring) token goes out without
	// any network call. Every request and every worker tick hits this.
	if !r.store.TokenExpired(userID) {
		return tok, nil
	}

	if rec.RefreshToken == "" {
		// From the caller's point of view this is the same as having no
		// credential. The record stays put so a manual re-login can still
		// find the user's history.
		return nil, fmt.Errorf("access token for user %s expired without refresh token: %w", userID, ErrNoCredential)
	}

	r.logger.Info("token expired, refreshing",
		zap.String("user_id", string(userID)), zap.String("component", "token"))

	// Use a clean context for the upstream call: the caller's context can
	// carry request-scoped values that confuse the oauth2 transport, and
	// the timeout keeps a hung provider from blocking the caller's slot.
	refreshCtx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	newTok, err := r.config.TokenSource(refreshCtx, tok).Token()
	if err != nil {
		r.logger.Error("token refresh failed",
			zap.Error(err), zap.String("user_id", string(userID)), zap.String("component", "token"))
		return nil, fmt.Errorf("user %s: %w: %v", userID, ErrRefreshFailed, err)
	}

	// Providers may omit the refresh token in a refresh response; carry
	// the old one forward so the user stays refreshable.
	if newTok.RefreshToken == "" {
		newTok.RefreshToken = rec.RefreshToken
	}

	r.store.PutToken(userID, domain.TokenRecord{
		AccessToken:  newTok.AccessToken,
		RefreshToken: newTok.RefreshToken,
		Expiry:       newTok.Expiry,
		TokenType:    newTok.TokenType,
	})

	r.logger.Info("token refreshed and saved",
		zap.String("user_id", string(userID)), zap.String("component", "token"))

	return newTok, nil
}
