package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"today-dashboard-api/internal/api/auth"
	"today-dashboard-api/internal/api/common"
	"today-dashboard-api/internal/api/events"
	"today-dashboard-api/internal/api/health"
	"today-dashboard-api/internal/api/user"
	"today-dashboard-api/internal/domain"
	"today-dashboard-api/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Provider bundles what the handlers need from the upstream API.
type Provider interface {
	auth.Provider
}

// Server is the HTTP surface of the dashboard.
type Server struct {
	Router      *chi.Mux
	Logger      *zap.Logger
	store       store.Storer
	tokens      events.TokenSource
	provider    Provider
	oauthConfig *oauth2.Config
}

// NewServer wires the router, middleware and handlers.
func NewServer(s store.Storer, tokens events.TokenSource, provider Provider, oauthConfig *oauth2.Config, logger *zap.Logger) *Server {
	server := &Server{
		Router:      chi.NewRouter(),
		Logger:      logger,
		store:       s,
		tokens:      tokens,
		provider:    provider,
		oauthConfig: oauthConfig,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	allowedOrigins := strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",")
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.Router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.HandleHealth(s.Logger))

		// Auth routes
		r.Get("/auth/google/login", auth.HandleGoogleLogin(s.oauthConfig, s.Logger))
		r.Get("/auth/google/callback", auth.HandleGoogleCallback(s.store, s.oauthConfig, s.provider, s.Logger))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/me", user.HandleGetMe(s.store, s.Logger))
			r.Get("/users", user.HandleListUsers(s.store, s.Logger))
			r.Get("/users/{userId}/events", events.HandleGetUserEvents(s.store, s.tokens, s.provider, s.Logger))
			r.Delete("/users/{userId}", auth.HandleLogout(s.store, s.Logger))
		})
	})
}

// authMiddleware validates the session JWT and puts the user id in the
// request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			common.WriteJSONError(w, http.StatusUnauthorized, "Missing authentication header", s.Logger)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		jwtKey := []byte(os.Getenv("JWT_SECRET_KEY"))

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("invalid signing method")
			}
			return jwtKey, nil
		})

		if err != nil || !token.Valid {
			common.WriteJSONError(w, http.StatusUnauthorized, "Invalid token", s.Logger)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			common.WriteJSONError(w, http.StatusUnauthorized, "Invalid claims", s.Logger)
			return
		}

		userIDStr, ok := claims["user_id"].(string)
		if !ok || userIDStr == "" {
			common.WriteJSONError(w, http.StatusUnauthorized, "No user ID in token", s.Logger)
			return
		}

		ctx := contextWithUserID(r.Context(), domain.UserID(userIDStr))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func contextWithUserID(ctx context.Context, userID domain.UserID) context.Context {
	return context.WithValue(ctx, common.UserContextKey, userID)
}
