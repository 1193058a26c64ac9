package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"today-dashboard-api/internal/api"
	"today-dashboard-api/internal/calendar"
	"today-dashboard-api/internal/logger"
	"today-dashboard-api/internal/store"
	"today-dashboard-api/internal/token"
	"today-dashboard-api/internal/worker"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// run wires the store, refresher, worker and API server together and
// returns the configured HTTP server and the started worker. Split out
// of main so the setup path is testable.
func run(log *zap.Logger, st store.Storer) (*http.Server, *worker.Worker, error) {
	clientID := os.Getenv("GOOGLE_OAUTH_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET")
	// e.g. http://localhost:8080/api/v1/auth/google/callback
	redirectURL := os.Getenv("OAUTH_REDIRECT_URL")

	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, nil, errors.New("google OAuth configuration missing")
	}

	googleOAuthConfig := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		Scopes: []string{
			"https://www.googleapis.com/auth/calendar.readonly",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
	}

	refresher, err := token.NewRefresher(st, googleOAuthConfig, log)
	if err != nil {
		return nil, nil, err
	}

	calendarClient := calendar.NewClient(log)

	appWorker, err := worker.NewWorker(st, refresher, calendarClient, log)
	if err != nil {
		return nil, nil, err
	}
	appWorker.Start()

	apiServer := api.NewServer(st, refresher, calendarClient, googleOAuthConfig, log)

	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      apiServer.Router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return server, appWorker, nil
}

func main() {
	_ = godotenv.Load()

	log, err := logger.NewLogger()
	if err != nil {
		panic("Could not initialize logger: " + err.Error()) // Can't log if logger fails
	}
	defer log.Sync()

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	st, err := store.NewFileStore(dataDir, log)
	if err != nil {
		log.Error("could not open data directory", zap.Error(err))
		return
	}

	server, appWorker, err := run(log, st)
	if err != nil {
		log.Error("could not start application", zap.Error(err))
		return
	}

	log.Info("starting API server",
		zap.String("addr", server.Addr), zap.String("component", "main"))

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("could not start server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down", zap.String("component", "main"))

	appWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}

	if err := st.Close(); err != nil {
		log.Error("final store flush failed", zap.Error(err))
	}
}
