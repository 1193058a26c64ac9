package worker

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"today-dashboard-api/internal/domain"
	"today-dashboard-api/internal/store"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	// Nominal 60s cycle, jittered ±10s.
	baseDelay  = 50 * time.Second
	jitterSpan = 20 * time.Second

	// A cycle may never outlive the shortest possible delay to the next
	// one, so cycles cannot pile up.
	cycleTimeout = 45 * time.Second
)

// TokenSource hands out a currently-valid token for a user.
type TokenSource interface {
	ValidToken(ctx context.Context, userID domain.UserID) (*oauth2.Token, error)
}

// EventsFetcher fetches today's events from the upstream calendar.
type EventsFetcher interface {
	TodayEvents(ctx context.Context, token *oauth2.Token) ([]domain.CalendarEvent, error)
}

// Worker re-populates the event cache for every known user in the
// background, so the UI always reads warm data. It runs one jittered,
// self-rescheduling timer: the next cycle is scheduled only after the
// current one has settled.
type Worker struct {
	store    store.Storer
	tokens   TokenSource
	calendar EventsFetcher
	logger   *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// NewWorker ...
func NewWorker(s store.Storer, tokens TokenSource, calendar EventsFetcher, logger *zap.Logger) (*Worker, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token source must not be nil")
	}
	if calendar == nil {
		return nil, fmt.Errorf("events fetcher must not be nil")
	}

	return &Worker{
		store:    s,
		tokens:   tokens,
		calendar: calendar,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start launches the worker in its own goroutine.
func (w *Worker) Start() {
	w.logger.Info("starting background refresh worker", zap.String("component", "worker"))
	go w.run()
}

// Stop cancels the timer loop and waits for it to exit. A cycle that is
// already in flight finishes first.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}

func (w *Worker) run() {
	defer close(w.done)

	timer := time.NewTimer(nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-timer.C:
			w.runCycle()
			// Reschedule only after the cycle settled, with a fresh
			// jitter draw, so cycles never overlap.
			timer.Reset(nextDelay())
		}
	}
}

// nextDelay picks a delay uniformly in [50s, 70s].
func nextDelay() time.Duration {
	return baseDelay + time.Duration(rand.Int64N(int64(jitterSpan)+1))
}

// runCycle refreshes every known user once. Per-user work runs in its own
// goroutine; a failure is terminal for that user's slot in this cycle only
// and never aborts the others.
func (w *Worker) runCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	ids := w.store.ListUserIDs()
	w.logger.Info("running refresh cycle",
		zap.Int("users", len(ids)), zap.String("component", "worker"))

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id domain.UserID) {
			defer wg.Done()
			w.refreshUser(ctx, id)
		}(id)
	}
	wg.Wait()
}

func (w *Worker) refreshUser(ctx context.Context, userID domain.UserID) {
	tok, err := w.tokens.ValidToken(ctx, userID)
	if err != nil {
		w.logger.Warn("skipping user without usable token",
			zap.Error(err), zap.String("user_id", string(userID)), zap.String("component", "worker"))
		return
	}

	events, err := w.calendar.TodayEvents(ctx, tok)
	if err != nil {
		w.logger.Error("could not fetch today's events",
			zap.Error(err), zap.String("user_id", string(userID)), zap.String("component", "worker"))
		return
	}

	w.store.PutEvents(userID, events)
	w.logger.Info("event cache updated",
		zap.Int("events", len(events)), zap.String("user_id", string(userID)), zap.String("component", "worker"))
}
