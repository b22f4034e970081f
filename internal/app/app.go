package app

import (
	"context"
	"net/http"
	"time"

	"mococa-backend/internal/config"
	"mococa-backend/internal/logger"
	"mococa-backend/internal/notify"
	"mococa-backend/internal/payment"
)

// pollInterval is how often the payment ledger is reconciled.
const pollInterval = 30 * time.Second

type App struct {
	httpServer *http.Server
	tracker    *payment.Tracker
	notifier   *notify.Dispatcher
	cleanup    func() error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	router, deps, cleanup, err := setupHTTP(ctx, cfg)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: router,
	}

	return &App{
		httpServer: server,
		tracker:    deps.tracker,
		notifier:   deps.notifier,
		cleanup:    cleanup,
	}, nil
}

func (a *App) Run() error {
	return a.httpServer.ListenAndServe()
}

// RunPoller reconciles pending payments on a fixed cadence until ctx is
// cancelled. Polls run sequentially from this one goroutine, so two
// passes never overlap. Poll failures are logged, never fatal.
func (a *App) RunPoller(ctx context.Context) {
	if a.tracker == nil {
		logger.Warn("payment provider not configured, poller disabled", nil)
		return
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.pollOnce(ctx)
		}
	}
}

func (a *App) pollOnce(ctx context.Context) {
	result, err := a.tracker.Poll(ctx)
	if err != nil {
		logger.Error("payment poll failed", map[string]any{
			"error": err.Error(),
		})
		a.notifier.Notify(notify.Event{
			Title:   "System error",
			Message: "payment poll failed: " + err.Error(),
		})
		return
	}

	for _, r := range result.Successes {
		a.notifier.Notify(notify.Event{
			Title:   "Payment received",
			Message: "payment " + r.ID + " was paid",
		})
	}
	for _, r := range result.Failures {
		a.notifier.Notify(notify.Event{
			Title:   "Payment closed unpaid",
			Message: "payment " + r.ID + " resolved as " + string(r.Status),
		})
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	// drains queued notifications before the process exits
	a.notifier.Close()

	if a.cleanup != nil {
		return a.cleanup()
	}
	return nil
}
