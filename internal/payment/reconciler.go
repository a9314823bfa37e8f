package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/seniorchoi/gigagig/internal/logging"
)

const reconcileBatchSize = 100

// Reconciler periodically asks the gateway about open checkout sessions and
// confirms bookings whose payment went through without a redirect or webhook.
type Reconciler struct {
	service  *Service
	interval time.Duration
	logger   zerolog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	lastRun time.Time
}

// ReconcileResult summarises one pass
type ReconcileResult struct {
	Checked   int `json:"checked"`
	Confirmed int `json:"confirmed"`
	Failed    int `json:"failed"`
}

// NewReconciler creates a reconciler for service
func NewReconciler(service *Service, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Reconciler{
		service:  service,
		interval: interval,
		logger:   logging.NewLogger("reconciler"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins reconciling in the background
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("reconciler already running")
	}
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx)

	r.logger.Info().Dur("interval", r.interval).Msg("Payment reconciler started")
	return nil
}

// Stop halts the background loop and waits for an in-flight pass
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopCh)
	r.wg.Wait()
	r.logger.Info().Msg("Payment reconciler stopped")
}

// IsRunning returns whether the background loop is active
func (r *Reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// LastRun returns when the last pass finished
func (r *Reconciler) LastRun() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun
}

func (r *Reconciler) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error().Err(err).Msg("Reconcile pass failed")
			}
		}
	}
}

// RunOnce checks every Accepted booking with a checkout session once
func (r *Reconciler) RunOnce(ctx context.Context) (*ReconcileResult, error) {
	s := r.service
	if s.gateway == nil {
		return &ReconcileResult{}, nil
	}

	pending, err := s.store.ListAwaitingPayment(ctx, reconcileBatchSize)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{}
	for _, p := range pending {
		if ctx.Err() != nil {
			break
		}
		result.Checked++

		sess, err := s.gateway.GetSession(ctx, p.SessionID)
		if err != nil {
			result.Failed++
			r.logger.Warn().Err(err).Str("session_id", p.SessionID).Msg("Failed to fetch checkout session")
			continue
		}
		if !sess.Paid {
			continue
		}
		if err := s.confirmPaid(ctx, p.BookingID, p.SessionID, "reconciler"); err != nil {
			result.Failed++
			r.logger.Error().Err(err).Str("booking_id", p.BookingID.String()).Msg("Failed to confirm paid booking")
			continue
		}
		result.Confirmed++
	}

	r.mu.Lock()
	r.lastRun = time.Now()
	r.mu.Unlock()

	if result.Checked > 0 {
		r.logger.Info().
			Int("checked", result.Checked).
			Int("confirmed", result.Confirmed).
			Int("failed", result.Failed).
			Msg("Reconcile pass completed")
	}
	return result, nil
}
