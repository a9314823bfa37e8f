package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/seniorchoi/gigagig/internal/logging"
	"github.com/seniorchoi/gigagig/internal/monitoring"
)

const sendTimeout = 15 * time.Second

// Deliver sends one event and records the outcome. Errors are logged only.
func Deliver(ctx context.Context, mailer Mailer, logger zerolog.Logger, event Event) {
	if err := mailer.Send(ctx, event); err != nil {
		monitoring.RecordEmail(mailer.Name(), "failed")
		logger.Error().
			Err(err).
			Str("type", string(event.Type)).
			Str("to", event.To).
			Msg("Failed to send notification email")
		return
	}
	monitoring.RecordEmail(mailer.Name(), "sent")
	logger.Debug().
		Str("type", string(event.Type)).
		Str("to", event.To).
		Msg("Notification email sent")
}

// DirectDispatcher sends emails from background goroutines in this process
type DirectDispatcher struct {
	mailer Mailer
	logger zerolog.Logger
	wg     sync.WaitGroup
}

// NewDirectDispatcher creates a dispatcher around mailer
func NewDirectDispatcher(mailer Mailer) *DirectDispatcher {
	return &DirectDispatcher{
		mailer: mailer,
		logger: logging.NewLogger("notify"),
	}
}

// Notify returns immediately; the request context is not reused so that a
// finished request does not cancel delivery.
func (d *DirectDispatcher) Notify(_ context.Context, event Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		Deliver(ctx, d.mailer, d.logger, event)
	}()
}

// Close waits for in-flight sends
func (d *DirectDispatcher) Close() error {
	d.wg.Wait()
	return nil
}
