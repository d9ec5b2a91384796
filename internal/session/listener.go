package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/threadline/stitchboard/pkg/board"
)

// Listener subscribes once per session to the workspace change feed and
// keeps the board current: each event is merged incrementally, and a
// dropped feed is re-established with exponential backoff followed by a
// full reload to cover anything missed while disconnected.
//
// Session teardown must Close the listener so no stale callback acts on a
// disposed board.
type Listener struct {
	store *board.Store
	board *Board

	// The pub/sub channel never closes on a connection drop; the client
	// retries and re-issues SUBSCRIBE internally, so a dead feed looks
	// identical to a quiet one. The listener pings the server at this
	// interval and treats a failed ping as a dropped feed.
	pingInterval time.Duration

	errs      chan error
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// DefaultPingInterval is how often the listener verifies the feed's
// connection is still alive.
const DefaultPingInterval = 5 * time.Second

// NewListener creates a listener for the given store and board. Call Start
// to begin receiving events.
func NewListener(store *board.Store, b *Board) *Listener {
	return &Listener{
		store:        store,
		board:        b,
		pingInterval: DefaultPingInterval,
		errs:         make(chan error, 10),
		done:         make(chan struct{}),
	}
}

// Start subscribes to the change feed and launches the processing loop.
// Returns an error only if the initial subscription fails; everything after
// that is reported on Errors() and handled by resubscription.
func (l *Listener) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	sub, err := l.store.SubscribeTaskEvents(runCtx)
	if err != nil {
		cancel()
		return &SubscriptionError{Err: err}
	}

	l.cancel = cancel
	go l.run(runCtx, sub)
	return nil
}

// Errors returns the channel of non-fatal listener errors: merge failures,
// malformed events, failed resubscribe attempts. Reports are dropped rather
// than blocking when the buffer is full.
func (l *Listener) Errors() <-chan error {
	return l.errs
}

// Close stops the listener and unsubscribes from the change feed. Safe to
// call multiple times. Blocks until the processing loop has exited.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		if l.cancel == nil {
			return
		}
		l.cancel()
		<-l.done
	})
	return nil
}

func (l *Listener) run(ctx context.Context, sub *board.Subscription) {
	defer close(l.done)

	for {
		l.consume(ctx, sub)
		sub.Close()

		if ctx.Err() != nil {
			return
		}

		// Feed dropped. Resubscribe with backoff, then reload to cover
		// events missed while disconnected.
		next, err := l.resubscribe(ctx)
		if err != nil {
			return
		}
		sub = next

		if err := l.board.Load(ctx); err != nil {
			l.report(&SubscriptionError{Err: fmt.Errorf("reload after resubscribe: %w", err)})
		}
	}
}

// consume processes events until the subscription closes, the context is
// cancelled, or a liveness check fails. The ping is what turns a silent
// connection drop into a detectable feed drop: events published during the
// outage are gone (at-most-once delivery), so the caller must follow up with
// a full reload.
func (l *Listener) consume(ctx context.Context, sub *board.Subscription) {
	ticker := time.NewTicker(l.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := l.store.Ping(ctx); err != nil {
				l.report(&SubscriptionError{Err: fmt.Errorf("feed liveness check failed: %w", err)})
				return
			}

		case ev, ok := <-sub.Events():
			if !ok {
				return
			}

			if err := l.board.ApplyEvent(ctx, ev); err != nil {
				l.report(err)
				// Degrade to a full reload; the board ends up
				// authoritative either way.
				if err := l.board.Load(ctx); err != nil {
					l.report(err)
				}
			}

		case err, ok := <-sub.Errors():
			if !ok {
				return
			}
			l.report(&SubscriptionError{Err: err})
		}
	}
}

// resubscribe re-establishes the feed with exponential backoff. Retries
// until it succeeds or the context is cancelled; each failed attempt is
// reported.
func (l *Listener) resubscribe(ctx context.Context) (*board.Subscription, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // keep trying until cancelled

	var sub *board.Subscription
	operation := func() error {
		var err error
		sub, err = l.store.SubscribeTaskEvents(ctx)
		if err != nil {
			return err
		}
		// Subscribing through a dead connection can still hand back a
		// subscription object; verify the server is actually there.
		if err := l.store.Ping(ctx); err != nil {
			sub.Close()
			return err
		}
		return nil
	}

	notify := func(err error, _ time.Duration) {
		l.report(&SubscriptionError{Err: fmt.Errorf("resubscribe failed: %w", err)})
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, err
	}
	return sub, nil
}

func (l *Listener) report(err error) {
	select {
	case l.errs <- err:
	default:
	}
}
