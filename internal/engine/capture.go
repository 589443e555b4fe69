// Package engine connects an input source to the binding table: a capture
// loop that reads events in order and a dispatcher that resolves and runs
// them.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/andresousadotpt/hkd/internal/keys"
)

// ErrConnectionLost is returned by a Source whose underlying connection went
// away. It is never retried.
var ErrConnectionLost = errors.New("input connection lost")

// Source is a blocking stream of normalized input events. Auto-repeat must
// already be filtered out and timestamps must be monotonic.
type Source interface {
	// Next blocks until an event is available. Once ctx is done it returns
	// ctx.Err(); if the connection is gone it returns an error wrapping
	// ErrConnectionLost.
	Next(ctx context.Context) (keys.Event, error)
}

// Capture is the only writer of out. It forwards every event from src in the
// order read, blocking while out is full, and closes out when it returns.
// Cancellation of ctx is a clean stop and returns nil.
func Capture(ctx context.Context, src Source, out chan<- keys.Event, log *logrus.Entry) error {
	defer close(out)

	var n uint64
	for {
		ev, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.WithField("events", n).Debug("capture stopped")
				return nil
			}
			if errors.Is(err, ErrConnectionLost) {
				return err
			}
			return fmt.Errorf("capture: %w", err)
		}
		n++
		if log.Logger.IsLevelEnabled(logrus.TraceLevel) {
			log.WithFields(logrus.Fields{"key": ev.ID, "dir": ev.Dir, "t": ev.Time}).Trace("captured")
		}
		out <- ev
	}
}

// Run wires src to d through a channel of size queue. It returns once
// capture has stopped and every queued event has been dispatched.
func Run(ctx context.Context, src Source, d *Dispatcher, queue int, log *logrus.Entry) error {
	if queue <= 0 {
		queue = DefaultQueueSize
	}
	ch := make(chan keys.Event, queue)
	errc := make(chan error, 1)
	go func() {
		errc <- Capture(ctx, src, ch, log.WithField("component", "capture"))
	}()
	d.Run(ch)
	return <-errc
}

// DefaultQueueSize bounds the capture channel when nothing else is configured.
const DefaultQueueSize = 64
