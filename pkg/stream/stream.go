// Package stream tails a campaign's trace log for long-lived clients. The
// loop polls the durable store rather than subscribing to an in-process
// channel: the run producing the events may live on another worker, and the
// only thing both sides share is the trace itself.
package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/outriq/outriq/pkg/events"
	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/persistence"
)

const (
	// DefaultPollInterval is the trace poll cadence when the caller does not
	// set one.
	DefaultPollInterval = 500 * time.Millisecond

	// heartbeatEvery is the number of consecutive idle ticks between
	// heartbeat events, roughly ten seconds at the default interval.
	heartbeatEvery = 20
)

// Options tunes a single stream.
type Options struct {
	// StartIndex is the trace offset to resume from. Values past the current
	// trace length yield no events until new ones are appended; already seen
	// events are never replayed.
	StartIndex int

	// PollInterval between trace reads. Zero means DefaultPollInterval.
	PollInterval time.Duration

	// MaxIdle is how long the stream may go without new events before it
	// terminates with a timeout event. Zero means no idle limit.
	MaxIdle time.Duration
}

// SendFunc delivers one wire event to the client. A non-nil error aborts the
// stream; the client is assumed gone.
type SendFunc func(event models.TraceEvent) error

// Streamer serves trace logs to polling clients.
type Streamer struct {
	logger *slog.Logger
	states persistence.StateRepository
}

func NewStreamer(logger *slog.Logger, states persistence.StateRepository) *Streamer {
	return &Streamer{logger: logger, states: states}
}

// Stream emits every trace event at or after opts.StartIndex, in append
// order, followed by whatever new events arrive, until the campaign reaches a
// terminal phase, the idle limit expires, the context is canceled or send
// fails. The last delivered event is always one of workflow_complete, error
// or timeout, so clients can treat any of those as end-of-stream.
func (s *Streamer) Stream(ctx context.Context, campaignID, userID string, opts Options, send SendFunc) error {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	maxIdleTicks := -1
	if opts.MaxIdle > 0 {
		maxIdleTicks = int(opts.MaxIdle / interval)
	}

	lastIndex := max(0, opts.StartIndex)
	idleCount := 0

	logger := s.logger.With("campaign_id", campaignID, "start_index", lastIndex)
	logger.DebugContext(ctx, "Stream opened")

	for {
		newEvents, phase, total, err := s.states.ReadTraceFrom(ctx, campaignID, userID, lastIndex)
		if err != nil {
			// Unknown campaigns are terminal for the stream, not retried.
			logger.WarnContext(ctx, "Stream read failed", "error", err)

			if sendErr := send(events.Error("", err.Error())); sendErr != nil {
				return sendErr
			}

			return nil
		}

		if lastIndex > total {
			// The store was reset underneath us. Clamp and keep polling.
			lastIndex = total
		}

		if len(newEvents) > 0 {
			for _, event := range newEvents {
				if err := send(event); err != nil {
					return err
				}
			}

			lastIndex += len(newEvents)
			idleCount = 0

			if phase.Terminal() {
				logger.DebugContext(ctx, "Stream closing on terminal phase", "phase", phase)

				if err := send(events.WorkflowComplete("", "campaign reached terminal phase")); err != nil {
					return err
				}

				return nil
			}
		} else {
			idleCount++

			if idleCount%heartbeatEvery == 0 {
				if err := send(events.Heartbeat(phase)); err != nil {
					return err
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		if maxIdleTicks >= 0 && idleCount > maxIdleTicks {
			logger.DebugContext(ctx, "Stream idle limit reached")

			if err := send(events.Timeout()); err != nil {
				return err
			}

			return nil
		}
	}
}
