package app

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bft-labs/platoon/internal/domain"
	"github.com/bft-labs/platoon/internal/ports"
)

// sendBatchAsync posts a batch without blocking. The caller has already
// registered it in e.inflight via takeBatchLocked.
//
// Batches sent this way may complete in any order relative to each other.
func (e *Engine) sendBatchAsync(batch []domain.Event) {
	body, err := json.Marshal(batch)
	if err != nil {
		e.dropBatch(batch, err)
		e.inflight.Done()
		return
	}

	e.logger.Debug("sending events", ports.Int("count", len(batch)))
	start := e.clock.Now()
	e.transport.PostAsync(e.ctx, ports.IngestPath, body, func(out domain.Outcome) {
		defer e.inflight.Done()
		e.handleIngestOutcome(out, len(batch), false, e.clock.Now().Sub(start))
	})
}

// sendBatch posts a batch and waits for the outcome.
func (e *Engine) sendBatch(batch []domain.Event) {
	body, err := json.Marshal(batch)
	if err != nil {
		e.dropBatch(batch, err)
		return
	}

	e.logger.Debug("sending events", ports.Int("count", len(batch)), ports.Bool("blocking", true))
	start := e.clock.Now()
	out := e.transport.Post(e.ctx, ports.IngestPath, body)
	e.handleIngestOutcome(out, len(batch), true, e.clock.Now().Sub(start))
}

func (e *Engine) handleIngestOutcome(out domain.Outcome, count int, blocking bool, elapsed time.Duration) {
	switch out.Kind {
	case domain.OutcomeSuccess:
		e.emitter.OnBatchSent(count, blocking, elapsed)

	case domain.OutcomeProtocolFailure:
		e.logger.Error("http error, events lost",
			ports.String("path", ports.IngestPath),
			ports.Int("status", out.StatusCode),
			ports.Int("events", count),
			ports.Err(out.Err),
		)
		e.emitter.OnSendFailure(ports.IngestPath, out.Kind, out.Err, count)

	default:
		e.logger.Error("transport error, disabling any further sending",
			ports.String("path", ports.IngestPath),
			ports.Int("events", count),
			ports.Err(out.Err),
		)
		e.emitter.OnSendFailure(ports.IngestPath, out.Kind, out.Err, count)
		e.trip("transport failure")
	}
}

// dropBatch reports a batch that could not be encoded. No request was made,
// so activation is left alone.
func (e *Engine) dropBatch(batch []domain.Event, err error) {
	err = fmt.Errorf("encode events: %w", err)
	e.logger.Error("events cannot be encoded, events lost", ports.Int("events", len(batch)), ports.Err(err))
	for _, event := range batch {
		e.emitter.OnEventDropped(event.Name, err)
	}
}
