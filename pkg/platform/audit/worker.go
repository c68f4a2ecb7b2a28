package audit

import (
	"context"
	"time"

	dErrors "repoguard/pkg/domain-errors"
)

const flushBatchSize = 256

// flushLoop drains the buffer to the sink on every tick. It runs until
// Close and never blocks LogEvent: the ring buffer absorbs bursts and drops
// the oldest entries if the sink stalls for too long.
func (l *Log) flushLoop() {
	defer l.wg.Done()

	interval := l.cfg.FlushInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			if err := l.Flush(context.Background()); err != nil {
				l.fault(err)
			}
		}
	}
}

// Flush drains all buffered events to the durable sink in bounded batches.
func (l *Log) Flush(ctx context.Context) error {
	for {
		batch := l.buffer.DequeueBatch(flushBatchSize)
		if len(batch) == 0 {
			return nil
		}
		if err := l.sink.Flush(ctx, batch); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "audit sink flush failed")
		}
		if l.metrics != nil {
			l.metrics.FlushBatches.Inc()
			l.metrics.FlushedEvents.Add(float64(len(batch)))
		}
	}
}

// Close stops the flush timer, waits for the loop to exit, and performs one
// final flush so no buffered event is lost on shutdown.
func (l *Log) Close(ctx context.Context) error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		l.wg.Wait()
		err = l.Flush(ctx)
	})
	return err
}
