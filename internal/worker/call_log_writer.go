package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campusdesk/reception-service/internal/domain"
)

// CallLogStore persists finished calls.
type CallLogStore interface {
	Upsert(ctx context.Context, entry domain.CallLogEntry) error
}

// CallLogMetrics records write outcomes.
type CallLogMetrics interface {
	CallLogWrite(err error)
}

// CallLogWriter takes call log entries off the switchboard's hot path and
// writes them one at a time with a per-write timeout.
type CallLogWriter struct {
	store   CallLogStore
	metrics CallLogMetrics
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan domain.CallLogEntry
	done   chan struct{}
}

// NewCallLogWriter builds a writer with a bounded queue.
func NewCallLogWriter(store CallLogStore, metrics CallLogMetrics, logger *zap.Logger, buffer int, timeout time.Duration) *CallLogWriter {
	if buffer <= 0 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CallLogWriter{
		store:   store,
		metrics: metrics,
		logger:  logger,
		timeout: timeout,
		queue:   make(chan domain.CallLogEntry, buffer),
		done:    make(chan struct{}),
	}
}

// Enqueue never blocks. Entries offered to a full or closed writer are dropped.
func (w *CallLogWriter) Enqueue(entry domain.CallLogEntry) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.logger.Warn("call log writer closed, entry dropped", zap.String("call_id", entry.CallID), zap.String("staff_id", entry.StaffID))
		return
	}
	select {
	case w.queue <- entry:
	default:
		w.logger.Warn("call log queue full, entry dropped", zap.String("call_id", entry.CallID), zap.String("staff_id", entry.StaffID))
		if w.metrics != nil {
			w.metrics.CallLogWrite(errQueueFull)
		}
	}
}

// Run writes entries until the writer is closed and drained.
func (w *CallLogWriter) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case entry, ok := <-w.queue:
			if !ok {
				return
			}
			w.write(ctx, entry)
		case <-ctx.Done():
			w.drain()
			return
		}
	}
}

// Close stops intake and waits for Run to flush what is queued.
func (w *CallLogWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *CallLogWriter) drain() {
	for {
		select {
		case entry, ok := <-w.queue:
			if !ok {
				return
			}
			w.write(context.Background(), entry)
		default:
			return
		}
	}
}

func (w *CallLogWriter) write(parent context.Context, entry domain.CallLogEntry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), w.timeout)
	defer cancel()

	err := w.store.Upsert(ctx, entry)
	if w.metrics != nil {
		w.metrics.CallLogWrite(err)
	}
	if err != nil {
		w.logger.Error("call log write failed",
			zap.String("call_id", entry.CallID),
			zap.String("staff_id", entry.StaffID),
			zap.Error(err))
		return
	}
	w.logger.Debug("call log written", zap.String("call_id", entry.CallID), zap.String("staff_id", entry.StaffID))
}
