package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AsyncOptions tunes the AsyncWriter worker.
type AsyncOptions struct {
	BufferSize     int
	BatchSize      int
	BatchTimeout   time.Duration
	StorageTimeout time.Duration
}

func (o AsyncOptions) withDefaults() AsyncOptions {
	if o.BufferSize <= 0 {
		o.BufferSize = 1000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = 200 * time.Millisecond
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = 5 * time.Second
	}
	return o
}

// AsyncWriter is a Storage that queues events and writes them in batches
// from a single goroutine. StoreBatch never blocks: when the buffer is full
// the events are dropped and ErrBufferFull is returned.
type AsyncWriter struct {
	next    Storage
	log     *slog.Logger
	opts    AsyncOptions
	events  chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	closeMu sync.RWMutex
	closed  bool
}

func NewAsyncWriter(next Storage, log *slog.Logger, opts AsyncOptions) *AsyncWriter {
	if next == nil {
		panic("audit: storage cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	opts = opts.withDefaults()

	w := &AsyncWriter{
		next:   next,
		log:    log,
		opts:   opts,
		events: make(chan Event, opts.BufferSize),
		done:   make(chan struct{}),
	}
	w.wg.Add(1)
	go w.worker()
	return w
}

func (w *AsyncWriter) StoreBatch(_ context.Context, events []Event) error {
	w.closeMu.RLock()
	defer w.closeMu.RUnlock()
	if w.closed {
		return ErrStorageNotAvailable
	}

	for _, ev := range events {
		select {
		case w.events <- ev:
		default:
			return ErrBufferFull
		}
	}
	return nil
}

func (w *AsyncWriter) worker() {
	defer w.wg.Done()

	batch := make([]Event, 0, w.opts.BatchSize)
	ticker := time.NewTicker(w.opts.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), w.opts.StorageTimeout)
		defer cancel()
		if err := w.next.StoreBatch(ctx, batch); err != nil {
			w.log.Warn("audit batch write failed", slog.Int("events", len(batch)), slog.String("error", err.Error()))
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-w.events:
			batch = append(batch, ev)
			if len(batch) >= w.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-w.done:
			for {
				select {
				case ev := <-w.events:
					batch = append(batch, ev)
					if len(batch) >= w.opts.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops accepting events and waits for queued ones to be flushed, or
// for ctx to expire.
func (w *AsyncWriter) Close(ctx context.Context) error {
	w.closeMu.Lock()
	if w.closed {
		w.closeMu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.closeMu.Unlock()

	finished := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
