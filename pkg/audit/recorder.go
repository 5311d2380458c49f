package audit

import (
	"context"
	"log/slog"
	"time"
)

// Extractor reads one string value from a request context.
type Extractor func(context.Context) (string, bool)

// EventOption customizes an event before it is stored.
type EventOption func(*Event)

func WithResource(resource string) EventOption {
	return func(e *Event) { e.Resource = resource }
}

func WithDetails(details string) EventOption {
	return func(e *Event) { e.Details = details }
}

// WithUsername sets the actor explicitly, e.g. for login attempts made
// before a principal exists.
func WithUsername(username string) EventOption {
	return func(e *Event) {
		if username != "" {
			e.Username = username
		}
	}
}

// Recorder creates and stores events.
type Recorder struct {
	storage Storage
	log     *slog.Logger
	now     func() time.Time

	username  Extractor
	requestID Extractor
	ip        Extractor
	userAgent Extractor
}

type Option func(*Recorder)

func WithUsernameExtractor(fn Extractor) Option  { return func(r *Recorder) { r.username = fn } }
func WithRequestIDExtractor(fn Extractor) Option { return func(r *Recorder) { r.requestID = fn } }
func WithIPExtractor(fn Extractor) Option        { return func(r *Recorder) { r.ip = fn } }
func WithUserAgentExtractor(fn Extractor) Option { return func(r *Recorder) { r.userAgent = fn } }

func WithLogger(log *slog.Logger) Option {
	return func(r *Recorder) {
		if log != nil {
			r.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRecorder(storage Storage, opts ...Option) *Recorder {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	r := &Recorder{storage: storage, log: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record stores a successful action.
func (r *Recorder) Record(ctx context.Context, action string, opts ...EventOption) {
	r.store(ctx, action, ResultSuccess, opts)
}

// Failure stores a failed or denied action.
func (r *Recorder) Failure(ctx context.Context, action string, opts ...EventOption) {
	r.store(ctx, action, ResultFailure, opts)
}

func (r *Recorder) store(ctx context.Context, action string, result Result, opts []EventOption) {
	ev := Event{
		Action:    action,
		Result:    result,
		Username:  extract(ctx, r.username),
		RequestID: extract(ctx, r.requestID),
		IP:        extract(ctx, r.ip),
		UserAgent: extract(ctx, r.userAgent),
		Timestamp: r.now().UTC(),
	}
	for _, opt := range opts {
		opt(&ev)
	}
	if ev.Username == "" {
		ev.Username = "anonymous"
	}

	if err := ev.Validate(); err != nil {
		r.log.WarnContext(ctx, "audit event dropped", slog.String("action", action), slog.String("error", err.Error()))
		return
	}
	if err := r.storage.StoreBatch(ctx, []Event{ev}); err != nil {
		r.log.WarnContext(ctx, "audit write failed", slog.String("action", action), slog.String("error", err.Error()))
	}
}

func extract(ctx context.Context, fn Extractor) string {
	if fn == nil {
		return ""
	}
	if v, ok := fn(ctx); ok {
		return v
	}
	return ""
}

// Auditor is the recording side used by services. *Recorder implements it.
type Auditor interface {
	Record(ctx context.Context, action string, opts ...EventOption)
	Failure(ctx context.Context, action string, opts ...EventOption)
}

// Discard drops every event.
var Discard Auditor = discard{}

type discard struct{}

func (discard) Record(context.Context, string, ...EventOption)  {}
func (discard) Failure(context.Context, string, ...EventOption) {}
