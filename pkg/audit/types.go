package audit

import (
	"context"
	"fmt"
	"time"
)

type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Event is one audit log row.
type Event struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource,omitempty"`
	Details   string    `json:"details,omitempty"`
	Result    Result    `json:"result"`
	IP        string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrEventValidation)
	}
	if e.Username == "" {
		return fmt.Errorf("%w: username is required", ErrEventValidation)
	}
	return nil
}

// Storage persists events in bulk.
type Storage interface {
	StoreBatch(ctx context.Context, events []Event) error
}

// Reader queries and maintains stored events.
type Reader interface {
	List(ctx context.Context, f Filter) ([]Event, error)
	Stats(ctx context.Context, since time.Time) (Stats, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Stats summarizes the audit log.
type Stats struct {
	Total       int64            `json:"total"`
	Last24Hours int64            `json:"last_24_hours"`
	Failures    int64            `json:"failures"`
	ByAction    map[string]int64 `json:"by_action"`
	TopUsers    []UserCount      `json:"top_users"`
}

type UserCount struct {
	Username string `json:"username"`
	Count    int64  `json:"count"`
}
