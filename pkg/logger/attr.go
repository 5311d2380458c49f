package logger

import (
	"log/slog"
	"time"
)

// Error returns an "error" attribute. A nil error yields an empty attribute,
// which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

func Component(name string) slog.Attr { return slog.String("component", name) }

func RequestID(id string) slog.Attr { return slog.String("request_id", id) }

func Username(name string) slog.Attr { return slog.String("username", name) }

func AccountID(id int64) slog.Attr { return slog.Int64("account_id", id) }

func Action(action string) slog.Attr { return slog.String("action", action) }

func Event(name string) slog.Attr { return slog.String("event", name) }

func Duration(d time.Duration) slog.Attr { return slog.Duration("duration", d) }
