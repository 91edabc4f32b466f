// Package audit emits structured entries for security-relevant actions:
// logins, registrations, token rotations, logouts.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/andyeko/apisentinel/internal/httpx"
	"github.com/andyeko/apisentinel/internal/obs"
)

// LogEvent writes one audit entry enriched with the request id when the
// context carries one. Field values must be log-safe; never pass
// credentials or token material.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("audit: event name is required")
	}
	attrs := []slog.Attr{
		slog.String("type", "audit"),
		slog.String("event", event),
	}
	if rid := httpx.RequestIDFromContext(ctx); rid != "" {
		attrs = append(attrs, slog.String("request_id", rid))
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	obs.Logger().LogAttrs(ctx, slog.LevelInfo, event, attrs...)
	return nil
}
