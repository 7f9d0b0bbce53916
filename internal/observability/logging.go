// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
}

// SetLogger replaces the logger behind RepoLogger and WSLogger. The server
// installs the request-aware logger here so repository and feed records carry
// request ids.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger.Store(l)
	}
}

func current() *slog.Logger { return logger.Load() }

// RepoLogger writes debug records for one table.
type RepoLogger struct {
	table string
}

func NewRepoLogger(table string) *RepoLogger {
	return &RepoLogger{table: table}
}

// Event records a successful operation such as "create" or "delete".
func (l *RepoLogger) Event(ctx context.Context, operation string, attrs ...slog.Attr) {
	l.emit(ctx, slog.LevelDebug, "repository "+operation, operation, attrs)
}

// LogError records a failed operation. Not-found results are logged by the caller, if at all.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	l.emit(ctx, slog.LevelError, "repository error", operation, []slog.Attr{slog.String("error", err.Error())})
}

func (l *RepoLogger) emit(ctx context.Context, level slog.Level, msg, operation string, attrs []slog.Attr) {
	lg := current()
	if !lg.Enabled(ctx, level) {
		return
	}
	all := append([]slog.Attr{slog.String("table", l.table), slog.String("operation", operation)}, attrs...)
	lg.LogAttrs(ctx, level, msg, all...)
}

// WSLogger writes connection lifecycle records for one hub.
type WSLogger struct {
	hub string
}

func NewWSLogger(hub string) *WSLogger {
	return &WSLogger{hub: hub}
}

func (l *WSLogger) LogConnect(ctx context.Context, clientID string, topics []string) {
	current().LogAttrs(ctx, slog.LevelInfo, "feed client connected",
		slog.String("hub", l.hub),
		slog.String("client_id", clientID),
		slog.Any("topics", topics),
	)
}

func (l *WSLogger) LogDisconnect(ctx context.Context, clientID, reason string) {
	current().LogAttrs(ctx, slog.LevelInfo, "feed client disconnected",
		slog.String("hub", l.hub),
		slog.String("client_id", clientID),
		slog.String("reason", reason),
	)
}

func (l *WSLogger) LogError(ctx context.Context, err error, eventType string) {
	current().LogAttrs(ctx, slog.LevelWarn, "feed client error",
		slog.String("hub", l.hub),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}
