// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
	"sort"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// SetGlobalLogger replaces the logger used by repository and hub loggers.
func SetGlobalLogger(l *slog.Logger) {
	if l != nil {
		GlobalLogger = &Logger{Logger: l}
	}
}

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableRepoLogging bool
	EnableHubLogging  bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{
	EnableRepoLogging: true,
	EnableHubLogging:  true,
}

// sortedAttrs keeps field order stable across runs.
func sortedAttrs(base []any, fields map[string]interface{}) []any {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		base = append(base, slog.Any(k, fields[k]))
	}
	return base
}

// RepoLogger provides structured logging for repository mutations.
type RepoLogger struct {
	tableName string
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(tableName string) *RepoLogger {
	return &RepoLogger{tableName: tableName}
}

func (l *RepoLogger) log(ctx context.Context, operation string, fields map[string]interface{}) {
	if !Config.EnableRepoLogging {
		return
	}
	attrs := sortedAttrs([]any{
		slog.String("table", l.tableName),
		slog.String("operation", operation),
	}, fields)
	GlobalLogger.InfoContext(ctx, "repository "+operation, attrs...)
}

// LogCreate logs a repository create operation.
func (l *RepoLogger) LogCreate(ctx context.Context, fields map[string]interface{}) {
	l.log(ctx, "create", fields)
}

// LogUpdate logs a repository update operation.
func (l *RepoLogger) LogUpdate(ctx context.Context, fields map[string]interface{}) {
	l.log(ctx, "update", fields)
}

// LogDelete logs a repository delete operation.
func (l *RepoLogger) LogDelete(ctx context.Context, fields map[string]interface{}) {
	l.log(ctx, "delete", fields)
}

// LogError logs a repository error.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	if !Config.EnableRepoLogging || err == nil {
		return
	}
	GlobalLogger.ErrorContext(ctx, "repository error",
		slog.String("table", l.tableName),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// HubLogger logs live-update subscriber lifecycle events.
type HubLogger struct {
	hubName string
}

// NewHubLogger creates a new HubLogger for the given hub.
func NewHubLogger(hubName string) *HubLogger {
	return &HubLogger{hubName: hubName}
}

// LogSubscribe logs a subscriber joining a debate stream.
func (l *HubLogger) LogSubscribe(ctx context.Context, debateID uint, subscribers int) {
	if !Config.EnableHubLogging {
		return
	}
	GlobalLogger.InfoContext(ctx, "debate subscriber joined",
		slog.String("hub", l.hubName),
		slog.Uint64("debate_id", uint64(debateID)),
		slog.Int("subscribers", subscribers),
	)
}

// LogUnsubscribe logs a subscriber leaving a debate stream.
func (l *HubLogger) LogUnsubscribe(ctx context.Context, debateID uint, subscribers int) {
	if !Config.EnableHubLogging {
		return
	}
	GlobalLogger.InfoContext(ctx, "debate subscriber left",
		slog.String("hub", l.hubName),
		slog.Uint64("debate_id", uint64(debateID)),
		slog.Int("subscribers", subscribers),
	)
}

// LogError logs a delivery failure to one subscriber.
func (l *HubLogger) LogError(ctx context.Context, debateID uint, err error) {
	if !Config.EnableHubLogging || err == nil {
		return
	}
	GlobalLogger.WarnContext(ctx, "debate event delivery failed",
		slog.String("hub", l.hubName),
		slog.Uint64("debate_id", uint64(debateID)),
		slog.String("error", err.Error()),
	)
}
