// Package log holds the leveled klog helpers used across the module.
package log

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"
)

// enum defining logging levels.
const (
	Default klog.Level = iota + 1
	Useful
	Extended
	Debug
	Trace
)

type contextKey string

// CtxKey for context based logging.
var CtxKey = contextKey("ID")

// WithID returns a context whose log lines are prefixed with id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CtxKey, id)
}

// Log prefixes format with the ID stored in ctx, if any.
func Log(ctx context.Context, format string) string {
	if ctx == nil {
		return format
	}
	id := ctx.Value(CtxKey)
	if id == nil {
		return format
	}

	return fmt.Sprintf("ID: %v ", id) + format
}

// FatalLogMsg helps in logging fatal errors.
func FatalLogMsg(message string, args ...interface{}) {
	klog.FatalDepth(1, fmt.Sprintf(message, args...))
}

// ErrorLogMsg helps in logging errors with message.
func ErrorLogMsg(message string, args ...interface{}) {
	klog.ErrorDepth(1, fmt.Sprintf(message, args...))
}

// ErrorLog helps in logging errors with context.
func ErrorLog(ctx context.Context, message string, args ...interface{}) {
	klog.ErrorDepth(1, fmt.Sprintf(Log(ctx, message), args...))
}

// WarningLogMsg helps in logging warnings with message.
func WarningLogMsg(message string, args ...interface{}) {
	klog.WarningDepth(1, fmt.Sprintf(message, args...))
}

// WarningLog helps in logging warnings with context.
func WarningLog(ctx context.Context, message string, args ...interface{}) {
	klog.WarningDepth(1, fmt.Sprintf(Log(ctx, message), args...))
}

// DefaultLog helps in logging with klog.level 1.
func DefaultLog(message string, args ...interface{}) {
	if klog.V(Default).Enabled() {
		klog.InfoDepth(1, fmt.Sprintf(message, args...))
	}
}

// UsefulLog helps in logging with klog.level 2.
func UsefulLog(ctx context.Context, message string, args ...interface{}) {
	if klog.V(Useful).Enabled() {
		klog.InfoDepth(1, fmt.Sprintf(Log(ctx, message), args...))
	}
}

// ExtendedLogMsg helps in logging a message with klog.level 3.
func ExtendedLogMsg(message string, args ...interface{}) {
	if klog.V(Extended).Enabled() {
		klog.InfoDepth(1, fmt.Sprintf(message, args...))
	}
}

// DebugLogMsg helps in logging a message with klog.level 4.
func DebugLogMsg(message string, args ...interface{}) {
	if klog.V(Debug).Enabled() {
		klog.InfoDepth(1, fmt.Sprintf(message, args...))
	}
}

// DebugLog helps in logging with klog.level 4.
func DebugLog(ctx context.Context, message string, args ...interface{}) {
	if klog.V(Debug).Enabled() {
		klog.InfoDepth(1, fmt.Sprintf(Log(ctx, message), args...))
	}
}

// TraceLogMsg helps in logging a message with klog.level 5.
// The arguments are only formatted when the level is enabled, so it is safe on the sample path.
func TraceLogMsg(message string, args ...interface{}) {
	if klog.V(Trace).Enabled() {
		klog.InfoDepth(1, fmt.Sprintf(message, args...))
	}
}
