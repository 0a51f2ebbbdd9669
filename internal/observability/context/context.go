// Package context carries request-scoped correlation values shared by the
// logging and tracing layers.
package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}

type equipmentCodeKey struct{}

type jobKey struct{}

// WithRequestID stores the request identifier on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request identifier, or empty.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithEquipmentCode stores the equipment code a request or job is acting on.
func WithEquipmentCode(ctx context.Context, code string) context.Context {
	code = strings.TrimSpace(code)
	if code == "" {
		return ctx
	}
	return context.WithValue(ctx, equipmentCodeKey{}, code)
}

// EquipmentCodeFromContext returns the equipment code, or empty.
func EquipmentCodeFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(equipmentCodeKey{}).(string); ok {
		return v
	}
	return ""
}

// WithJob stores the scheduler job name driving this context.
func WithJob(ctx context.Context, job string) context.Context {
	job = strings.TrimSpace(job)
	if job == "" {
		return ctx
	}
	return context.WithValue(ctx, jobKey{}, job)
}

// JobFromContext returns the scheduler job name, or empty.
func JobFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(jobKey{}).(string); ok {
		return v
	}
	return ""
}
