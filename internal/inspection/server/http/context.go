package http

import (
	"context"

	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
)

type (
	requestIDKey struct{}
	principalKey struct{}
)

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// PrincipalFrom returns the authenticated caller stored on ctx.
func PrincipalFrom(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(model.Principal)
	return p, ok
}

// LogExtractors derive the per-request log fields.
func LogExtractors() map[string]func(context.Context) string {
	return map[string]func(context.Context) string{
		"request_id": RequestID,
		"inspector": func(ctx context.Context) string {
			p, _ := PrincipalFrom(ctx)
			return p.ID
		},
	}
}
