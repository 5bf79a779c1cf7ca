package http

import (
	"context"

	"github.com/sirupsen/logrus"
)

type contextKey string

const requestIDContextKey contextKey = "sitewomen/request-id"

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestIDFromContext returns the id assigned by the request id middleware, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// requestFields adds the request id to fields. A nil map is allocated.
func requestFields(ctx context.Context, fields logrus.Fields) logrus.Fields {
	if fields == nil {
		fields = logrus.Fields{}
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields["request_id"] = id
	}
	return fields
}
