// Package audit writes the security trail: one JSON line per mutation or
// login attempt, tagged with the request id and the authenticated subject.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"assetdesk.org/internal/auth"
	"assetdesk.org/internal/obs"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type requestIDKey struct{}

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// Record audits an entity mutation such as ("asset", "update", 7). A non-nil
// err marks the attempt as failed and is stored as its message.
func Record(ctx context.Context, entity, action string, id int64, err error) error {
	fields := map[string]any{"entity": entity}
	if id != 0 {
		fields["id"] = id
	}
	event := entity + "." + action
	if err != nil {
		event += "_failed"
		fields["error"] = err.Error()
	}
	return write(ctx, event, outcome(err), fields)
}

// LogEvent writes a free-form audit entry, e.g. "user.login".
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	o := OutcomeSuccess
	if strings.HasSuffix(event, "_failed") {
		o = OutcomeFailure
	}
	return write(ctx, event, o, fields)
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

func write(ctx context.Context, event, result string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := map[string]any{
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"type":    "audit",
		"event":   event,
		"outcome": result,
	}
	if rid := requestID(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if subject, ok := auth.SubjectFromContext(ctx); ok {
		entry["subject"] = subject
	}
	payload := make(map[string]any, len(fields))
	for k, v := range fields {
		payload[k] = v
	}
	entry["fields"] = payload

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
