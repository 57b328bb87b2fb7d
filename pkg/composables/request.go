package composables

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/cabflow/cabflow/pkg/constants"
)

var ErrNoActor = errors.New("no actor found in context")

// WithActorID records the authenticated caller identity on the context.
// The identity is an opaque directory account ID; the engine never
// interprets it.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, constants.ActorKey, actorID)
}

func UseActorID(ctx context.Context) (string, error) {
	actor, ok := ctx.Value(constants.ActorKey).(string)
	if !ok || actor == "" {
		return "", ErrNoActor
	}
	return actor, nil
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the contextual logger, falling back to the standard
// logger so call sites never have to nil-check.
func UseLogger(ctx context.Context) *logrus.Entry {
	logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry)
	if !ok {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return logger
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, constants.RequestIDKey, requestID)
}

func UseRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(constants.RequestIDKey).(string)
	return requestID
}
