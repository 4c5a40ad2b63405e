// Package activitymap flattens account activity events into a transport
// agnostic record for audit logs.
package activitymap

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-accounts"
)

const (
	// MetadataKeyFromState stores the account state before the event
	MetadataKeyFromState = "from_state"
	// MetadataKeyToState stores the account state after the event
	MetadataKeyToState = "to_state"
)

const (
	defaultChannel    = "accounts"
	defaultObjectType = "account"
	anonymousActor    = "anonymous"
)

// Normalized is the flattened shape of an activity event
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel    string
	objectType string
	now        func() time.Time
}

// Normalize converts event. The account acts on itself, events without an
// account id (a failed login for an unknown email) are attributed to an
// anonymous actor.
func Normalize(event accounts.ActivityEvent, opts ...Option) Normalized {
	options := normalizeOptions{
		channel:    defaultChannel,
		objectType: defaultObjectType,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	accountID := strings.TrimSpace(event.AccountID)
	actorID := accountID
	if actorID == "" {
		actorID = anonymousActor
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   accountID,
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt.UTC(),
	}
}

// WithChannel sets the channel of normalized records
func WithChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithObjectType sets the object type of normalized records
func WithObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithClock sets the clock used for events without a timestamp
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

func normalizeMetadata(event accounts.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)

	if event.FromState != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[MetadataKeyFromState] = string(event.FromState)
	}

	if event.ToState != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[MetadataKeyToState] = string(event.ToState)
	}

	return metadata
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

// LogSink returns an ActivitySink writing normalized events to logger
func LogSink(logger accounts.Logger, opts ...Option) accounts.ActivitySink {
	return accounts.ActivitySinkFunc(func(_ context.Context, event accounts.ActivityEvent) error {
		out := Normalize(event, opts...)
		logger.Info("account activity",
			"verb", out.Verb,
			"actor_id", out.ActorID,
			"object_type", out.ObjectType,
			"object_id", out.ObjectID,
			"channel", out.Channel,
			"metadata", out.Metadata,
			"occurred_at", out.OccurredAt,
		)
		return nil
	})
}
