package queue

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// LogSubscriber records every published event at debug level.
func LogSubscriber(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	log.Ctx(ctx).Debug().Str("topic", topic).RawJSON("payload", body).Msg("lifecycle event")
	return nil
}

// PublishBestEffort publishes and logs a failure instead of returning it.
func PublishBestEffort(ctx context.Context, p Publisher, topic string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, topic, payload); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("failed to publish lifecycle event")
	}
}
