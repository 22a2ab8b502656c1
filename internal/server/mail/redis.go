package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// streamAdder is the part of *redis.Client the sender uses.
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamSender publishes notices to a Redis stream read by the external
// mailer. Each entry has a "type" field and the JSON notice under "payload".
type RedisStreamSender struct {
	client streamAdder
	stream string
	maxLen int64
}

// NewRedisStreamSender returns a sender writing to stream. The stream is
// trimmed approximately to maxLen entries; zero disables trimming.
func NewRedisStreamSender(client streamAdder, stream string, maxLen int64) *RedisStreamSender {
	return &RedisStreamSender{client: client, stream: stream, maxLen: maxLen}
}

func (s *RedisStreamSender) SendActivationNotice(ctx context.Context, n ActivationNotice) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"type":    "account.activation",
			"payload": string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
