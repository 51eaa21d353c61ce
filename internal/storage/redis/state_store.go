package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/micuatri/calendarlink/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "calendarlink:oauth_state:"
	defaultRetention = time.Hour
)

// consumeScript performs the whole check-and-transition server side so two
// callbacks racing on one state cannot both succeed.
//
// KEYS[1] state key
// ARGV[1] now (unix ms), ARGV[2] username, ARGV[3] session id
var consumeScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('EXISTS', key) == 0 then
  return {'missing'}
end

local status = redis.call('HGET', key, 'status')
if status == 'consumed' then
  return {'consumed'}
end
if status == 'expired' then
  return {'expired'}
end

local expiresAt = tonumber(redis.call('HGET', key, 'expires_at'))
if tonumber(ARGV[1]) >= expiresAt then
  redis.call('HSET', key, 'status', 'expired')
  return {'expired'}
end

local username = redis.call('HGET', key, 'username')
local sessionID = redis.call('HGET', key, 'session_id')
if username ~= ARGV[2] or sessionID ~= ARGV[3] then
  return {'mismatch'}
end

redis.call('HSET', key, 'status', 'consumed')

return {'ok', username, sessionID, redis.call('HGET', key, 'code_verifier'), redis.call('HGET', key, 'created_at'), redis.call('HGET', key, 'expires_at')}
`)

// StateStore implements domain.StateStore on Redis hashes. Keys outlive
// their expiry by the retention window so a replay is reported as consumed
// rather than unknown.
type StateStore struct {
	client    *redis.Client
	keyPrefix string
	retention time.Duration
}

type Opts struct {
	KeyPrefix string
	Retention time.Duration
}

func NewStateStore(client *redis.Client, opts Opts) *StateStore {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = defaultKeyPrefix
	}

	if opts.Retention <= 0 {
		opts.Retention = defaultRetention
	}

	return &StateStore{
		client:    client,
		keyPrefix: opts.KeyPrefix,
		retention: opts.Retention,
	}
}

func (s *StateStore) key(value string) string {
	return s.keyPrefix + value
}

func (s *StateStore) Save(ctx context.Context, token domain.StateToken) error {
	key := s.key(token.Value)

	status := token.Status
	if status == "" {
		status = domain.StateStatusInitiated
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"username", token.Username,
			"session_id", token.SessionID,
			"code_verifier", token.CodeVerifier,
			"status", string(status),
			"created_at", strconv.FormatInt(token.CreatedAt.UnixMilli(), 10),
			"expires_at", strconv.FormatInt(token.ExpiresAt.UnixMilli(), 10),
		)
		pipe.PExpireAt(ctx, key, token.ExpiresAt.Add(s.retention))

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}

	return nil
}

func (s *StateStore) Consume(ctx context.Context, value string, session domain.Session, now time.Time) (domain.StateToken, error) {
	result, err := consumeScript.Run(ctx, s.client,
		[]string{s.key(value)},
		now.UnixMilli(), session.Username, session.ID,
	).StringSlice()
	if err != nil {
		return domain.StateToken{}, fmt.Errorf("failed to consume oauth state: %w", err)
	}

	if len(result) == 0 {
		return domain.StateToken{}, fmt.Errorf("failed to consume oauth state: empty script result")
	}

	switch result[0] {
	case "missing":
		return domain.StateToken{}, domain.ErrStateNotFound
	case "consumed":
		return domain.StateToken{}, domain.ErrStateConsumed
	case "expired":
		return domain.StateToken{}, domain.ErrStateExpired
	case "mismatch":
		return domain.StateToken{}, domain.ErrStateMismatch
	case "ok":
	default:
		return domain.StateToken{}, fmt.Errorf("failed to consume oauth state: unexpected script result %q", result[0])
	}

	if len(result) != 6 {
		return domain.StateToken{}, fmt.Errorf("failed to consume oauth state: malformed script result")
	}

	createdAt, err := parseMillis(result[4])
	if err != nil {
		return domain.StateToken{}, err
	}

	expiresAt, err := parseMillis(result[5])
	if err != nil {
		return domain.StateToken{}, err
	}

	return domain.StateToken{
		Value:        value,
		Username:     result[1],
		SessionID:    result[2],
		CodeVerifier: result[3],
		Status:       domain.StateStatusConsumed,
		CreatedAt:    createdAt,
		ExpiresAt:    expiresAt,
	}, nil
}

func parseMillis(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}

	return time.UnixMilli(ms).UTC(), nil
}
