package locks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultLockTTL bounds how long a crashed holder can block a key. A live holder
	// extends it every third of the TTL until it unlocks.
	DefaultLockTTL = 30 * time.Second

	// DefaultRetryInterval is the polling interval while a key is held elsewhere.
	DefaultRetryInterval = 50 * time.Millisecond

	keyPrefix = "ticketwolf:lock:"
)

// releaseScript deletes the key only when it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the TTL only when the key still carries our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a Locker shared by every replica connected to the same Redis.
type Redis struct {
	l      *slog.Logger
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
}

// NewRedis creates a new Redis backed locker.
func NewRedis(l *slog.Logger, client redis.UniversalClient) *Redis {
	return &Redis{
		l:      l,
		client: client,
		ttl:    DefaultLockTTL,
		retry:  DefaultRetryInterval,
	}
}

// Connect parses the URL, connects and pings the Redis server.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("error pinging redis: %w", err)
	}
	return client, nil
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	key = keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("error acquiring lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			// The caller's context may already be cancelled.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
				r.l.Warn("Error releasing lock",
					slog.String("key", key),
					slog.String(logging.KeyError, err.Error()),
				)
			}
		})
	}, nil
}

// keepAlive extends the key while it is held. It stops when stop is closed or the key
// no longer carries the token.
func (r *Redis) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), r.ttl/3)
		n, err := extendScript.Run(ctx, r.client, []string{key}, token, r.ttl.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil:
			r.l.Warn("Error extending lock",
				slog.String("key", key),
				slog.String(logging.KeyError, err.Error()),
			)
		case n == 0:
			r.l.Warn("Lock lost before release", slog.String("key", key))
			return
		}
	}
}
