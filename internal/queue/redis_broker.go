package queue

import (
	"chatview/backend/internal/errs"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pollInterval = 25 * time.Millisecond

// sendScript pushes ARGV[2] onto KEYS[2] only when ARGV[1] is a member of
// the declared set KEYS[1], so a send to a deleted queue cannot recreate it.
var sendScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 1 then
	return redis.call('RPUSH', KEYS[2], ARGV[2])
end
return -1
`)

// RedisBroker keeps each queue as a Redis list and tracks declared queues
// in a set. Durability follows the Redis persistence settings (AOF/RDB).
type RedisBroker struct {
	client *redis.Client
	prefix string
}

func NewRedisBroker(client *redis.Client, prefix string) *RedisBroker {
	return &RedisBroker{client: client, prefix: prefix}
}

// Redis key patterns:
// {prefix}:declared        SET<queue name>
// {prefix}:q:{queue name}  LIST<payload>   oldest at the head
func (b *RedisBroker) declaredKey() string {
	return b.prefix + ":declared"
}

func (b *RedisBroker) listKey(queue string) string {
	return fmt.Sprintf("%s:q:%s", b.prefix, queue)
}

func (b *RedisBroker) Declare(ctx context.Context, queue string) error {
	return b.client.SAdd(ctx, b.declaredKey(), queue).Err()
}

func (b *RedisBroker) Delete(ctx context.Context, queue string) error {
	pipe := b.client.TxPipeline()
	pipe.SRem(ctx, b.declaredKey(), queue)
	pipe.Del(ctx, b.listKey(queue))
	_, err := pipe.Exec(ctx)
	return err
}

func (b *RedisBroker) Purge(ctx context.Context, queue string) error {
	return b.client.Del(ctx, b.listKey(queue)).Err()
}

func (b *RedisBroker) Send(ctx context.Context, queue string, body []byte) error {
	n, err := sendScript.Run(ctx, b.client, []string{b.declaredKey(), b.listKey(queue)}, queue, body).Int64()
	if err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("%s: %w", queue, errs.ErrQueueNotDeclared)
	}
	return nil
}

// Receive uses BLPOP for waits of a second or more. Shorter waits are served
// by polling LPOP because BLPOP rounds its timeout up to whole seconds.
func (b *RedisBroker) Receive(ctx context.Context, queue string, timeout time.Duration) ([]byte, bool, error) {
	key := b.listKey(queue)

	if timeout >= time.Second {
		res, err := b.client.BLPop(ctx, timeout, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return []byte(res[1]), true, nil
	}

	deadline := time.Now().Add(timeout)
	for {
		body, err := b.client.LPop(ctx, key).Bytes()
		if err == nil {
			return body, true, nil
		}
		if !errors.Is(err, redis.Nil) {
			return nil, false, err
		}
		if !time.Now().Before(deadline) {
			return nil, false, nil
		}

		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (b *RedisBroker) Exists(ctx context.Context, queue string) (bool, error) {
	return b.client.SIsMember(ctx, b.declaredKey(), queue).Result()
}
