package redis

import (
	"context"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var NilError = goredis.Nil

type Options = goredis.UniversalOptions

// StreamMessage is a single entry read from a Redis stream.
type StreamMessage struct {
	ID     string
	Values map[string]interface{}
}

// Adapter is the slice of Redis the suite uses: plain key/value with TTL
// plus the stream primitives backing the dispatch queue. All keys are
// namespaced with the adapter's prefix.
type Adapter interface {
	Set(key string, value []byte, ttl time.Duration) error
	SetNX(key string, value []byte, ttl time.Duration) (bool, error)
	Get(key string) ([]byte, error)
	Del(key string) error
	Exist(key string) (int64, error)

	XAdd(key string, values map[string]interface{}) (string, error)
	XReadGroup(group, consumer, key, id string, count int64) ([]StreamMessage, error)
	XAck(key, group string, ids ...string) error
	XGroupCreateMkStream(key, group, start string) error
	XLen(key string) (int64, error)
	XDel(key string, ids ...string) error
	XTrimApprox(key string, maxLen int64) error
	XPending(key, group string) (*goredis.XPending, error)
	XPendingExt(key, group, start, end string, count int64) ([]goredis.XPendingExt, error)
	XClaim(key, group, consumer string, minIdle time.Duration, ids ...string) ([]StreamMessage, error)

	Client() goredis.UniversalClient
}

type adapter struct {
	prefix string
	conn   goredis.UniversalClient
	name   string
}

var (
	instLock  sync.RWMutex
	instances map[string]Adapter
)

// NewAdapter connects (or returns the already-connected adapter registered
// under connName). The connection is verified with a ping before use.
func NewAdapter(connName, keysPrefix string, opts *goredis.UniversalOptions) (Adapter, error) {
	instLock.RLock()
	if a, ok := instances[connName]; ok {
		instLock.RUnlock()
		return a, nil
	}
	instLock.RUnlock()

	c := goredis.NewUniversalClient(opts)
	if cmd := c.Ping(context.Background()); cmd.Err() != nil {
		return nil, cmd.Err()
	}

	a := &adapter{conn: c, prefix: keysPrefix, name: connName}

	instLock.Lock()
	if instances == nil {
		instances = make(map[string]Adapter)
	}
	if existing, ok := instances[connName]; ok {
		instLock.Unlock()
		_ = c.Close()
		return existing, nil
	}
	instances[connName] = a
	instLock.Unlock()

	return a, nil
}

// NewFromClient wraps an existing client. Tests use this with miniredis.
func NewFromClient(c goredis.UniversalClient, keysPrefix string) Adapter {
	return &adapter{conn: c, prefix: keysPrefix, name: "test"}
}

func (r *adapter) Set(key string, value []byte, ttl time.Duration) error {
	return r.conn.Set(context.Background(), r.prefix+key, value, ttl).Err()
}

func (r *adapter) SetNX(key string, value []byte, ttl time.Duration) (bool, error) {
	return r.conn.SetNX(context.Background(), r.prefix+key, value, ttl).Result()
}

func (r *adapter) Get(key string) ([]byte, error) {
	return r.conn.Get(context.Background(), r.prefix+key).Bytes()
}

func (r *adapter) Del(key string) error {
	return r.conn.Del(context.Background(), r.prefix+key).Err()
}

func (r *adapter) Exist(key string) (int64, error) {
	return r.conn.Exists(context.Background(), r.prefix+key).Result()
}

func (r *adapter) XAdd(key string, values map[string]interface{}) (string, error) {
	return r.conn.XAdd(context.Background(), &goredis.XAddArgs{
		Stream: r.prefix + key,
		Values: values,
	}).Result()
}

func (r *adapter) XReadGroup(group, consumer, key, id string, count int64) ([]StreamMessage, error) {
	res, err := r.conn.XReadGroup(context.Background(), &goredis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{r.prefix + key, id},
		Count:    count,
		Block:    time.Millisecond * 100,
	}).Result()
	if err != nil {
		return nil, err
	}
	return flatten(res), nil
}

func (r *adapter) XAck(key, group string, ids ...string) error {
	return r.conn.XAck(context.Background(), r.prefix+key, group, ids...).Err()
}

func (r *adapter) XGroupCreateMkStream(key, group, start string) error {
	return r.conn.XGroupCreateMkStream(context.Background(), r.prefix+key, group, start).Err()
}

func (r *adapter) XLen(key string) (int64, error) {
	return r.conn.XLen(context.Background(), r.prefix+key).Result()
}

func (r *adapter) XDel(key string, ids ...string) error {
	return r.conn.XDel(context.Background(), r.prefix+key, ids...).Err()
}

func (r *adapter) XTrimApprox(key string, maxLen int64) error {
	return r.conn.XTrimMaxLenApprox(context.Background(), r.prefix+key, maxLen, 0).Err()
}

func (r *adapter) XPending(key, group string) (*goredis.XPending, error) {
	return r.conn.XPending(context.Background(), r.prefix+key, group).Result()
}

func (r *adapter) XPendingExt(key, group, start, end string, count int64) ([]goredis.XPendingExt, error) {
	return r.conn.XPendingExt(context.Background(), &goredis.XPendingExtArgs{
		Stream: r.prefix + key,
		Group:  group,
		Start:  start,
		End:    end,
		Count:  count,
	}).Result()
}

func (r *adapter) XClaim(key, group, consumer string, minIdle time.Duration, ids ...string) ([]StreamMessage, error) {
	msgs, err := r.conn.XClaim(context.Background(), &goredis.XClaimArgs{
		Stream:   r.prefix + key,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]StreamMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, StreamMessage{ID: m.ID, Values: m.Values})
	}
	return out, nil
}

func (r *adapter) Client() goredis.UniversalClient { return r.conn }

func flatten(streams []goredis.XStream) []StreamMessage {
	var out []StreamMessage
	for _, s := range streams {
		for _, m := range s.Messages {
			out = append(out, StreamMessage{ID: m.ID, Values: m.Values})
		}
	}
	return out
}
