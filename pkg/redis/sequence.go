package redis

import (
	"context"
	"errors"
	"strings"
)

const sequencePrefix = "sequence"

// raiseFloorScript lifts a counter to ARGV[1] when it is lower and returns
// the resulting value. INCR keeps counters as decimal strings, so GET/SET
// interoperate with it.
const raiseFloorScript = `
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if current < floor then
	redis.call('SET', KEYS[1], floor)
	return floor
end
return current
`

// SequenceStore hands out monotonically increasing values per sequence name.
type SequenceStore interface {
	NextSequence(ctx context.Context, name string) (int64, error)
}

// SequenceSeeder can move a sequence forward, for example after Redis lost
// its data while issued codes remain in the database.
type SequenceSeeder interface {
	EnsureSequenceFloor(ctx context.Context, name string, floor int64) (int64, error)
}

// NextSequence increments the named sequence. The first call returns 1.
func (c *Client) NextSequence(ctx context.Context, name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, errors.New("sequence name is required")
	}
	if c.store == nil {
		return 0, errNotInitialized
	}
	return c.store.Incr(ctx, buildKey(sequencePrefix, name)).Result()
}

// EnsureSequenceFloor makes the next NextSequence call return at least
// floor+1. It never moves a sequence backwards.
func (c *Client) EnsureSequenceFloor(ctx context.Context, name string, floor int64) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, errors.New("sequence name is required")
	}
	if c.store == nil {
		return 0, errNotInitialized
	}
	return c.store.Eval(ctx, raiseFloorScript, []string{buildKey(sequencePrefix, name)}, floor).Int64()
}
