package session

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Room codes are short shareable aliases for session ids, kept in redis so
// every service instance resolves the same directory. Without redis a
// process-local map is used instead.
const (
	roomCodeLen      = 6
	roomCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	roomCodeTTL      = 24 * time.Hour
	roomCodePrefix   = "roomcode:"
)

type roomCodes struct {
	rdb *redis.Client

	mu    sync.Mutex
	local map[string]string
}

func newRoomCodes(rdb *redis.Client) *roomCodes {
	return &roomCodes{
		rdb:   rdb,
		local: make(map[string]string),
	}
}

// Allocate reserves a fresh code for the session.
func (c *roomCodes) Allocate(ctx context.Context, sessionID string) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		if c.rdb == nil {
			c.mu.Lock()
			if _, taken := c.local[code]; !taken {
				c.local[code] = sessionID
				c.mu.Unlock()
				return code, nil
			}
			c.mu.Unlock()
			continue
		}
		ok, err := c.rdb.SetNX(ctx, roomCodePrefix+code, sessionID, roomCodeTTL).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a room code")
}

// Resolve maps a code back to a session id. Unknown, expired and released
// codes are indistinguishable.
func (c *roomCodes) Resolve(ctx context.Context, code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", false
	}
	if c.rdb == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		id, ok := c.local[code]
		return id, ok
	}
	id, err := c.rdb.Get(ctx, roomCodePrefix+code).Result()
	if err != nil {
		return "", false
	}
	return id, true
}

// Release frees the code when its session ends.
func (c *roomCodes) Release(ctx context.Context, code string) {
	if code == "" {
		return
	}
	if c.rdb == nil {
		c.mu.Lock()
		delete(c.local, code)
		c.mu.Unlock()
		return
	}
	_ = c.rdb.Del(ctx, roomCodePrefix+code).Err()
}

// adopt registers an existing code, used when restoring persisted sessions.
func (c *roomCodes) adopt(code, sessionID string) {
	if c.rdb != nil || code == "" {
		return
	}
	c.mu.Lock()
	c.local[code] = sessionID
	c.mu.Unlock()
}

func randomCode() (string, error) {
	buf := make([]byte, roomCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
	}
	return string(buf), nil
}
