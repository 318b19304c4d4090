package redis

import "strings"

// Every key lives under the "mk" namespace followed by its kind.
const namespace = "mk"

const (
	kindIdempotency = "idempotency"
	kindRateLimit   = "rate_limit"
	kindSession     = "session"
	kindLink        = "exchange_link"
	kindCronLock    = "cron_lock"
	kindRoom        = "room"
)

func key(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string { return key(kindIdempotency, scope, id) }

func (c *Client) RateLimitKey(scope string) string { return key(kindRateLimit, scope) }

func (c *Client) AccessSessionKey(accessID string) string { return key(kindSession, "access", accessID) }

// ExchangeLinkKey marks an emailed accept/decline link as spent.
func (c *Client) ExchangeLinkKey(tokenID string) string { return key(kindLink, tokenID) }

func (c *Client) CronLockKey(job string) string { return key(kindCronLock, job) }

// RoomChannel is the pub/sub channel carrying new messages of one chat room.
func (c *Client) RoomChannel(roomID string) string { return key(kindRoom, roomID) }
