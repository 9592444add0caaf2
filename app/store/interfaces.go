package store

import "context"

// Well-known blob keys shared by the proxy components.
const (
	AccessLogKey = "access-log"
	BlacklistKey = "blacklist"
	BannedIPsKey = "banned-ips"
)

// Store is the key-value blob persistence abstraction. Get returns
// (nil, nil) when the key does not exist.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
