package cache

import (
	"crypto/tls"
	"strings"
	"time"

	"github.com/Alcereo/consign-gateway/pkg/authz"
	"github.com/go-redis/redis"
	"github.com/pkg/errors"
)

const (
	redisKeyNamespace = "consign"
	redisScanCount    = 100
)

type redisAdapter struct {
	client     *redis.Client
	expiration time.Duration
}

type RedisOptions struct {
	Address   string `validate:"required"`
	Password  string
	DB        int
	EnableTLS bool
}

func NewRedisClient(options RedisOptions) *redis.Client {
	redisOpts := &redis.Options{
		Addr:       options.Address,
		Password:   options.Password,
		DB:         options.DB,
		MaxRetries: 2,
	}
	if options.EnableTLS {
		host := strings.Split(options.Address, ":")[0]
		redisOpts.TLSConfig = &tls.Config{
			ServerName: host,
		}
	}
	return redis.NewClient(redisOpts)
}

func NewRedisAdapter(client *redis.Client, expirationTimeHours int) *redisAdapter {
	return &redisAdapter{
		client:     client,
		expiration: time.Hour * time.Duration(expirationTimeHours),
	}
}

func (adapter *redisAdapter) ForScope(scope string) authz.ScopedStorePort {
	return &redisScopedStore{
		client:     adapter.client,
		prefix:     redisKeyNamespace + scopeSeparator + scope + scopeSeparator,
		expiration: adapter.expiration,
	}
}

type redisScopedStore struct {
	client     *redis.Client
	prefix     string
	expiration time.Duration
}

func (store *redisScopedStore) GetItem(key string) (string, bool, error) {
	value, err := store.client.Get(store.prefix + key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "error reading item %v", key)
	}
	return value, true, nil
}

func (store *redisScopedStore) SetItem(key string, value string) error {
	err := store.client.Set(store.prefix+key, value, store.expiration).Err()
	return errors.Wrapf(err, "error writing item %v", key)
}

func (store *redisScopedStore) RemoveItem(key string) error {
	err := store.client.Del(store.prefix + key).Err()
	return errors.Wrapf(err, "error removing item %v", key)
}

func (store *redisScopedStore) Keys() ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := store.client.Scan(cursor, store.prefix+"*", redisScanCount).Result()
		if err != nil {
			return keys, errors.Wrap(err, "error scanning scoped keys")
		}
		for _, key := range batch {
			keys = append(keys, strings.TrimPrefix(key, store.prefix))
		}
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}
