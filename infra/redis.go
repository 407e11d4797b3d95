package infra

import (
	"context"
	"crypto/tls"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Address       string
	Key           string
	Tls           bool
	TlsSkipVerify bool
}

func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	var tlsConfig *tls.Config

	if cfg.Tls {
		tlsConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.TlsSkipVerify,
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Address,
		Password:  cfg.Key,
		TLSConfig: tlsConfig,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "could not check redis connectivity")
	}

	return client, nil
}
